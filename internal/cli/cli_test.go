package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/forPelevin/embedscan/internal/config"
)

func TestApplyFlagsOverridesOnlyChangedFlags(t *testing.T) {
	cmd := newRootCmd()
	if err := cmd.ParseFlags([]string{"--interval", "1.5", "--jump=1", "--cut", "--log-format", "json"}); err != nil {
		t.Fatal(err)
	}
	s := config.Default()
	s.Detection.Threshold = 0.5
	if err := applyFlags(cmd, &s); err != nil {
		t.Fatalf("applyFlags: %v", err)
	}
	if s.Detection.IntervalSeconds != 1.5 || s.Detection.FrameJump != 1 || !s.Output.Cut || s.Logging.Format != "json" {
		t.Fatalf("flags not applied: %+v", s)
	}
	if s.Detection.Threshold != 0.5 {
		t.Fatalf("unchanged flag overwrote setting: %v", s.Detection.Threshold)
	}
}

func TestApplyFlagsValidates(t *testing.T) {
	cmd := newRootCmd()
	if err := cmd.ParseFlags([]string{"--threshold", "2"}); err != nil {
		t.Fatal(err)
	}
	s := config.Default()
	if err := applyFlags(cmd, &s); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestRootRequiresOneArg(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs(nil)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error without input")
	}
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embedscan.toml")
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"config", "init", path})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out.String(), path) {
		t.Fatalf("unexpected output %q", out.String())
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "[detection]") {
		t.Fatalf("sample config missing sections: %s", b)
	}
}

func TestRunRejectsMissingAPIKey(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Chdir(t.TempDir())
	input := filepath.Join(t.TempDir(), "in.mp4")
	if err := os.WriteFile(input, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{input})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "OPENROUTER_API_KEY") {
		t.Fatalf("expected missing key error, got %v", err)
	}
}
