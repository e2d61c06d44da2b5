package catalog

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/forPelevin/embedscan/internal/types"
)

func sampleCatalog() types.Catalog {
	return Build("stream.mp4", "run-1", 3*time.Second, []types.Segment{
		{ID: "abc12345678", Start: 30 * time.Second, End: 120 * time.Second, Title: "Cat plays piano"},
		{ID: "xyz98765432", Start: 3690 * time.Second, End: 3700500 * time.Millisecond, Title: `Top 10: "goals"`},
	})
}

func TestBuild(t *testing.T) {
	c := sampleCatalog()
	if c.IntervalSeconds != 3 || c.RunID != "run-1" || c.Input != "stream.mp4" {
		t.Fatalf("unexpected header: %+v", c)
	}
	if len(c.Segments) != 2 || c.Segments[0].StartSec != 30 || c.Segments[1].EndSec != 3700.5 {
		t.Fatalf("unexpected entries: %+v", c.Segments)
	}
}

func TestBuild_EmptyIsNotNil(t *testing.T) {
	c := Build("in", "r", time.Second, nil)
	raw, _ := json.Marshal(c)
	if !strings.Contains(string(raw), `"segments":[]`) {
		t.Fatalf("expected empty array, got %s", raw)
	}
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "segments.csv")
	if err := WriteCSV(path, sampleCatalog()); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{
		CSVHeader,
		{"abc12345678", "30", "120", "Cat plays piano"},
		{"xyz98765432", "3690", "3700.5", `Top 10: "goals"`},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("got %v want %v", rows, want)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("expected no temp files left, got %d entries", len(entries))
	}
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")
	in := sampleCatalog()
	if err := WriteJSON(path, in); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got types.Catalog
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, in) {
		t.Fatalf("got %+v want %+v", got, in)
	}
}

func TestRenderTable(t *testing.T) {
	out := RenderTable(sampleCatalog())
	for _, want := range []string{"abc12345678", "0:30", "2:00", "1:30", "1:01:30", "Cat plays piano"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in table:\n%s", want, out)
		}
	}
	if got := RenderTable(types.Catalog{}); !strings.Contains(got, "No segments") {
		t.Fatalf("unexpected empty rendering %q", got)
	}
}

func TestClipNamer(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "Reacts to Old.mp4"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	n := NewClipNamer(dir, "Reacts to ")

	cases := []struct {
		title, id, want string
	}{
		{"Cat: plays/piano?", "id1", "Reacts to Cat playspiano.mp4"},
		{"Cat: plays/piano?", "id1", "Reacts to Cat playspiano Part 2.mp4"},
		{"Cat: plays/piano?", "id1", "Reacts to Cat playspiano Part 3.mp4"},
		{"Old", "id2", "Reacts to Old Part 2.mp4"},
		{"", "abc12345678", "Reacts to abc12345678.mp4"},
	}
	for _, tc := range cases {
		if got := filepath.Base(n.Next(tc.title, tc.id)); got != tc.want {
			t.Fatalf("Next(%q) = %q want %q", tc.title, got, tc.want)
		}
	}
}

func TestClipNamer_Truncates(t *testing.T) {
	n := NewClipNamer(t.TempDir(), "")
	got := filepath.Base(n.Next(strings.Repeat("é", 200), "id"))
	if r := []rune(strings.TrimSuffix(got, ".mp4")); len(r) != maxTitleRunes {
		t.Fatalf("expected %d runes, got %d", maxTitleRunes, len(r))
	}
}
