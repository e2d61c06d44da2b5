package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/forPelevin/embedscan/internal/types"
)

//go:embed sample_config.toml
var sampleConfig string

// Detection holds the scanning and merging knobs.
type Detection struct {
	IntervalSeconds   float64 `toml:"interval_seconds"`
	FrameJump         int     `toml:"frame_jump"`
	Threshold         float64 `toml:"threshold"`
	MaxGapSeconds     float64 `toml:"max_gap_seconds"`
	MinSegmentSeconds float64 `toml:"min_segment_seconds"`
	PrerollFrames     int     `toml:"preroll_frames"`
	Workers           int     `toml:"workers"`
	PrefetchAll       bool    `toml:"prefetch_all"`
}

// Regions are the crops every sampled frame is cut into. Candidates are
// extra title crops, tried in order when the title crop reads nothing.
type Regions struct {
	ID         types.Region   `toml:"id"`
	Title      types.Region   `toml:"title"`
	Candidates []types.Region `toml:"candidates"`
}

type Tools struct {
	FFmpeg                    string `toml:"ffmpeg"`
	FFprobe                   string `toml:"ffprobe"`
	Tesseract                 string `toml:"tesseract"`
	TesseractLang             string `toml:"tesseract_lang"`
	RecognitionTimeoutSeconds int    `toml:"recognition_timeout_seconds"`
}

// Title configures the OpenRouter title resolver. APIKey, BaseURL, Model and
// AllowedHosts are overridden by the OPENROUTER_* environment variables.
type Title struct {
	APIKey            string   `toml:"api_key"`
	BaseURL           string   `toml:"base_url"`
	Model             string   `toml:"model"`
	AllowedHosts      []string `toml:"allowed_hosts"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
}

type Output struct {
	Dir        string `toml:"dir"`
	CacheDir   string `toml:"cache_dir"`
	Cut        bool   `toml:"cut"`
	ClipPrefix string `toml:"clip_prefix"`
	RefreshOCR bool   `toml:"refresh_ocr"`
}

type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type Config struct {
	Detection Detection `toml:"detection"`
	Regions   Regions   `toml:"regions"`
	Tools     Tools     `toml:"tools"`
	Title     Title     `toml:"title"`
	Output    Output    `toml:"output"`
	Logging   Logging   `toml:"logging"`
}

func (c *Config) Interval() time.Duration { return seconds(c.Detection.IntervalSeconds) }
func (c *Config) MaxGap() time.Duration   { return seconds(c.Detection.MaxGapSeconds) }
func (c *Config) MinSegment() time.Duration {
	return seconds(c.Detection.MinSegmentSeconds)
}
func (c *Config) RecognitionTimeout() time.Duration {
	return time.Duration(c.Tools.RecognitionTimeoutSeconds) * time.Second
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

// RegionList returns the regions in sampling order.
func (c *Config) RegionList() []types.Region {
	out := []types.Region{c.Regions.ID, c.Regions.Title}
	return append(out, c.Regions.Candidates...)
}

// Load locates, parses, normalizes and validates a configuration file. With
// an empty path it looks for ./embedscan.toml, then the user config path.
// A missing file yields the defaults.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

// DefaultConfigPath returns the per-user configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/embedscan/config.toml")
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "", false, fmt.Errorf("config file %s does not exist", expanded)
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	projectPath, err := filepath.Abs("embedscan.toml")
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	userPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(userPath); err == nil && !info.IsDir() {
		return userPath, true, nil
	}
	return userPath, false, nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// CreateSample writes the annotated sample configuration to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
