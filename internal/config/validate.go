package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable. The API key is checked
// separately by RequireTitleResolver so that offline commands still load.
func (c *Config) Validate() error {
	if err := c.validateDetection(); err != nil {
		return err
	}
	if err := c.validateRegions(); err != nil {
		return err
	}
	if c.Tools.RecognitionTimeoutSeconds <= 0 {
		return errors.New("tools.recognition_timeout_seconds must be positive")
	}
	if c.Title.RequestsPerSecond < 0 {
		return errors.New("title.requests_per_second must not be negative")
	}
	if c.Output.Dir == "" {
		return errors.New("output.dir is required")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateDetection() error {
	d := c.Detection
	if d.IntervalSeconds <= 0 {
		return errors.New("detection.interval_seconds must be positive")
	}
	if d.FrameJump < 1 {
		return errors.New("detection.frame_jump must be at least 1")
	}
	if d.Threshold <= 0 || d.Threshold > 1 {
		return fmt.Errorf("detection.threshold must be in (0, 1], got %v", d.Threshold)
	}
	if d.MaxGapSeconds < 0 {
		return errors.New("detection.max_gap_seconds must not be negative")
	}
	if d.MinSegmentSeconds < 0 {
		return errors.New("detection.min_segment_seconds must not be negative")
	}
	if d.PrerollFrames < 0 {
		return errors.New("detection.preroll_frames must not be negative")
	}
	if d.Workers < 1 {
		return errors.New("detection.workers must be at least 1")
	}
	return nil
}

func (c *Config) validateRegions() error {
	if c.Regions.ID.Crop == "" || c.Regions.Title.Crop == "" {
		return errors.New("regions.id.crop and regions.title.crop are required")
	}
	seen := make(map[string]struct{})
	for _, r := range c.RegionList() {
		if r.Crop == "" {
			return fmt.Errorf("region %q has no crop", r.Name)
		}
		if r.Name == "" || strings.ContainsAny(r.Name, `/\`) || r.Name == "." || r.Name == ".." {
			return fmt.Errorf("region name %q is not a valid directory name", r.Name)
		}
		if _, dup := seen[r.Name]; dup {
			return fmt.Errorf("regions must have distinct names, %q is used twice", r.Name)
		}
		seen[r.Name] = struct{}{}
	}
	return nil
}

// RequireTitleResolver checks that a detection run has credentials for the
// title resolver. The endpoint itself is checked by the pipeline.
func (c *Config) RequireTitleResolver() error {
	if c.Title.APIKey == "" {
		return errors.New("missing OPENROUTER_API_KEY (set it in the environment, .env, or title.api_key)")
	}
	return nil
}
