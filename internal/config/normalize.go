package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeRegions()
	c.normalizeTools()
	c.normalizeTitle()
	c.normalizeLogging()
	c.Output.Dir = strings.TrimSpace(c.Output.Dir)
	c.Output.CacheDir = strings.TrimSpace(c.Output.CacheDir)
	if c.Output.CacheDir == "" {
		c.Output.CacheDir = defaultCacheDir
	}
	return nil
}

func (c *Config) normalizeRegions() {
	c.Regions.ID.Name = strings.TrimSpace(c.Regions.ID.Name)
	if c.Regions.ID.Name == "" {
		c.Regions.ID.Name = IDRegionName
	}
	c.Regions.Title.Name = strings.TrimSpace(c.Regions.Title.Name)
	if c.Regions.Title.Name == "" {
		c.Regions.Title.Name = TitleRegionName
	}
	c.Regions.ID.Crop = strings.TrimSpace(c.Regions.ID.Crop)
	c.Regions.Title.Crop = strings.TrimSpace(c.Regions.Title.Crop)
	for i := range c.Regions.Candidates {
		r := &c.Regions.Candidates[i]
		r.Name = strings.TrimSpace(r.Name)
		if r.Name == "" {
			r.Name = fmt.Sprintf("%s_%d", TitleRegionName, i+2)
		}
		r.Crop = strings.TrimSpace(r.Crop)
	}
}

func (c *Config) normalizeTools() {
	trimOr := func(v *string, def string) {
		*v = strings.TrimSpace(*v)
		if *v == "" {
			*v = def
		}
	}
	trimOr(&c.Tools.FFmpeg, defaultFFmpeg)
	trimOr(&c.Tools.FFprobe, defaultFFprobe)
	trimOr(&c.Tools.Tesseract, defaultTesseract)
	trimOr(&c.Tools.TesseractLang, defaultTesseractLang)
}

// normalizeTitle lets the OPENROUTER_* environment win over the file.
func (c *Config) normalizeTitle() {
	if v, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok && strings.TrimSpace(v) != "" {
		c.Title.APIKey = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv("OPENROUTER_BASE_URL"); ok && strings.TrimSpace(v) != "" {
		c.Title.BaseURL = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv("OPENROUTER_MODEL"); ok && strings.TrimSpace(v) != "" {
		c.Title.Model = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv("OPENROUTER_ALLOWED_HOSTS"); ok {
		if hosts := splitList(v); len(hosts) > 0 {
			c.Title.AllowedHosts = hosts
		}
	}
	c.Title.APIKey = strings.TrimSpace(c.Title.APIKey)
}

// splitList splits a comma separated value, dropping empty parts.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console", "text":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
