package config

import (
	"github.com/forPelevin/embedscan/internal/types"
	"github.com/forPelevin/embedscan/internal/workpool"
)

const (
	defaultIntervalSeconds    = 3
	defaultFrameJump          = 3
	defaultThreshold          = 0.35
	defaultMaxGapSeconds      = 60
	defaultMinSegmentSeconds  = 5
	defaultPrerollFrames      = 1
	defaultFFmpeg             = "ffmpeg"
	defaultFFprobe            = "ffprobe"
	defaultTesseract          = "tesseract"
	defaultTesseractLang      = "eng"
	defaultRecognitionTimeout = 20
	defaultTitleRPS           = 2
	defaultOutputDir          = "out"
	defaultCacheDir           = ".cache"
	defaultLogLevel           = "info"
	defaultLogFormat          = "console"

	// IDRegionName and TitleRegionName name the crop directories on disk.
	IDRegionName    = "url"
	TitleRegionName = "title"

	defaultIDCrop    = "crop=in_w*0.4:in_h*0.06:in_w*0.055:in_h*0.03"
	defaultTitleCrop = "crop=in_w*0.4:in_h*0.0475:in_w*0.03:in_h*0.875"
)

// Default returns a Config populated with the built-in defaults.
func Default() Config {
	return Config{
		Detection: Detection{
			IntervalSeconds:   defaultIntervalSeconds,
			FrameJump:         defaultFrameJump,
			Threshold:         defaultThreshold,
			MaxGapSeconds:     defaultMaxGapSeconds,
			MinSegmentSeconds: defaultMinSegmentSeconds,
			PrerollFrames:     defaultPrerollFrames,
			Workers:           workpool.DefaultWorkers(),
		},
		Regions: Regions{
			ID:    types.Region{Name: IDRegionName, Crop: defaultIDCrop},
			Title: types.Region{Name: TitleRegionName, Crop: defaultTitleCrop},
		},
		Tools: Tools{
			FFmpeg:                    defaultFFmpeg,
			FFprobe:                   defaultFFprobe,
			Tesseract:                 defaultTesseract,
			TesseractLang:             defaultTesseractLang,
			RecognitionTimeoutSeconds: defaultRecognitionTimeout,
		},
		Title: Title{
			RequestsPerSecond: defaultTitleRPS,
		},
		Output: Output{
			Dir:      defaultOutputDir,
			CacheDir: defaultCacheDir,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
