package ports

import (
	"context"
	"time"

	"github.com/forPelevin/embedscan/internal/types"
)

// FrameSampler writes one image per (sample index, region) under outDir.
type FrameSampler interface {
	SampleFrames(ctx context.Context, inVideo string, regions []types.Region, interval time.Duration, outDir string) error
	CountFrames(outDir, region string) (int, error)
	FramePath(outDir, region string, idx int) string
	ProbeDuration(ctx context.Context, inVideo string) (time.Duration, error)
}

type ClipCutter interface {
	CutClip(ctx context.Context, inVideo string, start, end time.Duration, outMP4 string) error
}

type TextRecognizer interface {
	RecognizeText(ctx context.Context, imagePath string) (string, error)
}

type TitleResolver interface {
	ResolveTitle(ctx context.Context, imagePath string) (string, error)
}

// RecognitionStore persists recognized text across runs. Keys are opaque to
// the store.
type RecognitionStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, text string) error
}
