package segments

import (
	"context"
	"log/slog"
)

// RecognizeFunc returns the recognized text of the identifier region at a
// sample index.
type RecognizeFunc func(ctx context.Context, idx int) (string, error)

// FrameTexts memoizes recognized text per sample index for one run. The
// prefetched map is produced by the bulk phase and is never written; indices
// it lacks are recognized on demand and remembered. Not safe for concurrent
// use: only the sequential scan reads it.
type FrameTexts struct {
	prefetched map[int]string
	memo       map[int]string
	recognize  RecognizeFunc
	frames     int
	calls      int
	logger     *slog.Logger
}

func NewFrameTexts(prefetched map[int]string, recognize RecognizeFunc, frames int, logger *slog.Logger) *FrameTexts {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &FrameTexts{
		prefetched: prefetched,
		memo:       make(map[int]string),
		recognize:  recognize,
		frames:     frames,
		logger:     logger,
	}
}

func (f *FrameTexts) Frames() int { return f.frames }

// Text never fails: a recognition error is remembered as "no text".
func (f *FrameTexts) Text(ctx context.Context, idx int) string {
	if idx < 0 || idx >= f.frames {
		return ""
	}
	if t, ok := f.prefetched[idx]; ok {
		return t
	}
	if t, ok := f.memo[idx]; ok {
		return t
	}
	f.calls++
	t, err := f.recognize(ctx, idx)
	if err != nil {
		f.logger.Debug("recognition failed", "frame", idx, "error", err)
		t = ""
	}
	f.memo[idx] = t
	return t
}

// Calls counts on-demand recognitions.
func (f *FrameTexts) Calls() int { return f.calls }
