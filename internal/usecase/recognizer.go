package usecase

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// recognizer reads identifier-region text through the persisted store when
// one is configured. It is called from the bulk workers and from the scan.
type recognizer struct {
	deps     Deps
	in       Input
	region   string
	videoKey string
	logger   *slog.Logger
	storeHit atomic.Int64
}

func (r *recognizer) recognize(ctx context.Context, idx int) (string, error) {
	key := StoreKey(r.videoKey, r.region, idx)
	if r.deps.Store != nil && !r.in.RefreshOCR {
		text, ok, err := r.deps.Store.Get(ctx, key)
		if err != nil {
			r.logger.Warn("recognition store read failed", "key", key, "error", err)
		} else if ok {
			r.storeHit.Add(1)
			return text, nil
		}
	}

	path := r.deps.Sampler.FramePath(r.in.FramesDir, r.region, idx)
	text, err := r.deps.Recognizer.RecognizeText(ctx, path)
	if err != nil {
		r.logger.Debug("text recognition failed", "frame", idx, "error", err)
		return "", err
	}
	if r.deps.Store != nil {
		if err := r.deps.Store.Put(ctx, key, text); err != nil {
			r.logger.Warn("recognition store write failed", "key", key, "error", err)
		}
	}
	return text, nil
}

func (r *recognizer) hits() int { return int(r.storeHit.Load()) }
