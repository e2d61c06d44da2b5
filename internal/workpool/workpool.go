// Package workpool fans independent tasks out over a bounded set of
// goroutines and gathers their results into a map that is complete before
// the caller sees it.
package workpool

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DefaultWorkers leaves one CPU for the rest of the process.
func DefaultWorkers() int {
	return max(1, runtime.NumCPU()-1)
}

// Map runs fn once per key with at most workers in flight. The first error
// cancels the remaining tasks and is returned; on success every key has an
// entry in the result.
func Map[K comparable, V any](ctx context.Context, workers int, keys []K, fn func(context.Context, K) (V, error)) (map[K]V, error) {
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	out := make(map[K]V, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, k := range keys {
		g.Go(func() error {
			v, err := fn(gctx, k)
			if err != nil {
				return err
			}
			mu.Lock()
			out[k] = v
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
