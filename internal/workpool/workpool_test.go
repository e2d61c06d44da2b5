package workpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestMap_CollectsEveryKey(t *testing.T) {
	keys := make([]int, 100)
	for i := range keys {
		keys[i] = i
	}
	got, err := Map(context.Background(), 4, keys, func(_ context.Context, k int) (int, error) {
		return k * k, nil
	})
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if len(got) != len(keys) {
		t.Fatalf("expected %d results, got %d", len(keys), len(got))
	}
	for _, k := range keys {
		if got[k] != k*k {
			t.Fatalf("result[%d] = %d, want %d", k, got[k], k*k)
		}
	}
}

func TestMap_BoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	keys := make([]int, 50)
	for i := range keys {
		keys[i] = i
	}
	_, err := Map(context.Background(), 3, keys, func(_ context.Context, k int) (struct{}, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		inFlight.Add(-1)
		return struct{}{}, nil
	})
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if peak.Load() > 3 {
		t.Fatalf("peak concurrency %d exceeds limit 3", peak.Load())
	}
}

func TestMap_ReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Map(context.Background(), 2, []string{"a", "b", "c"}, func(_ context.Context, k string) (int, error) {
		if k == "b" {
			return 0, boom
		}
		return 1, nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestMap_EmptyKeys(t *testing.T) {
	got, err := Map(context.Background(), 0, nil, func(context.Context, int) (int, error) { return 0, nil })
	if err != nil || len(got) != 0 {
		t.Fatalf("got %v, %v", got, err)
	}
}

func TestDefaultWorkers(t *testing.T) {
	if DefaultWorkers() < 1 {
		t.Fatalf("DefaultWorkers() = %d", DefaultWorkers())
	}
}
