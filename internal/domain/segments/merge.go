package segments

import (
	"sort"
	"time"

	"github.com/forPelevin/embedscan/internal/domain/similarity"
	"github.com/forPelevin/embedscan/internal/types"
)

type MergeOptions struct {
	MaxGap      time.Duration
	MinDuration time.Duration
	Policy      similarity.Policy
}

// Merge joins segments separated by at most MaxGap whose identifiers or
// titles agree, then drops anything shorter than MinDuration. On a merge the
// longer identifier and the longer title are kept. A fold that changes the
// identifier or title is checked again against the segment before it, so no
// two neighbours in the result are still mergeable.
func Merge(raw []types.Segment, opts MergeOptions) []types.Segment {
	if len(raw) == 0 {
		return nil
	}
	segs := make([]types.Segment, len(raw))
	copy(segs, raw)
	sort.SliceStable(segs, func(i, j int) bool { return segs[i].Start < segs[j].Start })

	merged := make([]types.Segment, 0, len(segs))
	for _, next := range segs {
		merged = append(merged, next)
		for n := len(merged); n > 1 && mergeable(merged[n-2], merged[n-1], opts); n = len(merged) {
			merged[n-2] = fold(merged[n-2], merged[n-1])
			merged = merged[:n-1]
		}
	}

	out := merged[:0]
	for _, s := range merged {
		if s.Duration() >= opts.MinDuration {
			out = append(out, s)
		}
	}
	return out
}

func mergeable(prev, next types.Segment, opts MergeOptions) bool {
	if next.Start-prev.End > opts.MaxGap {
		return false
	}
	return opts.Policy.SameID(prev.ID, next.ID) || opts.Policy.SimilarTitle(prev.Title, next.Title)
}

func fold(into, from types.Segment) types.Segment {
	into.End = max(into.End, from.End)
	if len(from.ID) > len(into.ID) {
		into.ID = from.ID
	}
	if len(from.Title) > len(into.Title) {
		into.Title = from.Title
	}
	return into
}
