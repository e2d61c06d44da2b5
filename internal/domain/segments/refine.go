package segments

import (
	"context"
	"math"
	"time"

	"github.com/forPelevin/embedscan/internal/domain/embedid"
	"github.com/forPelevin/embedscan/internal/domain/similarity"
)

type observation struct {
	Text  string
	ID    string
	HasID bool
	Title string
}

// observer couples frame text with the title cache. Every call states its
// write gate so the searches below can never bind a title.
type observer struct {
	texts  *FrameTexts
	titles *TitleCache
}

func (o observer) observe(ctx context.Context, idx int, gate WriteGate) observation {
	text := o.texts.Text(ctx, idx)
	id, ok := embedid.Extract(text)
	obs := observation{Text: text, ID: id, HasID: ok}
	if ok {
		obs.Title = o.titles.Resolve(ctx, id, idx, gate)
	}
	return obs
}

// Lookback is the widest backwards search, in samples, for a segment start.
func Lookback(maxGap, interval time.Duration) int {
	if interval <= 0 {
		return 1
	}
	return int(math.Ceil(maxGap.Seconds()/interval.Seconds())) + 1
}

// BoundaryRefiner narrows a coarse detection to the earliest consistent
// sample after the previous segment.
type BoundaryRefiner struct {
	obs      observer
	policy   similarity.Policy
	lookback int
}

func NewBoundaryRefiner(texts *FrameTexts, titles *TitleCache, policy similarity.Policy, lookback int) *BoundaryRefiner {
	return &BoundaryRefiner{obs: observer{texts: texts, titles: titles}, policy: policy, lookback: lookback}
}

// FindStart binary-searches [max(lastEnd+1, idx-lookback), idx] for the
// earliest sample whose identifier matches id or whose raw text matches the
// text at idx. The result is never below lastEnd+1.
func (r *BoundaryRefiner) FindStart(ctx context.Context, idx int, id string, lastEnd int) int {
	floor := max(lastEnd+1, 0)
	if idx < floor {
		return floor
	}
	lo := max(floor, idx-r.lookback)
	hi := idx
	res := idx

	ref := r.obs.observe(ctx, idx, ReadOnly).Text
	for lo <= hi {
		mid := lo + (hi-lo)/2
		o := r.obs.observe(ctx, mid, ReadOnly)
		if (o.HasID && r.policy.SameID(o.ID, id)) || r.policy.Match(o.Text, ref) {
			res = mid
			hi = mid - 1
		} else {
			lo = mid + 1
		}
	}
	return res
}
