package segments

import (
	"context"
	"errors"
	"log/slog"

	"github.com/forPelevin/embedscan/internal/domain/similarity"
	"github.com/forPelevin/embedscan/internal/types"
)

var ErrNoFrames = errors.New("no sampled frames to scan")

type ScanOptions struct {
	// FrameJump is the coarse stride, in samples, for detection and for
	// following a segment forward.
	FrameJump int
	// Preroll is subtracted from a refined start.
	Preroll  int
	Lookback int
	Policy   similarity.Policy
	Logger   *slog.Logger
}

// scanState is either scanning (looking for the next identifier) or
// tracking (following one identifier forward from its refined start).
type scanState interface{ scanState() }

type scanning struct {
	idx int
}

type tracking struct {
	id      string
	title   string
	start   int
	lastHit int
	probe   int
}

func (scanning) scanState() {}
func (tracking) scanState() {}

// Scanner walks sampled frames once, in order. It owns the run's title cache
// and the last_end cursor, so it must not be shared across goroutines.
type Scanner struct {
	texts   *FrameTexts
	titles  *TitleCache
	refiner *BoundaryRefiner
	obs     observer
	opts    ScanOptions
	logger  *slog.Logger
}

func NewScanner(texts *FrameTexts, titles *TitleCache, opts ScanOptions) *Scanner {
	if opts.FrameJump <= 0 {
		opts.FrameJump = 1
	}
	if opts.Preroll < 0 {
		opts.Preroll = 0
	}
	if opts.Lookback <= 0 {
		opts.Lookback = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scanner{
		texts:   texts,
		titles:  titles,
		refiner: NewBoundaryRefiner(texts, titles, opts.Policy, opts.Lookback),
		obs:     observer{texts: texts, titles: titles},
		opts:    opts,
		logger:  logger,
	}
}

// Scan returns raw segments in strictly increasing, non-overlapping order.
func (s *Scanner) Scan(ctx context.Context) ([]types.RawSegment, error) {
	total := s.texts.Frames()
	if total <= 0 {
		return nil, ErrNoFrames
	}

	var (
		out     []types.RawSegment
		lastEnd = -1
		state   scanState = scanning{idx: 0}
	)
	for {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		switch st := state.(type) {
		case scanning:
			if st.idx >= total {
				return out, nil
			}
			if st.idx%50 == 0 {
				s.logger.Debug("scan progress", "frame", st.idx, "total", total)
			}
			o := s.obs.observe(ctx, st.idx, ReadOnly)
			if !o.HasID || st.idx <= lastEnd {
				state = scanning{idx: st.idx + s.opts.FrameJump}
				continue
			}
			title := s.titles.Resolve(ctx, o.ID, st.idx, WriteOnce)
			refined := s.refiner.FindStart(ctx, st.idx, o.ID, lastEnd)
			start := max(lastEnd+1, refined-s.opts.Preroll, 0)
			s.logger.Debug("segment opened", "id", o.ID, "detected", st.idx, "refined", refined, "start", start)
			state = tracking{id: o.ID, title: title, start: start, lastHit: start, probe: start + 1}

		case tracking:
			if st.probe >= total {
				state = s.emit(&out, &lastEnd, st, total-1)
				continue
			}
			if s.sameRun(ctx, st.probe, st.id) {
				st.lastHit = st.probe
				st.probe += s.opts.FrameJump
				state = st
				continue
			}
			state = s.emit(&out, &lastEnd, st, s.fineEnd(ctx, st))
		}
	}
}

// fineEnd walks single samples between the last coarse hit and the first
// coarse miss.
func (s *Scanner) fineEnd(ctx context.Context, st tracking) int {
	end := st.lastHit
	for i := st.lastHit + 1; i < st.probe; i++ {
		if !s.sameRun(ctx, i, st.id) {
			break
		}
		end = i
	}
	return end
}

// sameRun reports whether the sample still shows the tracked embed. Titles
// are read with ReadOnly: a neighbouring embed seen here is not bound.
func (s *Scanner) sameRun(ctx context.Context, idx int, id string) bool {
	o := s.obs.observe(ctx, idx, ReadOnly)
	return o.HasID && s.opts.Policy.SameID(o.ID, id)
}

func (s *Scanner) emit(out *[]types.RawSegment, lastEnd *int, st tracking, end int) scanState {
	end = max(end, st.start)
	seg := types.RawSegment{ID: st.id, StartFrame: st.start, EndFrame: end, Title: st.title}
	*out = append(*out, seg)
	*lastEnd = end
	s.logger.Info("segment detected", "id", seg.ID, "start_frame", seg.StartFrame, "end_frame", seg.EndFrame, "title", seg.Title)
	return scanning{idx: end + 1}
}
