package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/forPelevin/embedscan/internal/catalog"
	"github.com/forPelevin/embedscan/internal/domain/segments"
	"github.com/forPelevin/embedscan/internal/domain/similarity"
	"github.com/forPelevin/embedscan/internal/ports"
	"github.com/forPelevin/embedscan/internal/types"
	"github.com/forPelevin/embedscan/internal/workpool"
)

// ErrSampling marks a run that could not produce any frames to scan.
var ErrSampling = errors.New("frame sampling failed")

const (
	CSVName      = "segments.csv"
	ManifestName = "manifest.json"
	ClipsDir     = "clips"
)

type Deps struct {
	Sampler    ports.FrameSampler
	Recognizer ports.TextRecognizer
	Titles     ports.TitleResolver
	// Store and Cutter are optional.
	Store  ports.RecognitionStore
	Cutter ports.ClipCutter
	Logger *slog.Logger
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase {
	if d.Logger == nil {
		d.Logger = slog.New(slog.DiscardHandler)
	}
	return Usecase{d: d}
}

// Progress receives bulk recognition progress.
type Progress interface {
	Begin(total int)
	Step()
	Done()
}

type Input struct {
	InputVideo string
	RunID      string
	// FramesDir holds one subdirectory of sampled images per region.
	FramesDir string
	OutDir    string
	// VideoKey scopes persisted recognitions to one input video.
	VideoKey string

	IDRegion    types.Region
	TitleRegion types.Region
	// TitleCandidates are read in order when TitleRegion yields no title.
	TitleCandidates []types.Region

	Interval   time.Duration
	FrameJump  int
	Preroll    int
	Threshold  float64
	MaxGap     time.Duration
	MinSegment time.Duration
	Workers    int

	PrefetchAll bool
	RefreshOCR  bool
	Cut         bool
	ClipPrefix  string

	Progress Progress
}

type Stats struct {
	Frames           int
	Prefetched       int
	StoreHits        int
	OnDemandOCR      int
	TitleLookups     int
	RawSegments      int
	MergedSegments   int
	SampleDuration   time.Duration
	PrefetchDuration time.Duration
	ScanDuration     time.Duration
}

type Result struct {
	Raw      []types.RawSegment
	Segments []types.Segment
	Catalog  types.Catalog
	Stats    Stats
}

func (u Usecase) Run(ctx context.Context, in Input) (Result, error) {
	log := u.d.Logger
	var stats Stats

	began := time.Now()
	regions := append([]types.Region{in.IDRegion}, in.titleRegions()...)
	if err := u.d.Sampler.SampleFrames(ctx, in.InputVideo, regions, in.Interval, in.FramesDir); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrSampling, err)
	}
	n, err := u.d.Sampler.CountFrames(in.FramesDir, in.IDRegion.Name)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrSampling, err)
	}
	if n == 0 {
		return Result{}, fmt.Errorf("%w: %w", ErrSampling, segments.ErrNoFrames)
	}
	stats.Frames = n
	stats.SampleDuration = time.Since(began)
	log.Info("frames sampled", "frames", n, "interval", in.Interval, "elapsed", stats.SampleDuration.Round(time.Millisecond))

	rec := &recognizer{
		deps:     u.d,
		in:       in,
		region:   in.IDRegion.Name,
		logger:   log,
		videoKey: in.VideoKey,
	}

	prefetchStarted := time.Now()
	prefetched, err := u.prefetch(ctx, rec, in, n)
	if err != nil {
		return Result{}, err
	}
	stats.Prefetched = len(prefetched)
	stats.PrefetchDuration = time.Since(prefetchStarted)

	scanStarted := time.Now()
	texts := segments.NewFrameTexts(prefetched, rec.recognize, n, log)
	titles := segments.NewTitleCache(func(ctx context.Context, idx int) (string, error) {
		return u.resolveTitle(ctx, in, idx)
	}, log)

	policy := similarity.Policy{Threshold: in.Threshold}
	scanner := segments.NewScanner(texts, titles, segments.ScanOptions{
		FrameJump: in.FrameJump,
		Preroll:   in.Preroll,
		Lookback:  segments.Lookback(in.MaxGap, in.Interval),
		Policy:    policy,
		Logger:    log,
	})
	raw, err := scanner.Scan(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("scan: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	spans := make([]types.Segment, 0, len(raw))
	for _, r := range raw {
		spans = append(spans, r.Span(in.Interval))
	}
	merged := segments.Merge(spans, segments.MergeOptions{
		MaxGap:      in.MaxGap,
		MinDuration: in.MinSegment,
		Policy:      policy,
	})
	stats.ScanDuration = time.Since(scanStarted)
	stats.OnDemandOCR = texts.Calls()
	stats.TitleLookups = titles.Calls()
	stats.StoreHits = rec.hits()
	stats.RawSegments = len(raw)
	stats.MergedSegments = len(merged)

	cat := catalog.Build(in.InputVideo, in.RunID, in.Interval, merged)
	if in.Cut {
		if err := u.cut(ctx, in, &cat); err != nil {
			return Result{}, err
		}
	}
	if err := catalog.WriteCSV(filepath.Join(in.OutDir, CSVName), cat); err != nil {
		return Result{}, err
	}
	if err := catalog.WriteJSON(filepath.Join(in.OutDir, ManifestName), cat); err != nil {
		return Result{}, err
	}

	log.Info("scan complete",
		"raw_segments", stats.RawSegments,
		"segments", stats.MergedSegments,
		"prefetched", stats.Prefetched,
		"store_hits", stats.StoreHits,
		"ocr_on_demand", stats.OnDemandOCR,
		"title_lookups", stats.TitleLookups,
	)
	return Result{Raw: raw, Segments: merged, Catalog: cat, Stats: stats}, nil
}

func (in Input) titleRegions() []types.Region {
	return append([]types.Region{in.TitleRegion}, in.TitleCandidates...)
}

// resolveTitle reads the title crop of frame idx, then each candidate crop
// while the reading is empty or the no-title sentinel. It fails only when no
// crop could be read at all.
func (u Usecase) resolveTitle(ctx context.Context, in Input, idx int) (string, error) {
	var (
		best    string
		read    bool
		lastErr error
	)
	for _, r := range in.titleRegions() {
		title, err := u.d.Titles.ResolveTitle(ctx, u.d.Sampler.FramePath(in.FramesDir, r.Name, idx))
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			u.d.Logger.Debug("title crop unreadable", "region", r.Name, "frame", idx, "error", err)
			lastErr = err
			continue
		}
		read = true
		title = strings.TrimSpace(title)
		if title != "" && title != similarity.NoTitle {
			if r.Name != in.TitleRegion.Name {
				u.d.Logger.Debug("title taken from candidate crop", "region", r.Name, "frame", idx)
			}
			return title, nil
		}
		if title != "" {
			best = title
		}
	}
	if !read {
		return "", lastErr
	}
	return best, nil
}

// prefetch recognizes the coarse-stride frames, or every frame with
// PrefetchAll, in parallel. The returned map is complete before the scan
// starts and is only read afterwards.
func (u Usecase) prefetch(ctx context.Context, rec *recognizer, in Input, n int) (map[int]string, error) {
	step := max(in.FrameJump, 1)
	if in.PrefetchAll {
		step = 1
	}
	indices := make([]int, 0, n/step+1)
	for i := 0; i < n; i += step {
		indices = append(indices, i)
	}

	if in.Progress != nil {
		in.Progress.Begin(len(indices))
		defer in.Progress.Done()
	}
	out, err := workpool.Map(ctx, in.Workers, indices, func(ctx context.Context, idx int) (string, error) {
		t, err := rec.recognize(ctx, idx)
		if in.Progress != nil {
			in.Progress.Step()
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			// Recognition failure is an absent signal, not a run failure.
			return "", nil
		}
		return t, nil
	})
	if err != nil {
		return nil, fmt.Errorf("bulk recognition: %w", err)
	}
	return out, nil
}

func (u Usecase) cut(ctx context.Context, in Input, cat *types.Catalog) error {
	if u.d.Cutter == nil {
		return errors.New("clip cutting requested without a cutter")
	}
	namer := catalog.NewClipNamer(filepath.Join(in.OutDir, ClipsDir), in.ClipPrefix)
	for i := range cat.Segments {
		e := &cat.Segments[i]
		out := namer.Next(e.Title, e.ID)
		start := time.Duration(e.StartSec * float64(time.Second))
		end := time.Duration(e.EndSec * float64(time.Second))
		u.d.Logger.Info("cutting clip", "n", i+1, "of", len(cat.Segments), "id", e.ID, "duration", end-start, "file", filepath.Base(out))
		if err := u.d.Cutter.CutClip(ctx, in.InputVideo, start, end, out); err != nil {
			return fmt.Errorf("cut clip %s: %w", e.ID, err)
		}
		e.File = filepath.ToSlash(filepath.Join(ClipsDir, filepath.Base(out)))
	}
	return nil
}

// StoreKey names one recognized frame in the persisted store.
func StoreKey(videoKey, region string, idx int) string {
	return videoKey + "/" + region + "/" + strconv.Itoa(idx)
}
