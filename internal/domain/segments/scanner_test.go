package segments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/forPelevin/embedscan/internal/domain/similarity"
	"github.com/forPelevin/embedscan/internal/types"
)

const testInterval = 3 * time.Second

// fakeVideo serves recognized text per sample index and records every
// recognizer and resolver call.
type fakeVideo struct {
	text        map[int]string
	titles      map[int]string
	recognized  map[int]int
	titleFrames []int
}

func newFakeVideo() *fakeVideo {
	return &fakeVideo{text: map[int]string{}, titles: map[int]string{}, recognized: map[int]int{}}
}

func (f *fakeVideo) show(from, to int, text, title string) {
	for i := from; i <= to; i++ {
		f.text[i] = text
		f.titles[i] = title
	}
}

func (f *fakeVideo) recognize(_ context.Context, idx int) (string, error) {
	f.recognized[idx]++
	return f.text[idx], nil
}

func (f *fakeVideo) resolve(_ context.Context, idx int) (string, error) {
	f.titleFrames = append(f.titleFrames, idx)
	return f.titles[idx], nil
}

func newTestScanner(v *fakeVideo, frames int, opts ScanOptions) (*Scanner, *FrameTexts, *TitleCache) {
	texts := NewFrameTexts(nil, v.recognize, frames, nil)
	titles := NewTitleCache(v.resolve, nil)
	if opts.FrameJump == 0 {
		opts.FrameJump = 3
	}
	if opts.Lookback == 0 {
		opts.Lookback = Lookback(60*time.Second, testInterval)
	}
	if opts.Policy.Threshold == 0 {
		opts.Policy = similarity.Default()
	}
	return NewScanner(texts, titles, opts), texts, titles
}

func TestScan_SteadyEmbed(t *testing.T) {
	v := newFakeVideo()
	v.show(10, 40, "youtube.com/watch?v=abc12345678", "Cat plays piano")

	s, _, _ := newTestScanner(v, 60, ScanOptions{Preroll: 0})
	raw, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	spans := make([]types.Segment, 0, len(raw))
	for _, r := range raw {
		spans = append(spans, r.Span(testInterval))
	}
	merged := Merge(spans, MergeOptions{MaxGap: 60 * time.Second, MinDuration: 5 * time.Second, Policy: similarity.Default()})
	if len(merged) != 1 {
		t.Fatalf("expected 1 merged segment, got %d: %+v", len(merged), merged)
	}
	got := merged[0]
	want := types.Segment{ID: "abc12345678", Start: 10 * testInterval, End: 40 * testInterval, Title: "Cat plays piano"}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestScan_PrerollLeadsRefinedStart(t *testing.T) {
	v := newFakeVideo()
	v.show(10, 40, "youtube.com/watch?v=abc12345678", "Cat plays piano")

	s, _, _ := newTestScanner(v, 60, ScanOptions{Preroll: 1})
	raw, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(raw) != 1 {
		t.Fatalf("expected 1 raw segment, got %+v", raw)
	}
	if raw[0].StartFrame != 9 || raw[0].EndFrame != 40 {
		t.Fatalf("got frames %d-%d, want 9-40", raw[0].StartFrame, raw[0].EndFrame)
	}
}

func TestScan_EmbedRunsToEndOfVideo(t *testing.T) {
	v := newFakeVideo()
	v.show(20, 29, "abc12345678", "Tail")

	s, _, _ := newTestScanner(v, 30, ScanOptions{})
	raw, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(raw) != 1 || raw[0].StartFrame != 20 || raw[0].EndFrame != 29 {
		t.Fatalf("unexpected segments: %+v", raw)
	}
}

func TestScan_TitleResolvedOncePerIdentifier(t *testing.T) {
	v := newFakeVideo()
	// Same embed shown twice with a long gap in between.
	v.show(5, 15, "abc12345678", "First")
	v.show(60, 70, "abc12345678", "Second")

	s, _, titles := newTestScanner(v, 90, ScanOptions{})
	raw, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(raw) != 2 {
		t.Fatalf("expected 2 raw segments, got %+v", raw)
	}
	if titles.Calls() != 1 || len(v.titleFrames) != 1 {
		t.Fatalf("expected one title resolution, got %d (%v)", titles.Calls(), v.titleFrames)
	}
	for _, r := range raw {
		if r.Title != "First" {
			t.Fatalf("expected cached title on re-encounter, got %q", r.Title)
		}
	}
}

func TestScan_SegmentsIncreaseAndNeverOverlap(t *testing.T) {
	v := newFakeVideo()
	v.show(3, 12, "abc12345678", "A")
	v.show(13, 25, "ZZZZZZZZZZZ", "B")
	v.show(40, 41, "qwertyuiopa", "C")
	v.show(42, 80, "abc12345678", "A")

	s, _, _ := newTestScanner(v, 100, ScanOptions{Preroll: 1})
	raw, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(raw) < 3 {
		t.Fatalf("expected at least 3 raw segments, got %+v", raw)
	}
	for i, r := range raw {
		if r.StartFrame > r.EndFrame {
			t.Fatalf("segment %d inverted: %+v", i, r)
		}
		if i == 0 {
			continue
		}
		prev := raw[i-1]
		if r.StartFrame <= prev.StartFrame {
			t.Fatalf("starts not strictly increasing: %+v then %+v", prev, r)
		}
		if r.StartFrame <= prev.EndFrame {
			t.Fatalf("overlap: %+v then %+v", prev, r)
		}
	}
}

func TestScan_BoundarySearchDoesNotBindNeighbourTitle(t *testing.T) {
	v := newFakeVideo()
	// A different embed flashes up between coarse samples, inside the
	// backwards search window of the next detection.
	v.show(4, 5, "ZZZZZZZZZZZ", "Wrong title")
	v.show(7, 20, "abc12345678", "Right title")

	s, _, titles := newTestScanner(v, 30, ScanOptions{Preroll: 1})
	raw, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if v.recognized[4]+v.recognized[5] == 0 {
		t.Fatalf("fixture broken: search never looked at the neighbouring embed")
	}
	if _, ok := titles.Lookup("ZZZZZZZZZZZ"); ok {
		t.Fatalf("neighbour identifier was bound in the title cache")
	}
	for _, f := range v.titleFrames {
		if f == 4 || f == 5 {
			t.Fatalf("title resolver called for neighbour frame %d", f)
		}
	}
	if len(raw) != 1 || raw[0].ID != "abc12345678" || raw[0].Title != "Right title" {
		t.Fatalf("unexpected segments: %+v", raw)
	}
	if raw[0].StartFrame != 6 || raw[0].EndFrame != 20 {
		t.Fatalf("got frames %d-%d, want 6-20", raw[0].StartFrame, raw[0].EndFrame)
	}
}

func TestScan_RecognitionFailureIsNoSignal(t *testing.T) {
	v := newFakeVideo()
	v.show(10, 30, "abc12345678", "T")
	failing := func(ctx context.Context, idx int) (string, error) {
		if idx == 12 {
			return "", errors.New("ocr crashed")
		}
		return v.recognize(ctx, idx)
	}
	texts := NewFrameTexts(nil, failing, 40, nil)
	titles := NewTitleCache(v.resolve, nil)
	s := NewScanner(texts, titles, ScanOptions{FrameJump: 3, Lookback: 21, Policy: similarity.Default()})

	raw, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(raw) == 0 {
		t.Fatalf("expected detections despite a failed frame")
	}
}

func TestScan_EmptyTitleOnResolverFailure(t *testing.T) {
	v := newFakeVideo()
	v.show(0, 20, "abc12345678", "")
	texts := NewFrameTexts(nil, v.recognize, 30, nil)
	titles := NewTitleCache(func(context.Context, int) (string, error) {
		return "", errors.New("bad json")
	}, nil)
	s := NewScanner(texts, titles, ScanOptions{FrameJump: 3, Lookback: 21, Policy: similarity.Default()})

	raw, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(raw) != 1 || raw[0].Title != "" || raw[0].EndFrame != 20 {
		t.Fatalf("unexpected segments: %+v", raw)
	}
	if titles.Calls() != 1 {
		t.Fatalf("failed title must still be bound once, calls=%d", titles.Calls())
	}
}

func TestScan_NoFrames(t *testing.T) {
	s, _, _ := newTestScanner(newFakeVideo(), 0, ScanOptions{})
	if _, err := s.Scan(context.Background()); !errors.Is(err, ErrNoFrames) {
		t.Fatalf("expected ErrNoFrames, got %v", err)
	}
}

func TestScan_UsesPrefetchedTexts(t *testing.T) {
	v := newFakeVideo()
	pre := map[int]string{0: "", 3: "", 6: ""}
	texts := NewFrameTexts(pre, v.recognize, 9, nil)
	titles := NewTitleCache(v.resolve, nil)
	s := NewScanner(texts, titles, ScanOptions{FrameJump: 3, Lookback: 21, Policy: similarity.Default()})
	if _, err := s.Scan(context.Background()); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if texts.Calls() != 0 {
		t.Fatalf("expected prefetched frames to be served without recognition, got %d calls", texts.Calls())
	}
}
