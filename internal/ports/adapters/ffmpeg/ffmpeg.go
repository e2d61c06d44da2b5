package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/forPelevin/embedscan/internal/types"
	"github.com/forPelevin/embedscan/internal/workpool"
)

// completeMarker is written into a region directory once ffmpeg finished it,
// so an interrupted extraction is redone instead of trusted.
const completeMarker = ".complete"

type Adapter struct {
	ffmpeg  string
	ffprobe string
	workers int
}

func New(ffmpegPath, ffprobePath string, workers int) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath, workers: workers}
}

// SampleFrames extracts every region in parallel, one ffmpeg process per
// region. Regions that already carry a completion marker are skipped.
func (a *Adapter) SampleFrames(ctx context.Context, inVideo string, regions []types.Region, interval time.Duration, outDir string) error {
	if interval <= 0 {
		return fmt.Errorf("ffmpeg sample frames: interval must be > 0")
	}
	_, err := workpool.Map(ctx, a.workers, regions, func(ctx context.Context, r types.Region) (struct{}, error) {
		return struct{}{}, a.sampleRegion(ctx, inVideo, r, interval, outDir)
	})
	return err
}

func (a *Adapter) sampleRegion(ctx context.Context, inVideo string, r types.Region, interval time.Duration, outDir string) error {
	dir := filepath.Join(outDir, r.Name)
	if _, err := os.Stat(filepath.Join(dir, completeMarker)); err == nil {
		return nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("ffmpeg region %s: reset dir: %w", r.Name, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ffmpeg region %s: %w", r.Name, err)
	}

	vf := "fps=1/" + fmtSeconds(interval)
	if crop := strings.TrimSpace(r.Crop); crop != "" {
		vf += "," + crop
	}
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-hide_banner",
		"-loglevel", "error",
		"-i", inVideo,
		"-vf", vf,
		filepath.Join(dir, "frame_%05d.jpg"),
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg sample region %s: %w\n%s", r.Name, err, string(b))
	}
	return os.WriteFile(filepath.Join(dir, completeMarker), []byte(r.Crop+"\n"), 0o644)
}

func (a *Adapter) CountFrames(outDir, region string) (int, error) {
	entries, err := os.ReadDir(filepath.Join(outDir, region))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "frame_") && strings.HasSuffix(e.Name(), ".jpg") {
			n++
		}
	}
	return n, nil
}

// FramePath maps a 0-based sample index to ffmpeg's 1-based file numbering.
func (a *Adapter) FramePath(outDir, region string, idx int) string {
	return filepath.Join(outDir, region, fmt.Sprintf("frame_%05d.jpg", idx+1))
}

// CutClip stream-copies the range and falls back to a re-encode when the
// copy fails.
func (a *Adapter) CutClip(ctx context.Context, inVideo string, start, end time.Duration, outMP4 string) error {
	if end <= start {
		return fmt.Errorf("ffmpeg cut clip: empty range %s-%s", start, end)
	}
	base := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-ss", fmtSeconds(start),
		"-i", inVideo,
		"-t", fmtSeconds(end - start),
	}
	copyArgs := append(append([]string{}, base...), "-c:v", "copy", "-c:a", "copy", outMP4)
	b, err := exec.CommandContext(ctx, a.ffmpeg, copyArgs...).CombinedOutput()
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("ffmpeg cut clip: %w", ctx.Err())
	}

	encodeArgs := append(append([]string{}, base...),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "18",
		"-c:a", "aac",
		"-b:a", "192k",
		outMP4,
	)
	b2, err2 := exec.CommandContext(ctx, a.ffmpeg, encodeArgs...).CombinedOutput()
	if err2 != nil {
		return fmt.Errorf("ffmpeg cut clip: copy: %v\n%s\nre-encode: %w\n%s", err, string(b), err2, string(b2))
	}
	return nil
}

func (a *Adapter) ProbeDuration(ctx context.Context, inVideo string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		inVideo,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w\n%s", err, string(b))
	}
	s := strings.TrimSpace(string(b))
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return time.Duration(sec * float64(time.Second)), nil
}

func fmtSeconds(d time.Duration) string {
	sec := float64(d) / float64(time.Second)
	return strconv.FormatFloat(sec, 'f', 3, 64)
}
