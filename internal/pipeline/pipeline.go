package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/forPelevin/embedscan/internal/catalog"
	"github.com/forPelevin/embedscan/internal/config"
	"github.com/forPelevin/embedscan/internal/ports"
	"github.com/forPelevin/embedscan/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/embedscan/internal/ports/adapters/openrouter"
	"github.com/forPelevin/embedscan/internal/ports/adapters/sqlitestore"
	"github.com/forPelevin/embedscan/internal/ports/adapters/tesseract"
	"github.com/forPelevin/embedscan/internal/usecase"
)

// ErrWorkspaceBusy is returned when another run holds the workspace of the
// same input video.
var ErrWorkspaceBusy = errors.New("workspace is in use by another run")

type Config struct {
	InputVideo string
	Settings   *config.Config
	Logger     *slog.Logger
	// Stdout receives the catalog table. Nil discards it.
	Stdout io.Writer
	// Progress, when set, receives a progress bar for bulk recognition.
	Progress io.Writer
}

func (c Config) Validate() error {
	if c.InputVideo == "" {
		return errors.New("input is empty")
	}
	if _, err := os.Stat(c.InputVideo); err != nil {
		return fmt.Errorf("stat input: %w", err)
	}
	if c.Settings == nil {
		return errors.New("settings are required")
	}
	if err := c.Settings.Validate(); err != nil {
		return err
	}
	if err := c.Settings.RequireTitleResolver(); err != nil {
		return err
	}
	return openrouter.ValidateBaseURL(c.Settings.Title.BaseURL, c.Settings.Title.AllowedHosts)
}

// Summary describes a finished run.
type Summary struct {
	RunID     string
	OutDir    string
	Workspace string
	Result    usecase.Result
}

func Run(ctx context.Context, cfg Config) (Summary, error) {
	s := cfg.Settings
	runID := uuid.NewString()
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	log = log.With("run_id", runID)

	videoKey, err := fileKey(cfg.InputVideo)
	if err != nil {
		return Summary{}, err
	}
	workspace := filepath.Join(s.Output.CacheDir, "runs", videoKey)
	release, err := acquireWorkspace(workspace)
	if err != nil {
		return Summary{}, err
	}
	defer release()
	log.Info("workspace ready", "input", cfg.InputVideo, "workspace", workspace)

	store, err := sqlitestore.Open(filepath.Join(s.Output.CacheDir, "recognitions.db"))
	if err != nil {
		return Summary{}, err
	}
	defer store.Close()

	tmpDir := filepath.Join(workspace, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return Summary{}, err
	}

	// adapters
	video := ffmpeg.New(s.Tools.FFmpeg, s.Tools.FFprobe, s.Detection.Workers)
	ocr := tesseract.New(s.Tools.Tesseract, s.Tools.TesseractLang, s.RecognitionTimeout(), tmpDir)
	titles := openrouter.New(s.Title.APIKey, s.Title.Model, s.Title.BaseURL, s.Title.RequestsPerSecond)

	if d, err := video.ProbeDuration(ctx, cfg.InputVideo); err != nil {
		log.Warn("could not probe duration", "error", err)
	} else {
		log.Info("input probed", "duration", d.Round(time.Second), "expected_frames", int(d/s.Interval()))
	}

	sk := sampleKey(s)
	scope := storeScope(videoKey, sk, ocr.Fingerprint())
	runOutDir := buildRunOutDir(s.Output.Dir, cfg.InputVideo, time.Now().UTC())
	if err := os.MkdirAll(runOutDir, 0o755); err != nil {
		return Summary{}, err
	}
	if s.Output.Cut {
		if err := os.MkdirAll(filepath.Join(runOutDir, usecase.ClipsDir), 0o755); err != nil {
			return Summary{}, err
		}
	}
	log.Info("output run dir", "dir", runOutDir)

	in := usecase.Input{
		InputVideo:  cfg.InputVideo,
		RunID:       runID,
		FramesDir:   filepath.Join(workspace, "frames", sk),
		OutDir:      runOutDir,
		VideoKey:        scope,
		IDRegion:        s.Regions.ID,
		TitleRegion:     s.Regions.Title,
		TitleCandidates: s.Regions.Candidates,
		Interval:        s.Interval(),
		FrameJump:       s.Detection.FrameJump,
		Preroll:         s.Detection.PrerollFrames,
		Threshold:       s.Detection.Threshold,
		MaxGap:          s.MaxGap(),
		MinSegment:      s.MinSegment(),
		Workers:         s.Detection.Workers,
		PrefetchAll:     s.Detection.PrefetchAll,
		RefreshOCR:      s.Output.RefreshOCR,
		Cut:             s.Output.Cut,
		ClipPrefix:      s.Output.ClipPrefix,
	}
	if cfg.Progress != nil {
		in.Progress = newBarProgress(cfg.Progress)
	}
	if in.RefreshOCR {
		n, err := store.DeletePrefix(ctx, in.VideoKey+"/")
		if err != nil {
			return Summary{}, err
		}
		log.Info("stored recognitions dropped", "count", n)
	}

	uc := usecase.New(usecase.Deps{
		Sampler:    video,
		Recognizer: ocr,
		Titles:     titles,
		Store:      store,
		Cutter:     video,
		Logger:     log,
	})
	res, err := uc.Run(ctx, in)
	if err != nil {
		return Summary{}, err
	}

	if cfg.Stdout != nil {
		fmt.Fprint(cfg.Stdout, catalog.RenderTable(res.Catalog))
	}
	log.Info("catalog written",
		"segments", len(res.Segments),
		"csv", filepath.Join(runOutDir, usecase.CSVName),
		"manifest", filepath.Join(runOutDir, usecase.ManifestName),
	)
	return Summary{RunID: runID, OutDir: runOutDir, Workspace: workspace, Result: res}, nil
}

// acquireWorkspace creates dir and takes an exclusive lock on it.
func acquireWorkspace(dir string) (func(), error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	lock := flock.New(filepath.Join(dir, ".lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock workspace: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWorkspaceBusy, dir)
	}
	return func() { _ = lock.Unlock() }, nil
}

// fileKey identifies an input by absolute path, size and modification time,
// so a replaced file does not reuse stale frames or recognitions.
func fileKey(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	st, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("stat input: %w", err)
	}
	return hash(fmt.Sprintf("%s|%d|%d", abs, st.Size(), st.ModTime().UnixNano())), nil
}

// sampleKey changes whenever sampled images would differ.
func sampleKey(s *config.Config) string {
	parts := []string{s.Interval().String()}
	for _, r := range s.RegionList() {
		parts = append(parts, r.Name, r.Crop)
	}
	return hash(strings.Join(parts, "|"))[:8]
}

// storeScope prefixes every stored recognition. It changes with the input,
// the sampled images and the recognizer settings.
func storeScope(videoKey, sampleKey, recognizer string) string {
	return videoKey + "-" + sampleKey + "-" + hash(recognizer)[:8]
}

func buildRunOutDir(outRoot, inputVideo string, now time.Time) string {
	name := strings.TrimSuffix(filepath.Base(inputVideo), filepath.Ext(inputVideo))
	name = normalizePathSegment(name)
	if name == "" {
		name = "input"
	}
	ts := now.UTC().Format("20060102-150405Z")
	runSeed := fmt.Sprintf("%s|%d", inputVideo, now.UTC().UnixNano())
	suffix := hash(runSeed)[:6]
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", name, ts, suffix))
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

var (
	_ ports.FrameSampler     = (*ffmpeg.Adapter)(nil)
	_ ports.ClipCutter       = (*ffmpeg.Adapter)(nil)
	_ ports.TextRecognizer   = (*tesseract.Adapter)(nil)
	_ ports.TitleResolver    = (*openrouter.Adapter)(nil)
	_ ports.RecognitionStore = (*sqlitestore.Store)(nil)
)
