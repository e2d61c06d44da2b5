package tesseract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

// Whitelist covers address-bar text: URL punctuation plus identifier runes.
const Whitelist = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789:/.?=&_-"

const defaultTimeout = 20 * time.Second

// preprocessing names the prepare steps. Change it whenever prepare changes.
const preprocessing = "gray|2x-catmullrom|contrast40|sharpen1"

type Adapter struct {
	bin     string
	lang    string
	timeout time.Duration
	tmpDir  string
}

func New(binPath, lang string, timeout time.Duration, tmpDir string) *Adapter {
	if binPath == "" {
		binPath = "tesseract"
	}
	if lang == "" {
		lang = "eng"
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Adapter{bin: binPath, lang: lang, timeout: timeout, tmpDir: tmpDir}
}

var spaceRE = regexp.MustCompile(`\s+`)

// Fingerprint identifies every setting that shapes recognized text. Stored
// readings are only reusable under the same fingerprint.
func (a *Adapter) Fingerprint() string {
	return strings.Join([]string{"oem3", "psm7", a.lang, Whitelist, preprocessing}, "|")
}

// RecognizeText upscales and grayscales the crop, then reads a single text
// line. A call that outlives the timeout returns an error.
func (a *Adapter) RecognizeText(ctx context.Context, imagePath string) (string, error) {
	prepared, err := a.prepare(imagePath)
	if err != nil {
		return "", err
	}
	defer os.Remove(prepared)

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	cmd := exec.CommandContext(callCtx, a.bin,
		prepared, "stdout",
		"--oem", "3",
		"--psm", "7",
		"-l", a.lang,
		"-c", "tessedit_char_whitelist="+Whitelist,
	)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("tesseract timeout after %s: %s", a.timeout, imagePath)
		}
		return "", fmt.Errorf("tesseract %s: %w\n%s", imagePath, err, stderr.String())
	}
	return normalizeText(string(out)), nil
}

func (a *Adapter) prepare(imagePath string) (string, error) {
	img, err := imaging.Open(imagePath)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", imagePath, err)
	}
	b := img.Bounds()
	gray := imaging.Grayscale(img)
	gray = imaging.Resize(gray, b.Dx()*2, 0, imaging.CatmullRom)
	gray = imaging.AdjustContrast(gray, 40)
	gray = imaging.Sharpen(gray, 1)

	f, err := os.CreateTemp(a.tmpDir, "ocr-*.png")
	if err != nil {
		return "", fmt.Errorf("create temp image: %w", err)
	}
	name := f.Name()
	_ = f.Close()
	if err := imaging.Save(gray, name); err != nil {
		_ = os.Remove(name)
		return "", fmt.Errorf("save %s: %w", filepath.Base(name), err)
	}
	return name, nil
}

func normalizeText(s string) string {
	return strings.TrimSpace(spaceRE.ReplaceAllString(s, " "))
}
