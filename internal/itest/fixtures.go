//go:build integration

package itest

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"testing"
)

const (
	fixtureID    = "abc12345678"
	fixtureTitle = "Cat plays piano"
)

// makeStreamFixture renders a 1280x720 clip with an embed overlay: the
// identifier URL near the top-left and the title near the bottom-left, both
// visible from 10s to 40s.
func makeStreamFixture(t *testing.T, dir string, seconds int) string {
	t.Helper()
	out := filepath.Join(dir, "stream.mp4")
	vf := fmt.Sprintf(
		"drawtext=text='youtube.com/watch?v=%s':x=80:y=26:fontsize=30:fontcolor=white:box=1:boxcolor=black:enable='between(t,10,40)',"+
			"drawtext=text='%s':x=45:y=632:fontsize=26:fontcolor=white:box=1:boxcolor=black:enable='between(t,10,40)'",
		fixtureID, fixtureTitle,
	)
	cmd := exec.Command("ffmpeg",
		"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=gray:s=1280x720:d=%d", seconds),
		"-vf", vf,
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		out,
	)
	if b, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("ffmpeg fixture failed: %v\n%s", err, string(b))
	}
	return out
}
