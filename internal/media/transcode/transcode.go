package transcode

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Target is the output audio shape.
type Target struct {
	Format     string
	SampleRate int
	Channels   int
}

// FFmpeg runs ffmpeg to produce Target files.
type FFmpeg struct {
	Binary string
	Target Target
}

// Args returns the ffmpeg arguments converting src into dst.
func (f FFmpeg) Args(src, dst string) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin", "-y", "-i", src, "-vn"}
	if f.Target.Channels > 0 {
		args = append(args, "-ac", strconv.Itoa(f.Target.Channels))
	}
	if f.Target.SampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(f.Target.SampleRate))
	}
	format := strings.ToLower(strings.TrimSpace(f.Target.Format))
	if format == "wav" {
		args = append(args, "-c:a", "pcm_s16le")
	}
	if format != "" {
		args = append(args, "-f", format)
	}
	return append(args, dst)
}

// Transcode writes dst from src. Output goes to a temporary sibling first and
// is renamed into place only when ffmpeg succeeds, so dst never holds a
// partial file.
func (f FFmpeg) Transcode(ctx context.Context, src, dst string) error {
	binary := strings.TrimSpace(f.Binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	if src == "" || dst == "" {
		return errors.New("transcode: source and destination required")
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("transcode: ensure destination dir: %w", err)
	}
	tmp := filepath.Join(filepath.Dir(dst), "."+filepath.Base(dst)+".part")
	defer os.Remove(tmp)

	cmd := exec.CommandContext(ctx, binary, f.Args(src, tmp)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("transcode %s: %w: %s", filepath.Base(src), err, strings.TrimSpace(string(output)))
	}
	if err := os.Rename(tmp, dst); err != nil {
		return fmt.Errorf("transcode: finalize %s: %w", dst, err)
	}
	return nil
}
