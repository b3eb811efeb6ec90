// Package download wraps the yt-dlp CLI for fetching remote videos.
package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ErrEmptyDownload is returned when the downloader exits cleanly but the
// target file is missing or empty.
var ErrEmptyDownload = errors.New("download produced no output")

// YtDlp invokes the yt-dlp CLI as a subprocess.
type YtDlp struct {
	// binPath is the path to the yt-dlp binary. Defaults to "yt-dlp".
	binPath string
}

// NewYtDlp creates a new YtDlp wrapper.
// If binPath is empty, it defaults to "yt-dlp" (found via PATH).
func NewYtDlp(binPath string) *YtDlp {
	if binPath == "" {
		binPath = "yt-dlp"
	}
	return &YtDlp{binPath: binPath}
}

// BuildArgs builds the yt-dlp argv for one fetch. The mp4 container is
// preferred when the remote side offers a choice, so ffmpeg can always
// decode the result.
func BuildArgs(url, dst string) []string {
	return []string{
		"-f", "mp4/bestvideo*+bestaudio/best",
		"--no-playlist",
		"-o", dst,
		url,
	}
}

// Download fetches url into a local file at dst. A non-zero exit, or a
// missing or empty output file, is an error.
func (d *YtDlp) Download(ctx context.Context, url, dst string) error {
	// #nosec G204 - binPath is set by the application; url is passed as a
	// single argv element, never through a shell
	cmd := exec.CommandContext(ctx, d.binPath, BuildArgs(url, dst)...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("yt-dlp cancelled: %w", ctx.Err())
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return fmt.Errorf("yt-dlp: %w", err)
		}
		return fmt.Errorf("yt-dlp: %w: %s", err, lastLine(msg))
	}

	info, err := os.Stat(dst)
	if err != nil || info.Size() == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyDownload, url)
	}
	return nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
