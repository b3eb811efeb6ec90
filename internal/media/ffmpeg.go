// Package media wraps the ffmpeg CLI for frame extraction and probing.
package media

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/framegrab/framegrab-api/internal/frames"
)

// FFmpeg invokes the ffmpeg CLI as a subprocess.
type FFmpeg struct {
	// ffmpegPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	ffmpegPath string
}

// NewFFmpeg creates a new FFmpeg wrapper.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found via PATH).
func NewFFmpeg(ffmpegPath string) *FFmpeg {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpeg{ffmpegPath: ffmpegPath}
}

// JPEGScale maps the caller-facing 0-100 quality onto ffmpeg's inverted
// 2 (best) to 31 (worst) qscale.
func JPEGScale(quality int) int {
	q := int(math.Round(31 - (float64(quality)/100)*29))
	return clamp(q, 2, 31)
}

// WebPScale maps the caller-facing 0-100 quality onto the encoder's
// inverted compression scale.
func WebPScale(quality int) int {
	return clamp(100-quality, 0, 100)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// BuildExtractArgs builds the ffmpeg argv for one extraction. The seek
// offset precedes -i for fast-seek semantics; output frames are numbered
// with a zero-padded six digit sequence.
func BuildExtractArgs(src, outDir string, p frames.Params) []string {
	args := []string{"-y"}
	if p.StartS > 0 {
		args = append(args, "-ss", strconv.Itoa(p.StartS))
	}
	args = append(args, "-i", src)
	if p.DurationS > 0 {
		args = append(args, "-t", strconv.Itoa(p.DurationS))
	}
	args = append(args, "-vf", fmt.Sprintf("fps=1/%d", p.EveryS))
	if p.MaxFrames > 0 {
		args = append(args, "-frames:v", strconv.Itoa(p.MaxFrames))
	}

	switch p.Format {
	case frames.FormatJPG, frames.FormatJPEG:
		args = append(args, "-q:v", strconv.Itoa(JPEGScale(p.Quality)))
	case frames.FormatWebP:
		args = append(args, "-q:v", strconv.Itoa(WebPScale(p.Quality)))
	case frames.FormatPNG:
		// Lossless, quality is ignored.
	}

	return append(args, filepath.Join(outDir, "frame_%06d."+string(p.Format)))
}

// ExtractFrames decodes src and writes one frame per p.EveryS seconds into
// outDir. It returns the produced frame paths in lexicographic order, which
// matches the numbered naming and therefore temporal order. An empty slice
// with a nil error means the tool exited cleanly but produced nothing.
func (f *FFmpeg) ExtractFrames(ctx context.Context, src, outDir string, p frames.Params) ([]string, error) {
	args := BuildExtractArgs(src, outDir, p)
	if err := f.run(ctx, args); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, fmt.Errorf("list frames: %w", err)
	}

	ext := "." + string(p.Format)
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		paths = append(paths, filepath.Join(outDir, e.Name()))
	}
	return paths, nil
}

// ProbeDuration returns the duration in seconds of a media file.
// It uses ffprobe to extract the duration metadata.
func (f *FFmpeg) ProbeDuration(ctx context.Context, path string) (float64, error) {
	// #nosec G204 - path is a workspace file, not user input
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return 0, fmt.Errorf("ffprobe cancelled: %w", ctx.Err())
		}
		return 0, fmt.Errorf("ffprobe: %w, stderr: %s", err, stderr.String())
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(stdout.String()), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration: %w", err)
	}
	return duration, nil
}

// run executes ffmpeg with the given arguments and returns an error
// containing stderr output if the command fails.
func (f *FFmpeg) run(ctx context.Context, args []string) error {
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return &CommandError{
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}
	return nil
}

// CommandError represents a failed ffmpeg invocation, including the stderr
// output and exit information.
type CommandError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("ffmpeg error: %v", e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + lastLine(s)
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// lastLine keeps error messages short: ffmpeg's stderr is verbose and the
// final line carries the actual failure.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
