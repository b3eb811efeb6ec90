package media

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framegrab/framegrab-api/internal/frames"
)

// skipIfNoFFmpeg skips the test if ffmpeg is not available.
func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH, skipping test")
	}
}

// createTestVideo creates a simple test video using ffmpeg.
func createTestVideo(t *testing.T, path string, duration float64) {
	t.Helper()

	cmd := exec.Command("ffmpeg",
		"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=red:s=64x64:d=%.1f", duration),
		"-c:v", "libx264",
		"-preset", "ultrafast",
		path,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to create test video: %v\noutput: %s", err, output)
	}
}

func TestJPEGScale(t *testing.T) {
	t.Run("endpoints", func(t *testing.T) {
		assert.Equal(t, 2, JPEGScale(100))
		assert.Equal(t, 31, JPEGScale(0))
	})

	t.Run("stays in range and decreases as quality increases", func(t *testing.T) {
		prev := JPEGScale(0)
		for q := 0; q <= 100; q++ {
			got := JPEGScale(q)
			assert.GreaterOrEqual(t, got, 2, "quality %d", q)
			assert.LessOrEqual(t, got, 31, "quality %d", q)
			assert.LessOrEqual(t, got, prev, "quality %d", q)
			prev = got
		}
	})
}

func TestWebPScale(t *testing.T) {
	for q := 0; q <= 100; q++ {
		assert.Equal(t, 100-q, WebPScale(q), "quality %d", q)
	}
}

func TestBuildExtractArgs(t *testing.T) {
	base := frames.Params{EveryS: 2, Quality: 95, MaxFrames: 1000, Format: frames.FormatJPG}

	t.Run("seek precedes input for fast-seek", func(t *testing.T) {
		p := base
		p.StartS = 5
		args := BuildExtractArgs("/in.mp4", "/out", p)

		ss := indexOf(t, args, "-ss")
		in := indexOf(t, args, "-i")
		assert.Less(t, ss, in)
		assert.Equal(t, "5", args[ss+1])
	})

	t.Run("no seek or duration flags by default", func(t *testing.T) {
		args := BuildExtractArgs("/in.mp4", "/out", base)
		assert.NotContains(t, args, "-ss")
		assert.NotContains(t, args, "-t")
	})

	t.Run("duration limits decode window", func(t *testing.T) {
		p := base
		p.DurationS = 8
		args := BuildExtractArgs("/in.mp4", "/out", p)
		assert.Equal(t, "8", args[indexOf(t, args, "-t")+1])
	})

	t.Run("rate filter samples one frame per interval", func(t *testing.T) {
		args := BuildExtractArgs("/in.mp4", "/out", base)
		assert.Equal(t, "fps=1/2", args[indexOf(t, args, "-vf")+1])
	})

	t.Run("jpg quality mapped onto qscale", func(t *testing.T) {
		args := BuildExtractArgs("/in.mp4", "/out", base)
		// quality 95 -> round(31 - 0.95*29) = 3
		assert.Equal(t, "3", args[indexOf(t, args, "-q:v")+1])
	})

	t.Run("png ignores quality", func(t *testing.T) {
		p := base
		p.Format = frames.FormatPNG
		args := BuildExtractArgs("/in.mp4", "/out", p)
		assert.NotContains(t, args, "-q:v")
	})

	t.Run("webp quality inverted", func(t *testing.T) {
		p := base
		p.Format = frames.FormatWebP
		p.Quality = 30
		args := BuildExtractArgs("/in.mp4", "/out", p)
		assert.Equal(t, "70", args[indexOf(t, args, "-q:v")+1])
	})

	t.Run("output pattern is zero-padded and format-suffixed", func(t *testing.T) {
		args := BuildExtractArgs("/in.mp4", "/out", base)
		assert.Equal(t, filepath.Join("/out", "frame_%06d.jpg"), args[len(args)-1])
	})

	t.Run("max frames cap passed through", func(t *testing.T) {
		args := BuildExtractArgs("/in.mp4", "/out", base)
		assert.Equal(t, "1000", args[indexOf(t, args, "-frames:v")+1])
	})
}

func indexOf(t *testing.T, args []string, flag string) int {
	t.Helper()
	for i, a := range args {
		if a == flag {
			return i
		}
	}
	t.Fatalf("flag %s not found in %v", flag, args)
	return -1
}

func TestExtractFrames(t *testing.T) {
	skipIfNoFFmpeg(t)

	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "source.mp4")
	createTestVideo(t, src, 10)

	f := NewFFmpeg("")

	t.Run("samples one frame per interval over the trim window", func(t *testing.T) {
		outDir := t.TempDir()
		p := frames.Params{EveryS: 2, DurationS: 10, Quality: 95, MaxFrames: 1000, Format: frames.FormatJPG}

		paths, err := f.ExtractFrames(context.Background(), src, outDir, p)
		require.NoError(t, err)
		assert.Len(t, paths, 5)

		// Strictly increasing lexicographic order.
		for i := 1; i < len(paths); i++ {
			assert.Less(t, paths[i-1], paths[i])
		}
		for _, p := range paths {
			assert.True(t, strings.HasPrefix(filepath.Base(p), "frame_"))
			assert.True(t, strings.HasSuffix(p, ".jpg"))
		}
	})

	t.Run("degenerate trim window yields zero frames", func(t *testing.T) {
		outDir := t.TempDir()
		p := frames.Params{EveryS: 2, StartS: 30, Quality: 95, MaxFrames: 1000, Format: frames.FormatJPG}

		paths, err := f.ExtractFrames(context.Background(), src, outDir, p)
		require.NoError(t, err)
		assert.Empty(t, paths)
	})

	t.Run("missing source surfaces stderr", func(t *testing.T) {
		outDir := t.TempDir()
		p := frames.Params{EveryS: 1, Quality: 95, Format: frames.FormatJPG}

		_, err := f.ExtractFrames(context.Background(), filepath.Join(tmpDir, "nope.mp4"), outDir, p)
		require.Error(t, err)

		var ce *CommandError
		require.ErrorAs(t, err, &ce)
		assert.NotEmpty(t, ce.Stderr)
	})
}

func TestProbeDuration(t *testing.T) {
	skipIfNoFFmpeg(t)
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not found in PATH, skipping test")
	}

	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "source.mp4")
	createTestVideo(t, src, 4)

	f := NewFFmpeg("")
	d, err := f.ProbeDuration(context.Background(), src)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, d, 0.5)
}
