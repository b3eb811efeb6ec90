package download

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildArgs(t *testing.T) {
	args := BuildArgs("https://example.com/watch?v=abc", "/tmp/ws/source.mp4")

	// mp4 container preferred so the extractor can always decode the result.
	assert.Equal(t, "-f", args[0])
	assert.Contains(t, args[1], "mp4")
	assert.Contains(t, args, "--no-playlist")
	assert.Equal(t, "/tmp/ws/source.mp4", args[indexOf(t, args, "-o")+1])
	assert.Equal(t, "https://example.com/watch?v=abc", args[len(args)-1])
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

func TestDownload_MissingBinary(t *testing.T) {
	d := NewYtDlp("definitely-not-a-real-downloader-binary")

	err := d.Download(context.Background(), "https://example.com/v", filepath.Join(t.TempDir(), "out.mp4"))
	require.Error(t, err)
	assert.ErrorIs(t, err, exec.ErrNotFound)
}

func TestDownload_EmptyOutput(t *testing.T) {
	// "true" exits zero without producing the target file.
	d := NewYtDlp("true")

	dst := filepath.Join(t.TempDir(), "out.mp4")
	err := d.Download(context.Background(), "https://example.com/v", dst)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyDownload)

	// Zero-byte output is treated the same as no output.
	require.NoError(t, os.WriteFile(dst, nil, 0600))
	err = d.Download(context.Background(), "https://example.com/v", dst)
	assert.ErrorIs(t, err, ErrEmptyDownload)
}

func TestDownload_ToolFailure(t *testing.T) {
	// "false" exits non-zero; the error must not be ErrNotFound.
	d := NewYtDlp("false")

	err := d.Download(context.Background(), "https://example.com/v", filepath.Join(t.TempDir(), "out.mp4"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, exec.ErrNotFound)
	assert.NotErrorIs(t, err, ErrEmptyDownload)
}

func TestNewYtDlp(t *testing.T) {
	assert.Equal(t, "yt-dlp", NewYtDlp("").binPath)
	assert.Equal(t, "/opt/bin/yt-dlp", NewYtDlp("/opt/bin/yt-dlp").binPath)
}
