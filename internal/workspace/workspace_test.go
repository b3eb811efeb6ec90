package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	base := t.TempDir()

	t.Run("creates root and frames directory", func(t *testing.T) {
		ws, err := New(base)
		require.NoError(t, err)
		t.Cleanup(func() { _ = ws.Release() })

		info, err := os.Stat(ws.Root())
		require.NoError(t, err)
		assert.True(t, info.IsDir())

		info, err = os.Stat(ws.FramesDir())
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("concurrent workspaces never collide", func(t *testing.T) {
		seen := map[string]bool{}
		for i := 0; i < 20; i++ {
			ws, err := New(base)
			require.NoError(t, err)
			t.Cleanup(func() { _ = ws.Release() })

			assert.False(t, seen[ws.Root()], "duplicate workspace path %s", ws.Root())
			seen[ws.Root()] = true
		}
	})
}

func TestSourcePath(t *testing.T) {
	ws, err := New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Release() })

	assert.Equal(t, filepath.Join(ws.Root(), "source.mov"), ws.SourcePath(".MOV"))
	assert.Equal(t, filepath.Join(ws.Root(), "source.mp4"), ws.SourcePath(""))
	assert.Equal(t, filepath.Join(ws.Root(), "source.mp4"), ws.SourcePath("."))
	assert.Equal(t, filepath.Join(ws.Root(), "source.mp4"), ws.SourcePath("noleadingdot"))
}

func TestRelease(t *testing.T) {
	base := t.TempDir()
	ws, err := New(base)
	require.NoError(t, err)

	// Populate with the usual artifacts.
	require.NoError(t, os.WriteFile(ws.SourcePath(".mp4"), []byte("video"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(ws.FramesDir(), "frame_000001.jpg"), []byte("f"), 0600))
	require.NoError(t, os.WriteFile(ws.ArchivePath("frames.zip"), []byte("zip"), 0600))

	require.NoError(t, ws.Release())

	_, err = os.Stat(ws.Root())
	assert.True(t, os.IsNotExist(err))

	// Idempotent.
	require.NoError(t, ws.Release())

	entries, err := os.ReadDir(base)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
