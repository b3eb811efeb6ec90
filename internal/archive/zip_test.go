package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateZip(t *testing.T) {
	z := NewZipper()

	t.Run("round-trips exact names and contents in sorted order", func(t *testing.T) {
		dir := t.TempDir()

		// Created out of order on purpose; the archive must still be sorted.
		want := map[string][]byte{}
		var files []string
		for _, i := range []int{3, 1, 2} {
			name := fmt.Sprintf("frame_%06d.jpg", i)
			content := []byte(fmt.Sprintf("jpeg-bytes-%d", i))
			path := filepath.Join(dir, name)
			require.NoError(t, os.WriteFile(path, content, 0600))
			files = append(files, path)
			want[name] = content
		}

		dst := filepath.Join(t.TempDir(), "frames.zip")
		require.NoError(t, z.CreateZip(context.Background(), files, dst))

		r, err := zip.OpenReader(dst)
		require.NoError(t, err)
		defer func() { _ = r.Close() }()

		require.Len(t, r.File, 3)
		var prev string
		for _, f := range r.File {
			assert.Greater(t, f.Name, prev, "entries must be in lexicographic order")
			prev = f.Name

			// No directory prefixes.
			assert.Equal(t, filepath.Base(f.Name), f.Name)
			assert.Equal(t, zip.Deflate, f.Method)

			rc, err := f.Open()
			require.NoError(t, err)
			data, err := io.ReadAll(rc)
			require.NoError(t, err)
			require.NoError(t, rc.Close())
			assert.Equal(t, want[f.Name], data)
		}
	})

	t.Run("empty file list produces a valid empty archive", func(t *testing.T) {
		dst := filepath.Join(t.TempDir(), "empty.zip")
		require.NoError(t, z.CreateZip(context.Background(), nil, dst))

		r, err := zip.OpenReader(dst)
		require.NoError(t, err)
		defer func() { _ = r.Close() }()
		assert.Empty(t, r.File)
	})

	t.Run("missing source file fails", func(t *testing.T) {
		dst := filepath.Join(t.TempDir(), "bad.zip")
		err := z.CreateZip(context.Background(), []string{"/does/not/exist.jpg"}, dst)
		require.Error(t, err)
	})

	t.Run("cancelled context aborts", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "frame_000001.jpg")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0600))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := z.CreateZip(ctx, []string{path}, filepath.Join(dir, "frames.zip"))
		require.ErrorIs(t, err, context.Canceled)
	})
}
