// Package archive packs extracted frames into ZIP files.
package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// Zipper writes ZIP archives to disk using deflate compression.
type Zipper struct{}

// NewZipper creates a new Zipper.
func NewZipper() *Zipper {
	return &Zipper{}
}

// CreateZip packs the given files into a ZIP archive at dst. Entries are
// written in lexicographic order of their base names, with no directory
// prefixes. The archive is materialized on disk so it can be served with a
// correct content length.
func (z *Zipper) CreateZip(ctx context.Context, files []string, dst string) error {
	sorted := make([]string, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool {
		return filepath.Base(sorted[i]) < filepath.Base(sorted[j])
	})

	zipFile, err := os.Create(dst) // #nosec G304 - dst is inside the request workspace
	if err != nil {
		return fmt.Errorf("create zip file: %w", err)
	}
	defer func() { _ = zipFile.Close() }()

	zw := zip.NewWriter(zipFile)
	for _, fp := range sorted {
		select {
		case <-ctx.Done():
			_ = zw.Close()
			return ctx.Err()
		default:
		}

		if err := addFile(zw, fp); err != nil {
			_ = zw.Close()
			return fmt.Errorf("add %s to zip: %w", filepath.Base(fp), err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize zip: %w", err)
	}
	return zipFile.Close()
}

func addFile(zw *zip.Writer, path string) error {
	f, err := os.Open(path) // #nosec G304 - path is inside the request workspace
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = filepath.Base(path)
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}
