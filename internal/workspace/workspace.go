// Package workspace manages per-request temporary directories. Each request
// gets a uniquely named directory holding the source video, the extracted
// frames, and the final archive, released as one unit when the request ends.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Workspace is a request-scoped temporary directory. It is not safe for
// concurrent use; each request owns exactly one Workspace.
type Workspace struct {
	root      string
	framesDir string
}

// New creates a fresh workspace under baseDir. The directory name carries a
// random suffix so concurrent requests never collide on disk paths.
// If baseDir is empty, a subdirectory of os.TempDir() is used.
func New(baseDir string) (*Workspace, error) {
	if baseDir == "" {
		baseDir = filepath.Join(os.TempDir(), "framegrab")
	}
	if err := os.MkdirAll(baseDir, 0750); err != nil {
		return nil, fmt.Errorf("create workspace base directory: %w", err)
	}

	root := filepath.Join(baseDir, "req_"+uuid.NewString())
	if err := os.Mkdir(root, 0750); err != nil {
		return nil, fmt.Errorf("create workspace directory: %w", err)
	}

	framesDir := filepath.Join(root, "frames")
	if err := os.Mkdir(framesDir, 0750); err != nil {
		_ = os.RemoveAll(root)
		return nil, fmt.Errorf("create frames directory: %w", err)
	}

	return &Workspace{root: root, framesDir: framesDir}, nil
}

// Root returns the workspace directory path.
func (w *Workspace) Root() string {
	return w.root
}

// FramesDir returns the directory the extractor writes frames into.
func (w *Workspace) FramesDir() string {
	return w.framesDir
}

// SourcePath returns the path the source video is saved to. ext is the
// desired file extension; anything without a leading dot falls back to ".mp4".
func (w *Workspace) SourcePath(ext string) string {
	if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
		ext = ".mp4"
	}
	return filepath.Join(w.root, "source"+strings.ToLower(ext))
}

// ArchivePath returns the path the archive is written to.
func (w *Workspace) ArchivePath(name string) string {
	return filepath.Join(w.root, name)
}

// Release deletes the workspace and everything in it. It is safe to call
// more than once.
func (w *Workspace) Release() error {
	if err := os.RemoveAll(w.root); err != nil {
		return fmt.Errorf("remove workspace: %w", err)
	}
	return nil
}
