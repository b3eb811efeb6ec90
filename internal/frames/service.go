package frames

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/framegrab/framegrab-api/internal/metrics"
	"github.com/framegrab/framegrab-api/internal/workspace"
)

// Extractor produces still frames from a video file into outDir.
// It returns the produced frame paths in lexicographic order.
type Extractor interface {
	ExtractFrames(ctx context.Context, src, outDir string, p Params) ([]string, error)
	// ProbeDuration reports the source duration in seconds, for logging.
	ProbeDuration(ctx context.Context, path string) (float64, error)
}

// Downloader materializes a remote video URL into a local file at dst.
type Downloader interface {
	Download(ctx context.Context, url, dst string) error
}

// Archiver packs the given files into a ZIP archive at dst.
type Archiver interface {
	CreateZip(ctx context.Context, files []string, dst string) error
}

// Uploader stores a finished archive under key and returns its URL.
type Uploader interface {
	UploadArchive(ctx context.Context, key string, data io.Reader) (string, error)
}

// Result is the outcome of a successful extraction. The caller must call
// Close once the archive has been fully sent; Close deletes the workspace.
type Result struct {
	// ArchivePath is the on-disk location of the ZIP file.
	ArchivePath string
	// ArchiveSize is the ZIP byte length, for the Content-Length header.
	ArchiveSize int64
	// ZipName is the sanitized attachment filename.
	ZipName string
	// FrameCount is the number of frames packed into the archive.
	FrameCount int
	// URL is set when the archive was offloaded to object storage.
	URL string

	ws *workspace.Workspace
}

// Close deletes the workspace backing the result.
func (r *Result) Close() error {
	if r.ws == nil {
		return nil
	}
	return r.ws.Release()
}

// Service orchestrates the extraction pipeline: resolve input to a local
// file, run the extractor, archive the frames, and guarantee workspace
// cleanup on every exit path.
type Service struct {
	extractor  Extractor
	downloader Downloader
	archiver   Archiver
	uploader   Uploader
	tempDir    string
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithUploader enables archive offload to object storage.
func WithUploader(u Uploader) Option {
	return func(s *Service) {
		s.uploader = u
	}
}

// NewService creates a new extraction Service. tempDir is the base directory
// for per-request workspaces.
func NewService(extractor Extractor, downloader Downloader, archiver Archiver, tempDir string, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		extractor:  extractor,
		downloader: downloader,
		archiver:   archiver,
		tempDir:    tempDir,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Extract runs the full pipeline for one request. On error the workspace is
// already deleted; on success the caller owns the Result and must Close it.
func (s *Service) Extract(ctx context.Context, in Input, p Params) (*Result, error) {
	ws, err := workspace.New(s.tempDir)
	if err != nil {
		metrics.ExtractionsTotal.WithLabelValues("error").Inc()
		return nil, WrapError(KindArchiveIO, "could not allocate workspace", err)
	}

	res, err := s.run(ctx, ws, in, p)
	if err != nil {
		_ = ws.Release()
		metrics.ExtractionsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.ExtractionsTotal.WithLabelValues("success").Inc()
	metrics.FramesExtractedTotal.Add(float64(res.FrameCount))
	return res, nil
}

func (s *Service) run(ctx context.Context, ws *workspace.Workspace, in Input, p Params) (*Result, error) {
	src, err := s.resolveInput(ctx, ws, in)
	if err != nil {
		return nil, err
	}

	duration, err := s.extractor.ProbeDuration(ctx, src)
	if err != nil {
		s.logger.Warn("could not probe video duration", slog.String("error", err.Error()))
	}

	extractStart := time.Now()
	framePaths, err := s.extractor.ExtractFrames(ctx, src, ws.FramesDir(), p)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, WrapError(KindToolMissing, "frame extraction tool is not installed", err)
		}
		return nil, WrapError(KindExtractionFailed, "frame extraction failed: "+err.Error(), err)
	}
	metrics.StageDuration.WithLabelValues("extract").Observe(time.Since(extractStart).Seconds())

	if len(framePaths) == 0 {
		return nil, NewError(KindNoFramesProduced,
			"no frames were extracted, check the start/end time range")
	}

	zipStart := time.Now()
	zipPath := ws.ArchivePath(p.ZipName)
	if err := s.archiver.CreateZip(ctx, framePaths, zipPath); err != nil {
		return nil, WrapError(KindArchiveIO, "could not build archive", err)
	}
	info, err := os.Stat(zipPath)
	if err != nil {
		return nil, WrapError(KindArchiveIO, "could not stat archive", err)
	}
	metrics.StageDuration.WithLabelValues("zip").Observe(time.Since(zipStart).Seconds())

	res := &Result{
		ArchivePath: zipPath,
		ArchiveSize: info.Size(),
		ZipName:     p.ZipName,
		FrameCount:  len(framePaths),
		ws:          ws,
	}

	if p.PushToS3 {
		if s.uploader == nil {
			// S3 not configured; fall back to streaming the archive.
			s.logger.Warn("push_to_s3 requested but no uploader configured, streaming archive instead")
		} else if err := s.offloadArchive(ctx, res); err != nil {
			return nil, err
		}
	}

	s.logger.Info("extraction complete",
		slog.Int("frame_count", res.FrameCount),
		slog.Int64("archive_bytes", res.ArchiveSize),
		slog.String("zip_name", res.ZipName),
		slog.Float64("video_duration_s", duration),
		slog.Bool("offloaded", res.URL != ""),
	)

	return res, nil
}

// resolveInput turns the request input into a local source file path.
func (s *Service) resolveInput(ctx context.Context, ws *workspace.Workspace, in Input) (string, error) {
	switch in.Kind {
	case InputUpload:
		src := ws.SourcePath(filepath.Ext(in.Filename))
		if err := saveUpload(src, in.Data); err != nil {
			return "", WrapError(KindArchiveIO, "could not save uploaded file", err)
		}
		return src, nil

	case InputRemoteURL:
		src := ws.SourcePath(".mp4")
		start := time.Now()
		if err := s.downloader.Download(ctx, in.URL, src); err != nil {
			if errors.Is(err, exec.ErrNotFound) {
				return "", WrapError(KindToolMissing, "video download tool is not installed", err)
			}
			return "", WrapError(KindDownloadFailed, "could not download video: "+err.Error(), err)
		}
		metrics.StageDuration.WithLabelValues("download").Observe(time.Since(start).Seconds())
		return src, nil

	default:
		return "", NewError(KindMissingInput, "provide a video upload or a video URL")
	}
}

func (s *Service) offloadArchive(ctx context.Context, res *Result) error {
	f, err := os.Open(res.ArchivePath)
	if err != nil {
		return WrapError(KindArchiveIO, "could not open archive for upload", err)
	}
	defer func() { _ = f.Close() }()

	key := fmt.Sprintf("archives/%s/%s", filepath.Base(filepath.Dir(res.ArchivePath)), res.ZipName)
	url, err := s.uploader.UploadArchive(ctx, key, f)
	if err != nil {
		return WrapError(KindArchiveIO, "could not upload archive", err)
	}
	res.URL = url
	return nil
}

func saveUpload(dst string, data io.Reader) error {
	f, err := os.Create(dst) // #nosec G304 - dst is inside the request workspace
	if err != nil {
		return fmt.Errorf("create source file: %w", err)
	}
	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		return fmt.Errorf("write source file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close source file: %w", err)
	}
	return nil
}
