// Package bootstrap provides dependency initialization for the frame
// extraction API.
package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/framegrab/framegrab-api/internal/archive"
	"github.com/framegrab/framegrab-api/internal/config"
	"github.com/framegrab/framegrab-api/internal/download"
	"github.com/framegrab/framegrab-api/internal/frames"
	"github.com/framegrab/framegrab-api/internal/media"
	"github.com/framegrab/framegrab-api/internal/storage"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	ExtractService *frames.Service
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	extractor := media.NewFFmpeg(cfg.FFmpegPath)
	downloader := download.NewYtDlp(cfg.YtDlpPath)
	zipper := archive.NewZipper()

	var opts []frames.Option
	if cfg.S3Enabled() {
		s3Store, err := storage.NewS3Storage(storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		opts = append(opts, frames.WithUploader(s3Store))
		logger.Info("S3 archive offload configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
	}

	svc := frames.NewService(extractor, downloader, zipper, cfg.TempDir, logger, opts...)

	return &Dependencies{
		ExtractService: svc,
	}, nil
}
