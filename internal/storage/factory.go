package storage

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/prn-tf/digital-galaxy/internal/config"
)

// New opens the configured backend.
func New(ctx context.Context, cfg config.StorageConfig, logger zerolog.Logger) (BlobStore, error) {
	switch cfg.Backend {
	case "filesystem":
		return NewFilesystemStore(cfg.DataDir, cfg.PublicBaseURL, cfg.MaxUploadSize, logger)
	case "s3":
		return NewS3Store(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
