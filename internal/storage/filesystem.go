package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/digital-galaxy/internal/domain"
)

// FilesystemStore implements BlobStore on a local directory.
// Files are served by the HTTP layer under PublicBaseURL, so URLs do not expire.
type FilesystemStore struct {
	basePath      string
	publicBaseURL string
	maxSize       int64
	logger        zerolog.Logger
}

// NewFilesystemStore creates the base directory if needed.
func NewFilesystemStore(basePath, publicBaseURL string, maxSize int64, logger zerolog.Logger) (*FilesystemStore, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &FilesystemStore{
		basePath:      basePath,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		maxSize:       maxSize,
		logger:        logger.With().Str("component", "filesystem_store").Logger(),
	}, nil
}

// BasePath returns the root directory.
func (s *FilesystemStore) BasePath() string {
	return s.basePath
}

// Put writes content to a temp file and renames it into place.
func (s *FilesystemStore) Put(ctx context.Context, ref domain.BlobRef, r io.Reader, size int64, contentType string) (int64, error) {
	if s.maxSize > 0 && size > s.maxSize {
		return 0, ErrTooLarge
	}

	dst, err := ComputePath(s.basePath, ref)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create bucket directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	src := r
	if s.maxSize > 0 {
		src = io.LimitReader(r, s.maxSize+1)
	}

	written, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: src})
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, fmt.Errorf("failed to write blob: %w", err)
	}

	if s.maxSize > 0 && written > s.maxSize {
		return 0, ErrTooLarge
	}
	if size >= 0 && written != size {
		return 0, fmt.Errorf("%w: expected %d bytes, got %d", ErrSizeMismatch, size, written)
	}

	if err := os.Rename(tmpName, dst); err != nil {
		return 0, fmt.Errorf("failed to move blob into place: %w", err)
	}

	s.logger.Debug().
		Str("bucket", ref.Bucket).
		Str("path", ref.Path).
		Int64("size", written).
		Msg("stored blob")

	return written, nil
}

// URL returns the public link of ref.
func (s *FilesystemStore) URL(ctx context.Context, ref domain.BlobRef) (string, *time.Time, error) {
	p, err := ComputePath(s.basePath, ref)
	if err != nil {
		return "", nil, err
	}

	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil, ErrBlobNotFound
		}
		return "", nil, fmt.Errorf("failed to stat blob: %w", err)
	}

	return s.publicBaseURL + "/" + url.PathEscape(ref.Bucket) + "/" + escapePath(ref.Path), nil, nil
}

// Delete removes the blob file.
func (s *FilesystemStore) Delete(ctx context.Context, ref domain.BlobRef) error {
	p, err := ComputePath(s.basePath, ref)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// Ensure FilesystemStore implements BlobStore.
var _ BlobStore = (*FilesystemStore)(nil)
