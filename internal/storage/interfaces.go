// Package storage defines interfaces for blob storage backends.
// The storage layer persists product files and images and turns stored
// references into retrieval URLs.
package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/prn-tf/digital-galaxy/internal/domain"
)

// Storage errors
var (
	// ErrBlobNotFound indicates the referenced blob does not exist.
	ErrBlobNotFound = errors.New("blob not found")

	// ErrSizeMismatch indicates the stored byte count differs from the declared size.
	ErrSizeMismatch = errors.New("blob size mismatch")

	// ErrTooLarge indicates an upload exceeded the configured maximum size.
	ErrTooLarge = errors.New("blob too large")
)

// BlobStore defines the interface for blob storage backends.
// Implementations include the local filesystem and S3-compatible services.
type BlobStore interface {
	// Put stores content under ref and returns the number of bytes written.
	// A negative size means the size is unknown; otherwise the written count must match it.
	Put(ctx context.Context, ref domain.BlobRef, r io.Reader, size int64, contentType string) (int64, error)

	// URL returns a retrieval URL for ref. The expiry is nil when the URL does not expire.
	URL(ctx context.Context, ref domain.BlobRef) (string, *time.Time, error)

	// Delete removes the blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, ref domain.BlobRef) error
}
