package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"

	"github.com/prn-tf/digital-galaxy/internal/config"
	"github.com/prn-tf/digital-galaxy/internal/domain"
)

// S3Store implements BlobStore on an S3-compatible service.
// Catalog buckets are key prefixes inside one S3 bucket, and retrieval URLs
// are presigned GetObject requests.
type S3Store struct {
	client     *s3.Client
	presign    *s3.PresignClient
	bucket     string
	expiration time.Duration
	maxSize    int64
	logger     zerolog.Logger
}

// NewS3Store builds an S3 client from the storage configuration.
// Static credentials are used when configured; otherwise the default AWS chain applies.
func NewS3Store(ctx context.Context, cfg config.StorageConfig, logger zerolog.Logger) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3.Region),
	}
	if cfg.S3.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3.AccessKeyID,
			cfg.S3.SecretAccessKey,
			"",
		)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3.Endpoint)
		}
		o.UsePathStyle = cfg.S3.UsePathStyle
	})

	return NewS3StoreFromClient(client, cfg.S3.Bucket, cfg.URLExpiration, cfg.MaxUploadSize, logger), nil
}

// NewS3StoreFromClient wraps an existing client.
func NewS3StoreFromClient(client *s3.Client, bucket string, expiration time.Duration, maxSize int64, logger zerolog.Logger) *S3Store {
	return &S3Store{
		client:     client,
		presign:    s3.NewPresignClient(client),
		bucket:     bucket,
		expiration: expiration,
		maxSize:    maxSize,
		logger:     logger.With().Str("component", "s3_store").Logger(),
	}
}

// key maps a catalog reference onto an object key.
func (s *S3Store) key(ref domain.BlobRef) (string, error) {
	if err := ValidateRef(ref); err != nil {
		return "", err
	}
	return ref.Bucket + "/" + ref.Path, nil
}

// Put uploads content with PutObject.
func (s *S3Store) Put(ctx context.Context, ref domain.BlobRef, r io.Reader, size int64, contentType string) (int64, error) {
	key, err := s.key(ref)
	if err != nil {
		return 0, err
	}
	if size < 0 {
		return 0, fmt.Errorf("s3 upload of %s requires a known size", key)
	}
	if s.maxSize > 0 && size > s.maxSize {
		return 0, ErrTooLarge
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          r,
		ContentLength: aws.Int64(size),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return 0, fmt.Errorf("failed to upload %s: %w", key, err)
	}

	s.logger.Debug().
		Str("key", key).
		Int64("size", size).
		Msg("uploaded blob")

	return size, nil
}

// URL presigns a GetObject request valid for the configured expiration.
func (s *S3Store) URL(ctx context.Context, ref domain.BlobRef) (string, *time.Time, error) {
	key, err := s.key(ref)
	if err != nil {
		return "", nil, err
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.expiration))
	if err != nil {
		return "", nil, fmt.Errorf("failed to presign %s: %w", key, err)
	}

	expires := time.Now().UTC().Add(s.expiration)
	return req.URL, &expires, nil
}

// Delete removes the object.
func (s *S3Store) Delete(ctx context.Context, ref domain.BlobRef) error {
	key, err := s.key(ref)
	if err != nil {
		return err
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound"
}

// Ensure S3Store implements BlobStore.
var _ BlobStore = (*S3Store)(nil)
