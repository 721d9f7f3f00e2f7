package service

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/prn-tf/digital-galaxy/internal/domain"
	"github.com/prn-tf/digital-galaxy/internal/repository"
	"github.com/prn-tf/digital-galaxy/internal/storage"
)

// MaxProductNameLength bounds product names.
const MaxProductNameLength = 200

// CatalogService handles product listing and creation.
type CatalogService struct {
	productRepo repository.ProductRepository
	blobs       storage.BlobStore
	logger      zerolog.Logger
	now         func() time.Time
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(productRepo repository.ProductRepository, blobs storage.BlobStore, logger zerolog.Logger) *CatalogService {
	return &CatalogService{
		productRepo: productRepo,
		blobs:       blobs,
		logger:      logger.With().Str("service", "catalog").Logger(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// ListProductsInput narrows a product listing.
type ListProductsInput struct {
	Search       string
	Category     string
	PaidOnly     bool
	FeaturedOnly bool
	Limit        int
	Offset       int
}

// ListProducts returns catalog entries newest first.
func (s *CatalogService) ListProducts(ctx context.Context, input ListProductsInput) (*repository.ListResult[domain.Product], error) {
	limit, offset := page(input.Limit, input.Offset)
	result, err := s.productRepo.List(ctx, repository.ProductFilter{
		ListOptions:  repository.ListOptions{Limit: limit, Offset: offset, Descending: true},
		Search:       strings.TrimSpace(input.Search),
		Category:     strings.TrimSpace(input.Category),
		PaidOnly:     input.PaidOnly,
		FeaturedOnly: input.FeaturedOnly,
	})
	if err != nil {
		return nil, internal(err)
	}
	return result, nil
}

// GetProduct returns one catalog entry.
func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, internal(err)
	}
	return product, nil
}

// Upload is a file received with a product.
type Upload struct {
	Filename    string
	ContentType string
	// Size is -1 when unknown.
	Size int64
	Body io.Reader
}

// CreateProductInput contains the data needed to create a product.
type CreateProductInput struct {
	Name             string
	Description      string
	Category         string
	Tags             string
	IsPaid           bool
	Price            decimal.Decimal
	IsFeatured       bool
	ExternalURL      string
	ExternalImageURL string
	File             *Upload
	Image            *Upload
}

// CreateProduct adds a product to the catalog, storing any uploaded file and image.
func (s *CatalogService) CreateProduct(ctx context.Context, principal domain.Principal, input CreateProductInput) (*domain.Product, error) {
	if err := principal.RequireAdmin(); err != nil {
		return nil, err
	}
	if err := s.validateCreateInput(&input); err != nil {
		return nil, err
	}

	product := domain.NewProduct(input.Name, input.Description, input.IsPaid, input.Price, principal.ID)
	product.Category = input.Category
	product.Tags = domain.ParseTags(input.Tags)
	product.IsFeatured = input.IsFeatured
	product.ExternalURL = input.ExternalURL
	product.ExternalImageURL = input.ExternalImageURL

	var stored []domain.BlobRef
	cleanup := func() {
		for _, ref := range stored {
			if err := s.blobs.Delete(context.WithoutCancel(ctx), ref); err != nil {
				s.logger.Warn().Err(err).Str("bucket", ref.Bucket).Str("path", ref.Path).Msg("failed to remove orphaned upload")
			}
		}
	}

	if input.File != nil {
		ref, size, err := s.store(ctx, domain.ProductBucket, input.File)
		if err != nil {
			return nil, err
		}
		stored = append(stored, ref)
		product.File = &ref
		product.FileSize = size
	}

	if input.Image != nil {
		ref, _, err := s.store(ctx, domain.ImageBucket, input.Image)
		if err != nil {
			cleanup()
			return nil, err
		}
		stored = append(stored, ref)
		product.Image = &ref
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		s.logger.Error().Err(err).Str("name", product.Name).Msg("failed to create product")
		cleanup()
		return nil, internal(err)
	}

	s.logger.Info().
		Str("product_id", product.ID.String()).
		Str("name", product.Name).
		Bool("is_paid", product.IsPaid).
		Bool("has_file", product.File != nil).
		Msg("product created")

	return product, nil
}

func (s *CatalogService) store(ctx context.Context, bucket string, up *Upload) (domain.BlobRef, int64, error) {
	ref := domain.BlobRef{Bucket: bucket, Path: storage.ObjectKey(s.now(), up.Filename)}

	size, err := s.blobs.Put(ctx, ref, up.Body, up.Size, up.ContentType)
	if err != nil {
		s.logger.Error().Err(err).Str("bucket", bucket).Str("path", ref.Path).Msg("failed to store upload")
		field := "file"
		if bucket == domain.ImageBucket {
			field = "image"
		}
		switch {
		case errors.Is(err, storage.ErrTooLarge):
			return domain.BlobRef{}, 0, domain.NewValidationError(field, "is too large")
		case errors.Is(err, storage.ErrSizeMismatch):
			return domain.BlobRef{}, 0, domain.NewValidationError(field, "size does not match body")
		}
		return domain.BlobRef{}, 0, internal(err)
	}
	return ref, size, nil
}

func (s *CatalogService) validateCreateInput(input *CreateProductInput) error {
	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)
	input.Category = strings.TrimSpace(input.Category)
	input.ExternalURL = strings.TrimSpace(input.ExternalURL)
	input.ExternalImageURL = strings.TrimSpace(input.ExternalImageURL)

	if input.Name == "" {
		return domain.NewValidationError("name", "is required")
	}
	if len([]rune(input.Name)) > MaxProductNameLength {
		return domain.NewValidationError("name", "must be at most 200 characters")
	}
	if input.IsPaid && !input.Price.IsPositive() {
		return domain.NewValidationError("price", "must be greater than zero for paid products")
	}
	if !input.IsPaid && input.Price.IsNegative() {
		return domain.NewValidationError("price", "must not be negative")
	}
	if input.ExternalURL != "" && !isHTTPURL(input.ExternalURL) {
		return domain.NewValidationError("external_url", "must be an http or https URL")
	}
	if input.ExternalImageURL != "" && !isHTTPURL(input.ExternalImageURL) {
		return domain.NewValidationError("external_image_url", "must be an http or https URL")
	}
	return nil
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
