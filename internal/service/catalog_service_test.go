package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/digital-galaxy/internal/domain"
	"github.com/prn-tf/digital-galaxy/internal/repository"
	"github.com/prn-tf/digital-galaxy/internal/storage"
)

func TestCatalogService_CreateProduct(t *testing.T) {
	admin := principalOf(testUser(true, false))

	t.Run("stores file and image", func(t *testing.T) {
		products := newMemProducts()
		blobs := new(mockBlobStore)
		svc := NewCatalogService(products, blobs, zerolog.Nop())

		blobs.On("Put", mock.Anything, mock.MatchedBy(func(ref domain.BlobRef) bool {
			return ref.Bucket == domain.ProductBucket && strings.HasSuffix(ref.Path, "-star-map-v2.zip")
		}), mock.Anything, int64(4), "application/zip").Return(int64(4), nil)
		blobs.On("Put", mock.Anything, mock.MatchedBy(func(ref domain.BlobRef) bool {
			return ref.Bucket == domain.ImageBucket
		}), mock.Anything, int64(-1), "image/png").Return(int64(10), nil)

		product, err := svc.CreateProduct(context.Background(), admin, CreateProductInput{
			Name:   "  Star Map ",
			Tags:   "maps, space ,,stars",
			IsPaid: true,
			Price:  decimal.RequireFromString("4.50"),
			File:   &Upload{Filename: "star map v2.zip", ContentType: "application/zip", Size: 4, Body: strings.NewReader("data")},
			Image:  &Upload{Filename: "cover.png", ContentType: "image/png", Size: -1, Body: strings.NewReader("0123456789")},
		})
		require.NoError(t, err)
		assert.Equal(t, "Star Map", product.Name)
		assert.Equal(t, []string{"maps", "space", "stars"}, product.Tags)
		require.NotNil(t, product.File)
		require.NotNil(t, product.Image)
		assert.Equal(t, int64(4), product.FileSize)

		stored, err := svc.GetProduct(context.Background(), product.ID)
		require.NoError(t, err)
		assert.True(t, stored.Price.Equal(decimal.RequireFromString("4.5")))
		blobs.AssertExpectations(t)
	})

	t.Run("free product has zero price", func(t *testing.T) {
		svc := NewCatalogService(newMemProducts(), new(mockBlobStore), zerolog.Nop())
		product, err := svc.CreateProduct(context.Background(), admin, CreateProductInput{
			Name:        "Freebie",
			Price:       decimal.NewFromInt(3),
			ExternalURL: "https://cdn.example.com/free.zip",
		})
		require.NoError(t, err)
		assert.True(t, product.Price.IsZero())
		assert.True(t, product.IsDownloadable())
	})

	t.Run("image failure removes stored file", func(t *testing.T) {
		blobs := new(mockBlobStore)
		svc := NewCatalogService(newMemProducts(), blobs, zerolog.Nop())

		blobs.On("Put", mock.Anything, mock.MatchedBy(func(ref domain.BlobRef) bool {
			return ref.Bucket == domain.ProductBucket
		}), mock.Anything, mock.Anything, mock.Anything).Return(int64(4), nil)
		blobs.On("Put", mock.Anything, mock.MatchedBy(func(ref domain.BlobRef) bool {
			return ref.Bucket == domain.ImageBucket
		}), mock.Anything, mock.Anything, mock.Anything).Return(int64(0), storage.ErrTooLarge)
		blobs.On("Delete", mock.Anything, mock.MatchedBy(func(ref domain.BlobRef) bool {
			return ref.Bucket == domain.ProductBucket
		})).Return(nil)

		_, err := svc.CreateProduct(context.Background(), admin, CreateProductInput{
			Name:  "Broken",
			File:  &Upload{Filename: "a.zip", Size: 4, Body: strings.NewReader("data")},
			Image: &Upload{Filename: "huge.png", Size: 1 << 40, Body: strings.NewReader("")},
		})
		var verr *domain.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "image", verr.Field)
		blobs.AssertExpectations(t)
	})

	tests := []struct {
		name      string
		principal domain.Principal
		input     CreateProductInput
		wantErr   error
		wantField string
	}{
		{"anonymous", domain.Anonymous(), CreateProductInput{Name: "x"}, domain.ErrNotAuthenticated, ""},
		{"non admin", principalOf(testUser(false, false)), CreateProductInput{Name: "x"}, domain.ErrForbidden, ""},
		{"missing name", admin, CreateProductInput{Name: "  "}, domain.ErrValidationFailed, "name"},
		{"paid without price", admin, CreateProductInput{Name: "x", IsPaid: true}, domain.ErrValidationFailed, "price"},
		{"negative price", admin, CreateProductInput{Name: "x", Price: decimal.NewFromInt(-1)}, domain.ErrValidationFailed, "price"},
		{"bad external url", admin, CreateProductInput{Name: "x", ExternalURL: "ftp://x"}, domain.ErrValidationFailed, "external_url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blobs := new(mockBlobStore)
			svc := NewCatalogService(newMemProducts(), blobs, zerolog.Nop())

			_, err := svc.CreateProduct(context.Background(), tt.principal, tt.input)
			require.ErrorIs(t, err, tt.wantErr)
			if tt.wantField != "" {
				var verr *domain.ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, tt.wantField, verr.Field)
			}
			blobs.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestCatalogService_ListProducts(t *testing.T) {
	products := new(mockProductRepository)
	svc := NewCatalogService(products, new(mockBlobStore), zerolog.Nop())

	products.On("List", mock.Anything, mock.MatchedBy(func(f repository.ProductFilter) bool {
		return f.Search == "nebula" && f.PaidOnly && f.Limit == DefaultPageSize && f.Descending
	})).Return(&repository.ListResult[domain.Product]{Items: []*domain.Product{paidProduct()}, Total: 1}, nil).Once()

	result, err := svc.ListProducts(context.Background(), ListProductsInput{Search: " nebula ", PaidOnly: true})
	require.NoError(t, err)
	assert.Len(t, result.Items, 1)

	products.On("List", mock.Anything, mock.Anything).Return(nil, domain.ErrUnavailable).Once()
	_, err = svc.ListProducts(context.Background(), ListProductsInput{})
	require.ErrorIs(t, err, domain.ErrUnavailable)

	products.On("GetByID", mock.Anything, mock.Anything).Return(nil, domain.ErrProductNotFound).Once()
	_, err = svc.GetProduct(context.Background(), domain.NewID())
	require.ErrorIs(t, err, domain.ErrNotFound)

	products.AssertExpectations(t)
}
