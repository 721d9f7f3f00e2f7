package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// ProductBucket holds downloadable product files.
	ProductBucket = "products"

	// ImageBucket holds product preview images.
	ImageBucket = "imageproduct"
)

// BlobRef points at an object in the blob store.
type BlobRef struct {
	Bucket string `json:"bucket"`
	Path   string `json:"path"`
}

// IsZero reports whether the reference is unset.
func (r BlobRef) IsZero() bool {
	return r.Bucket == "" || r.Path == ""
}

// Product is a catalog entry.
type Product struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category,omitempty"`
	Tags        []string  `json:"tags"`

	// IsPaid products can only be acquired through a payment request.
	IsPaid bool            `json:"is_paid"`
	Price  decimal.Decimal `json:"price"`

	// File is the stored file handed out on download.
	File *BlobRef `json:"file,omitempty"`

	// ExternalURL is used when the product is hosted elsewhere.
	ExternalURL string `json:"external_url,omitempty"`

	Image            *BlobRef `json:"image,omitempty"`
	ExternalImageURL string   `json:"external_image_url,omitempty"`

	// DownloadCount is only ever changed by an atomic store increment.
	DownloadCount int64 `json:"download_count"`

	IsFeatured bool      `json:"is_featured"`
	FileSize   int64     `json:"file_size"`
	CreatedBy  uuid.UUID `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewProduct creates a product with normalized pricing.
func NewProduct(name, description string, isPaid bool, price decimal.Decimal, createdBy uuid.UUID) *Product {
	now := time.Now().UTC()
	if !isPaid {
		price = decimal.Zero
	}
	return &Product{
		ID:          NewID(),
		Name:        name,
		Description: description,
		Tags:        []string{},
		IsPaid:      isPaid,
		Price:       price,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsDownloadable reports whether the product carries something to hand out.
func (p *Product) IsDownloadable() bool {
	return (p.File != nil && !p.File.IsZero()) || p.ExternalURL != ""
}

// ParseTags splits a comma separated tag list, dropping empty entries.
func ParseTags(raw string) []string {
	tags := []string{}
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// RetrievalKind says where a RetrievalReference points.
type RetrievalKind string

const (
	RetrievalFile     RetrievalKind = "file"
	RetrievalExternal RetrievalKind = "external"
)

// RetrievalReference is returned by a successful download.
type RetrievalReference struct {
	// DownloadID is unique per download call.
	DownloadID    uuid.UUID     `json:"download_id"`
	ProductID     uuid.UUID     `json:"product_id"`
	Kind          RetrievalKind `json:"kind"`
	URL           string        `json:"url"`
	ExpiresAt     *time.Time    `json:"expires_at,omitempty"`
	DownloadCount int64         `json:"download_count"`
}
