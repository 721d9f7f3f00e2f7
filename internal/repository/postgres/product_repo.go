package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/prn-tf/digital-galaxy/internal/domain"
	"github.com/prn-tf/digital-galaxy/internal/repository"
)

const productColumns = `id, name, description, category, tags, is_paid, price,
	file_bucket, file_path, external_url, image_bucket, image_path, external_image_url,
	download_count, is_featured, file_size, created_by, created_at, updated_at`

// productSelect reads price as text so it round-trips through decimal.Decimal exactly.
const productSelect = `id, name, description, category, tags, is_paid, price::text,
	file_bucket, file_path, external_url, image_bucket, image_path, external_image_url,
	download_count, is_featured, file_size, created_by, created_at, updated_at`

// productRepository implements repository.ProductRepository.
type productRepository struct {
	db *DB
}

// NewProductRepository creates a new PostgreSQL product repository.
func NewProductRepository(db *DB) repository.ProductRepository {
	return &productRepository{db: db}
}

// Create creates a new product.
func (r *productRepository) Create(ctx context.Context, p *domain.Product) error {
	var fileBucket, filePath, imageBucket, imagePath string
	if p.File != nil {
		fileBucket, filePath = p.File.Bucket, p.File.Path
	}
	if p.Image != nil {
		imageBucket, imagePath = p.Image.Bucket, p.Image.Path
	}

	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}

	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	_, err := r.db.exec(ctx, query,
		p.ID,
		p.Name,
		p.Description,
		p.Category,
		tags,
		p.IsPaid,
		p.Price.String(),
		fileBucket,
		filePath,
		p.ExternalURL,
		imageBucket,
		imagePath,
		p.ExternalImageURL,
		p.DownloadCount,
		p.IsFeatured,
		p.FileSize,
		p.CreatedBy,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// GetByID retrieves a product by ID.
func (r *productRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	products, err := queryAll(ctx, r.db, `SELECT `+productSelect+` FROM products WHERE id = $1`, []any{id}, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if len(products) == 0 {
		return nil, domain.ErrProductNotFound
	}
	return products[0], nil
}

// List returns products matching the filter, newest first.
func (r *productRepository) List(ctx context.Context, filter repository.ProductFilter) (*repository.ListResult[domain.Product], error) {
	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if s := strings.TrimSpace(filter.Search); s != "" {
		p := arg("%" + escapeLike(s) + "%")
		where = append(where, "(name ILIKE "+p+" OR description ILIKE "+p+")")
	}
	if filter.Category != "" {
		where = append(where, "category = "+arg(filter.Category))
	}
	if filter.PaidOnly {
		where = append(where, "is_paid")
	}
	if filter.FeaturedOnly {
		where = append(where, "is_featured")
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	if err := r.db.scanRow(ctx, `SELECT COUNT(*) FROM products`+clause, args, &total); err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	query := `SELECT ` + productSelect + ` FROM products` + clause +
		` ORDER BY created_at DESC, id DESC LIMIT ` + arg(limitArg(filter.Limit)) + ` OFFSET ` + arg(filter.Offset)

	products, err := queryAll(ctx, r.db, query, args, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	return &repository.ListResult[domain.Product]{
		Items:  products,
		Total:  total,
		Offset: filter.Offset,
		Limit:  filter.Limit,
	}, nil
}

// IncrementDownloadCount atomically adds one to download_count.
func (r *productRepository) IncrementDownloadCount(ctx context.Context, id uuid.UUID) (int64, error) {
	query := `
		UPDATE products
		SET download_count = download_count + 1
		WHERE id = $1
		RETURNING download_count
	`

	var count int64
	if err := r.db.scanRow(ctx, query, []any{id}, &count); err != nil {
		if isNoRows(err) {
			return 0, domain.ErrProductNotFound
		}
		return 0, fmt.Errorf("failed to increment download count: %w", err)
	}

	return count, nil
}

func scanProduct(row pgx.CollectableRow) (*domain.Product, error) {
	p := &domain.Product{}
	var price string
	var fileBucket, filePath, imageBucket, imagePath string

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Category,
		&p.Tags,
		&p.IsPaid,
		&price,
		&fileBucket,
		&filePath,
		&p.ExternalURL,
		&imageBucket,
		&imagePath,
		&p.ExternalImageURL,
		&p.DownloadCount,
		&p.IsFeatured,
		&p.FileSize,
		&p.CreatedBy,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan product: %w", err)
	}

	if err := p.Price.Scan(price); err != nil {
		return nil, fmt.Errorf("failed to decode price: %w", err)
	}
	if fileBucket != "" && filePath != "" {
		p.File = &domain.BlobRef{Bucket: fileBucket, Path: filePath}
	}
	if imageBucket != "" && imagePath != "" {
		p.Image = &domain.BlobRef{Bucket: imageBucket, Path: imagePath}
	}

	return p, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// Ensure productRepository implements repository.ProductRepository.
var _ repository.ProductRepository = (*productRepository)(nil)
