package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/prn-tf/digital-galaxy/internal/domain"
	"github.com/prn-tf/digital-galaxy/internal/repository"
)

const productColumns = `id, name, description, category, tags, is_paid, price,
	file_bucket, file_path, external_url, image_bucket, image_path, external_image_url,
	download_count, is_featured, file_size, created_by, created_at, updated_at`

// productRepository implements repository.ProductRepository for SQLite.
type productRepository struct {
	db *DB
}

// NewProductRepository creates a new SQLite product repository.
func NewProductRepository(db *DB) repository.ProductRepository {
	return &productRepository{db: db}
}

// Create creates a new product.
func (r *productRepository) Create(ctx context.Context, p *domain.Product) error {
	tags, err := json.Marshal(p.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	var fileBucket, filePath, imageBucket, imagePath string
	if p.File != nil {
		fileBucket, filePath = p.File.Bucket, p.File.Path
	}
	if p.Image != nil {
		imageBucket, imagePath = p.Image.Bucket, p.Image.Path
	}

	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.exec(ctx, query,
		p.ID,
		p.Name,
		p.Description,
		p.Category,
		string(tags),
		boolToInt(p.IsPaid),
		p.Price.String(),
		fileBucket,
		filePath,
		p.ExternalURL,
		imageBucket,
		imagePath,
		p.ExternalImageURL,
		p.DownloadCount,
		boolToInt(p.IsFeatured),
		p.FileSize,
		p.CreatedBy,
		formatTime(p.CreatedAt),
		formatTime(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// GetByID retrieves a product by ID.
func (r *productRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	products, err := queryAll(ctx, r.db, `SELECT `+productColumns+` FROM products WHERE id = ?`, []any{id}, scanProduct)
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

	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := "%" + escapeLike(s) + "%"
		where = append(where, `(name LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	if filter.Category != "" {
		where = append(where, `category = ?`)
		args = append(args, filter.Category)
	}
	if filter.PaidOnly {
		where = append(where, `is_paid = 1`)
	}
	if filter.FeaturedOnly {
		where = append(where, `is_featured = 1`)
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	if err := r.db.scanRow(ctx, `SELECT COUNT(*) FROM products`+clause, args, &total); err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	query := `SELECT ` + productColumns + ` FROM products` + clause + `
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`

	products, err := queryAll(ctx, r.db, query, append(args, limitArg(filter.Limit), filter.Offset), scanProduct)
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
// The read-modify-write happens inside the single UPDATE statement.
func (r *productRepository) IncrementDownloadCount(ctx context.Context, id uuid.UUID) (int64, error) {
	query := `
		UPDATE products
		SET download_count = download_count + 1
		WHERE id = ?
		RETURNING download_count
	`

	var count int64
	err := r.db.scanRow(ctx, query, []any{id}, &count)
	if err != nil {
		if isNoRows(err) {
			return 0, domain.ErrProductNotFound
		}
		return 0, fmt.Errorf("failed to increment download count: %w", err)
	}

	return count, nil
}

func scanProduct(rows *sql.Rows) (*domain.Product, error) {
	p := &domain.Product{}
	var tags, price, fileBucket, filePath, imageBucket, imagePath, createdAt, updatedAt string
	var isPaid, isFeatured int

	err := rows.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Category,
		&tags,
		&isPaid,
		&price,
		&fileBucket,
		&filePath,
		&p.ExternalURL,
		&imageBucket,
		&imagePath,
		&p.ExternalImageURL,
		&p.DownloadCount,
		&isFeatured,
		&p.FileSize,
		&p.CreatedBy,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan product: %w", err)
	}

	if err := json.Unmarshal([]byte(tags), &p.Tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}
	if err := p.Price.Scan(price); err != nil {
		return nil, fmt.Errorf("failed to decode price: %w", err)
	}

	p.IsPaid = isPaid != 0
	p.IsFeatured = isFeatured != 0
	if fileBucket != "" && filePath != "" {
		p.File = &domain.BlobRef{Bucket: fileBucket, Path: filePath}
	}
	if imageBucket != "" && imagePath != "" {
		p.Image = &domain.BlobRef{Bucket: imageBucket, Path: imagePath}
	}
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)

	return p, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// Ensure productRepository implements repository.ProductRepository.
var _ repository.ProductRepository = (*productRepository)(nil)
