package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/prn-tf/digital-galaxy/internal/domain"
	"github.com/prn-tf/digital-galaxy/internal/repository"
)

const paymentRequestColumns = `id, user_id, product_id, product_name, description, payment_method,
	status, created_at, decided_at, decided_by`

// paymentRequestRepository implements repository.PaymentRequestRepository.
type paymentRequestRepository struct {
	db *DB
}

// NewPaymentRequestRepository creates a new PostgreSQL payment request repository.
func NewPaymentRequestRepository(db *DB) repository.PaymentRequestRepository {
	return &paymentRequestRepository{db: db}
}

// Create creates a new payment request.
func (r *paymentRequestRepository) Create(ctx context.Context, req *domain.PaymentRequest) error {
	query := `
		INSERT INTO payment_requests (id, user_id, product_id, product_name, description, payment_method, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.exec(ctx, query,
		req.ID,
		req.UserID,
		req.ProductID,
		req.ProductName,
		req.Description,
		req.PaymentMethod,
		string(req.Status),
		req.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrProductNotFound
		}
		return fmt.Errorf("failed to create payment request: %w", err)
	}

	return nil
}

// GetByID retrieves a payment request by ID.
func (r *paymentRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.PaymentRequest, error) {
	reqs, err := queryAll(ctx, r.db, `SELECT `+paymentRequestColumns+` FROM payment_requests WHERE id = $1`, []any{id}, scanPaymentRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment request: %w", err)
	}
	if len(reqs) == 0 {
		return nil, domain.ErrTicketNotFound
	}
	return reqs[0], nil
}

// List returns payment requests matching the filter, newest first.
func (r *paymentRequestRepository) List(ctx context.Context, filter repository.PaymentRequestFilter) (*repository.ListResult[domain.PaymentRequest], error) {
	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.UserID != nil {
		where = append(where, "user_id = "+arg(*filter.UserID))
	}
	if filter.Status != "" {
		where = append(where, "status = "+arg(string(filter.Status)))
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	if err := r.db.scanRow(ctx, `SELECT COUNT(*) FROM payment_requests`+clause, args, &total); err != nil {
		return nil, fmt.Errorf("failed to count payment requests: %w", err)
	}

	query := `SELECT ` + paymentRequestColumns + ` FROM payment_requests` + clause +
		` ORDER BY created_at DESC, id DESC LIMIT ` + arg(limitArg(filter.Limit)) + ` OFFSET ` + arg(filter.Offset)

	reqs, err := queryAll(ctx, r.db, query, args, scanPaymentRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment requests: %w", err)
	}

	return &repository.ListResult[domain.PaymentRequest]{
		Items:  reqs,
		Total:  total,
		Offset: filter.Offset,
		Limit:  filter.Limit,
	}, nil
}

// Decide transitions a pending request in a single conditional update.
func (r *paymentRequestRepository) Decide(ctx context.Context, id uuid.UUID, status domain.TicketStatus, decidedBy uuid.UUID, decidedAt time.Time) (*domain.PaymentRequest, error) {
	query := `
		UPDATE payment_requests
		SET status = $2, decided_at = $3, decided_by = $4
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + paymentRequestColumns

	reqs, err := queryAll(ctx, r.db, query, []any{id, string(status), decidedAt.UTC(), decidedBy}, scanPaymentRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to decide payment request: %w", err)
	}
	if len(reqs) == 1 {
		return reqs[0], nil
	}

	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return current, repository.ErrStateChanged
}

func scanPaymentRequest(row pgx.CollectableRow) (*domain.PaymentRequest, error) {
	req := &domain.PaymentRequest{}
	var status string
	var decidedBy uuid.NullUUID

	err := row.Scan(
		&req.ID,
		&req.UserID,
		&req.ProductID,
		&req.ProductName,
		&req.Description,
		&req.PaymentMethod,
		&status,
		&req.CreatedAt,
		&req.DecidedAt,
		&decidedBy,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan payment request: %w", err)
	}

	req.Status = domain.TicketStatus(status)
	if decidedBy.Valid {
		id := decidedBy.UUID
		req.DecidedBy = &id
	}

	return req, nil
}

// Ensure paymentRequestRepository implements repository.PaymentRequestRepository.
var _ repository.PaymentRequestRepository = (*paymentRequestRepository)(nil)
