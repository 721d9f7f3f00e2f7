package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/prn-tf/digital-galaxy/internal/domain"
	"github.com/prn-tf/digital-galaxy/internal/repository"
)

// notificationRepository implements repository.NotificationRepository for SQLite.
type notificationRepository struct {
	db *DB
}

// NewNotificationRepository creates a new SQLite notification repository.
func NewNotificationRepository(db *DB) repository.NotificationRepository {
	return &notificationRepository{db: db}
}

// Create appends a notification.
func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	query := `INSERT INTO notifications (id, title, message, created_at) VALUES (?, ?, ?, ?)`

	if _, err := r.db.exec(ctx, query, n.ID, n.Title, n.Message, formatTime(n.CreatedAt)); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

// List returns notifications ordered by created_at then id.
func (r *notificationRepository) List(ctx context.Context, opts repository.ListOptions) ([]*domain.Notification, error) {
	query := `
		SELECT id, title, message, created_at
		FROM notifications
		ORDER BY created_at ` + direction(opts.Descending) + `, id ` + direction(opts.Descending) + `
		LIMIT ? OFFSET ?
	`

	items, err := queryAll(ctx, r.db, query, []any{limitArg(opts.Limit), opts.Offset}, func(rows *sql.Rows) (*domain.Notification, error) {
		n := &domain.Notification{}
		var createdAt string

		if err := rows.Scan(&n.ID, &n.Title, &n.Message, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}

		n.CreatedAt = parseTime(createdAt)
		return n, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	return items, nil
}

// Ensure notificationRepository implements repository.NotificationRepository.
var _ repository.NotificationRepository = (*notificationRepository)(nil)
