package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/prn-tf/digital-galaxy/internal/domain"
	"github.com/prn-tf/digital-galaxy/internal/repository"
)

// chatRepository implements repository.ChatRepository.
type chatRepository struct {
	db *DB
}

// NewChatRepository creates a new PostgreSQL chat repository.
func NewChatRepository(db *DB) repository.ChatRepository {
	return &chatRepository{db: db}
}

// Create appends a chat message.
func (r *chatRepository) Create(ctx context.Context, msg *domain.ChatMessage) error {
	query := `
		INSERT INTO chats (id, from_user_id, message, is_from_admin, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.db.exec(ctx, query, msg.ID, msg.FromUserID, msg.Message, msg.IsFromAdmin, msg.CreatedAt); err != nil {
		return fmt.Errorf("failed to create chat message: %w", err)
	}
	return nil
}

// List returns chat messages ordered by created_at then id.
func (r *chatRepository) List(ctx context.Context, opts repository.ListOptions) ([]*domain.ChatMessage, error) {
	dir := direction(opts.Descending)
	query := `
		SELECT id, from_user_id, message, is_from_admin, created_at
		FROM chats
		ORDER BY created_at ` + dir + `, id ` + dir + `
		LIMIT $1 OFFSET $2
	`

	msgs, err := queryAll(ctx, r.db, query, []any{limitArg(opts.Limit), opts.Offset}, func(row pgx.CollectableRow) (*domain.ChatMessage, error) {
		msg := &domain.ChatMessage{}
		err := row.Scan(&msg.ID, &msg.FromUserID, &msg.Message, &msg.IsFromAdmin, &msg.CreatedAt)
		return msg, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}
	return msgs, nil
}

// notificationRepository implements repository.NotificationRepository.
type notificationRepository struct {
	db *DB
}

// NewNotificationRepository creates a new PostgreSQL notification repository.
func NewNotificationRepository(db *DB) repository.NotificationRepository {
	return &notificationRepository{db: db}
}

// Create appends a notification.
func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	query := `INSERT INTO notifications (id, title, message, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := r.db.exec(ctx, query, n.ID, n.Title, n.Message, n.CreatedAt); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// List returns notifications ordered by created_at then id.
func (r *notificationRepository) List(ctx context.Context, opts repository.ListOptions) ([]*domain.Notification, error) {
	dir := direction(opts.Descending)
	query := `
		SELECT id, title, message, created_at
		FROM notifications
		ORDER BY created_at ` + dir + `, id ` + dir + `
		LIMIT $1 OFFSET $2
	`

	items, err := queryAll(ctx, r.db, query, []any{limitArg(opts.Limit), opts.Offset}, func(row pgx.CollectableRow) (*domain.Notification, error) {
		n := &domain.Notification{}
		err := row.Scan(&n.ID, &n.Title, &n.Message, &n.CreatedAt)
		return n, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return items, nil
}

func direction(descending bool) string {
	if descending {
		return "DESC"
	}
	return "ASC"
}

// Ensure the repositories implement their interfaces.
var (
	_ repository.ChatRepository         = (*chatRepository)(nil)
	_ repository.NotificationRepository = (*notificationRepository)(nil)
)
