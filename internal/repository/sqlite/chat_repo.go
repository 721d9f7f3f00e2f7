package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/prn-tf/digital-galaxy/internal/domain"
	"github.com/prn-tf/digital-galaxy/internal/repository"
)

// chatRepository implements repository.ChatRepository for SQLite.
type chatRepository struct {
	db *DB
}

// NewChatRepository creates a new SQLite chat repository.
func NewChatRepository(db *DB) repository.ChatRepository {
	return &chatRepository{db: db}
}

// Create appends a chat message.
func (r *chatRepository) Create(ctx context.Context, msg *domain.ChatMessage) error {
	query := `
		INSERT INTO chats (id, from_user_id, message, is_from_admin, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.exec(ctx, query,
		msg.ID,
		msg.FromUserID,
		msg.Message,
		boolToInt(msg.IsFromAdmin),
		formatTime(msg.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create chat message: %w", err)
	}

	return nil
}

// List returns chat messages ordered by created_at then id.
func (r *chatRepository) List(ctx context.Context, opts repository.ListOptions) ([]*domain.ChatMessage, error) {
	query := `
		SELECT id, from_user_id, message, is_from_admin, created_at
		FROM chats
		ORDER BY created_at ` + direction(opts.Descending) + `, id ` + direction(opts.Descending) + `
		LIMIT ? OFFSET ?
	`

	msgs, err := queryAll(ctx, r.db, query, []any{limitArg(opts.Limit), opts.Offset}, func(rows *sql.Rows) (*domain.ChatMessage, error) {
		msg := &domain.ChatMessage{}
		var isFromAdmin int
		var createdAt string

		if err := rows.Scan(&msg.ID, &msg.FromUserID, &msg.Message, &isFromAdmin, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}

		msg.IsFromAdmin = isFromAdmin != 0
		msg.CreatedAt = parseTime(createdAt)
		return msg, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}

	return msgs, nil
}

func direction(descending bool) string {
	if descending {
		return "DESC"
	}
	return "ASC"
}

// Ensure chatRepository implements repository.ChatRepository.
var _ repository.ChatRepository = (*chatRepository)(nil)
