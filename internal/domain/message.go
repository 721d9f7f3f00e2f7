package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	MaxChatMessageLength         = 2000
	MaxNotificationTitleLength   = 200
	MaxNotificationMessageLength = 4000
)

// ChatMessage is one entry of the shared conversation log.
// Messages are append-only and ordered by CreatedAt then ID.
type ChatMessage struct {
	ID          uuid.UUID `json:"id"`
	FromUserID  uuid.UUID `json:"from_user_id"`
	Message     string    `json:"message"`
	IsFromAdmin bool      `json:"is_from_admin"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewChatMessage creates a message authored by the given principal.
func NewChatMessage(from Principal, text string) *ChatMessage {
	return &ChatMessage{
		ID:          NewID(),
		FromUserID:  from.ID,
		Message:     text,
		IsFromAdmin: from.IsAdmin(),
		CreatedAt:   time.Now().UTC(),
	}
}

// Notification is broadcast to every user.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// NewNotification creates a notification.
func NewNotification(title, message string) *Notification {
	return &Notification{
		ID:        NewID(),
		Title:     title,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
}
