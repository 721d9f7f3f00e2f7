package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/prn-tf/digital-galaxy/internal/domain"
	"github.com/prn-tf/digital-galaxy/internal/metrics"
	"github.com/prn-tf/digital-galaxy/internal/realtime"
	"github.com/prn-tf/digital-galaxy/internal/repository"
)

// ChatService handles the shared chat log and the notification history.
type ChatService struct {
	chatRepo         repository.ChatRepository
	notificationRepo repository.NotificationRepository
	bus              *EventBus
	metrics          *metrics.Metrics
	logger           zerolog.Logger
	now              func() time.Time
}

// NewChatService creates a new ChatService.
func NewChatService(
	chatRepo repository.ChatRepository,
	notificationRepo repository.NotificationRepository,
	bus *EventBus,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *ChatService {
	return &ChatService{
		chatRepo:         chatRepo,
		notificationRepo: notificationRepo,
		bus:              bus,
		metrics:          m,
		logger:           logger.With().Str("service", "chat").Logger(),
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// PostChatMessage appends a message to the chat log and publishes it.
func (s *ChatService) PostChatMessage(ctx context.Context, principal domain.Principal, text string) (*domain.ChatMessage, error) {
	if err := principal.RequireActive(); err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.NewValidationError("message", "is required")
	}
	if utf8.RuneCountInString(text) > domain.MaxChatMessageLength {
		return nil, domain.NewValidationError("message", fmt.Sprintf("must be at most %d characters", domain.MaxChatMessageLength))
	}

	msg := domain.NewChatMessage(principal, text)
	err := s.bus.Commit(ctx, realtime.NewChatEvent(msg), func(ctx context.Context) error {
		msg.CreatedAt = s.now()
		return s.chatRepo.Create(ctx, msg)
	})
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", principal.ID.String()).Msg("failed to post chat message")
		return nil, err
	}

	s.metrics.ChatMessagePosted()

	s.logger.Debug().
		Str("message_id", msg.ID.String()).
		Str("user_id", principal.ID.String()).
		Bool("is_from_admin", msg.IsFromAdmin).
		Msg("chat message posted")

	return msg, nil
}

// ListChat returns a page of the most recent chat messages, oldest first.
// Offset counts back from the newest message.
func (s *ChatService) ListChat(ctx context.Context, principal domain.Principal, opts repository.ListOptions) ([]*domain.ChatMessage, error) {
	if err := principal.RequireActive(); err != nil {
		return nil, err
	}

	limit, offset := page(opts.Limit, opts.Offset)
	msgs, err := s.chatRepo.List(ctx, repository.ListOptions{Limit: limit, Offset: offset, Descending: true})
	if err != nil {
		return nil, internal(err)
	}
	slices.Reverse(msgs)
	return msgs, nil
}

// ListNotifications returns broadcast notifications newest first.
func (s *ChatService) ListNotifications(ctx context.Context, principal domain.Principal, opts repository.ListOptions) ([]*domain.Notification, error) {
	if !principal.IsAuthenticated() {
		return nil, domain.ErrNotAuthenticated
	}

	limit, offset := page(opts.Limit, opts.Offset)
	items, err := s.notificationRepo.List(ctx, repository.ListOptions{Limit: limit, Offset: offset, Descending: true})
	if err != nil {
		return nil, internal(err)
	}
	return items, nil
}
