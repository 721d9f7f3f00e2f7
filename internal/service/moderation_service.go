package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prn-tf/digital-galaxy/internal/domain"
	"github.com/prn-tf/digital-galaxy/internal/realtime"
	"github.com/prn-tf/digital-galaxy/internal/repository"
)

// ModerationService holds the administrator operations. Every method checks
// the principal before touching the store.
type ModerationService struct {
	userRepo         repository.UserRepository
	notificationRepo repository.NotificationRepository
	acquisition      *AcquisitionService
	bus              *EventBus
	announce         bool
	logger           zerolog.Logger
	now              func() time.Time
}

// ModerationOptions configures a ModerationService.
type ModerationOptions struct {
	// AnnounceDecisions broadcasts a notification after each payment request decision.
	AnnounceDecisions bool
}

// NewModerationService creates a new ModerationService.
func NewModerationService(
	userRepo repository.UserRepository,
	notificationRepo repository.NotificationRepository,
	acquisition *AcquisitionService,
	bus *EventBus,
	opts ModerationOptions,
	logger zerolog.Logger,
) *ModerationService {
	return &ModerationService{
		userRepo:         userRepo,
		notificationRepo: notificationRepo,
		acquisition:      acquisition,
		bus:              bus,
		announce:         opts.AnnounceDecisions,
		logger:           logger.With().Str("service", "moderation").Logger(),
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// SetBlocked blocks or unblocks a user. Repeating the current value succeeds.
func (s *ModerationService) SetBlocked(ctx context.Context, principal domain.Principal, userID uuid.UUID, blocked bool) error {
	if err := principal.RequireAdmin(); err != nil {
		return err
	}
	if userID == principal.ID {
		return domain.NewValidationError("user_id", "cannot change own block status")
	}

	if err := s.userRepo.SetBlocked(ctx, userID, blocked); err != nil {
		return internal(err)
	}

	s.logger.Info().
		Str("user_id", userID.String()).
		Bool("blocked", blocked).
		Str("admin_id", principal.ID.String()).
		Msg("user block status changed")

	return nil
}

// BroadcastNotification stores a notification and publishes it to every
// notifications subscriber.
func (s *ModerationService) BroadcastNotification(ctx context.Context, principal domain.Principal, title, message string) (*domain.Notification, error) {
	if err := principal.RequireAdmin(); err != nil {
		return nil, err
	}

	title = strings.TrimSpace(title)
	message = strings.TrimSpace(message)

	switch {
	case title == "":
		return nil, domain.NewValidationError("title", "is required")
	case utf8.RuneCountInString(title) > domain.MaxNotificationTitleLength:
		return nil, domain.NewValidationError("title", fmt.Sprintf("must be at most %d characters", domain.MaxNotificationTitleLength))
	case message == "":
		return nil, domain.NewValidationError("message", "is required")
	case utf8.RuneCountInString(message) > domain.MaxNotificationMessageLength:
		return nil, domain.NewValidationError("message", fmt.Sprintf("must be at most %d characters", domain.MaxNotificationMessageLength))
	}

	n, err := s.publish(ctx, title, message)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("notification_id", n.ID.String()).
		Str("admin_id", principal.ID.String()).
		Msg("notification broadcast")

	return n, nil
}

func (s *ModerationService) publish(ctx context.Context, title, message string) (*domain.Notification, error) {
	n := domain.NewNotification(title, message)
	err := s.bus.Commit(ctx, realtime.NewNotificationEvent(n), func(ctx context.Context) error {
		// Stamp inside the lock so created_at follows publication order.
		n.CreatedAt = s.now()
		return s.notificationRepo.Create(ctx, n)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to broadcast notification")
		return nil, err
	}
	return n, nil
}

// DecideTicket decides a payment request on behalf of an administrator.
func (s *ModerationService) DecideTicket(ctx context.Context, principal domain.Principal, ticketID uuid.UUID, outcome domain.TicketStatus) (*domain.PaymentRequest, error) {
	ticket, err := s.acquisition.DecideTicket(ctx, principal, ticketID, outcome)
	if err != nil {
		return nil, err
	}

	if s.announce {
		title := "Payment request " + string(ticket.Status)
		message := fmt.Sprintf("The payment request for %q was %s.", ticket.ProductName, ticket.Status)
		if _, err := s.publish(ctx, title, message); err != nil {
			// The decision is already committed.
			s.logger.Warn().Err(err).Str("ticket_id", ticket.ID.String()).Msg("failed to announce decision")
		}
	}

	return ticket, nil
}

// ListUsers returns user profiles newest first.
func (s *ModerationService) ListUsers(ctx context.Context, principal domain.Principal, opts repository.ListOptions) (*repository.ListResult[domain.User], error) {
	if err := principal.RequireAdmin(); err != nil {
		return nil, err
	}

	limit, offset := page(opts.Limit, opts.Offset)
	result, err := s.userRepo.List(ctx, repository.ListOptions{Limit: limit, Offset: offset, Descending: true})
	if err != nil {
		return nil, internal(err)
	}
	return result, nil
}
