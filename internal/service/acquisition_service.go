package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prn-tf/digital-galaxy/internal/domain"
	"github.com/prn-tf/digital-galaxy/internal/metrics"
	"github.com/prn-tf/digital-galaxy/internal/repository"
	"github.com/prn-tf/digital-galaxy/internal/storage"
)

// AcquisitionService handles downloads of free products and payment
// requests for paid ones.
type AcquisitionService struct {
	productRepo repository.ProductRepository
	ticketRepo  repository.PaymentRequestRepository
	blobs       storage.BlobStore
	metrics     *metrics.Metrics
	logger      zerolog.Logger
	now         func() time.Time
}

// NewAcquisitionService creates a new AcquisitionService.
func NewAcquisitionService(
	productRepo repository.ProductRepository,
	ticketRepo repository.PaymentRequestRepository,
	blobs storage.BlobStore,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *AcquisitionService {
	return &AcquisitionService{
		productRepo: productRepo,
		ticketRepo:  ticketRepo,
		blobs:       blobs,
		metrics:     m,
		logger:      logger.With().Str("service", "acquisition").Logger(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Download counts one acquisition of a free product and returns where to fetch it.
func (s *AcquisitionService) Download(ctx context.Context, principal domain.Principal, productID uuid.UUID) (*domain.RetrievalReference, error) {
	if err := principal.RequireActive(); err != nil {
		return nil, err
	}

	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, internal(err)
	}

	if product.IsPaid {
		return nil, domain.NewValidationError("product_id", "product requires a payment request")
	}
	if !product.IsDownloadable() {
		return nil, domain.NewValidationError("product_id", "product has no downloadable content")
	}

	count, err := s.productRepo.IncrementDownloadCount(ctx, product.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("product_id", product.ID.String()).Msg("failed to increment download count")
		return nil, internal(err)
	}

	ref := &domain.RetrievalReference{
		DownloadID:    domain.NewID(),
		ProductID:     product.ID,
		DownloadCount: count,
	}

	if product.File != nil && !product.File.IsZero() {
		url, expiresAt, err := s.blobs.URL(ctx, *product.File)
		if err != nil {
			s.logger.Error().Err(err).Str("product_id", product.ID.String()).Msg("failed to build download URL")
			if errors.Is(err, storage.ErrBlobNotFound) {
				return nil, domain.NewDomainError(domain.ErrNotFound, "product file is missing", product.ID.String())
			}
			return nil, internal(err)
		}
		ref.Kind = domain.RetrievalFile
		ref.URL = url
		ref.ExpiresAt = expiresAt
	} else {
		ref.Kind = domain.RetrievalExternal
		ref.URL = product.ExternalURL
	}

	s.metrics.DownloadRecorded(string(ref.Kind))

	s.logger.Info().
		Str("product_id", product.ID.String()).
		Str("user_id", principal.ID.String()).
		Str("download_id", ref.DownloadID.String()).
		Int64("download_count", count).
		Msg("product downloaded")

	return ref, nil
}

// CreateTicketInput contains the data needed to request access to a paid product.
type CreateTicketInput struct {
	ProductID     uuid.UUID
	Description   string
	PaymentMethod string
}

// CreateTicket records a pending payment request.
func (s *AcquisitionService) CreateTicket(ctx context.Context, principal domain.Principal, input CreateTicketInput) (*domain.PaymentRequest, error) {
	if err := principal.RequireActive(); err != nil {
		return nil, err
	}

	product, err := s.productRepo.GetByID(ctx, input.ProductID)
	if err != nil {
		return nil, internal(err)
	}

	if !product.IsPaid {
		return nil, domain.NewValidationError("product_id", "product is free")
	}
	if err := domain.ValidateDescription(input.Description); err != nil {
		return nil, err
	}

	method := strings.TrimSpace(input.PaymentMethod)
	if utf8.RuneCountInString(method) > domain.MaxPaymentMethodLength {
		return nil, domain.NewValidationError("payment_method", "must be at most 64 characters")
	}

	ticket := domain.NewPaymentRequest(principal.ID, product, strings.TrimSpace(input.Description), method)
	ticket.CreatedAt = s.now()

	if err := s.ticketRepo.Create(ctx, ticket); err != nil {
		s.logger.Error().Err(err).Str("product_id", product.ID.String()).Msg("failed to create payment request")
		return nil, internal(err)
	}

	s.metrics.TicketCreated()

	s.logger.Info().
		Str("ticket_id", ticket.ID.String()).
		Str("product_id", product.ID.String()).
		Str("user_id", principal.ID.String()).
		Msg("payment request created")

	return ticket, nil
}

// DecideTicket moves a pending payment request to approved or rejected.
// A request is decided at most once; later attempts report a conflict carrying
// the stored status.
func (s *AcquisitionService) DecideTicket(ctx context.Context, principal domain.Principal, ticketID uuid.UUID, outcome domain.TicketStatus) (*domain.PaymentRequest, error) {
	if err := principal.RequireAdmin(); err != nil {
		return nil, err
	}
	if !outcome.IsOutcome() {
		return nil, domain.NewValidationError("outcome", "must be approved or rejected")
	}

	ticket, err := s.ticketRepo.Decide(ctx, ticketID, outcome, principal.ID, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrStateChanged) && ticket != nil {
			s.logger.Debug().
				Str("ticket_id", ticketID.String()).
				Str("status", string(ticket.Status)).
				Msg("payment request already decided")
			return nil, domain.NewConflictError(string(domain.TicketPending), string(ticket.Status))
		}
		return nil, internal(err)
	}

	s.metrics.TicketDecided(string(outcome))

	s.logger.Info().
		Str("ticket_id", ticket.ID.String()).
		Str("status", string(ticket.Status)).
		Str("decided_by", principal.ID.String()).
		Msg("payment request decided")

	return ticket, nil
}

// ListTicketsInput narrows a payment request listing.
type ListTicketsInput struct {
	Status domain.TicketStatus
	Limit  int
	Offset int
}

// ListTickets returns payment requests newest first. Administrators see every
// request; other users see only their own.
func (s *AcquisitionService) ListTickets(ctx context.Context, principal domain.Principal, input ListTicketsInput) (*repository.ListResult[domain.PaymentRequest], error) {
	if err := principal.RequireActive(); err != nil {
		return nil, err
	}
	if input.Status != "" && !input.Status.IsValid() {
		return nil, domain.NewValidationError("status", "must be pending, approved or rejected")
	}

	limit, offset := page(input.Limit, input.Offset)
	filter := repository.PaymentRequestFilter{
		ListOptions: repository.ListOptions{Limit: limit, Offset: offset, Descending: true},
		Status:      input.Status,
	}
	if !principal.IsAdmin() {
		id := principal.ID
		filter.UserID = &id
	}

	result, err := s.ticketRepo.List(ctx, filter)
	if err != nil {
		return nil, internal(err)
	}
	return result, nil
}
