// Package repository defines data access interfaces for Digital Galaxy.
// These interfaces abstract database operations, allowing for different implementations
// (PostgreSQL, SQLite, in-memory for testing) while keeping the service layer clean.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/prn-tf/digital-galaxy/internal/domain"
)

// =============================================================================
// User Repository
// =============================================================================

// UserRepository defines the interface for user profile data access.
type UserRepository interface {
	// Create creates a new user. Returns domain.ErrUserAlreadyExists on a duplicate email.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByEmail retrieves a user by email.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// SetBlocked sets the block flag. Setting the current value again succeeds.
	// Returns domain.ErrUserNotFound if the user does not exist.
	SetBlocked(ctx context.Context, id uuid.UUID, blocked bool) error

	// List returns users with pagination.
	List(ctx context.Context, opts ListOptions) (*ListResult[domain.User], error)
}

// =============================================================================
// Product Repository
// =============================================================================

// ProductRepository defines the interface for catalog data access.
type ProductRepository interface {
	// Create creates a new product.
	Create(ctx context.Context, product *domain.Product) error

	// GetByID retrieves a product by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)

	// List returns products matching the filter, newest first.
	List(ctx context.Context, filter ProductFilter) (*ListResult[domain.Product], error)

	// IncrementDownloadCount atomically adds one to download_count and
	// returns the new value. Returns domain.ErrProductNotFound if the product does not exist.
	IncrementDownloadCount(ctx context.Context, id uuid.UUID) (int64, error)
}

// ProductFilter narrows a product listing.
type ProductFilter struct {
	ListOptions

	// Search matches name or description, case-insensitively.
	Search       string
	Category     string
	PaidOnly     bool
	FeaturedOnly bool
}

// =============================================================================
// Payment Request Repository
// =============================================================================

// PaymentRequestRepository defines the interface for payment request data access.
type PaymentRequestRepository interface {
	// Create creates a new payment request.
	Create(ctx context.Context, req *domain.PaymentRequest) error

	// GetByID retrieves a payment request by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PaymentRequest, error)

	// List returns payment requests matching the filter, newest first.
	List(ctx context.Context, filter PaymentRequestFilter) (*ListResult[domain.PaymentRequest], error)

	// Decide moves a pending request to the given status in one conditional update.
	// Returns domain.ErrTicketNotFound if the request does not exist and ErrStateChanged
	// if it was not pending; in the latter case the stored request is returned.
	Decide(ctx context.Context, id uuid.UUID, status domain.TicketStatus, decidedBy uuid.UUID, decidedAt time.Time) (*domain.PaymentRequest, error)
}

// PaymentRequestFilter narrows a payment request listing.
type PaymentRequestFilter struct {
	ListOptions

	// UserID limits results to one user when set.
	UserID *uuid.UUID

	// Status limits results to one status when set.
	Status domain.TicketStatus
}

// =============================================================================
// Chat Repository
// =============================================================================

// ChatRepository defines the interface for the append-only chat log.
type ChatRepository interface {
	// Create appends a message.
	Create(ctx context.Context, msg *domain.ChatMessage) error

	// List returns messages ordered by created_at then id.
	// Descending returns newest first.
	List(ctx context.Context, opts ListOptions) ([]*domain.ChatMessage, error)
}

// =============================================================================
// Notification Repository
// =============================================================================

// NotificationRepository defines the interface for broadcast notifications.
type NotificationRepository interface {
	// Create appends a notification.
	Create(ctx context.Context, n *domain.Notification) error

	// List returns notifications ordered by created_at then id.
	// Descending returns newest first.
	List(ctx context.Context, opts ListOptions) ([]*domain.Notification, error)
}

// =============================================================================
// Common Types
// =============================================================================

// ListOptions contains common pagination options.
type ListOptions struct {
	// Offset is the number of records to skip.
	Offset int

	// Limit is the maximum number of records to return. Zero means no limit.
	Limit int

	// Descending specifies descending order if true.
	Descending bool
}

// ListResult is a generic paginated list result.
type ListResult[T any] struct {
	// Items is the list of items.
	Items []*T

	// Total is the total number of items (without pagination).
	Total int64

	// Offset is the current offset.
	Offset int

	// Limit is the current limit.
	Limit int
}
