package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MinDescriptionWords is the minimum justification length of a payment request.
const MinDescriptionWords = 15

// MaxPaymentMethodLength bounds the optional payment method label.
const MaxPaymentMethodLength = 64

// TicketStatus is the state of a payment request.
type TicketStatus string

const (
	TicketPending  TicketStatus = "pending"
	TicketApproved TicketStatus = "approved"
	TicketRejected TicketStatus = "rejected"
)

// IsValid returns true if the status is a known value.
func (s TicketStatus) IsValid() bool {
	switch s {
	case TicketPending, TicketApproved, TicketRejected:
		return true
	}
	return false
}

// IsOutcome reports whether the status is a terminal admin decision.
func (s TicketStatus) IsOutcome() bool {
	return s == TicketApproved || s == TicketRejected
}

// PaymentRequest is a user's claim for access to a paid product.
// It is decided exactly once; approved and rejected are terminal.
type PaymentRequest struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Description string    `json:"description"`

	// PaymentMethod is optional.
	PaymentMethod string `json:"payment_method,omitempty"`

	Status    TicketStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`

	DecidedAt *time.Time `json:"decided_at,omitempty"`
	DecidedBy *uuid.UUID `json:"decided_by,omitempty"`
}

// NewPaymentRequest creates a pending payment request for a product.
func NewPaymentRequest(userID uuid.UUID, product *Product, description, paymentMethod string) *PaymentRequest {
	return &PaymentRequest{
		ID:            NewID(),
		UserID:        userID,
		ProductID:     product.ID,
		ProductName:   product.Name,
		Description:   description,
		PaymentMethod: paymentMethod,
		Status:        TicketPending,
		CreatedAt:     time.Now().UTC(),
	}
}

// WordCount counts whitespace separated words.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// ValidateDescription checks the justification of a payment request.
func ValidateDescription(description string) error {
	if WordCount(description) < MinDescriptionWords {
		return NewValidationError("description", "must contain at least 15 words")
	}
	return nil
}
