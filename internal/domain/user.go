// Package domain contains the core business entities for Digital Galaxy.
// These are plain Go structs representing the catalog, the acquisition
// workflow and the realtime records.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered user profile.
type User struct {
	// ID is the unique identifier for the user.
	ID uuid.UUID `json:"id"`

	// Email is the unique email address for the user.
	Email string `json:"email"`

	// PasswordHash is the bcrypt hash of the user's password.
	// This should never be exposed in API responses.
	PasswordHash string `json:"-"`

	// IsAdmin indicates whether the user has administrative privileges.
	IsAdmin bool `json:"is_admin"`

	// IsBlocked indicates the user was blocked by an administrator.
	// Blocked users can still sign in but fail every gated operation.
	IsBlocked bool `json:"is_blocked"`

	// CreatedAt is the timestamp when the user was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the timestamp when the user was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUser creates a new User with default values.
func NewUser(email, passwordHash string) *User {
	now := time.Now().UTC()
	return &User{
		ID:           NewID(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NewID returns a time-ordered identifier.
func NewID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}
