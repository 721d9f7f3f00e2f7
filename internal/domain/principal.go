package domain

import (
	"github.com/google/uuid"
)

// Role is the privilege level of a principal.
type Role string

const (
	// RoleAnonymous is assigned when no valid credential was presented.
	RoleAnonymous Role = "anonymous"

	// RoleUser is an authenticated, non-privileged user.
	RoleUser Role = "user"

	// RoleAdmin is the administrator role.
	RoleAdmin Role = "admin"
)

// Principal is the resolved identity of one request.
// It is derived from a credential and the stored profile on every request
// and is never persisted.
type Principal struct {
	ID      uuid.UUID `json:"id"`
	Email   string    `json:"email,omitempty"`
	Role    Role      `json:"role"`
	Blocked bool      `json:"blocked"`
}

// Anonymous returns the principal used when resolution fails or no credential is present.
func Anonymous() Principal {
	return Principal{Role: RoleAnonymous}
}

// PrincipalFromUser builds a principal from a stored profile.
func PrincipalFromUser(u *User) Principal {
	role := RoleUser
	if u.IsAdmin {
		role = RoleAdmin
	}
	return Principal{
		ID:      u.ID,
		Email:   u.Email,
		Role:    role,
		Blocked: u.IsBlocked,
	}
}

// IsAuthenticated reports whether the principal is backed by a known user.
func (p Principal) IsAuthenticated() bool {
	return p.Role == RoleUser || p.Role == RoleAdmin
}

// IsAdmin reports whether the principal holds the administrator role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// IsBlocked reports whether the principal has been blocked.
func (p Principal) IsBlocked() bool {
	return p.Blocked
}

// RequireActive returns an error unless the principal is authenticated and not blocked.
func (p Principal) RequireActive() error {
	if !p.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	if p.IsBlocked() {
		return ErrBlocked
	}
	return nil
}

// RequireAdmin returns an error unless the principal is an administrator who is not blocked.
func (p Principal) RequireAdmin() error {
	if !p.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	if !p.IsAdmin() {
		return ErrForbidden
	}
	if p.IsBlocked() {
		return ErrBlocked
	}
	return nil
}
