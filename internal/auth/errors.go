// Package auth resolves session credentials into principals for Digital Galaxy.
package auth

import "errors"

// Token errors. The resolver never surfaces them to callers; they are
// logged at debug level and the request continues as anonymous.
var (
	// ErrMissingToken indicates no credential was presented.
	ErrMissingToken = errors.New("missing token")

	// ErrInvalidToken indicates the token is malformed, carries a bad signature,
	// or names an unexpected issuer or subject.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired indicates the token's exp claim has passed.
	ErrTokenExpired = errors.New("token expired")
)
