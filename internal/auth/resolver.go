package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prn-tf/digital-galaxy/internal/domain"
)

// ProfileStore reads user profiles.
type ProfileStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// Resolver maps a credential onto a Principal.
// The profile is re-read on every call so role and block changes apply to
// the next request of an existing session.
type Resolver struct {
	tokens   *TokenManager
	profiles ProfileStore
	logger   zerolog.Logger
}

// NewResolver creates a Resolver.
func NewResolver(tokens *TokenManager, profiles ProfileStore, logger zerolog.Logger) *Resolver {
	return &Resolver{
		tokens:   tokens,
		profiles: profiles,
		logger:   logger.With().Str("component", "resolver").Logger(),
	}
}

// Resolve returns the principal of credential. It fails closed: any
// validation or lookup failure yields domain.Anonymous.
func (r *Resolver) Resolve(ctx context.Context, credential string) domain.Principal {
	if credential == "" {
		return domain.Anonymous()
	}

	userID, _, err := r.tokens.Validate(credential)
	if err != nil {
		r.logger.Debug().Err(err).Msg("rejected credential")
		return domain.Anonymous()
	}

	user, err := r.profiles.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			r.logger.Debug().Str("user_id", userID.String()).Msg("credential names unknown user")
		} else {
			r.logger.Warn().Err(err).Str("user_id", userID.String()).Msg("failed to load profile")
		}
		return domain.Anonymous()
	}

	return domain.PrincipalFromUser(user)
}
