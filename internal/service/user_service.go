package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/prn-tf/digital-galaxy/internal/domain"
	"github.com/prn-tf/digital-galaxy/internal/repository"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// TokenIssuer signs session credentials.
type TokenIssuer interface {
	Issue(user *domain.User) (string, time.Time, error)
}

// UserService handles account registration and login.
type UserService struct {
	userRepo   repository.UserRepository
	tokens     TokenIssuer
	bcryptCost int
	logger     zerolog.Logger
}

// NewUserService creates a new UserService. A bcryptCost of zero uses bcrypt.DefaultCost.
func NewUserService(userRepo repository.UserRepository, tokens TokenIssuer, bcryptCost int, logger zerolog.Logger) *UserService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserService{
		userRepo:   userRepo,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		logger:     logger.With().Str("service", "user").Logger(),
	}
}

// Register creates a regular user account.
func (s *UserService) Register(ctx context.Context, email, password string) (*domain.User, error) {
	return s.create(ctx, email, password, false)
}

// CreateAdmin creates an administrator account.
func (s *UserService) CreateAdmin(ctx context.Context, email, password string) (*domain.User, error) {
	return s.create(ctx, email, password, true)
}

func (s *UserService) create(ctx context.Context, email, password string, isAdmin bool) (*domain.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < MinPasswordLength {
		return nil, domain.NewValidationError("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to hash password")
		return nil, fmt.Errorf("%w: failed to hash password", ErrInternalError)
	}

	user := domain.NewUser(email, string(passwordHash))
	user.IsAdmin = isAdmin

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("email", email).Msg("failed to create user")
		return nil, internal(err)
	}

	s.logger.Info().
		Str("user_id", user.ID.String()).
		Str("email", user.Email).
		Bool("is_admin", user.IsAdmin).
		Msg("user created")

	return user, nil
}

// LoginOutput contains the result of a successful login.
type LoginOutput struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// Login verifies credentials and issues a session token. Blocked users may
// log in; the block is enforced by the gated operations.
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginOutput, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			// Don't expose whether the email exists
			s.logger.Debug().Str("email", email).Msg("user not found during login")
			return nil, domain.ErrInvalidCredentials
		}
		return nil, internal(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Debug().Str("email", email).Msg("invalid password during login")
		return nil, domain.ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to issue token")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Str("user_id", user.ID.String()).
		Bool("is_blocked", user.IsBlocked).
		Msg("user logged in")

	return &LoginOutput{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", domain.NewValidationError("email", "is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", domain.NewValidationError("email", "is not a valid address")
	}
	return email, nil
}
