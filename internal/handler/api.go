// Package handler provides the HTTP API of Digital Galaxy.
package handler

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/digital-galaxy/internal/auth"
	"github.com/prn-tf/digital-galaxy/internal/domain"
	"github.com/prn-tf/digital-galaxy/internal/service"
)

// API serves the JSON endpoints under /api/v1.
type API struct {
	users       *service.UserService
	catalog     *service.CatalogService
	acquisition *service.AcquisitionService
	moderation  *service.ModerationService
	chat        *service.ChatService
	maxUpload   int64
	logger      zerolog.Logger
}

// APIConfig contains the services behind the API.
type APIConfig struct {
	Users       *service.UserService
	Catalog     *service.CatalogService
	Acquisition *service.AcquisitionService
	Moderation  *service.ModerationService
	Chat        *service.ChatService

	// MaxUploadSize bounds multipart product uploads.
	MaxUploadSize int64

	Logger zerolog.Logger
}

// NewAPI creates a new API.
func NewAPI(cfg APIConfig) *API {
	return &API{
		users:       cfg.Users,
		catalog:     cfg.Catalog,
		acquisition: cfg.Acquisition,
		moderation:  cfg.Moderation,
		chat:        cfg.Chat,
		maxUpload:   cfg.MaxUploadSize,
		logger:      cfg.Logger.With().Str("handler", "api").Logger(),
	}
}

func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, a.logger, err)
}

// =============================================================================
// Accounts
// =============================================================================

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *domain.User `json:"user"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	user, err := a.users.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	out, err := a.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: out.Token, ExpiresAt: out.ExpiresAt, User: out.User})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	principal := auth.GetPrincipal(r.Context())
	if !principal.IsAuthenticated() {
		a.fail(w, r, domain.ErrNotAuthenticated)
		return
	}
	writeJSON(w, http.StatusOK, principal)
}
