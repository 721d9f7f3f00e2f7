package handler

import (
	"net/http"

	"github.com/prn-tf/digital-galaxy/internal/auth"
	"github.com/prn-tf/digital-galaxy/internal/domain"
)

type decisionRequest struct {
	Outcome domain.TicketStatus `json:"outcome"`
}

func (a *API) handleDecideTicket(w http.ResponseWriter, r *http.Request) {
	principal := auth.GetPrincipal(r.Context())
	if err := principal.RequireAdmin(); err != nil {
		a.fail(w, r, err)
		return
	}
	id, err := uuidParam(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req decisionRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	ticket, err := a.moderation.DecideTicket(r.Context(), principal, id, req.Outcome)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := pageQuery(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	result, err := a.moderation.ListUsers(r.Context(), auth.GetPrincipal(r.Context()), page)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newListBody(result))
}

type blockedRequest struct {
	Blocked *bool `json:"blocked"`
}

type blockedResponse struct {
	UserID  string `json:"user_id"`
	Blocked bool   `json:"blocked"`
}

func (a *API) handleSetBlocked(w http.ResponseWriter, r *http.Request) {
	principal := auth.GetPrincipal(r.Context())
	if err := principal.RequireAdmin(); err != nil {
		a.fail(w, r, err)
		return
	}
	id, err := uuidParam(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req blockedRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	if req.Blocked == nil {
		a.fail(w, r, domain.NewValidationError("blocked", "is required"))
		return
	}

	if err := a.moderation.SetBlocked(r.Context(), principal, id, *req.Blocked); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, blockedResponse{UserID: id.String(), Blocked: *req.Blocked})
}

type notificationRequest struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

func (a *API) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	principal := auth.GetPrincipal(r.Context())
	if err := principal.RequireAdmin(); err != nil {
		a.fail(w, r, err)
		return
	}
	var req notificationRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	n, err := a.moderation.BroadcastNotification(r.Context(), principal, req.Title, req.Message)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}
