package handler

import (
	"net/http"

	"github.com/prn-tf/digital-galaxy/internal/auth"
	"github.com/prn-tf/digital-galaxy/internal/domain"
)

type chatRequest struct {
	Message string `json:"message"`
}

func (a *API) handleListChat(w http.ResponseWriter, r *http.Request) {
	page, err := pageQuery(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	msgs, err := a.chat.ListChat(r.Context(), auth.GetPrincipal(r.Context()), page)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if msgs == nil {
		msgs = []*domain.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": msgs})
}

func (a *API) handlePostChat(w http.ResponseWriter, r *http.Request) {
	principal := auth.GetPrincipal(r.Context())
	if err := principal.RequireActive(); err != nil {
		a.fail(w, r, err)
		return
	}
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	msg, err := a.chat.PostChatMessage(r.Context(), principal, req.Message)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (a *API) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	page, err := pageQuery(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	items, err := a.chat.ListNotifications(r.Context(), auth.GetPrincipal(r.Context()), page)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if items == nil {
		items = []*domain.Notification{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}
