package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fjod/cart-sync/internal/service"
	"github.com/go-chi/chi/v5"
)

// LinkHandler exposes the channel-linking surface: binding a messaging
// identity to a session and the pending-link handshake the storefront
// uses to offer its session to the bot.
type LinkHandler struct {
	linker   *service.Linker
	sessions *service.SessionStore
	gateway  *service.Gateway
	pending  *service.PendingLinks
	timeout  time.Duration
}

func NewLinkHandler(linker *service.Linker, sessions *service.SessionStore, gateway *service.Gateway, pending *service.PendingLinks, timeout time.Duration) *LinkHandler {
	return &LinkHandler{
		linker:   linker,
		sessions: sessions,
		gateway:  gateway,
		pending:  pending,
		timeout:  timeout,
	}
}

type LinkSessionRequestDTO struct {
	Identity  string `json:"identity"`
	SessionID string `json:"session_id"`
}

type LinkSessionResponseDTO struct {
	SessionID      string `json:"session_id"`
	LinkedIdentity string `json:"linked_identity"`
	ItemCount      int    `json:"item_count"`
}

type PendingLinkRequestDTO struct {
	SessionID string `json:"session_id"`
}

func (h *LinkHandler) LinkSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req LinkSessionRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	session, err := h.linker.Link(ctx, req.Identity, req.SessionID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	summary, err := h.gateway.ReadCart(ctx, session.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, LinkSessionResponseDTO{
		SessionID:      session.ID,
		LinkedIdentity: session.LinkedIdentity,
		ItemCount:      summary.ItemCount,
	})
}

// SessionByIdentity returns the linked session and its cart for a
// channel identity, so the bot can show the cart without holding any
// session state of its own.
func (h *LinkHandler) SessionByIdentity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	identity := chi.URLParam(r, "identity")

	session, err := h.sessions.GetByIdentity(ctx, identity)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	summary, err := h.gateway.ReadCart(ctx, session.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

func (h *LinkHandler) AddPending(w http.ResponseWriter, r *http.Request) {
	var req PendingLinkRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "session_id is required")
		return
	}

	h.pending.Add(req.SessionID)
	respondJSON(w, http.StatusCreated, map[string]string{"session_id": req.SessionID})
}

func (h *LinkHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	ids := h.pending.List()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"pending_sessions": ids,
		"count":            len(ids),
	})
}

func (h *LinkHandler) RemovePending(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")

	if !h.pending.Remove(sessionID) {
		respondError(w, http.StatusNotFound, "not_found", "session not in pending list")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
