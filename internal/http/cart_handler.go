package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/cart-sync/internal/service"
	"github.com/go-chi/chi/v5"
)

type CartHandler struct {
	gateway  *service.Gateway
	sessions *service.SessionStore
	timeout  time.Duration
}

func NewCartHandler(gateway *service.Gateway, sessions *service.SessionStore, timeout time.Duration) *CartHandler {
	return &CartHandler{
		gateway:  gateway,
		sessions: sessions,
		timeout:  timeout,
	}
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type SessionResponseDTO struct {
	SessionID      string `json:"session_id"`
	LinkedIdentity string `json:"linked_identity,omitempty"`
}

// GetOrCreateSession resolves the caller's session: by channel identity
// when one is supplied, by session cookie otherwise, creating a fresh
// session when neither resolves. The session id is echoed in a cookie so
// the storefront keeps it across page loads.
func (h *CartHandler) GetOrCreateSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	identity := r.URL.Query().Get("identity")

	if identity == "" {
		if cookie, err := r.Cookie("session_id"); err == nil && cookie.Value != "" {
			if session, err := h.sessions.Get(ctx, cookie.Value); err == nil {
				respondJSON(w, http.StatusOK, SessionResponseDTO{
					SessionID:      session.ID,
					LinkedIdentity: session.LinkedIdentity,
				})
				return
			}
			// Cookie points at an evicted session; fall through and mint
			// a new one.
		}
	}

	session, err := h.sessions.GetOrCreate(ctx, identity)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "session_id",
		Value:    session.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	respondJSON(w, http.StatusOK, SessionResponseDTO{
		SessionID:      session.ID,
		LinkedIdentity: session.LinkedIdentity,
	})
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := chi.URLParam(r, "session_id")

	summary, err := h.gateway.ReadCart(ctx, sessionID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := chi.URLParam(r, "session_id")

	var req service.AddItemInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	summary, err := h.gateway.AddItem(ctx, sessionID, req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, summary)
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := chi.URLParam(r, "session_id")
	productID := chi.URLParam(r, "product_id")

	// Quantity arrives either as ?quantity=N or as a JSON body.
	quantity, ok := quantityFromRequest(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_request", "quantity is required")
		return
	}

	summary, err := h.gateway.UpdateQuantity(ctx, sessionID, productID, quantity)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := chi.URLParam(r, "session_id")
	productID := chi.URLParam(r, "product_id")

	summary, err := h.gateway.RemoveItem(ctx, sessionID, productID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := chi.URLParam(r, "session_id")

	summary, err := h.gateway.ClearCart(ctx, sessionID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

func quantityFromRequest(r *http.Request) (int, bool) {
	if raw := r.URL.Query().Get("quantity"); raw != "" {
		q, err := strconv.Atoi(raw)
		if err != nil {
			return 0, false
		}
		return q, true
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return 0, false
	}
	return req.Quantity, true
}
