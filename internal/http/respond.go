package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/fjod/cart-sync/internal/repository"
	"github.com/fjod/cart-sync/internal/service"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError maps the service error taxonomy onto HTTP statuses.
// Mutation errors are always surfaced to the caller; the mapping changes
// the shape of the error, never its meaning.
func handleServiceError(w http.ResponseWriter, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		respondError(w, http.StatusBadRequest, "validation_error", ve.Error())
	case errors.Is(err, repository.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, "session_not_found", "session not found")
	case errors.Is(err, repository.ErrIdentityNotFound):
		respondError(w, http.StatusNotFound, "identity_not_found", "no session linked to this identity")
	case errors.Is(err, service.ErrLineNotFound):
		respondError(w, http.StatusNotFound, "product_not_found", "item not in cart")
	default:
		log.Printf("internal error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
