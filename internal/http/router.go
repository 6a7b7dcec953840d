package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires the full HTTP surface of the service.
func NewRouter(cart *CartHandler, link *LinkHandler, requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/cart/session", cart.GetOrCreateSession)

		r.Route("/cart/{session_id}", func(r chi.Router) {
			r.Get("/", cart.GetCart)
			r.Post("/items", cart.AddItem)
			r.Put("/items/{product_id}", cart.UpdateQuantity)
			r.Delete("/items/{product_id}", cart.RemoveItem)
			r.Delete("/", cart.ClearCart)
		})

		r.Route("/link", func(r chi.Router) {
			r.Post("/session", link.LinkSession)
			r.Get("/session/{identity}", link.SessionByIdentity)
			r.Post("/pending", link.AddPending)
			r.Get("/pending", link.ListPending)
			r.Delete("/pending/{session_id}", link.RemovePending)
		})
	})

	return r
}
