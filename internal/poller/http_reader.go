package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fjod/cart-sync/internal/domain"
	"github.com/sony/gobreaker/v2"
)

// HTTPCartReader reads the canonical cart over the service's HTTP API.
// A circuit breaker keeps ticks cheap while the backend is down: once
// open, reads fail fast instead of waiting out the request timeout.
type HTTPCartReader struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[*domain.CartSummary]
}

func NewHTTPCartReader(baseURL string, timeout time.Duration) *HTTPCartReader {
	breaker := gobreaker.NewCircuitBreaker[*domain.CartSummary](gobreaker.Settings{
		Name: "cart-read",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		Timeout: 30 * time.Second,
	})

	return &HTTPCartReader{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		breaker: breaker,
	}
}

func (r *HTTPCartReader) ReadCart(ctx context.Context, sessionID string) (*domain.CartSummary, error) {
	return r.breaker.Execute(func() (*domain.CartSummary, error) {
		url := fmt.Sprintf("%s/api/v1/cart/%s", r.baseURL, sessionID)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build cart request: %w", err)
		}

		resp, err := r.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("cart request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("cart request returned status %d", resp.StatusCode)
		}

		var summary domain.CartSummary
		if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
			return nil, fmt.Errorf("failed to decode cart response: %w", err)
		}
		return &summary, nil
	})
}
