package cache

import (
	"context"
	"errors"

	"github.com/fjod/cart-sync/internal/domain"
)

// CartCache caches committed cart summaries on the read path. Writes go
// straight to the repository and invalidate here.
type CartCache interface {
	Get(ctx context.Context, sessionID string) (*domain.CartSummary, error)
	Set(ctx context.Context, sessionID string, summary *domain.CartSummary) error
	Delete(ctx context.Context, sessionID string) error
}

var ErrCacheMiss = errors.New("cache miss")
