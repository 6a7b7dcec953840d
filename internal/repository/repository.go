package repository

import (
	"context"
	"errors"

	"github.com/fjod/cart-sync/internal/domain"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrCartNotFound     = errors.New("cart not found")
	ErrIdentityNotFound = errors.New("no session linked to identity")
)

// SessionRepository defines the interface for session storage.
// Consumers define this interface, not the storage implementations.
// DeleteSession removes the session record only; its cart is a separate
// document, dropped via CartRepository.DeleteCart.
type SessionRepository interface {
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	GetSessionByIdentity(ctx context.Context, identity string) (*domain.Session, error)
	PutSession(ctx context.Context, session *domain.Session) error
	DeleteSession(ctx context.Context, id string) error
	ListSessions(ctx context.Context) ([]domain.Session, error)
}

// CartRepository stores whole cart documents. Line-level mutation logic
// lives in the service layer; the repository only swaps complete carts,
// which is what keeps readers from ever seeing a half-applied mutation.
type CartRepository interface {
	GetCart(ctx context.Context, sessionID string) (*domain.Cart, error)
	UpsertCart(ctx context.Context, cart *domain.Cart) error
	DeleteCart(ctx context.Context, sessionID string) error
}

// Repository bundles both stores; the memory and mongo backends each
// implement the pair over one underlying store.
type Repository interface {
	SessionRepository
	CartRepository
}
