package service

import (
	"context"
	"sync"

	"github.com/fjod/cart-sync/internal/domain"
)

// Gateway is the single caller-facing entry point for cart operations.
// It enforces one writer at a time per session: concurrent mutations for
// the same session queue on that session's mutex and apply in arrival
// order, so simultaneous adds from the web and messaging channels both
// land without a lost update. Different sessions never contend.
//
// Reads bypass the write lock entirely (read-committed): a reader may see
// the state before or after a queued mutation, never a partial one.
type Gateway struct {
	carts    *CartService
	sessions *SessionStore

	mu    sync.Mutex
	locks map[string]*sync.Mutex // sessionID -> write lock
}

func NewGateway(carts *CartService, sessions *SessionStore) *Gateway {
	return &Gateway{
		carts:    carts,
		sessions: sessions,
		locks:    make(map[string]*sync.Mutex),
	}
}

// AddItemInput is the validated request shape for an add. Price and
// display fields are the snapshot captured by the caller at add time.
type AddItemInput struct {
	ProductID        string  `json:"product_id"`
	Quantity         int     `json:"quantity"`
	UnitPrice        float64 `json:"price"`
	Name             string  `json:"name"`
	Color            string  `json:"color"`
	Size             string  `json:"size"`
	ImageURL         string  `json:"image_url"`
	PricebookEntryID string  `json:"pricebook_entry_id"`
}

func (in *AddItemInput) validate() error {
	if in.ProductID == "" {
		return &ValidationError{Field: "product_id", Reason: "must not be empty"}
	}
	if in.Quantity < 1 {
		return &ValidationError{Field: "quantity", Reason: "must be at least 1"}
	}
	if in.UnitPrice < 0 {
		return &ValidationError{Field: "price", Reason: "must not be negative"}
	}
	if in.Name == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	return nil
}

func (g *Gateway) ReadCart(ctx context.Context, sessionID string) (*domain.CartSummary, error) {
	return g.carts.Read(ctx, sessionID)
}

func (g *Gateway) AddItem(ctx context.Context, sessionID string, in AddItemInput) (*domain.CartSummary, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	unlock := g.lockSession(sessionID)
	defer unlock()

	summary, err := g.carts.Add(ctx, sessionID, domain.CartLine{
		ProductID:        in.ProductID,
		Quantity:         in.Quantity,
		UnitPrice:        in.UnitPrice,
		Name:             in.Name,
		Color:            in.Color,
		Size:             in.Size,
		ImageURL:         in.ImageURL,
		PricebookEntryID: in.PricebookEntryID,
	})
	if err != nil {
		return nil, err
	}
	g.sessions.Touch(ctx, sessionID)
	return summary, nil
}

func (g *Gateway) UpdateQuantity(ctx context.Context, sessionID, productID string, quantity int) (*domain.CartSummary, error) {
	if productID == "" {
		return nil, &ValidationError{Field: "product_id", Reason: "must not be empty"}
	}
	if quantity < 1 {
		return nil, &ValidationError{Field: "quantity", Reason: "must be at least 1"}
	}

	unlock := g.lockSession(sessionID)
	defer unlock()

	summary, err := g.carts.SetQuantity(ctx, sessionID, productID, quantity)
	if err != nil {
		return nil, err
	}
	g.sessions.Touch(ctx, sessionID)
	return summary, nil
}

func (g *Gateway) RemoveItem(ctx context.Context, sessionID, productID string) (*domain.CartSummary, error) {
	if productID == "" {
		return nil, &ValidationError{Field: "product_id", Reason: "must not be empty"}
	}

	unlock := g.lockSession(sessionID)
	defer unlock()

	summary, err := g.carts.Remove(ctx, sessionID, productID)
	if err != nil {
		return nil, err
	}
	g.sessions.Touch(ctx, sessionID)
	return summary, nil
}

func (g *Gateway) ClearCart(ctx context.Context, sessionID string) (*domain.CartSummary, error) {
	unlock := g.lockSession(sessionID)
	defer unlock()

	summary, err := g.carts.Clear(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	g.sessions.Touch(ctx, sessionID)
	return summary, nil
}

// lockSession acquires the per-session write lock, creating it on first
// use. Lock entries are never removed; a session's mutex must stay
// stable for as long as anything might queue on it.
func (g *Gateway) lockSession(sessionID string) (unlock func()) {
	g.mu.Lock()
	l, ok := g.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		g.locks[sessionID] = l
	}
	g.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// lockPair acquires both sessions' write locks in a deterministic order
// so a cart merge excludes in-flight mutations on either side without
// risking deadlock against a concurrent merge of the same pair.
func (g *Gateway) lockPair(a, b string) (unlock func()) {
	if a == b {
		return g.lockSession(a)
	}
	if b < a {
		a, b = b, a
	}
	unlockA := g.lockSession(a)
	unlockB := g.lockSession(b)
	return func() {
		unlockB()
		unlockA()
	}
}
