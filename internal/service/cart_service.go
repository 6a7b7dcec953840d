package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/fjod/cart-sync/internal/cache"
	"github.com/fjod/cart-sync/internal/domain"
	"github.com/fjod/cart-sync/internal/repository"
	"golang.org/x/sync/singleflight"
)

// CartService holds all line-level mutation logic for the canonical cart.
// The repository only stores and swaps whole cart documents, so a reader
// sees either the pre- or post-state of a mutation, never half of one.
// Serialization of concurrent writers is the Gateway's job, not ours.
type CartService struct {
	repo  repository.Repository
	cache cache.CartCache // nil disables caching
	sfg   singleflight.Group
}

func NewCartService(repo repository.Repository, cache cache.CartCache) *CartService {
	return &CartService{
		repo:  repo,
		cache: cache,
	}
}

// Read returns the cart summary. It does not take the session write lock;
// reads are served concurrently with in-flight writes (read-committed).
func (s *CartService) Read(ctx context.Context, sessionID string) (*domain.CartSummary, error) {
	if s.cache == nil {
		return s.readThrough(ctx, sessionID)
	}

	// Singleflight collapses concurrent cache misses for the same session.
	v, err, _ := s.sfg.Do(sessionID, func() (interface{}, error) {
		summary, err := s.cache.Get(ctx, sessionID)
		if err == nil {
			return summary, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("cache get error: %v", err) // log cache error but continue
		}

		summary, errRead := s.readThrough(ctx, sessionID)
		if errRead != nil {
			return nil, errRead
		}

		go func() {
			if errSet := s.cache.Set(context.Background(), sessionID, summary); errSet != nil {
				log.Printf("cache set error: %v", errSet)
			}
		}()

		return summary, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.CartSummary), nil
}

func (s *CartService) readThrough(ctx context.Context, sessionID string) (*domain.CartSummary, error) {
	cart, err := s.loadCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	summary := cart.Summarize()
	return &summary, nil
}

// Add creates a line with the given snapshot, or increments the quantity
// of an existing line for the same product. The original snapshot is
// never overwritten: the cart keeps the price in effect when the product
// was first added.
func (s *CartService) Add(ctx context.Context, sessionID string, line domain.CartLine) (*domain.CartSummary, error) {
	cart, err := s.loadCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if existing := cart.Line(line.ProductID); existing != nil {
		existing.Quantity += line.Quantity
	} else {
		line.AddedAt = time.Now()
		cart.Lines = append(cart.Lines, line)
	}

	return s.commit(ctx, cart)
}

// SetQuantity replaces a line's quantity. Quantities below 1 are rejected;
// removal is a distinct operation, a line is never stored at zero.
func (s *CartService) SetQuantity(ctx context.Context, sessionID, productID string, quantity int) (*domain.CartSummary, error) {
	if quantity < 1 {
		return nil, &ValidationError{Field: "quantity", Reason: "must be at least 1"}
	}

	cart, err := s.loadCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	line := cart.Line(productID)
	if line == nil {
		return nil, ErrLineNotFound
	}
	line.Quantity = quantity

	return s.commit(ctx, cart)
}

// Remove is idempotent: removing an absent line succeeds and leaves the
// cart unchanged, so a client racing a duplicate removal is harmless.
func (s *CartService) Remove(ctx context.Context, sessionID, productID string) (*domain.CartSummary, error) {
	cart, err := s.loadCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	for i, line := range cart.Lines {
		if line.ProductID == productID {
			cart.Lines = append(cart.Lines[:i], cart.Lines[i+1:]...)
			break
		}
	}

	return s.commit(ctx, cart)
}

// Clear empties all lines. The cart record itself survives; it lives as
// long as its session does.
func (s *CartService) Clear(ctx context.Context, sessionID string) (*domain.CartSummary, error) {
	cart, err := s.loadCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	cart.Lines = nil

	return s.commit(ctx, cart)
}

// Merge folds the source session's cart into the target's: overlapping
// product ids sum their quantities (the target keeps its snapshot, same
// rule as Add), non-overlapping lines are appended. The source cart is
// emptied. The target is committed before the source, so a failed merge
// leaves the source intact and can be retried; it never drops lines.
// Callers must hold both sessions' write locks.
func (s *CartService) Merge(ctx context.Context, fromSessionID, intoSessionID string) (*domain.CartSummary, error) {
	source, err := s.loadCart(ctx, fromSessionID)
	if err != nil {
		return nil, err
	}
	target, err := s.loadCart(ctx, intoSessionID)
	if err != nil {
		return nil, err
	}

	for _, line := range source.Lines {
		if existing := target.Line(line.ProductID); existing != nil {
			existing.Quantity += line.Quantity
		} else {
			target.Lines = append(target.Lines, line)
		}
	}

	merged, err := s.commit(ctx, target)
	if err != nil {
		return nil, err
	}

	source.Lines = nil
	if _, err := s.commit(ctx, source); err != nil {
		return nil, err
	}

	return merged, nil
}

// loadCart resolves the session's cart, erroring when the session itself
// does not exist. A session without a stored cart document yields a fresh
// empty cart (creation is implicit).
func (s *CartService) loadCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	if _, err := s.repo.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	cart, err := s.repo.GetCart(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			now := time.Now()
			return &domain.Cart{SessionID: sessionID, CreatedAt: now, UpdatedAt: now}, nil
		}
		return nil, err
	}
	return cart, nil
}

func (s *CartService) commit(ctx context.Context, cart *domain.Cart) (*domain.CartSummary, error) {
	cart.UpdatedAt = time.Now()
	if err := s.repo.UpsertCart(ctx, cart); err != nil {
		return nil, err
	}

	s.invalidate(cart.SessionID)

	summary := cart.Summarize()
	return &summary, nil
}

func (s *CartService) invalidate(sessionID string) {
	if s.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, sessionID); err != nil {
		log.Printf("cache invalidate error: %v", err)
	}
}
