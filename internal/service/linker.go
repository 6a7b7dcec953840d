package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/fjod/cart-sync/internal/domain"
	"github.com/fjod/cart-sync/internal/repository"
	"golang.org/x/sync/singleflight"
)

// Linker binds an external channel identity (a phone number, typically)
// to a session. When the identity already owns a different session the
// two carts are merged into the target session; the prior session is
// superseded and loses the identity. The merge queues behind in-flight
// mutations on both sessions, so it never captures a cart mid-mutation,
// and mutations arriving after it observe the merged cart.
type Linker struct {
	sessions *SessionStore
	carts    *CartService
	gateway  *Gateway
	sfg      singleflight.Group // one link in flight per identity
}

func NewLinker(sessions *SessionStore, carts *CartService, gateway *Gateway) *Linker {
	return &Linker{
		sessions: sessions,
		carts:    carts,
		gateway:  gateway,
	}
}

// Link makes sessionID authoritative for identity. Idempotent: re-linking
// the same pair is a no-op. Irreversible with respect to the superseded
// session, which keeps existing but anonymous and empty.
func (l *Linker) Link(ctx context.Context, identity, sessionID string) (*domain.Session, error) {
	if identity == "" {
		return nil, &ValidationError{Field: "identity", Reason: "must not be empty"}
	}
	if sessionID == "" {
		return nil, &ValidationError{Field: "session_id", Reason: "must not be empty"}
	}

	v, err, _ := l.sfg.Do(identity, func() (interface{}, error) {
		return l.link(ctx, identity, sessionID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Session), nil
}

func (l *Linker) link(ctx context.Context, identity, sessionID string) (*domain.Session, error) {
	target, err := l.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	prior, err := l.sessions.GetByIdentity(ctx, identity)
	if err != nil && !errors.Is(err, repository.ErrIdentityNotFound) {
		return nil, err
	}

	if prior != nil && prior.ID == target.ID {
		return target, nil // already linked, nothing to do
	}

	if prior == nil {
		unlock := l.gateway.lockSession(target.ID)
		defer unlock()
		return l.claim(ctx, target, identity)
	}

	// The identity moves to a new session: merge carts under both write
	// locks, then hand the identity over.
	unlock := l.gateway.lockPair(prior.ID, target.ID)
	defer unlock()

	if _, err := l.carts.Merge(ctx, prior.ID, target.ID); err != nil {
		return nil, fmt.Errorf("failed to merge carts: %w", err)
	}

	prior.LinkedIdentity = ""
	if err := l.sessions.repo.PutSession(ctx, prior); err != nil {
		return nil, fmt.Errorf("failed to supersede session %s: %w", prior.ID, err)
	}
	log.Printf("identity %s moved from session %s to %s", identity, prior.ID, target.ID)

	return l.claim(ctx, target, identity)
}

func (l *Linker) claim(ctx context.Context, target *domain.Session, identity string) (*domain.Session, error) {
	target.LinkedIdentity = identity
	if err := l.sessions.repo.PutSession(ctx, target); err != nil {
		return nil, fmt.Errorf("failed to link session: %w", err)
	}
	return target, nil
}
