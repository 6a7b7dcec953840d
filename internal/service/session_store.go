package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/fjod/cart-sync/internal/domain"
	"github.com/fjod/cart-sync/internal/repository"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const (
	// SweepInterval is how often the idle-session sweep runs.
	SweepInterval = 1 * time.Minute
)

// SessionStore owns session records and their lifecycle. Creation is
// serialized per channel identity so two channels racing to open a
// session for the same phone number end up sharing one.
type SessionStore struct {
	repo repository.Repository
	sfg  singleflight.Group // serializes creation per identity key

	idleTTL time.Duration // <= 0 disables eviction

	stopSweep chan struct{}
	wg        sync.WaitGroup
}

// NewSessionStore creates the store. When idleTTL > 0 a background sweep
// evicts sessions whose LastActiveAt is older than the TTL; sessions are
// otherwise unbounded in number.
func NewSessionStore(repo repository.Repository, idleTTL time.Duration) *SessionStore {
	s := &SessionStore{
		repo:      repo,
		idleTTL:   idleTTL,
		stopSweep: make(chan struct{}),
	}

	if idleTTL > 0 {
		s.wg.Add(1)
		go s.sweepLoop()
	}

	return s
}

// GetOrCreate returns the session already linked to identity, or creates
// a new one. identity may be empty for an anonymous web session. A new
// session always gets an empty cart.
func (s *SessionStore) GetOrCreate(ctx context.Context, identity string) (*domain.Session, error) {
	if identity == "" {
		return s.create(ctx, "")
	}

	v, err, _ := s.sfg.Do(identity, func() (interface{}, error) {
		existing, err := s.repo.GetSessionByIdentity(ctx, identity)
		if err == nil {
			s.touch(ctx, existing)
			return existing, nil
		}
		if !errors.Is(err, repository.ErrIdentityNotFound) {
			return nil, err
		}
		return s.create(ctx, identity)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Session), nil
}

// Get looks up a session by id and bumps its activity timestamp.
func (s *SessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	session, err := s.repo.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	s.touch(ctx, session)
	return session, nil
}

// GetByIdentity looks up the session currently holding identity.
func (s *SessionStore) GetByIdentity(ctx context.Context, identity string) (*domain.Session, error) {
	return s.repo.GetSessionByIdentity(ctx, identity)
}

// Touch bumps a session's activity timestamp; unknown ids are ignored.
func (s *SessionStore) Touch(ctx context.Context, id string) {
	session, err := s.repo.GetSession(ctx, id)
	if err != nil {
		return
	}
	s.touch(ctx, session)
}

func (s *SessionStore) create(ctx context.Context, identity string) (*domain.Session, error) {
	now := time.Now()
	session := &domain.Session{
		ID:             newSessionID(),
		LinkedIdentity: identity,
		CreatedAt:      now,
		LastActiveAt:   now,
	}

	if err := s.repo.PutSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	// A cart exists implicitly, empty, from the moment its session does.
	cart := &domain.Cart{SessionID: session.ID, CreatedAt: now, UpdatedAt: now}
	if err := s.repo.UpsertCart(ctx, cart); err != nil {
		return nil, fmt.Errorf("failed to create cart for session: %w", err)
	}

	return session, nil
}

func (s *SessionStore) touch(ctx context.Context, session *domain.Session) {
	session.LastActiveAt = time.Now()
	if err := s.repo.PutSession(ctx, session); err != nil {
		log.Printf("failed to touch session %s: %v", session.ID, err)
	}
}

func (s *SessionStore) sweepLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.evictIdle()
		case <-s.stopSweep:
			return
		}
	}
}

func (s *SessionStore) evictIdle() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sessions, err := s.repo.ListSessions(ctx)
	if err != nil {
		log.Printf("session sweep failed: %v", err)
		return
	}

	cutoff := time.Now().Add(-s.idleTTL)
	for _, session := range sessions {
		if !session.LastActiveAt.Before(cutoff) {
			continue
		}
		if err := s.repo.DeleteCart(ctx, session.ID); err != nil && !errors.Is(err, repository.ErrCartNotFound) {
			log.Printf("failed to drop cart for idle session %s: %v", session.ID, err)
			continue
		}
		if err := s.repo.DeleteSession(ctx, session.ID); err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
			log.Printf("failed to evict session %s: %v", session.ID, err)
		}
	}
}

// Close stops the sweep loop.
func (s *SessionStore) Close() {
	if s.idleTTL > 0 {
		close(s.stopSweep)
		s.wg.Wait()
	}
}

func newSessionID() string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "session-" + hex[:12]
}
