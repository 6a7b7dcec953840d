package repository

import (
	"context"
	"sync"

	"github.com/fjod/cart-sync/internal/domain"
)

// MemoryRepository implements Repository with in-memory storage.
// It is the default backend; all values are deep-copied on the way in and
// out so callers never share slices with the store.
type MemoryRepository struct {
	mu         sync.RWMutex
	sessions   map[string]*domain.Session // sessionID -> session
	byIdentity map[string]string          // identity -> sessionID
	carts      map[string]*domain.Cart    // sessionID -> cart
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		sessions:   make(map[string]*domain.Session),
		byIdentity: make(map[string]string),
		carts:      make(map[string]*domain.Cart),
	}
}

func (m *MemoryRepository) GetSession(_ context.Context, id string) (*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	out := *s
	return &out, nil
}

func (m *MemoryRepository) GetSessionByIdentity(_ context.Context, identity string) (*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byIdentity[identity]
	if !ok {
		return nil, ErrIdentityNotFound
	}
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	out := *s
	return &out, nil
}

func (m *MemoryRepository) PutSession(_ context.Context, session *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Drop a stale identity mapping when the session is re-stored with its
	// identity cleared (link supersession) or changed.
	if prev, ok := m.sessions[session.ID]; ok && prev.LinkedIdentity != "" && prev.LinkedIdentity != session.LinkedIdentity {
		if m.byIdentity[prev.LinkedIdentity] == session.ID {
			delete(m.byIdentity, prev.LinkedIdentity)
		}
	}

	stored := *session
	m.sessions[session.ID] = &stored
	if session.LinkedIdentity != "" {
		m.byIdentity[session.LinkedIdentity] = session.ID
	}
	return nil
}

func (m *MemoryRepository) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	if s.LinkedIdentity != "" && m.byIdentity[s.LinkedIdentity] == id {
		delete(m.byIdentity, s.LinkedIdentity)
	}
	delete(m.sessions, id)
	return nil
}

func (m *MemoryRepository) ListSessions(_ context.Context) ([]domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, *s)
	}
	return out, nil
}

func (m *MemoryRepository) GetCart(_ context.Context, sessionID string) (*domain.Cart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.carts[sessionID]
	if !ok {
		return nil, ErrCartNotFound
	}
	return c.Clone(), nil
}

func (m *MemoryRepository) UpsertCart(_ context.Context, cart *domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.carts[cart.SessionID] = cart.Clone()
	return nil
}

func (m *MemoryRepository) DeleteCart(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.carts[sessionID]; !ok {
		return ErrCartNotFound
	}
	delete(m.carts, sessionID)
	return nil
}
