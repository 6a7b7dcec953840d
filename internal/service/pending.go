package service

import (
	"sync"
	"time"
)

const pendingLinkTTL = 5 * time.Minute

// PendingLinks tracks web sessions waiting to be picked up by the
// messaging channel: the storefront registers its session id, the bot
// polls the list, links the first entry and removes it. Entries expire
// after five minutes so an abandoned handshake does not linger.
type PendingLinks struct {
	mu      sync.Mutex
	entries map[string]time.Time // sessionID -> registered at
	ttl     time.Duration
}

func NewPendingLinks() *PendingLinks {
	return &PendingLinks{
		entries: make(map[string]time.Time),
		ttl:     pendingLinkTTL,
	}
}

func (p *PendingLinks) Add(sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[sessionID] = time.Now()
}

// List returns the session ids still waiting, dropping expired entries.
func (p *PendingLinks) List() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	cutoff := time.Now().Add(-p.ttl)
	out := make([]string, 0, len(p.entries))
	for id, at := range p.entries {
		if at.Before(cutoff) {
			delete(p.entries, id)
			continue
		}
		out = append(out, id)
	}
	return out
}

// Remove drops a pending entry, reporting whether it was present.
func (p *PendingLinks) Remove(sessionID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.entries[sessionID]; !ok {
		return false
	}
	delete(p.entries, sessionID)
	return true
}
