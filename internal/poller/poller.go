// Package poller implements the client-side sync loop each channel's
// presentation layer runs against the canonical cart: every tick it
// re-reads the cart and replaces the local view wholesale. Server wins;
// there is no three-way merge with locally pending edits, the canonical
// store is the only source of truth and clients are eventually-consistent
// observers of it.
package poller

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fjod/cart-sync/internal/domain"
)

// CartReader fetches the canonical cart for a session.
type CartReader interface {
	ReadCart(ctx context.Context, sessionID string) (*domain.CartSummary, error)
}

// Poller periodically reads one session's cart and hands the result to
// onUpdate. The session token is an explicit parameter, never captured
// from surrounding UI state.
type Poller struct {
	reader    CartReader
	sessionID string
	interval  time.Duration
	onUpdate  func(domain.CartSummary)

	suspended atomic.Bool
	inFlight  atomic.Bool

	stop     chan struct{}
	stopOnce sync.Once
}

func New(reader CartReader, sessionID string, interval time.Duration, onUpdate func(domain.CartSummary)) *Poller {
	return &Poller{
		reader:    reader,
		sessionID: sessionID,
		interval:  interval,
		onUpdate:  onUpdate,
		stop:      make(chan struct{}),
	}
}

// Run polls until ctx is cancelled or Stop is called. Each tick is
// fire-and-forget: a slow or failed read never blocks the next scheduled
// tick, and a failed read is not retried mid-interval — the next tick is
// the retry. Read errors are swallowed here; a persistent failure shows
// up only as a stale view, never as a user-facing error.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case <-ticker.C:
			if p.suspended.Load() {
				continue
			}
			if !p.inFlight.CompareAndSwap(false, true) {
				continue // previous read still running, skip this tick
			}
			go func() {
				defer p.inFlight.Store(false)
				p.tick(ctx)
			}()
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	select {
	case <-p.stop:
		return // Stop raced the ticker, do not issue the read
	default:
	}

	tickCtx, cancel := context.WithTimeout(ctx, p.interval)
	defer cancel()

	summary, err := p.reader.ReadCart(tickCtx, p.sessionID)
	if err != nil {
		log.Printf("cart poll for session %s failed: %v", p.sessionID, err)
		return
	}

	select {
	case <-p.stop:
		// Stopped while the read was in flight; drop the result so no
		// update lands after cancellation.
		return
	default:
	}

	p.onUpdate(*summary)
}

// Suspend skips ticks while the owning view is not in the foreground.
func (p *Poller) Suspend() { p.suspended.Store(true) }

// Resume re-enables polling after a Suspend.
func (p *Poller) Resume() { p.suspended.Store(false) }

// Stop cancels the poller; no further reads are issued and no update is
// delivered afterwards. Safe to call more than once.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
}
