// Package dedup guards against duplicate webhook deliveries of the same
// inbound message id.
package dedup

import (
	"sync"
	"time"
)

// Guard tracks processed message ids inside a sliding time window so a
// redelivered webhook never reaches the conversation flow twice. A zero
// window disables eviction and remembers ids for the process lifetime.
type Guard struct {
	mu     sync.Mutex
	window time.Duration
	seen   map[string]time.Time
	now    func() time.Time
}

// NewGuard constructs a guard with the given retention window.
func NewGuard(window time.Duration) *Guard {
	return &Guard{
		window: window,
		seen:   map[string]time.Time{},
		now:    time.Now,
	}
}

// CheckAndMark reports whether the message id was already processed and, in
// the same critical section, marks it as processed. Two concurrent deliveries
// of the same id can therefore never both pass.
func (g *Guard) CheckAndMark(messageID string) bool {
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.window > 0 {
		for id, ts := range g.seen {
			if now.Sub(ts) > g.window {
				delete(g.seen, id)
			}
		}
	}

	if _, ok := g.seen[messageID]; ok {
		return true
	}
	g.seen[messageID] = now
	return false
}

// Len reports how many message ids are currently retained.
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seen)
}
