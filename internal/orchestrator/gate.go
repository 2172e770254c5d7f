package orchestrator

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// gate serializes turn execution per session. A session admits one active
// turn; further turns are rejected, not queued.
type gate struct {
	mu     sync.Mutex
	active map[uuid.UUID]struct{}
}

func newGate() *gate {
	return &gate{active: make(map[uuid.UUID]struct{})}
}

// tryAcquire claims the session or fails with ErrSessionBusy.
func (g *gate) tryAcquire(id uuid.UUID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.active[id]; busy {
		return fmt.Errorf("session %s: %w", id, ErrSessionBusy)
	}
	g.active[id] = struct{}{}
	return nil
}

// release frees the session.
func (g *gate) release(id uuid.UUID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.active, id)
}
