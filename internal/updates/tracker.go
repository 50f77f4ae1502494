// Package updates remembers which users have news waiting for them, so clients
// can poll cheaply instead of refetching everything.
package updates

import (
	"context"
	"sync"
)

// Tracker flags users with pending news. Consume reports and clears the flag
// in one step.
type Tracker interface {
	Mark(ctx context.Context, userIDs ...string) error
	Consume(ctx context.Context, userID string) (bool, error)
}

// MemoryTracker keeps flags in process memory.
type MemoryTracker struct {
	mu      sync.Mutex
	pending map[string]struct{}
}

func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{pending: make(map[string]struct{})}
}

func (t *MemoryTracker) Mark(ctx context.Context, userIDs ...string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, id := range userIDs {
		t.pending[id] = struct{}{}
	}
	return nil
}

func (t *MemoryTracker) Consume(ctx context.Context, userID string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.pending[userID]
	delete(t.pending, userID)
	return ok, nil
}
