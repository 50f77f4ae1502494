package store

import (
	"context"
	"sync"
)

// MemoryBackend keeps the persisted snapshot in memory. Used in tests and ephemeral runs.
type MemoryBackend struct {
	mu    sync.Mutex
	snap  *Snapshot
	saves int
	err   error
}

// NewMemoryBackend returns a backend holding an empty snapshot.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{snap: Empty()}
}

func (b *MemoryBackend) Load(ctx context.Context) (*Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snap.Clone(), nil
}

func (b *MemoryBackend) Save(ctx context.Context, snap *Snapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.snap = snap.Clone()
	b.saves++
	return nil
}

// Saves reports how many snapshots were persisted.
func (b *MemoryBackend) Saves() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saves
}

// FailWith makes subsequent saves return err; nil restores normal behaviour.
func (b *MemoryBackend) FailWith(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.err = err
}
