// Package store owns the in-memory snapshot and its persistence.
//
// All mutations go through Update, which holds the write lock for the whole
// read-modify-persist cycle and works on a copy: readers never observe a
// half-applied change and a failed write leaves memory untouched.
package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"messageapp/internal/observability"
)

// ErrNoChange may be returned from an Update closure to report a logical no-op.
// Nothing is persisted and Update returns nil.
var ErrNoChange = errors.New("store: no change")

// Backend loads and saves whole snapshots.
type Backend interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot) error
}

// Store serializes access to the snapshot.
type Store struct {
	mu      sync.RWMutex
	data    *Snapshot
	backend Backend
}

// Open loads the snapshot from backend.
func Open(ctx context.Context, backend Backend) (*Store, error) {
	snap, err := backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	snap.normalize()
	log.Printf("store loaded users=%d conversations=%d messages=%d tokens=%d",
		len(snap.Users), len(snap.Conversations), len(snap.Messages), len(snap.AccessTokens))
	return &Store{data: snap, backend: backend}, nil
}

// View runs fn against the current snapshot under the read lock.
// fn must not mutate the snapshot or retain slices past its return.
func (s *Store) View(ctx context.Context, fn func(snap *Snapshot) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.data)
}

// Update runs fn against a copy of the snapshot and, if fn succeeds, persists
// the copy once and makes it current.
func (s *Store) Update(ctx context.Context, fn func(snap *Snapshot) error) error {
	ctx, span := otel.Tracer("messageapp/store").Start(ctx, "store.update")
	defer span.End()
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.data.Clone()
	if err := fn(next); err != nil {
		if errors.Is(err, ErrNoChange) {
			observability.ObserveStoreCommit("noop", time.Since(start))
			return nil
		}
		observability.ObserveStoreCommit("rejected", time.Since(start))
		return err
	}

	if err := s.backend.Save(ctx, next); err != nil {
		observability.ObserveStoreCommit("error", time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		log.Printf("store write failed: %v", err)
		return fmt.Errorf("persist snapshot: %w", err)
	}
	s.data = next
	observability.ObserveStoreCommit("committed", time.Since(start))
	return nil
}
