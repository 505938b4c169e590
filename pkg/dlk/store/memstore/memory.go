package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/cognicore/dlk/pkg/dlk/store"
)

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu        sync.RWMutex
	changes   []store.Change
	snapshots map[string][]store.Snapshot
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{snapshots: make(map[string][]store.Snapshot)}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// AppendChange records a change, keeping the journal ordered by ID.
func (s *Store) AppendChange(ctx context.Context, c store.Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.changes = append(s.changes, copyChange(c))
	sort.SliceStable(s.changes, func(i, j int) bool { return s.changes[i].ID < s.changes[j].ID })
	return nil
}

// Changes returns up to limit changes, oldest first.
func (s *Store) Changes(ctx context.Context, limit int) ([]store.Change, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.changes)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]store.Change, 0, n)
	for _, c := range s.changes[:n] {
		out = append(out, copyChange(c))
	}
	return out, nil
}

// PutSnapshot records a snapshot.
func (s *Store) PutSnapshot(ctx context.Context, snap store.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots[snap.Kind] = append(s.snapshots[snap.Kind], snap)
	return nil
}

// LatestSnapshot returns the snapshot of kind with the greatest ID.
func (s *Store) LatestSnapshot(ctx context.Context, kind string) (store.Snapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best store.Snapshot
	found := false
	for _, snap := range s.snapshots[kind] {
		if !found || snap.ID > best.ID {
			best = snap
			found = true
		}
	}
	return best, found, nil
}

func copyChange(c store.Change) store.Change {
	c.Added = append([]store.AxiomRecord(nil), c.Added...)
	c.Removed = append([]uint64(nil), c.Removed...)
	return c
}
