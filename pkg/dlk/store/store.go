// Package store persists the change journal of a knowledge base and the
// taxonomy snapshots computed from it.
package store

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Store is the journal backend.
type Store interface {
	Close() error

	// AppendChange records one committed batch.
	AppendChange(ctx context.Context, c Change) error
	// Changes returns up to limit changes, oldest first. limit <= 0 means all.
	Changes(ctx context.Context, limit int) ([]Change, error)

	// PutSnapshot records a classification or realization result.
	PutSnapshot(ctx context.Context, s Snapshot) error
	// LatestSnapshot returns the newest snapshot of kind.
	LatestSnapshot(ctx context.Context, kind string) (Snapshot, bool, error)
}

// Change is one committed batch of tells and retracts.
type Change struct {
	ID      string
	At      time.Time
	Added   []AxiomRecord
	Removed []uint64
}

// AxiomRecord is a rendered axiom.
type AxiomRecord struct {
	Handle uint64 `json:"handle"`
	Kind   string `json:"kind"`
	Text   string `json:"text"`
}

// Snapshot kinds.
const (
	KindTaxonomy    = "taxonomy"
	KindRealization = "realization"
)

// Snapshot is a rendered reasoning result.
type Snapshot struct {
	ID string
	// ChangeID is the newest change the snapshot reflects.
	ChangeID string
	Kind     string
	At       time.Time
	Nodes    []NodeRecord
	Types    []TypeRecord
}

// NodeRecord is one taxonomy node.
type NodeRecord struct {
	ID      int      `json:"id"`
	Members []string `json:"members"`
	Parents []int    `json:"parents"`
}

// TypeRecord lists the direct types of one individual.
type TypeRecord struct {
	Individual string     `json:"individual"`
	Types      [][]string `json:"types"`
}

// IDSource mints lexically sortable ULIDs. It is safe for concurrent use.
type IDSource struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewIDSource returns a source with monotonic entropy.
func NewIDSource() *IDSource {
	return &IDSource{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// New returns an ID for time t.
func (s *IDSource) New(t time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), s.entropy).String()
}
