package axiom

import (
	"crypto/rand"
	"fmt"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/dlk/pkg/dlk/expr"
	"github.com/cognicore/dlk/pkg/dlk/internalerr"
)

// Handle identifies a told axiom. Zero is never issued.
type Handle uint64

// Entry pairs a handle with its axiom.
type Entry struct {
	Handle Handle
	Axiom  Axiom
}

// Delta is the set of committed changes not yet applied to the reasoner.
type Delta struct {
	Added   []Entry
	Removed []Entry
}

// Empty reports whether the delta carries no changes.
func (d Delta) Empty() bool { return len(d.Added) == 0 && len(d.Removed) == 0 }

// ChangeSet is one committed unit of work.
type ChangeSet struct {
	ID        string
	Committed time.Time
	Added     []Entry
	Removed   []Entry
}

type batch struct {
	added   map[Handle]Axiom
	removed map[Handle]Axiom
}

// Store holds the live axiom set. Changes made between Start and End become
// visible atomically at End; changes made outside a batch commit at once.
type Store struct {
	next    Handle
	live    map[Handle]Axiom
	batch   *batch
	added   map[Handle]Axiom
	removed map[Handle]Axiom
	commits []ChangeSet
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	s := &Store{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
	s.Reset()
	return s
}

// Reset forgets every axiom and pending change. Handles are not reused.
func (s *Store) Reset() {
	s.live = make(map[Handle]Axiom)
	s.added = make(map[Handle]Axiom)
	s.removed = make(map[Handle]Axiom)
	s.batch = nil
	s.commits = nil
}

// InBatch reports whether Start has been called without End or Abort.
func (s *Store) InBatch() bool { return s.batch != nil }

// Start opens a batch.
func (s *Store) Start() error {
	if s.batch != nil {
		return fmt.Errorf("change batch already open: %w", internalerr.ErrUsage)
	}
	s.batch = &batch{added: make(map[Handle]Axiom), removed: make(map[Handle]Axiom)}
	return nil
}

// Tell records an already validated axiom and returns its handle.
func (s *Store) Tell(ax Axiom) Handle {
	s.next++
	h := s.next
	ax.Args = append([]expr.Handle(nil), ax.Args...)
	if s.batch != nil {
		s.batch.added[h] = ax
		return h
	}
	s.commit(map[Handle]Axiom{h: ax}, nil)
	return h
}

// Retract removes a live axiom. Retracting an unknown or already retracted
// handle is an error.
func (s *Store) Retract(h Handle) (Axiom, error) {
	if s.batch != nil {
		if ax, ok := s.batch.added[h]; ok {
			delete(s.batch.added, h)
			return ax, nil
		}
		ax, ok := s.live[h]
		if !ok {
			return Axiom{}, fmt.Errorf("axiom %d: %w", h, internalerr.ErrUnknownAxiom)
		}
		if _, gone := s.batch.removed[h]; gone {
			return Axiom{}, fmt.Errorf("axiom %d already retracted: %w", h, internalerr.ErrUnknownAxiom)
		}
		s.batch.removed[h] = ax
		return ax, nil
	}
	ax, ok := s.live[h]
	if !ok {
		return Axiom{}, fmt.Errorf("axiom %d: %w", h, internalerr.ErrUnknownAxiom)
	}
	s.commit(nil, map[Handle]Axiom{h: ax})
	return ax, nil
}

// End commits the open batch.
func (s *Store) End() (ChangeSet, error) {
	if s.batch == nil {
		return ChangeSet{}, fmt.Errorf("no change batch open: %w", internalerr.ErrUsage)
	}
	b := s.batch
	s.batch = nil
	if len(b.added) == 0 && len(b.removed) == 0 {
		return ChangeSet{}, nil
	}
	return s.commit(b.added, b.removed), nil
}

// Abort discards the open batch. Handles issued inside it become unknown.
func (s *Store) Abort() error {
	if s.batch == nil {
		return fmt.Errorf("no change batch open: %w", internalerr.ErrUsage)
	}
	s.batch = nil
	return nil
}

func (s *Store) commit(added, removed map[Handle]Axiom) ChangeSet {
	for h, ax := range removed {
		delete(s.live, h)
		if _, pending := s.added[h]; pending {
			delete(s.added, h)
			continue
		}
		s.removed[h] = ax
	}
	for h, ax := range added {
		s.live[h] = ax
		s.added[h] = ax
	}
	now := s.now()
	cs := ChangeSet{
		ID:        ulid.MustNew(ulid.Timestamp(now), s.entropy).String(),
		Committed: now,
		Added:     entries(added),
		Removed:   entries(removed),
	}
	s.commits = append(s.commits, cs)
	return cs
}

func entries(m map[Handle]Axiom) []Entry {
	out := make([]Entry, 0, len(m))
	for h, ax := range m {
		out = append(out, Entry{Handle: h, Axiom: ax})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out
}

// Delta returns the committed changes since the last MarkSynced.
func (s *Store) Delta() Delta {
	return Delta{Added: entries(s.added), Removed: entries(s.removed)}
}

// Dirty reports whether committed changes await synchronization.
func (s *Store) Dirty() bool { return len(s.added) > 0 || len(s.removed) > 0 }

// MarkSynced clears the pending delta.
func (s *Store) MarkSynced() {
	s.added = make(map[Handle]Axiom)
	s.removed = make(map[Handle]Axiom)
}

// DrainCommits returns and forgets the change sets committed since the last call.
func (s *Store) DrainCommits() []ChangeSet {
	out := s.commits
	s.commits = nil
	return out
}

// Get returns a committed axiom.
func (s *Store) Get(h Handle) (Axiom, bool) {
	ax, ok := s.live[h]
	return ax, ok
}

// Live returns the committed axioms in handle order.
func (s *Store) Live() []Entry { return entries(s.live) }

// Effective returns the axioms that will be live once the open batch
// commits. Outside a batch it equals Live.
func (s *Store) Effective() []Entry {
	if s.batch == nil {
		return s.Live()
	}
	m := make(map[Handle]Axiom, len(s.live)+len(s.batch.added))
	for h, ax := range s.live {
		if _, gone := s.batch.removed[h]; !gone {
			m[h] = ax
		}
	}
	for h, ax := range s.batch.added {
		m[h] = ax
	}
	return entries(m)
}

// Len returns the number of committed axioms.
func (s *Store) Len() int { return len(s.live) }
