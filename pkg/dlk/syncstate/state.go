// Package syncstate tracks whether the reasoning structures reflect the
// current axiom set and whether the taxonomy is fresh.
package syncstate

import "fmt"

// State is the synchronization state of a knowledge base.
type State uint8

const (
	Empty State = iota
	UnclassifiedInSync
	UnclassifiedDirty
	ClassifiedInSync
	ClassifiedDirty
	Fail
)

func (s State) String() string {
	switch s {
	case Empty:
		return "EMPTY"
	case UnclassifiedInSync:
		return "UNCLASSIFIED_IN_SYNC"
	case UnclassifiedDirty:
		return "UNCLASSIFIED_DIRTY"
	case ClassifiedInSync:
		return "CLASSIFIED_IN_SYNC"
	case ClassifiedDirty:
		return "CLASSIFIED_DIRTY"
	case Fail:
		return "FAIL"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// InSync reports whether the engine reflects the axiom set.
func (s State) InSync() bool { return s == UnclassifiedInSync || s == ClassifiedInSync }

// Dirty reports whether axioms changed since the last sync.
func (s State) Dirty() bool { return s == UnclassifiedDirty || s == ClassifiedDirty }

// Classified reports whether a taxonomy was computed, fresh or not.
func (s State) Classified() bool { return s == ClassifiedInSync || s == ClassifiedDirty }

// Event drives a transition.
type Event uint8

const (
	// Load is the first load of the axiom set into the engine.
	Load Event = iota
	// Change is a committed tell or retract.
	Change
	// Resync applies pending changes or reloads everything.
	Resync
	// Classify computes the taxonomy.
	Classify
	// Declassify drops the taxonomy of a synced engine, e.g. when the
	// knowledge base became inconsistent.
	Declassify
	// Failure is an unrecoverable engine error.
	Failure
	// Reset discards everything.
	Reset
)

func (e Event) String() string {
	switch e {
	case Load:
		return "load"
	case Change:
		return "change"
	case Resync:
		return "resync"
	case Classify:
		return "classify"
	case Declassify:
		return "declassify"
	case Failure:
		return "failure"
	case Reset:
		return "reset"
	default:
		return fmt.Sprintf("Event(%d)", uint8(e))
	}
}

// transitions is the single table of legal moves. Failure and Reset are
// legal from every state and are handled in Next.
var transitions = map[State]map[Event]State{
	Empty: {
		Change: Empty,
		Load:   UnclassifiedInSync,
	},
	UnclassifiedInSync: {
		Change:     UnclassifiedDirty,
		Resync:     UnclassifiedInSync,
		Classify:   ClassifiedInSync,
		Declassify: UnclassifiedInSync,
	},
	UnclassifiedDirty: {
		Change: UnclassifiedDirty,
		Resync: UnclassifiedInSync,
	},
	ClassifiedInSync: {
		Change:     ClassifiedDirty,
		Resync:     ClassifiedInSync,
		Classify:   ClassifiedInSync,
		Declassify: UnclassifiedInSync,
	},
	ClassifiedDirty: {
		Change:     ClassifiedDirty,
		Resync:     ClassifiedInSync,
		Declassify: UnclassifiedInSync,
	},
}

// Next returns the state reached from s on e. ok is false for an illegal
// move.
func Next(s State, e Event) (next State, ok bool) {
	switch e {
	case Failure:
		return Fail, true
	case Reset:
		return Empty, true
	}
	next, ok = transitions[s][e]
	return next, ok
}
