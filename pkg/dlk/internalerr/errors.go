package internalerr

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies an error for handling purposes.
type Kind int

const (
	KindNone Kind = iota
	// KindUsage is a caller bug: malformed arg lists, arity or sort violations.
	KindUsage
	// KindUnknownEntity means a handle was not registered with the kernel.
	KindUnknownEntity
	// KindUnknownAxiom means an axiom handle is not live.
	KindUnknownAxiom
	// KindUnsupported means a construct was rejected before reaching the reasoner.
	KindUnsupported
	// KindInconsistentKB is a query outcome rather than a failure.
	KindInconsistentKB
	// KindTimedOut and KindCancelled are cooperative aborts and may be retried.
	KindTimedOut
	KindCancelled
	// KindFatal is an invariant violation inside the engines.
	KindFatal
	// KindInvalidConfig is a configuration error.
	KindInvalidConfig
	// KindStore is a journal/storage failure.
	KindStore
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindUsage:
		return "usage"
	case KindUnknownEntity:
		return "unknown-entity"
	case KindUnknownAxiom:
		return "unknown-axiom"
	case KindUnsupported:
		return "unsupported"
	case KindInconsistentKB:
		return "inconsistent-kb"
	case KindTimedOut:
		return "timed-out"
	case KindCancelled:
		return "cancelled"
	case KindFatal:
		return "fatal"
	case KindInvalidConfig:
		return "invalid-config"
	case KindStore:
		return "store"
	default:
		return "unknown"
	}
}

// Sentinel errors for common cases
var (
	ErrUsage            = errors.New("usage error")
	ErrArity            = errors.New("arity error")
	ErrTypeMismatch     = errors.New("type mismatch")
	ErrNotSynced        = errors.New("knowledge base not in sync")
	ErrUnknownEntity    = errors.New("unknown entity")
	ErrUnknownAxiom     = errors.New("unknown axiom")
	ErrUnsupported      = errors.New("unsupported construct")
	ErrInconsistentKB   = errors.New("inconsistent knowledge base")
	ErrTimedOut         = errors.New("operation timed out")
	ErrCancelled        = errors.New("operation cancelled")
	ErrFatal            = errors.New("fatal engine error")
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// KindOf returns the kind of err, or KindNone for nil.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	switch {
	case errors.Is(err, ErrFatal):
		return KindFatal
	case errors.Is(err, ErrUsage), errors.Is(err, ErrArity),
		errors.Is(err, ErrTypeMismatch), errors.Is(err, ErrNotSynced):
		return KindUsage
	case errors.Is(err, ErrUnknownEntity):
		return KindUnknownEntity
	case errors.Is(err, ErrUnknownAxiom):
		return KindUnknownAxiom
	case errors.Is(err, ErrUnsupported):
		return KindUnsupported
	case errors.Is(err, ErrInconsistentKB):
		return KindInconsistentKB
	case errors.Is(err, ErrTimedOut), errors.Is(err, context.DeadlineExceeded):
		return KindTimedOut
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.Is(err, ErrInvalidConfig):
		return KindInvalidConfig
	case errors.Is(err, ErrStoreUnavailable):
		return KindStore
	}
	return KindFatal
}

// Retryable reports whether the operation may succeed when retried with a
// larger or absent budget.
func Retryable(err error) bool {
	k := KindOf(err)
	return k == KindTimedOut || k == KindCancelled
}

// FromContext maps a context error to ErrTimedOut or ErrCancelled.
func FromContext(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrTimedOut, err)
	default:
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
}
