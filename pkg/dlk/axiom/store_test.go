package axiom

import (
	"errors"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/dlk/pkg/dlk/expr"
	"github.com/cognicore/dlk/pkg/dlk/internalerr"
)

func TestTellRetract(t *testing.T) {
	reg := expr.NewRegistry()
	s := NewStore()

	h := s.Tell(SubClass(reg.Class("A"), reg.Class("B")))
	if h == 0 {
		t.Fatal("Expected non-zero handle")
	}
	if s.Len() != 1 {
		t.Fatalf("Expected 1 live axiom, got %d", s.Len())
	}

	_, err := s.Retract(h)
	require.NoError(t, err)

	_, err = s.Retract(h)
	if !errors.Is(err, internalerr.ErrUnknownAxiom) {
		t.Fatalf("Expected ErrUnknownAxiom on second retract, got %v", err)
	}

	_, err = s.Retract(Handle(999))
	assert.True(t, errors.Is(err, internalerr.ErrUnknownAxiom))
}

func TestDeltaCancellation(t *testing.T) {
	reg := expr.NewRegistry()
	s := NewStore()

	h1 := s.Tell(SubClass(reg.Class("A"), reg.Class("B")))
	s.MarkSynced()

	h2 := s.Tell(SubClass(reg.Class("B"), reg.Class("C")))
	_, err := s.Retract(h2)
	require.NoError(t, err)
	assert.True(t, s.Delta().Empty(), "tell then retract before sync leaves no delta")

	_, err = s.Retract(h1)
	require.NoError(t, err)
	d := s.Delta()
	require.Len(t, d.Removed, 1)
	assert.Equal(t, h1, d.Removed[0].Handle)
}

func TestBatch(t *testing.T) {
	reg := expr.NewRegistry()
	s := NewStore()
	s.DrainCommits()

	require.NoError(t, s.Start())
	assert.True(t, errors.Is(s.Start(), internalerr.ErrUsage))

	h1 := s.Tell(SubClass(reg.Class("A"), reg.Class("B")))
	h2 := s.Tell(SubClass(reg.Class("B"), reg.Class("C")))
	assert.Equal(t, 0, s.Len(), "batched tells are not visible before End")
	assert.Len(t, s.Effective(), 2)

	_, err := s.Retract(h2)
	require.NoError(t, err)

	cs, err := s.End()
	require.NoError(t, err)
	require.Len(t, cs.Added, 1)
	assert.Equal(t, h1, cs.Added[0].Handle)
	_, err = ulid.Parse(cs.ID)
	assert.NoError(t, err)
	assert.Len(t, s.DrainCommits(), 1)

	_, err = s.End()
	assert.True(t, errors.Is(err, internalerr.ErrUsage))
}

func TestAbort(t *testing.T) {
	reg := expr.NewRegistry()
	s := NewStore()
	live := s.Tell(SubClass(reg.Class("A"), reg.Class("B")))

	require.NoError(t, s.Start())
	h := s.Tell(SubClass(reg.Class("X"), reg.Class("Y")))
	_, err := s.Retract(live)
	require.NoError(t, err)
	require.NoError(t, s.Abort())

	_, ok := s.Get(live)
	assert.True(t, ok, "abort restores retracted axioms")
	_, err = s.Retract(h)
	assert.True(t, errors.Is(err, internalerr.ErrUnknownAxiom), "abort forgets batched tells")
}
