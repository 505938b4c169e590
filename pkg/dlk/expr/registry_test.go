package expr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/dlk/pkg/dlk/internalerr"
)

func TestEntityIdempotent(t *testing.T) {
	r := NewRegistry()
	a1 := r.Class("A")
	a2 := r.Class("A")
	if a1 != a2 {
		t.Fatalf("Expected same handle, got %d and %d", a1, a2)
	}
	if r.Class("owl:Thing") != Top {
		t.Error("Expected owl:Thing to resolve to Top")
	}
	// Same key under a different kind is a different entity.
	if p := r.ObjectProperty("A"); p == a1 {
		t.Error("Expected class and property with the same key to differ")
	}
	assert.Equal(t, []Handle{a1}, r.Entities(KindClass))
}

func TestEntityRejectsEmptyKey(t *testing.T) {
	r := NewRegistry()
	_, err := r.Entity(KindClass, "")
	assert.True(t, errors.Is(err, internalerr.ErrUsage))
	assert.Equal(t, Invalid, r.Class(""))
}

func TestStructuralSharing(t *testing.T) {
	r := NewRegistry()
	a, b := r.Class("A"), r.Class("B")
	p := r.ObjectProperty("p")

	ab, err := r.And(a, b)
	require.NoError(t, err)
	ba, err := r.And(b, a, b)
	require.NoError(t, err)
	assert.Equal(t, ab, ba, "operand order and duplicates must not matter")

	s1, _ := r.Some(p, ab)
	s2, _ := r.Some(p, ba)
	assert.Equal(t, s1, s2)

	nested, _ := r.And(a, must(r.And(b, a)))
	assert.Equal(t, ab, nested, "nested conjunctions flatten")

	single, _ := r.Or(a)
	assert.Equal(t, a, single)
}

func TestConstructorSortChecks(t *testing.T) {
	r := NewRegistry()
	a := r.Class("A")
	p := r.ObjectProperty("p")
	i := r.Individual("i")

	tests := []struct {
		name  string
		build func() (Handle, error)
		want  error
	}{
		{"some with class as role", func() (Handle, error) { return r.Some(a, a) }, internalerr.ErrTypeMismatch},
		{"and with individual", func() (Handle, error) { return r.And(a, i) }, internalerr.ErrTypeMismatch},
		{"one-of with class", func() (Handle, error) { return r.OneOf(a) }, internalerr.ErrTypeMismatch},
		{"empty and", func() (Handle, error) { return r.And() }, internalerr.ErrArity},
		{"empty chain", func() (Handle, error) { return r.Chain() }, internalerr.ErrArity},
		{"negative min", func() (Handle, error) { return r.Min(-1, p, a) }, internalerr.ErrArity},
		{"unknown handle", func() (Handle, error) { return r.Not(Handle(9999)) }, internalerr.ErrUnknownEntity},
		{"literal of non-datatype", func() (Handle, error) { return r.Literal("1", a) }, internalerr.ErrTypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build()
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
			// Arity and type errors are usage errors.
			assert.Equal(t, internalerr.KindOf(tt.want), internalerr.KindOf(err))
		})
	}
}

func TestInverseAndChain(t *testing.T) {
	r := NewRegistry()
	p := r.ObjectProperty("p")
	q := r.ObjectProperty("q")

	inv, err := r.Inverse(p)
	require.NoError(t, err)
	back, err := r.Inverse(inv)
	require.NoError(t, err)
	assert.Equal(t, p, back)

	ch, err := r.Chain(p, q)
	require.NoError(t, err)
	assert.Equal(t, SortRoleChain, r.Sort(ch))
	rev, _ := r.Chain(q, p)
	assert.NotEqual(t, ch, rev, "chains are ordered")

	one, _ := r.Chain(p)
	assert.Equal(t, p, one)
}

func TestArgListProtocol(t *testing.T) {
	r := NewRegistry()
	a, b := r.Class("A"), r.Class("B")

	require.NoError(t, r.BeginArgs())
	require.NoError(t, r.AddArg(a))
	require.NoError(t, r.AddArg(b))
	require.NoError(t, r.EndArgs())
	h, err := r.BuildNary(OpAnd)
	require.NoError(t, err)

	want, _ := r.And(a, b)
	assert.Equal(t, want, h)
	assert.False(t, r.ArgsPending())

	t.Run("nested open", func(t *testing.T) {
		require.NoError(t, r.BeginArgs())
		err := r.BeginArgs()
		assert.True(t, errors.Is(err, internalerr.ErrUsage))
		require.NoError(t, r.EndArgs())
		_, _ = r.TakeArgs()
	})

	t.Run("add without open", func(t *testing.T) {
		err := r.AddArg(a)
		assert.True(t, errors.Is(err, internalerr.ErrUsage))
	})

	t.Run("build while open", func(t *testing.T) {
		require.NoError(t, r.BeginArgs())
		_, err := r.BuildNary(OpOr)
		assert.True(t, errors.Is(err, internalerr.ErrUsage))
		require.NoError(t, r.EndArgs())
		_, _ = r.TakeArgs()
	})

	t.Run("empty list", func(t *testing.T) {
		require.NoError(t, r.BeginArgs())
		require.NoError(t, r.EndArgs())
		_, err := r.BuildNary(OpOr)
		assert.True(t, errors.Is(err, internalerr.ErrArity))
		assert.False(t, r.ArgsPending())
	})

	t.Run("non n-ary op", func(t *testing.T) {
		_, err := r.BuildNary(OpSome)
		assert.True(t, errors.Is(err, internalerr.ErrUsage))
	})
}

func TestString(t *testing.T) {
	r := NewRegistry()
	p := r.ObjectProperty("hasChild")
	c, _ := r.Min(2, p, r.Class("Person"))
	assert.Equal(t, "Min(2 hasChild Person)", r.String(c))

	dt := r.Datatype("xsd:integer")
	lit, _ := r.Literal("5", dt)
	assert.Equal(t, `"5"^^xsd:integer`, r.String(lit))
}
