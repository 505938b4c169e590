package tbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/dlk/pkg/dlk/axiom"
	"github.com/cognicore/dlk/pkg/dlk/expr"
	"github.com/cognicore/dlk/pkg/dlk/internalerr"
	"github.com/cognicore/dlk/pkg/dlk/rbox"
)

type fixture struct {
	reg     *expr.Registry
	b       *Builder
	entries []axiom.Entry
}

func newFixture() *fixture {
	reg := expr.NewRegistry()
	return &fixture{reg: reg, b: NewBuilder(reg)}
}

func (f *fixture) tell(t *testing.T, ax axiom.Axiom) axiom.Handle {
	t.Helper()
	h := axiom.Handle(len(f.entries) + 1)
	e := axiom.Entry{Handle: h, Axiom: ax}
	require.NoError(t, f.b.Add(e))
	f.entries = append(f.entries, e)
	return h
}

func (f *fixture) compile(t *testing.T, opts Options) *TBox {
	t.Helper()
	rb, err := rbox.Build(f.reg, f.entries)
	require.NoError(t, err)
	tb, err := f.b.Compile(rb, opts)
	require.NoError(t, err)
	return tb
}

// must unwraps a constructor result, failing the test on error.
func must(t *testing.T) func(expr.Handle, error) expr.Handle {
	return func(h expr.Handle, err error) expr.Handle {
		t.Helper()
		require.NoError(t, err)
		return h
	}
}

func TestPrimitiveAndDefinitions(t *testing.T) {
	f := newFixture()
	reg := f.reg
	a, b, c := reg.Class("A"), reg.Class("B"), reg.Class("C")
	x, y := reg.Class("X"), reg.Class("Y")
	bc := must(t)(reg.And(b, c))

	f.tell(t, axiom.SubClass(b, c))
	f.tell(t, axiom.Equivalent(a, bc))
	f.tell(t, axiom.Equivalent(x, bc))
	f.tell(t, axiom.SubClass(x, y))

	tb := f.compile(t, Options{})
	assert.Equal(t, []expr.Handle{bc}, tb.Unfold[a])
	assert.Equal(t, []expr.Handle{reg.Complement(bc)}, tb.NegUnfold[a])

	// X has a second axiom on the left, so only X ⊑ B ⊓ C unfolds and
	// B ⊓ C ⊑ X is absorbed into B
	assert.Empty(t, tb.NegUnfold[x])
	assert.ElementsMatch(t, []expr.Handle{bc, y}, tb.Unfold[x])
	notC := reg.Complement(c)
	assert.ElementsMatch(t, []expr.Handle{c, must(t)(reg.Or(notC, x))}, tb.Unfold[b])
	assert.Empty(t, tb.Globals)
}

func TestCyclicDefinitionIsDemoted(t *testing.T) {
	f := newFixture()
	reg := f.reg
	a, r := reg.Class("A"), reg.ObjectProperty("r")
	body := must(t)(reg.Some(r, a))
	f.tell(t, axiom.Equivalent(a, body))

	tb := f.compile(t, Options{})
	assert.Equal(t, []expr.Handle{body}, tb.Unfold[a])
	assert.Empty(t, tb.NegUnfold)
	assert.Equal(t, []expr.Handle{must(t)(reg.Or(a, reg.Complement(body)))}, tb.Globals)
}

func TestAbsorption(t *testing.T) {
	f := newFixture()
	reg := f.reg
	c, d, e := reg.Class("C"), reg.Class("D"), reg.Class("E")
	r := reg.ObjectProperty("r")
	i := reg.Individual("i")

	f.tell(t, axiom.SubClass(must(t)(reg.Some(r, c)), d))
	f.tell(t, axiom.Disjoint(d, e))
	f.tell(t, axiom.SubClass(must(t)(reg.OneOf(i)), e))
	cOrD := must(t)(reg.Or(c, d))
	f.tell(t, axiom.SubClass(expr.Top, cOrD))

	tb := f.compile(t, Options{})
	inv := must(t)(reg.Inverse(r))
	assert.Contains(t, tb.Unfold[c], must(t)(reg.All(inv, d)))
	assert.Contains(t, tb.Unfold[d], reg.Complement(e))
	assert.Equal(t, []expr.Handle{e}, tb.Nominal[i])
	assert.Equal(t, []expr.Handle{cOrD}, tb.Globals)
	assert.True(t, tb.Features.Inverse)
	assert.True(t, tb.Features.Nominals)
	assert.False(t, tb.Features.Number)
	// no restriction creates the r-edge that ∀r⁻.D would follow back
	assert.False(t, tb.Features.InverseFlow)
}

func TestDomainAndRange(t *testing.T) {
	reg := expr.NewRegistry()
	person, place := reg.Class("Person"), reg.Class("Place")
	lives, born := reg.ObjectProperty("livesIn"), reg.ObjectProperty("bornIn")

	axs := []axiom.Axiom{
		axiom.ObjectDomain(lives, person),
		axiom.ObjectRange(lives, place),
		axiom.SubObjectProperty(born, lives),
	}

	t.Run("tables", func(t *testing.T) {
		f := &fixture{reg: reg, b: NewBuilder(reg)}
		for _, ax := range axs {
			f.tell(t, ax)
		}
		tb := f.compile(t, Options{UseRangeDomain: true})
		rb, rl := role(t, tb, born), role(t, tb, lives)
		assert.Equal(t, []expr.Handle{person}, tb.Domain(rl))
		assert.Equal(t, []expr.Handle{person}, tb.Domain(rb))
		assert.Equal(t, []expr.Handle{place}, tb.Domain(rb.Inverse()))
		assert.Equal(t, []expr.Handle{place}, tb.Domain(rl.Inverse()))
		assert.Empty(t, tb.Globals)
	})

	t.Run("globals", func(t *testing.T) {
		f := &fixture{reg: reg, b: NewBuilder(reg)}
		for _, ax := range axs {
			f.tell(t, ax)
		}
		tb := f.compile(t, Options{})
		assert.Len(t, tb.Globals, 2)
		assert.Contains(t, tb.Globals, must(t)(reg.All(lives, place)))
	})
}

func role(t *testing.T, tb *TBox, h expr.Handle) rbox.Role {
	t.Helper()
	r, err := tb.RBox.Role(h)
	require.NoError(t, err)
	return r
}

func TestRetractionIsReferenceCounted(t *testing.T) {
	f := newFixture()
	reg := f.reg
	a, b := reg.Class("A"), reg.Class("B")

	h1 := f.tell(t, axiom.SubClass(a, b))
	h2 := f.tell(t, axiom.SubClass(a, b))
	assert.Equal(t, 1, f.b.Effects())

	require.NoError(t, f.b.Remove(h1))
	assert.Equal(t, 1, f.b.Effects())
	require.NoError(t, f.b.Remove(h2))
	assert.Equal(t, 0, f.b.Effects())

	err := f.b.Remove(h2)
	assert.ErrorIs(t, err, internalerr.ErrUnknownAxiom)
}

func TestApplyDelta(t *testing.T) {
	reg := expr.NewRegistry()
	a, b, c := reg.Class("A"), reg.Class("B"), reg.Class("C")
	s := axiom.NewStore()
	s.Tell(axiom.SubClass(a, b))
	h := s.Tell(axiom.SubClass(b, c))

	bld := NewBuilder(reg)
	require.NoError(t, bld.Apply(s.Delta()))
	s.MarkSynced()
	assert.Equal(t, 2, bld.Len())

	_, err := s.Retract(h)
	require.NoError(t, err)
	require.NoError(t, bld.Apply(s.Delta()))
	assert.Equal(t, 1, bld.Len())
}

func TestABox(t *testing.T) {
	f := newFixture()
	reg := f.reg
	a := reg.Class("A")
	r := reg.ObjectProperty("r")
	u := reg.DataProperty("age")
	i, j, k := reg.Individual("i"), reg.Individual("j"), reg.Individual("k")
	lit := must(t)(reg.Literal("3", reg.Datatype("xsd:integer")))

	f.tell(t, axiom.Instance(i, a))
	f.tell(t, axiom.Related(r, i, j))
	f.tell(t, axiom.Different(i, j))
	f.tell(t, axiom.Same(k, i))
	f.tell(t, axiom.Value(u, j, lit))
	f.tell(t, axiom.Functional(r))

	tb := f.compile(t, Options{})
	assert.Equal(t, []expr.Handle{i, j, k}, tb.ABox.Individuals)
	assert.ElementsMatch(t, []expr.Handle{a, must(t)(reg.OneOf(k))}, tb.ABox.Types[i])
	require.Len(t, tb.ABox.Edges, 1)
	assert.Equal(t, Edge{From: i, To: j, Role: role(t, tb, r)}, tb.ABox.Edges[0])
	assert.Equal(t, [][2]expr.Handle{{i, j}}, tb.ABox.Different)
	assert.True(t, tb.Features.Number)
	assert.True(t, tb.Features.Data)
}

func TestInverseFlow(t *testing.T) {
	tests := []struct {
		name string
		axs  func(reg *expr.Registry) []axiom.Axiom
		want bool
	}{
		{"forward restrictions", func(reg *expr.Registry) []axiom.Axiom {
			s, r := reg.ObjectProperty("s"), reg.ObjectProperty("r")
			return []axiom.Axiom{
				axiom.SubClass(reg.Class("A"), must(t)(reg.Some(s, must(t)(reg.All(r, reg.Class("B")))))),
				axiom.InverseProps(reg.ObjectProperty("p"), reg.ObjectProperty("q")),
			}
		}, false},
		{"inverse of a restricted role", func(reg *expr.Registry) []axiom.Axiom {
			s, r := reg.ObjectProperty("s"), reg.ObjectProperty("r")
			return []axiom.Axiom{
				axiom.InverseProps(s, r),
				axiom.SubClass(reg.Class("A"), must(t)(reg.Some(s, must(t)(reg.All(r, reg.Class("B")))))),
			}
		}, true},
		{"chain through an inverse", func(reg *expr.Registry) []axiom.Axiom {
			s, r, u := reg.ObjectProperty("s"), reg.ObjectProperty("r"), reg.ObjectProperty("u")
			return []axiom.Axiom{
				axiom.SubObjectProperty(must(t)(reg.Chain(r, must(t)(reg.Inverse(s)))), u),
				axiom.SubClass(reg.Class("A"), must(t)(reg.Some(s, reg.Class("B")))),
				axiom.SubClass(reg.Class("A"), must(t)(reg.All(u, reg.Class("B")))),
			}
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			for _, ax := range tt.axs(f.reg) {
				f.tell(t, ax)
			}
			tb := f.compile(t, Options{})
			if tb.Features.InverseFlow != tt.want {
				t.Errorf("Expected InverseFlow %v, got %v", tt.want, tb.Features.InverseFlow)
			}
		})
	}
}

func TestCheckRejectsSentinelCharacteristics(t *testing.T) {
	reg := expr.NewRegistry()
	assert.ErrorIs(t, Check(reg, axiom.Functional(expr.TopObjectRole)), internalerr.ErrUnsupported)
	assert.ErrorIs(t, Check(reg, axiom.DataRange(expr.TopDataRole, expr.TopDatatype)), internalerr.ErrUnsupported)
	assert.NoError(t, Check(reg, axiom.ObjectDomain(expr.TopObjectRole, reg.Class("A"))))
}
