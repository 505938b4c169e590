package dlk

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/cognicore/dlk/pkg/dlk/axiom"
	"github.com/cognicore/dlk/pkg/dlk/config"
	"github.com/cognicore/dlk/pkg/dlk/expr"
	"github.com/cognicore/dlk/pkg/dlk/internalerr"
	"github.com/cognicore/dlk/pkg/dlk/metrics"
	"github.com/cognicore/dlk/pkg/dlk/store"
	"github.com/cognicore/dlk/pkg/dlk/store/memstore"
	"github.com/cognicore/dlk/pkg/dlk/syncstate"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newKernel(t *testing.T, tweak ...func(*Options)) *Kernel {
	t.Helper()
	opts := Options{Config: config.Default()}
	for _, f := range tweak {
		f(&opts)
	}
	k, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { k.Close() })
	return k
}

func tell(t *testing.T, k *Kernel, axs ...axiom.Axiom) []axiom.Handle {
	t.Helper()
	hs := make([]axiom.Handle, 0, len(axs))
	for _, ax := range axs {
		h, err := k.Tell(ax)
		require.NoError(t, err, ax.String(k.Expr()))
		hs = append(hs, h)
	}
	return hs
}

func names(reg *expr.Registry, sets [][]expr.Handle) []string {
	var out []string
	for _, s := range sets {
		for _, h := range s {
			out = append(out, reg.Key(h))
		}
	}
	return out
}

func TestSubsumptionIsTransitive(t *testing.T) {
	ctx := context.Background()
	k := newKernel(t)
	reg := k.Expr()
	a, b, c := reg.Class("A"), reg.Class("B"), reg.Class("C")
	tell(t, k, axiom.SubClass(a, b), axiom.SubClass(b, c))

	ok, err := k.IsSubsumedBy(ctx, a, c)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = k.IsSubsumedBy(ctx, c, a)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, k.Classify(ctx))
	assert.Equal(t, syncstate.ClassifiedInSync, k.State())

	supers, err := k.SuperClasses(ctx, a, false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"B", "C", "owl:Thing"}, names(reg, supers))

	direct, err := k.SuperClasses(ctx, a, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, names(reg, direct))

	subs, err := k.SubClasses(ctx, c, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, names(reg, subs))
}

func TestDisjointSuperclassesMakeClassUnsatisfiable(t *testing.T) {
	ctx := context.Background()
	k := newKernel(t)
	reg := k.Expr()
	a, b, x := reg.Class("A"), reg.Class("B"), reg.Class("X")
	tell(t, k, axiom.Disjoint(a, b), axiom.SubClass(x, a), axiom.SubClass(x, b))

	sat, err := k.IsSatisfiable(ctx, x)
	require.NoError(t, err)
	assert.False(t, sat)

	disjoint, err := k.IsDisjointWith(ctx, a, b)
	require.NoError(t, err)
	assert.True(t, disjoint)

	// An instance of X leaves no model.
	tell(t, k, axiom.Instance(reg.Individual("x"), x))
	consistent, err := k.IsConsistent(ctx)
	require.NoError(t, err)
	assert.False(t, consistent)

	sat, err = k.IsSatisfiable(ctx, x)
	require.NoError(t, err)
	assert.False(t, sat)
	sat, err = k.IsSatisfiable(ctx, a)
	require.NoError(t, err)
	assert.False(t, sat, "nothing is satisfiable in an inconsistent knowledge base")

	err = k.Classify(ctx)
	assert.True(t, errors.Is(err, internalerr.ErrInconsistentKB), "got %v", err)
	assert.Equal(t, syncstate.UnclassifiedInSync, k.State())
}

func TestEquivalentClassesShareNode(t *testing.T) {
	ctx := context.Background()
	k := newKernel(t)
	reg := k.Expr()
	a, b := reg.Class("A"), reg.Class("B")
	tell(t, k, axiom.Equivalent(a, b))

	require.NoError(t, k.Classify(ctx))
	na, _ := k.Taxonomy().NodeOf(a)
	nb, _ := k.Taxonomy().NodeOf(b)
	require.NotNil(t, na)
	assert.Same(t, na, nb)

	eq, err := k.EquivalentClasses(ctx, a)
	require.NoError(t, err)
	assert.ElementsMatch(t, []expr.Handle{a, b}, eq)

	ok, err := k.IsEquivalentTo(ctx, a, b)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTypesDirectAndIndirect(t *testing.T) {
	ctx := context.Background()
	k := newKernel(t)
	reg := k.Expr()
	c, d, i := reg.Class("C"), reg.Class("D"), reg.Individual("i")
	tell(t, k, axiom.Instance(i, c), axiom.SubClass(c, d))

	all, err := k.Types(ctx, i, false)
	require.NoError(t, err)
	assert.Contains(t, names(reg, all), "D")
	assert.Contains(t, names(reg, all), "C")

	direct, err := k.Types(ctx, i, true)
	require.NoError(t, err)
	assert.Contains(t, names(reg, direct), "C")
	assert.NotContains(t, names(reg, direct), "D")

	inst, err := k.Instances(ctx, d, false)
	require.NoError(t, err)
	assert.Equal(t, []expr.Handle{i}, inst)

	inst, err = k.Instances(ctx, d, true)
	require.NoError(t, err)
	assert.Empty(t, inst)

	ok, err := k.IsInstance(ctx, i, d)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRetractTwice(t *testing.T) {
	k := newKernel(t)
	reg := k.Expr()
	hs := tell(t, k, axiom.SubClass(reg.Class("A"), reg.Class("B")))

	require.NoError(t, k.Retract(hs[0]))
	err := k.Retract(hs[0])
	require.Error(t, err)
	assert.Equal(t, internalerr.KindUnknownAxiom, internalerr.KindOf(err))
}

func TestTellRetractRoundTrip(t *testing.T) {
	ctx := context.Background()
	k := newKernel(t)
	reg := k.Expr()
	a, b, c := reg.Class("A"), reg.Class("B"), reg.Class("C")
	r := reg.ObjectProperty("r")
	some, err := reg.Some(r, b)
	require.NoError(t, err)
	tell(t, k, axiom.SubClass(a, some), axiom.SubClass(b, c))

	type q struct{ sub, sup expr.Handle }
	queries := []q{{a, some}, {a, c}, {b, c}, {c, a}}
	before := make([]bool, len(queries))
	for i, x := range queries {
		before[i], err = k.IsSubsumedBy(ctx, x.sub, x.sup)
		require.NoError(t, err)
	}
	satBefore, err := k.IsSatisfiable(ctx, a)
	require.NoError(t, err)

	all, err := reg.All(r, reg.Class("Nothing"))
	require.NoError(t, err)
	h := tell(t, k, axiom.SubClass(a, c), axiom.SubClass(a, all))
	for _, x := range h {
		require.NoError(t, k.Retract(x))
	}

	for i, x := range queries {
		got, err := k.IsSubsumedBy(ctx, x.sub, x.sup)
		require.NoError(t, err)
		assert.Equal(t, before[i], got, "%s ⊑ %s", reg.String(x.sub), reg.String(x.sup))
	}
	satAfter, err := k.IsSatisfiable(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, satBefore, satAfter)
}

func TestAddingAxiomsNeverGrowsSatisfiableSet(t *testing.T) {
	ctx := context.Background()
	k := newKernel(t)
	reg := k.Expr()
	a, b, c := reg.Class("A"), reg.Class("B"), reg.Class("C")
	r := reg.ObjectProperty("r")
	notB, err := reg.Not(b)
	require.NoError(t, err)
	someB, err := reg.Some(r, b)
	require.NoError(t, err)
	allNotB, err := reg.All(r, notB)
	require.NoError(t, err)
	candidates := []expr.Handle{a, b, c, someB, allNotB}

	steps := []axiom.Axiom{
		axiom.SubClass(a, someB),
		axiom.SubClass(c, allNotB),
		axiom.SubClass(a, c),
		axiom.Disjoint(b, c),
	}
	unsat := make(map[expr.Handle]bool)
	for _, ax := range steps {
		tell(t, k, ax)
		for _, x := range candidates {
			sat, err := k.IsSatisfiable(ctx, x)
			require.NoError(t, err)
			if unsat[x] {
				assert.False(t, sat, "%s became satisfiable after %s", reg.String(x), ax.String(reg))
			}
			if !sat {
				unsat[x] = true
			}
		}
	}
	assert.True(t, unsat[a], "A ⊑ ∃r.B ⊓ ∀r.¬B")
}

func TestClassificationAgreesWithSubsumptionTests(t *testing.T) {
	ctx := context.Background()
	k := newKernel(t)
	reg := k.Expr()
	animal, dog, cat := reg.Class("Animal"), reg.Class("Dog"), reg.Class("Cat")
	owner, dogOwner := reg.Class("Owner"), reg.Class("DogOwner")
	owns := reg.ObjectProperty("owns")
	someAnimal, err := reg.Some(owns, animal)
	require.NoError(t, err)
	someDog, err := reg.Some(owns, dog)
	require.NoError(t, err)
	tell(t, k,
		axiom.SubClass(dog, animal),
		axiom.SubClass(cat, animal),
		axiom.Disjoint(dog, cat),
		axiom.Equivalent(owner, someAnimal),
		axiom.Equivalent(dogOwner, someDog),
	)
	require.NoError(t, k.Classify(ctx))
	tax := k.Taxonomy()
	require.NotNil(t, tax)

	classes := []expr.Handle{animal, dog, cat, owner, dogOwner}
	for _, c := range classes {
		for _, d := range classes {
			if c == d {
				continue
			}
			want, err := k.IsSubsumedBy(ctx, c, d)
			require.NoError(t, err)
			nc, _ := tax.NodeOf(c)
			nd, _ := tax.NodeOf(d)
			got := nc.ID == nd.ID || tax.IsAncestor(nd.ID, nc.ID)
			assert.Equal(t, want, got, "%s ⊑ %s", reg.Key(c), reg.Key(d))
		}
	}

	supers, err := k.SuperClasses(ctx, dogOwner, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"Owner"}, names(reg, supers))
}

func TestComplexConceptQueries(t *testing.T) {
	ctx := context.Background()
	k := newKernel(t)
	reg := k.Expr()
	a, b, c := reg.Class("A"), reg.Class("B"), reg.Class("C")
	i := reg.Individual("i")
	tell(t, k, axiom.SubClass(a, b), axiom.SubClass(c, b), axiom.Instance(i, a), axiom.Instance(i, c))

	ac, err := reg.And(a, c)
	require.NoError(t, err)

	supers, err := k.SuperClasses(ctx, ac, true)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A", "C"}, names(reg, supers))

	eq, err := k.EquivalentClasses(ctx, ac)
	require.NoError(t, err)
	assert.Empty(t, eq)

	inst, err := k.Instances(ctx, ac, false)
	require.NoError(t, err)
	assert.Equal(t, []expr.Handle{i}, inst)

	subs, err := k.SubClasses(ctx, ac, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"owl:Nothing"}, names(reg, subs))

	subs, err = k.SubClasses(ctx, ac, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"owl:Nothing"}, names(reg, subs))
}

func TestUnknownEntitiesAreRejected(t *testing.T) {
	ctx := context.Background()
	k := newKernel(t)
	reg := k.Expr()
	a := reg.Class("A")
	tell(t, k, axiom.SubClass(a, reg.Class("B")))

	_, err := k.IsSatisfiable(ctx, expr.Handle(99999))
	assert.Equal(t, internalerr.KindUnknownEntity, internalerr.KindOf(err))

	_, err = k.IsSubsumedBy(ctx, a, reg.ObjectProperty("r"))
	assert.Equal(t, internalerr.KindUsage, internalerr.KindOf(err))

	_, err = k.Tell(axiom.SubClass(a, expr.Handle(99999)))
	assert.Equal(t, internalerr.KindUnknownEntity, internalerr.KindOf(err))
	assert.Equal(t, 1, k.Axioms())
}

func TestUnsupportedAxiomsRejectedAtTell(t *testing.T) {
	k := newKernel(t)
	reg := k.Expr()
	r, s := reg.ObjectProperty("r"), reg.ObjectProperty("s")
	tell(t, k, axiom.Transitive(r))

	// Cardinality on a transitive role.
	_, err := k.Tell(axiom.Functional(r))
	assert.Equal(t, internalerr.KindUnsupported, internalerr.KindOf(err))

	// Making a restricted role non-simple.
	tell(t, k, axiom.Irreflexive(s))
	_, err = k.Tell(axiom.SubObjectProperty(r, s))
	assert.Equal(t, internalerr.KindUnsupported, internalerr.KindOf(err))

	// A chain into a restricted role.
	chain, err := reg.Chain(s, r)
	require.NoError(t, err)
	_, err = k.Tell(axiom.SubObjectProperty(chain, s))
	assert.Equal(t, internalerr.KindUnsupported, internalerr.KindOf(err))

	// Unsupported datatype.
	lit, err := reg.Literal("x", reg.Datatype("xsd:anyURI"))
	require.NoError(t, err)
	_, err = k.Tell(axiom.Value(reg.DataProperty("u"), reg.Individual("i"), lit))
	assert.Equal(t, internalerr.KindUnsupported, internalerr.KindOf(err))

	assert.Equal(t, 2, k.Axioms())
}

func TestRoleChecksFollowRetractsAndBatches(t *testing.T) {
	k := newKernel(t)
	reg := k.Expr()
	r, s := reg.ObjectProperty("r"), reg.ObjectProperty("s")
	hs := tell(t, k, axiom.Transitive(r), axiom.Irreflexive(s))
	sub := axiom.SubObjectProperty(r, s)

	_, err := k.Tell(sub)
	assert.Equal(t, internalerr.KindUnsupported, internalerr.KindOf(err))

	require.NoError(t, k.Retract(hs[1]))
	subH := tell(t, k, sub)[0]
	_, err = k.Tell(axiom.Functional(s))
	assert.Equal(t, internalerr.KindUnsupported, internalerr.KindOf(err))

	t.Run("aborted batch", func(t *testing.T) {
		require.NoError(t, k.StartChanges())
		require.NoError(t, k.Retract(subH))
		tell(t, k, axiom.Functional(s))
		require.NoError(t, k.AbortChanges())

		_, err := k.Tell(axiom.Functional(s))
		assert.Equal(t, internalerr.KindUnsupported, internalerr.KindOf(err))
	})

	t.Run("only role axioms are rebuilt", func(t *testing.T) {
		a := reg.Class("A")
		for i := 0; i < 20; i++ {
			tell(t, k, axiom.SubClass(reg.Class(fmt.Sprintf("C%d", i)), a))
		}
		tell(t, k, axiom.SubObjectProperty(reg.ObjectProperty("q"), r))
		if got := len(k.roles.entries); got != 3 {
			t.Errorf("Expected 3 tracked role axioms, got %d", got)
		}
	})
}

func TestBatches(t *testing.T) {
	ctx := context.Background()
	journal := memstore.New()
	k := newKernel(t, func(o *Options) { o.Journal = journal })
	reg := k.Expr()
	a, b, c := reg.Class("A"), reg.Class("B"), reg.Class("C")
	tell(t, k, axiom.SubClass(a, b))
	require.NoError(t, k.Classify(ctx))

	require.NoError(t, k.StartChanges())
	h := tell(t, k, axiom.SubClass(b, c))
	assert.Equal(t, syncstate.ClassifiedInSync, k.State(), "batch is not visible before EndChanges")
	require.NoError(t, k.AbortChanges())
	_, ok := k.Axiom(h[0])
	assert.False(t, ok)
	assert.Equal(t, syncstate.ClassifiedInSync, k.State())

	require.NoError(t, k.StartChanges())
	tell(t, k, axiom.SubClass(b, c))
	require.NoError(t, k.EndChanges(ctx))
	assert.Equal(t, syncstate.ClassifiedDirty, k.State())

	ok, err := k.IsSubsumedBy(ctx, a, c)
	require.NoError(t, err)
	assert.True(t, ok)

	changes, err := journal.Changes(ctx, 0)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Len(t, changes[1].Added, 1)
	assert.Equal(t, "SubClassOf", changes[1].Added[0].Kind)
	assert.Less(t, changes[0].ID, changes[1].ID)

	snap, found, err := journal.LatestSnapshot(ctx, store.KindTaxonomy)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, changes[1].ID, snap.ChangeID, "resync reclassified")
}

func TestSyncStateLifecycle(t *testing.T) {
	ctx := context.Background()
	k := newKernel(t)
	reg := k.Expr()
	a, b := reg.Class("A"), reg.Class("B")
	assert.Equal(t, syncstate.Empty, k.State())

	tell(t, k, axiom.SubClass(a, b))
	assert.Equal(t, syncstate.Empty, k.State())

	require.NoError(t, k.Sync(ctx))
	assert.Equal(t, syncstate.UnclassifiedInSync, k.State())

	tell(t, k, axiom.SubClass(b, reg.Class("C")))
	assert.Equal(t, syncstate.UnclassifiedDirty, k.State())

	_, err := k.SubClasses(ctx, b, false)
	require.NoError(t, err)
	assert.Equal(t, syncstate.ClassifiedInSync, k.State())

	tell(t, k, axiom.Disjoint(a, reg.Class("D")))
	assert.Equal(t, syncstate.ClassifiedDirty, k.State())
	require.NoError(t, k.Sync(ctx))
	assert.Equal(t, syncstate.ClassifiedInSync, k.State(), "resync reclassifies")
}

func TestFullReloadMatchesIncremental(t *testing.T) {
	ctx := context.Background()
	for _, incremental := range []bool{true, false} {
		k := newKernel(t, func(o *Options) { o.Config.Incremental = incremental })
		reg := k.Expr()
		a, b, c := reg.Class("A"), reg.Class("B"), reg.Class("C")
		hs := tell(t, k, axiom.SubClass(a, b))
		require.NoError(t, k.Sync(ctx))
		tell(t, k, axiom.SubClass(b, c))
		require.NoError(t, k.Retract(hs[0]))

		ok, err := k.IsSubsumedBy(ctx, a, c)
		require.NoError(t, err)
		assert.False(t, ok, "incremental=%v", incremental)
		ok, err = k.IsSubsumedBy(ctx, b, c)
		require.NoError(t, err)
		assert.True(t, ok, "incremental=%v", incremental)
	}
}

func TestWithoutAutoSyncQueriesNeedExplicitSync(t *testing.T) {
	ctx := context.Background()
	k := newKernel(t, func(o *Options) { o.Config.AutoSync = false })
	reg := k.Expr()
	a, b := reg.Class("A"), reg.Class("B")
	tell(t, k, axiom.SubClass(a, b))

	_, err := k.IsSubsumedBy(ctx, a, b)
	assert.True(t, errors.Is(err, internalerr.ErrNotSynced), "got %v", err)

	require.NoError(t, k.Sync(ctx))
	ok, err := k.IsSubsumedBy(ctx, a, b)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = k.SuperClasses(ctx, a, true)
	assert.True(t, errors.Is(err, internalerr.ErrNotSynced), "needs Classify, got %v", err)
	require.NoError(t, k.Classify(ctx))
	_, err = k.SuperClasses(ctx, a, true)
	assert.NoError(t, err)
}

type cancelAfter struct {
	n, seen int
}

func (m *cancelAfter) Started(int)     {}
func (m *cancelAfter) Progress()       { m.seen++ }
func (m *cancelAfter) Finished()       {}
func (m *cancelAfter) Cancelled() bool { return m.seen >= m.n }

func TestCancelledClassificationCanBeRetried(t *testing.T) {
	ctx := context.Background()
	mon := &cancelAfter{n: 2}
	k := newKernel(t, func(o *Options) { o.Monitor = mon })
	reg := k.Expr()
	for _, pair := range [][2]string{{"A", "B"}, {"B", "C"}, {"C", "D"}, {"D", "E"}} {
		tell(t, k, axiom.SubClass(reg.Class(pair[0]), reg.Class(pair[1])))
	}

	err := k.Classify(ctx)
	require.Error(t, err)
	assert.True(t, internalerr.Retryable(err), "got %v", err)
	assert.Equal(t, syncstate.UnclassifiedInSync, k.State())

	mon.n = 1 << 30
	require.NoError(t, k.Classify(ctx))
	assert.Equal(t, syncstate.ClassifiedInSync, k.State())
}

func TestTimeoutIsRetryable(t *testing.T) {
	k := newKernel(t)
	reg := k.Expr()
	tell(t, k, axiom.SubClass(reg.Class("A"), reg.Class("B")))

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	_, err := k.IsSatisfiable(ctx, reg.Class("A"))
	require.Error(t, err)
	assert.Equal(t, internalerr.KindTimedOut, internalerr.KindOf(err))
	assert.NotEqual(t, syncstate.Fail, k.State())

	ok, err := k.IsSatisfiable(context.Background(), reg.Class("A"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFailIsStickyUntilReset(t *testing.T) {
	ctx := context.Background()
	k := newKernel(t)
	reg := k.Expr()
	a, r := reg.Class("A"), reg.ObjectProperty("r")
	tell(t, k, axiom.SubClass(a, reg.Class("B")))
	require.NoError(t, k.Sync(ctx))

	k.rb = nil // role lookups now panic
	_, err := k.IsTransitive(ctx, r)
	require.Error(t, err)
	assert.Equal(t, internalerr.KindFatal, internalerr.KindOf(err))
	assert.Equal(t, syncstate.Fail, k.State())

	_, err = k.Tell(axiom.SubClass(a, reg.Class("C")))
	assert.ErrorIs(t, err, internalerr.ErrFatal)
	_, err = k.IsConsistent(ctx)
	assert.Equal(t, internalerr.KindFatal, internalerr.KindOf(err))

	require.NoError(t, k.Reset())
	assert.Equal(t, syncstate.Empty, k.State())
	reg = k.Expr()
	tell(t, k, axiom.SubClass(reg.Class("A"), reg.Class("B")))
	ok, err := k.IsSubsumedBy(ctx, reg.Class("A"), reg.Class("B"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPropertyCharacteristics(t *testing.T) {
	ctx := context.Background()
	k := newKernel(t)
	reg := k.Expr()
	f, g := reg.ObjectProperty("hasMother"), reg.ObjectProperty("hasSSN")
	loves, part := reg.ObjectProperty("loves"), reg.ObjectProperty("partOf")
	knows, parent := reg.ObjectProperty("knows"), reg.ObjectProperty("parentOf")
	age := reg.DataProperty("age")
	tell(t, k,
		axiom.Functional(f),
		axiom.InverseFunctional(g),
		axiom.Transitive(part),
		axiom.Symmetric(knows),
		axiom.Reflexive(loves),
		axiom.Irreflexive(parent),
		axiom.Asymmetric(parent),
		axiom.FunctionalData(age),
	)

	check := func(name string, fn func(context.Context, expr.Handle) (bool, error), r expr.Handle, want bool) {
		t.Helper()
		got, err := fn(ctx, r)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, "%s(%s)", name, reg.Key(r))
	}
	check("functional", k.IsFunctional, f, true)
	check("functional", k.IsFunctional, g, false)
	check("inverse functional", k.IsInverseFunctional, g, true)
	check("transitive", k.IsTransitive, part, true)
	check("transitive", k.IsTransitive, knows, false)
	check("symmetric", k.IsSymmetric, knows, true)
	check("reflexive", k.IsReflexive, loves, true)
	check("reflexive", k.IsReflexive, knows, false)
	check("irreflexive", k.IsIrreflexive, parent, true)
	check("asymmetric", k.IsAsymmetric, parent, true)
	check("asymmetric", k.IsAsymmetric, knows, false)
	check("functional data", k.IsFunctionalData, age, true)
}

func TestRoleHierarchy(t *testing.T) {
	ctx := context.Background()
	k := newKernel(t)
	reg := k.Expr()
	hasSon, hasChild, hasRelative := reg.ObjectProperty("hasSon"), reg.ObjectProperty("hasChild"), reg.ObjectProperty("hasRelative")
	hasKid := reg.ObjectProperty("hasKid")
	tell(t, k,
		axiom.SubObjectProperty(hasSon, hasChild),
		axiom.SubObjectProperty(hasChild, hasRelative),
		axiom.EquivalentObjectProps(hasChild, hasKid),
	)

	supers, err := k.SuperObjectProperties(ctx, hasSon, true)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"hasChild", "hasKid"}, names(reg, supers))

	eq, err := k.EquivalentObjectProperties(ctx, hasKid)
	require.NoError(t, err)
	assert.ElementsMatch(t, []expr.Handle{hasChild, hasKid}, eq)

	subs, err := k.SubObjectProperties(ctx, hasRelative, false)
	require.NoError(t, err)
	assert.Contains(t, names(reg, subs), "hasSon")

	price, cost := reg.DataProperty("price"), reg.DataProperty("cost")
	tell(t, k, axiom.SubDataProperty(price, cost))
	dsupers, err := k.SuperDataProperties(ctx, price, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"cost"}, names(reg, dsupers))
}

func TestIndividualQueries(t *testing.T) {
	ctx := context.Background()
	k := newKernel(t)
	reg := k.Expr()
	ann, bob, robert := reg.Individual("ann"), reg.Individual("bob"), reg.Individual("robert")
	hasChild, hasParent := reg.ObjectProperty("hasChild"), reg.ObjectProperty("hasParent")
	age, years := reg.DataProperty("age"), reg.DataProperty("years")
	lit, err := reg.Literal("42", reg.Datatype("xsd:integer"))
	require.NoError(t, err)
	tell(t, k,
		axiom.InverseProps(hasChild, hasParent),
		axiom.Related(hasChild, ann, bob),
		axiom.Same(bob, robert),
		axiom.SubDataProperty(years, age),
		axiom.Value(years, ann, lit),
	)

	same, err := k.SameIndividuals(ctx, bob)
	require.NoError(t, err)
	assert.ElementsMatch(t, []expr.Handle{bob, robert}, same)

	kids, err := k.ObjectPropertyValues(ctx, ann, hasChild)
	require.NoError(t, err)
	assert.ElementsMatch(t, []expr.Handle{bob, robert}, kids)

	parents, err := k.ObjectPropertyValues(ctx, robert, hasParent)
	require.NoError(t, err)
	assert.Equal(t, []expr.Handle{ann}, parents)

	vals, err := k.DataPropertyValues(ctx, ann, age)
	require.NoError(t, err)
	assert.Equal(t, []expr.Handle{lit}, vals)
}

func TestMetricsAreRecorded(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)
	k := newKernel(t, func(o *Options) { o.Metrics = m })
	e := k.Expr()
	tell(t, k, axiom.SubClass(e.Class("A"), e.Class("B")))
	_, err = k.IsSubsumedBy(ctx, e.Class("A"), e.Class("B"))
	require.NoError(t, err)

	n, err := testutil.GatherAndCount(reg, "dlk_queries_total", "dlk_axioms_total", "dlk_sync_runs_total")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 3)
}
