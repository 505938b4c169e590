package taxonomy

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/cognicore/dlk/pkg/dlk/axiom"
	"github.com/cognicore/dlk/pkg/dlk/expr"
	"github.com/cognicore/dlk/pkg/dlk/internalerr"
	"github.com/cognicore/dlk/pkg/dlk/rbox"
	"github.com/cognicore/dlk/pkg/dlk/tbox"
)

// fakeOracle decides subsumption from an explicit told hierarchy.
type fakeOracle struct {
	supers       map[expr.Handle][]expr.Handle
	unsat        map[expr.Handle]bool
	types        map[expr.Handle][]expr.Handle
	inconsistent bool
	calls        int
}

func newFake() *fakeOracle {
	return &fakeOracle{
		supers: make(map[expr.Handle][]expr.Handle),
		unsat:  make(map[expr.Handle]bool),
		types:  make(map[expr.Handle][]expr.Handle),
	}
}

func (f *fakeOracle) sub(a, b expr.Handle) { f.supers[a] = append(f.supers[a], b) }

func (f *fakeOracle) closure(a expr.Handle) map[expr.Handle]bool {
	seen := map[expr.Handle]bool{a: true, expr.Top: true}
	stack := []expr.Handle{a}
	for len(stack) > 0 {
		x := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, y := range f.supers[x] {
			if !seen[y] {
				seen[y] = true
				stack = append(stack, y)
			}
		}
	}
	return seen
}

func (f *fakeOracle) Consistent(context.Context) (bool, error) { return !f.inconsistent, nil }

func (f *fakeOracle) Satisfiable(_ context.Context, c expr.Handle) (bool, error) {
	f.calls++
	return !f.unsat[c], nil
}

func (f *fakeOracle) IsSubsumedBy(_ context.Context, c, d expr.Handle) (bool, error) {
	f.calls++
	if f.unsat[c] {
		return true, nil
	}
	return f.closure(c)[d], nil
}

func (f *fakeOracle) IsInstance(_ context.Context, a, c expr.Handle) (bool, error) {
	f.calls++
	for _, t := range f.types[a] {
		if f.closure(t)[c] {
			return true, nil
		}
	}
	return c == expr.Top, nil
}

// parentsOf renders the direct supers of every named class.
func parentsOf(tax *Taxonomy, classes []expr.Handle) map[expr.Handle][][]expr.Handle {
	out := make(map[expr.Handle][][]expr.Handle)
	for _, c := range classes {
		n, ok := tax.NodeOf(c)
		if !ok {
			continue
		}
		out[c] = tax.Supers(n.ID, true)
	}
	return out
}

func TestClassifyChain(t *testing.T) {
	reg := expr.NewRegistry()
	a, b, c := reg.Class("A"), reg.Class("B"), reg.Class("C")
	f := newFake()
	f.sub(a, b)
	f.sub(b, c)

	tax, _, err := Classify(context.Background(), f, nil, nil, []expr.Handle{a, b, c})
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}

	want := map[expr.Handle][][]expr.Handle{
		a: {{b}},
		b: {{c}},
		c: {{expr.Top}},
	}
	if diff := cmp.Diff(want, parentsOf(tax, []expr.Handle{a, b, c})); diff != "" {
		t.Errorf("direct supers mismatch (-want +got):\n%s", diff)
	}

	n, _ := tax.NodeOf(a)
	all := tax.Supers(n.ID, false)
	if diff := cmp.Diff([][]expr.Handle{{expr.Top}, {b}, {c}}, all); diff != "" {
		t.Errorf("indirect supers mismatch (-want +got):\n%s", diff)
	}
	if got := tax.Subs(n.ID, true); !cmp.Equal(got, [][]expr.Handle{{expr.Bottom}}) {
		t.Errorf("Expected A directly above Bottom, got %v", got)
	}
}

func TestInsertionOrderDoesNotMatter(t *testing.T) {
	reg := expr.NewRegistry()
	a, b, c, d := reg.Class("A"), reg.Class("B"), reg.Class("C"), reg.Class("D")
	f := newFake()
	f.sub(d, b)
	f.sub(d, c)
	f.sub(b, a)
	f.sub(c, a)
	classes := []expr.Handle{a, b, c, d}

	want := map[expr.Handle][][]expr.Handle{
		a: {{expr.Top}},
		b: {{a}},
		c: {{a}},
		d: {{b}, {c}},
	}

	for _, order := range [][]expr.Handle{{a, b, c, d}, {d, c, b, a}, {b, d, a, c}} {
		cl := NewClassifier(f, nil, nil, New())
		for _, h := range order {
			if err := cl.Insert(context.Background(), h); err != nil {
				t.Fatalf("Insert failed: %v", err)
			}
		}
		if diff := cmp.Diff(want, parentsOf(cl.Taxonomy(), classes)); diff != "" {
			t.Errorf("order %v: direct supers mismatch (-want +got):\n%s", order, diff)
		}
	}
}

func TestEquivalentAndUnsatisfiableClasses(t *testing.T) {
	reg := expr.NewRegistry()
	a, b, x := reg.Class("A"), reg.Class("B"), reg.Class("X")
	f := newFake()
	f.sub(a, b)
	f.sub(b, a)
	f.unsat[x] = true

	tax, stats, err := Classify(context.Background(), f, nil, nil, []expr.Handle{a, b, x})
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	n, _ := tax.NodeOf(a)
	if !cmp.Equal(n.Members, []expr.Handle{a, b}) {
		t.Errorf("Expected A and B to share a node, got %v", n.Members)
	}
	if !cmp.Equal(tax.Bottom().Members, []expr.Handle{expr.Bottom, x}) {
		t.Errorf("Expected X in the Bottom node, got %v", tax.Bottom().Members)
	}
	if stats.Unsatisfiable != 1 {
		t.Errorf("Expected 1 unsatisfiable class, got %d", stats.Unsatisfiable)
	}
}

func TestToldSubsumersSkipTests(t *testing.T) {
	reg := expr.NewRegistry()
	a, b, c := reg.Class("A"), reg.Class("B"), reg.Class("C")
	f := newFake()
	f.sub(a, b)
	f.sub(b, c)
	told := func(h expr.Handle) []expr.Handle {
		switch h {
		case a:
			return []expr.Handle{b, c}
		case b:
			return []expr.Handle{c}
		}
		return nil
	}

	_, stats, err := Classify(context.Background(), f, told, nil, []expr.Handle{a, b, c})
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if stats.ToldHits == 0 {
		t.Error("Expected told subsumers to answer some tests")
	}
}

func TestClassifyInconsistentFailsFast(t *testing.T) {
	f := newFake()
	f.inconsistent = true
	_, _, err := Classify(context.Background(), f, nil, nil, []expr.Handle{expr.NewRegistry().Class("A")})
	if !errors.Is(err, internalerr.ErrInconsistentKB) {
		t.Fatalf("Expected ErrInconsistentKB, got %v", err)
	}
	if f.calls != 0 {
		t.Errorf("Expected no tests, got %d", f.calls)
	}
}

type countingMonitor struct {
	total, progress, finished int
	cancelAfter               int
}

func (m *countingMonitor) Started(total int) { m.total = total }
func (m *countingMonitor) Progress()         { m.progress++ }
func (m *countingMonitor) Finished()         { m.finished++ }
func (m *countingMonitor) Cancelled() bool {
	return m.cancelAfter > 0 && m.progress >= m.cancelAfter
}

func TestMonitorProgressAndCancel(t *testing.T) {
	reg := expr.NewRegistry()
	classes := []expr.Handle{reg.Class("A"), reg.Class("B"), reg.Class("C"), reg.Class("D")}

	mon := &countingMonitor{}
	if _, _, err := Classify(context.Background(), newFake(), nil, mon, classes); err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if mon.total != 4 || mon.progress != 4 || mon.finished != 1 {
		t.Errorf("Expected 4/4/1, got %d/%d/%d", mon.total, mon.progress, mon.finished)
	}

	mon = &countingMonitor{cancelAfter: 2}
	_, _, err := Classify(context.Background(), newFake(), nil, mon, classes)
	if !errors.Is(err, internalerr.ErrCancelled) {
		t.Fatalf("Expected ErrCancelled, got %v", err)
	}
	if mon.progress != 2 || mon.finished != 0 {
		t.Errorf("Expected to stop after 2 units, got %d (finished %d)", mon.progress, mon.finished)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	_, _, err = Classify(ctx, newFake(), nil, nil, classes)
	if !errors.Is(err, internalerr.ErrTimedOut) {
		t.Fatalf("Expected ErrTimedOut, got %v", err)
	}
}

func TestRealize(t *testing.T) {
	reg := expr.NewRegistry()
	c, d, e := reg.Class("C"), reg.Class("D"), reg.Class("E")
	i, j := reg.Individual("i"), reg.Individual("j")
	f := newFake()
	f.sub(c, d)
	f.types[i] = []expr.Handle{c}
	f.types[j] = []expr.Handle{e}

	tax, _, err := Classify(context.Background(), f, nil, nil, []expr.Handle{c, d, e})
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	mon := &countingMonitor{}
	rz, err := Realize(context.Background(), f, mon, tax, []expr.Handle{i, j})
	if err != nil {
		t.Fatalf("Realize failed: %v", err)
	}
	if mon.progress != 2 {
		t.Errorf("Expected one unit per individual, got %d", mon.progress)
	}

	if diff := cmp.Diff([][]expr.Handle{{c}}, rz.Types(i, true)); diff != "" {
		t.Errorf("direct types mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([][]expr.Handle{{expr.Top}, {c}, {d}}, rz.Types(i, false)); diff != "" {
		t.Errorf("types mismatch (-want +got):\n%s", diff)
	}

	dn, _ := tax.NodeOf(d)
	if got := rz.Instances(dn.ID, true); len(got) != 0 {
		t.Errorf("Expected no direct instances of D, got %v", got)
	}
	if diff := cmp.Diff([]expr.Handle{i}, rz.Instances(dn.ID, false)); diff != "" {
		t.Errorf("instances mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]expr.Handle{i, j}, rz.Instances(tax.Top().ID, false)); diff != "" {
		t.Errorf("instances of Top mismatch (-want +got):\n%s", diff)
	}
}

func TestToldSupersFromTBox(t *testing.T) {
	reg := expr.NewRegistry()
	a, b, c, d := reg.Class("A"), reg.Class("B"), reg.Class("C"), reg.Class("D")
	cd, err := reg.And(c, d)
	if err != nil {
		t.Fatal(err)
	}
	entries := []axiom.Entry{
		{Handle: 1, Axiom: axiom.SubClass(a, b)},
		{Handle: 2, Axiom: axiom.SubClass(b, cd)},
	}
	bld := tbox.NewBuilder(reg)
	for _, e := range entries {
		if err := bld.Add(e); err != nil {
			t.Fatal(err)
		}
	}
	rb, err := rbox.Build(reg, entries)
	if err != nil {
		t.Fatal(err)
	}
	tb, err := bld.Compile(rb, tbox.Options{})
	if err != nil {
		t.Fatal(err)
	}

	told := ToldSupers(reg, tb)
	if diff := cmp.Diff([]expr.Handle{b, c, d}, told(a)); diff != "" {
		t.Errorf("told supers mismatch (-want +got):\n%s", diff)
	}
	if got := told(d); len(got) != 0 {
		t.Errorf("Expected no told supers of D, got %v", got)
	}
}
