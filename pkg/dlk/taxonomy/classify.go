package taxonomy

import (
	"context"
	"fmt"
	"sort"

	"github.com/cognicore/dlk/pkg/dlk/expr"
	"github.com/cognicore/dlk/pkg/dlk/internalerr"
	"github.com/cognicore/dlk/pkg/dlk/tbox"
)

// Oracle answers the satisfiability questions classification needs.
// *tableau.Reasoner implements it.
type Oracle interface {
	Consistent(ctx context.Context) (bool, error)
	Satisfiable(ctx context.Context, c expr.Handle) (bool, error)
	IsSubsumedBy(ctx context.Context, c, d expr.Handle) (bool, error)
	IsInstance(ctx context.Context, a, c expr.Handle) (bool, error)
}

// Told returns the classes a class is known to be subsumed by without a
// test.
type Told func(a expr.Handle) []expr.Handle

// ToldSupers reads told subsumers off the unfolding table: the class
// names among the conjuncts a class unfolds to, closed transitively.
func ToldSupers(reg *expr.Registry, tb *tbox.TBox) Told {
	direct := func(a expr.Handle) []expr.Handle {
		var out []expr.Handle
		var walk func(h expr.Handle)
		walk = func(h expr.Handle) {
			switch reg.Op(h) {
			case expr.OpClass:
				out = append(out, h)
			case expr.OpAnd:
				for _, x := range reg.Args(h) {
					walk(x)
				}
			}
		}
		for _, h := range tb.Unfold[a] {
			walk(h)
		}
		return out
	}
	memo := make(map[expr.Handle][]expr.Handle)
	return func(a expr.Handle) []expr.Handle {
		if out, ok := memo[a]; ok {
			return out
		}
		seen := map[expr.Handle]bool{a: true}
		var out []expr.Handle
		stack := direct(a)
		for len(stack) > 0 {
			h := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if seen[h] {
				continue
			}
			seen[h] = true
			out = append(out, h)
			stack = append(stack, direct(h)...)
		}
		sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
		memo[a] = out
		return out
	}
}

// Monitor receives progress from Classify and Realize. One unit is one
// class or one individual.
type Monitor interface {
	Started(total int)
	Progress()
	Finished()
	Cancelled() bool
}

// NopMonitor ignores progress and never cancels.
type NopMonitor struct{}

func (NopMonitor) Started(int)     {}
func (NopMonitor) Progress()       {}
func (NopMonitor) Finished()       {}
func (NopMonitor) Cancelled() bool { return false }

// Stats describes one classification run.
type Stats struct {
	Classes       int
	Tests         int
	ToldHits      int
	Unsatisfiable int
}

// Classifier inserts classes into a taxonomy with the enhanced traversal
// method: a top search for the most specific subsumers followed by a
// bottom search for the most general subsumees.
type Classifier struct {
	oracle Oracle
	told   Told
	mon    Monitor
	tax    *Taxonomy
	stats  Stats
}

// NewClassifier returns a classifier filling tax.
func NewClassifier(oracle Oracle, told Told, mon Monitor, tax *Taxonomy) *Classifier {
	if told == nil {
		told = func(expr.Handle) []expr.Handle { return nil }
	}
	if mon == nil {
		mon = NopMonitor{}
	}
	return &Classifier{oracle: oracle, told: told, mon: mon, tax: tax}
}

// Stats returns the counters of the last run.
func (c *Classifier) Stats() Stats { return c.stats }

// Taxonomy returns the taxonomy being filled.
func (c *Classifier) Taxonomy() *Taxonomy { return c.tax }

// Classify places every class of classes. It fails with ErrInconsistentKB
// before doing any work when the knowledge base has no model.
func Classify(ctx context.Context, oracle Oracle, told Told, mon Monitor, classes []expr.Handle) (*Taxonomy, Stats, error) {
	c := NewClassifier(oracle, told, mon, New())
	err := c.Run(ctx, classes)
	return c.tax, c.stats, err
}

// Run classifies the given classes into the taxonomy.
func (c *Classifier) Run(ctx context.Context, classes []expr.Handle) error {
	ok, err := c.oracle.Consistent(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("classify: %w", internalerr.ErrInconsistentKB)
	}
	order := c.order(classes)
	c.stats = Stats{Classes: len(order)}
	c.mon.Started(len(order))
	for _, a := range order {
		if err := checkAbort(ctx, c.mon); err != nil {
			return err
		}
		if err := c.Insert(ctx, a); err != nil {
			return err
		}
		c.mon.Progress()
	}
	c.mon.Finished()
	return nil
}

func checkAbort(ctx context.Context, mon Monitor) error {
	if mon.Cancelled() {
		return fmt.Errorf("cancelled by monitor: %w", internalerr.ErrCancelled)
	}
	if err := ctx.Err(); err != nil {
		return internalerr.FromContext(err)
	}
	return nil
}

// order puts told subsumers before the classes below them so that most
// insertions only extend the taxonomy downwards.
func (c *Classifier) order(classes []expr.Handle) []expr.Handle {
	want := make(map[expr.Handle]bool, len(classes))
	for _, a := range classes {
		want[a] = true
	}
	sorted := append([]expr.Handle(nil), classes...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	var out []expr.Handle
	done := make(map[expr.Handle]bool)
	var visit func(a expr.Handle)
	visit = func(a expr.Handle) {
		if done[a] || c.tax.Contains(a) {
			return
		}
		done[a] = true
		for _, s := range c.told(a) {
			if want[s] {
				visit(s)
			}
		}
		out = append(out, a)
	}
	for _, a := range sorted {
		visit(a)
	}
	return out
}

// Insert classifies one class. Classes already present are skipped.
func (c *Classifier) Insert(ctx context.Context, a expr.Handle) error {
	if c.tax.Contains(a) {
		return nil
	}
	sat, err := c.oracle.Satisfiable(ctx, a)
	if err != nil {
		return err
	}
	if !sat {
		c.stats.Unsatisfiable++
		c.tax.join(bottomID, a)
		return nil
	}
	p, err := c.Place(ctx, a)
	if err != nil {
		return err
	}
	if p.Equivalent >= 0 {
		c.tax.join(p.Equivalent, a)
		return nil
	}
	c.tax.insert(a, p.Parents, p.Children)
	return nil
}

// Placement is where a concept sits in the taxonomy.
type Placement struct {
	Parents  []int
	Children []int
	// Equivalent is the node the concept belongs to, or -1.
	Equivalent int
}

// Place locates a satisfiable concept in the taxonomy without inserting it.
func (c *Classifier) Place(ctx context.Context, a expr.Handle) (Placement, error) {
	q := &query{
		c:     c,
		ctx:   ctx,
		a:     a,
		told:  make(map[expr.Handle]bool),
		above: map[int]bool{topID: true},
		below: map[int]bool{bottomID: true},
	}
	for _, s := range c.told(a) {
		q.told[s] = true
	}
	parents, err := q.topSearch()
	if err != nil {
		return Placement{}, err
	}
	if len(parents) == 1 {
		eq, err := q.subsumedBy(parents[0])
		if err != nil {
			return Placement{}, err
		}
		if eq {
			return Placement{Parents: parents, Equivalent: parents[0]}, nil
		}
	}
	children, err := q.bottomSearch(parents)
	if err != nil {
		return Placement{}, err
	}
	return Placement{Parents: parents, Children: children, Equivalent: -1}, nil
}

// query holds the test results of one placement.
type query struct {
	c    *Classifier
	ctx  context.Context
	a    expr.Handle
	told map[expr.Handle]bool

	above map[int]bool // node subsumes a
	below map[int]bool // a subsumes node
}

// subsumes reports a ⊑ node.
func (q *query) subsumes(id int) (bool, error) {
	if v, ok := q.above[id]; ok {
		return v, nil
	}
	n := q.c.tax.nodes[id]
	v := false
	if id == topID {
		v = true
	} else if id != bottomID {
		// a node can only subsume a if all its parents do
		for _, p := range n.Parents {
			if v, known := q.above[p]; known && !v {
				q.above[id] = false
				return false, nil
			}
		}
		v = q.toldAny(n.Members)
		if v {
			q.c.stats.ToldHits++
		} else {
			q.c.stats.Tests++
			var err error
			if v, err = q.c.oracle.IsSubsumedBy(q.ctx, q.a, n.Members[0]); err != nil {
				return false, err
			}
		}
	}
	q.above[id] = v
	return v, nil
}

func (q *query) toldAny(hs []expr.Handle) bool {
	for _, h := range hs {
		if q.told[h] {
			return true
		}
	}
	return false
}

// subsumedBy reports node ⊑ a.
func (q *query) subsumedBy(id int) (bool, error) {
	if v, ok := q.below[id]; ok {
		return v, nil
	}
	n := q.c.tax.nodes[id]
	v := id == bottomID
	if !v {
		for _, m := range n.Members {
			for _, s := range q.c.told(m) {
				if s == q.a {
					v = true
				}
			}
		}
		if v {
			q.c.stats.ToldHits++
		} else {
			q.c.stats.Tests++
			var err error
			if v, err = q.c.oracle.IsSubsumedBy(q.ctx, n.Members[0], q.a); err != nil {
				return false, err
			}
		}
	}
	q.below[id] = v
	return v, nil
}

// topSearch returns the most specific nodes subsuming a.
func (q *query) topSearch() ([]int, error) {
	visited := make(map[int]bool)
	var out []int
	var search func(id int) error
	search = func(id int) error {
		if visited[id] {
			return nil
		}
		visited[id] = true
		found := false
		for _, ch := range sorted(q.c.tax.nodes[id].Children) {
			if ch == bottomID {
				continue
			}
			ok, err := q.subsumes(ch)
			if err != nil {
				return err
			}
			if ok {
				found = true
				if err := search(ch); err != nil {
					return err
				}
			}
		}
		if !found {
			out = append(out, id)
		}
		return nil
	}
	if err := search(topID); err != nil {
		return nil, err
	}
	return q.mostSpecific(out), nil
}

// mostSpecific drops nodes that are ancestors of other nodes in ids.
func (q *query) mostSpecific(ids []int) []int {
	var out []int
	for _, x := range ids {
		keep := true
		for _, y := range ids {
			if x != y && q.c.tax.IsAncestor(x, y) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, x)
		}
	}
	sort.Ints(out)
	return out
}

// bottomSearch returns the most general nodes below every parent that a
// subsumes, or the Bottom node when there are none.
func (q *query) bottomSearch(parents []int) ([]int, error) {
	under := make(map[int]int)
	for _, p := range parents {
		for _, d := range q.c.tax.Descendants(p) {
			under[d]++
		}
	}
	visited := make(map[int]bool)
	var out []int
	var search func(id int) error
	search = func(id int) error {
		for _, ch := range sorted(q.c.tax.nodes[id].Children) {
			if ch == bottomID || visited[ch] {
				continue
			}
			visited[ch] = true
			if under[ch] == len(parents) {
				ok, err := q.subsumedBy(ch)
				if err != nil {
					return err
				}
				if ok {
					out = append(out, ch)
					continue
				}
			}
			if err := search(ch); err != nil {
				return err
			}
		}
		return nil
	}
	for _, p := range parents {
		if err := search(p); err != nil {
			return nil, err
		}
	}
	var general []int
	for _, x := range out {
		keep := true
		for _, y := range out {
			if x != y && q.c.tax.IsAncestor(y, x) {
				keep = false
				break
			}
		}
		if keep {
			general = append(general, x)
		}
	}
	if len(general) == 0 {
		return []int{bottomID}, nil
	}
	sort.Ints(general)
	return general, nil
}
