package tableau

import (
	"context"
	"errors"
	"fmt"

	"github.com/cognicore/dlk/pkg/dlk/expr"
	"github.com/cognicore/dlk/pkg/dlk/internalerr"
	"github.com/cognicore/dlk/pkg/dlk/rbox"
	"github.com/cognicore/dlk/pkg/dlk/tbox"
)

const checkEvery = 256

// clash carries the branch levels a contradiction depends on.
type clash struct {
	deps DepSet
}

func clashOf(deps ...DepSet) *clash {
	var d DepSet
	for _, x := range deps {
		d = d.Union(x)
	}
	return &clash{deps: d}
}

// search is one satisfiability test. It is not safe for concurrent use.
type search struct {
	r        *Reasoner
	tb       *tbox.TBox
	rb       *rbox.RBox
	reg      *expr.Registry
	ctx      context.Context
	blocking blockMode

	steps int
	err   error
}

func (s *search) fail(err error) {
	if s.err == nil {
		s.err = err
	}
}

// tick counts a rule application and polls for cancellation.
func (s *search) tick(g *graph) bool {
	if s.err != nil {
		return false
	}
	s.steps++
	if limit := s.r.opts.MaxNodes; limit > 0 && g.live > limit {
		s.fail(fmt.Errorf("completion graph exceeds %d nodes: %w", limit, internalerr.ErrTimedOut))
		return false
	}
	if s.steps%checkEvery != 0 {
		return true
	}
	if err := s.ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.fail(fmt.Errorf("satisfiability test: %w", internalerr.ErrTimedOut))
		} else {
			s.fail(fmt.Errorf("satisfiability test: %w", internalerr.ErrCancelled))
		}
		return false
	}
	return true
}

func (s *search) role(h expr.Handle) rbox.Role {
	r, err := s.rb.Role(h)
	if err != nil {
		panic(fmt.Errorf("tableau: role operand %s: %w", s.reg.String(h), err))
	}
	return r
}

func (s *search) dataRole(h expr.Handle) rbox.DataRole {
	u, err := s.rb.DataRole(h)
	if err != nil {
		panic(fmt.Errorf("tableau: data role operand %s: %w", s.reg.String(h), err))
	}
	return u
}

// solve expands g until it is complete or clashes. A nil clash with ok
// false means the search was aborted and s.err is set.
func (s *search) solve(g *graph) (*clash, bool) {
	for {
		if c := s.saturate(g); c != nil {
			return c, false
		}
		if s.err != nil {
			return nil, false
		}
		if c := s.checkData(g); c != nil {
			return c, false
		}
		if br := s.findBranch(g); br != nil {
			return s.branch(g, br)
		}
		grew, c := s.generate(g)
		if c != nil {
			return c, false
		}
		if s.err != nil {
			return nil, false
		}
		if !grew {
			return nil, true
		}
	}
}

// saturate applies the deterministic rules until the worklist is empty.
func (s *search) saturate(g *graph) *clash {
	for {
		x, ok := g.dequeue()
		if !ok {
			return nil
		}
		if !s.tick(g) {
			return nil
		}
		if c := s.visit(g, x); c != nil {
			return c
		}
	}
}

func (s *search) visit(g *graph, x nodeID) *clash {
	if g.get(x).kind == dataNode {
		return nil
	}
	for i := 0; ; i++ {
		n := g.get(x)
		if !n.live() || i >= len(n.order) {
			break
		}
		en := n.order[i]
		if c := s.apply(g, x, en, n.label[en]); c != nil {
			return c
		}
		if s.err != nil {
			return nil
		}
	}
	if g.get(x).live() {
		return s.checkEdges(g, x)
	}
	return nil
}

// add puts en into the label of x. It reports the immediate clashes that
// need nothing but the two labels involved.
func (s *search) add(g *graph, x nodeID, en entry, deps DepSet) *clash {
	x, md := g.find(x)
	deps = deps.Union(md)
	n := g.get(x)
	if _, ok := n.label[en]; ok {
		return nil
	}
	if en.q == 0 {
		if n.kind == dataNode {
			if en.c == expr.TopDatatype {
				return nil
			}
		} else {
			switch en.c {
			case expr.Top:
				return nil
			case expr.Bottom:
				return clashOf(deps)
			}
			if d, ok := n.label[entry{c: s.reg.Complement(en.c)}]; ok {
				return clashOf(deps, d)
			}
		}
	}
	m := g.mut(x)
	m.label[en] = deps
	m.order = append(m.order, en)
	s.touch(g, x)
	return nil
}

// touch schedules x and the nodes whose rules may read its label.
func (s *search) touch(g *graph, x nodeID) {
	n := g.get(x)
	g.enqueue(x)
	if n.parent != none {
		g.enqueue(n.parent)
	}
	for _, e := range n.edges {
		g.enqueue(e.to)
	}
}

func (s *search) addAll(g *graph, x nodeID, cs []expr.Handle, deps DepSet) *clash {
	for _, c := range cs {
		if cl := s.add(g, x, entry{c: c}, deps); cl != nil {
			return cl
		}
	}
	return nil
}

// apply runs the deterministic rule for one label entry.
func (s *search) apply(g *graph, x nodeID, en entry, deps DepSet) *clash {
	if en.q != 0 {
		return s.applyAll(g, x, en, deps)
	}
	c := en.c
	switch s.reg.Op(c) {
	case expr.OpClass:
		return s.addAll(g, x, s.tb.Unfold[c], deps)
	case expr.OpNot:
		arg := s.reg.Arg(c, 0)
		if s.reg.Op(arg) == expr.OpClass {
			return s.addAll(g, x, s.tb.NegUnfold[arg], deps)
		}
	case expr.OpAnd:
		return s.addAll(g, x, s.reg.Args(c), deps)
	case expr.OpAll:
		return s.applyAll(g, x, en, deps)
	case expr.OpMax:
		return s.maxClash(g, x, c, deps)
	case expr.OpOneOf:
		if args := s.reg.Args(c); len(args) == 1 {
			return s.nominalRule(g, x, args[0], deps)
		}
	case expr.OpHasSelf:
		r := s.role(s.reg.Arg(c, 0))
		return s.addEdge(g, x, x, r, deps)
	case expr.OpDataAll:
		return s.applyDataAll(g, x, c, deps)
	case expr.OpDataMax:
		return s.dataMaxClash(g, x, c, deps)
	}
	return nil
}

// applyAll propagates ∀R.C along the edges of x. Entries over complex
// roles walk the role automaton; q is the state reached so far.
func (s *search) applyAll(g *graph, x nodeID, en entry, deps DepSet) *clash {
	role, filler := s.reg.Arg(en.c, 0), s.reg.Arg(en.c, 1)
	a := s.rb.Automaton(s.role(role))
	q := int(en.q)
	if q != 0 && a.Final[q] {
		if c := s.add(g, x, entry{c: filler}, deps); c != nil {
			return c
		}
	}
	if len(a.Trans[q]) == 0 {
		return nil
	}
	edges := append([]edge(nil), g.get(x).edges...)
	for _, tr := range a.Trans[q] {
		for _, e := range edges {
			if !s.rb.IsSubRole(e.role, tr.Role) {
				continue
			}
			next := entry{c: en.c, q: int32(tr.To)}
			if a.Final[tr.To] && len(a.Trans[tr.To]) == 0 {
				next = entry{c: filler}
			}
			if c := s.add(g, e.to, next, deps.Union(e.deps)); c != nil {
				return c
			}
		}
	}
	return nil
}

// checkEdges looks for clashes that involve the edges of x: negated Self
// restrictions against loops, and disjoint or asymmetric roles.
func (s *search) checkEdges(g *graph, x nodeID) *clash {
	n := g.get(x)
	for _, en := range n.order {
		if en.q != 0 || s.reg.Op(en.c) != expr.OpNot {
			continue
		}
		self := s.reg.Arg(en.c, 0)
		if s.reg.Op(self) != expr.OpHasSelf {
			continue
		}
		r := s.role(s.reg.Arg(self, 0))
		for _, e := range n.edges {
			if e.to == x && s.rb.IsSubRole(e.role, r) {
				return clashOf(n.label[en], e.deps)
			}
		}
	}
	return nil
}

// edgeClash checks a new r-edge from x to y against the edges already
// there.
func (s *search) edgeClash(g *graph, x, y nodeID, r rbox.Role, deps DepSet) *clash {
	if !s.rb.HasDisjoint() {
		return nil
	}
	if s.rb.Disjoint(r, r) || s.rb.AsymmetricClash(r, r) {
		return clashOf(deps)
	}
	if x == y && s.rb.Asymmetric(r) {
		return clashOf(deps)
	}
	for _, f := range g.edgesTo(x, y) {
		if s.rb.Disjoint(r, f.role) || s.rb.Disjoint(f.role, r) ||
			s.rb.AsymmetricClash(r, f.role) || s.rb.AsymmetricClash(f.role, r) {
			return clashOf(deps, f.deps)
		}
	}
	return nil
}

// addEdge links x to y with r and y to x with r⁻, then applies domains
// and ranges.
func (s *search) addEdge(g *graph, x, y nodeID, r rbox.Role, deps DepSet) *clash {
	for _, e := range g.get(x).edges {
		if e.to == y && e.role == r {
			return nil
		}
	}
	if c := s.edgeClash(g, x, y, r, deps); c != nil {
		return c
	}
	mx := g.mut(x)
	mx.edges = append(mx.edges, edge{to: y, role: r, deps: deps})
	my := g.mut(y)
	my.edges = append(my.edges, edge{to: x, role: r.Inverse(), deps: deps})
	s.touch(g, x)
	s.touch(g, y)
	if c := s.addAll(g, x, s.tb.Domain(r), deps); c != nil {
		return c
	}
	return s.addAll(g, y, s.tb.Domain(r.Inverse()), deps)
}

// neighbours collects the live R-neighbours of x with the union of the
// dependencies of the edges reaching each.
func (s *search) neighbours(g *graph, x nodeID, r rbox.Role) ([]nodeID, map[nodeID]DepSet) {
	var ids []nodeID
	deps := make(map[nodeID]DepSet)
	for _, e := range g.get(x).edges {
		if !s.rb.IsSubRole(e.role, r) || !g.get(e.to).live() {
			continue
		}
		d, seen := deps[e.to]
		if !seen {
			ids = append(ids, e.to)
		}
		deps[e.to] = d.Union(e.deps)
	}
	return ids, deps
}

// holds reports whether c is in the label of n; Top always holds.
func holds(n *node, c expr.Handle) (DepSet, bool) {
	if c == expr.Top || c == expr.TopDatatype {
		return nil, true
	}
	d, ok := n.label[entry{c: c}]
	return d, ok
}

// qualified returns the R-neighbours of x carrying filler, with the
// dependencies of both the edge and the filler.
func (s *search) qualified(g *graph, x nodeID, r rbox.Role, filler expr.Handle) ([]nodeID, map[nodeID]DepSet) {
	ids, deps := s.neighbours(g, x, r)
	out := ids[:0]
	for _, y := range ids {
		if d, ok := holds(g.get(y), filler); ok {
			deps[y] = deps[y].Union(d)
			out = append(out, y)
		}
	}
	return out, deps
}

// maxClash reports ≤n R.C at x when more than n R-neighbours carrying C are
// pairwise distinct.
func (s *search) maxClash(g *graph, x nodeID, c expr.Handle, deps DepSet) *clash {
	n := s.reg.Card(c)
	r := s.role(s.reg.Arg(c, 0))
	ys, ydeps := s.qualified(g, x, r, s.reg.Arg(c, 1))
	if len(ys) <= n {
		return nil
	}
	all, ok := s.cliqueDeps(g, ys)
	if !ok {
		return nil
	}
	cl := clashOf(deps, all)
	for _, y := range ys {
		cl.deps = cl.deps.Union(ydeps[y])
	}
	return cl
}

// cliqueDeps returns the dependencies of the pairwise inequalities among
// ys, or false if some pair may still be merged.
func (s *search) cliqueDeps(g *graph, ys []nodeID) (DepSet, bool) {
	var out DepSet
	for i := range ys {
		for j := i + 1; j < len(ys); j++ {
			d, ok := g.distinct(ys[i], ys[j])
			if !ok {
				return nil, false
			}
			out = out.Union(d)
		}
	}
	return out, true
}

// nominalNode returns the live node of individual a, creating it on first
// use.
func (s *search) nominalNode(g *graph, a expr.Handle) (nodeID, DepSet, *clash) {
	if id, ok := g.nominals[a]; ok {
		id, d := g.find(id)
		return id, d, nil
	}
	n := g.newNode(nominal, none)
	g.nominals[a] = n.id
	one, err := s.reg.OneOf(a)
	if err != nil {
		panic(fmt.Errorf("tableau: nominal for %s: %w", s.reg.String(a), err))
	}
	if c := s.add(g, n.id, entry{c: one}, nil); c != nil {
		return none, nil, c
	}
	return n.id, nil, s.addAll(g, n.id, s.tb.Globals, nil)
}

// nominalRule identifies x with the node of a.
func (s *search) nominalRule(g *graph, x nodeID, a expr.Handle, deps DepSet) *clash {
	if c := s.addAll(g, x, s.tb.Nominal[a], deps); c != nil {
		return c
	}
	target, td, c := s.nominalNode(g, a)
	if c != nil {
		return c
	}
	x, xd := g.find(x)
	if target == x {
		return nil
	}
	return s.merge(g, x, target, deps.Union(td).Union(xd))
}

// merge folds from into into. Blockable successors of from are pruned;
// every other edge is redirected.
func (s *search) merge(g *graph, from, into nodeID, deps DepSet) *clash {
	from, fd := g.find(from)
	into, id := g.find(into)
	deps = deps.Union(fd).Union(id)
	if from == into {
		return nil
	}
	if g.get(from).kind == nominal && g.get(into).kind != nominal {
		from, into = into, from
	}
	if d, ok := g.distinct(from, into); ok {
		return clashOf(deps, d)
	}
	s.r.stats.Merges++

	src := g.get(from)
	for _, en := range src.order {
		if c := s.add(g, into, en, src.label[en].Union(deps)); c != nil {
			return c
		}
	}

	type neq struct {
		other nodeID
		deps  DepSet
	}
	var moved []neq
	for p, d := range g.neq {
		switch from {
		case p[0]:
			moved = append(moved, neq{p[1], d})
		case p[1]:
			moved = append(moved, neq{p[0], d})
		}
	}
	for _, m := range moved {
		other, od := g.find(m.other)
		if other == into {
			return clashOf(deps, m.deps, od)
		}
		g.setDistinct(into, other, m.deps.Union(deps).Union(od))
	}

	edges := append([]edge(nil), src.edges...)
	dataEdges := append([]dataEdge(nil), src.dataEdges...)
	if g.get(into).parent == from {
		g.mut(into).parent = src.parent
	}
	f := g.mut(from)
	f.merged = into
	f.mergeDeps = deps
	f.edges = nil
	f.dataEdges = nil
	g.live--

	for _, e := range edges {
		w := e.to
		if w == from {
			if c := s.addEdge(g, into, into, e.role, e.deps.Union(deps)); c != nil {
				return c
			}
			continue
		}
		wn := g.get(w)
		if !wn.live() {
			continue
		}
		if wn.kind == blockable && wn.parent == from && w != into {
			s.prune(g, w)
			continue
		}
		g.removeEdgesTo(w, from)
		if c := s.addEdge(g, into, w, e.role, e.deps.Union(deps)); c != nil {
			return c
		}
	}
	for _, de := range dataEdges {
		if !g.get(de.to).live() {
			continue
		}
		dn := g.mut(de.to)
		dn.parent = into
		if c := s.addDataEdge(g, into, de.to, de.role, de.deps.Union(deps)); c != nil {
			return c
		}
	}
	s.touch(g, into)
	return nil
}

// prune removes y and everything generated below it.
func (s *search) prune(g *graph, y nodeID) {
	n := g.get(y)
	if !n.live() {
		return
	}
	edges := append([]edge(nil), n.edges...)
	dataEdges := append([]dataEdge(nil), n.dataEdges...)
	m := g.mut(y)
	m.removed = true
	m.edges = nil
	m.dataEdges = nil
	g.live--
	for _, e := range edges {
		if e.to == y {
			continue
		}
		w := g.get(e.to)
		if !w.live() {
			continue
		}
		if w.kind == blockable && w.parent == y {
			s.prune(g, e.to)
			continue
		}
		g.removeEdgesTo(e.to, y)
		g.enqueue(e.to)
	}
	for _, de := range dataEdges {
		if g.get(de.to).live() {
			g.mut(de.to).removed = true
			g.live--
		}
	}
}
