package tableau

import (
	"fmt"

	"github.com/cognicore/dlk/pkg/dlk/datatype"
	"github.com/cognicore/dlk/pkg/dlk/expr"
	"github.com/cognicore/dlk/pkg/dlk/rbox"
)

func (s *search) rangeOf(h expr.Handle) datatype.Set {
	set, err := s.r.dt.Range(h)
	if err != nil {
		panic(fmt.Errorf("tableau: data range %s: %w", s.reg.String(h), err))
	}
	return set
}

// addDataEdge links object node x to data node y. Values of disjoint data
// roles must differ.
func (s *search) addDataEdge(g *graph, x, y nodeID, u rbox.DataRole, deps DepSet) *clash {
	for _, e := range g.get(x).dataEdges {
		if e.to == y && e.role == u {
			return nil
		}
	}
	for _, f := range g.get(x).dataEdges {
		if !s.rb.DataDisjoint(u, f.role) && !s.rb.DataDisjoint(f.role, u) {
			continue
		}
		if f.to == y {
			return clashOf(deps, f.deps)
		}
		g.setDistinct(y, f.to, deps.Union(f.deps))
	}
	m := g.mut(x)
	m.dataEdges = append(m.dataEdges, dataEdge{to: y, role: u, deps: deps})
	g.enqueue(x)
	if c := s.addAll(g, x, s.tb.DataDomain(u), deps); c != nil {
		return c
	}
	return s.addAll(g, y, s.tb.DataRange(u), deps)
}

// dataNeighbours returns the live U-values of x carrying d.
func (s *search) dataNeighbours(g *graph, x nodeID, u rbox.DataRole, d expr.Handle) ([]nodeID, map[nodeID]DepSet) {
	var ids []nodeID
	deps := make(map[nodeID]DepSet)
	for _, e := range g.get(x).dataEdges {
		if !s.rb.IsSubDataRole(e.role, u) {
			continue
		}
		y := g.get(e.to)
		if !y.live() {
			continue
		}
		ld, ok := holds(y, d)
		if !ok {
			continue
		}
		prev, seen := deps[e.to]
		if !seen {
			ids = append(ids, e.to)
		}
		deps[e.to] = prev.Union(e.deps).Union(ld)
	}
	return ids, deps
}

func (s *search) applyDataAll(g *graph, x nodeID, c expr.Handle, deps DepSet) *clash {
	u := s.dataRole(s.reg.Arg(c, 0))
	d := s.reg.Arg(c, 1)
	for _, e := range append([]dataEdge(nil), g.get(x).dataEdges...) {
		if !s.rb.IsSubDataRole(e.role, u) {
			continue
		}
		if cl := s.add(g, e.to, entry{c: d}, deps.Union(e.deps)); cl != nil {
			return cl
		}
	}
	return nil
}

func (s *search) dataMaxClash(g *graph, x nodeID, c expr.Handle, deps DepSet) *clash {
	n := s.reg.Card(c)
	u := s.dataRole(s.reg.Arg(c, 0))
	ys, ydeps := s.dataNeighbours(g, x, u, s.reg.Arg(c, 1))
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

// dataMaxBranch applies the choose and merge rules of ≤n U.D.
func (s *search) dataMaxBranch(g *graph, x nodeID, c expr.Handle, deps DepSet) *branchPoint {
	n := s.reg.Card(c)
	u := s.dataRole(s.reg.Arg(c, 0))
	d := s.reg.Arg(c, 1)

	all, edeps := s.dataNeighbours(g, x, u, expr.TopDatatype)
	if len(all) <= n {
		return nil
	}
	if d != expr.TopDatatype {
		neg, err := s.reg.DataNot(d)
		if err != nil {
			panic(err)
		}
		for _, y := range all {
			yn := g.get(y)
			if _, ok := holds(yn, d); ok {
				continue
			}
			if _, ok := holds(yn, neg); ok {
				continue
			}
			y := y
			return &branchPoint{
				deps: deps.Union(edeps[y]),
				alts: []alt{
					func(g *graph, dd DepSet, _ []DepSet) *clash { return s.add(g, y, entry{c: d}, dd) },
					func(g *graph, dd DepSet, _ []DepSet) *clash { return s.add(g, y, entry{c: neg}, dd) },
				},
			}
		}
	}

	ys, ydeps := s.dataNeighbours(g, x, u, d)
	if len(ys) <= n {
		return nil
	}
	bdeps := deps
	for _, y := range ys {
		bdeps = bdeps.Union(ydeps[y])
	}
	br := &branchPoint{deps: bdeps}
	for i := range ys {
		for j := i + 1; j < len(ys); j++ {
			if _, ok := g.distinct(ys[i], ys[j]); ok {
				continue
			}
			from, into := ys[j], ys[i]
			br.alts = append(br.alts, func(g *graph, dd DepSet, _ []DepSet) *clash {
				return s.mergeData(g, from, into, dd)
			})
		}
	}
	if len(br.alts) == 0 {
		return nil
	}
	return br
}

// mergeData identifies two values of the same object node.
func (s *search) mergeData(g *graph, from, into nodeID, deps DepSet) *clash {
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
	for p, d := range g.neq {
		other := p[0]
		if other == from {
			other = p[1]
		} else if p[1] != from {
			continue
		}
		if other == into {
			return clashOf(deps, d)
		}
		g.setDistinct(into, other, d.Union(deps))
	}
	parent := src.parent
	var roles []dataEdge
	for _, e := range g.get(parent).dataEdges {
		if e.to == from {
			roles = append(roles, e)
		}
	}
	g.removeEdgesTo(parent, from)
	f := g.mut(from)
	f.merged = into
	f.mergeDeps = deps
	g.live--
	for _, e := range roles {
		if c := s.addDataEdge(g, parent, into, e.role, e.deps.Union(deps)); c != nil {
			return c
		}
	}
	return nil
}

func (s *search) dataSomeRule(g *graph, x nodeID, c expr.Handle, deps DepSet) (bool, *clash) {
	uh, d := s.reg.Arg(c, 0), s.reg.Arg(c, 1)
	if ys, _ := s.dataNeighbours(g, x, s.dataRole(uh), d); len(ys) > 0 {
		return false, nil
	}
	_, cl := s.dataSuccessor(g, x, uh, d, deps)
	return true, cl
}

func (s *search) dataMinRule(g *graph, x nodeID, c expr.Handle, deps DepSet) (bool, *clash) {
	if g.get(x).applied[c] {
		return false, nil
	}
	n := s.reg.Card(c)
	uh, d := s.reg.Arg(c, 0), s.reg.Arg(c, 1)
	ys, _ := s.dataNeighbours(g, x, s.dataRole(uh), d)
	if len(greedyClique(g, ys)) >= n {
		return false, nil
	}
	m := g.mut(x)
	if m.applied == nil {
		m.applied = make(map[expr.Handle]bool)
	}
	m.applied[c] = true
	made := make([]nodeID, 0, n)
	for i := 0; i < n; i++ {
		y, cl := s.dataSuccessor(g, x, uh, d, deps)
		if cl != nil {
			return true, cl
		}
		for _, z := range made {
			g.setDistinct(y, z, deps)
		}
		made = append(made, y)
	}
	return true, nil
}

func (s *search) dataSuccessor(g *graph, x nodeID, uh, d expr.Handle, deps DepSet) (nodeID, *clash) {
	y := g.newNode(dataNode, x).id
	s.r.stats.Nodes++
	if c := s.add(g, y, entry{c: d}, deps); c != nil {
		return y, c
	}
	return y, s.addDataEdge(g, x, y, s.dataRole(uh), deps)
}

// checkData verifies, per object node, that its values can be chosen from
// their ranges while keeping distinct values apart.
func (s *search) checkData(g *graph) *clash {
	for id := range g.nodes {
		n := g.get(nodeID(id))
		if !n.live() || n.kind == dataNode || len(n.dataEdges) == 0 {
			continue
		}
		if c := s.dataFeasible(g, n); c != nil {
			return c
		}
	}
	return nil
}

func (s *search) dataFeasible(g *graph, n *node) *clash {
	var ids []nodeID
	edeps := make(map[nodeID]DepSet)
	for _, e := range n.dataEdges {
		if !g.get(e.to).live() {
			continue
		}
		d, seen := edeps[e.to]
		if !seen {
			ids = append(ids, e.to)
		}
		edeps[e.to] = d.Union(e.deps)
	}

	sets := make([]datatype.Set, len(ids))
	var all DepSet
	for i, y := range ids {
		yn := g.get(y)
		set := datatype.Full()
		var ydeps DepSet
		for _, en := range yn.order {
			set = set.Intersect(s.rangeOf(en.c))
			ydeps = ydeps.Union(yn.label[en])
		}
		if set.IsEmpty() {
			return clashOf(ydeps, edeps[y])
		}
		sets[i] = set
		all = all.Union(ydeps).Union(edeps[y])
	}

	if s.assignable(g, ids, sets) {
		return nil
	}
	for i := range ids {
		for j := i + 1; j < len(ids); j++ {
			if d, ok := g.distinct(ids[i], ids[j]); ok {
				all = all.Union(d)
			}
		}
	}
	return clashOf(all)
}

// assignable searches for one value per node such that nodes known to be
// distinct get different values. A node with at least len(ids) candidates
// can always avoid the others, so only the small ranges are enumerated.
func (s *search) assignable(g *graph, ids []nodeID, sets []datatype.Set) bool {
	k := len(ids)
	var tight []int
	cands := make([][]datatype.Value, k)
	for i, set := range sets {
		if cnt, finite := set.Count(); finite && cnt < k {
			cands[i] = set.Enumerate(k)
			tight = append(tight, i)
		}
	}
	if len(tight) < 2 {
		return true
	}
	chosen := make(map[int]string, len(tight))
	var try func(t int) bool
	try = func(t int) bool {
		if t == len(tight) {
			return true
		}
		i := tight[t]
		for _, v := range cands[i] {
			key := v.Key()
			ok := true
			for j, other := range chosen {
				if other != key {
					continue
				}
				if _, d := g.distinct(ids[i], ids[j]); d {
					ok = false
					break
				}
			}
			if !ok {
				continue
			}
			chosen[i] = key
			if try(t + 1) {
				return true
			}
			delete(chosen, i)
		}
		return false
	}
	return try(0)
}
