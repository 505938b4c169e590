package tableau

import (
	"github.com/cognicore/dlk/pkg/dlk/expr"
)

// blockMode is the condition under which one blockable node stands in for
// another.
type blockMode uint8

const (
	// blockSubset needs the blocked label to be a subset of the blocker's.
	blockSubset blockMode = iota
	// blockEqual needs equal labels.
	blockEqual
	// blockPairwise needs equal labels, equal predecessor labels and the
	// same roles on the edges from the predecessors.
	blockPairwise
)

// blocker decides which blockable nodes are blocked. A blocked node gets
// no generating or branching rules.
type blocker struct {
	g    *graph
	mode blockMode
	memo map[nodeID]bool
}

func (s *search) blocker(g *graph) *blocker {
	return &blocker{g: g, mode: s.blocking, memo: make(map[nodeID]bool)}
}

func (b *blocker) blocked(x nodeID) bool {
	if v, ok := b.memo[x]; ok {
		return v
	}
	// merges can reorder parents; a cycle back to x resolves to unblocked
	b.memo[x] = false
	n := b.g.get(x)
	v := false
	if n.kind == blockable && n.parent != none {
		p := b.g.get(n.parent)
		if p.kind == blockable && (b.blocked(n.parent) || b.directly(n)) {
			v = true
		}
	}
	b.memo[x] = v
	return v
}

// directly reports whether an older unblocked node blocks n. The blocker
// need not be an ancestor.
func (b *blocker) directly(n *node) bool {
	for id := nodeID(0); id < n.id; id++ {
		a := b.g.get(id)
		if !a.live() || a.kind != blockable || !b.matches(n, a) || b.blocked(id) {
			continue
		}
		return true
	}
	return false
}

func (b *blocker) matches(n, a *node) bool {
	switch b.mode {
	case blockSubset:
		return subLabel(n, a)
	case blockEqual:
		return sameLabel(n, a)
	}
	if a.parent == none || !sameLabel(n, a) {
		return false
	}
	p, ap := b.g.get(n.parent), b.g.get(a.parent)
	return ap.kind == blockable && sameLabel(p, ap) &&
		sameRoles(b.g.edgesTo(ap.id, a.id), b.g.edgesTo(p.id, n.id))
}

func subLabel(n, m *node) bool {
	if len(n.label) > len(m.label) {
		return false
	}
	for en := range n.label {
		if _, ok := m.label[en]; !ok {
			return false
		}
	}
	return true
}

func sameLabel(n, m *node) bool {
	return len(n.label) == len(m.label) && subLabel(n, m)
}

func sameRoles(a, b []edge) bool {
	if len(a) != len(b) {
		return false
	}
	for _, e := range a {
		found := false
		for _, f := range b {
			if e.role == f.role {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// generate applies the generating rules of the first unblocked node that
// needs them. It reports whether the graph grew.
func (s *search) generate(g *graph) (bool, *clash) {
	b := s.blocker(g)
	for id := range g.nodes {
		x := nodeID(id)
		n := g.get(x)
		if !n.live() || n.kind == dataNode {
			continue
		}
		grew := false
		for i := 0; i < len(g.get(x).order); i++ {
			n = g.get(x)
			if !n.live() {
				break
			}
			en := n.order[i]
			if en.q != 0 {
				continue
			}
			var ok bool
			var c *clash
			switch s.reg.Op(en.c) {
			case expr.OpSome, expr.OpMin, expr.OpDataSome, expr.OpDataMin:
				if b.blocked(x) {
					continue
				}
				ok, c = s.expand(g, x, en.c, n.label[en])
			}
			if c != nil {
				return true, c
			}
			grew = grew || ok
			if s.err != nil || !s.tick(g) {
				return false, nil
			}
		}
		if grew {
			return true, nil
		}
	}
	return false, nil
}

func (s *search) expand(g *graph, x nodeID, c expr.Handle, deps DepSet) (bool, *clash) {
	switch s.reg.Op(c) {
	case expr.OpSome:
		return s.someRule(g, x, c, deps)
	case expr.OpMin:
		return s.minRule(g, x, c, deps)
	case expr.OpDataSome:
		return s.dataSomeRule(g, x, c, deps)
	default:
		return s.dataMinRule(g, x, c, deps)
	}
}

// successor creates a fresh R-successor of x carrying filler.
func (s *search) successor(g *graph, x nodeID, r expr.Handle, filler expr.Handle, deps DepSet) (nodeID, *clash) {
	y := g.newNode(blockable, x).id
	s.r.stats.Nodes++
	if c := s.addEdge(g, x, y, s.role(r), deps); c != nil {
		return y, c
	}
	if c := s.add(g, y, entry{c: filler}, deps); c != nil {
		return y, c
	}
	return y, s.addAll(g, y, s.tb.Globals, nil)
}

func (s *search) someRule(g *graph, x nodeID, c expr.Handle, deps DepSet) (bool, *clash) {
	r, filler := s.reg.Arg(c, 0), s.reg.Arg(c, 1)
	if ys, _ := s.qualified(g, x, s.role(r), filler); len(ys) > 0 {
		return false, nil
	}
	_, cl := s.successor(g, x, r, filler, deps)
	return true, cl
}

// minRule creates n pairwise distinct successors for ≥n R.C unless x
// already has that many.
func (s *search) minRule(g *graph, x nodeID, c expr.Handle, deps DepSet) (bool, *clash) {
	if g.get(x).applied[c] {
		return false, nil
	}
	n := s.reg.Card(c)
	r, filler := s.reg.Arg(c, 0), s.reg.Arg(c, 1)
	ys, _ := s.qualified(g, x, s.role(r), filler)
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
		y, cl := s.successor(g, x, r, filler, deps)
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

// greedyClique picks nodes from ys that are pairwise distinct.
func greedyClique(g *graph, ys []nodeID) []nodeID {
	var out []nodeID
	for _, y := range ys {
		ok := true
		for _, z := range out {
			if _, d := g.distinct(y, z); !d {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, y)
		}
	}
	return out
}
