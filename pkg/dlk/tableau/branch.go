package tableau

import (
	"github.com/cognicore/dlk/pkg/dlk/expr"
)

// alt applies one alternative of a branch to a fresh copy of the graph.
// failed holds, for each earlier alternative, the dependencies of its
// clash below the branch level.
type alt func(g *graph, deps DepSet, failed []DepSet) *clash

type branchPoint struct {
	deps DepSet
	alts []alt
}

// findBranch returns the first nondeterministic rule that applies, in
// node order: disjunctions, then the choose and merge rules of at-most
// restrictions, object before data. Blocked nodes are skipped.
func (s *search) findBranch(g *graph) *branchPoint {
	b := s.blocker(g)
	for id := range g.nodes {
		x := nodeID(id)
		n := g.get(x)
		if !n.live() || n.kind == dataNode || b.blocked(x) {
			continue
		}
		for _, en := range n.order {
			if en.q != 0 {
				continue
			}
			deps := n.label[en]
			var br *branchPoint
			switch s.reg.Op(en.c) {
			case expr.OpOr:
				br = s.orBranch(n, en.c, deps)
			case expr.OpOneOf:
				if len(s.reg.Args(en.c)) > 1 {
					br = s.oneOfBranch(x, en.c, deps)
				}
			case expr.OpMax:
				br = s.maxBranch(g, x, en.c, deps)
			case expr.OpDataMax:
				br = s.dataMaxBranch(g, x, en.c, deps)
			}
			if br != nil {
				return br
			}
		}
	}
	return nil
}

func (s *search) orBranch(n *node, c expr.Handle, deps DepSet) *branchPoint {
	disjuncts := s.reg.Args(c)
	for _, d := range disjuncts {
		if _, ok := holds(n, d); ok {
			return nil
		}
	}
	x := n.id
	semantic := s.r.opts.SemanticBranching
	br := &branchPoint{deps: deps}
	for i := range disjuncts {
		i := i
		br.alts = append(br.alts, func(g *graph, d DepSet, failed []DepSet) *clash {
			if semantic {
				for j := 0; j < i && j < len(failed); j++ {
					neg := s.reg.Complement(disjuncts[j])
					if c := s.add(g, x, entry{c: neg}, failed[j]); c != nil {
						return c
					}
				}
			}
			return s.add(g, x, entry{c: disjuncts[i]}, d)
		})
	}
	return br
}

// oneOfBranch splits an enumeration that was built outside NNF.
func (s *search) oneOfBranch(x nodeID, c expr.Handle, deps DepSet) *branchPoint {
	br := &branchPoint{deps: deps}
	for _, a := range s.reg.Args(c) {
		a := a
		br.alts = append(br.alts, func(g *graph, d DepSet, _ []DepSet) *clash {
			one, err := s.reg.OneOf(a)
			if err != nil {
				panic(err)
			}
			return s.add(g, x, entry{c: one}, d)
		})
	}
	return br
}

// maxBranch applies the choose rule, then the merge rule, of ≤n R.C.
func (s *search) maxBranch(g *graph, x nodeID, c expr.Handle, deps DepSet) *branchPoint {
	n := s.reg.Card(c)
	r := s.role(s.reg.Arg(c, 0))
	filler := s.reg.Arg(c, 1)

	ys, edeps := s.neighbours(g, x, r)
	if len(ys) <= n {
		return nil
	}
	if filler != expr.Top {
		neg := s.reg.Complement(filler)
		for _, y := range ys {
			yn := g.get(y)
			if _, ok := holds(yn, filler); ok {
				continue
			}
			if _, ok := holds(yn, neg); ok {
				continue
			}
			y := y
			return &branchPoint{
				deps: deps.Union(edeps[y]),
				alts: []alt{
					func(g *graph, d DepSet, _ []DepSet) *clash { return s.add(g, y, entry{c: filler}, d) },
					func(g *graph, d DepSet, _ []DepSet) *clash { return s.add(g, y, entry{c: neg}, d) },
				},
			}
		}
	}

	qs, qdeps := s.qualified(g, x, r, filler)
	if len(qs) <= n {
		return nil
	}
	bdeps := deps
	for _, y := range qs {
		bdeps = bdeps.Union(qdeps[y])
	}
	br := &branchPoint{deps: bdeps}
	parent := g.get(x).parent
	for i := range qs {
		for j := i + 1; j < len(qs); j++ {
			if _, ok := g.distinct(qs[i], qs[j]); ok {
				continue
			}
			from, into := mergeOrder(g, qs[i], qs[j], parent)
			br.alts = append(br.alts, func(g *graph, d DepSet, _ []DepSet) *clash {
				return s.merge(g, from, into, d)
			})
		}
	}
	if len(br.alts) == 0 {
		return nil
	}
	return br
}

// mergeOrder decides which of two neighbours of x survives a merge: a
// nominal, then the predecessor of x, then the older node.
func mergeOrder(g *graph, a, b, parent nodeID) (from, into nodeID) {
	ka, kb := g.get(a).kind, g.get(b).kind
	switch {
	case ka == nominal && kb != nominal:
		return b, a
	case kb == nominal && ka != nominal:
		return a, b
	case a == parent:
		return b, a
	case b == parent:
		return a, b
	case b < a:
		return a, b
	}
	return b, a
}

// branch tries each alternative of br on its own copy of g. An
// alternative whose clash does not depend on this branch fails the whole
// branch point at once.
func (s *search) branch(g *graph, br *branchPoint) (*clash, bool) {
	lvl := g.level + 1
	s.r.stats.Branches++
	var acc DepSet
	failed := make([]DepSet, 0, len(br.alts))
	for _, a := range br.alts {
		h := g.clone()
		h.level = lvl
		d := br.deps.Union(level(lvl))
		c := a(h, d, failed)
		if c == nil {
			var ok bool
			if c, ok = s.solve(h); ok {
				*g = *h
				return nil, true
			}
		}
		if s.err != nil {
			return nil, false
		}
		deps := c.deps
		if !s.r.opts.Backjumping {
			deps = deps.Union(upTo(lvl))
		}
		if !deps.Has(lvl) {
			s.r.stats.Backjumps++
			return &clash{deps: deps}, false
		}
		rest := deps.Below(lvl)
		failed = append(failed, rest)
		acc = acc.Union(rest)
	}
	return clashOf(acc, br.deps.Below(lvl)), false
}
