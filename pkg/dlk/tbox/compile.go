package tbox

import (
	"fmt"
	"sort"

	"github.com/cognicore/dlk/pkg/dlk/expr"
	"github.com/cognicore/dlk/pkg/dlk/rbox"
)

// Options tune the normalisation.
type Options struct {
	// UseRangeDomain keeps domain and range axioms as per-role tables
	// instead of turning them into global constraints.
	UseRangeDomain bool
}

type compiler struct {
	reg  *expr.Registry
	rb   *rbox.RBox
	opts Options
	t    *TBox

	defined map[expr.Handle]bool
	globals map[expr.Handle]bool
	err     error
}

func (c *compiler) keep(h expr.Handle, err error) expr.Handle {
	if err != nil && c.err == nil {
		c.err = err
	}
	return h
}

// sorted returns the live effects in a stable order.
func (b *Builder) sorted() []effect {
	out := make([]effect, 0, len(b.count))
	for f := range b.count {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		x, y := out[i], out[j]
		if x.kind != y.kind {
			return x.kind < y.kind
		}
		if x.a != y.a {
			return x.a < y.a
		}
		if x.b != y.b {
			return x.b < y.b
		}
		return x.c < y.c
	})
	return out
}

// Compile produces the normalised knowledge base for the current effects.
func (b *Builder) Compile(rb *rbox.RBox, opts Options) (*TBox, error) {
	reg := b.reg
	c := &compiler{
		reg:  reg,
		rb:   rb,
		opts: opts,
		t: &TBox{
			RBox:            rb,
			Unfold:          make(map[expr.Handle][]expr.Handle),
			NegUnfold:       make(map[expr.Handle][]expr.Handle),
			Nominal:         make(map[expr.Handle][]expr.Handle),
			ABox:            ABox{Types: make(map[expr.Handle][]expr.Handle)},
			domains:         make(map[rbox.Role][]expr.Handle),
			dataDomains:     make(map[rbox.DataRole][]expr.Handle),
			dataRanges:      make(map[rbox.DataRole][]expr.Handle),
			domainCache:     make(map[rbox.Role][]expr.Handle),
			dataDomainCache: make(map[rbox.DataRole][]expr.Handle),
			dataRangeCache:  make(map[rbox.DataRole][]expr.Handle),
		},
		defined: make(map[expr.Handle]bool),
		globals: make(map[expr.Handle]bool),
	}
	effs := b.sorted()

	type def struct{ name, body expr.Handle }
	var (
		defs  []def
		gcis  [][2]expr.Handle
		prims = make(map[expr.Handle]int)
		nDefs = make(map[expr.Handle]int)
	)
	for _, f := range effs {
		switch f.kind {
		case effSub:
			gcis = append(gcis, [2]expr.Handle{reg.NNF(f.a), reg.NNF(f.b)})
			if reg.Op(f.a) == expr.OpClass {
				prims[f.a]++
			}
		case effEquiv:
			a, d := f.a, f.b
			if reg.Op(a) != expr.OpClass || (nDefs[a] > 0 && reg.Op(d) == expr.OpClass) {
				a, d = d, a
			}
			if reg.Op(a) != expr.OpClass {
				gcis = append(gcis,
					[2]expr.Handle{reg.NNF(a), reg.NNF(d)},
					[2]expr.Handle{reg.NNF(d), reg.NNF(a)})
				continue
			}
			nDefs[a]++
			defs = append(defs, def{name: a, body: reg.NNF(d)})
		}
	}

	// a definition is unfolded both ways only when it is the sole
	// axiom with its name on the left
	for _, d := range defs {
		if nDefs[d.name] == 1 && prims[d.name] == 0 {
			c.defined[d.name] = true
		}
	}
	for _, d := range defs {
		c.t.Unfold[d.name] = append(c.t.Unfold[d.name], d.body)
		if c.defined[d.name] {
			c.t.NegUnfold[d.name] = append(c.t.NegUnfold[d.name], reg.Complement(d.body))
			continue
		}
		gcis = append(gcis, [2]expr.Handle{d.body, d.name})
	}

	for _, g := range gcis {
		c.absorb(g[0], g[1])
	}
	for _, f := range effs {
		c.roleEffect(f)
	}
	c.breakDefinitionCycles()
	c.abox(effs)
	if c.err != nil {
		return nil, fmt.Errorf("compile: %w", c.err)
	}
	c.features()
	return c.t, nil
}

func (c *compiler) or(a, b expr.Handle) expr.Handle {
	switch {
	case a == expr.Top || b == expr.Top:
		return expr.Top
	case a == expr.Bottom:
		return b
	case b == expr.Bottom:
		return a
	}
	return c.keep(c.reg.Or(a, b))
}

func (c *compiler) addGlobal(h expr.Handle) {
	if h == expr.Top || c.globals[h] {
		return
	}
	c.globals[h] = true
	c.t.Globals = append(c.t.Globals, h)
}

// global records ⊤ ⊑ d.
func (c *compiler) global(d expr.Handle) {
	reg := c.reg
	switch reg.Op(d) {
	case expr.OpAnd:
		for _, x := range reg.Args(d) {
			c.global(x)
		}
		return
	case expr.OpAll:
		if c.opts.UseRangeDomain {
			r, err := c.rb.Role(reg.Arg(d, 0))
			if err == nil && c.rb.IsSimple(r) {
				c.t.domains[r.Inverse()] = append(c.t.domains[r.Inverse()], reg.Arg(d, 1))
				return
			}
		}
	}
	c.addGlobal(d)
}

// absorb places lhs ⊑ rhs where it fires as locally as possible. Both
// sides are in negation normal form.
func (c *compiler) absorb(lhs, rhs expr.Handle) {
	reg := c.reg
	if rhs == expr.Top {
		return
	}
	switch reg.Op(lhs) {
	case expr.OpBottom:
		return
	case expr.OpTop:
		c.global(rhs)
		return
	case expr.OpClass:
		if !c.defined[lhs] {
			c.t.Unfold[lhs] = append(c.t.Unfold[lhs], rhs)
			return
		}
	case expr.OpOneOf:
		for _, a := range reg.Args(lhs) {
			c.t.Nominal[a] = append(c.t.Nominal[a], rhs)
		}
		return
	case expr.OpOr:
		for _, d := range reg.Args(lhs) {
			c.absorb(d, rhs)
		}
		return
	case expr.OpAnd:
		if c.absorbConjunction(lhs, rhs) {
			return
		}
	case expr.OpSome:
		c.absorbSome(reg.Arg(lhs, 0), reg.Arg(lhs, 1), rhs)
		return
	}
	c.addGlobal(c.or(reg.Complement(lhs), rhs))
}

// absorbConjunction moves all conjuncts but one to the right-hand side.
func (c *compiler) absorbConjunction(lhs, rhs expr.Handle) bool {
	reg := c.reg
	ops := reg.Args(lhs)
	rest := func(i int) expr.Handle {
		others := make([]expr.Handle, 0, len(ops)-1)
		others = append(others, ops[:i]...)
		others = append(others, ops[i+1:]...)
		return c.or(reg.Complement(c.keep(reg.And(others...))), rhs)
	}
	pick := func(ok func(h expr.Handle) bool) int {
		for i, h := range ops {
			if ok(h) {
				return i
			}
		}
		return -1
	}
	if i := pick(func(h expr.Handle) bool { return reg.Op(h) == expr.OpClass && !c.defined[h] }); i >= 0 {
		c.t.Unfold[ops[i]] = append(c.t.Unfold[ops[i]], rest(i))
		return true
	}
	if i := pick(func(h expr.Handle) bool { return reg.Op(h) == expr.OpOneOf && len(reg.Args(h)) == 1 }); i >= 0 {
		a := reg.Arg(ops[i], 0)
		c.t.Nominal[a] = append(c.t.Nominal[a], rest(i))
		return true
	}
	if i := pick(func(h expr.Handle) bool { return reg.Op(h) == expr.OpSome }); i >= 0 {
		c.absorbSome(reg.Arg(ops[i], 0), reg.Arg(ops[i], 1), rest(i))
		return true
	}
	return false
}

// absorbSome rewrites ∃r.f ⊑ rhs as f ⊑ ∀r⁻.rhs, or as a domain when f is
// ⊤ and r is simple. Implied edges of complex roles have no direct edge
// to attach a domain to.
func (c *compiler) absorbSome(role, filler, rhs expr.Handle) {
	reg := c.reg
	if filler == expr.Top && c.opts.UseRangeDomain {
		if r, err := c.rb.Role(role); err == nil && c.rb.IsSimple(r) {
			c.t.domains[r] = append(c.t.domains[r], rhs)
			return
		}
	}
	inv := c.keep(reg.Inverse(role))
	c.absorb(filler, c.keep(reg.All(inv, rhs)))
}

func (c *compiler) roleEffect(f effect) {
	reg := c.reg
	switch f.kind {
	case effDomain:
		c.absorbSome(f.a, expr.Top, reg.NNF(f.b))
	case effRange:
		c.global(c.keep(reg.All(f.a, reg.NNF(f.b))))
	case effDataDomain:
		d := reg.NNF(f.b)
		if c.opts.UseRangeDomain {
			u, err := c.rb.DataRole(f.a)
			if err != nil {
				c.keep(0, err)
				return
			}
			c.t.dataDomains[u] = append(c.t.dataDomains[u], d)
			return
		}
		some := c.keep(reg.DataSome(f.a, expr.TopDatatype))
		c.addGlobal(c.or(reg.Complement(some), d))
	case effDataRange:
		if c.opts.UseRangeDomain {
			u, err := c.rb.DataRole(f.a)
			if err != nil {
				c.keep(0, err)
				return
			}
			c.t.dataRanges[u] = append(c.t.dataRanges[u], f.b)
			return
		}
		c.addGlobal(c.keep(reg.DataAll(f.a, f.b)))
	}
}

// breakDefinitionCycles demotes definitions whose unfolding reaches their own
// name; negative unfolding is only sound for acyclic definitions.
func (c *compiler) breakDefinitionCycles() {
	reg := c.reg
	names := make(map[expr.Handle][]expr.Handle)
	var collect func(h expr.Handle, into map[expr.Handle]bool)
	collect = func(h expr.Handle, into map[expr.Handle]bool) {
		switch reg.Op(h) {
		case expr.OpClass:
			into[h] = true
			return
		case expr.OpOneOf, expr.OpDataSome, expr.OpDataAll, expr.OpDataMin, expr.OpDataMax, expr.OpHasSelf:
			return
		}
		if reg.Sort(h) != expr.SortConcept {
			return
		}
		for _, a := range reg.Args(h) {
			collect(a, into)
		}
	}
	edges := func(a expr.Handle) []expr.Handle {
		if out, ok := names[a]; ok {
			return out
		}
		set := make(map[expr.Handle]bool)
		for _, d := range c.t.Unfold[a] {
			collect(d, set)
		}
		out := make([]expr.Handle, 0, len(set))
		for n := range set {
			out = append(out, n)
		}
		names[a] = out
		return out
	}
	var cyclic []expr.Handle
	for a := range c.defined {
		seen := map[expr.Handle]bool{}
		stack := append([]expr.Handle(nil), edges(a)...)
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if n == a {
				cyclic = append(cyclic, a)
				break
			}
			if seen[n] {
				continue
			}
			seen[n] = true
			stack = append(stack, edges(n)...)
		}
	}
	sort.Slice(cyclic, func(i, j int) bool { return cyclic[i] < cyclic[j] })
	for _, a := range cyclic {
		delete(c.defined, a)
		for _, neg := range c.t.NegUnfold[a] {
			// ¬a ⊑ neg becomes ⊤ ⊑ a ⊔ neg
			c.addGlobal(c.or(a, neg))
		}
		delete(c.t.NegUnfold, a)
	}
}

func (c *compiler) abox(effs []effect) {
	reg := c.reg
	a := &c.t.ABox
	seen := make(map[expr.Handle]bool)
	individual := func(h expr.Handle) {
		if !seen[h] {
			seen[h] = true
			a.Individuals = append(a.Individuals, h)
		}
	}
	for _, f := range effs {
		switch f.kind {
		case effIndividual:
			individual(f.a)
		case effType:
			individual(f.a)
			a.Types[f.a] = append(a.Types[f.a], reg.NNF(f.b))
		case effEdge:
			individual(f.a)
			individual(f.b)
			r, err := c.rb.Role(f.c)
			if err != nil {
				c.keep(0, err)
				continue
			}
			a.Edges = append(a.Edges, Edge{From: f.a, To: f.b, Role: r})
		case effDiff:
			individual(f.a)
			individual(f.b)
			a.Different = append(a.Different, [2]expr.Handle{f.a, f.b})
		}
	}
	sort.Slice(a.Individuals, func(i, j int) bool { return a.Individuals[i] < a.Individuals[j] })
}

func (c *compiler) features() {
	reg := c.reg
	t := c.t
	ft := &t.Features
	ft.Inverse = c.rb.UsesInverse()
	seen := make(map[expr.Handle]bool)
	restricted := make(map[rbox.Role]bool)
	var walk func(h expr.Handle)
	walk = func(h expr.Handle) {
		if seen[h] {
			return
		}
		seen[h] = true
		switch reg.Op(h) {
		case expr.OpSome, expr.OpAll, expr.OpMin, expr.OpMax, expr.OpExact, expr.OpHasValue, expr.OpHasSelf:
			if r, err := c.rb.Role(reg.Arg(h, 0)); err == nil && !restricted[r] {
				restricted[r] = true
				t.Restricted = append(t.Restricted, r)
			}
		}
		switch reg.Op(h) {
		case expr.OpInverse:
			ft.Inverse = true
		case expr.OpMin, expr.OpMax, expr.OpExact:
			ft.Number = true
		case expr.OpOneOf, expr.OpHasValue:
			ft.Nominals = true
		case expr.OpHasSelf:
			ft.Self = true
		case expr.OpDataSome, expr.OpDataAll, expr.OpDataMin, expr.OpDataMax, expr.OpDataExact, expr.OpDataHasValue:
			ft.Data = true
			return
		}
		switch reg.Sort(h) {
		case expr.SortConcept, expr.SortObjectRole:
			for _, a := range reg.Args(h) {
				walk(a)
			}
		}
	}
	walkAll := func(m map[expr.Handle][]expr.Handle) {
		for _, hs := range m {
			for _, h := range hs {
				walk(h)
			}
		}
	}
	walkAll(t.Unfold)
	walkAll(t.NegUnfold)
	walkAll(t.Nominal)
	walkAll(t.ABox.Types)
	for _, h := range t.Globals {
		walk(h)
	}
	for _, hs := range t.domains {
		for _, h := range hs {
			walk(h)
		}
	}
	for _, hs := range t.dataDomains {
		for _, h := range hs {
			walk(h)
		}
	}
	if len(t.Nominal) > 0 {
		ft.Nominals = true
	}
	if len(t.dataRanges) > 0 || len(t.dataDomains) > 0 {
		ft.Data = true
	}
	sort.Slice(t.Restricted, func(i, j int) bool { return t.Restricted[i] < t.Restricted[j] })
	ft.InverseFlow = c.rb.InverseInteraction(t.Restricted)
}
