// Package tableau decides concept satisfiability and knowledge base
// consistency for the compiled TBox with a completion-graph tableau:
// lazy unfolding, dependency-directed backjumping, semantic branching,
// anywhere blocking (subset, equality or pairwise) and a result cache.
package tableau

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cognicore/dlk/pkg/dlk/config"
	"github.com/cognicore/dlk/pkg/dlk/datatype"
	"github.com/cognicore/dlk/pkg/dlk/expr"
	"github.com/cognicore/dlk/pkg/dlk/internalerr"
	"github.com/cognicore/dlk/pkg/dlk/rbox"
	"github.com/cognicore/dlk/pkg/dlk/tbox"
)

// Options tune the engine.
type Options struct {
	// Blocking is one of the config.Blocking* strategies.
	Blocking          string
	Backjumping       bool
	SemanticBranching bool
	// MaxNodes caps the completion graph; exceeding it is a timeout.
	MaxNodes  int
	CacheSize int
}

// OptionsFrom extracts the engine options from a configuration.
func OptionsFrom(cfg config.Config) Options {
	return Options{
		Blocking:          cfg.Blocking,
		Backjumping:       cfg.UseBackjumping,
		SemanticBranching: cfg.UseSemanticBranching,
		MaxNodes:          cfg.MaxNodes,
		CacheSize:         cfg.CacheSize,
	}
}

// Stats counts engine work since the last Load.
type Stats struct {
	Tests     uint64
	CacheHits uint64
	Nodes     uint64
	Branches  uint64
	Backjumps uint64
	Merges    uint64
}

type queryOp uint8

const (
	opSat queryOp = iota + 1
	opInstance
)

type cacheKey struct {
	op   queryOp
	a, b expr.Handle
}

// Reasoner runs satisfiability tests against one loaded TBox. It is not
// safe for concurrent use.
type Reasoner struct {
	reg  *expr.Registry
	dt   *datatype.Compiler
	opts Options

	tb         *tbox.TBox
	cache      *lru.Cache[cacheKey, bool]
	consistent int8 // 0 unknown, 1 yes, -1 no
	stats      Stats
}

// New returns a reasoner with nothing loaded.
func New(reg *expr.Registry, dt *datatype.Compiler, opts Options) (*Reasoner, error) {
	switch opts.Blocking {
	case "", config.BlockingAuto, config.BlockingSubset, config.BlockingPairwise:
	default:
		return nil, fmt.Errorf("blocking %q: %w", opts.Blocking, internalerr.ErrInvalidConfig)
	}
	size := opts.CacheSize
	if size <= 0 {
		size = 1
	}
	cache, err := lru.New[cacheKey, bool](size)
	if err != nil {
		return nil, fmt.Errorf("result cache: %w", err)
	}
	return &Reasoner{reg: reg, dt: dt, opts: opts, cache: cache}, nil
}

// Load replaces the TBox and drops every cached result.
func (r *Reasoner) Load(tb *tbox.TBox) {
	r.tb = tb
	r.Purge()
}

// Purge drops cached results and statistics.
func (r *Reasoner) Purge() {
	r.cache.Purge()
	r.consistent = 0
	r.stats = Stats{}
}

// Stats returns counters since the last Load.
func (r *Reasoner) Stats() Stats { return r.stats }

// Loaded reports whether a TBox is loaded.
func (r *Reasoner) Loaded() bool { return r.tb != nil }

// blocking picks the blocking condition for a test of query. Labels only
// flow forward without inverse interaction, so subset blocking holds even
// with number restrictions. Inverses need equal labels, and inverses with
// number restrictions need the pairwise condition.
func (r *Reasoner) blocking(query expr.Handle) blockMode {
	switch r.opts.Blocking {
	case config.BlockingPairwise:
		return blockPairwise
	case config.BlockingSubset:
		return blockSubset
	}
	flow := r.tb.Features.InverseFlow
	number := r.tb.Features.Number
	if query != expr.Invalid {
		roles, n := r.queryRoles(query, nil)
		if len(roles) > 0 {
			flow = r.tb.RBox.InverseInteraction(append(roles, r.tb.Restricted...))
		}
		number = number || n
	}
	switch {
	case flow && number:
		return blockPairwise
	case flow:
		return blockEqual
	}
	return blockSubset
}

// queryRoles collects the object roles that restrictions in c mention and
// reports whether c has a number restriction.
func (r *Reasoner) queryRoles(c expr.Handle, roles []rbox.Role) ([]rbox.Role, bool) {
	number := false
	switch r.reg.Op(c) {
	case expr.OpInvalid:
		return roles, false
	case expr.OpMin, expr.OpMax, expr.OpExact:
		number = true
		fallthrough
	case expr.OpSome, expr.OpAll, expr.OpHasValue, expr.OpHasSelf:
		if role, err := r.tb.RBox.Role(r.reg.Arg(c, 0)); err == nil {
			roles = append(roles, role)
		}
	}
	for _, a := range r.reg.Args(c) {
		if r.reg.Sort(a) == expr.SortConcept {
			var n bool
			roles, n = r.queryRoles(a, roles)
			number = number || n
		}
	}
	return roles, number
}

// run executes one test. Engine panics become ErrFatal.
func (r *Reasoner) run(ctx context.Context, query expr.Handle, setup func(s *search, g *graph) *clash) (sat bool, err error) {
	if r.tb == nil {
		return false, fmt.Errorf("no knowledge base loaded: %w", internalerr.ErrNotSynced)
	}
	defer func() {
		if p := recover(); p != nil {
			sat, err = false, fmt.Errorf("tableau: %v: %w", p, internalerr.ErrFatal)
		}
	}()
	if err := ctx.Err(); err != nil {
		return false, internalerr.FromContext(err)
	}
	r.stats.Tests++
	s := &search{
		r:        r,
		tb:       r.tb,
		rb:       r.tb.RBox,
		reg:      r.reg,
		ctx:      ctx,
		blocking: r.blocking(query),
	}
	g := newGraph()
	if c := setup(s, g); c != nil {
		return false, s.err
	}
	if s.err != nil {
		return false, s.err
	}
	_, ok := s.solve(g)
	if s.err != nil {
		return false, s.err
	}
	return ok, nil
}

// loadABox creates a nominal node per individual with its types, edges
// and inequalities.
func (s *search) loadABox(g *graph) *clash {
	ab := s.tb.ABox
	for _, a := range ab.Individuals {
		x, _, c := s.nominalNode(g, a)
		if c != nil {
			return c
		}
		if c := s.addAll(g, x, ab.Types[a], nil); c != nil {
			return c
		}
	}
	for _, e := range ab.Edges {
		x, _, c := s.nominalNode(g, e.From)
		if c != nil {
			return c
		}
		y, _, c := s.nominalNode(g, e.To)
		if c != nil {
			return c
		}
		if c := s.addEdge(g, x, y, e.Role, nil); c != nil {
			return c
		}
	}
	for _, p := range ab.Different {
		x, dx, c := s.nominalNode(g, p[0])
		if c != nil {
			return c
		}
		y, dy, c := s.nominalNode(g, p[1])
		if c != nil {
			return c
		}
		if x == y {
			return clashOf(dx, dy)
		}
		g.setDistinct(x, y, dx.Union(dy))
	}
	return nil
}

func (s *search) root(g *graph, c expr.Handle) *clash {
	x := g.newNode(blockable, none).id
	s.r.stats.Nodes++
	if cl := s.add(g, x, entry{c: c}, nil); cl != nil {
		return cl
	}
	return s.addAll(g, x, s.tb.Globals, nil)
}

// Consistent reports whether the loaded knowledge base has a model.
func (r *Reasoner) Consistent(ctx context.Context) (bool, error) {
	if r.consistent != 0 {
		r.stats.CacheHits++
		return r.consistent > 0, nil
	}
	ok, err := r.run(ctx, expr.Invalid, func(s *search, g *graph) *clash {
		if c := s.loadABox(g); c != nil {
			return c
		}
		if s.tb.ABox.Empty() {
			return s.root(g, expr.Top)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	r.consistent = -1
	if ok {
		r.consistent = 1
	}
	return ok, nil
}

func (r *Reasoner) requireConsistent(ctx context.Context) error {
	ok, err := r.Consistent(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return internalerr.ErrInconsistentKB
	}
	return nil
}

// mentionsNominal reports whether c contains an enumeration.
func (r *Reasoner) mentionsNominal(c expr.Handle) bool {
	switch r.reg.Op(c) {
	case expr.OpOneOf, expr.OpHasValue:
		return true
	}
	for _, a := range r.reg.Args(c) {
		if r.reg.Sort(a) == expr.SortConcept && r.mentionsNominal(a) {
			return true
		}
	}
	return false
}

// Satisfiable reports whether c has an instance in some model of the
// knowledge base. It fails with ErrInconsistentKB when there is no model.
func (r *Reasoner) Satisfiable(ctx context.Context, c expr.Handle) (bool, error) {
	if err := r.requireConsistent(ctx); err != nil {
		return false, err
	}
	c = r.reg.NNF(c)
	switch c {
	case expr.Top:
		return true, nil
	case expr.Bottom:
		return false, nil
	}
	key := cacheKey{op: opSat, a: c}
	if v, ok := r.cache.Get(key); ok {
		r.stats.CacheHits++
		return v, nil
	}
	withABox := r.tb.Features.Nominals || r.mentionsNominal(c)
	ok, err := r.run(ctx, c, func(s *search, g *graph) *clash {
		if withABox {
			if cl := s.loadABox(g); cl != nil {
				return cl
			}
		}
		return s.root(g, c)
	})
	if err != nil {
		return false, err
	}
	r.cache.Add(key, ok)
	return ok, nil
}

// IsSubsumedBy reports c ⊑ d.
func (r *Reasoner) IsSubsumedBy(ctx context.Context, c, d expr.Handle) (bool, error) {
	if c == d || d == expr.Top || c == expr.Bottom {
		if err := r.requireConsistent(ctx); err != nil {
			return false, err
		}
		return true, nil
	}
	notD := r.reg.Complement(d)
	both, err := r.reg.And(r.reg.NNF(c), notD)
	if err != nil {
		return false, err
	}
	sat, err := r.Satisfiable(ctx, both)
	if err != nil {
		return false, err
	}
	return !sat, nil
}

// IsInstance reports whether individual a is entailed to be a c.
func (r *Reasoner) IsInstance(ctx context.Context, a, c expr.Handle) (bool, error) {
	if err := r.requireConsistent(ctx); err != nil {
		return false, err
	}
	c = r.reg.NNF(c)
	if c == expr.Top {
		return true, nil
	}
	key := cacheKey{op: opInstance, a: a, b: c}
	if v, ok := r.cache.Get(key); ok {
		r.stats.CacheHits++
		return v, nil
	}
	neg := r.reg.Complement(c)
	ok, err := r.run(ctx, neg, func(s *search, g *graph) *clash {
		if cl := s.loadABox(g); cl != nil {
			return cl
		}
		x, _, cl := s.nominalNode(g, a)
		if cl != nil {
			return cl
		}
		return s.add(g, x, entry{c: neg}, nil)
	})
	if err != nil {
		return false, err
	}
	r.cache.Add(key, !ok)
	return !ok, nil
}
