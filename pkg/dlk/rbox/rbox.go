// Package rbox compiles role axioms into a role hierarchy with inverses,
// property chains and the automata used to propagate universal
// restrictions along chains.
package rbox

import (
	"fmt"

	"github.com/cognicore/dlk/pkg/dlk/axiom"
	"github.com/cognicore/dlk/pkg/dlk/expr"
	"github.com/cognicore/dlk/pkg/dlk/internalerr"
)

// Role indexes an object role: 2k for the k-th named property, 2k+1 for
// its inverse.
type Role int32

// NoRole is returned alongside errors.
const NoRole Role = -1

// Inverse returns the inverse role.
func (r Role) Inverse() Role { return r ^ 1 }

// DataRole indexes a named data property.
type DataRole int32

type chain struct {
	roles []Role
	sup   Role
}

// RBox is the compiled role box. It is immutable once built except for
// lazily registered roles that carry no axioms.
type RBox struct {
	reg *expr.Registry

	ids   map[expr.Handle]int32
	names []expr.Handle
	n     int // role indices covered by the closure

	told      [][]Role
	supers    [][]bool
	class     []int
	chains    []chain
	asym      []bool
	disjoint  map[[2]Role]bool
	nonSimple []bool
	automata  map[Role]*Automaton

	dids      map[expr.Handle]int32
	dnames    []expr.Handle
	dn        int
	dtold     [][]DataRole
	dsupers   [][]bool
	ddisjoint map[[2]DataRole]bool
}

// Build compiles the role axioms among entries. Non-role axioms are ignored.
// Cyclic or otherwise non-regular role inclusions are rejected with
// ErrUnsupported.
func Build(reg *expr.Registry, entries []axiom.Entry) (*RBox, error) {
	rb := &RBox{
		reg:       reg,
		ids:       make(map[expr.Handle]int32),
		disjoint:  make(map[[2]Role]bool),
		automata:  make(map[Role]*Automaton),
		dids:      make(map[expr.Handle]int32),
		ddisjoint: make(map[[2]DataRole]bool),
	}
	for _, h := range reg.Entities(expr.KindObjectProperty) {
		rb.addName(h)
	}
	for _, h := range reg.Entities(expr.KindDataProperty) {
		rb.addDataName(h)
	}
	rb.n = 2 * len(rb.names)
	rb.dn = len(rb.dnames)
	rb.told = make([][]Role, rb.n)
	rb.asym = make([]bool, rb.n)
	rb.dtold = make([][]DataRole, rb.dn)

	for _, e := range entries {
		if err := rb.add(e.Axiom); err != nil {
			return nil, fmt.Errorf("axiom %d: %w", e.Handle, err)
		}
	}
	rb.close()
	if err := rb.checkRegular(); err != nil {
		return nil, err
	}
	rb.markNonSimple()
	return rb, nil
}

func (rb *RBox) addName(h expr.Handle) int32 {
	if k, ok := rb.ids[h]; ok {
		return k
	}
	k := int32(len(rb.names))
	rb.ids[h] = k
	rb.names = append(rb.names, h)
	return k
}

func (rb *RBox) addDataName(h expr.Handle) int32 {
	if k, ok := rb.dids[h]; ok {
		return k
	}
	k := int32(len(rb.dnames))
	rb.dids[h] = k
	rb.dnames = append(rb.dnames, h)
	return k
}

// isTop and isBottom detect the object role sentinels.
func (rb *RBox) isTop(h expr.Handle) bool    { return rb.reg.Op(h) == expr.OpTopObjectRole }
func (rb *RBox) isBottom(h expr.Handle) bool { return rb.reg.Op(h) == expr.OpBottomObjectRole }

// Role maps an object role expression to its index. Named properties
// registered after Build get fresh indices without axioms.
func (rb *RBox) Role(h expr.Handle) (Role, error) {
	switch rb.reg.Op(h) {
	case expr.OpObjectRole:
		return Role(2 * rb.addName(h)), nil
	case expr.OpInverse:
		base := rb.reg.Arg(h, 0)
		if rb.reg.Op(base) != expr.OpObjectRole {
			return NoRole, fmt.Errorf("inverse of %s: %w", rb.reg.String(base), internalerr.ErrUnsupported)
		}
		return Role(2*rb.addName(base) + 1), nil
	case expr.OpTopObjectRole, expr.OpBottomObjectRole:
		return NoRole, fmt.Errorf("%s as a role operand: %w", rb.reg.Key(h), internalerr.ErrUnsupported)
	}
	return NoRole, fmt.Errorf("handle %d is not an object role: %w", h, internalerr.ErrTypeMismatch)
}

// DataRole maps a data property to its index.
func (rb *RBox) DataRole(h expr.Handle) (DataRole, error) {
	switch rb.reg.Op(h) {
	case expr.OpDataRole:
		return DataRole(rb.addDataName(h)), nil
	case expr.OpTopDataRole, expr.OpBottomDataRole:
		return -1, fmt.Errorf("%s as a role operand: %w", rb.reg.Key(h), internalerr.ErrUnsupported)
	}
	return -1, fmt.Errorf("handle %d is not a data role: %w", h, internalerr.ErrTypeMismatch)
}

// Handle returns the expression for a role index.
func (rb *RBox) Handle(r Role) expr.Handle {
	name := rb.names[r/2]
	if r&1 == 0 {
		return name
	}
	h, err := rb.reg.Inverse(name)
	if err != nil {
		panic(fmt.Sprintf("rbox: inverse of registered role: %v", err))
	}
	return h
}

// DataHandle returns the data property for an index.
func (rb *RBox) DataHandle(u DataRole) expr.Handle { return rb.dnames[u] }

// Roles returns the number of named object roles known to the box.
func (rb *RBox) Roles() int { return len(rb.names) }

func (rb *RBox) sub(a, b Role) {
	rb.told[a] = append(rb.told[a], b)
	rb.told[a.Inverse()] = append(rb.told[a.Inverse()], b.Inverse())
}

func (rb *RBox) addChain(roles []Role, sup Role) {
	rb.chains = append(rb.chains, chain{roles: roles, sup: sup})
	mirror := make([]Role, len(roles))
	for i, r := range roles {
		mirror[len(roles)-1-i] = r.Inverse()
	}
	rb.chains = append(rb.chains, chain{roles: mirror, sup: sup.Inverse()})
}

func (rb *RBox) roles(hs []expr.Handle) ([]Role, error) {
	out := make([]Role, len(hs))
	for i, h := range hs {
		r, err := rb.Role(h)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

func (rb *RBox) dataRoles(hs []expr.Handle) ([]DataRole, bool, error) {
	out := make([]DataRole, 0, len(hs))
	for _, h := range hs {
		switch rb.reg.Op(h) {
		case expr.OpTopDataRole, expr.OpBottomDataRole:
			return nil, true, nil
		}
		u, err := rb.DataRole(h)
		if err != nil {
			return nil, false, err
		}
		out = append(out, u)
	}
	return out, false, nil
}

// hasSentinel reports whether any operand is the top or bottom object role.
func (rb *RBox) hasSentinel(hs []expr.Handle) bool {
	for _, h := range hs {
		if rb.isTop(h) || rb.isBottom(h) {
			return true
		}
	}
	return false
}

func (rb *RBox) add(ax axiom.Axiom) error {
	args := ax.Args
	switch ax.Kind {
	case axiom.SubObjectPropertyOf:
		sub, sup := args[0], args[1]
		if rb.isTop(sup) || rb.isBottom(sub) {
			return nil
		}
		subs := []expr.Handle{sub}
		if rb.reg.Op(sub) == expr.OpChain {
			subs = rb.reg.Args(sub)
		}
		if rb.isBottom(sup) || rb.hasSentinel(subs) {
			return fmt.Errorf("%s with a universal or empty role: %w", ax.Kind, internalerr.ErrUnsupported)
		}
		all := append(append([]expr.Handle(nil), subs...), sup)
		rs, err := rb.roles(all)
		if err != nil {
			return err
		}
		if len(rs) == 2 {
			if rs[0] != rs[1] {
				rb.sub(rs[0], rs[1])
			}
			return nil
		}
		rb.addChain(rs[:len(rs)-1], rs[len(rs)-1])

	case axiom.EquivalentObjectProperties:
		if rb.hasSentinel(args) {
			return fmt.Errorf("%s with a top or bottom role: %w", ax.Kind, internalerr.ErrUnsupported)
		}
		rs, err := rb.roles(args)
		if err != nil {
			return err
		}
		for i := 1; i < len(rs); i++ {
			rb.sub(rs[i-1], rs[i])
			rb.sub(rs[i], rs[i-1])
		}

	case axiom.InverseObjectProperties:
		rs, err := rb.roles(args)
		if err != nil {
			return err
		}
		rb.sub(rs[0], rs[1].Inverse())
		rb.sub(rs[1].Inverse(), rs[0])

	case axiom.SymmetricObjectProperty:
		r, err := rb.Role(args[0])
		if err != nil {
			return err
		}
		rb.sub(r, r.Inverse())

	case axiom.TransitiveObjectProperty:
		r, err := rb.Role(args[0])
		if err != nil {
			return err
		}
		rb.addChain([]Role{r, r}, r)

	case axiom.AsymmetricObjectProperty:
		r, err := rb.Role(args[0])
		if err != nil {
			return err
		}
		rb.asym[r], rb.asym[r.Inverse()] = true, true

	case axiom.DisjointObjectProperties:
		if rb.hasSentinel(args) {
			return fmt.Errorf("%s with a top or bottom role: %w", ax.Kind, internalerr.ErrUnsupported)
		}
		rs, err := rb.roles(args)
		if err != nil {
			return err
		}
		for i := range rs {
			for j := i + 1; j < len(rs); j++ {
				a, b := rs[i], rs[j]
				rb.disjoint[[2]Role{a, b}] = true
				rb.disjoint[[2]Role{b, a}] = true
				rb.disjoint[[2]Role{a.Inverse(), b.Inverse()}] = true
				rb.disjoint[[2]Role{b.Inverse(), a.Inverse()}] = true
			}
		}

	case axiom.SubDataPropertyOf, axiom.EquivalentDataProperties:
		us, skip, err := rb.dataRoles(args)
		if err != nil || skip {
			return err
		}
		if ax.Kind == axiom.SubDataPropertyOf {
			rb.dtold[us[0]] = append(rb.dtold[us[0]], us[1])
			return nil
		}
		for i := 1; i < len(us); i++ {
			rb.dtold[us[i-1]] = append(rb.dtold[us[i-1]], us[i])
			rb.dtold[us[i]] = append(rb.dtold[us[i]], us[i-1])
		}

	case axiom.DisjointDataProperties:
		us, skip, err := rb.dataRoles(args)
		if err != nil || skip {
			return err
		}
		for i := range us {
			for j := i + 1; j < len(us); j++ {
				rb.ddisjoint[[2]DataRole{us[i], us[j]}] = true
				rb.ddisjoint[[2]DataRole{us[j], us[i]}] = true
			}
		}
	}
	return nil
}

// close computes the reflexive-transitive closure of the told hierarchy
// and the equivalence classes.
func (rb *RBox) close() {
	rb.supers = closure(rb.n, func(i int) []int {
		out := make([]int, len(rb.told[i]))
		for j, r := range rb.told[i] {
			out[j] = int(r)
		}
		return out
	})
	rb.class = make([]int, rb.n)
	for i := range rb.class {
		rb.class[i] = i
		for j := 0; j < i; j++ {
			if rb.supers[i][j] && rb.supers[j][i] {
				rb.class[i] = rb.class[j]
				break
			}
		}
	}
	rb.dsupers = closure(rb.dn, func(i int) []int {
		out := make([]int, len(rb.dtold[i]))
		for j, u := range rb.dtold[i] {
			out[j] = int(u)
		}
		return out
	})
}

func closure(n int, next func(int) []int) [][]bool {
	out := make([][]bool, n)
	for i := 0; i < n; i++ {
		row := make([]bool, n)
		stack := []int{i}
		row[i] = true
		for len(stack) > 0 {
			v := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, w := range next(v) {
				if !row[w] {
					row[w] = true
					stack = append(stack, w)
				}
			}
		}
		out[i] = row
	}
	return out
}

// IsSubRole reports sub ⊑* sup.
func (rb *RBox) IsSubRole(sub, sup Role) bool {
	if int(sub) >= rb.n || int(sup) >= rb.n {
		return sub == sup
	}
	return rb.supers[sub][sup]
}

func (rb *RBox) same(a, b Role) bool {
	if int(a) >= rb.n || int(b) >= rb.n {
		return a == b
	}
	return rb.class[a] == rb.class[b]
}

// IsSubDataRole reports sub ⊑* sup.
func (rb *RBox) IsSubDataRole(sub, sup DataRole) bool {
	if int(sub) >= rb.dn || int(sup) >= rb.dn {
		return sub == sup
	}
	return rb.dsupers[sub][sup]
}

// Disjoint reports whether an edge labelled a and one labelled b between
// the same nodes clash. Disjointness is inherited by sub-roles.
func (rb *RBox) Disjoint(a, b Role) bool {
	if len(rb.disjoint) == 0 {
		return false
	}
	for pair := range rb.disjoint {
		if rb.IsSubRole(a, pair[0]) && rb.IsSubRole(b, pair[1]) {
			return true
		}
	}
	return false
}

// HasDisjoint reports whether any disjointness or asymmetry is declared.
func (rb *RBox) HasDisjoint() bool {
	if len(rb.disjoint) > 0 || len(rb.ddisjoint) > 0 {
		return true
	}
	for _, a := range rb.asym {
		if a {
			return true
		}
	}
	return false
}

// Asymmetric reports whether r is asymmetric, directly or through a super-role.
func (rb *RBox) Asymmetric(r Role) bool {
	if int(r) >= rb.n {
		return false
	}
	for s, ok := range rb.supers[r] {
		if ok && rb.asym[s] {
			return true
		}
	}
	return false
}

// DataDisjoint reports whether a and b are disjoint data roles.
func (rb *RBox) DataDisjoint(a, b DataRole) bool {
	for pair := range rb.ddisjoint {
		if rb.IsSubDataRole(a, pair[0]) && rb.IsSubDataRole(b, pair[1]) {
			return true
		}
	}
	return false
}

// IsTransitive reports whether r ∘ r ⊑ r is told for r or an equivalent role.
func (rb *RBox) IsTransitive(r Role) bool {
	for _, c := range rb.chains {
		if len(c.roles) == 2 && rb.same(c.sup, r) && rb.same(c.roles[0], r) && rb.same(c.roles[1], r) {
			return true
		}
	}
	return false
}

// IsSymmetric reports whether r ⊑* r⁻.
func (rb *RBox) IsSymmetric(r Role) bool { return rb.IsSubRole(r, r.Inverse()) }

// IsSimple reports whether r has no complex sub-role.
func (rb *RBox) IsSimple(r Role) bool {
	if int(r) >= rb.n {
		return true
	}
	return !rb.nonSimple[r]
}

func (rb *RBox) markNonSimple() {
	rb.nonSimple = make([]bool, rb.n)
	for _, c := range rb.chains {
		for r := 0; r < rb.n; r++ {
			if rb.supers[c.sup][r] {
				rb.nonSimple[r] = true
			}
		}
	}
}

// CheckSimple rejects non-simple roles where simple ones are required.
func (rb *RBox) CheckSimple(hs []expr.Handle) error {
	for _, h := range hs {
		if rb.isTop(h) || rb.isBottom(h) {
			continue
		}
		r, err := rb.Role(h)
		if err != nil {
			return err
		}
		if !rb.IsSimple(r) {
			return fmt.Errorf("role %s is not simple: %w", rb.reg.String(h), internalerr.ErrUnsupported)
		}
	}
	return nil
}

// checkRegular rejects role inclusions whose dependency order is cyclic.
func (rb *RBox) checkRegular() error {
	deps := make(map[int]map[int]bool)
	dep := func(from, to Role) {
		a, b := rb.class[from], rb.class[to]
		if a == b {
			return
		}
		if deps[a] == nil {
			deps[a] = make(map[int]bool)
		}
		deps[a][b] = true
	}
	for _, c := range rb.chains {
		n := len(c.roles)
		for i, s := range c.roles {
			if rb.same(s, c.sup) {
				if i == 0 || i == n-1 {
					continue
				}
				return fmt.Errorf("role chain into %s is not regular: %w",
					rb.reg.String(rb.Handle(c.sup)), internalerr.ErrUnsupported)
			}
			dep(c.sup, s)
			dep(c.sup, s.Inverse())
		}
		if n > 2 && rb.same(c.roles[0], c.sup) && rb.same(c.roles[n-1], c.sup) {
			return fmt.Errorf("role chain into %s is not regular: %w",
				rb.reg.String(rb.Handle(c.sup)), internalerr.ErrUnsupported)
		}
	}
	for sub := 0; sub < rb.n; sub++ {
		for sup := 0; sup < rb.n; sup++ {
			if sub != sup && rb.supers[sub][sup] {
				dep(Role(sup), Role(sub))
			}
		}
	}

	const (
		white = iota
		grey
		black
	)
	color := make(map[int]int)
	var visit func(v int) bool
	visit = func(v int) bool {
		color[v] = grey
		for w := range deps[v] {
			switch color[w] {
			case grey:
				return false
			case white:
				if !visit(w) {
					return false
				}
			}
		}
		color[v] = black
		return true
	}
	for v := range deps {
		if color[v] == white && !visit(v) {
			return fmt.Errorf("cycle in role inclusion axioms through %s: %w",
				rb.reg.String(rb.Handle(Role(v))), internalerr.ErrUnsupported)
		}
	}
	return nil
}

// UsesInverse reports whether the role axioms relate a role to an inverse,
// as inverse and symmetric properties and some chains do.
func (rb *RBox) UsesInverse() bool {
	for r, sups := range rb.told {
		for _, s := range sups {
			if int(s)&1 != r&1 {
				return true
			}
		}
	}
	for _, c := range rb.chains {
		for _, s := range c.roles {
			if s&1 != c.sup&1 {
				return true
			}
		}
	}
	return false
}

// InverseInteraction reports whether restrictions over roles can reach back
// along an edge: some role in roles, or a step of its automaton, has the
// inverse of a role in roles as a sub-role. Without that, labels only flow
// from a node to its successors.
func (rb *RBox) InverseInteraction(roles []Role) bool {
	seen := make(map[Role]bool, len(roles))
	var all []Role
	add := func(r Role) {
		if !seen[r] {
			seen[r] = true
			all = append(all, r)
		}
	}
	for _, r := range roles {
		add(r)
		for _, ts := range rb.Automaton(r).Trans {
			for _, tr := range ts {
				add(tr.Role)
			}
		}
	}
	for _, s := range all {
		for _, r := range all {
			if rb.IsSubRole(s.Inverse(), r) {
				return true
			}
		}
	}
	return false
}

// AsymmetricClash reports whether an e-edge and an f-edge from x to the
// same node relate the pair both ways under an asymmetric role S, that is
// e ⊑ S and f⁻ ⊑ S.
func (rb *RBox) AsymmetricClash(e, f Role) bool {
	if int(e) >= rb.n || int(f) >= rb.n {
		return false
	}
	for s, ok := range rb.asym {
		if ok && rb.supers[e][s] && rb.supers[f.Inverse()][s] {
			return true
		}
	}
	return false
}
