package expr

import (
	"fmt"
	"sort"

	"github.com/cognicore/dlk/pkg/dlk/internalerr"
)

func (r *Registry) checkAll(hs []Handle, want Sort) error {
	for _, h := range hs {
		if err := r.check(h, want); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) checkObjectRole(h Handle) error { return r.check(h, SortObjectRole) }

func (r *Registry) checkDatatype(h Handle) error {
	if err := r.check(h, SortDataRange); err != nil {
		return err
	}
	if r.nodes[h].op != OpDatatype {
		return fmt.Errorf("handle %d is not a named datatype: %w", h, internalerr.ErrTypeMismatch)
	}
	return nil
}

func checkCard(n int) error {
	if n < 0 {
		return fmt.Errorf("cardinality %d: %w", n, internalerr.ErrArity)
	}
	return nil
}

// setOperands flattens nested op nodes, sorts and removes duplicates.
func (r *Registry) setOperands(op Op, hs []Handle) []Handle {
	flat := make([]Handle, 0, len(hs))
	for _, h := range hs {
		if r.nodes[h].op == op {
			flat = append(flat, r.nodes[h].args...)
			continue
		}
		flat = append(flat, h)
	}
	sort.Slice(flat, func(i, j int) bool { return flat[i] < flat[j] })
	out := flat[:0]
	for i, h := range flat {
		if i > 0 && flat[i-1] == h {
			continue
		}
		out = append(out, h)
	}
	return out
}

func (r *Registry) nary(op Op, s Sort, operand Sort, hs []Handle) (Handle, error) {
	if len(hs) == 0 {
		return Invalid, fmt.Errorf("%s with no operands: %w", op, internalerr.ErrArity)
	}
	if err := r.checkAll(hs, operand); err != nil {
		return Invalid, fmt.Errorf("%s: %w", op, err)
	}
	args := r.setOperands(op, hs)
	if len(args) == 1 && op != OpOneOf && op != OpDataOneOf {
		return args[0], nil
	}
	return r.hashCons(node{op: op, sort: s, args: args}), nil
}

// Not builds the complement of a concept.
func (r *Registry) Not(c Handle) (Handle, error) {
	if err := r.check(c, SortConcept); err != nil {
		return Invalid, fmt.Errorf("not: %w", err)
	}
	if r.nodes[c].op == OpNot {
		return r.nodes[c].args[0], nil
	}
	return r.hashCons(node{op: OpNot, sort: SortConcept, args: []Handle{c}}), nil
}

// And builds a conjunction. Operand order does not matter.
func (r *Registry) And(cs ...Handle) (Handle, error) {
	return r.nary(OpAnd, SortConcept, SortConcept, cs)
}

// Or builds a disjunction.
func (r *Registry) Or(cs ...Handle) (Handle, error) {
	return r.nary(OpOr, SortConcept, SortConcept, cs)
}

// OneOf builds a nominal enumeration.
func (r *Registry) OneOf(inds ...Handle) (Handle, error) {
	return r.nary(OpOneOf, SortConcept, SortIndividual, inds)
}

func (r *Registry) roleConcept(op Op, role, c Handle) (Handle, error) {
	if err := r.checkObjectRole(role); err != nil {
		return Invalid, fmt.Errorf("%s role: %w", op, err)
	}
	if err := r.check(c, SortConcept); err != nil {
		return Invalid, fmt.Errorf("%s filler: %w", op, err)
	}
	return r.hashCons(node{op: op, sort: SortConcept, args: []Handle{role, c}}), nil
}

// Some builds an existential restriction.
func (r *Registry) Some(role, c Handle) (Handle, error) { return r.roleConcept(OpSome, role, c) }

// All builds a universal restriction.
func (r *Registry) All(role, c Handle) (Handle, error) { return r.roleConcept(OpAll, role, c) }

func (r *Registry) card(op Op, n int, role, c Handle) (Handle, error) {
	if err := checkCard(n); err != nil {
		return Invalid, fmt.Errorf("%s: %w", op, err)
	}
	if err := r.checkObjectRole(role); err != nil {
		return Invalid, fmt.Errorf("%s role: %w", op, err)
	}
	if err := r.check(c, SortConcept); err != nil {
		return Invalid, fmt.Errorf("%s filler: %w", op, err)
	}
	return r.hashCons(node{op: op, sort: SortConcept, n: n, args: []Handle{role, c}}), nil
}

// Min builds an at-least restriction.
func (r *Registry) Min(n int, role, c Handle) (Handle, error) { return r.card(OpMin, n, role, c) }

// Max builds an at-most restriction.
func (r *Registry) Max(n int, role, c Handle) (Handle, error) { return r.card(OpMax, n, role, c) }

// Exact builds an exact cardinality restriction.
func (r *Registry) Exact(n int, role, c Handle) (Handle, error) {
	return r.card(OpExact, n, role, c)
}

// HasValue builds the restriction ∃role.{ind}.
func (r *Registry) HasValue(role, ind Handle) (Handle, error) {
	if err := r.checkObjectRole(role); err != nil {
		return Invalid, fmt.Errorf("has-value role: %w", err)
	}
	if err := r.check(ind, SortIndividual); err != nil {
		return Invalid, fmt.Errorf("has-value individual: %w", err)
	}
	return r.hashCons(node{op: OpHasValue, sort: SortConcept, args: []Handle{role, ind}}), nil
}

// HasSelf builds the local reflexivity restriction ∃role.Self.
func (r *Registry) HasSelf(role Handle) (Handle, error) {
	if err := r.checkObjectRole(role); err != nil {
		return Invalid, fmt.Errorf("has-self: %w", err)
	}
	return r.hashCons(node{op: OpHasSelf, sort: SortConcept, args: []Handle{role}}), nil
}

func (r *Registry) dataRestriction(op Op, n int, u, d Handle) (Handle, error) {
	if err := checkCard(n); err != nil {
		return Invalid, fmt.Errorf("%s: %w", op, err)
	}
	if err := r.check(u, SortDataRole); err != nil {
		return Invalid, fmt.Errorf("%s role: %w", op, err)
	}
	if err := r.check(d, SortDataRange); err != nil {
		return Invalid, fmt.Errorf("%s range: %w", op, err)
	}
	return r.hashCons(node{op: op, sort: SortConcept, n: n, args: []Handle{u, d}}), nil
}

// DataSome builds ∃u.d.
func (r *Registry) DataSome(u, d Handle) (Handle, error) {
	return r.dataRestriction(OpDataSome, 0, u, d)
}

// DataAll builds ∀u.d.
func (r *Registry) DataAll(u, d Handle) (Handle, error) {
	return r.dataRestriction(OpDataAll, 0, u, d)
}

// DataMin builds ≥n u.d.
func (r *Registry) DataMin(n int, u, d Handle) (Handle, error) {
	return r.dataRestriction(OpDataMin, n, u, d)
}

// DataMax builds ≤n u.d.
func (r *Registry) DataMax(n int, u, d Handle) (Handle, error) {
	return r.dataRestriction(OpDataMax, n, u, d)
}

// DataExact builds =n u.d.
func (r *Registry) DataExact(n int, u, d Handle) (Handle, error) {
	return r.dataRestriction(OpDataExact, n, u, d)
}

// DataHasValue builds ∃u.{lit}.
func (r *Registry) DataHasValue(u, lit Handle) (Handle, error) {
	if err := r.check(u, SortDataRole); err != nil {
		return Invalid, fmt.Errorf("data-has-value role: %w", err)
	}
	if err := r.check(lit, SortLiteral); err != nil {
		return Invalid, fmt.Errorf("data-has-value literal: %w", err)
	}
	return r.hashCons(node{op: OpDataHasValue, sort: SortConcept, args: []Handle{u, lit}}), nil
}

// Inverse builds the inverse of an object role. Double inverses cancel.
func (r *Registry) Inverse(role Handle) (Handle, error) {
	if err := r.checkObjectRole(role); err != nil {
		return Invalid, fmt.Errorf("inverse: %w", err)
	}
	switch r.nodes[role].op {
	case OpInverse:
		return r.nodes[role].args[0], nil
	case OpTopObjectRole, OpBottomObjectRole:
		return role, nil
	}
	return r.hashCons(node{op: OpInverse, sort: SortObjectRole, args: []Handle{role}}), nil
}

// Chain builds a role composition r1 ∘ ... ∘ rn. A single role is returned as is.
func (r *Registry) Chain(roles ...Handle) (Handle, error) {
	if len(roles) == 0 {
		return Invalid, fmt.Errorf("chain with no roles: %w", internalerr.ErrArity)
	}
	if err := r.checkAll(roles, SortObjectRole); err != nil {
		return Invalid, fmt.Errorf("chain: %w", err)
	}
	if len(roles) == 1 {
		return roles[0], nil
	}
	args := append([]Handle(nil), roles...)
	return r.hashCons(node{op: OpChain, sort: SortRoleChain, args: args}), nil
}

// Literal builds a typed literal. The lexical form is not checked here.
func (r *Registry) Literal(lexical string, datatype Handle) (Handle, error) {
	if err := r.checkDatatype(datatype); err != nil {
		return Invalid, fmt.Errorf("literal %q: %w", lexical, err)
	}
	return r.hashCons(node{op: OpLiteral, sort: SortLiteral, key: lexical, args: []Handle{datatype}}), nil
}

// DataNot builds the complement of a data range.
func (r *Registry) DataNot(d Handle) (Handle, error) {
	if err := r.check(d, SortDataRange); err != nil {
		return Invalid, fmt.Errorf("data-not: %w", err)
	}
	if r.nodes[d].op == OpDataNot {
		return r.nodes[d].args[0], nil
	}
	return r.hashCons(node{op: OpDataNot, sort: SortDataRange, args: []Handle{d}}), nil
}

// DataOneOf builds an enumeration of literals.
func (r *Registry) DataOneOf(lits ...Handle) (Handle, error) {
	return r.nary(OpDataOneOf, SortDataRange, SortLiteral, lits)
}

// DataAnd builds an intersection of data ranges.
func (r *Registry) DataAnd(ds ...Handle) (Handle, error) {
	return r.nary(OpDataAnd, SortDataRange, SortDataRange, ds)
}

// DataOr builds a union of data ranges.
func (r *Registry) DataOr(ds ...Handle) (Handle, error) {
	return r.nary(OpDataOr, SortDataRange, SortDataRange, ds)
}

// Facet builds a constraining facet such as xsd:minInclusive 5.
func (r *Registry) Facet(name string, lit Handle) (Handle, error) {
	if name == "" {
		return Invalid, fmt.Errorf("facet with empty name: %w", internalerr.ErrUsage)
	}
	if err := r.check(lit, SortLiteral); err != nil {
		return Invalid, fmt.Errorf("facet %s: %w", name, err)
	}
	return r.hashCons(node{op: OpFacet, sort: SortFacet, key: name, args: []Handle{lit}}), nil
}

// Restriction builds a facet-restricted datatype.
func (r *Registry) Restriction(datatype Handle, facets ...Handle) (Handle, error) {
	if err := r.checkDatatype(datatype); err != nil {
		return Invalid, fmt.Errorf("restriction: %w", err)
	}
	if len(facets) == 0 {
		return Invalid, fmt.Errorf("restriction with no facets: %w", internalerr.ErrArity)
	}
	if err := r.checkAll(facets, SortFacet); err != nil {
		return Invalid, fmt.Errorf("restriction: %w", err)
	}
	fs := r.setOperands(OpInvalid, facets)
	args := append([]Handle{datatype}, fs...)
	return r.hashCons(node{op: OpRestriction, sort: SortDataRange, args: args}), nil
}
