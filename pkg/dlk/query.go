package dlk

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cognicore/dlk/pkg/dlk/axiom"
	"github.com/cognicore/dlk/pkg/dlk/expr"
	"github.com/cognicore/dlk/pkg/dlk/internalerr"
	"github.com/cognicore/dlk/pkg/dlk/rbox"
	"github.com/cognicore/dlk/pkg/dlk/syncstate"
	"github.com/cognicore/dlk/pkg/dlk/taxonomy"
)

// ask runs one query. bad is the result of the operand checks; a non-nil
// bad error is returned before the knowledge base is touched. With
// classified set the taxonomy is brought up to date first.
func ask[T any](ctx context.Context, k *Kernel, op string, classified bool, bad error, fn func(ctx context.Context) (T, error)) (out T, err error) {
	defer k.finish(op, time.Now(), &err)
	if k.sync.State() == syncstate.Fail {
		return out, k.sync.Err()
	}
	if bad != nil {
		return out, bad
	}
	ctx, cancel, err := k.begin(ctx, classified)
	if err != nil {
		return out, err
	}
	defer cancel()
	return fn(ctx)
}

// known rejects handles that are not registered or not of sort want.
func (k *Kernel) known(want expr.Sort, hs ...expr.Handle) error {
	for _, h := range hs {
		if !k.reg.Valid(h) {
			return fmt.Errorf("handle %d: %w", h, internalerr.ErrUnknownEntity)
		}
		if err := k.reg.Check(h, want); err != nil {
			return err
		}
	}
	return nil
}

// IsConsistent reports whether the knowledge base has a model.
func (k *Kernel) IsConsistent(ctx context.Context) (bool, error) {
	return ask(ctx, k, "is_consistent", false, nil, func(ctx context.Context) (bool, error) {
		return k.reasoner.Consistent(ctx)
	})
}

// IsSatisfiable reports whether c can have an instance. In an
// inconsistent knowledge base no class is satisfiable.
func (k *Kernel) IsSatisfiable(ctx context.Context, c expr.Handle) (bool, error) {
	return ask(ctx, k, "is_satisfiable", false, k.known(expr.SortConcept, c), func(ctx context.Context) (bool, error) {
		return k.satisfiable(ctx, c)
	})
}

func (k *Kernel) satisfiable(ctx context.Context, c expr.Handle) (bool, error) {
	ok, err := k.reasoner.Satisfiable(ctx, c)
	if internalerr.KindOf(err) == internalerr.KindInconsistentKB {
		return false, nil
	}
	return ok, err
}

// IsSubsumedBy reports c ⊑ d.
func (k *Kernel) IsSubsumedBy(ctx context.Context, c, d expr.Handle) (bool, error) {
	return ask(ctx, k, "is_subsumed_by", false, k.known(expr.SortConcept, c, d), func(ctx context.Context) (bool, error) {
		return k.reasoner.IsSubsumedBy(ctx, c, d)
	})
}

// IsEquivalentTo reports c ≡ d.
func (k *Kernel) IsEquivalentTo(ctx context.Context, c, d expr.Handle) (bool, error) {
	return ask(ctx, k, "is_equivalent_to", false, k.known(expr.SortConcept, c, d), func(ctx context.Context) (bool, error) {
		ok, err := k.reasoner.IsSubsumedBy(ctx, c, d)
		if err != nil || !ok {
			return false, err
		}
		return k.reasoner.IsSubsumedBy(ctx, d, c)
	})
}

// IsDisjointWith reports whether c and d can share no instance.
func (k *Kernel) IsDisjointWith(ctx context.Context, c, d expr.Handle) (bool, error) {
	return ask(ctx, k, "is_disjoint_with", false, k.known(expr.SortConcept, c, d), func(ctx context.Context) (bool, error) {
		both, err := k.reg.And(c, d)
		if err != nil {
			return false, err
		}
		ok, err := k.reasoner.Satisfiable(ctx, both)
		return !ok, err
	})
}

// locate finds c in the taxonomy. A classified class, or a concept
// equivalent to a node, gets that node as Equivalent; any other concept
// gets the parents and children it would have.
func (k *Kernel) locate(ctx context.Context, c expr.Handle) (taxonomy.Placement, error) {
	if n, ok := k.tax.NodeOf(c); ok {
		return taxonomy.Placement{Parents: n.Parents, Children: n.Children, Equivalent: n.ID}, nil
	}
	sat, err := k.reasoner.Satisfiable(ctx, c)
	if err != nil {
		return taxonomy.Placement{}, err
	}
	if !sat {
		b := k.tax.Bottom()
		return taxonomy.Placement{Parents: b.Parents, Equivalent: b.ID}, nil
	}
	return taxonomy.NewClassifier(k.reasoner, nil, nil, k.tax).Place(ctx, c)
}

// closure returns ids and everything reachable from them through next,
// sorted.
func closure(ids []int, next func(int) []int) []int {
	seen := make(map[int]bool)
	for _, id := range ids {
		seen[id] = true
		for _, x := range next(id) {
			seen[x] = true
		}
	}
	out := make([]int, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

func sortedIDs(ids []int) []int {
	out := append([]int(nil), ids...)
	sort.Ints(out)
	return out
}

// SuperClasses returns the synonym sets strictly above c. Direct
// restricts the answer to the most specific ones.
func (k *Kernel) SuperClasses(ctx context.Context, c expr.Handle, direct bool) ([][]expr.Handle, error) {
	return ask(ctx, k, "super_classes", true, k.known(expr.SortConcept, c), func(ctx context.Context) ([][]expr.Handle, error) {
		pl, err := k.locate(ctx, c)
		if err != nil {
			return nil, err
		}
		if pl.Equivalent >= 0 {
			return k.tax.Supers(pl.Equivalent, direct), nil
		}
		if direct {
			return k.tax.Members(sortedIDs(pl.Parents)), nil
		}
		return k.tax.Members(closure(pl.Parents, k.tax.Ancestors)), nil
	})
}

// SubClasses returns the synonym sets strictly below c. The Bottom node
// is included.
func (k *Kernel) SubClasses(ctx context.Context, c expr.Handle, direct bool) ([][]expr.Handle, error) {
	return ask(ctx, k, "sub_classes", true, k.known(expr.SortConcept, c), func(ctx context.Context) ([][]expr.Handle, error) {
		pl, err := k.locate(ctx, c)
		if err != nil {
			return nil, err
		}
		if pl.Equivalent >= 0 {
			return k.tax.Subs(pl.Equivalent, direct), nil
		}
		if direct {
			return k.tax.Members(sortedIDs(pl.Children)), nil
		}
		return k.tax.Members(closure(pl.Children, k.tax.Descendants)), nil
	})
}

// EquivalentClasses returns the classified classes equivalent to c, c
// itself included when it is a class name.
func (k *Kernel) EquivalentClasses(ctx context.Context, c expr.Handle) ([]expr.Handle, error) {
	return ask(ctx, k, "equivalent_classes", true, k.known(expr.SortConcept, c), func(ctx context.Context) ([]expr.Handle, error) {
		pl, err := k.locate(ctx, c)
		if err != nil || pl.Equivalent < 0 {
			return nil, err
		}
		return append([]expr.Handle(nil), k.tax.Node(pl.Equivalent).Members...), nil
	})
}

// realized brings the realization up to date with the registered
// individuals.
func (k *Kernel) realized(ctx context.Context, inds ...expr.Handle) error {
	for _, a := range inds {
		if k.real != nil && !k.real.Contains(a) {
			k.real = nil
		}
	}
	return k.realize(ctx)
}

// Instances returns the individuals entailed to be instances of c. Direct
// keeps those for which c, or its node, is a most specific type.
func (k *Kernel) Instances(ctx context.Context, c expr.Handle, direct bool) ([]expr.Handle, error) {
	return ask(ctx, k, "instances", true, k.known(expr.SortConcept, c), func(ctx context.Context) ([]expr.Handle, error) {
		if err := k.realized(ctx, k.reg.Entities(expr.KindIndividual)...); err != nil {
			return nil, err
		}
		pl, err := k.locate(ctx, c)
		if err != nil {
			return nil, err
		}
		if pl.Equivalent >= 0 {
			return k.real.Instances(pl.Equivalent, direct), nil
		}
		return k.placedInstances(ctx, c, pl, direct)
	})
}

// placedInstances answers Instances for a concept without a node: the
// candidates are the common instances of its parents, each confirmed by
// an instance test.
func (k *Kernel) placedInstances(ctx context.Context, c expr.Handle, pl taxonomy.Placement, direct bool) ([]expr.Handle, error) {
	var cands []expr.Handle
	for i, p := range pl.Parents {
		in := k.real.Instances(p, false)
		if i == 0 {
			cands = in
			continue
		}
		cands = intersect(cands, in)
	}
	below := make(map[expr.Handle]bool)
	if direct {
		for _, ch := range pl.Children {
			for _, a := range k.real.Instances(ch, false) {
				below[a] = true
			}
		}
	}
	var out []expr.Handle
	for _, a := range cands {
		if below[a] {
			continue
		}
		ok, err := k.reasoner.IsInstance(ctx, a, c)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func intersect(a, b []expr.Handle) []expr.Handle {
	in := make(map[expr.Handle]bool, len(b))
	for _, h := range b {
		in[h] = true
	}
	var out []expr.Handle
	for _, h := range a {
		if in[h] {
			out = append(out, h)
		}
	}
	return out
}

// Types returns the synonym sets of the classes a belongs to. Direct
// keeps the most specific ones; otherwise owl:Thing is included.
func (k *Kernel) Types(ctx context.Context, a expr.Handle, direct bool) ([][]expr.Handle, error) {
	return ask(ctx, k, "types", true, k.known(expr.SortIndividual, a), func(ctx context.Context) ([][]expr.Handle, error) {
		if err := k.realized(ctx, a); err != nil {
			return nil, err
		}
		return k.real.Types(a, direct), nil
	})
}

// IsInstance reports whether a is entailed to be a c.
func (k *Kernel) IsInstance(ctx context.Context, a, c expr.Handle) (bool, error) {
	bad := k.known(expr.SortIndividual, a)
	if bad == nil {
		bad = k.known(expr.SortConcept, c)
	}
	return ask(ctx, k, "is_instance", false, bad, func(ctx context.Context) (bool, error) {
		return k.reasoner.IsInstance(ctx, a, c)
	})
}

// SameIndividuals returns the individuals entailed to denote the same
// object as a, a included.
func (k *Kernel) SameIndividuals(ctx context.Context, a expr.Handle) ([]expr.Handle, error) {
	return ask(ctx, k, "same_individuals", false, k.known(expr.SortIndividual, a), func(ctx context.Context) ([]expr.Handle, error) {
		out := []expr.Handle{a}
		for _, b := range k.reg.Entities(expr.KindIndividual) {
			if b == a {
				continue
			}
			one, err := k.reg.OneOf(b)
			if err != nil {
				return nil, err
			}
			ok, err := k.reasoner.IsInstance(ctx, a, one)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, b)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
		return out, nil
	})
}

// ObjectPropertyValues returns the named individuals entailed to be r
// fillers of a.
func (k *Kernel) ObjectPropertyValues(ctx context.Context, a, r expr.Handle) ([]expr.Handle, error) {
	bad := k.known(expr.SortIndividual, a)
	if bad == nil {
		bad = k.known(expr.SortObjectRole, r)
	}
	return ask(ctx, k, "object_property_values", false, bad, func(ctx context.Context) ([]expr.Handle, error) {
		var out []expr.Handle
		for _, b := range k.reg.Entities(expr.KindIndividual) {
			hv, err := k.reg.HasValue(r, b)
			if err != nil {
				return nil, err
			}
			ok, err := k.reasoner.IsInstance(ctx, a, hv)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, b)
			}
		}
		return out, nil
	})
}

// DataPropertyValues returns the literals asserted for a through u or one
// of its sub-properties.
func (k *Kernel) DataPropertyValues(ctx context.Context, a, u expr.Handle) ([]expr.Handle, error) {
	bad := k.known(expr.SortIndividual, a)
	if bad == nil {
		bad = k.known(expr.SortDataRole, u)
	}
	return ask(ctx, k, "data_property_values", false, bad, func(ctx context.Context) ([]expr.Handle, error) {
		du, err := k.rb.DataRole(u)
		if err != nil {
			return nil, err
		}
		seen := make(map[expr.Handle]bool)
		var out []expr.Handle
		for _, e := range k.axioms.Live() {
			if e.Axiom.Kind != axiom.DataPropertyAssertion || e.Axiom.Args[1] != a {
				continue
			}
			su, err := k.rb.DataRole(e.Axiom.Args[0])
			if err != nil {
				return nil, err
			}
			lit := e.Axiom.Args[2]
			if (su == du || k.rb.IsSubDataRole(su, du)) && !seen[lit] {
				seen[lit] = true
				out = append(out, lit)
			}
		}
		return out, nil
	})
}

// unsat asks whether the concept built by mk is unsatisfiable.
func (k *Kernel) unsat(ctx context.Context, mk func() (expr.Handle, error)) (bool, error) {
	c, err := mk()
	if err != nil {
		return false, err
	}
	ok, err := k.reasoner.Satisfiable(ctx, c)
	return !ok, err
}

// told answers a property characteristic from the role box.
func (k *Kernel) told(r expr.Handle, pred func(rbox.Role) bool) (bool, error) {
	role, err := k.rb.Role(r)
	if err != nil {
		return false, err
	}
	return pred(role), nil
}

// IsFunctional reports whether r can relate an object to at most one
// other, that is whether ≥2 r.⊤ is unsatisfiable.
func (k *Kernel) IsFunctional(ctx context.Context, r expr.Handle) (bool, error) {
	return ask(ctx, k, "is_functional", false, k.known(expr.SortObjectRole, r), func(ctx context.Context) (bool, error) {
		return k.unsat(ctx, func() (expr.Handle, error) { return k.reg.Min(2, r, expr.Top) })
	})
}

// IsInverseFunctional reports whether the inverse of r is functional.
func (k *Kernel) IsInverseFunctional(ctx context.Context, r expr.Handle) (bool, error) {
	return ask(ctx, k, "is_inverse_functional", false, k.known(expr.SortObjectRole, r), func(ctx context.Context) (bool, error) {
		return k.unsat(ctx, func() (expr.Handle, error) {
			inv, err := k.reg.Inverse(r)
			if err != nil {
				return expr.Invalid, err
			}
			return k.reg.Min(2, inv, expr.Top)
		})
	})
}

// IsReflexive reports whether every object is r related to itself.
func (k *Kernel) IsReflexive(ctx context.Context, r expr.Handle) (bool, error) {
	return ask(ctx, k, "is_reflexive", false, k.known(expr.SortObjectRole, r), func(ctx context.Context) (bool, error) {
		return k.unsat(ctx, func() (expr.Handle, error) {
			self, err := k.reg.HasSelf(r)
			if err != nil {
				return expr.Invalid, err
			}
			return k.reg.Not(self)
		})
	})
}

// IsIrreflexive reports whether no object is r related to itself.
func (k *Kernel) IsIrreflexive(ctx context.Context, r expr.Handle) (bool, error) {
	return ask(ctx, k, "is_irreflexive", false, k.known(expr.SortObjectRole, r), func(ctx context.Context) (bool, error) {
		return k.unsat(ctx, func() (expr.Handle, error) { return k.reg.HasSelf(r) })
	})
}

// IsSymmetric reports whether r is told symmetric, directly or by being
// a sub-role of its own inverse.
func (k *Kernel) IsSymmetric(ctx context.Context, r expr.Handle) (bool, error) {
	return ask(ctx, k, "is_symmetric", false, k.known(expr.SortObjectRole, r), func(ctx context.Context) (bool, error) {
		return k.told(r, k.rb.IsSymmetric)
	})
}

// IsAsymmetric reports whether r or one of its super-roles is told
// asymmetric.
func (k *Kernel) IsAsymmetric(ctx context.Context, r expr.Handle) (bool, error) {
	return ask(ctx, k, "is_asymmetric", false, k.known(expr.SortObjectRole, r), func(ctx context.Context) (bool, error) {
		return k.told(r, k.rb.Asymmetric)
	})
}

// IsTransitive reports whether r is told transitive.
func (k *Kernel) IsTransitive(ctx context.Context, r expr.Handle) (bool, error) {
	return ask(ctx, k, "is_transitive", false, k.known(expr.SortObjectRole, r), func(ctx context.Context) (bool, error) {
		return k.told(r, k.rb.IsTransitive)
	})
}

// IsFunctionalData reports whether u has at most one value per object.
func (k *Kernel) IsFunctionalData(ctx context.Context, u expr.Handle) (bool, error) {
	return ask(ctx, k, "is_functional_data", false, k.known(expr.SortDataRole, u), func(ctx context.Context) (bool, error) {
		return k.unsat(ctx, func() (expr.Handle, error) { return k.reg.DataMin(2, u, expr.TopDatatype) })
	})
}

// SubObjectProperties returns the synonym sets of object roles below r.
func (k *Kernel) SubObjectProperties(ctx context.Context, r expr.Handle, direct bool) ([][]expr.Handle, error) {
	return ask(ctx, k, "sub_object_properties", false, k.known(expr.SortObjectRole, r), func(context.Context) ([][]expr.Handle, error) {
		return k.rb.SubRoles(r, direct)
	})
}

// SuperObjectProperties returns the synonym sets of object roles above r.
func (k *Kernel) SuperObjectProperties(ctx context.Context, r expr.Handle, direct bool) ([][]expr.Handle, error) {
	return ask(ctx, k, "super_object_properties", false, k.known(expr.SortObjectRole, r), func(context.Context) ([][]expr.Handle, error) {
		return k.rb.SuperRoles(r, direct)
	})
}

// EquivalentObjectProperties returns the object roles equivalent to r.
func (k *Kernel) EquivalentObjectProperties(ctx context.Context, r expr.Handle) ([]expr.Handle, error) {
	return ask(ctx, k, "equivalent_object_properties", false, k.known(expr.SortObjectRole, r), func(context.Context) ([]expr.Handle, error) {
		return k.rb.EquivalentRoles(r)
	})
}

// SubDataProperties returns the synonym sets of data roles below u.
func (k *Kernel) SubDataProperties(ctx context.Context, u expr.Handle, direct bool) ([][]expr.Handle, error) {
	return ask(ctx, k, "sub_data_properties", false, k.known(expr.SortDataRole, u), func(context.Context) ([][]expr.Handle, error) {
		return k.rb.SubDataRoles(u, direct)
	})
}

// SuperDataProperties returns the synonym sets of data roles above u.
func (k *Kernel) SuperDataProperties(ctx context.Context, u expr.Handle, direct bool) ([][]expr.Handle, error) {
	return ask(ctx, k, "super_data_properties", false, k.known(expr.SortDataRole, u), func(context.Context) ([][]expr.Handle, error) {
		return k.rb.SuperDataRoles(u, direct)
	})
}

// EquivalentDataProperties returns the data roles equivalent to u.
func (k *Kernel) EquivalentDataProperties(ctx context.Context, u expr.Handle) ([]expr.Handle, error) {
	return ask(ctx, k, "equivalent_data_properties", false, k.known(expr.SortDataRole, u), func(context.Context) ([]expr.Handle, error) {
		return k.rb.EquivalentDataRoles(u)
	})
}
