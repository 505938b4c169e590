package tbox

import (
	"fmt"

	"github.com/cognicore/dlk/pkg/dlk/axiom"
	"github.com/cognicore/dlk/pkg/dlk/expr"
	"github.com/cognicore/dlk/pkg/dlk/internalerr"
)

type effectKind uint8

const (
	effSub        effectKind = iota + 1 // a ⊑ b
	effEquiv                            // a ≡ b
	effDomain                           // role a has domain b
	effRange                            // role a has range b
	effDataDomain                       // data role a has domain b
	effDataRange                        // data role a has range b
	effType                             // individual a is a b
	effEdge                             // (a, b) is in role c
	effDiff                             // a ≠ b
	effIndividual                       // a is a known individual
)

// effect is one contribution of an axiom to the normalised knowledge base.
// Effects are reference counted so equal contributions of different axioms
// survive the retraction of one of them.
type effect struct {
	kind    effectKind
	a, b, c expr.Handle
}

func isSentinelRole(reg *expr.Registry, h expr.Handle) bool {
	switch reg.Op(h) {
	case expr.OpTopObjectRole, expr.OpBottomObjectRole, expr.OpTopDataRole, expr.OpBottomDataRole:
		return true
	}
	return false
}

func isTopRole(reg *expr.Registry, h expr.Handle) bool {
	op := reg.Op(h)
	return op == expr.OpTopObjectRole || op == expr.OpTopDataRole
}

// effectsOf translates a validated axiom. RBox-only axioms have no effects.
func effectsOf(reg *expr.Registry, ax axiom.Axiom) ([]effect, error) {
	args := ax.Args
	var (
		out   []effect
		first error
	)
	keep := func(h expr.Handle, err error) expr.Handle {
		if err != nil && first == nil {
			first = err
		}
		return h
	}
	add := func(k effectKind, a, b, c expr.Handle) {
		out = append(out, effect{kind: k, a: a, b: b, c: c})
	}
	disjointPairs := func(cs []expr.Handle) {
		for i := range cs {
			for j := i + 1; j < len(cs); j++ {
				add(effSub, keep(reg.And(cs[i], cs[j])), expr.Bottom, 0)
			}
		}
	}
	unsupportedRole := func(h expr.Handle) error {
		return fmt.Errorf("%s over %s: %w", ax.Kind, reg.Key(h), internalerr.ErrUnsupported)
	}

	switch ax.Kind {
	case axiom.Declaration:
		if reg.Op(args[0]) == expr.OpIndividual {
			add(effIndividual, args[0], 0, 0)
		}

	case axiom.SubClassOf:
		add(effSub, args[0], args[1], 0)

	case axiom.EquivalentClasses:
		for _, c := range args[1:] {
			add(effEquiv, args[0], c, 0)
		}

	case axiom.DisjointClasses:
		disjointPairs(args)

	case axiom.DisjointUnion:
		add(effEquiv, args[0], keep(reg.Or(args[1:]...)), 0)
		disjointPairs(args[1:])

	case axiom.ObjectPropertyDomain, axiom.ObjectPropertyRange:
		switch reg.Op(args[0]) {
		case expr.OpBottomObjectRole:
		case expr.OpTopObjectRole:
			add(effSub, expr.Top, args[1], 0)
		default:
			k := effDomain
			if ax.Kind == axiom.ObjectPropertyRange {
				k = effRange
			}
			add(k, args[0], args[1], 0)
		}

	case axiom.DataPropertyDomain:
		switch reg.Op(args[0]) {
		case expr.OpBottomDataRole:
		case expr.OpTopDataRole:
			add(effSub, expr.Top, args[1], 0)
		default:
			add(effDataDomain, args[0], args[1], 0)
		}

	case axiom.DataPropertyRange:
		if isSentinelRole(reg, args[0]) {
			return nil, unsupportedRole(args[0])
		}
		add(effDataRange, args[0], args[1], 0)

	case axiom.FunctionalObjectProperty, axiom.InverseFunctionalObjectProperty,
		axiom.ReflexiveObjectProperty, axiom.IrreflexiveObjectProperty:
		r := args[0]
		if isSentinelRole(reg, r) {
			return nil, unsupportedRole(r)
		}
		switch ax.Kind {
		case axiom.FunctionalObjectProperty:
			add(effSub, expr.Top, keep(reg.Max(1, r, expr.Top)), 0)
		case axiom.InverseFunctionalObjectProperty:
			add(effSub, expr.Top, keep(reg.Max(1, keep(reg.Inverse(r)), expr.Top)), 0)
		case axiom.ReflexiveObjectProperty:
			add(effSub, expr.Top, keep(reg.HasSelf(r)), 0)
		default:
			add(effSub, keep(reg.HasSelf(r)), expr.Bottom, 0)
		}

	case axiom.SymmetricObjectProperty, axiom.AsymmetricObjectProperty, axiom.TransitiveObjectProperty:
		if isSentinelRole(reg, args[0]) {
			return nil, unsupportedRole(args[0])
		}

	case axiom.FunctionalDataProperty:
		if isSentinelRole(reg, args[0]) {
			return nil, unsupportedRole(args[0])
		}
		add(effSub, expr.Top, keep(reg.DataMax(1, args[0], expr.TopDatatype)), 0)

	case axiom.ClassAssertion:
		add(effType, args[0], args[1], 0)

	case axiom.ObjectPropertyAssertion:
		r, a, b := args[0], args[1], args[2]
		add(effIndividual, a, 0, 0)
		add(effIndividual, b, 0, 0)
		switch reg.Op(r) {
		case expr.OpTopObjectRole:
		case expr.OpBottomObjectRole:
			add(effType, a, expr.Bottom, 0)
		default:
			add(effEdge, a, b, r)
		}

	case axiom.NegativeObjectPropertyAssertion:
		r, a, b := args[0], args[1], args[2]
		add(effIndividual, b, 0, 0)
		switch reg.Op(r) {
		case expr.OpBottomObjectRole:
			add(effIndividual, a, 0, 0)
		case expr.OpTopObjectRole:
			add(effType, a, expr.Bottom, 0)
		default:
			not := keep(reg.Not(keep(reg.OneOf(b))))
			add(effType, a, keep(reg.All(r, not)), 0)
		}

	case axiom.DataPropertyAssertion, axiom.NegativeDataPropertyAssertion:
		u, a, lit := args[0], args[1], args[2]
		if isSentinelRole(reg, u) {
			if isTopRole(reg, u) == (ax.Kind == axiom.DataPropertyAssertion) {
				add(effIndividual, a, 0, 0)
			} else {
				add(effType, a, expr.Bottom, 0)
			}
			break
		}
		c := keep(reg.DataHasValue(u, lit))
		if ax.Kind == axiom.NegativeDataPropertyAssertion {
			c = keep(reg.Not(c))
		}
		add(effType, a, c, 0)

	case axiom.SameIndividual:
		add(effIndividual, args[0], 0, 0)
		nom := keep(reg.OneOf(args[0]))
		for _, b := range args[1:] {
			add(effType, b, nom, 0)
		}

	case axiom.DifferentIndividuals:
		for i := range args {
			add(effIndividual, args[i], 0, 0)
			for j := i + 1; j < len(args); j++ {
				a, b := args[i], args[j]
				if b < a {
					a, b = b, a
				}
				add(effDiff, a, b, 0)
			}
		}
	}
	if first != nil {
		return nil, fmt.Errorf("%s: %w", ax.Kind, first)
	}
	return out, nil
}

// Check reports whether the concept part of an axiom can be normalised.
func Check(reg *expr.Registry, ax axiom.Axiom) error {
	_, err := effectsOf(reg, ax)
	return err
}
