// Package axiom defines the axiom variants accepted by the kernel and the
// store that tracks told axioms, batches and pending changes.
package axiom

import (
	"strings"

	"github.com/cognicore/dlk/pkg/dlk/expr"
)

// Kind tags an axiom variant.
type Kind uint8

const (
	KindInvalid Kind = iota

	Declaration

	// class axioms
	SubClassOf
	EquivalentClasses
	DisjointClasses
	DisjointUnion

	// object property axioms
	SubObjectPropertyOf
	EquivalentObjectProperties
	DisjointObjectProperties
	InverseObjectProperties
	ObjectPropertyDomain
	ObjectPropertyRange
	FunctionalObjectProperty
	InverseFunctionalObjectProperty
	ReflexiveObjectProperty
	IrreflexiveObjectProperty
	SymmetricObjectProperty
	AsymmetricObjectProperty
	TransitiveObjectProperty

	// data property axioms
	SubDataPropertyOf
	EquivalentDataProperties
	DisjointDataProperties
	DataPropertyDomain
	DataPropertyRange
	FunctionalDataProperty

	// assertions
	ClassAssertion
	ObjectPropertyAssertion
	NegativeObjectPropertyAssertion
	DataPropertyAssertion
	NegativeDataPropertyAssertion
	SameIndividual
	DifferentIndividuals

	kindCount
)

var kindNames = [...]string{
	KindInvalid:                     "Invalid",
	Declaration:                     "Declaration",
	SubClassOf:                      "SubClassOf",
	EquivalentClasses:               "EquivalentClasses",
	DisjointClasses:                 "DisjointClasses",
	DisjointUnion:                   "DisjointUnion",
	SubObjectPropertyOf:             "SubObjectPropertyOf",
	EquivalentObjectProperties:      "EquivalentObjectProperties",
	DisjointObjectProperties:        "DisjointObjectProperties",
	InverseObjectProperties:         "InverseObjectProperties",
	ObjectPropertyDomain:            "ObjectPropertyDomain",
	ObjectPropertyRange:             "ObjectPropertyRange",
	FunctionalObjectProperty:        "FunctionalObjectProperty",
	InverseFunctionalObjectProperty: "InverseFunctionalObjectProperty",
	ReflexiveObjectProperty:         "ReflexiveObjectProperty",
	IrreflexiveObjectProperty:       "IrreflexiveObjectProperty",
	SymmetricObjectProperty:         "SymmetricObjectProperty",
	AsymmetricObjectProperty:        "AsymmetricObjectProperty",
	TransitiveObjectProperty:        "TransitiveObjectProperty",
	SubDataPropertyOf:               "SubDataPropertyOf",
	EquivalentDataProperties:        "EquivalentDataProperties",
	DisjointDataProperties:          "DisjointDataProperties",
	DataPropertyDomain:              "DataPropertyDomain",
	DataPropertyRange:               "DataPropertyRange",
	FunctionalDataProperty:          "FunctionalDataProperty",
	ClassAssertion:                  "ClassAssertion",
	ObjectPropertyAssertion:         "ObjectPropertyAssertion",
	NegativeObjectPropertyAssertion: "NegativeObjectPropertyAssertion",
	DataPropertyAssertion:           "DataPropertyAssertion",
	NegativeDataPropertyAssertion:   "NegativeDataPropertyAssertion",
	SameIndividual:                  "SameIndividual",
	DifferentIndividuals:            "DifferentIndividuals",
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return "Invalid"
}

// ParseKind maps a kind name back to its Kind.
func ParseKind(name string) (Kind, bool) {
	for k := Declaration; k < kindCount; k++ {
		if kindNames[k] == name {
			return k, true
		}
	}
	return KindInvalid, false
}

// IsRBox reports whether the kind changes the role box.
func (k Kind) IsRBox() bool {
	switch k {
	case SubObjectPropertyOf, EquivalentObjectProperties, DisjointObjectProperties,
		InverseObjectProperties, SymmetricObjectProperty, AsymmetricObjectProperty,
		TransitiveObjectProperty, SubDataPropertyOf, EquivalentDataProperties,
		DisjointDataProperties:
		return true
	}
	return false
}

// IsABox reports whether the kind is an individual assertion.
func (k Kind) IsABox() bool { return k >= ClassAssertion && k < kindCount }

// Axiom is a told statement. Args are interpreted per Kind:
//
//	SubClassOf                 sub, sup
//	EquivalentClasses etc.     two or more operands
//	DisjointUnion              class, then two or more disjuncts
//	SubObjectPropertyOf        sub role or chain, super role
//	InverseObjectProperties    r, s
//	*Domain, *Range            property, concept or data range
//	characteristics            property
//	ClassAssertion             individual, concept
//	*PropertyAssertion         property, subject, object or literal
//	SameIndividual etc.        two or more individuals
//	Declaration                entity
type Axiom struct {
	Kind Kind
	Args []expr.Handle
}

func mk(k Kind, args ...expr.Handle) Axiom { return Axiom{Kind: k, Args: args} }

func Declare(entity expr.Handle) Axiom { return mk(Declaration, entity) }

func SubClass(sub, sup expr.Handle) Axiom { return mk(SubClassOf, sub, sup) }

func Equivalent(cs ...expr.Handle) Axiom { return mk(EquivalentClasses, cs...) }

func Disjoint(cs ...expr.Handle) Axiom { return mk(DisjointClasses, cs...) }

func DisjointUnionOf(class expr.Handle, cs ...expr.Handle) Axiom {
	return mk(DisjointUnion, append([]expr.Handle{class}, cs...)...)
}

func SubObjectProperty(sub, sup expr.Handle) Axiom { return mk(SubObjectPropertyOf, sub, sup) }

func EquivalentObjectProps(rs ...expr.Handle) Axiom {
	return mk(EquivalentObjectProperties, rs...)
}

func DisjointObjectProps(rs ...expr.Handle) Axiom { return mk(DisjointObjectProperties, rs...) }

func InverseProps(r, s expr.Handle) Axiom { return mk(InverseObjectProperties, r, s) }

func ObjectDomain(r, c expr.Handle) Axiom { return mk(ObjectPropertyDomain, r, c) }

func ObjectRange(r, c expr.Handle) Axiom { return mk(ObjectPropertyRange, r, c) }

func Functional(r expr.Handle) Axiom { return mk(FunctionalObjectProperty, r) }

func InverseFunctional(r expr.Handle) Axiom { return mk(InverseFunctionalObjectProperty, r) }

func Reflexive(r expr.Handle) Axiom { return mk(ReflexiveObjectProperty, r) }

func Irreflexive(r expr.Handle) Axiom { return mk(IrreflexiveObjectProperty, r) }

func Symmetric(r expr.Handle) Axiom { return mk(SymmetricObjectProperty, r) }

func Asymmetric(r expr.Handle) Axiom { return mk(AsymmetricObjectProperty, r) }

func Transitive(r expr.Handle) Axiom { return mk(TransitiveObjectProperty, r) }

func SubDataProperty(sub, sup expr.Handle) Axiom { return mk(SubDataPropertyOf, sub, sup) }

func EquivalentDataProps(us ...expr.Handle) Axiom { return mk(EquivalentDataProperties, us...) }

func DisjointDataProps(us ...expr.Handle) Axiom { return mk(DisjointDataProperties, us...) }

func DataDomain(u, c expr.Handle) Axiom { return mk(DataPropertyDomain, u, c) }

func DataRange(u, d expr.Handle) Axiom { return mk(DataPropertyRange, u, d) }

func FunctionalData(u expr.Handle) Axiom { return mk(FunctionalDataProperty, u) }

func Instance(ind, c expr.Handle) Axiom { return mk(ClassAssertion, ind, c) }

func Related(r, a, b expr.Handle) Axiom { return mk(ObjectPropertyAssertion, r, a, b) }

func NotRelated(r, a, b expr.Handle) Axiom {
	return mk(NegativeObjectPropertyAssertion, r, a, b)
}

func Value(u, a, lit expr.Handle) Axiom { return mk(DataPropertyAssertion, u, a, lit) }

func NotValue(u, a, lit expr.Handle) Axiom { return mk(NegativeDataPropertyAssertion, u, a, lit) }

func Same(inds ...expr.Handle) Axiom { return mk(SameIndividual, inds...) }

func Different(inds ...expr.Handle) Axiom { return mk(DifferentIndividuals, inds...) }

// String renders the axiom in functional syntax.
func (a Axiom) String(reg *expr.Registry) string {
	var b strings.Builder
	b.WriteString(a.Kind.String())
	b.WriteByte('(')
	for i, h := range a.Args {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(reg.String(h))
	}
	b.WriteByte(')')
	return b.String()
}
