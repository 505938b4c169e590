package datatype

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/cognicore/dlk/pkg/dlk/internalerr"
)

type lexKind uint8

const (
	lexString lexKind = iota
	lexInteger
	lexDecimal
	lexDouble
	lexBool
)

type builtin struct {
	lexical lexKind
	set     Set
}

func intRange(lo, hi *big.Rat) Set {
	s := Empty()
	s.ints = ratSet{discrete: true, ivs: []interval{{lo: bound{v: lo}, hi: bound{v: hi}}}}.normalize()
	return s
}

func decimals() Set {
	s := Empty()
	s.ints = fullRats(true, false)
	s.fracs = fullRats(false, true)
	return s
}

func doubles() Set {
	s := Empty()
	s.doubles = fullRats(false, false)
	return s
}

func strs() Set {
	s := Empty()
	s.strs = fullStrings()
	return s
}

func bools() Set {
	s := Empty()
	s.bools = boolFalse | boolTrue
	return s
}

func rat(n int64) *big.Rat { return big.NewRat(n, 1) }

var builtins = map[string]builtin{
	"rdfs:Literal":           {lexString, Full()},
	"xsd:string":             {lexString, strs()},
	"xsd:integer":            {lexInteger, intRange(nil, nil)},
	"xsd:int":                {lexInteger, intRange(rat(-1<<31), rat(1<<31-1))},
	"xsd:long":               {lexInteger, intRange(rat(-1<<63), rat(1<<63-1))},
	"xsd:nonNegativeInteger": {lexInteger, intRange(rat(0), nil)},
	"xsd:positiveInteger":    {lexInteger, intRange(rat(1), nil)},
	"xsd:nonPositiveInteger": {lexInteger, intRange(nil, rat(0))},
	"xsd:negativeInteger":    {lexInteger, intRange(nil, rat(-1))},
	"xsd:decimal":            {lexDecimal, decimals()},
	"owl:real":               {lexDecimal, decimals()},
	"owl:rational":           {lexDecimal, decimals()},
	"xsd:double":             {lexDouble, doubles()},
	"xsd:float":              {lexDouble, doubles()},
	"xsd:boolean":            {lexBool, bools()},
}

// Builtin reports whether iri names a datatype with a known value space.
func Builtin(iri string) bool {
	_, ok := builtins[iri]
	return ok
}

// Builtins lists the known datatype IRIs in sorted order.
func Builtins() []string {
	out := make([]string, 0, len(builtins))
	for iri := range builtins {
		out = append(out, iri)
	}
	sort.Strings(out)
	return out
}

// Catalog is the configured subset of supported datatypes.
type Catalog struct {
	allowed map[string]struct{}
}

// NewCatalog builds a catalog. Every IRI must be a built-in datatype.
func NewCatalog(iris []string) (*Catalog, error) {
	c := &Catalog{allowed: make(map[string]struct{}, len(iris)+1)}
	c.allowed["rdfs:Literal"] = struct{}{}
	for _, iri := range iris {
		if !Builtin(iri) {
			return nil, fmt.Errorf("supported datatype %s: %w", iri, internalerr.ErrInvalidConfig)
		}
		c.allowed[iri] = struct{}{}
	}
	return c, nil
}

// Supports reports whether iri may be used in axioms.
func (c *Catalog) Supports(iri string) bool {
	_, ok := c.allowed[iri]
	return ok
}

// ValueSpace returns the value set of a supported datatype.
func (c *Catalog) ValueSpace(iri string) (Set, error) {
	if !c.Supports(iri) {
		return Set{}, fmt.Errorf("datatype %s: %w", iri, internalerr.ErrUnsupported)
	}
	return builtins[iri].set, nil
}

// Facet names understood by Restrict.
const (
	FacetMinInclusive = "xsd:minInclusive"
	FacetMinExclusive = "xsd:minExclusive"
	FacetMaxInclusive = "xsd:maxInclusive"
	FacetMaxExclusive = "xsd:maxExclusive"
	FacetLength       = "xsd:length"
	FacetMinLength    = "xsd:minLength"
	FacetMaxLength    = "xsd:maxLength"
)

// Restrict applies one constraining facet to a value set.
func Restrict(base Set, facet string, v Value) (Set, error) {
	switch facet {
	case FacetMinInclusive, FacetMinExclusive, FacetMaxInclusive, FacetMaxExclusive:
		if !v.IsNumeric() {
			return Set{}, fmt.Errorf("facet %s with %s value: %w", facet, v.Family, internalerr.ErrUnsupported)
		}
		if !base.hasNumeric() {
			return Set{}, fmt.Errorf("facet %s on a non-numeric datatype: %w", facet, internalerr.ErrUnsupported)
		}
		var lo, hi bound
		switch facet {
		case FacetMinInclusive:
			lo = ratBound(v.Num, false)
		case FacetMinExclusive:
			lo = ratBound(v.Num, true)
		case FacetMaxInclusive:
			hi = ratBound(v.Num, false)
		case FacetMaxExclusive:
			hi = ratBound(v.Num, true)
		}
		return base.Intersect(numericRange(lo, hi)), nil

	case FacetLength, FacetMinLength, FacetMaxLength:
		if v.Family != FamilyInt || v.Num.Sign() < 0 {
			return Set{}, fmt.Errorf("facet %s needs a non-negative integer: %w", facet, internalerr.ErrUnsupported)
		}
		if !base.hasStrings() {
			return Set{}, fmt.Errorf("facet %s on a non-string datatype: %w", facet, internalerr.ErrUnsupported)
		}
		var iv interval
		switch facet {
		case FacetLength:
			iv = interval{lo: bound{v: v.Num}, hi: bound{v: v.Num}}
		case FacetMinLength:
			iv = interval{lo: bound{v: v.Num}}
		case FacetMaxLength:
			iv = interval{hi: bound{v: v.Num}}
		}
		lengths := ratSet{discrete: true, ivs: []interval{iv}}.normalize()
		restricted := Empty()
		restricted.strs = lengthStrings(lengths)
		return base.Intersect(restricted), nil
	}
	return Set{}, fmt.Errorf("facet %s: %w", facet, internalerr.ErrUnsupported)
}
