package axiom

import (
	"fmt"

	"github.com/cognicore/dlk/pkg/dlk/datatype"
	"github.com/cognicore/dlk/pkg/dlk/expr"
	"github.com/cognicore/dlk/pkg/dlk/internalerr"
)

// shape lists the operand sorts of a kind. A trailing variadic sort repeats
// and requires at least minVar operands.
type shape struct {
	fixed  []expr.Sort
	varS   expr.Sort
	minVar int
}

var shapes = map[Kind]shape{
	SubClassOf:                      {fixed: []expr.Sort{expr.SortConcept, expr.SortConcept}},
	EquivalentClasses:               {varS: expr.SortConcept, minVar: 2},
	DisjointClasses:                 {varS: expr.SortConcept, minVar: 2},
	DisjointUnion:                   {fixed: []expr.Sort{expr.SortConcept}, varS: expr.SortConcept, minVar: 2},
	EquivalentObjectProperties:      {varS: expr.SortObjectRole, minVar: 2},
	DisjointObjectProperties:        {varS: expr.SortObjectRole, minVar: 2},
	InverseObjectProperties:         {fixed: []expr.Sort{expr.SortObjectRole, expr.SortObjectRole}},
	ObjectPropertyDomain:            {fixed: []expr.Sort{expr.SortObjectRole, expr.SortConcept}},
	ObjectPropertyRange:             {fixed: []expr.Sort{expr.SortObjectRole, expr.SortConcept}},
	FunctionalObjectProperty:        {fixed: []expr.Sort{expr.SortObjectRole}},
	InverseFunctionalObjectProperty: {fixed: []expr.Sort{expr.SortObjectRole}},
	ReflexiveObjectProperty:         {fixed: []expr.Sort{expr.SortObjectRole}},
	IrreflexiveObjectProperty:       {fixed: []expr.Sort{expr.SortObjectRole}},
	SymmetricObjectProperty:         {fixed: []expr.Sort{expr.SortObjectRole}},
	AsymmetricObjectProperty:        {fixed: []expr.Sort{expr.SortObjectRole}},
	TransitiveObjectProperty:        {fixed: []expr.Sort{expr.SortObjectRole}},
	SubDataPropertyOf:               {fixed: []expr.Sort{expr.SortDataRole, expr.SortDataRole}},
	EquivalentDataProperties:        {varS: expr.SortDataRole, minVar: 2},
	DisjointDataProperties:          {varS: expr.SortDataRole, minVar: 2},
	DataPropertyDomain:              {fixed: []expr.Sort{expr.SortDataRole, expr.SortConcept}},
	DataPropertyRange:               {fixed: []expr.Sort{expr.SortDataRole, expr.SortDataRange}},
	FunctionalDataProperty:          {fixed: []expr.Sort{expr.SortDataRole}},
	ClassAssertion:                  {fixed: []expr.Sort{expr.SortIndividual, expr.SortConcept}},
	ObjectPropertyAssertion:         {fixed: []expr.Sort{expr.SortObjectRole, expr.SortIndividual, expr.SortIndividual}},
	NegativeObjectPropertyAssertion: {fixed: []expr.Sort{expr.SortObjectRole, expr.SortIndividual, expr.SortIndividual}},
	DataPropertyAssertion:           {fixed: []expr.Sort{expr.SortDataRole, expr.SortIndividual, expr.SortLiteral}},
	NegativeDataPropertyAssertion:   {fixed: []expr.Sort{expr.SortDataRole, expr.SortIndividual, expr.SortLiteral}},
	SameIndividual:                  {varS: expr.SortIndividual, minVar: 2},
	DifferentIndividuals:            {varS: expr.SortIndividual, minVar: 2},
}

// Validator checks axioms before they reach the store.
type Validator struct {
	reg *expr.Registry
	dt  *datatype.Compiler
}

// NewValidator returns a validator over a registry and datatype compiler.
func NewValidator(reg *expr.Registry, dt *datatype.Compiler) *Validator {
	return &Validator{reg: reg, dt: dt}
}

// Validate reports why an axiom cannot be told. Sort errors are usage
// errors; constructs the reasoner cannot handle are ErrUnsupported.
func (v *Validator) Validate(ax Axiom) error {
	for _, h := range ax.Args {
		if !v.reg.Valid(h) {
			return fmt.Errorf("%s operand %d: %w", ax.Kind, h, internalerr.ErrUnknownEntity)
		}
	}
	if err := v.checkShape(ax); err != nil {
		return err
	}
	for _, h := range ax.Args {
		if err := v.checkExpr(h); err != nil {
			return fmt.Errorf("%s: %w", ax.Kind, err)
		}
	}
	return nil
}

func (v *Validator) checkShape(ax Axiom) error {
	switch ax.Kind {
	case Declaration:
		if len(ax.Args) != 1 || !v.reg.IsNamed(ax.Args[0]) {
			return fmt.Errorf("declaration needs one named entity: %w", internalerr.ErrTypeMismatch)
		}
		return nil
	case SubObjectPropertyOf:
		if len(ax.Args) != 2 {
			return fmt.Errorf("%s needs 2 operands, got %d: %w", ax.Kind, len(ax.Args), internalerr.ErrArity)
		}
		if s := v.reg.Sort(ax.Args[0]); s != expr.SortObjectRole && s != expr.SortRoleChain {
			return fmt.Errorf("%s sub is a %s: %w", ax.Kind, s, internalerr.ErrTypeMismatch)
		}
		return v.reg.Check(ax.Args[1], expr.SortObjectRole)
	}

	sh, ok := shapes[ax.Kind]
	if !ok {
		return fmt.Errorf("axiom kind %d: %w", ax.Kind, internalerr.ErrUsage)
	}
	n := len(ax.Args)
	if sh.varS == expr.SortInvalid && n != len(sh.fixed) {
		return fmt.Errorf("%s needs %d operands, got %d: %w", ax.Kind, len(sh.fixed), n, internalerr.ErrArity)
	}
	if n < len(sh.fixed) {
		return fmt.Errorf("%s needs at least %d operands, got %d: %w", ax.Kind, len(sh.fixed), n, internalerr.ErrArity)
	}
	if sh.varS != expr.SortInvalid && n-len(sh.fixed) < sh.minVar {
		return fmt.Errorf("%s with %d operands: %w", ax.Kind, n-len(sh.fixed), internalerr.ErrUnsupported)
	}
	for i, h := range ax.Args {
		want := sh.varS
		if i < len(sh.fixed) {
			want = sh.fixed[i]
		}
		if err := v.reg.Check(h, want); err != nil {
			return fmt.Errorf("%s operand %d: %w", ax.Kind, i, err)
		}
	}
	if ax.Kind == DisjointUnion && v.reg.Op(ax.Args[0]) != expr.OpClass {
		return fmt.Errorf("disjoint union of a non-named class: %w", internalerr.ErrTypeMismatch)
	}
	return nil
}

// checkExpr rejects constructs outside the supported fragment.
func (v *Validator) checkExpr(h expr.Handle) error {
	switch op := v.reg.Op(h); op {
	case expr.OpSome, expr.OpAll, expr.OpMin, expr.OpMax, expr.OpExact, expr.OpHasValue, expr.OpHasSelf:
		if r := v.reg.Op(v.reg.Arg(h, 0)); r == expr.OpTopObjectRole || r == expr.OpBottomObjectRole {
			return fmt.Errorf("%s over %s: %w", op, v.reg.Key(v.reg.Arg(h, 0)), internalerr.ErrUnsupported)
		}
	case expr.OpDataSome, expr.OpDataAll, expr.OpDataMin, expr.OpDataMax, expr.OpDataExact, expr.OpDataHasValue:
		if r := v.reg.Op(v.reg.Arg(h, 0)); r == expr.OpTopDataRole || r == expr.OpBottomDataRole {
			return fmt.Errorf("%s over %s: %w", op, v.reg.Key(v.reg.Arg(h, 0)), internalerr.ErrUnsupported)
		}
	case expr.OpInverse:
		return nil
	case expr.OpDatatype, expr.OpDataNot, expr.OpDataOneOf, expr.OpDataAnd, expr.OpDataOr, expr.OpRestriction:
		_, err := v.dt.Range(h)
		return err
	case expr.OpLiteral:
		_, err := v.dt.Literal(h)
		return err
	}
	for _, a := range v.reg.Args(h) {
		if err := v.checkExpr(a); err != nil {
			return err
		}
	}
	return nil
}

// SimpleRoles returns the object roles an axiom requires to be simple:
// roles under number restrictions and Self, and roles named by functional,
// inverse functional, irreflexive, asymmetric and disjointness axioms.
func SimpleRoles(reg *expr.Registry, ax Axiom) []expr.Handle {
	var out []expr.Handle
	switch ax.Kind {
	case FunctionalObjectProperty, InverseFunctionalObjectProperty, IrreflexiveObjectProperty,
		AsymmetricObjectProperty, DisjointObjectProperties:
		out = append(out, ax.Args...)
	}
	seen := make(map[expr.Handle]bool)
	var walk func(h expr.Handle)
	walk = func(h expr.Handle) {
		if seen[h] {
			return
		}
		seen[h] = true
		switch reg.Op(h) {
		case expr.OpMin, expr.OpMax, expr.OpExact, expr.OpHasSelf:
			out = append(out, reg.Arg(h, 0))
		}
		if reg.Sort(h) == expr.SortConcept {
			for _, a := range reg.Args(h) {
				walk(a)
			}
		}
	}
	for _, h := range ax.Args {
		walk(h)
	}
	return out
}

// OperandSort returns the sort expected at position i of an axiom of kind
// k. The sub-property of SubObjectPropertyOf may also be a role chain.
func OperandSort(k Kind, i int) expr.Sort {
	if k == SubObjectPropertyOf {
		return expr.SortObjectRole
	}
	sh, ok := shapes[k]
	if !ok {
		return expr.SortInvalid
	}
	if i < len(sh.fixed) {
		return sh.fixed[i]
	}
	return sh.varS
}
