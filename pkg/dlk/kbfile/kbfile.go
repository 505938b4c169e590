// Package kbfile reads knowledge base descriptions written in YAML.
//
// A description declares entities and lists axioms. Each axiom is a
// mapping from an axiom kind to its operands:
//
//	classes: [Person, Parent]
//	object_properties: [hasChild]
//	data_properties: [age]
//	individuals: [ann]
//	axioms:
//	  - EquivalentClasses: [Parent, {and: [Person, {some: [hasChild, Person]}]}]
//	  - FunctionalDataProperty: age
//	  - DataPropertyRange: [age, {restriction: {datatype: xsd:integer, facets: {xsd:minInclusive: "0"}}}]
//	  - ClassAssertion: [ann, Parent]
//	  - DataPropertyAssertion: [age, ann, 42^^xsd:integer]
//
// Scalars name entities of the sort the position expects. Literals are
// written lexical^^datatype or as {literal: ..., datatype: ...}; a bare
// scalar literal is an xsd:string.
package kbfile

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/dlk/pkg/dlk/axiom"
	"github.com/cognicore/dlk/pkg/dlk/expr"
	"github.com/cognicore/dlk/pkg/dlk/internalerr"
)

// File is a parsed description.
type File struct {
	Name             string      `yaml:"name"`
	Classes          []string    `yaml:"classes"`
	ObjectProperties []string    `yaml:"object_properties"`
	DataProperties   []string    `yaml:"data_properties"`
	Individuals      []string    `yaml:"individuals"`
	Axioms           []yaml.Node `yaml:"axioms"`
}

// Parse decodes a description.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse knowledge base: %w", err)
	}
	return &f, nil
}

// Load reads and decodes a description file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if f.Name == "" {
		f.Name = path
	}
	return f, nil
}

// Build registers the entities of f with reg and returns its axioms,
// declarations first.
func (f *File) Build(reg *expr.Registry) ([]axiom.Axiom, error) {
	var out []axiom.Axiom
	declare := func(kind expr.EntityKind, keys []string) error {
		for _, k := range keys {
			h, err := reg.Entity(kind, k)
			if err != nil {
				return err
			}
			out = append(out, axiom.Declare(h))
		}
		return nil
	}
	if err := declare(expr.KindClass, f.Classes); err != nil {
		return nil, err
	}
	if err := declare(expr.KindObjectProperty, f.ObjectProperties); err != nil {
		return nil, err
	}
	if err := declare(expr.KindDataProperty, f.DataProperties); err != nil {
		return nil, err
	}
	if err := declare(expr.KindIndividual, f.Individuals); err != nil {
		return nil, err
	}

	d := &decoder{reg: reg}
	for i := range f.Axioms {
		ax, err := d.axiom(&f.Axioms[i])
		if err != nil {
			return nil, err
		}
		out = append(out, ax)
	}
	return out, nil
}

type decoder struct {
	reg *expr.Registry
}

func errorf(n *yaml.Node, format string, args ...any) error {
	return fmt.Errorf("line %d: %s: %w", n.Line, fmt.Sprintf(format, args...), internalerr.ErrUsage)
}

func at(n *yaml.Node, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("line %d: %w", n.Line, err)
}

// single splits a one-key mapping.
func single(n *yaml.Node) (string, *yaml.Node, error) {
	if n.Kind != yaml.MappingNode || len(n.Content) != 2 {
		return "", nil, errorf(n, "expected a mapping with one key")
	}
	return n.Content[0].Value, n.Content[1], nil
}

// items returns the elements of a sequence, or n itself for a scalar or
// mapping.
func items(n *yaml.Node) []*yaml.Node {
	if n.Kind == yaml.SequenceNode {
		return n.Content
	}
	return []*yaml.Node{n}
}

func (d *decoder) axiom(n *yaml.Node) (axiom.Axiom, error) {
	name, val, err := single(n)
	if err != nil {
		return axiom.Axiom{}, err
	}
	kind, ok := axiom.ParseKind(name)
	if !ok || kind == axiom.Declaration {
		return axiom.Axiom{}, errorf(n, "unknown axiom kind %q", name)
	}
	ops := items(val)
	args := make([]expr.Handle, 0, len(ops))
	for i, op := range ops {
		s := axiom.OperandSort(kind, i)
		if s == expr.SortInvalid {
			return axiom.Axiom{}, errorf(op, "%s takes no operand %d", kind, i)
		}
		h, err := d.expr(op, s)
		if err != nil {
			return axiom.Axiom{}, err
		}
		args = append(args, h)
	}
	return axiom.Axiom{Kind: kind, Args: args}, nil
}

func (d *decoder) expr(n *yaml.Node, s expr.Sort) (expr.Handle, error) {
	if n.Kind == yaml.ScalarNode {
		return d.scalar(n, s)
	}
	switch s {
	case expr.SortConcept:
		return d.concept(n)
	case expr.SortObjectRole:
		return d.role(n)
	case expr.SortDataRange:
		return d.dataRange(n)
	case expr.SortLiteral:
		return d.literalMap(n)
	}
	return expr.Invalid, errorf(n, "a %s must be a name", s)
}

func (d *decoder) scalar(n *yaml.Node, s expr.Sort) (expr.Handle, error) {
	var kind expr.EntityKind
	switch s {
	case expr.SortConcept:
		kind = expr.KindClass
	case expr.SortObjectRole:
		kind = expr.KindObjectProperty
	case expr.SortDataRole:
		kind = expr.KindDataProperty
	case expr.SortIndividual:
		kind = expr.KindIndividual
	case expr.SortDataRange:
		kind = expr.KindDatatype
	case expr.SortLiteral:
		lex, dt, ok := strings.Cut(n.Value, "^^")
		if !ok {
			dt = "xsd:string"
		}
		return d.literal(n, lex, dt)
	default:
		return expr.Invalid, errorf(n, "unexpected %s", s)
	}
	h, err := d.reg.Entity(kind, n.Value)
	return h, at(n, err)
}

func (d *decoder) literal(n *yaml.Node, lex, datatype string) (expr.Handle, error) {
	dt, err := d.reg.Entity(expr.KindDatatype, datatype)
	if err != nil {
		return expr.Invalid, at(n, err)
	}
	h, err := d.reg.Literal(lex, dt)
	return h, at(n, err)
}

func (d *decoder) literalMap(n *yaml.Node) (expr.Handle, error) {
	var lit struct {
		Literal  string `yaml:"literal"`
		Datatype string `yaml:"datatype"`
	}
	if err := n.Decode(&lit); err != nil {
		return expr.Invalid, at(n, err)
	}
	if lit.Datatype == "" {
		lit.Datatype = "xsd:string"
	}
	return d.literal(n, lit.Literal, lit.Datatype)
}

func (d *decoder) list(n *yaml.Node, s expr.Sort) ([]expr.Handle, error) {
	if n.Kind != yaml.SequenceNode {
		return nil, errorf(n, "expected a list")
	}
	out := make([]expr.Handle, 0, len(n.Content))
	for _, c := range n.Content {
		h, err := d.expr(c, s)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

// operands decodes a fixed-shape operand list. A leading integer is
// returned separately; optional trailing operands default to def.
func (d *decoder) operands(n *yaml.Node, counted bool, sorts []expr.Sort, def expr.Handle) (int, []expr.Handle, error) {
	xs := items(n)
	card := 0
	if counted {
		if len(xs) == 0 {
			return 0, nil, errorf(n, "missing cardinality")
		}
		v, err := strconv.Atoi(xs[0].Value)
		if err != nil || v < 0 {
			return 0, nil, errorf(xs[0], "bad cardinality %q", xs[0].Value)
		}
		card = v
		xs = xs[1:]
	}
	if len(xs) > len(sorts) || (len(xs) < len(sorts) && (def == expr.Invalid || len(xs) < len(sorts)-1)) {
		return 0, nil, errorf(n, "expected %d operands, got %d", len(sorts), len(xs))
	}
	out := make([]expr.Handle, len(sorts))
	for i, s := range sorts {
		if i >= len(xs) {
			out[i] = def
			continue
		}
		h, err := d.expr(xs[i], s)
		if err != nil {
			return 0, nil, err
		}
		out[i] = h
	}
	return card, out, nil
}

func (d *decoder) concept(n *yaml.Node) (expr.Handle, error) {
	op, val, err := single(n)
	if err != nil {
		return expr.Invalid, err
	}
	reg := d.reg
	done := func(h expr.Handle, err error) (expr.Handle, error) { return h, at(n, err) }
	switch op {
	case "not":
		c, err := d.expr(val, expr.SortConcept)
		if err != nil {
			return expr.Invalid, err
		}
		return done(reg.Not(c))
	case "and", "or":
		cs, err := d.list(val, expr.SortConcept)
		if err != nil {
			return expr.Invalid, err
		}
		if op == "and" {
			return done(reg.And(cs...))
		} else {
			return done(reg.Or(cs...))
		}
	case "one_of":
		is, err := d.list(val, expr.SortIndividual)
		if err != nil {
			return expr.Invalid, err
		}
		return done(reg.OneOf(is...))
	case "some", "all":
		_, xs, err := d.operands(val, false, []expr.Sort{expr.SortObjectRole, expr.SortConcept}, expr.Invalid)
		if err != nil {
			return expr.Invalid, err
		}
		if op == "some" {
			return done(reg.Some(xs[0], xs[1]))
		} else {
			return done(reg.All(xs[0], xs[1]))
		}
	case "min", "max", "exact":
		k, xs, err := d.operands(val, true, []expr.Sort{expr.SortObjectRole, expr.SortConcept}, expr.Top)
		if err != nil {
			return expr.Invalid, err
		}
		switch op {
		case "min":
			return done(reg.Min(k, xs[0], xs[1]))
		case "max":
			return done(reg.Max(k, xs[0], xs[1]))
		default:
			return done(reg.Exact(k, xs[0], xs[1]))
		}
	case "has_value":
		_, xs, err := d.operands(val, false, []expr.Sort{expr.SortObjectRole, expr.SortIndividual}, expr.Invalid)
		if err != nil {
			return expr.Invalid, err
		}
		return done(reg.HasValue(xs[0], xs[1]))
	case "self":
		r, err := d.expr(val, expr.SortObjectRole)
		if err != nil {
			return expr.Invalid, err
		}
		return done(reg.HasSelf(r))
	case "data_some", "data_all":
		_, xs, err := d.operands(val, false, []expr.Sort{expr.SortDataRole, expr.SortDataRange}, expr.Invalid)
		if err != nil {
			return expr.Invalid, err
		}
		if op == "data_some" {
			return done(reg.DataSome(xs[0], xs[1]))
		} else {
			return done(reg.DataAll(xs[0], xs[1]))
		}
	case "data_min", "data_max", "data_exact":
		k, xs, err := d.operands(val, true, []expr.Sort{expr.SortDataRole, expr.SortDataRange}, expr.TopDatatype)
		if err != nil {
			return expr.Invalid, err
		}
		switch op {
		case "data_min":
			return done(reg.DataMin(k, xs[0], xs[1]))
		case "data_max":
			return done(reg.DataMax(k, xs[0], xs[1]))
		default:
			return done(reg.DataExact(k, xs[0], xs[1]))
		}
	case "data_has_value":
		_, xs, err := d.operands(val, false, []expr.Sort{expr.SortDataRole, expr.SortLiteral}, expr.Invalid)
		if err != nil {
			return expr.Invalid, err
		}
		return done(reg.DataHasValue(xs[0], xs[1]))
	default:
		return expr.Invalid, errorf(n, "unknown class constructor %q", op)
	}
}

func (d *decoder) role(n *yaml.Node) (expr.Handle, error) {
	op, val, err := single(n)
	if err != nil {
		return expr.Invalid, err
	}
	switch op {
	case "inverse":
		r, err := d.expr(val, expr.SortObjectRole)
		if err != nil {
			return expr.Invalid, err
		}
		h, err := d.reg.Inverse(r)
		return h, at(n, err)
	case "chain":
		rs, err := d.list(val, expr.SortObjectRole)
		if err != nil {
			return expr.Invalid, err
		}
		h, err := d.reg.Chain(rs...)
		return h, at(n, err)
	}
	return expr.Invalid, errorf(n, "unknown property constructor %q", op)
}

func (d *decoder) dataRange(n *yaml.Node) (expr.Handle, error) {
	op, val, err := single(n)
	if err != nil {
		return expr.Invalid, err
	}
	reg := d.reg
	done := func(h expr.Handle, err error) (expr.Handle, error) { return h, at(n, err) }
	switch op {
	case "data_not":
		x, err := d.expr(val, expr.SortDataRange)
		if err != nil {
			return expr.Invalid, err
		}
		return done(reg.DataNot(x))
	case "data_one_of":
		lits, err := d.list(val, expr.SortLiteral)
		if err != nil {
			return expr.Invalid, err
		}
		return done(reg.DataOneOf(lits...))
	case "data_and", "data_or":
		ds, err := d.list(val, expr.SortDataRange)
		if err != nil {
			return expr.Invalid, err
		}
		if op == "data_and" {
			return done(reg.DataAnd(ds...))
		} else {
			return done(reg.DataOr(ds...))
		}
	case "restriction":
		return d.restriction(val)
	default:
		return expr.Invalid, errorf(n, "unknown data range constructor %q", op)
	}
}

// restriction decodes {datatype: D, facets: {facet: lexical, ...}}. Facet
// values are literals of D.
func (d *decoder) restriction(n *yaml.Node) (expr.Handle, error) {
	if n.Kind != yaml.MappingNode {
		return expr.Invalid, errorf(n, "expected a restriction mapping")
	}
	var datatype string
	var facets *yaml.Node
	for i := 0; i+1 < len(n.Content); i += 2 {
		switch k, v := n.Content[i].Value, n.Content[i+1]; k {
		case "datatype":
			datatype = v.Value
		case "facets":
			facets = v
		default:
			return expr.Invalid, errorf(n.Content[i], "unknown restriction field %q", k)
		}
	}
	if datatype == "" || facets == nil || facets.Kind != yaml.MappingNode {
		return expr.Invalid, errorf(n, "restriction needs a datatype and facets")
	}
	dt, err := d.reg.Entity(expr.KindDatatype, datatype)
	if err != nil {
		return expr.Invalid, at(n, err)
	}
	var fs []expr.Handle
	for i := 0; i+1 < len(facets.Content); i += 2 {
		name, v := facets.Content[i].Value, facets.Content[i+1]
		lit, err := d.literal(v, v.Value, datatype)
		if err != nil {
			return expr.Invalid, err
		}
		f, err := d.reg.Facet(name, lit)
		if err != nil {
			return expr.Invalid, at(v, err)
		}
		fs = append(fs, f)
	}
	h, err := d.reg.Restriction(dt, fs...)
	return h, at(n, err)
}
