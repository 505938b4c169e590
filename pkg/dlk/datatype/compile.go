package datatype

import (
	"fmt"

	"github.com/cognicore/dlk/pkg/dlk/expr"
	"github.com/cognicore/dlk/pkg/dlk/internalerr"
)

// Compiler turns data range and literal handles into value sets.
type Compiler struct {
	reg     *expr.Registry
	catalog *Catalog
	ranges  map[expr.Handle]Set
	values  map[expr.Handle]Value
}

// NewCompiler returns a compiler bound to a registry and catalog.
func NewCompiler(reg *expr.Registry, catalog *Catalog) *Compiler {
	return &Compiler{
		reg:     reg,
		catalog: catalog,
		ranges:  make(map[expr.Handle]Set),
		values:  make(map[expr.Handle]Value),
	}
}

// Catalog returns the supported datatype catalog.
func (c *Compiler) Catalog() *Catalog { return c.catalog }

// Literal parses a literal handle.
func (c *Compiler) Literal(h expr.Handle) (Value, error) {
	if v, ok := c.values[h]; ok {
		return v, nil
	}
	if err := c.reg.Check(h, expr.SortLiteral); err != nil {
		return Value{}, err
	}
	dt := c.reg.Key(c.reg.Arg(h, 0))
	if !c.catalog.Supports(dt) {
		return Value{}, fmt.Errorf("literal datatype %s: %w", dt, internalerr.ErrUnsupported)
	}
	v, err := Parse(c.reg.Key(h), dt)
	if err != nil {
		return Value{}, err
	}
	c.values[h] = v
	return v, nil
}

// Range compiles a data range handle.
func (c *Compiler) Range(h expr.Handle) (Set, error) {
	if s, ok := c.ranges[h]; ok {
		return s, nil
	}
	if err := c.reg.Check(h, expr.SortDataRange); err != nil {
		return Set{}, err
	}
	s, err := c.compile(h)
	if err != nil {
		return Set{}, err
	}
	c.ranges[h] = s
	return s, nil
}

func (c *Compiler) compile(h expr.Handle) (Set, error) {
	args := c.reg.Args(h)
	switch op := c.reg.Op(h); op {
	case expr.OpDatatype:
		return c.catalog.ValueSpace(c.reg.Key(h))

	case expr.OpDataNot:
		s, err := c.Range(args[0])
		if err != nil {
			return Set{}, err
		}
		return s.Complement(), nil

	case expr.OpDataOneOf:
		out := Empty()
		for _, lit := range args {
			v, err := c.Literal(lit)
			if err != nil {
				return Set{}, err
			}
			out = out.Union(Singleton(v))
		}
		return out, nil

	case expr.OpDataAnd, expr.OpDataOr:
		out := Full()
		if op == expr.OpDataOr {
			out = Empty()
		}
		for _, a := range args {
			s, err := c.Range(a)
			if err != nil {
				return Set{}, err
			}
			if op == expr.OpDataAnd {
				out = out.Intersect(s)
			} else {
				out = out.Union(s)
			}
		}
		return out, nil

	case expr.OpRestriction:
		out, err := c.Range(args[0])
		if err != nil {
			return Set{}, err
		}
		for _, f := range args[1:] {
			v, err := c.Literal(c.reg.Arg(f, 0))
			if err != nil {
				return Set{}, err
			}
			if out, err = Restrict(out, c.reg.Key(f), v); err != nil {
				return Set{}, err
			}
		}
		return out, nil

	default:
		return Set{}, fmt.Errorf("data range %s: %w", op, internalerr.ErrUnsupported)
	}
}
