package expr

import "fmt"

// must unwraps constructor results on already validated operands.
func must(h Handle, err error) Handle {
	if err != nil {
		panic(fmt.Sprintf("expr: rebuilding validated expression: %v", err))
	}
	return h
}

// NNF returns the negation normal form of a concept. Negation is pushed down
// to class names, nominals, Self restrictions and data ranges. Exact
// cardinalities and has-value restrictions are expanded, and cardinality
// restrictions with trivial bounds are rewritten as quantifiers. Non-concept
// handles are returned unchanged.
func (r *Registry) NNF(h Handle) Handle {
	if !r.Valid(h) || r.nodes[h].sort != SortConcept {
		return h
	}
	if out, ok := r.nnf[h]; ok {
		return out
	}
	out := r.nnfOf(h)
	r.nnf[h] = out
	return out
}

// Complement returns NNF(¬h).
func (r *Registry) Complement(h Handle) Handle {
	if !r.Valid(h) || r.nodes[h].sort != SortConcept {
		return h
	}
	if out, ok := r.neg[h]; ok {
		return out
	}
	out := r.complementOf(h)
	r.neg[h] = out
	return out
}

func (r *Registry) nnfAll(hs []Handle) []Handle {
	out := make([]Handle, len(hs))
	for i, h := range hs {
		out[i] = r.NNF(h)
	}
	return out
}

func (r *Registry) complementAll(hs []Handle) []Handle {
	out := make([]Handle, len(hs))
	for i, h := range hs {
		out[i] = r.Complement(h)
	}
	return out
}

func (r *Registry) nnfOf(h Handle) Handle {
	n := r.nodes[h]
	switch n.op {
	case OpNot:
		return r.Complement(n.args[0])
	case OpAnd:
		return must(r.And(r.nnfAll(n.args)...))
	case OpOr:
		return must(r.Or(r.nnfAll(n.args)...))
	case OpSome:
		return must(r.Some(n.args[0], r.NNF(n.args[1])))
	case OpAll:
		return must(r.All(n.args[0], r.NNF(n.args[1])))
	case OpMin:
		return r.atLeast(n.n, n.args[0], r.NNF(n.args[1]))
	case OpMax:
		return r.atMost(n.n, n.args[0], n.args[1])
	case OpExact:
		return must(r.And(
			r.atLeast(n.n, n.args[0], r.NNF(n.args[1])),
			r.atMost(n.n, n.args[0], n.args[1]),
		))
	case OpHasValue:
		return must(r.Some(n.args[0], must(r.OneOf(n.args[1]))))
	case OpOneOf:
		return r.splitOneOf(n.args)
	case OpDataMin:
		if n.n == 0 {
			return Top
		}
	case OpDataMax:
		if n.n == 0 {
			return must(r.DataAll(n.args[0], must(r.DataNot(n.args[1]))))
		}
	case OpDataExact:
		return must(r.And(
			r.NNF(must(r.DataMin(n.n, n.args[0], n.args[1]))),
			r.NNF(must(r.DataMax(n.n, n.args[0], n.args[1]))),
		))
	case OpDataHasValue:
		return must(r.DataSome(n.args[0], must(r.DataOneOf(n.args[1]))))
	}
	return h
}

// atLeast builds ≥n R.C for an NNF filler.
func (r *Registry) atLeast(n int, role, c Handle) Handle {
	switch n {
	case 0:
		return Top
	case 1:
		return must(r.Some(role, c))
	}
	return must(r.Min(n, role, c))
}

// atMost builds the NNF of ≤n R.C for a filler not yet normalized.
func (r *Registry) atMost(n int, role, c Handle) Handle {
	if n == 0 {
		return must(r.All(role, r.Complement(c)))
	}
	return must(r.Max(n, role, r.NNF(c)))
}

func (r *Registry) splitOneOf(inds []Handle) Handle {
	if len(inds) == 1 {
		return must(r.OneOf(inds[0]))
	}
	singles := make([]Handle, len(inds))
	for i, a := range inds {
		singles[i] = must(r.OneOf(a))
	}
	return must(r.Or(singles...))
}

func (r *Registry) complementOf(h Handle) Handle {
	n := r.nodes[h]
	switch n.op {
	case OpTop:
		return Bottom
	case OpBottom:
		return Top
	case OpNot:
		return r.NNF(n.args[0])
	case OpAnd:
		return must(r.Or(r.complementAll(n.args)...))
	case OpOr:
		return must(r.And(r.complementAll(n.args)...))
	case OpSome:
		return must(r.All(n.args[0], r.Complement(n.args[1])))
	case OpAll:
		return must(r.Some(n.args[0], r.Complement(n.args[1])))
	case OpMin:
		if n.n == 0 {
			return Bottom
		}
		return r.atMost(n.n-1, n.args[0], n.args[1])
	case OpMax:
		return r.atLeast(n.n+1, n.args[0], r.NNF(n.args[1]))
	case OpExact:
		return r.Complement(r.NNF(h))
	case OpHasValue:
		return must(r.All(n.args[0], must(r.Not(must(r.OneOf(n.args[1]))))))
	case OpOneOf:
		if len(n.args) == 1 {
			return must(r.Not(h))
		}
		return r.Complement(r.splitOneOf(n.args))
	case OpDataSome:
		return must(r.DataAll(n.args[0], must(r.DataNot(n.args[1]))))
	case OpDataAll:
		return must(r.DataSome(n.args[0], must(r.DataNot(n.args[1]))))
	case OpDataMin:
		if n.n == 0 {
			return Bottom
		}
		return r.NNF(must(r.DataMax(n.n-1, n.args[0], n.args[1])))
	case OpDataMax:
		return must(r.DataMin(n.n+1, n.args[0], n.args[1]))
	case OpDataExact, OpDataHasValue:
		return r.Complement(r.NNF(h))
	}
	// class names and Self restrictions
	return must(r.Not(h))
}

// IsLiteralConcept reports whether an NNF concept is a name, a negated name or
// a nominal test, i.e. has no further structure for the tableau to expand.
func (r *Registry) IsLiteralConcept(h Handle) bool {
	switch r.Op(h) {
	case OpTop, OpBottom, OpClass, OpOneOf, OpHasSelf:
		return true
	case OpNot:
		switch r.Op(r.Arg(h, 0)) {
		case OpClass, OpOneOf, OpHasSelf:
			return true
		}
	}
	return false
}
