package expr

import (
	"strconv"
	"strings"
)

// String renders h in a compact functional syntax, e.g. Some(hasChild Person).
func (r *Registry) String(h Handle) string {
	var b strings.Builder
	r.write(&b, h)
	return b.String()
}

func (r *Registry) write(b *strings.Builder, h Handle) {
	if !r.Valid(h) {
		b.WriteString("<invalid>")
		return
	}
	n := r.nodes[h]
	switch {
	case n.op == OpLiteral:
		b.WriteString(strconv.Quote(n.key))
		b.WriteString("^^")
		b.WriteString(r.nodes[n.args[0]].key)
		return
	case n.key != "" && n.op != OpFacet:
		b.WriteString(n.key)
		return
	}
	b.WriteString(n.op.String())
	b.WriteByte('(')
	first := true
	sep := func() {
		if !first {
			b.WriteByte(' ')
		}
		first = false
	}
	switch n.op {
	case OpMin, OpMax, OpExact, OpDataMin, OpDataMax, OpDataExact:
		sep()
		b.WriteString(strconv.Itoa(n.n))
	case OpFacet:
		sep()
		b.WriteString(n.key)
	}
	for _, a := range n.args {
		sep()
		r.write(b, a)
	}
	b.WriteByte(')')
}
