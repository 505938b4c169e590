package dlk

import (
	"github.com/cognicore/dlk/pkg/dlk/axiom"
	"github.com/cognicore/dlk/pkg/dlk/expr"
	"github.com/cognicore/dlk/pkg/dlk/rbox"
)

// roleIndex tracks the role axioms of the effective knowledge base and the
// roles it requires to be simple. Tells extend it in place; retracts and
// aborted batches mark it stale and the next check reloads it.
type roleIndex struct {
	reg   *expr.Registry
	fresh bool

	entries []axiom.Entry
	simple  []expr.Handle
	seen    map[expr.Handle]bool
	rb      *rbox.RBox
}

func newRoleIndex(reg *expr.Registry) *roleIndex {
	return &roleIndex{reg: reg}
}

func (x *roleIndex) invalidate() { x.fresh = false }

func (x *roleIndex) load(effective []axiom.Entry) error {
	x.entries = nil
	x.simple = nil
	x.seen = make(map[expr.Handle]bool)
	for _, e := range effective {
		if e.Axiom.Kind.IsRBox() {
			x.entries = append(x.entries, e)
		}
		x.require(axiom.SimpleRoles(x.reg, e.Axiom))
	}
	rb, err := rbox.Build(x.reg, x.entries)
	if err != nil {
		return err
	}
	x.rb = rb
	x.fresh = true
	return nil
}

func (x *roleIndex) require(hs []expr.Handle) {
	for _, h := range hs {
		if !x.seen[h] {
			x.seen[h] = true
			x.simple = append(x.simple, h)
		}
	}
}

// admit checks that ax keeps the role box regular and every restricted
// role simple. The returned function records ax once it has a handle.
func (x *roleIndex) admit(ax axiom.Axiom, effective func() []axiom.Entry) (func(axiom.Handle), error) {
	simple := axiom.SimpleRoles(x.reg, ax)
	isRBox := ax.Kind.IsRBox()
	if !isRBox && len(simple) == 0 {
		return func(axiom.Handle) {}, nil
	}
	if !x.fresh {
		if err := x.load(effective()); err != nil {
			return nil, err
		}
	}
	rb := x.rb
	if isRBox {
		n := len(x.entries)
		var err error
		rb, err = rbox.Build(x.reg, append(x.entries[:n:n], axiom.Entry{Axiom: ax}))
		if err != nil {
			return nil, err
		}
		// A new inclusion may make a restricted role non-simple.
		if err := rb.CheckSimple(x.simple); err != nil {
			return nil, err
		}
	}
	if err := rb.CheckSimple(simple); err != nil {
		return nil, err
	}
	return func(h axiom.Handle) {
		if isRBox {
			x.entries = append(x.entries, axiom.Entry{Handle: h, Axiom: ax})
			x.rb = rb
		}
		x.require(simple)
	}, nil
}
