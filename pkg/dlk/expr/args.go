package expr

import (
	"fmt"

	"github.com/cognicore/dlk/pkg/dlk/internalerr"
)

// argBuffer holds the pending operand list of an n-ary constructor.
// At most one list may be open at a time.
type argBuffer struct {
	open   bool
	closed bool
	items  []Handle
}

// BeginArgs opens a new operand list.
func (r *Registry) BeginArgs() error {
	if r.args.open {
		return fmt.Errorf("argument list already open: %w", internalerr.ErrUsage)
	}
	if r.args.closed {
		return fmt.Errorf("previous argument list was not consumed: %w", internalerr.ErrUsage)
	}
	r.args.open = true
	r.args.items = r.args.items[:0]
	return nil
}

// AddArg appends an operand to the open list.
func (r *Registry) AddArg(h Handle) error {
	if !r.args.open {
		return fmt.Errorf("add argument without open list: %w", internalerr.ErrUsage)
	}
	if !r.Valid(h) {
		return fmt.Errorf("argument %d: %w", h, internalerr.ErrUnknownEntity)
	}
	r.args.items = append(r.args.items, h)
	return nil
}

// EndArgs closes the open list. The list is consumed by the next n-ary
// constructor call made through BuildNary or TakeArgs.
func (r *Registry) EndArgs() error {
	if !r.args.open {
		return fmt.Errorf("end argument list without open list: %w", internalerr.ErrUsage)
	}
	r.args.open = false
	r.args.closed = true
	return nil
}

// TakeArgs consumes the closed operand list.
func (r *Registry) TakeArgs() ([]Handle, error) {
	if r.args.open {
		return nil, fmt.Errorf("argument list still open: %w", internalerr.ErrUsage)
	}
	if !r.args.closed {
		return nil, fmt.Errorf("no argument list to consume: %w", internalerr.ErrUsage)
	}
	out := make([]Handle, len(r.args.items))
	copy(out, r.args.items)
	r.args.closed = false
	r.args.items = r.args.items[:0]
	return out, nil
}

// ArgsPending reports whether an operand list is open or awaiting consumption.
func (r *Registry) ArgsPending() bool { return r.args.open || r.args.closed }

// BuildNary consumes the closed operand list with an n-ary constructor.
// An empty list yields an arity error.
func (r *Registry) BuildNary(op Op) (Handle, error) {
	if !op.Nary() {
		return Invalid, fmt.Errorf("%s is not n-ary: %w", op, internalerr.ErrUsage)
	}
	args, err := r.TakeArgs()
	if err != nil {
		return Invalid, err
	}
	switch op {
	case OpAnd:
		return r.And(args...)
	case OpOr:
		return r.Or(args...)
	case OpOneOf:
		return r.OneOf(args...)
	case OpChain:
		return r.Chain(args...)
	case OpDataOneOf:
		return r.DataOneOf(args...)
	case OpDataAnd:
		return r.DataAnd(args...)
	default:
		return r.DataOr(args...)
	}
}
