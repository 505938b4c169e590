package datatype

import (
	"math"
	"math/big"
	"sort"
)

// bound is an interval endpoint. A nil value is unbounded.
type bound struct {
	v    *big.Rat
	open bool
}

type interval struct {
	lo, hi bound
}

// ratSet is a union of disjoint, sorted intervals. In discrete mode it
// describes the integers inside the intervals; in continuous mode with
// fracOnly set it describes the non-integers inside them.
type ratSet struct {
	discrete bool
	fracOnly bool
	ivs      []interval
}

func fullRats(discrete, fracOnly bool) ratSet {
	return ratSet{discrete: discrete, fracOnly: fracOnly, ivs: []interval{{}}}
}

func emptyRats(discrete, fracOnly bool) ratSet {
	return ratSet{discrete: discrete, fracOnly: fracOnly}
}

func pointRats(discrete, fracOnly bool, r *big.Rat) ratSet {
	s := ratSet{discrete: discrete, fracOnly: fracOnly, ivs: []interval{{lo: bound{v: r}, hi: bound{v: r}}}}
	return s.normalize()
}

// cmpLo orders lower bounds; -inf first, closed before open at equal values.
func cmpLo(a, b bound) int {
	switch {
	case a.v == nil && b.v == nil:
		return 0
	case a.v == nil:
		return -1
	case b.v == nil:
		return 1
	}
	if c := a.v.Cmp(b.v); c != 0 {
		return c
	}
	switch {
	case a.open == b.open:
		return 0
	case a.open:
		return 1
	default:
		return -1
	}
}

// cmpHi orders upper bounds; +inf last, open before closed at equal values.
func cmpHi(a, b bound) int {
	switch {
	case a.v == nil && b.v == nil:
		return 0
	case a.v == nil:
		return 1
	case b.v == nil:
		return -1
	}
	if c := a.v.Cmp(b.v); c != 0 {
		return c
	}
	switch {
	case a.open == b.open:
		return 0
	case a.open:
		return -1
	default:
		return 1
	}
}

func ratFloor(r *big.Rat) *big.Int {
	q := new(big.Int).Quo(r.Num(), r.Denom())
	if r.Sign() < 0 && !r.IsInt() {
		q.Sub(q, big.NewInt(1))
	}
	return q
}

func ratCeil(r *big.Rat) *big.Int {
	q := ratFloor(r)
	if !r.IsInt() {
		q.Add(q, big.NewInt(1))
	}
	return q
}

// closeInts rewrites an interval to closed integer bounds.
func closeInts(iv interval) interval {
	out := interval{}
	if iv.lo.v != nil {
		var n *big.Int
		if iv.lo.open {
			n = ratFloor(iv.lo.v)
			n.Add(n, big.NewInt(1))
		} else {
			n = ratCeil(iv.lo.v)
		}
		out.lo = bound{v: new(big.Rat).SetInt(n)}
	}
	if iv.hi.v != nil {
		var n *big.Int
		if iv.hi.open {
			n = ratCeil(iv.hi.v)
			n.Sub(n, big.NewInt(1))
		} else {
			n = ratFloor(iv.hi.v)
		}
		out.hi = bound{v: new(big.Rat).SetInt(n)}
	}
	return out
}

func (s ratSet) emptyInterval(iv interval) bool {
	if iv.lo.v == nil || iv.hi.v == nil {
		return false
	}
	c := iv.lo.v.Cmp(iv.hi.v)
	if c > 0 {
		return true
	}
	if c == 0 {
		if iv.lo.open || iv.hi.open {
			return true
		}
		return s.fracOnly && iv.lo.v.IsInt()
	}
	return false
}

// touches reports whether b, starting at or after a, overlaps or abuts a.
func (s ratSet) touches(a, b interval) bool {
	if a.hi.v == nil || b.lo.v == nil {
		return true
	}
	if s.discrete {
		next := new(big.Rat).Add(a.hi.v, big.NewRat(1, 1))
		return b.lo.v.Cmp(next) <= 0
	}
	c := b.lo.v.Cmp(a.hi.v)
	return c < 0 || (c == 0 && !(a.hi.open && b.lo.open))
}

func (s ratSet) normalize() ratSet {
	ivs := make([]interval, 0, len(s.ivs))
	for _, iv := range s.ivs {
		if s.discrete {
			iv = closeInts(iv)
		}
		if !s.emptyInterval(iv) {
			ivs = append(ivs, iv)
		}
	}
	sort.Slice(ivs, func(i, j int) bool { return cmpLo(ivs[i].lo, ivs[j].lo) < 0 })
	merged := ivs[:0]
	for _, iv := range ivs {
		if n := len(merged); n > 0 && s.touches(merged[n-1], iv) {
			if cmpHi(iv.hi, merged[n-1].hi) > 0 {
				merged[n-1].hi = iv.hi
			}
			continue
		}
		merged = append(merged, iv)
	}
	s.ivs = merged
	return s
}

func (s ratSet) isEmpty() bool { return len(s.ivs) == 0 }

func (s ratSet) contains(r *big.Rat) bool {
	if s.fracOnly && r.IsInt() {
		return false
	}
	if s.discrete && !r.IsInt() {
		return false
	}
	for _, iv := range s.ivs {
		if iv.lo.v != nil {
			c := r.Cmp(iv.lo.v)
			if c < 0 || (c == 0 && iv.lo.open) {
				continue
			}
		}
		if iv.hi.v != nil {
			c := r.Cmp(iv.hi.v)
			if c > 0 || (c == 0 && iv.hi.open) {
				continue
			}
		}
		return true
	}
	return false
}

func (s ratSet) intersect(o ratSet) ratSet {
	out := ratSet{discrete: s.discrete, fracOnly: s.fracOnly}
	for _, a := range s.ivs {
		for _, b := range o.ivs {
			iv := interval{lo: a.lo, hi: a.hi}
			if cmpLo(b.lo, iv.lo) > 0 {
				iv.lo = b.lo
			}
			if cmpHi(b.hi, iv.hi) < 0 {
				iv.hi = b.hi
			}
			out.ivs = append(out.ivs, iv)
		}
	}
	return out.normalize()
}

func (s ratSet) union(o ratSet) ratSet {
	out := ratSet{discrete: s.discrete, fracOnly: s.fracOnly}
	out.ivs = append(append(out.ivs, s.ivs...), o.ivs...)
	return out.normalize()
}

func (s ratSet) complement() ratSet {
	out := ratSet{discrete: s.discrete, fracOnly: s.fracOnly}
	lo := bound{}
	unbounded := true
	for _, iv := range s.ivs {
		if iv.lo.v != nil {
			out.ivs = append(out.ivs, interval{lo: lo, hi: bound{v: iv.lo.v, open: !iv.lo.open}})
		}
		if iv.hi.v == nil {
			unbounded = false
			break
		}
		lo = bound{v: iv.hi.v, open: !iv.hi.open}
	}
	if unbounded {
		out.ivs = append(out.ivs, interval{lo: lo})
	}
	return out.normalize()
}

// count returns the number of members, or false when infinite.
func (s ratSet) count() (int, bool) {
	total := 0
	for _, iv := range s.ivs {
		if iv.lo.v == nil || iv.hi.v == nil {
			return 0, false
		}
		if !s.discrete {
			if iv.lo.v.Cmp(iv.hi.v) != 0 {
				return 0, false
			}
			total++
			continue
		}
		d := new(big.Rat).Sub(iv.hi.v, iv.lo.v)
		n := new(big.Int).Add(d.Num(), big.NewInt(1))
		if !n.IsInt64() || n.Int64() > math.MaxInt32 {
			return math.MaxInt32, true
		}
		total += int(n.Int64())
		if total > math.MaxInt32 {
			return math.MaxInt32, true
		}
	}
	return total, true
}

// enumerate lists up to limit members of a finite set.
func (s ratSet) enumerate(limit int) []*big.Rat {
	var out []*big.Rat
	for _, iv := range s.ivs {
		if iv.lo.v == nil || iv.hi.v == nil {
			continue
		}
		if !s.discrete {
			if len(out) < limit && iv.lo.v.Cmp(iv.hi.v) == 0 {
				out = append(out, iv.lo.v)
			}
			continue
		}
		for r := new(big.Rat).Set(iv.lo.v); r.Cmp(iv.hi.v) <= 0 && len(out) < limit; r = new(big.Rat).Add(r, big.NewRat(1, 1)) {
			out = append(out, r)
		}
	}
	return out
}
