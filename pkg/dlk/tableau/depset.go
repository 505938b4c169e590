package tableau

import "math/bits"

// DepSet is the set of branch levels a fact depends on. The zero value is
// the empty set, meaning the fact holds unconditionally. DepSets are never
// modified in place.
type DepSet []uint64

func level(l int) DepSet {
	d := make(DepSet, l/64+1)
	d[l/64] = 1 << uint(l%64)
	return d
}

// Union returns d ∪ o.
func (d DepSet) Union(o DepSet) DepSet {
	if len(o) == 0 {
		return d
	}
	if len(d) == 0 {
		return o
	}
	a, b := d, o
	if len(a) < len(b) {
		a, b = b, a
	}
	out := make(DepSet, len(a))
	copy(out, a)
	for i, w := range b {
		out[i] |= w
	}
	return out
}

// Has reports whether l is in d.
func (d DepSet) Has(l int) bool {
	i := l / 64
	return i < len(d) && d[i]&(1<<uint(l%64)) != 0
}

// Max returns the highest level in d or -1.
func (d DepSet) Max() int {
	for i := len(d) - 1; i >= 0; i-- {
		if d[i] != 0 {
			return i*64 + 63 - bits.LeadingZeros64(d[i])
		}
	}
	return -1
}

// Below returns the levels of d strictly below l.
func (d DepSet) Below(l int) DepSet {
	if d.Max() < l {
		return d
	}
	n := l/64 + 1
	if n > len(d) {
		n = len(d)
	}
	out := make(DepSet, n)
	copy(out, d[:n])
	if n == l/64+1 {
		out[n-1] &= (1 << uint(l%64)) - 1
	}
	return out
}

// upTo returns the set {1, ..., l}.
func upTo(l int) DepSet {
	var d DepSet
	for i := 1; i <= l; i++ {
		d = d.Union(level(i))
	}
	return d
}
