package datatype

import (
	"math/big"
	"sort"
	"unicode/utf8"
)

// strSet describes the strings s with s ∈ incl, or len(s) ∈ lengths and
// s ∉ excl.
type strSet struct {
	lengths ratSet
	incl    map[string]struct{}
	excl    map[string]struct{}
}

func allLengths() ratSet {
	return ratSet{discrete: true, ivs: []interval{{lo: bound{v: new(big.Rat)}}}}
}

func fullStrings() strSet  { return strSet{lengths: allLengths()} }
func emptyStrings() strSet { return strSet{lengths: emptyRats(true, false)} }

func singleString(s string) strSet {
	return strSet{lengths: emptyRats(true, false), incl: map[string]struct{}{s: {}}}
}

func lengthStrings(lengths ratSet) strSet {
	return strSet{lengths: lengths.intersect(allLengths())}
}

func strLen(s string) *big.Rat { return big.NewRat(int64(utf8.RuneCountInString(s)), 1) }

func (s strSet) contains(v string) bool {
	if _, ok := s.incl[v]; ok {
		return true
	}
	if _, ok := s.excl[v]; ok {
		return false
	}
	return s.lengths.contains(strLen(v))
}

func (s strSet) candidates(o strSet) []string {
	seen := make(map[string]struct{})
	for _, m := range []map[string]struct{}{s.incl, s.excl, o.incl, o.excl} {
		for k := range m {
			seen[k] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	return out
}

func (s strSet) combine(o strSet, lengths ratSet, op func(a, b bool) bool) strSet {
	out := strSet{lengths: lengths}
	for _, c := range s.candidates(o) {
		actual := op(s.contains(c), o.contains(c))
		def := lengths.contains(strLen(c))
		switch {
		case actual && !def:
			if out.incl == nil {
				out.incl = make(map[string]struct{})
			}
			out.incl[c] = struct{}{}
		case !actual && def:
			if out.excl == nil {
				out.excl = make(map[string]struct{})
			}
			out.excl[c] = struct{}{}
		}
	}
	return out
}

func (s strSet) intersect(o strSet) strSet {
	return s.combine(o, s.lengths.intersect(o.lengths), func(a, b bool) bool { return a && b })
}

func (s strSet) union(o strSet) strSet {
	return s.combine(o, s.lengths.union(o.lengths), func(a, b bool) bool { return a || b })
}

func (s strSet) complement() strSet {
	lengths := s.lengths.complement().intersect(allLengths())
	return s.combine(s, lengths, func(a, _ bool) bool { return !a })
}

func (s strSet) onlyEmptyLength() bool {
	return len(s.lengths.ivs) == 1 &&
		s.lengths.ivs[0].lo.v != nil && s.lengths.ivs[0].lo.v.Sign() == 0 &&
		s.lengths.ivs[0].hi.v != nil && s.lengths.ivs[0].hi.v.Sign() == 0
}

func (s strSet) isEmpty() bool {
	n, finite := s.count()
	return finite && n == 0
}

// count treats any non-zero admissible length as infinitely many strings.
func (s strSet) count() (int, bool) {
	switch {
	case s.lengths.isEmpty():
		return len(s.incl), true
	case s.onlyEmptyLength():
		n := len(s.incl)
		if _, ok := s.excl[""]; !ok {
			n++
		}
		return n, true
	}
	return 0, false
}

func (s strSet) enumerate(limit int) []string {
	out := make([]string, 0, len(s.incl)+1)
	for k := range s.incl {
		out = append(out, k)
	}
	if s.onlyEmptyLength() {
		if _, ok := s.excl[""]; !ok {
			out = append(out, "")
		}
	}
	sort.Strings(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
