package datatype

import (
	"math"
	"math/big"
)

const (
	boolFalse uint8 = 1 << iota
	boolTrue
)

// Set is a set of data values. The zero Set is not valid; use Empty or Full.
type Set struct {
	ints    ratSet
	fracs   ratSet
	doubles ratSet
	strs    strSet
	bools   uint8
}

// Empty returns the empty value set.
func Empty() Set {
	return Set{
		ints:    emptyRats(true, false),
		fracs:   emptyRats(false, true),
		doubles: emptyRats(false, false),
		strs:    emptyStrings(),
	}
}

// Full returns the set of all data values.
func Full() Set {
	return Set{
		ints:    fullRats(true, false),
		fracs:   fullRats(false, true),
		doubles: fullRats(false, false),
		strs:    fullStrings(),
		bools:   boolFalse | boolTrue,
	}
}

// Singleton returns {v}.
func Singleton(v Value) Set {
	s := Empty()
	switch v.Family {
	case FamilyInt:
		s.ints = pointRats(true, false, v.Num)
	case FamilyFrac:
		s.fracs = pointRats(false, true, v.Num)
	case FamilyDouble:
		s.doubles = pointRats(false, false, v.Num)
	case FamilyString:
		s.strs = singleString(v.Str)
	case FamilyBool:
		if v.Bool {
			s.bools = boolTrue
		} else {
			s.bools = boolFalse
		}
	}
	return s
}

// Intersect returns s ∩ o.
func (s Set) Intersect(o Set) Set {
	return Set{
		ints:    s.ints.intersect(o.ints),
		fracs:   s.fracs.intersect(o.fracs),
		doubles: s.doubles.intersect(o.doubles),
		strs:    s.strs.intersect(o.strs),
		bools:   s.bools & o.bools,
	}
}

// Union returns s ∪ o.
func (s Set) Union(o Set) Set {
	return Set{
		ints:    s.ints.union(o.ints),
		fracs:   s.fracs.union(o.fracs),
		doubles: s.doubles.union(o.doubles),
		strs:    s.strs.union(o.strs),
		bools:   s.bools | o.bools,
	}
}

// Complement returns the values not in s.
func (s Set) Complement() Set {
	return Set{
		ints:    s.ints.complement(),
		fracs:   s.fracs.complement(),
		doubles: s.doubles.complement(),
		strs:    s.strs.complement(),
		bools:   ^s.bools & (boolFalse | boolTrue),
	}
}

// IsEmpty reports whether s has no members.
func (s Set) IsEmpty() bool {
	return s.ints.isEmpty() && s.fracs.isEmpty() && s.doubles.isEmpty() &&
		s.strs.isEmpty() && s.bools == 0
}

// Contains reports membership of v.
func (s Set) Contains(v Value) bool {
	switch v.Family {
	case FamilyInt:
		return s.ints.contains(v.Num)
	case FamilyFrac:
		return s.fracs.contains(v.Num)
	case FamilyDouble:
		return s.doubles.contains(v.Num)
	case FamilyString:
		return s.strs.contains(v.Str)
	case FamilyBool:
		if v.Bool {
			return s.bools&boolTrue != 0
		}
		return s.bools&boolFalse != 0
	}
	return false
}

// Count returns the number of members, or false when s is infinite.
// Very large finite sets report math.MaxInt32.
func (s Set) Count() (int, bool) {
	total := 0
	for _, part := range []func() (int, bool){s.ints.count, s.fracs.count, s.doubles.count, s.strs.count} {
		n, finite := part()
		if !finite {
			return 0, false
		}
		total += n
	}
	if s.bools&boolFalse != 0 {
		total++
	}
	if s.bools&boolTrue != 0 {
		total++
	}
	if total > math.MaxInt32 {
		total = math.MaxInt32
	}
	return total, true
}

// Enumerate lists up to limit members of a finite set.
func (s Set) Enumerate(limit int) []Value {
	var out []Value
	add := func(v Value) bool {
		if len(out) >= limit {
			return false
		}
		out = append(out, v)
		return true
	}
	for _, r := range s.ints.enumerate(limit) {
		add(Value{Family: FamilyInt, Num: r})
	}
	for _, r := range s.fracs.enumerate(limit) {
		add(Value{Family: FamilyFrac, Num: r})
	}
	for _, r := range s.doubles.enumerate(limit) {
		add(Value{Family: FamilyDouble, Num: r})
	}
	for _, str := range s.strs.enumerate(limit) {
		add(String(str))
	}
	if s.bools&boolFalse != 0 {
		add(Bool(false))
	}
	if s.bools&boolTrue != 0 {
		add(Bool(true))
	}
	return out
}

// numericRange restricts all numeric families to an interval.
func numericRange(lo, hi bound) Set {
	s := Empty()
	iv := []interval{{lo: lo, hi: hi}}
	s.ints = ratSet{discrete: true, ivs: iv}.normalize()
	s.fracs = ratSet{fracOnly: true, ivs: iv}.normalize()
	s.doubles = ratSet{ivs: iv}.normalize()
	return s
}

// hasNumeric reports whether any numeric family is non-empty.
func (s Set) hasNumeric() bool {
	return !s.ints.isEmpty() || !s.fracs.isEmpty() || !s.doubles.isEmpty()
}

func (s Set) hasStrings() bool { return !s.strs.isEmpty() }

func ratBound(r *big.Rat, open bool) bound { return bound{v: r, open: open} }
