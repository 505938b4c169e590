// Package datatype implements the concrete domain: literal values, the
// supported datatype catalog and a value-set algebra closed under
// intersection, union and complement.
package datatype

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/cognicore/dlk/pkg/dlk/internalerr"
)

// Family partitions the value space into disjoint parts.
type Family uint8

const (
	FamilyNone Family = iota
	// FamilyInt holds integer-valued decimals.
	FamilyInt
	// FamilyFrac holds decimals with a non-zero fractional part.
	FamilyFrac
	FamilyDouble
	FamilyString
	FamilyBool
)

func (f Family) String() string {
	switch f {
	case FamilyInt:
		return "int"
	case FamilyFrac:
		return "frac"
	case FamilyDouble:
		return "double"
	case FamilyString:
		return "string"
	case FamilyBool:
		return "bool"
	default:
		return "none"
	}
}

// Value is a parsed literal.
type Value struct {
	Family Family
	Num    *big.Rat
	Str    string
	Bool   bool
}

// Key returns a canonical identity. Equal values have equal keys.
func (v Value) Key() string {
	switch v.Family {
	case FamilyInt, FamilyFrac, FamilyDouble:
		return v.Family.String() + ":" + v.Num.RatString()
	case FamilyString:
		return "string:" + v.Str
	case FamilyBool:
		return "bool:" + strconv.FormatBool(v.Bool)
	}
	return "none:"
}

func (v Value) String() string {
	switch v.Family {
	case FamilyInt:
		return v.Num.RatString()
	case FamilyFrac:
		return v.Num.FloatString(10)
	case FamilyDouble:
		f, _ := v.Num.Float64()
		return strconv.FormatFloat(f, 'g', -1, 64)
	case FamilyString:
		return strconv.Quote(v.Str)
	case FamilyBool:
		return strconv.FormatBool(v.Bool)
	}
	return "<none>"
}

// IsNumeric reports whether v belongs to one of the numeric families.
func (v Value) IsNumeric() bool {
	return v.Family == FamilyInt || v.Family == FamilyFrac || v.Family == FamilyDouble
}

func numValue(r *big.Rat) Value {
	if r.IsInt() {
		return Value{Family: FamilyInt, Num: r}
	}
	return Value{Family: FamilyFrac, Num: r}
}

// Int returns an integer value.
func Int(n int64) Value { return Value{Family: FamilyInt, Num: new(big.Rat).SetInt64(n)} }

// String returns a string value.
func String(s string) Value { return Value{Family: FamilyString, Str: s} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{Family: FamilyBool, Bool: b} }

func isDecimalLexical(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '+' || s[0] == '-' {
		s = s[1:]
	}
	digits, dots := 0, 0
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
			digits++
		case c == '.':
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}

// Parse maps a lexical form of a built-in datatype to its value.
func Parse(lexical, datatype string) (Value, error) {
	def, ok := builtins[datatype]
	if !ok {
		return Value{}, fmt.Errorf("datatype %s: %w", datatype, internalerr.ErrUnsupported)
	}
	bad := func() (Value, error) {
		return Value{}, fmt.Errorf("lexical form %q of %s: %w", lexical, datatype, internalerr.ErrUnsupported)
	}

	var v Value
	switch def.lexical {
	case lexString:
		v = String(lexical)
	case lexBool:
		switch strings.TrimSpace(lexical) {
		case "true", "1":
			v = Bool(true)
		case "false", "0":
			v = Bool(false)
		default:
			return bad()
		}
	case lexInteger, lexDecimal:
		s := strings.TrimSpace(lexical)
		if !isDecimalLexical(s) || (def.lexical == lexInteger && strings.Contains(s, ".")) {
			return bad()
		}
		r, ok := new(big.Rat).SetString(strings.TrimPrefix(s, "+"))
		if !ok {
			return bad()
		}
		v = numValue(r)
	case lexDouble:
		f, err := strconv.ParseFloat(strings.TrimSpace(lexical), 64)
		if err != nil {
			return bad()
		}
		r := new(big.Rat)
		if r.SetFloat64(f) == nil {
			// NaN and infinities have no place in the interval algebra.
			return bad()
		}
		v = Value{Family: FamilyDouble, Num: r}
	}
	if !def.set.Contains(v) {
		return bad()
	}
	return v, nil
}
