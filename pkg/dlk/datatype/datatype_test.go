package datatype

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/dlk/pkg/dlk/expr"
	"github.com/cognicore/dlk/pkg/dlk/internalerr"
)

func TestParse(t *testing.T) {
	tests := []struct {
		lexical  string
		datatype string
		wantKey  string
		wantErr  bool
	}{
		{"42", "xsd:integer", "int:42", false},
		{"+7", "xsd:integer", "int:7", false},
		{"2.0", "xsd:decimal", "int:2", false},
		{"1.5", "xsd:decimal", "frac:3/2", false},
		{"1e3", "xsd:decimal", "", true},
		{"1.5", "xsd:integer", "", true},
		{"-1", "xsd:nonNegativeInteger", "", true},
		{"3000000000", "xsd:int", "", true},
		{"0.5", "xsd:double", "double:1/2", false},
		{"NaN", "xsd:double", "", true},
		{"1", "xsd:boolean", "bool:true", false},
		{"yes", "xsd:boolean", "", true},
		{"abc", "xsd:string", "string:abc", false},
		{"abc", "xsd:hexBinary", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.datatype+"/"+tt.lexical, func(t *testing.T) {
			v, err := Parse(tt.lexical, tt.datatype)
			if tt.wantErr {
				if !errors.Is(err, internalerr.ErrUnsupported) {
					t.Fatalf("Expected ErrUnsupported, got %v", err)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKey, v.Key())
		})
	}
}

func TestIntegerRanges(t *testing.T) {
	base := builtins["xsd:integer"].set
	s, err := Restrict(base, FacetMinInclusive, Int(1))
	require.NoError(t, err)
	s, err = Restrict(s, FacetMaxExclusive, Int(4))
	require.NoError(t, err)

	n, finite := s.Count()
	assert.True(t, finite)
	assert.Equal(t, 3, n)
	assert.True(t, s.Contains(Int(3)))
	assert.False(t, s.Contains(Int(4)))

	vals := s.Enumerate(10)
	require.Len(t, vals, 3)
	assert.Equal(t, "int:1", vals[0].Key())
}

func TestComplementLaws(t *testing.T) {
	ints, _ := Restrict(builtins["xsd:integer"].set, FacetMaxInclusive, Int(3))
	sets := []Set{
		ints,
		Singleton(String("x")),
		Singleton(Bool(true)),
		builtins["xsd:decimal"].set,
		Empty(),
	}
	for _, s := range sets {
		assert.True(t, s.Intersect(s.Complement()).IsEmpty())
		assert.False(t, s.Union(s.Complement()).IsEmpty())
		_, finite := s.Union(s.Complement()).Count()
		assert.False(t, finite)
	}
}

func TestDecimalPoints(t *testing.T) {
	half, err := Parse("1.5", "xsd:decimal")
	require.NoError(t, err)
	s := Singleton(half)

	n, finite := s.Count()
	assert.True(t, finite)
	assert.Equal(t, 1, n)

	// Non-integers between 1 and 2 are infinitely many.
	open, _ := Restrict(builtins["xsd:decimal"].set, FacetMinExclusive, Int(1))
	open, _ = Restrict(open, FacetMaxExclusive, Int(2))
	_, finite = open.Count()
	assert.False(t, finite)
	assert.True(t, open.Contains(half))
}

func TestStringLengths(t *testing.T) {
	empty, err := Restrict(builtins["xsd:string"].set, FacetLength, Int(0))
	require.NoError(t, err)
	n, finite := empty.Count()
	assert.True(t, finite)
	assert.Equal(t, 1, n)
	assert.True(t, empty.Contains(String("")))

	short, _ := Restrict(builtins["xsd:string"].set, FacetMaxLength, Int(2))
	assert.True(t, short.Contains(String("ab")))
	assert.False(t, short.Contains(String("abc")))

	notAB := short.Intersect(Singleton(String("ab")).Complement())
	assert.False(t, notAB.Contains(String("ab")))
	assert.True(t, notAB.Contains(String("ba")))

	_, err = Restrict(builtins["xsd:integer"].set, FacetMinLength, Int(1))
	assert.True(t, errors.Is(err, internalerr.ErrUnsupported))
}

func TestCompiler(t *testing.T) {
	reg := expr.NewRegistry()
	cat, err := NewCatalog([]string{"xsd:integer", "xsd:string"})
	require.NoError(t, err)
	c := NewCompiler(reg, cat)

	integer := reg.Datatype("xsd:integer")
	one, _ := reg.Literal("1", integer)
	three, _ := reg.Literal("3", integer)
	lo, _ := reg.Facet(FacetMinInclusive, one)
	hi, _ := reg.Facet(FacetMaxInclusive, three)
	small, err := reg.Restriction(integer, lo, hi)
	require.NoError(t, err)

	s, err := c.Range(small)
	require.NoError(t, err)
	n, finite := s.Count()
	assert.True(t, finite)
	assert.Equal(t, 3, n)

	notSmall, _ := reg.DataNot(small)
	both, _ := reg.DataAnd(small, notSmall)
	s, err = c.Range(both)
	require.NoError(t, err)
	assert.True(t, s.IsEmpty())

	t.Run("unsupported datatype", func(t *testing.T) {
		_, err := c.Range(reg.Datatype("xsd:double"))
		assert.True(t, errors.Is(err, internalerr.ErrUnsupported))
	})

	t.Run("pattern facet", func(t *testing.T) {
		str := reg.Datatype("xsd:string")
		pat, _ := reg.Literal("a*", str)
		f, _ := reg.Facet("xsd:pattern", pat)
		r, _ := reg.Restriction(str, f)
		_, err := c.Range(r)
		assert.True(t, errors.Is(err, internalerr.ErrUnsupported))
	})

	t.Run("unknown datatype in catalog", func(t *testing.T) {
		_, err := NewCatalog([]string{"xsd:gYear"})
		assert.True(t, errors.Is(err, internalerr.ErrInvalidConfig))
	})
}
