package kbfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/dlk/pkg/dlk/axiom"
	"github.com/cognicore/dlk/pkg/dlk/expr"
	"github.com/cognicore/dlk/pkg/dlk/internalerr"
)

const family = `
name: family
classes: [Person, Parent, Orphan]
object_properties: [hasChild, hasParent]
data_properties: [age]
individuals: [ann, bob]
axioms:
  - EquivalentClasses: [Parent, {and: [Person, {some: [hasChild, Person]}]}]
  - InverseObjectProperties: [hasChild, hasParent]
  - SubClassOf: [Orphan, {max: [0, hasParent]}]
  - SubObjectPropertyOf: [{chain: [hasParent, hasParent]}, hasParent]
  - FunctionalDataProperty: age
  - DataPropertyRange: [age, {restriction: {datatype: xsd:integer, facets: {xsd:minInclusive: "0"}}}]
  - ClassAssertion: [ann, Person]
  - ObjectPropertyAssertion: [hasChild, ann, bob]
  - DataPropertyAssertion: [age, ann, 42^^xsd:integer]
  - DataPropertyAssertion: [age, bob, {literal: "7", datatype: xsd:integer}]
  - DifferentIndividuals: [ann, bob]
`

func TestBuild(t *testing.T) {
	f, err := Parse([]byte(family))
	require.NoError(t, err)
	assert.Equal(t, "family", f.Name)

	reg := expr.NewRegistry()
	axs, err := f.Build(reg)
	require.NoError(t, err)
	require.Len(t, axs, 8+11)

	for _, ax := range axs[:8] {
		assert.Equal(t, axiom.Declaration, ax.Kind)
	}

	person, parent := reg.Class("Person"), reg.Class("Parent")
	hasChild := reg.ObjectProperty("hasChild")
	some, err := reg.Some(hasChild, person)
	require.NoError(t, err)
	def, err := reg.And(person, some)
	require.NoError(t, err)
	assert.Equal(t, axiom.Equivalent(parent, def), axs[8])

	orphan := axs[10]
	assert.Equal(t, axiom.SubClassOf, orphan.Kind)
	assert.Equal(t, 0, reg.Card(orphan.Args[1]))
	assert.Equal(t, expr.Top, reg.Arg(orphan.Args[1], 1))

	assert.Equal(t, expr.SortRoleChain, reg.Sort(axs[11].Args[0]))
	assert.Equal(t, expr.OpRestriction, reg.Op(axs[13].Args[1]))

	lit := axs[16].Args[2]
	assert.Equal(t, "42", reg.Key(lit))
	assert.Equal(t, lit, func() expr.Handle {
		h, err := reg.Literal("42", reg.Datatype("xsd:integer"))
		require.NoError(t, err)
		return h
	}())
	assert.Equal(t, "7", reg.Key(axs[17].Args[2]))
}

func TestBuildValidatesWithAxiomShapes(t *testing.T) {
	reg := expr.NewRegistry()
	f, err := Parse([]byte(family))
	require.NoError(t, err)
	axs, err := f.Build(reg)
	require.NoError(t, err)

	for _, ax := range axs {
		for i, h := range ax.Args {
			if ax.Kind == axiom.Declaration || ax.Kind == axiom.SubObjectPropertyOf {
				continue
			}
			assert.Equal(t, axiom.OperandSort(ax.Kind, i), reg.Sort(h), "%s operand %d", ax.Kind, i)
		}
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown kind", "axioms:\n  - SubClassOff: [A, B]\n"},
		{"declaration", "axioms:\n  - Declaration: A\n"},
		{"two keys", "axioms:\n  - {SubClassOf: [A, B], DisjointClasses: [A, B]}\n"},
		{"too many operands", "axioms:\n  - FunctionalObjectProperty: [r, s]\n"},
		{"unknown constructor", "axioms:\n  - SubClassOf: [A, {nand: [B, C]}]\n"},
		{"bad cardinality", "axioms:\n  - SubClassOf: [A, {min: [x, r, B]}]\n"},
		{"missing filler", "axioms:\n  - SubClassOf: [A, {some: [r]}]\n"},
		{"individual constructor", "axioms:\n  - ClassAssertion: [{not: a}, B]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Parse([]byte(tt.doc))
			require.NoError(t, err)
			_, err = f.Build(expr.NewRegistry())
			require.Error(t, err)
			assert.True(t, errors.Is(err, internalerr.ErrUsage), "got %v", err)
		})
	}
}

func TestLoadNamesFileByPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.yaml")
	require.NoError(t, os.WriteFile(path, []byte("classes: [A]\n"), 0644))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, f.Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
