// Package tbox normalises class axioms and assertions into the form the
// tableau consumes: lazily unfolded definitions, absorbed inclusions,
// role domains and ranges, residual global constraints and the ABox.
package tbox

import (
	"sort"

	"github.com/cognicore/dlk/pkg/dlk/expr"
	"github.com/cognicore/dlk/pkg/dlk/rbox"
)

// Features summarises the expressivity the compiled knowledge base uses.
type Features struct {
	Inverse  bool
	Number   bool
	Nominals bool
	Data     bool
	Self     bool
	// InverseFlow holds when a restriction can follow an edge backwards,
	// see rbox.RBox.InverseInteraction.
	InverseFlow bool
}

// Edge is a told role assertion.
type Edge struct {
	From, To expr.Handle
	Role     rbox.Role
}

// ABox holds the normalised assertions.
type ABox struct {
	Individuals []expr.Handle
	Types       map[expr.Handle][]expr.Handle
	Edges       []Edge
	Different   [][2]expr.Handle
}

// Empty reports whether there are no individuals.
func (a ABox) Empty() bool { return len(a.Individuals) == 0 }

// TBox is the compiled knowledge base. Every concept is in negation normal
// form.
type TBox struct {
	RBox *rbox.RBox

	// Unfold maps a class name to the concepts implied by it.
	Unfold map[expr.Handle][]expr.Handle
	// NegUnfold maps a uniquely defined class name to the concepts implied
	// by its negation.
	NegUnfold map[expr.Handle][]expr.Handle
	// Nominal maps an individual to the concepts implied by {a}.
	Nominal map[expr.Handle][]expr.Handle
	// Globals hold on every node.
	Globals []expr.Handle

	ABox     ABox
	Features Features
	// Restricted lists the object roles that restrictions mention.
	Restricted []rbox.Role

	domains     map[rbox.Role][]expr.Handle
	dataDomains map[rbox.DataRole][]expr.Handle
	dataRanges  map[rbox.DataRole][]expr.Handle

	domainCache     map[rbox.Role][]expr.Handle
	dataDomainCache map[rbox.DataRole][]expr.Handle
	dataRangeCache  map[rbox.DataRole][]expr.Handle
}

// Domain returns the concepts that hold at x whenever x has an r-edge,
// inherited from every super-role of r.
func (t *TBox) Domain(r rbox.Role) []expr.Handle {
	if out, ok := t.domainCache[r]; ok {
		return out
	}
	var out []expr.Handle
	for s, cs := range t.domains {
		if t.RBox.IsSubRole(r, s) {
			out = append(out, cs...)
		}
	}
	out = dedupe(out)
	t.domainCache[r] = out
	return out
}

// DataDomain returns the concepts implied by having a u-value.
func (t *TBox) DataDomain(u rbox.DataRole) []expr.Handle {
	if out, ok := t.dataDomainCache[u]; ok {
		return out
	}
	var out []expr.Handle
	for v, cs := range t.dataDomains {
		if t.RBox.IsSubDataRole(u, v) {
			out = append(out, cs...)
		}
	}
	out = dedupe(out)
	t.dataDomainCache[u] = out
	return out
}

// DataRange returns the data ranges every u-value must belong to.
func (t *TBox) DataRange(u rbox.DataRole) []expr.Handle {
	if out, ok := t.dataRangeCache[u]; ok {
		return out
	}
	var out []expr.Handle
	for v, ds := range t.dataRanges {
		if t.RBox.IsSubDataRole(u, v) {
			out = append(out, ds...)
		}
	}
	out = dedupe(out)
	t.dataRangeCache[u] = out
	return out
}

// dedupe sorts hs and drops repeats.
func dedupe(hs []expr.Handle) []expr.Handle {
	if len(hs) < 2 {
		return hs
	}
	sort.Slice(hs, func(i, j int) bool { return hs[i] < hs[j] })
	seen := make(map[expr.Handle]bool, len(hs))
	out := hs[:0]
	for _, h := range hs {
		if !seen[h] {
			seen[h] = true
			out = append(out, h)
		}
	}
	return out
}
