package tbox

import (
	"fmt"

	"github.com/cognicore/dlk/pkg/dlk/axiom"
	"github.com/cognicore/dlk/pkg/dlk/expr"
	"github.com/cognicore/dlk/pkg/dlk/internalerr"
)

// Builder tracks, per told axiom, the effects it contributed so that a
// retraction undoes exactly that contribution.
type Builder struct {
	reg     *expr.Registry
	effects map[axiom.Handle][]effect
	count   map[effect]int
}

// NewBuilder returns an empty builder.
func NewBuilder(reg *expr.Registry) *Builder {
	return &Builder{
		reg:     reg,
		effects: make(map[axiom.Handle][]effect),
		count:   make(map[effect]int),
	}
}

// Add records the effects of an axiom.
func (b *Builder) Add(e axiom.Entry) error {
	if _, ok := b.effects[e.Handle]; ok {
		return fmt.Errorf("axiom %d already applied: %w", e.Handle, internalerr.ErrUsage)
	}
	effs, err := effectsOf(b.reg, e.Axiom)
	if err != nil {
		return err
	}
	b.effects[e.Handle] = effs
	for _, f := range effs {
		b.count[f]++
	}
	return nil
}

// Remove undoes the effects of an axiom.
func (b *Builder) Remove(h axiom.Handle) error {
	effs, ok := b.effects[h]
	if !ok {
		return fmt.Errorf("axiom %d: %w", h, internalerr.ErrUnknownAxiom)
	}
	delete(b.effects, h)
	for _, f := range effs {
		if b.count[f]--; b.count[f] <= 0 {
			delete(b.count, f)
		}
	}
	return nil
}

// Apply removes then adds the entries of a delta.
func (b *Builder) Apply(d axiom.Delta) error {
	for _, e := range d.Removed {
		if err := b.Remove(e.Handle); err != nil {
			return err
		}
	}
	for _, e := range d.Added {
		if err := b.Add(e); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of applied axioms.
func (b *Builder) Len() int { return len(b.effects) }

// Effects returns the number of distinct live effects.
func (b *Builder) Effects() int { return len(b.count) }
