package dlk

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cognicore/dlk/pkg/dlk/expr"
	"github.com/cognicore/dlk/pkg/dlk/internalerr"
	"github.com/cognicore/dlk/pkg/dlk/rbox"
	"github.com/cognicore/dlk/pkg/dlk/store"
	"github.com/cognicore/dlk/pkg/dlk/taxonomy"
	"github.com/cognicore/dlk/pkg/dlk/tbox"
)

// engine is the kernel as seen by the synchronization controller.
type engine struct{ k *Kernel }

// Load rebuilds the TBox from every committed axiom.
func (e engine) Load(ctx context.Context) error {
	k := e.k
	start := time.Now()
	b := tbox.NewBuilder(k.reg)
	live := k.axioms.Live()
	for _, en := range live {
		if err := b.Add(en); err != nil {
			return fmt.Errorf("%w: load axiom %d: %w", internalerr.ErrFatal, en.Handle, err)
		}
	}
	k.builder = b
	k.axioms.MarkSynced()
	if err := e.compile(); err != nil {
		return err
	}
	k.metrics.Sync("load")
	k.log.Info("knowledge base loaded",
		zap.Int("axioms", len(live)),
		zap.Int("effects", b.Effects()),
		zap.Duration("took", time.Since(start)))
	return nil
}

// Apply feeds the pending delta into the TBox builder.
func (e engine) Apply(ctx context.Context) error {
	k := e.k
	if k.builder == nil {
		return e.Load(ctx)
	}
	d := k.axioms.Delta()
	if err := k.builder.Apply(d); err != nil {
		return fmt.Errorf("%w: apply delta: %w", internalerr.ErrFatal, err)
	}
	k.axioms.MarkSynced()
	if err := e.compile(); err != nil {
		return err
	}
	k.metrics.Sync("apply")
	k.log.Info("delta applied", zap.Int("added", len(d.Added)), zap.Int("removed", len(d.Removed)))
	return nil
}

// compile rebuilds the RBox, normalises the TBox and hands it to the
// tableau, dropping every result derived from the previous one.
func (e engine) compile() error {
	k := e.k
	rb, err := rbox.Build(k.reg, k.axioms.Live())
	if err != nil {
		return fmt.Errorf("%w: role box: %w", internalerr.ErrFatal, err)
	}
	tb, err := k.builder.Compile(rb, tbox.Options{UseRangeDomain: k.cfg.UseRangeDomain})
	if err != nil {
		return fmt.Errorf("%w: compile: %w", internalerr.ErrFatal, err)
	}
	k.rb, k.tb = rb, tb
	k.reasoner.Load(tb)
	k.tax, k.real = nil, nil
	return nil
}

// Classify builds the taxonomy of every registered class.
func (e engine) Classify(ctx context.Context) error {
	k := e.k
	start := time.Now()
	classes := k.reg.Entities(expr.KindClass)
	tax, stats, err := taxonomy.Classify(ctx, k.reasoner, taxonomy.ToldSupers(k.reg, k.tb), k.mon, classes)
	if err != nil {
		return err
	}
	k.tax = tax
	k.log.Info("classified",
		zap.Int("classes", stats.Classes),
		zap.Int("tests", stats.Tests),
		zap.Int("told_hits", stats.ToldHits),
		zap.Int("unsatisfiable", stats.Unsatisfiable),
		zap.Duration("took", time.Since(start)))
	k.snapshot(ctx, store.KindTaxonomy)
	return nil
}

// realize computes the realization once per classified state.
func (k *Kernel) realize(ctx context.Context) error {
	if k.real != nil {
		return nil
	}
	start := time.Now()
	inds := k.reg.Entities(expr.KindIndividual)
	rz, err := taxonomy.Realize(ctx, k.reasoner, k.mon, k.tax, inds)
	if err != nil {
		return err
	}
	k.real = rz
	k.log.Info("realized",
		zap.Int("individuals", len(inds)),
		zap.Int("tests", rz.Tests()),
		zap.Duration("took", time.Since(start)))
	k.snapshot(ctx, store.KindRealization)
	return nil
}

// snapshot journals the current taxonomy or realization.
func (k *Kernel) snapshot(ctx context.Context, kind string) {
	if k.journal == nil || k.tax == nil {
		return
	}
	now := time.Now()
	snap := store.Snapshot{
		ID:       k.ids.New(now),
		ChangeID: k.lastChange,
		Kind:     kind,
		At:       now,
	}
	switch kind {
	case store.KindTaxonomy:
		for _, n := range k.tax.Nodes() {
			snap.Nodes = append(snap.Nodes, store.NodeRecord{
				ID:      n.ID,
				Members: k.keys(n.Members),
				Parents: append([]int(nil), n.Parents...),
			})
		}
	case store.KindRealization:
		for _, a := range k.real.Individuals() {
			rec := store.TypeRecord{Individual: k.reg.Key(a)}
			for _, syn := range k.real.Types(a, true) {
				rec.Types = append(rec.Types, k.keys(syn))
			}
			snap.Types = append(snap.Types, rec)
		}
	}
	if err := k.journal.PutSnapshot(ctx, snap); err != nil {
		k.log.Error("journal snapshot failed", zap.String("kind", kind), zap.Error(err))
	}
}

func (k *Kernel) keys(hs []expr.Handle) []string {
	out := make([]string, len(hs))
	for i, h := range hs {
		out[i] = k.reg.Key(h)
	}
	return out
}
