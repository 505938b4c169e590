// Package dlk is a description logic reasoning kernel. A Kernel holds one
// knowledge base: an expression registry, the told axioms and the
// reasoning state derived from them, kept in step by a synchronization
// controller.
package dlk

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cognicore/dlk/pkg/dlk/axiom"
	"github.com/cognicore/dlk/pkg/dlk/config"
	"github.com/cognicore/dlk/pkg/dlk/datatype"
	"github.com/cognicore/dlk/pkg/dlk/expr"
	"github.com/cognicore/dlk/pkg/dlk/internalerr"
	"github.com/cognicore/dlk/pkg/dlk/metrics"
	"github.com/cognicore/dlk/pkg/dlk/rbox"
	"github.com/cognicore/dlk/pkg/dlk/store"
	"github.com/cognicore/dlk/pkg/dlk/syncstate"
	"github.com/cognicore/dlk/pkg/dlk/tableau"
	"github.com/cognicore/dlk/pkg/dlk/taxonomy"
	"github.com/cognicore/dlk/pkg/dlk/tbox"
)

// Kernel is the reasoning facade. It is not safe for concurrent use.
type Kernel struct {
	cfg     config.Config
	log     *zap.Logger
	metrics *metrics.Metrics
	mon     taxonomy.Monitor
	journal store.Store
	ids     *store.IDSource

	catalog   *datatype.Catalog
	reg       *expr.Registry
	dt        *datatype.Compiler
	validator *axiom.Validator
	axioms    *axiom.Store
	roles     *roleIndex
	reasoner  *tableau.Reasoner
	sync      *syncstate.Controller

	// Derived state, valid while the controller is in sync.
	builder *tbox.Builder
	rb      *rbox.RBox
	tb      *tbox.TBox
	tax     *taxonomy.Taxonomy
	real    *taxonomy.Realization

	lastChange string
	lastStats  tableau.Stats
}

// Options configures a Kernel
type Options struct {
	Config config.Config
	// Logger defaults to a no-op logger.
	Logger *zap.Logger
	// Metrics may be nil.
	Metrics *metrics.Metrics
	// Monitor receives classification and realization progress.
	Monitor taxonomy.Monitor
	// Journal records committed changes and taxonomy snapshots. It may be
	// nil; the kernel closes it on Close.
	Journal store.Store
}

// New creates a Kernel with an empty knowledge base.
func New(opts Options) (*Kernel, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	catalog, err := datatype.NewCatalog(opts.Config.SupportedDatatypes)
	if err != nil {
		return nil, fmt.Errorf("supported datatypes: %w", err)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	mon := opts.Monitor
	if mon == nil {
		mon = taxonomy.NopMonitor{}
	}
	k := &Kernel{
		cfg:     opts.Config,
		log:     log,
		metrics: opts.Metrics,
		mon:     mon,
		journal: opts.Journal,
		ids:     store.NewIDSource(),
		catalog: catalog,
	}
	if err := k.init(); err != nil {
		return nil, err
	}
	k.sync = syncstate.New(engine{k}, syncstate.Options{
		Incremental:  k.cfg.Incremental,
		AutoSync:     k.cfg.AutoSync,
		Logger:       log.Named("sync"),
		OnTransition: k.transition,
	})
	return k, nil
}

// init creates the registry and everything that refers to it.
func (k *Kernel) init() error {
	k.reg = expr.NewRegistry()
	k.dt = datatype.NewCompiler(k.reg, k.catalog)
	k.validator = axiom.NewValidator(k.reg, k.dt)
	k.axioms = axiom.NewStore()
	k.roles = newRoleIndex(k.reg)
	reasoner, err := tableau.New(k.reg, k.dt, tableau.OptionsFrom(k.cfg))
	if err != nil {
		return err
	}
	k.reasoner = reasoner
	k.builder, k.rb, k.tb, k.tax, k.real = nil, nil, nil, nil, nil
	k.lastStats = tableau.Stats{}
	return nil
}

// Close releases the journal.
func (k *Kernel) Close() error {
	if k.journal == nil {
		return nil
	}
	return k.journal.Close()
}

// Expr returns the expression registry of the knowledge base. Handles from
// it stay valid until Reset.
func (k *Kernel) Expr() *expr.Registry { return k.reg }

// Config returns the configuration the kernel was built with.
func (k *Kernel) Config() config.Config { return k.cfg }

// State returns the synchronization state.
func (k *Kernel) State() syncstate.State { return k.sync.State() }

// Axioms returns the number of committed axioms.
func (k *Kernel) Axioms() int { return k.axioms.Len() }

// Axiom returns a committed axiom by handle.
func (k *Kernel) Axiom(h axiom.Handle) (axiom.Axiom, bool) { return k.axioms.Get(h) }

func (k *Kernel) transition(from, to syncstate.State, e syncstate.Event) {
	k.metrics.Transition(to.String(), int(to))
}

// Reset discards the registry, every axiom and all reasoning state, and
// clears a failure. Handles issued before Reset must not be reused.
func (k *Kernel) Reset() error {
	if err := k.init(); err != nil {
		return err
	}
	k.sync.Reset()
	k.metrics.Axiom("reset", nil, 0)
	k.log.Info("knowledge base reset")
	return nil
}

// Tell validates and adds an axiom. Outside a batch it is committed at
// once; inside one it becomes visible at EndChanges.
func (k *Kernel) Tell(ax axiom.Axiom) (h axiom.Handle, err error) {
	defer func() { k.metrics.Axiom("tell", err, k.axioms.Len()) }()
	if k.sync.State() == syncstate.Fail {
		return 0, k.sync.Err()
	}
	record, err := k.admit(ax)
	if err != nil {
		if k.cfg.LogSkippedAxioms {
			k.log.Warn("axiom rejected",
				zap.String("axiom", ax.String(k.reg)),
				zap.String("kind", internalerr.KindOf(err).String()),
				zap.Error(err))
		}
		return 0, err
	}
	h = k.axioms.Tell(ax)
	record(h)
	if !k.axioms.InBatch() {
		if err := k.commit(context.Background()); err != nil {
			return h, err
		}
	}
	return h, nil
}

// admit runs every tell-time check: operand sorts and datatypes, TBox
// normalisation, and role regularity and simplicity against the axioms the
// tell would join. The returned function records an admitted axiom.
func (k *Kernel) admit(ax axiom.Axiom) (func(axiom.Handle), error) {
	if err := k.validator.Validate(ax); err != nil {
		return nil, err
	}
	if err := tbox.Check(k.reg, ax); err != nil {
		return nil, err
	}
	return k.roles.admit(ax, k.axioms.Effective)
}

// Retract removes a committed axiom, or one told in the open batch.
func (k *Kernel) Retract(h axiom.Handle) (err error) {
	defer func() { k.metrics.Axiom("retract", err, k.axioms.Len()) }()
	if k.sync.State() == syncstate.Fail {
		return k.sync.Err()
	}
	if _, err := k.axioms.Retract(h); err != nil {
		return err
	}
	k.roles.invalidate()
	if !k.axioms.InBatch() {
		return k.commit(context.Background())
	}
	return nil
}

// StartChanges opens a batch. Tells and retracts are held back until
// EndChanges commits them as one change.
func (k *Kernel) StartChanges() error {
	if k.sync.State() == syncstate.Fail {
		return k.sync.Err()
	}
	return k.axioms.Start()
}

// EndChanges commits the open batch.
func (k *Kernel) EndChanges(ctx context.Context) error {
	if k.sync.State() == syncstate.Fail {
		return k.sync.Err()
	}
	cs, err := k.axioms.End()
	if err != nil {
		return err
	}
	if len(cs.Added) == 0 && len(cs.Removed) == 0 {
		return nil
	}
	return k.commit(ctx)
}

// AbortChanges discards the open batch.
func (k *Kernel) AbortChanges() error {
	if err := k.axioms.Abort(); err != nil {
		return err
	}
	k.roles.invalidate()
	return nil
}

// commit marks the knowledge base dirty and journals the change sets
// committed since the last call.
func (k *Kernel) commit(ctx context.Context) error {
	if err := k.sync.Changed(); err != nil {
		return err
	}
	k.real = nil
	for _, cs := range k.axioms.DrainCommits() {
		if len(cs.Added) == 0 && len(cs.Removed) == 0 {
			continue
		}
		k.lastChange = cs.ID
		if k.journal == nil {
			continue
		}
		if err := k.journal.AppendChange(ctx, k.changeRecord(cs)); err != nil {
			// The axioms are committed either way; only the history is short.
			k.log.Error("journal append failed", zap.String("change", cs.ID), zap.Error(err))
		}
	}
	return nil
}

func (k *Kernel) changeRecord(cs axiom.ChangeSet) store.Change {
	c := store.Change{ID: cs.ID, At: cs.Committed}
	for _, e := range cs.Added {
		c.Added = append(c.Added, store.AxiomRecord{
			Handle: uint64(e.Handle),
			Kind:   e.Axiom.Kind.String(),
			Text:   e.Axiom.String(k.reg),
		})
	}
	for _, e := range cs.Removed {
		c.Removed = append(c.Removed, uint64(e.Handle))
	}
	return c
}

// Sync brings the reasoner in line with the committed axioms without
// classifying.
func (k *Kernel) Sync(ctx context.Context) (err error) {
	defer k.finish("sync", time.Now(), &err)
	ctx, cancel := k.deadline(ctx)
	defer cancel()
	return k.sync.Sync(ctx)
}

// Classify computes the class taxonomy.
func (k *Kernel) Classify(ctx context.Context) (err error) {
	defer k.finish("classify", time.Now(), &err)
	ctx, cancel := k.deadline(ctx)
	defer cancel()
	return k.sync.Classify(ctx)
}

// Realize classifies and computes the most specific types of every
// individual.
func (k *Kernel) Realize(ctx context.Context) (err error) {
	defer k.finish("realize", time.Now(), &err)
	ctx, cancel, err := k.begin(ctx, true)
	if err != nil {
		return err
	}
	defer cancel()
	return k.realized(ctx, k.reg.Entities(expr.KindIndividual)...)
}

// Taxonomy returns the class taxonomy, or nil when the knowledge base is
// not classified.
func (k *Kernel) Taxonomy() *taxonomy.Taxonomy {
	if k.sync.State() != syncstate.ClassifiedInSync {
		return nil
	}
	return k.tax
}

// Realization returns the individual types computed by Realize, or nil.
func (k *Kernel) Realization() *taxonomy.Realization {
	if k.sync.State() != syncstate.ClassifiedInSync {
		return nil
	}
	return k.real
}

// deadline applies the configured timeout on top of ctx.
func (k *Kernel) deadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if k.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, k.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

// begin prepares a query: it applies the timeout and brings the knowledge
// base in sync, and classified when classified is set.
func (k *Kernel) begin(ctx context.Context, classified bool) (context.Context, context.CancelFunc, error) {
	ctx, cancel := k.deadline(ctx)
	if err := k.sync.Ready(ctx, classified); err != nil {
		cancel()
		return nil, nil, err
	}
	return ctx, cancel, nil
}

// finish records a finished operation. Engine panics and fatal errors
// move the knowledge base to FAIL.
func (k *Kernel) finish(op string, start time.Time, errp *error) {
	if r := recover(); r != nil {
		*errp = fmt.Errorf("%w: %s: panic: %v", internalerr.ErrFatal, op, r)
	}
	if err := *errp; err != nil && internalerr.KindOf(err) == internalerr.KindFatal {
		*errp = k.sync.Fail(err)
	}
	k.metrics.Query(op, *errp)
	k.metrics.Observe(op, start)

	s := k.reasoner.Stats()
	if s.Tests < k.lastStats.Tests || s.CacheHits < k.lastStats.CacheHits {
		k.lastStats = tableau.Stats{}
	}
	k.metrics.Tableau(s.Tests-k.lastStats.Tests, s.CacheHits-k.lastStats.CacheHits)
	k.lastStats = s
}
