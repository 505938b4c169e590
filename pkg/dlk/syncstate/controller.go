package syncstate

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cognicore/dlk/pkg/dlk/internalerr"
)

// Engine is the reasoning side the controller keeps in sync.
type Engine interface {
	// Load discards all reasoning state and loads the whole axiom set.
	Load(ctx context.Context) error
	// Apply loads only the changes committed since the last sync.
	Apply(ctx context.Context) error
	// Classify computes the taxonomy of the loaded axiom set.
	Classify(ctx context.Context) error
}

// Options set the resync policy.
type Options struct {
	// Incremental applies deltas on resync instead of reloading.
	Incremental bool
	// AutoSync lets Ready resync and classify a dirty knowledge base.
	AutoSync bool
	Logger   *zap.Logger
	// OnTransition observes every state change.
	OnTransition func(from, to State, e Event)
}

// Controller owns the synchronization state of one knowledge base. It is
// not safe for concurrent use.
type Controller struct {
	eng   Engine
	opts  Options
	log   *zap.Logger
	state State
	err   error

	// applied is set when the pending changes reached the engine but
	// reclassification was aborted, so the state is still dirty.
	applied bool
}

// New returns a controller in state Empty.
func New(eng Engine, opts Options) *Controller {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{eng: eng, opts: opts, log: log}
}

// State returns the current state.
func (c *Controller) State() State { return c.state }

// Err returns the error that moved the controller to Fail.
func (c *Controller) Err() error { return c.err }

func (c *Controller) fire(e Event) error {
	from := c.state
	to, ok := Next(from, e)
	if !ok {
		return c.fail(fmt.Errorf("%w: %s in state %s", internalerr.ErrFatal, e, from))
	}
	c.state = to
	if from != to {
		c.log.Debug("sync transition",
			zap.Stringer("from", from),
			zap.Stringer("to", to),
			zap.Stringer("event", e))
	}
	if c.opts.OnTransition != nil {
		c.opts.OnTransition(from, to, e)
	}
	return nil
}

func (c *Controller) fail(err error) error {
	if !errors.Is(err, internalerr.ErrFatal) {
		err = fmt.Errorf("%w: %w", internalerr.ErrFatal, err)
	}
	from := c.state
	c.err = err
	c.state = Fail
	c.log.Error("knowledge base failed", zap.Stringer("from", from), zap.Error(err))
	if c.opts.OnTransition != nil {
		c.opts.OnTransition(from, Fail, Failure)
	}
	return err
}

// Fail moves the controller to Fail with err. Every later call returns err
// until Reset.
func (c *Controller) Fail(err error) error {
	if c.state == Fail {
		return c.err
	}
	return c.fail(err)
}

// abort keeps the current state for retryable errors and fails otherwise.
func (c *Controller) abort(err error) error {
	if internalerr.Retryable(err) {
		c.log.Debug("sync aborted", zap.Stringer("state", c.state), zap.Error(err))
		return err
	}
	return c.fail(err)
}

// Changed records a committed tell or retract.
func (c *Controller) Changed() error {
	if c.state == Fail {
		return c.err
	}
	c.applied = false
	return c.fire(Change)
}

// Sync brings the engine in line with the axiom set. A classified knowledge
// base is reclassified; if it turns out inconsistent it becomes
// unclassified instead.
func (c *Controller) Sync(ctx context.Context) error {
	switch c.state {
	case Fail:
		return c.err
	case UnclassifiedInSync, ClassifiedInSync:
		return nil
	case Empty:
		if err := c.eng.Load(ctx); err != nil {
			return c.abort(err)
		}
		return c.fire(Load)
	}

	if !c.applied {
		var err error
		if c.opts.Incremental {
			err = c.eng.Apply(ctx)
		} else {
			c.log.Info("full reload")
			err = c.eng.Load(ctx)
		}
		if err != nil {
			return c.abort(err)
		}
		c.applied = true
	}
	if c.state == ClassifiedDirty {
		if err := c.eng.Classify(ctx); err != nil {
			if internalerr.KindOf(err) == internalerr.KindInconsistentKB {
				c.applied = false
				c.log.Info("taxonomy dropped", zap.Error(err))
				return c.fire(Declassify)
			}
			return c.abort(err)
		}
	}
	c.applied = false
	return c.fire(Resync)
}

// Classify syncs and computes the taxonomy. An inconsistent knowledge base
// stays unclassified and the error is returned.
func (c *Controller) Classify(ctx context.Context) error {
	if err := c.Sync(ctx); err != nil {
		return err
	}
	if c.state == ClassifiedInSync {
		return nil
	}
	if err := c.eng.Classify(ctx); err != nil {
		if internalerr.KindOf(err) == internalerr.KindInconsistentKB {
			return err
		}
		return c.abort(err)
	}
	return c.fire(Classify)
}

// Ready prepares the knowledge base for a query. With AutoSync off a
// knowledge base that is not in sync, or not classified when classified is
// requested, yields ErrNotSynced.
func (c *Controller) Ready(ctx context.Context, classified bool) error {
	if c.state == Fail {
		return c.err
	}
	if c.state.InSync() && (!classified || c.state == ClassifiedInSync) {
		return nil
	}
	if !c.opts.AutoSync {
		return fmt.Errorf("state %s: %w", c.state, internalerr.ErrNotSynced)
	}
	if classified {
		return c.Classify(ctx)
	}
	return c.Sync(ctx)
}

// Reset returns to Empty and forgets a stored failure.
func (c *Controller) Reset() {
	c.err = nil
	c.applied = false
	_ = c.fire(Reset)
}
