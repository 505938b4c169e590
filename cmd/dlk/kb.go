package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cognicore/dlk/pkg/dlk"
	"github.com/cognicore/dlk/pkg/dlk/config"
	"github.com/cognicore/dlk/pkg/dlk/internalerr"
	"github.com/cognicore/dlk/pkg/dlk/kbfile"
)

// loadComponents reads the config file and opens the journal.
func loadComponents(ctx context.Context) (*config.Components, error) {
	loader := &config.Loader{ConfigPath: configPath, JournalPath: journalPath}
	return loader.Load(ctx)
}

// progress logs classification and realization progress at debug level.
type progress struct {
	log         *zap.Logger
	total, done int
}

func (p *progress) Started(total int) {
	p.total, p.done = total, 0
	p.log.Debug("started", zap.Int("total", total))
}

func (p *progress) Progress() {
	p.done++
	if p.total > 0 && p.done%100 == 0 {
		p.log.Debug("progress", zap.Int("done", p.done), zap.Int("total", p.total))
	}
}

func (p *progress) Finished() { p.log.Debug("finished", zap.Int("done", p.done)) }

func (p *progress) Cancelled() bool { return false }

// loaded is a kernel holding one description file.
type loaded struct {
	file    *kbfile.File
	kernel  *dlk.Kernel
	skipped int
}

// loadKB builds a kernel for the description at path. Axioms the kernel
// does not support are skipped and counted; any other rejection fails the
// load. Closing the kernel closes comp.Journal, so callers sharing the
// journal between kernels close it themselves.
func loadKB(ctx context.Context, path string, comp *config.Components) (*loaded, error) {
	f, err := kbfile.Load(path)
	if err != nil {
		return nil, err
	}
	log := logger.With(zap.String("kb", f.Name))
	k, err := dlk.New(dlk.Options{
		Config:  comp.Config,
		Logger:  log,
		Monitor: &progress{log: log},
		Journal: comp.Journal,
	})
	if err != nil {
		return nil, err
	}
	axs, err := f.Build(k.Expr())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	out := &loaded{file: f, kernel: k}
	if err := k.StartChanges(); err != nil {
		return nil, err
	}
	for _, ax := range axs {
		if _, err := k.Tell(ax); err != nil {
			if internalerr.KindOf(err) == internalerr.KindUnsupported {
				out.skipped++
				continue
			}
			_ = k.AbortChanges()
			return nil, fmt.Errorf("%s: %s: %w", path, ax.String(k.Expr()), err)
		}
	}
	if err := k.EndChanges(ctx); err != nil {
		return nil, err
	}
	return out, nil
}
