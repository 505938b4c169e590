package config

import (
	"context"
	"fmt"

	"github.com/cognicore/dlk/pkg/dlk/store"
	"github.com/cognicore/dlk/pkg/dlk/store/memstore"
	"github.com/cognicore/dlk/pkg/dlk/store/sqlite"
)

// JournalMemory selects the in-memory journal.
const JournalMemory = "memory"

// Loader loads the configuration file and constructs components
type Loader struct {
	ConfigPath string
	// JournalPath overrides the journal named in the configuration.
	JournalPath string
}

// Components holds all loaded configuration components
type Components struct {
	Config Config
	// Journal is nil when journaling is disabled.
	Journal store.Store
}

// Load reads the configuration and opens the journal it names
func (l *Loader) Load(ctx context.Context) (*Components, error) {
	comp := &Components{Config: Default()}

	if l.ConfigPath != "" {
		cfg, err := Load(l.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		comp.Config = cfg
	} else {
		comp.Config.ApplyEnvOverrides()
		if err := comp.Config.Validate(); err != nil {
			return nil, err
		}
	}

	if l.JournalPath != "" {
		comp.Config.Journal = l.JournalPath
	}

	switch comp.Config.Journal {
	case "":
	case JournalMemory:
		comp.Journal = memstore.New()
	default:
		st, err := sqlite.OpenSQLite(ctx, comp.Config.Journal)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		comp.Journal = st
	}

	return comp, nil
}
