package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/dlk/pkg/dlk/internalerr"
)

// Blocking strategies understood by the tableau engine.
const (
	BlockingAuto     = "auto"
	BlockingSubset   = "subset"
	BlockingPairwise = "pairwise"
)

// Config is the reasoner configuration surface.
type Config struct {
	// Timeout bounds satisfiability and classification calls. Zero disables it.
	Timeout time.Duration `yaml:"timeout"`
	// Incremental applies only the delta since the last sync; otherwise every
	// resync reloads the whole axiom set.
	Incremental bool `yaml:"incremental"`
	// AutoSync lets queries resync and classify a dirty knowledge base.
	AutoSync bool `yaml:"auto_sync"`
	// SupportedDatatypes lists datatype IRIs accepted by axiom validation.
	SupportedDatatypes []string `yaml:"supported_datatypes"`
	CacheSize          int      `yaml:"cache_size"`
	Blocking           string   `yaml:"blocking"`
	UseBackjumping     bool     `yaml:"use_backjumping"`
	// UseSemanticBranching adds the negation of a failed disjunct to later branches.
	UseSemanticBranching bool `yaml:"use_semantic_branching"`
	UseRangeDomain       bool `yaml:"use_range_domain"`
	// MaxNodes caps the completion graph size; zero means unlimited.
	MaxNodes         int    `yaml:"max_nodes"`
	LogSkippedAxioms bool   `yaml:"log_skipped_axioms"`
	Journal          string `yaml:"journal"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Timeout:              0,
		Incremental:          true,
		AutoSync:             true,
		SupportedDatatypes:   DefaultDatatypes(),
		CacheSize:            4096,
		Blocking:             BlockingAuto,
		UseBackjumping:       true,
		UseSemanticBranching: true,
		UseRangeDomain:       true,
		MaxNodes:             100000,
		LogSkippedAxioms:     true,
		Journal:              "",
	}
}

// DefaultDatatypes returns the datatype IRIs supported out of the box.
func DefaultDatatypes() []string {
	return []string{
		"rdfs:Literal",
		"xsd:string",
		"xsd:integer",
		"xsd:decimal",
		"xsd:double",
		"xsd:boolean",
	}
}

// Load reads a YAML config file on top of Default().
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnvOverrides lets DLK_* environment variables replace file values.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("DLK_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Timeout = d
		}
	}
	if v := os.Getenv("DLK_INCREMENTAL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Incremental = b
		}
	}
	if v := os.Getenv("DLK_AUTO_SYNC"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.AutoSync = b
		}
	}
	if v := os.Getenv("DLK_JOURNAL"); v != "" {
		c.Journal = v
	}
}

// Validate checks field ranges.
func (c Config) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("timeout %v: %w", c.Timeout, internalerr.ErrInvalidConfig)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache_size %d: %w", c.CacheSize, internalerr.ErrInvalidConfig)
	}
	if c.MaxNodes < 0 {
		return fmt.Errorf("max_nodes %d: %w", c.MaxNodes, internalerr.ErrInvalidConfig)
	}
	switch c.Blocking {
	case BlockingAuto, BlockingSubset, BlockingPairwise:
	default:
		return fmt.Errorf("blocking %q: %w", c.Blocking, internalerr.ErrInvalidConfig)
	}
	return nil
}
