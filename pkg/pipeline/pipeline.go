// Package pipeline runs a complete treescan job: read the tree, scan it,
// and build the result document, with result caching and metrics hooks.
//
// The CLI is a thin layer over this package: defaults, validation and
// caching live here.
//
// # Stages
//
//  1. Load: read the tree file (and the optional duplicates file) and look
//     up a cached result for its content hash and options.
//  2. Scan: build the tree, aggregate, rank cuts and run the Monte Carlo
//     replications.
//  3. Report: turn the scan result into a [report.Document] and cache it
//     when the run completed.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	res, err := runner.Execute(ctx, pipeline.Options{
//	    Input:        "icd10.tree",
//	    Model:        "unconditional",
//	    Replications: 9999,
//	})
//	if err != nil {
//	    return err
//	}
//	report.WriteText(res.Document, os.Stdout)
package pipeline

import (
	"io"
	"runtime"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/treescan/pkg/cache"
	scanerrors "github.com/matzehuels/treescan/pkg/errors"
	"github.com/matzehuels/treescan/pkg/report"
	"github.com/matzehuels/treescan/pkg/scan"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and config files
// =============================================================================

const (
	// DefaultModel is the probability model used when none is given.
	DefaultModel = "conditional"

	// DefaultReplications is the number of Monte Carlo replications.
	DefaultReplications = scan.DefaultReplications

	// DefaultMaxCuts is the number of ranked cuts kept.
	DefaultMaxCuts = scan.DefaultMaxCuts

	// DefaultSeed seeds the random streams for reproducible runs.
	DefaultSeed = uint64(scan.DefaultSeed)

	// SignificanceLevel is the p-value threshold used in summaries and metrics.
	SignificanceLevel = 0.05
)

// =============================================================================
// Options - Run Configuration
// =============================================================================

// Options contains all configuration for one run. It can be loaded from a
// TOML, YAML or JSON file with [LoadConfig].
type Options struct {
	// Input options
	Input      string `json:"input,omitempty" toml:"input" yaml:"input,omitempty"`
	Duplicates string `json:"duplicates,omitempty" toml:"duplicates" yaml:"duplicates,omitempty"`

	// Scan options
	Model        string `json:"model,omitempty" toml:"model" yaml:"model,omitempty"`
	Replications int    `json:"replications,omitempty" toml:"replications" yaml:"replications,omitempty"`
	MaxCuts      int    `json:"max_cuts,omitempty" toml:"max_cuts" yaml:"max_cuts,omitempty"`
	Seed         uint64 `json:"seed,omitempty" toml:"seed" yaml:"seed,omitempty"`
	Workers      int    `json:"workers,omitempty" toml:"workers" yaml:"workers,omitempty"`

	// Report options
	CriticalValues bool `json:"critical_values,omitempty" toml:"critical_values" yaml:"critical_values,omitempty"`

	// Refresh ignores a cached result. The fresh result is still cached.
	Refresh bool `json:"refresh,omitempty" toml:"refresh" yaml:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger   *log.Logger           `json:"-" toml:"-" yaml:"-"`
	Progress func(done, total int) `json:"-" toml:"-" yaml:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a run.
type Result struct {
	// Document is the result document. On a cancelled run it describes the
	// partial result and carries no p-values.
	Document *report.Document

	// Scan is the engine result. It is nil when Document came from the cache.
	Scan *scan.Result

	// Key is the result cache key.
	Key string

	// Stats contains timing and size information.
	Stats Stats

	// CacheHit reports whether Document came from the cache.
	CacheHit bool
}

// Stats contains run statistics.
type Stats struct {
	NodeCount   int
	EdgeCount   int
	Completed   int
	Significant int
	InputBytes  int
	CachedBytes int
	ParseTime   time.Duration
	ScanTime    time.Duration
	ReportTime  time.Duration
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults.
// It is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := scanerrors.ValidateFilePath(o.Input); err != nil {
		return scanerrors.Wrap(scanerrors.ErrCodeInvalidInput, err, "input file")
	}
	if o.Duplicates != "" {
		if err := scanerrors.ValidateFilePath(o.Duplicates); err != nil {
			return scanerrors.Wrap(scanerrors.ErrCodeInvalidInput, err, "duplicates file")
		}
	}
	if err := o.ValidateForScan(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForScan validates the scan options and fills in their defaults.
func (o *Options) ValidateForScan() error {
	o.SetScanDefaults()
	if _, err := scan.ParseModelKind(o.Model); err != nil {
		return err
	}
	if o.Replications < 0 {
		return scanerrors.New(scanerrors.ErrCodeInvalidInput, "replications must be positive, got %d", o.Replications)
	}
	if o.MaxCuts < 0 {
		return scanerrors.New(scanerrors.ErrCodeInvalidInput, "max_cuts must be positive, got %d", o.MaxCuts)
	}
	if o.Workers < 0 {
		return scanerrors.New(scanerrors.ErrCodeInvalidInput, "workers must be positive, got %d", o.Workers)
	}
	return nil
}

// SetScanDefaults sets default values for zero-valued scan options.
func (o *Options) SetScanDefaults() {
	if o.Model == "" {
		o.Model = DefaultModel
	}
	if o.Replications == 0 {
		o.Replications = DefaultReplications
	}
	if o.MaxCuts == 0 {
		o.MaxCuts = DefaultMaxCuts
	}
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	if o.Workers == 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ScanOptions converts to engine options. Call after ValidateAndSetDefaults.
func (o *Options) ScanOptions() scan.Options {
	kind, _ := scan.ParseModelKind(o.Model)
	return scan.Options{
		Model:        kind,
		Replications: o.Replications,
		MaxCuts:      o.MaxCuts,
		Seed:         o.Seed,
		Workers:      o.Workers,
		Logger:       o.Logger,
		Progress:     o.Progress,
	}
}

// ResultKeyOpts returns the cache key options. duplicatesHash is the
// content hash of the duplicates file, empty when there is none.
func (o *Options) ResultKeyOpts(duplicatesHash string) cache.ResultKeyOpts {
	kind, _ := scan.ParseModelKind(o.Model)
	return cache.ResultKeyOpts{
		Model:          kind.String(),
		Replications:   o.Replications,
		MaxCuts:        o.MaxCuts,
		Seed:           o.Seed,
		DuplicatesHash: duplicatesHash,
		CriticalValues: o.CriticalValues,
	}
}
