package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/treescan/pkg/cache"
	scanerrors "github.com/matzehuels/treescan/pkg/errors"
	"github.com/matzehuels/treescan/pkg/observability"
	"github.com/matzehuels/treescan/pkg/report"
	"github.com/matzehuels/treescan/pkg/scan"
	"github.com/matzehuels/treescan/pkg/tree"
)

// keyTypeResult labels result cache events.
const keyTypeResult = "result"

// Runner executes runs with result caching.
//
// The Runner holds no per-run state, so one Runner can serve several
// goroutines with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner. A nil cache disables caching and a nil keyer
// uses [cache.DefaultKeyer].
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// input holds the raw bytes of a run's files.
type input struct {
	tree       []byte
	duplicates []byte
}

// Execute runs load → scan → report.
//
// When ctx is cancelled during the simulation, Execute returns a Result
// describing the partial run together with a CANCELLED error. Partial
// results are never cached.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	// Stage 1: Load
	in, err := readInput(opts)
	if err != nil {
		return nil, err
	}
	result := &Result{Key: r.resultKey(in, opts)}
	result.Stats.InputBytes = len(in.tree)

	if !opts.Refresh {
		if doc, ok := r.cached(ctx, result.Key); ok {
			result.Document = doc
			result.CacheHit = true
			result.Stats.NodeCount = doc.Nodes
			result.Stats.Completed = doc.Completed
			result.Stats.Significant = len(doc.Significant(SignificanceLevel))
			r.Logger.Info("using cached result", "run_id", doc.RunID, "created", doc.CreatedAt.Format(time.DateTime))
			return result, nil
		}
	}

	// Stage 2: Scan
	parseStart := time.Now()
	t, err := r.load(ctx, in)
	result.Stats.ParseTime = time.Since(parseStart)
	if err != nil {
		return nil, err
	}
	result.Stats.NodeCount = t.NodeCount()
	result.Stats.EdgeCount = t.EdgeCount()
	r.Logger.Info("read tree",
		"nodes", t.NodeCount(),
		"edges", t.EdgeCount(),
		"cases", t.TotalCases(),
		"measure", t.TotalMeasure(),
		"duration", result.Stats.ParseTime)

	scanStart := time.Now()
	res, scanErr := r.Scan(ctx, t, opts)
	result.Stats.ScanTime = time.Since(scanStart)
	if scanerrors.IsFatal(scanErr) {
		return nil, scanErr
	}
	result.Scan = res
	result.Stats.Completed = res.Completed

	// Stage 3: Report
	reportStart := time.Now()
	doc, err := report.FromScan(res, report.Options{
		Input:          filepath.Base(opts.Input),
		CriticalValues: opts.CriticalValues,
	})
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	result.Document = doc
	result.Stats.ReportTime = time.Since(reportStart)
	result.Stats.Significant = len(doc.Significant(SignificanceLevel))
	observability.Scan().OnSignificantCuts(ctx, doc.Model, result.Stats.Significant)

	if scanErr != nil {
		r.Logger.Warn("scan cancelled", "completed", res.Completed, "replications", res.Replications)
		return result, scanErr
	}

	result.Stats.CachedBytes = r.store(ctx, result.Key, doc)
	return result, nil
}

// load builds the tree from raw input and applies known duplicates.
func (r *Runner) load(ctx context.Context, in input) (*tree.Tree, error) {
	start := time.Now()
	t, err := tree.ReadBytes(in.tree)
	if err == nil && in.duplicates != nil {
		var dups map[string]int
		dups, err = tree.ParseDuplicates(bytes.NewReader(in.duplicates))
		if err == nil {
			err = t.ApplyDuplicates(dups)
		}
		if err == nil {
			r.Logger.Debug("applied duplicates", "nodes", len(dups))
		}
	}

	nodes, edges := 0, 0
	if t != nil {
		nodes, edges = t.NodeCount(), t.EdgeCount()
	}
	observability.Scan().OnParseComplete(ctx, nodes, edges, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Scan runs the engine on t. Hooks see every scan, cancelled or not.
func (r *Runner) Scan(ctx context.Context, t *tree.Tree, opts Options) (*scan.Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForScan(); err != nil {
		return nil, err
	}

	start := time.Now()
	observability.Scan().OnScanStart(ctx, opts.Model, t.NodeCount(), opts.Replications)
	res, err := scan.Analyze(ctx, t, opts.ScanOptions())
	completed := 0
	if res != nil {
		completed = res.Completed
	}
	observability.Scan().OnScanComplete(ctx, opts.Model, completed, time.Since(start), err)
	return res, err
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func readInput(opts Options) (input, error) {
	var in input
	var err error
	if in.tree, err = readFile(opts.Input, "tree"); err != nil {
		return input{}, err
	}
	if opts.Duplicates != "" {
		if in.duplicates, err = readFile(opts.Duplicates, "duplicates"); err != nil {
			return input{}, err
		}
	}
	return in, nil
}

func readFile(path, what string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, scanerrors.Wrap(scanerrors.ErrCodeFileNotFound, err, "%s file %s", what, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s file: %w", what, err)
	}
	return data, nil
}

func (r *Runner) resultKey(in input, opts Options) string {
	dupHash := ""
	if in.duplicates != nil {
		dupHash = cache.Hash(in.duplicates)
	}
	return r.Keyer.ResultKey(cache.Hash(in.tree), opts.ResultKeyOpts(dupHash))
}

// cached returns the document stored under key. Unreadable entries count
// as misses.
func (r *Runner) cached(ctx context.Context, key string) (*report.Document, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Debug("cache read failed", "error", err)
	}
	if err == nil && hit {
		if doc, err := report.ReadJSON(bytes.NewReader(data)); err == nil {
			observability.Cache().OnCacheHit(ctx, keyTypeResult)
			return doc, true
		}
	}
	observability.Cache().OnCacheMiss(ctx, keyTypeResult)
	return nil, false
}

// store caches doc and returns the number of bytes written.
func (r *Runner) store(ctx context.Context, key string, doc *report.Document) int {
	var buf bytes.Buffer
	if err := report.WriteJSON(doc, &buf); err != nil {
		r.Logger.Debug("encode result for cache", "error", err)
		return 0
	}
	if err := r.Cache.Set(ctx, key, buf.Bytes(), cache.TTLResult); err != nil {
		r.Logger.Warn("could not cache result", "error", err)
		return 0
	}
	observability.Cache().OnCacheSet(ctx, keyTypeResult, buf.Len())
	return buf.Len()
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
