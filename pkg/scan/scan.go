package scan

import (
	"context"
	"io"
	"math"
	"runtime"
	"time"

	"github.com/charmbracelet/log"
	"github.com/montanaflynn/stats"

	scanerrors "github.com/matzehuels/treescan/pkg/errors"
	"github.com/matzehuels/treescan/pkg/tree"
)

// Default values for scan options.
const (
	DefaultReplications = 99999
	DefaultSeed         = 12345678
)

// Options configures [Analyze].
type Options struct {
	// Model selects the probability model. The zero value is Conditional.
	Model ModelKind

	// Replications is the number of Monte Carlo replications M. Zero skips
	// the simulation: cuts are ranked but carry no p-values.
	Replications int

	// MaxCuts is the number of ranked cuts K. Zero selects DefaultMaxCuts.
	MaxCuts int

	// Seed seeds the per-replication random streams.
	Seed uint64

	// Workers bounds simulation parallelism. Zero selects runtime.NumCPU().
	// Results do not depend on it.
	Workers int

	// Logger receives debug and info messages. Nil discards them.
	Logger *log.Logger

	// Progress, if set, is called as replications complete. It may be
	// called from several goroutines at once.
	Progress func(done, total int)
}

func (o *Options) setDefaults() error {
	if o.Replications < 0 {
		return scanerrors.New(scanerrors.ErrCodeInvalidInput, "replications must be non-negative, got %d", o.Replications)
	}
	if o.MaxCuts < 0 {
		return scanerrors.New(scanerrors.ErrCodeInvalidInput, "max cuts must be positive, got %d", o.MaxCuts)
	}
	if o.MaxCuts == 0 {
		o.MaxCuts = DefaultMaxCuts
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	return nil
}

// Result is the outcome of a scan.
type Result struct {
	Model   Model
	Tree    *tree.Tree
	Measure []float64 // internal measure after model scaling
	Branch  Branch
	Cuts    []Cut // best first

	Replications int    // requested M
	Completed    int    // replications that ran
	Complete     bool   // all requested replications ran
	Seed         uint64 // seed of the random streams

	// SimulatedMaxima holds the maximum LLR of every completed
	// replication, in replication order.
	SimulatedMaxima []float64
}

// PValue returns rank/(M+1) for cut i. It reports false when the run
// performed no replications or was cancelled before completing them.
func (r *Result) PValue(i int) (float64, bool) {
	if !r.Complete || r.Replications == 0 {
		return 0, false
	}
	return float64(r.Cuts[i].Rank) / float64(r.Replications+1), true
}

// NormalizedLLR returns cut i's LLR minus the model's normalizer.
func (r *Result) NormalizedLLR(i int) float64 {
	return r.Cuts[i].LLR - r.Model.Normalizer()
}

// Primary returns the top cut. It reports false when no node had more
// than one case.
func (r *Result) Primary() (Cut, bool) {
	if len(r.Cuts) == 0 {
		return Cut{}, false
	}
	return r.Cuts[0], true
}

// CriticalValue is the normalized LLR a cut must exceed to be significant
// at level Alpha.
type CriticalValue struct {
	Alpha float64
	LLR   float64
}

// criticalLevels lists each significance level with the number of
// completed replications it needs.
var criticalLevels = []struct {
	alpha float64
	min   int
}{
	{0.05, 19},
	{0.01, 99},
	{0.001, 999},
}

// CriticalValues returns the upper quantiles of the simulated maximum LLR
// distribution for the levels the completed replications support.
func (r *Result) CriticalValues() ([]CriticalValue, error) {
	var out []CriticalValue
	for _, lvl := range criticalLevels {
		if len(r.SimulatedMaxima) < lvl.min {
			break
		}
		v, err := stats.Percentile(r.SimulatedMaxima, 100*(1-lvl.alpha))
		if err != nil {
			return nil, scanerrors.Wrap(scanerrors.ErrCodeInternal, err, "critical value at %g", lvl.alpha)
		}
		out = append(out, CriticalValue{Alpha: lvl.alpha, LLR: v - r.Model.Normalizer()})
	}
	return out, nil
}

// Analyze runs the observed pass over t and then opts.Replications Monte
// Carlo replications.
//
// Structural and data errors abort the run with a nil result. When ctx is
// cancelled during the simulation, Analyze returns the partial result with
// Complete set to false together with a CANCELLED error.
func Analyze(ctx context.Context, t *tree.Tree, opts Options) (*Result, error) {
	if err := opts.setDefaults(); err != nil {
		return nil, err
	}
	logger := opts.Logger

	model, err := NewModel(opts.Model, t.TotalCases(), t.TotalMeasure())
	if err != nil {
		return nil, err
	}
	logger.Debug("model", "kind", model.Kind, "cases", model.TotalCases, "measure", t.TotalMeasure(), "scale", model.MeasureScale())

	measure := model.ScaleMeasure(t.InternalMeasure())
	branch, err := NewAggregator(t).Aggregate(t.InternalCases(), measure)
	if err != nil {
		return nil, err
	}

	ranker := NewCutRanker(opts.MaxCuts)
	candidates := 0
	for v := range t.NodeCount() {
		if branch.Cases[v] <= 1 {
			continue
		}
		candidates++
		ranker.Insert(Cut{
			Node:    v,
			ID:      t.ID(v),
			Cases:   branch.Cases[v],
			Measure: branch.Measure[v],
			LLR:     model.LLR(branch.Cases[v], branch.Measure[v]),
		})
	}
	cuts := append([]Cut(nil), ranker.Cuts()...)

	res := &Result{
		Model:        model,
		Tree:         t,
		Measure:      measure,
		Branch:       branch,
		Cuts:         cuts,
		Replications: opts.Replications,
		Complete:     true,
		Seed:         opts.Seed,
	}
	logger.Info("observed pass", "nodes", t.NodeCount(), "candidates", candidates, "cuts", len(cuts))
	if len(cuts) == 0 || opts.Replications == 0 {
		return res, nil
	}

	sim, err := newSimulator(t, model, measure, branch, cuts, opts.Seed)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	logger.Info("simulating", "replications", opts.Replications, "workers", opts.Workers)
	out, runErr := sim.run(ctx, opts.Replications, opts.Workers, opts.Progress)
	for k := range res.Cuts {
		res.Cuts[k].Rank += out.ranks[k]
	}
	res.Completed = out.completed
	res.Complete = runErr == nil
	res.SimulatedMaxima = make([]float64, 0, out.completed)
	for _, v := range out.maxima {
		if !math.IsNaN(v) {
			res.SimulatedMaxima = append(res.SimulatedMaxima, v)
		}
	}
	logger.Info("simulation done", "completed", res.Completed, "duration", time.Since(start).Round(time.Millisecond))

	return res, runErr
}
