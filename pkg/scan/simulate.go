package scan

import (
	"context"
	"math"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	scanerrors "github.com/matzehuels/treescan/pkg/errors"
	"github.com/matzehuels/treescan/pkg/tree"
)

// simulator runs Monte Carlo replications against the observed cuts.
// Everything it holds is read-only while replications run.
type simulator struct {
	t             *tree.Tree
	model         Model
	branchMeasure []float64
	order         []int // parents before children
	gen           generator
	seed          uint64
	cuts          []Cut
}

// scratch is owned by a single worker.
type scratch struct {
	internal []int
	branch   []int
	ranks    []int
}

// simulation is the merged outcome of a set of replications.
type simulation struct {
	ranks     []int     // per cut, excluding the observed data's own 1
	maxima    []float64 // per replication; NaN when the replication did not run
	completed int
}

func newSimulator(t *tree.Tree, model Model, measure []float64, branch Branch, cuts []Cut, seed uint64) (*simulator, error) {
	order, err := topologicalOrder(t)
	if err != nil {
		return nil, err
	}
	return &simulator{
		t:             t,
		model:         model,
		branchMeasure: branch.Measure,
		order:         order,
		gen:           newGenerator(model, measure),
		seed:          seed,
		cuts:          cuts,
	}, nil
}

func (s *simulator) newScratch() *scratch {
	n := s.t.NodeCount()
	return &scratch{
		internal: make([]int, n),
		branch:   make([]int, n),
		ranks:    make([]int, len(s.cuts)),
	}
}

// replicate generates one synthetic data set, scores it and updates the
// worker's rank counters. It returns the replication's maximum LLR.
func (s *simulator) replicate(rep int, w *scratch) float64 {
	s.gen.generate(w.internal, replicaSource(s.seed, rep))
	s.propagate(w.internal, w.branch)

	best := 0.0
	for v, c := range w.branch {
		if c <= 1 {
			continue
		}
		if llr := s.model.LLR(c, s.branchMeasure[v]); llr > best {
			best = llr
		}
	}

	// Cuts are sorted descending, so the ones beaten by best form a suffix.
	for k := len(s.cuts) - 1; k >= 0 && s.cuts[k].LLR <= best; k-- {
		w.ranks[k]++
	}
	return best
}

// propagate sums synthetic internal counts into branch totals. A node's
// count reaches an ancestor once per path between them; unlike the observed
// aggregation there is no deduplication on multi-parent structures.
func (s *simulator) propagate(internal, branch []int) {
	for i := len(s.order) - 1; i >= 0; i-- {
		v := s.order[i]
		total := internal[v]
		for _, c := range s.t.Children(v) {
			total += branch[c]
		}
		branch[v] = total
	}
}

// run executes replications [0, reps) on up to workers goroutines. Each
// worker owns a contiguous range of replication indices. On cancellation it
// returns what completed together with a CANCELLED error.
func (s *simulator) run(ctx context.Context, reps, workers int, progress func(done, total int)) (simulation, error) {
	sim := simulation{
		ranks:  make([]int, len(s.cuts)),
		maxima: make([]float64, reps),
	}
	for i := range sim.maxima {
		sim.maxima[i] = math.NaN()
	}
	if reps == 0 {
		return sim, nil
	}

	workers = max(1, min(workers, reps))
	chunk := (reps + workers - 1) / workers
	step := max(1, reps/100)

	var (
		mu   sync.Mutex
		done atomic.Int64
	)
	g, gctx := errgroup.WithContext(ctx)
	for lo := 0; lo < reps; lo += chunk {
		hi := min(lo+chunk, reps)
		g.Go(func() error {
			w := s.newScratch()
			completed := 0
			for rep := lo; rep < hi; rep++ {
				if gctx.Err() != nil {
					break
				}
				sim.maxima[rep] = s.replicate(rep, w)
				completed++
				if d := int(done.Add(1)); progress != nil && (d%step == 0 || d == reps) {
					progress(d, reps)
				}
			}

			mu.Lock()
			defer mu.Unlock()
			for k, r := range w.ranks {
				sim.ranks[k] += r
			}
			sim.completed += completed
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil && sim.completed < reps {
		return sim, scanerrors.Cancelled(err, "stopped after %d of %d replications", sim.completed, reps)
	}
	return sim, nil
}

// topologicalOrder returns node indices with every parent before its
// children (Kahn's algorithm over the child edges).
func topologicalOrder(t *tree.Tree) ([]int, error) {
	n := t.NodeCount()
	indegree := make([]int, n)
	queue := make([]int, 0, n)
	for v := range n {
		indegree[v] = len(t.Parents(v))
		if indegree[v] == 0 {
			queue = append(queue, v)
		}
	}

	order := make([]int, 0, n)
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		order = append(order, v)
		for _, c := range t.Children(v) {
			indegree[c]--
			if indegree[c] == 0 {
				queue = append(queue, c)
			}
		}
	}

	if len(order) < n {
		for v := range n {
			if indegree[v] > 0 {
				return nil, scanerrors.Structural(t.ID(v), "node is part of a cycle")
			}
		}
	}
	return order, nil
}
