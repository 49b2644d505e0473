package scan

import (
	scanerrors "github.com/matzehuels/treescan/pkg/errors"
	"github.com/matzehuels/treescan/pkg/tree"
)

// Branch holds per-node totals over each node and all of its descendants.
type Branch struct {
	Cases     []int
	Measure   []float64
	MultiPath []bool // node reaches some ancestor along more than one path
}

// Aggregator computes branch totals for a tree. It reuses its traversal
// buffers between calls and is not safe for concurrent use.
type Aggregator struct {
	t       *tree.Tree
	seen    []int
	touched []int
	stack   []int
}

// NewAggregator creates an aggregator sized for t.
func NewAggregator(t *tree.Tree) *Aggregator {
	n := t.NodeCount()
	return &Aggregator{
		t:    t,
		seen: make([]int, n),
	}
}

// Aggregate adds each node's internal cases and measure to itself and to
// every distinct ancestor. A node reachable from an origin along several
// paths receives the origin's totals once.
//
// It fails with a STRUCTURAL error when a node is its own ancestor, and with
// a DATA_CONSISTENCY error when a branch ends up with negative measure or
// with cases but zero measure.
func (a *Aggregator) Aggregate(cases []int, measure []float64) (Branch, error) {
	n := a.t.NodeCount()
	b := Branch{
		Cases:     make([]int, n),
		Measure:   make([]float64, n),
		MultiPath: make([]bool, n),
	}

	for origin := range n {
		c, m := cases[origin], measure[origin]
		multi, err := a.walk(origin, func(v int) {
			b.Cases[v] += c
			b.Measure[v] += m
		})
		if err != nil {
			return Branch{}, err
		}
		b.MultiPath[origin] = multi
	}

	for v := range n {
		switch {
		case b.Measure[v] < 0:
			return Branch{}, scanerrors.DataConsistency(a.t.ID(v), "branch measure is negative (%g)", b.Measure[v])
		case b.Measure[v] == 0 && b.Cases[v] > 0:
			return Branch{}, scanerrors.DataConsistency(a.t.ID(v), "branch measure is zero but branch has %d cases", b.Cases[v])
		}
	}
	return b, nil
}

// walk visits origin and its ancestors, calling visit once per distinct
// node. It reports whether any node was reached more than once.
func (a *Aggregator) walk(origin int, visit func(v int)) (bool, error) {
	for _, v := range a.touched {
		a.seen[v] = 0
	}
	a.touched = a.touched[:0]

	a.stack = append(a.stack[:0], origin)
	for len(a.stack) > 0 {
		v := a.stack[len(a.stack)-1]
		a.stack = a.stack[:len(a.stack)-1]

		a.seen[v]++
		if a.seen[v] > 1 {
			continue
		}
		a.touched = append(a.touched, v)
		visit(v)
		a.stack = append(a.stack, a.t.Parents(v)...)
	}

	if a.seen[origin] > 1 {
		return false, scanerrors.Structural(a.t.ID(origin), "node is its own ancestor")
	}
	for _, v := range a.touched {
		if a.seen[v] > 1 {
			return true, nil
		}
	}
	return false, nil
}
