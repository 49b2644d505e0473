package scan

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// replicaSource returns the random stream of replication rep. Every
// replication has its own stream so results do not depend on how
// replications are split across workers.
func replicaSource(seed uint64, rep int) rand.Source {
	return rand.NewPCG(seed, uint64(rep))
}

// binomial draws from Binomial(n, p). p is clamped to [0, 1].
func binomial(n int, p float64, src rand.Source) int {
	switch {
	case n <= 0 || p <= 0:
		return 0
	case p >= 1:
		return n
	}
	return int(distuv.Binomial{N: float64(n), P: p, Src: src}.Rand())
}

// poisson draws from Poisson(lambda). A zero mean draws nothing from src.
func poisson(lambda float64, src rand.Source) int {
	if lambda <= 0 {
		return 0
	}
	return int(distuv.Poisson{Lambda: lambda, Src: src}.Rand())
}

// generator fills dst with synthetic internal case counts.
type generator interface {
	generate(dst []int, src rand.Source)
}

// conditionalGenerator splits exactly total cases over the nodes in index
// order, each node drawing Binomial(casesLeft, measure/measureLeft).
type conditionalGenerator struct {
	measure []float64
	total   int
	sum     float64
	last    int // last node with positive measure; takes all remaining cases
}

func newConditionalGenerator(measure []float64, total int) *conditionalGenerator {
	g := &conditionalGenerator{measure: measure, total: total, last: -1}
	for i, m := range measure {
		if m > 0 {
			g.sum += m
			g.last = i
		}
	}
	return g
}

func (g *conditionalGenerator) generate(dst []int, src rand.Source) {
	casesLeft, measureLeft := g.total, g.sum
	for i, m := range g.measure {
		if casesLeft == 0 || m <= 0 {
			dst[i] = 0
			continue
		}
		var draw int
		if i == g.last || m >= measureLeft {
			draw = casesLeft
		} else {
			draw = binomial(casesLeft, m/measureLeft, src)
		}
		dst[i] = draw
		casesLeft -= draw
		measureLeft -= m
	}
}

// unconditionalGenerator draws an independent Poisson count per node.
type unconditionalGenerator struct {
	measure []float64
}

func (g *unconditionalGenerator) generate(dst []int, src rand.Source) {
	for i, m := range g.measure {
		dst[i] = poisson(m, src)
	}
}

func newGenerator(m Model, measure []float64) generator {
	if m.Kind == Conditional {
		return newConditionalGenerator(measure, m.TotalCases)
	}
	return &unconditionalGenerator{measure: measure}
}
