package scan

import "math"

// DefaultMaxCuts is the number of ranked cuts kept when none is configured.
const DefaultMaxCuts = 2000

// Cut is a candidate cluster: a node together with all of its descendants.
type Cut struct {
	Node    int     // Node index
	ID      string  // Node label
	Cases   int     // Branch cases
	Measure float64 // Branch measure
	LLR     float64 // Log-likelihood ratio
	Rank    int     // 1 + replications whose maximum reached LLR
}

// CutRanker keeps the K highest-scoring cuts in descending LLR order.
// Among equal LLRs the earlier insert stays ahead.
type CutRanker struct {
	slots []Cut
	n     int
}

// NewCutRanker creates a ranker with k slots. k < 1 selects DefaultMaxCuts.
func NewCutRanker(k int) *CutRanker {
	if k < 1 {
		k = DefaultMaxCuts
	}
	slots := make([]Cut, k)
	for i := range slots {
		slots[i] = Cut{Node: -1, LLR: math.Inf(-1)}
	}
	return &CutRanker{slots: slots}
}

// Insert places c by its LLR. It reports whether c was kept.
func (r *CutRanker) Insert(c Cut) bool {
	k := 0
	for k < len(r.slots) && !(c.LLR > r.slots[k].LLR) {
		k++
	}
	if k == len(r.slots) {
		return false
	}
	copy(r.slots[k+1:], r.slots[k:len(r.slots)-1])
	c.Rank = 1
	r.slots[k] = c
	if r.n < len(r.slots) {
		r.n++
	}
	return true
}

// Cuts returns the filled slots, best first. The slice aliases the ranker.
func (r *CutRanker) Cuts() []Cut { return r.slots[:r.n] }

// Len returns the number of filled slots.
func (r *CutRanker) Len() int { return r.n }

// Cap returns K.
func (r *CutRanker) Cap() int { return len(r.slots) }
