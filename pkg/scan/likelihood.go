package scan

import (
	"math"
	"strings"

	scanerrors "github.com/matzehuels/treescan/pkg/errors"
)

// Epsilon is the smallest excess of cases over expectation that scores.
// Branches with c - n below it have a log-likelihood ratio of exactly 0.
const Epsilon = 1e-4

// ModelKind selects the probability model.
type ModelKind int

const (
	// Conditional conditions on the total number of cases: the expected
	// measure is rescaled so that it sums to the observed total, and
	// simulated data redistributes exactly that many cases.
	Conditional ModelKind = iota

	// Unconditional treats every node as an independent Poisson count.
	Unconditional
)

// String returns the model name used in configs and reports.
func (k ModelKind) String() string {
	switch k {
	case Conditional:
		return "conditional"
	case Unconditional:
		return "unconditional"
	default:
		return "unknown"
	}
}

// ParseModelKind parses a model name. Matching is case-insensitive and an
// empty name selects [Conditional].
func ParseModelKind(s string) (ModelKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "conditional", "cond":
		return Conditional, nil
	case "unconditional", "uncond":
		return Unconditional, nil
	default:
		return 0, scanerrors.New(scanerrors.ErrCodeInvalidModel, "unknown model %q (want conditional or unconditional)", s)
	}
}

// ConditionalLLR is the Poisson log-likelihood ratio of a branch with c cases
// and measure n, conditioned on C total cases over N total measure.
func ConditionalLLR(c, n, C, N float64) float64 {
	if c-n < Epsilon {
		return 0
	}
	if c == C || C-c <= 0 {
		return c * math.Log(c/n)
	}
	return c*math.Log(c/n) + (C-c)*math.Log((C-c)/(N-n))
}

// UnconditionalLLR is the Poisson log-likelihood ratio of a branch with c
// cases and measure n.
func UnconditionalLLR(c, n float64) float64 {
	if c-n < Epsilon {
		return 0
	}
	return (n - c) + c*math.Log(c/n)
}

// Model is the probability model chosen once at the start of a run.
//
// TotalMeasure is the total after rescaling: for the conditional model it
// equals TotalCases.
type Model struct {
	Kind         ModelKind
	TotalCases   int
	TotalMeasure float64

	scale float64
	llr   func(c, n float64) float64
}

// NewModel creates a model for a tree with totalCases cases over
// totalMeasure expected measure.
//
// A tree with cases but no measure cannot be scored and is reported as a
// DATA_CONSISTENCY error.
func NewModel(kind ModelKind, totalCases int, totalMeasure float64) (Model, error) {
	if totalCases > 0 && totalMeasure <= 0 {
		return Model{}, scanerrors.DataConsistency("", "total measure is %g but the tree has %d cases", totalMeasure, totalCases)
	}

	m := Model{Kind: kind, TotalCases: totalCases, TotalMeasure: totalMeasure, scale: 1}
	switch kind {
	case Conditional:
		if totalMeasure > 0 {
			m.scale = float64(totalCases) / totalMeasure
		}
		m.TotalMeasure = float64(totalCases)
		C, N := float64(m.TotalCases), m.TotalMeasure
		m.llr = func(c, n float64) float64 { return ConditionalLLR(c, n, C, N) }
	case Unconditional:
		m.llr = UnconditionalLLR
	default:
		return Model{}, scanerrors.New(scanerrors.ErrCodeInvalidModel, "unknown model kind %d", int(kind))
	}
	return m, nil
}

// LLR scores a branch with c cases and measure n.
func (m Model) LLR(c int, n float64) float64 {
	return m.llr(float64(c), n)
}

// MeasureScale is the factor applied to every internal measure before
// aggregation: C/N for the conditional model, 1 otherwise.
func (m Model) MeasureScale() float64 { return m.scale }

// Normalizer is subtracted from reported LLRs: C·ln(C/N) for the
// conditional model, 0 for the unconditional one.
func (m Model) Normalizer() float64 {
	if m.Kind != Conditional || m.TotalCases == 0 {
		return 0
	}
	C := float64(m.TotalCases)
	return C * math.Log(C/m.TotalMeasure)
}

// ScaleMeasure returns a copy of measure multiplied by [Model.MeasureScale].
func (m Model) ScaleMeasure(measure []float64) []float64 {
	out := make([]float64, len(measure))
	for i, v := range measure {
		out[i] = v * m.scale
	}
	return out
}
