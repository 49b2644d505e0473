// Package report turns scan results into documents that can be saved,
// reloaded and printed.
//
// A [Document] is a self-contained snapshot of a run: header totals, the
// ranked cuts with their p-values and a per-node summary. It is what the
// result cache stores, what "treescan report" re-renders and what
// "treescan browse" displays. Documents are plain data and never point back
// at the tree they were computed from.
package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/treescan/pkg/buildinfo"
	"github.com/matzehuels/treescan/pkg/scan"
)

// Document is the serializable result of a run.
type Document struct {
	RunID     string    `json:"run_id"`
	Version   string    `json:"version,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Input     string    `json:"input,omitempty"`

	Model        string  `json:"model"`
	TotalCases   int     `json:"total_cases"`
	TotalMeasure float64 `json:"total_measure"` // after rescaling; equals TotalCases for the conditional model
	Normalizer   float64 `json:"normalizer"`
	Nodes        int     `json:"node_count"`

	Replications int    `json:"replications"`
	Completed    int    `json:"completed"`
	Complete     bool   `json:"complete"`
	Seed         uint64 `json:"seed"`

	Cuts           []Cut           `json:"cuts"`
	NodeSummary    []NodeSummary   `json:"nodes"`
	CriticalValues []CriticalValue `json:"critical_values,omitempty"`
}

// Cut is one ranked cut.
type Cut struct {
	Position int      `json:"position"` // 1-based position in the ranking
	ID       string   `json:"id"`
	Observed int      `json:"observed"`
	Expected float64  `json:"expected"`
	Ratio    float64  `json:"ratio"` // observed / expected, 0 when expected is 0
	LLR      float64  `json:"llr"`   // normalized
	Rank     int      `json:"mc_rank"`
	PValue   *float64 `json:"p_value,omitempty"` // nil when the run has no valid p-values
}

// NodeSummary describes one node's branch.
type NodeSummary struct {
	ID         string  `json:"id"`
	Observed   int     `json:"observed"`
	Expected   float64 `json:"expected"`
	Ratio      float64 `json:"ratio"`
	Duplicates int     `json:"duplicates,omitempty"`
	MultiPath  bool    `json:"multi_path,omitempty"`
}

// CriticalValue is the normalized LLR needed for significance at Alpha.
type CriticalValue struct {
	Alpha float64 `json:"alpha"`
	LLR   float64 `json:"llr"`
}

// Options controls what [FromScan] includes.
type Options struct {
	Input          string // input file name shown in the header
	CriticalValues bool   // include critical values of the simulated maxima
}

// FromScan builds a document from a scan result.
func FromScan(res *scan.Result, opts Options) (*Document, error) {
	t := res.Tree
	doc := &Document{
		RunID:        uuid.NewString(),
		Version:      buildinfo.Version,
		CreatedAt:    time.Now().UTC(),
		Input:        opts.Input,
		Model:        res.Model.Kind.String(),
		TotalCases:   t.TotalCases(),
		TotalMeasure: res.Model.TotalMeasure,
		Normalizer:   res.Model.Normalizer(),
		Nodes:        t.NodeCount(),
		Replications: res.Replications,
		Completed:    res.Completed,
		Complete:     res.Complete,
		Seed:         res.Seed,
		Cuts:         make([]Cut, len(res.Cuts)),
		NodeSummary:  make([]NodeSummary, t.NodeCount()),
	}

	for i, c := range res.Cuts {
		row := Cut{
			Position: i + 1,
			ID:       c.ID,
			Observed: c.Cases,
			Expected: c.Measure,
			Ratio:    ratio(c.Cases, c.Measure),
			LLR:      res.NormalizedLLR(i),
			Rank:     c.Rank,
		}
		if p, ok := res.PValue(i); ok {
			row.PValue = &p
		}
		doc.Cuts[i] = row
	}

	for v, n := range t.Nodes() {
		doc.NodeSummary[v] = NodeSummary{
			ID:         n.ID,
			Observed:   res.Branch.Cases[v],
			Expected:   res.Branch.Measure[v],
			Ratio:      ratio(res.Branch.Cases[v], res.Branch.Measure[v]),
			Duplicates: n.Duplicates,
			MultiPath:  res.Branch.MultiPath[v],
		}
	}

	if opts.CriticalValues && res.Complete {
		cvs, err := res.CriticalValues()
		if err != nil {
			return nil, err
		}
		for _, cv := range cvs {
			doc.CriticalValues = append(doc.CriticalValues, CriticalValue{Alpha: cv.Alpha, LLR: cv.LLR})
		}
	}
	return doc, nil
}

// HasPValues reports whether the document carries valid p-values.
func (d *Document) HasPValues() bool {
	return d.Complete && d.Replications > 0
}

// Significant returns the cuts with a p-value at or below alpha.
func (d *Document) Significant(alpha float64) []Cut {
	var out []Cut
	for _, c := range d.Cuts {
		if c.PValue != nil && *c.PValue <= alpha {
			out = append(out, c)
		}
	}
	return out
}

func ratio(observed int, expected float64) float64 {
	if expected <= 0 {
		return 0
	}
	return float64(observed) / expected
}
