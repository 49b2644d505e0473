package report

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"
)

// WriteText writes doc as a plain-text report: a header, the ranked cuts,
// optional critical values and the per-node summary. Incomplete runs get a
// warning in place of p-values.
func WriteText(doc *Document, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "treescan %s\n", doc.Version)
	fmt.Fprintf(tw, "Run ID:\t%s\n", doc.RunID)
	fmt.Fprintf(tw, "Created:\t%s\n", doc.CreatedAt.Format(time.RFC3339))
	if doc.Input != "" {
		fmt.Fprintf(tw, "Input:\t%s\n", doc.Input)
	}
	fmt.Fprintf(tw, "Model:\t%s\n", doc.Model)
	fmt.Fprintf(tw, "Nodes:\t%d\n", doc.Nodes)
	fmt.Fprintf(tw, "Total cases:\t%d\n", doc.TotalCases)
	fmt.Fprintf(tw, "Total measure:\t%s\n", formatFloat(doc.TotalMeasure))
	fmt.Fprintf(tw, "Replications:\t%d\n", doc.Replications)
	fmt.Fprintf(tw, "Seed:\t%d\n", doc.Seed)
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "MOST LIKELY CUTS")
	if !doc.Complete {
		fmt.Fprintf(tw, "WARNING: run stopped after %d of %d replications, p-values are not valid\n", doc.Completed, doc.Replications)
	}
	if len(doc.Cuts) == 0 {
		fmt.Fprintln(tw, "No node has more than one case.")
	} else {
		fmt.Fprintln(tw, "#\tNode\tObserved\tExpected\tO/E\tLLR\tp-value\t")
		for _, c := range doc.Cuts {
			fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%.2f\t%.6f\t%s\t\n",
				c.Position, c.ID, c.Observed, formatFloat(c.Expected), c.Ratio, c.LLR, formatPValue(c.PValue))
		}
	}
	fmt.Fprintln(tw)

	if len(doc.CriticalValues) > 0 {
		fmt.Fprintln(tw, "CRITICAL VALUES")
		for _, cv := range doc.CriticalValues {
			fmt.Fprintf(tw, "alpha %g:\t%.6f\t\n", cv.Alpha, cv.LLR)
		}
		fmt.Fprintln(tw)
	}

	fmt.Fprintln(tw, "NODE SUMMARY")
	fmt.Fprintln(tw, "Node\tObserved\tExpected\tO/E\t")
	for _, n := range doc.NodeSummary {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%.2f\t\n", n.ID, n.Observed, formatFloat(n.Expected), n.Ratio)
	}

	return tw.Flush()
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%.4f", v)
}

func formatPValue(p *float64) string {
	if p == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.5f", *p)
}
