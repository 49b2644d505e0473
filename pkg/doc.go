// Package pkg provides the core libraries of treescan, a tree-based scan
// statistic for finding unusual clusters of cases in a hierarchy.
//
// # Overview
//
// The pkg directory is organized by stage:
//
//  1. [tree] - Tree records, text input parsing and known duplicates
//  2. [scan] - Likelihood models, branch aggregation, cut ranking and the
//     Monte Carlo simulation
//  3. [report] - Result documents (JSON and text)
//  4. [pipeline] - Orchestration (load → scan → report) with config files
//  5. [cache], [observability], [errors], [buildinfo] - Supporting
//     infrastructure
//
// # Architecture
//
// The typical data flow:
//
//	tree file (+ duplicates file)
//	         ↓
//	    [tree] package (records → validated tree)
//	         ↓
//	    [scan] package (branch totals, ranked cuts, p-values)
//	         ↓
//	    [report] package (document)
//	         ↓
//	    text / JSON output
//
// # Quick Start
//
//	t, err := tree.ReadFile("icd10.tree")
//	if err != nil {
//	    return err
//	}
//	res, err := scan.Analyze(ctx, t, scan.Options{
//	    Model:        scan.Unconditional,
//	    Replications: 9999,
//	})
//	if err != nil {
//	    return err
//	}
//	doc, err := report.FromScan(res, report.Options{Input: "icd10.tree"})
//	if err != nil {
//	    return err
//	}
//	return report.WriteText(doc, os.Stdout)
//
// The [pipeline] package wraps these steps with defaults, validation and
// result caching, and is what the treescan CLI uses.
//
// [tree]: https://pkg.go.dev/github.com/matzehuels/treescan/pkg/tree
// [scan]: https://pkg.go.dev/github.com/matzehuels/treescan/pkg/scan
// [report]: https://pkg.go.dev/github.com/matzehuels/treescan/pkg/report
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/treescan/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/treescan/pkg/cache
// [observability]: https://pkg.go.dev/github.com/matzehuels/treescan/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/treescan/pkg/errors
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/treescan/pkg/buildinfo
package pkg
