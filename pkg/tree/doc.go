// Package tree provides the node arena that the scan statistic runs on.
//
// # Overview
//
// A tree (more precisely a rooted DAG: a node may have several parents) is
// built once per run from a list of [Record] values and is immutable in
// topology afterwards. Every node is addressed by a dense integer index in
// [0, NodeCount()), assigned in order of first definition. Node labels from the
// input file are kept for reporting and can be mapped back with [Tree.Index].
//
// # Basic Usage
//
// Build a tree from records, or read the whitespace-delimited text format
// with [Read]:
//
//	t, err := tree.Build([]tree.Record{
//	    {ID: "root", Cases: 2, Measure: 1},
//	    {ID: "a", Cases: 3, Measure: 1, Parents: []string{"root"}},
//	})
//
// Query the structure with [Tree.Parents], [Tree.Children] and [Tree.Roots].
// Nodes are value records; [Tree.Node] returns a copy.
//
// # Input Format
//
// One node per line:
//
//	ID internalCases internalMeasure parentCount parentID...
//
// Blank lines and lines starting with '#' are ignored. Parent IDs may refer
// to nodes defined later in the file. Parsing stops at the first malformed
// line and reports its line number.
//
// # Validation
//
// [Build] rejects duplicate node IDs, unknown parent references and
// duplicated parent references with STRUCTURAL errors, and negative cases or
// measure with DATA_CONSISTENCY errors. Cycles are not rejected here: the
// scan's aggregation pass detects self-ancestry while it walks each node's
// ancestors.
//
// # Concurrency
//
// A Tree is safe for concurrent reads once built. [Tree.ApplyDuplicates] is
// the only mutator and must run before the tree is shared.
package tree
