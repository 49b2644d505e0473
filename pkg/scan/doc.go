// Package scan implements the tree-based scan statistic.
//
// # Overview
//
// Given a [tree.Tree] with observed cases and expected measure per node, the
// scan looks at every cut (a node together with its descendants) and scores
// the excess of cases in that branch with a Poisson log-likelihood ratio.
// The highest-scoring cut is the most likely cluster. Its significance comes
// from Monte Carlo replications under the null hypothesis: each replication
// regenerates case counts from the expected measure and records the largest
// LLR seen anywhere in the tree.
//
// # Pipeline
//
//  1. [NewModel] fixes the probability model. The conditional model rescales
//     every internal measure by C/N so that expected equals observed.
//  2. [Aggregator] sums internal values into branch totals. A descendant
//     reached along several paths counts once per ancestor.
//  3. [CutRanker] keeps the top K cuts by LLR.
//  4. Replications regenerate data, propagate it up the tree and bump the
//     rank of every cut whose LLR the replication's maximum reached.
//
// p-value = rank / (M + 1).
//
// # Concurrency
//
// Replications run on a bounded worker pool. Each replication draws from its
// own PCG stream derived from the seed and the replication index, so a run
// is reproducible for a given seed whatever the number of workers.
//
// Cancelling the context stops workers between replications. [Analyze] then
// returns the partial [Result] with Complete set to false.
package scan
