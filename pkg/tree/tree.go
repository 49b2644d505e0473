package tree

import (
	"errors"
	"slices"

	scanerrors "github.com/matzehuels/treescan/pkg/errors"
)

var (
	// ErrDuplicateNodeID is wrapped when two records define the same ID.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownParent is wrapped when a record references an undefined parent.
	ErrUnknownParent = errors.New("unknown parent")

	// ErrDuplicateParent is wrapped when a record lists the same parent twice.
	ErrDuplicateParent = errors.New("duplicate parent reference")

	// ErrUnknownNode is wrapped when a duplicates entry names an undefined node.
	ErrUnknownNode = errors.New("unknown node")
)

// Record is one node definition as read from a tree description.
type Record struct {
	ID      string   // Node label
	Cases   int      // Observed events attributed directly to the node
	Measure float64  // Expected-count mass directly at the node
	Parents []string // Parent labels; empty for a root
	Line    int      // Source line, 0 when not read from a file
}

// Node is a value record in the tree arena.
type Node struct {
	ID         string  // Node label
	Cases      int     // Internal observed cases, after duplicate removal
	Measure    float64 // Internal expected measure
	Duplicates int     // Known duplicate events already subtracted from Cases

	parents  []int
	children []int
}

// Tree is an immutable node arena with parent/child adjacency by index.
//
// The zero value is not usable - use Build to create one.
type Tree struct {
	nodes []Node
	index map[string]int
	edges int
}

// Build creates a tree from records. Node indices follow record order.
//
// Build returns a STRUCTURAL error for empty or duplicate IDs, unknown parents
// and repeated parent references, and a DATA_CONSISTENCY error for negative
// cases or measure. Errors name the offending node and carry the record's line.
func Build(records []Record) (*Tree, error) {
	t := &Tree{
		nodes: make([]Node, len(records)),
		index: make(map[string]int, len(records)),
	}

	for i, r := range records {
		if err := scanerrors.ValidateNodeID(r.ID); err != nil {
			return nil, scanerrors.Wrap(scanerrors.ErrCodeStructural, err, "invalid node ID").WithLine(r.Line)
		}
		if _, exists := t.index[r.ID]; exists {
			return nil, scanerrors.Wrap(scanerrors.ErrCodeStructural, ErrDuplicateNodeID, "node defined more than once").
				WithNode(r.ID).WithLine(r.Line)
		}
		if err := scanerrors.ValidateCount("internal cases", r.Cases); err != nil {
			return nil, scanerrors.Wrap(scanerrors.ErrCodeDataConsistency, err, "invalid cases").WithNode(r.ID).WithLine(r.Line)
		}
		if err := scanerrors.ValidateMeasure("internal measure", r.Measure); err != nil {
			return nil, scanerrors.Wrap(scanerrors.ErrCodeDataConsistency, err, "invalid measure").WithNode(r.ID).WithLine(r.Line)
		}
		t.index[r.ID] = i
		t.nodes[i] = Node{ID: r.ID, Cases: r.Cases, Measure: r.Measure}
	}

	for i, r := range records {
		for _, pid := range r.Parents {
			p, ok := t.index[pid]
			if !ok {
				return nil, scanerrors.Wrap(scanerrors.ErrCodeStructural, ErrUnknownParent, "parent %q is not defined", pid).
					WithNode(r.ID).WithLine(r.Line)
			}
			if slices.Contains(t.nodes[i].parents, p) {
				return nil, scanerrors.Wrap(scanerrors.ErrCodeStructural, ErrDuplicateParent, "parent %q listed more than once", pid).
					WithNode(r.ID).WithLine(r.Line)
			}
			t.nodes[i].parents = append(t.nodes[i].parents, p)
			t.nodes[p].children = append(t.nodes[p].children, i)
			t.edges++
		}
	}

	return t, nil
}

// NodeCount returns the number of nodes.
func (t *Tree) NodeCount() int { return len(t.nodes) }

// EdgeCount returns the number of parent/child edges.
func (t *Tree) EdgeCount() int { return t.edges }

// Node returns a copy of the node at index i.
func (t *Tree) Node(i int) Node { return t.nodes[i] }

// Nodes returns the nodes in index order. This order is arbitrary but fixed
// for the lifetime of the tree, and is the order synthetic data is generated
// in. The returned slice must not be modified.
func (t *Tree) Nodes() []Node { return t.nodes }

// ID returns the label of node i.
func (t *Tree) ID(i int) string { return t.nodes[i].ID }

// Index returns the index of the node labelled id.
func (t *Tree) Index(id string) (int, bool) {
	i, ok := t.index[id]
	return i, ok
}

// Parents returns the parent indices of node i. Read-only view.
func (t *Tree) Parents(i int) []int { return t.nodes[i].parents }

// Children returns the child indices of node i. Read-only view.
func (t *Tree) Children(i int) []int { return t.nodes[i].children }

// Roots returns the indices of nodes without parents, in index order.
func (t *Tree) Roots() []int {
	var roots []int
	for i := range t.nodes {
		if len(t.nodes[i].parents) == 0 {
			roots = append(roots, i)
		}
	}
	return roots
}

// Leaves returns the indices of nodes without children, in index order.
func (t *Tree) Leaves() []int {
	var leaves []int
	for i := range t.nodes {
		if len(t.nodes[i].children) == 0 {
			leaves = append(leaves, i)
		}
	}
	return leaves
}

// TotalCases returns the sum of internal cases over all nodes.
func (t *Tree) TotalCases() int {
	total := 0
	for i := range t.nodes {
		total += t.nodes[i].Cases
	}
	return total
}

// TotalMeasure returns the sum of internal measure over all nodes.
func (t *Tree) TotalMeasure() float64 {
	total := 0.0
	for i := range t.nodes {
		total += t.nodes[i].Measure
	}
	return total
}

// InternalCases returns the internal case counts in index order.
func (t *Tree) InternalCases() []int {
	cases := make([]int, len(t.nodes))
	for i := range t.nodes {
		cases[i] = t.nodes[i].Cases
	}
	return cases
}

// InternalMeasure returns the internal measures in index order.
func (t *Tree) InternalMeasure() []float64 {
	measure := make([]float64, len(t.nodes))
	for i := range t.nodes {
		measure[i] = t.nodes[i].Measure
	}
	return measure
}

// ApplyDuplicates subtracts known duplicate events from internal cases.
//
// Every key must name a defined node (STRUCTURAL error otherwise), and the
// duplicate count may not exceed the node's cases (DATA_CONSISTENCY error).
// On error the tree is left unchanged.
func (t *Tree) ApplyDuplicates(dups map[string]int) error {
	for id, n := range dups {
		i, ok := t.index[id]
		if !ok {
			return scanerrors.Wrap(scanerrors.ErrCodeStructural, ErrUnknownNode, "duplicates reference an undefined node").WithNode(id)
		}
		if n < 0 {
			return scanerrors.DataConsistency(id, "duplicate count must be non-negative, got %d", n)
		}
		if n > t.nodes[i].Cases {
			return scanerrors.DataConsistency(id, "%d duplicates exceed %d internal cases", n, t.nodes[i].Cases)
		}
	}
	for id, n := range dups {
		i := t.index[id]
		t.nodes[i].Cases -= n
		t.nodes[i].Duplicates += n
	}
	return nil
}
