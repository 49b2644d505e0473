package scan

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scanerrors "github.com/matzehuels/treescan/pkg/errors"
	"github.com/matzehuels/treescan/pkg/tree"
)

func mustBuild(t *testing.T, records []tree.Record) *tree.Tree {
	t.Helper()
	tr, err := tree.Build(records)
	require.NoError(t, err)
	return tr
}

// chainTree is 0 <- 1 <- 2 with cases 2, 3, 0 and unit measure.
func chainTree(t *testing.T) *tree.Tree {
	return mustBuild(t, []tree.Record{
		{ID: "0", Cases: 2, Measure: 1},
		{ID: "1", Cases: 3, Measure: 1, Parents: []string{"0"}},
		{ID: "2", Cases: 0, Measure: 1, Parents: []string{"1"}},
	})
}

// diamondTree is r <- a, r <- b, {a, b} <- d.
func diamondTree(t *testing.T) *tree.Tree {
	return mustBuild(t, []tree.Record{
		{ID: "r", Cases: 1, Measure: 1},
		{ID: "a", Cases: 1, Measure: 1, Parents: []string{"r"}},
		{ID: "b", Cases: 1, Measure: 1, Parents: []string{"r"}},
		{ID: "d", Cases: 3, Measure: 1, Parents: []string{"a", "b"}},
	})
}

func aggregate(t *testing.T, tr *tree.Tree) (Branch, error) {
	return NewAggregator(tr).Aggregate(tr.InternalCases(), tr.InternalMeasure())
}

func TestAggregateChain(t *testing.T) {
	b, err := aggregate(t, chainTree(t))
	require.NoError(t, err)

	assert.Equal(t, []int{5, 3, 0}, b.Cases)
	assert.Equal(t, []float64{3, 2, 1}, b.Measure)
	assert.Equal(t, []bool{false, false, false}, b.MultiPath)
}

func TestAggregateRootEqualsTotal(t *testing.T) {
	tr := mustBuild(t, []tree.Record{
		{ID: "root", Cases: 1, Measure: 0.5},
		{ID: "x", Cases: 4, Measure: 1.25, Parents: []string{"root"}},
		{ID: "y", Cases: 0, Measure: 2, Parents: []string{"root"}},
		{ID: "x1", Cases: 2, Measure: 0.75, Parents: []string{"x"}},
		{ID: "x2", Cases: 1, Measure: 3, Parents: []string{"x"}},
	})
	b, err := aggregate(t, tr)
	require.NoError(t, err)

	assert.InDelta(t, tr.TotalMeasure(), b.Measure[0], 1e-12)
	assert.Equal(t, tr.TotalCases(), b.Cases[0])
	assert.Equal(t, 7, b.Cases[1])
}

func TestAggregateDiamondCountsOnce(t *testing.T) {
	b, err := aggregate(t, diamondTree(t))
	require.NoError(t, err)

	assert.Equal(t, []int{6, 4, 4, 3}, b.Cases)
	assert.Equal(t, []float64{4, 2, 2, 1}, b.Measure)
	assert.Equal(t, []bool{false, false, false, true}, b.MultiPath)
}

func TestAggregateSelfAncestry(t *testing.T) {
	tests := []struct {
		name    string
		records []tree.Record
	}{
		{
			name:    "self loop",
			records: []tree.Record{{ID: "a", Measure: 1, Parents: []string{"a"}}},
		},
		{
			name: "two-node cycle",
			records: []tree.Record{
				{ID: "a", Measure: 1, Parents: []string{"b"}},
				{ID: "b", Measure: 1, Parents: []string{"a"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := aggregate(t, mustBuild(t, tt.records))
			require.Error(t, err)
			assert.True(t, scanerrors.Is(err, scanerrors.ErrCodeStructural))

			var se *scanerrors.Error
			require.True(t, errors.As(err, &se))
			assert.Equal(t, "a", se.Node)
		})
	}
}

func TestAggregateZeroMeasure(t *testing.T) {
	t.Run("without cases", func(t *testing.T) {
		tr := mustBuild(t, []tree.Record{
			{ID: "root", Cases: 1, Measure: 1},
			{ID: "empty", Parents: []string{"root"}},
		})
		_, err := aggregate(t, tr)
		assert.NoError(t, err)
	})

	t.Run("with cases", func(t *testing.T) {
		tr := mustBuild(t, []tree.Record{
			{ID: "root", Cases: 1, Measure: 1},
			{ID: "bad", Cases: 2, Parents: []string{"root"}},
		})
		_, err := aggregate(t, tr)
		require.Error(t, err)
		assert.True(t, scanerrors.Is(err, scanerrors.ErrCodeDataConsistency))

		var se *scanerrors.Error
		require.True(t, errors.As(err, &se))
		assert.Equal(t, "bad", se.Node)
	})
}

func TestAggregatorReuse(t *testing.T) {
	tr := diamondTree(t)
	agg := NewAggregator(tr)

	first, err := agg.Aggregate(tr.InternalCases(), tr.InternalMeasure())
	require.NoError(t, err)
	second, err := agg.Aggregate(tr.InternalCases(), tr.InternalMeasure())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
