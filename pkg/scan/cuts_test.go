package scan

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func cutIDs(cuts []Cut) []string {
	ids := make([]string, len(cuts))
	for i, c := range cuts {
		ids[i] = c.ID
	}
	return ids
}

func TestCutRankerOrder(t *testing.T) {
	r := NewCutRanker(5)
	r.Insert(Cut{ID: "b", LLR: 2})
	r.Insert(Cut{ID: "d", LLR: 0.5})
	r.Insert(Cut{ID: "a", LLR: 3})
	r.Insert(Cut{ID: "c", LLR: 1})

	assert.Equal(t, 4, r.Len())
	assert.Equal(t, 5, r.Cap())
	assert.Equal(t, []string{"a", "b", "c", "d"}, cutIDs(r.Cuts()))
	for _, c := range r.Cuts() {
		assert.Equal(t, 1, c.Rank, c.ID)
	}
}

func TestCutRankerTiesKeepEarlierPosition(t *testing.T) {
	r := NewCutRanker(4)
	r.Insert(Cut{ID: "first", LLR: 1})
	r.Insert(Cut{ID: "second", LLR: 1})
	r.Insert(Cut{ID: "third", LLR: 1})

	assert.Equal(t, []string{"first", "second", "third"}, cutIDs(r.Cuts()))
}

func TestCutRankerCapacity(t *testing.T) {
	r := NewCutRanker(2)
	assert.True(t, r.Insert(Cut{ID: "x", LLR: 1}))
	assert.True(t, r.Insert(Cut{ID: "y", LLR: 2}))
	assert.False(t, r.Insert(Cut{ID: "low", LLR: 0.5}))
	assert.False(t, r.Insert(Cut{ID: "tie", LLR: 1}), "a tie with the last slot does not displace it")
	assert.True(t, r.Insert(Cut{ID: "z", LLR: 3}))

	assert.Equal(t, 2, r.Len())
	assert.Equal(t, []string{"z", "y"}, cutIDs(r.Cuts()))
}

func TestCutRankerDefaults(t *testing.T) {
	r := NewCutRanker(0)
	assert.Equal(t, DefaultMaxCuts, r.Cap())
	assert.Empty(t, r.Cuts())
	assert.False(t, r.Insert(Cut{ID: "never", LLR: math.Inf(-1)}))
}
