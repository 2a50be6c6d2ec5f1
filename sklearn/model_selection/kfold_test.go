package model_selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKFoldSplit(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		k       int
		shuffle bool
	}{
		{"even", 12, 6, false},
		{"uneven", 20, 6, false},
		{"shuffled", 101, 6, true},
		{"leave one out", 5, 5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			folds, err := NewKFold(tt.k, tt.shuffle, 42).Split(tt.n)
			require.NoError(t, err)
			require.Len(t, folds, tt.k)

			seen := make([]int, tt.n)
			minSize, maxSize := tt.n, 0
			for _, f := range folds {
				assert.Len(t, f.TrainIndices, tt.n-len(f.TestIndices))
				inTest := map[int]bool{}
				for _, idx := range f.TestIndices {
					seen[idx]++
					inTest[idx] = true
				}
				for _, idx := range f.TrainIndices {
					assert.False(t, inTest[idx], "index %d in both train and test", idx)
				}
				minSize = min(minSize, len(f.TestIndices))
				maxSize = max(maxSize, len(f.TestIndices))
			}
			for idx, c := range seen {
				assert.Equal(t, 1, c, "index %d", idx)
			}
			assert.LessOrEqual(t, maxSize-minSize, 1)
		})
	}
}

func TestKFoldUnshuffledIsContiguous(t *testing.T) {
	folds, err := NewKFold(3, false, 0).Split(7)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, folds[0].TestIndices)
	assert.Equal(t, []int{3, 4}, folds[1].TestIndices)
	assert.Equal(t, []int{5, 6}, folds[2].TestIndices)
	assert.Equal(t, []int{0, 1, 2, 5, 6}, folds[1].TrainIndices)
}

func TestKFoldShuffleIsSeeded(t *testing.T) {
	a, err := NewKFold(4, true, 7).Split(40)
	require.NoError(t, err)
	b, err := NewKFold(4, true, 7).Split(40)
	require.NoError(t, err)
	c, err := NewKFold(4, true, 8).Split(40)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestKFoldErrors(t *testing.T) {
	_, err := NewKFold(1, false, 0).Split(10)
	assert.Error(t, err)
	_, err = NewKFold(6, false, 0).Split(5)
	assert.Error(t, err)
}
