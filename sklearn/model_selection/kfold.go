// Package model_selection provides data splitters for cross-validation.
package model_selection

import (
	"math/rand/v2"
	"sort"

	"github.com/YuminosukeSato/salesforecast/pkg/errors"
)

// Fold holds the row indices of one cross-validation split.
type Fold struct {
	TrainIndices []int
	TestIndices  []int
}

// KFold implements k-fold cross-validation splitter
type KFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed int64
}

// NewKFold creates a new k-fold splitter
func NewKFold(nSplits int, shuffle bool, randomSeed int64) *KFold {
	return &KFold{NSplits: nSplits, Shuffle: shuffle, RandomSeed: randomSeed}
}

// Split partitions [0, n) into NSplits folds. Every index appears in exactly
// one test fold; test fold sizes differ by at most one, the first n%NSplits
// folds being one larger. Indices within a fold are sorted.
func (kf *KFold) Split(n int) ([]Fold, error) {
	if kf.NSplits < 2 {
		return nil, errors.NewValidationError("NSplits", "must be at least 2", kf.NSplits)
	}
	if n < kf.NSplits {
		return nil, errors.NewValueError("KFold.Split",
			"cannot have number of splits greater than the number of samples")
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	if kf.Shuffle {
		seed := uint64(kf.RandomSeed)
		r := rand.New(rand.NewPCG(seed, seed))
		r.Shuffle(n, func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	foldOf := make([]int, n)
	folds := make([]Fold, kf.NSplits)
	size, remainder := n/kf.NSplits, n%kf.NSplits
	pos := 0
	for k := range folds {
		testSize := size
		if k < remainder {
			testSize++
		}
		test := append([]int(nil), indices[pos:pos+testSize]...)
		sort.Ints(test)
		for _, idx := range test {
			foldOf[idx] = k
		}
		folds[k].TestIndices = test
		pos += testSize
	}
	for k := range folds {
		train := make([]int, 0, n-len(folds[k].TestIndices))
		for idx := 0; idx < n; idx++ {
			if foldOf[idx] != k {
				train = append(train, idx)
			}
		}
		folds[k].TrainIndices = train
	}
	return folds, nil
}
