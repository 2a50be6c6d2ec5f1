package fasttree

import (
	"math"
	"sort"
)

const maxBinLimit = math.MaxUint16

// BinMapper discretizes one feature into at most MaxBin bins.
// Bin b holds values v with UpperBounds[b-1] < v <= UpperBounds[b];
// the last bound is +Inf. NaN maps to bin 0.
type BinMapper struct {
	UpperBounds []float64
}

// NewBinMapper builds equal-frequency bins over the distinct non-NaN values.
// When there are at most maxBin distinct values each gets its own bin.
func NewBinMapper(values []float64, maxBin int) *BinMapper {
	sorted := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			sorted = append(sorted, v)
		}
	}
	if len(sorted) == 0 {
		return &BinMapper{UpperBounds: []float64{math.Inf(1)}}
	}
	sort.Float64s(sorted)

	distinct := []float64{sorted[0]}
	counts := []int{1}
	for _, v := range sorted[1:] {
		if v == distinct[len(distinct)-1] {
			counts[len(counts)-1]++
			continue
		}
		distinct = append(distinct, v)
		counts = append(counts, 1)
	}

	bounds := make([]float64, 0, min(len(distinct), maxBin))
	if len(distinct) <= maxBin {
		for i := 0; i+1 < len(distinct); i++ {
			bounds = append(bounds, midpoint(distinct[i], distinct[i+1]))
		}
	} else {
		remaining := len(sorted)
		binsLeft := maxBin
		inBin := 0
		for i := 0; i+1 < len(distinct) && binsLeft > 1; i++ {
			inBin += counts[i]
			target := float64(remaining) / float64(binsLeft)
			if float64(inBin) >= target {
				bounds = append(bounds, midpoint(distinct[i], distinct[i+1]))
				remaining -= inBin
				binsLeft--
				inBin = 0
			}
		}
	}
	bounds = append(bounds, math.Inf(1))
	return &BinMapper{UpperBounds: bounds}
}

func midpoint(a, b float64) float64 {
	m := a + (b-a)/2
	// guard against rounding onto the upper value
	if m >= b {
		return a
	}
	return m
}

// NumBins returns the number of bins.
func (m *BinMapper) NumBins() int { return len(m.UpperBounds) }

// ValueToBin returns the bin of v.
func (m *BinMapper) ValueToBin(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return sort.SearchFloat64s(m.UpperBounds, v)
}

// Threshold returns the raw-value threshold of a split after bin b:
// values <= Threshold(b) go left.
func (m *BinMapper) Threshold(b int) float64 {
	return m.UpperBounds[b]
}
