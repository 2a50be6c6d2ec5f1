package fasttree

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/salesforecast/core/parallel"
	"github.com/YuminosukeSato/salesforecast/pkg/errors"
)

// Importance types accepted by Model.FeatureImportance.
const (
	ImportanceSplit = "split"
	ImportanceGain  = "gain"
)

// Model is a fitted tree ensemble. Raw scores are the init score plus the
// sum of shrunk tree outputs; predictions apply the objective's inverse link.
type Model struct {
	Trees         []Tree
	InitScore     float64
	Objective     string
	VariancePower float64
	NumFeatures   int
	FeatureNames  []string
}

// NumTrees returns the number of trees in the ensemble.
func (m *Model) NumTrees() int { return len(m.Trees) }

func (m *Model) inverseLink(raw float64) float64 {
	if m.Objective == ObjectiveRegression {
		return raw
	}
	return errors.StabilizeExp(raw)
}

// PredictRaw returns the raw (link scale) score of one row.
func (m *Model) PredictRaw(features []float64) float64 {
	score := m.InitScore
	for i := range m.Trees {
		score += m.Trees[i].Predict(features)
	}
	return score
}

// PredictRow returns the prediction for one row.
func (m *Model) PredictRow(features []float64) (float64, error) {
	if len(features) != m.NumFeatures {
		return 0, errors.NewDimensionError("Model.PredictRow", m.NumFeatures, len(features), 1)
	}
	return m.inverseLink(m.PredictRaw(features)), nil
}

// Predict returns one prediction per row of X. Large inputs are scored in
// parallel.
func (m *Model) Predict(X mat.Matrix) ([]float64, error) {
	rows, cols := X.Dims()
	if cols != m.NumFeatures {
		return nil, errors.NewDimensionError("Model.Predict", m.NumFeatures, cols, 1)
	}
	out := make([]float64, rows)
	dense, isDense := X.(*mat.Dense)
	parallel.ParallelizeWithThreshold(rows, parallel.DefaultThreshold, func(start, end int) {
		buf := make([]float64, cols)
		for i := start; i < end; i++ {
			var row []float64
			if isDense {
				row = dense.RawRowView(i)
			} else {
				row = mat.Row(buf, i, X)
			}
			out[i] = m.inverseLink(m.PredictRaw(row))
		}
	})
	return out, nil
}

// FeatureImportance returns per-feature importance: the number of splits on
// each feature ("split") or the total split gain ("gain").
func (m *Model) FeatureImportance(kind string) ([]float64, error) {
	if kind != ImportanceSplit && kind != ImportanceGain {
		return nil, errors.NewValueError("FeatureImportance", fmt.Sprintf("unknown importance type %q", kind))
	}
	imp := make([]float64, m.NumFeatures)
	for ti := range m.Trees {
		for ni := range m.Trees[ti].Nodes {
			n := &m.Trees[ti].Nodes[ni]
			if n.IsLeaf() {
				continue
			}
			if kind == ImportanceSplit {
				imp[n.SplitFeature]++
			} else {
				imp[n.SplitFeature] += n.Gain
			}
		}
	}
	return imp, nil
}
