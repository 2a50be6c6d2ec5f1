package fasttree

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectiveDerivativesMatchLoss(t *testing.T) {
	objectives := []ObjectiveFunction{
		&L2Objective{},
		&PoissonObjective{},
		NewTweedieObjective(1.5),
		NewTweedieObjective(1.2),
	}
	const h = 1e-5
	for _, obj := range objectives {
		t.Run(obj.Name(), func(t *testing.T) {
			for _, raw := range []float64{-1, 0, 0.5, 3} {
				for _, label := range []float64{0, 1, 7.5} {
					grad, hess := obj.Gradient(raw, label)
					numGrad := (obj.Loss(raw+h, label) - obj.Loss(raw-h, label)) / (2 * h)
					g1, _ := obj.Gradient(raw+h, label)
					g0, _ := obj.Gradient(raw-h, label)
					numHess := (g1 - g0) / (2 * h)
					assert.InDelta(t, numGrad, grad, 1e-4*math.Max(1, math.Abs(grad)), "grad raw=%v y=%v", raw, label)
					assert.InDelta(t, numHess, hess, 1e-4*math.Max(1, math.Abs(hess)), "hess raw=%v y=%v", raw, label)
					assert.Greater(t, hess, 0.0)
				}
			}
		})
	}
}

func TestTweedieInitScoreAndTransform(t *testing.T) {
	obj := NewTweedieObjective(1.5)
	init := obj.InitScore([]float64{100, 200, 300})
	assert.InDelta(t, math.Log(200), init, 1e-12)
	assert.InDelta(t, 200, obj.Transform(init), 1e-9)

	// the gradient vanishes at the mean when every label equals it
	g, _ := obj.Gradient(math.Log(50), 50)
	assert.InDelta(t, 0, g, 1e-9)
}

func TestObjectiveLabelChecks(t *testing.T) {
	assert.Error(t, NewTweedieObjective(1.5).CheckLabels([]float64{1, -2}))
	assert.Error(t, (&PoissonObjective{}).CheckLabels([]float64{-0.1}))
	assert.NoError(t, (&L2Objective{}).CheckLabels([]float64{-5, 3}))
	assert.Error(t, (&L2Objective{}).CheckLabels([]float64{math.NaN()}))
}

func TestNewObjective(t *testing.T) {
	for _, name := range []string{ObjectiveTweedie, ObjectivePoisson, ObjectiveRegression} {
		opts := DefaultOptions()
		opts.Objective = name
		obj, err := NewObjective(opts)
		require.NoError(t, err)
		assert.Equal(t, name, obj.Name())
	}
	opts := DefaultOptions()
	opts.Objective = "huber"
	_, err := NewObjective(opts)
	assert.Error(t, err)
}

func TestOptionsValidate(t *testing.T) {
	require.NoError(t, DefaultOptions().Validate())

	tests := []struct {
		name   string
		mutate func(o *Options)
	}{
		{"no trees", func(o *Options) { o.NumTrees = 0 }},
		{"one leaf", func(o *Options) { o.NumLeaves = 1 }},
		{"zero min data", func(o *Options) { o.MinDataInLeaf = 0 }},
		{"learning rate too high", func(o *Options) { o.LearningRate = 1.5 }},
		{"max bin too small", func(o *Options) { o.MaxBin = 1 }},
		{"variance power 2", func(o *Options) { o.VariancePower = 2 }},
		{"variance power 1", func(o *Options) { o.VariancePower = 1 }},
		{"negative lambda", func(o *Options) { o.Lambda = -1 }},
		{"feature fraction zero", func(o *Options) { o.FeatureFraction = 0 }},
		{"bagging fraction above one", func(o *Options) { o.BaggingFraction = 1.1 }},
		{"unknown objective", func(o *Options) { o.Objective = "gamma" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := DefaultOptions()
			tt.mutate(&o)
			assert.Error(t, o.Validate())
		})
	}

	o := DefaultOptions()
	o.Objective = ObjectivePoisson
	o.VariancePower = 5
	assert.NoError(t, o.Validate(), "variance power only matters for tweedie")
}
