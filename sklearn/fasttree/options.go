package fasttree

import (
	"github.com/YuminosukeSato/salesforecast/pkg/errors"
)

// Objective names accepted by Options.Objective.
const (
	ObjectiveTweedie    = "tweedie"
	ObjectivePoisson    = "poisson"
	ObjectiveRegression = "regression"
)

// Options contains the boosting hyperparameters.
type Options struct {
	// Boosting
	NumTrees      int     `json:"num_trees"`
	NumLeaves     int     `json:"num_leaves"`
	MinDataInLeaf int     `json:"min_data_in_leaf"`
	LearningRate  float64 `json:"learning_rate"`

	// Histogram
	MaxBin int `json:"max_bin"`

	// Objective
	Objective     string  `json:"objective"`
	VariancePower float64 `json:"variance_power"` // Tweedie index, 1 < p < 2

	// Regularization
	Lambda         float64 `json:"lambda_l2"`
	MinGainToSplit float64 `json:"min_gain_to_split"`
	MinSumHessian  float64 `json:"min_sum_hessian_in_leaf"`

	// Sampling
	FeatureFraction float64 `json:"feature_fraction"`
	BaggingFraction float64 `json:"bagging_fraction"`
	Seed            int64   `json:"seed"`

	// EarlyStoppingRounds > 0 stops training once the training loss has not
	// improved by more than EarlyStoppingTolerance for that many iterations.
	EarlyStoppingRounds    int     `json:"early_stopping_rounds"`
	EarlyStoppingTolerance float64 `json:"early_stopping_tolerance"`

	// Verbosity > 0 logs training progress every Verbosity iterations.
	Verbosity int `json:"verbosity"`
}

// DefaultOptions returns the FastTreeTweedie defaults.
func DefaultOptions() Options {
	return Options{
		NumTrees:        100,
		NumLeaves:       20,
		MinDataInLeaf:   10,
		LearningRate:    0.2,
		MaxBin:          255,
		Objective:       ObjectiveTweedie,
		VariancePower:   1.5,
		Lambda:          0,
		MinGainToSplit:  0,
		MinSumHessian:   1e-3,
		FeatureFraction: 1,
		BaggingFraction: 1,
		Seed:            0,
	}
}

// Validate checks the options for values training cannot work with.
func (o Options) Validate() error {
	switch {
	case o.NumTrees < 1:
		return errors.NewValidationError("NumTrees", "must be at least 1", o.NumTrees)
	case o.NumLeaves < 2:
		return errors.NewValidationError("NumLeaves", "must be at least 2", o.NumLeaves)
	case o.MinDataInLeaf < 1:
		return errors.NewValidationError("MinDataInLeaf", "must be at least 1", o.MinDataInLeaf)
	case o.LearningRate <= 0 || o.LearningRate > 1:
		return errors.NewValidationError("LearningRate", "must be in (0, 1]", o.LearningRate)
	case o.MaxBin < 2 || o.MaxBin > maxBinLimit:
		return errors.NewValidationError("MaxBin", "must be in [2, 65535]", o.MaxBin)
	case o.Lambda < 0:
		return errors.NewValidationError("Lambda", "must be non-negative", o.Lambda)
	case o.MinSumHessian < 0:
		return errors.NewValidationError("MinSumHessian", "must be non-negative", o.MinSumHessian)
	case o.FeatureFraction <= 0 || o.FeatureFraction > 1:
		return errors.NewValidationError("FeatureFraction", "must be in (0, 1]", o.FeatureFraction)
	case o.BaggingFraction <= 0 || o.BaggingFraction > 1:
		return errors.NewValidationError("BaggingFraction", "must be in (0, 1]", o.BaggingFraction)
	case o.EarlyStoppingRounds < 0:
		return errors.NewValidationError("EarlyStoppingRounds", "must be non-negative", o.EarlyStoppingRounds)
	case o.EarlyStoppingTolerance < 0:
		return errors.NewValidationError("EarlyStoppingTolerance", "must be non-negative", o.EarlyStoppingTolerance)
	}
	switch o.Objective {
	case ObjectiveTweedie:
		if o.VariancePower <= 1 || o.VariancePower >= 2 {
			return errors.NewValidationError("VariancePower", "must be in (1, 2)", o.VariancePower)
		}
	case ObjectivePoisson, ObjectiveRegression:
	default:
		return errors.NewValidationError("Objective", "unknown objective", o.Objective)
	}
	return nil
}
