package fasttree

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/salesforecast/pkg/errors"
)

// ObjectiveFunction defines the loss minimized by boosting, expressed on the
// raw (link) scale.
type ObjectiveFunction interface {
	// Gradient returns the first and second derivatives of the loss with
	// respect to the raw score.
	Gradient(raw, label float64) (grad, hess float64)

	// Loss returns the per-sample loss at the raw score.
	Loss(raw, label float64) float64

	// InitScore returns the constant raw score boosting starts from.
	InitScore(labels []float64) float64

	// Transform maps a raw score to the prediction scale.
	Transform(raw float64) float64

	// CheckLabels rejects labels outside the objective's domain.
	CheckLabels(labels []float64) error

	// Name returns the name of the objective
	Name() string
}

// NewObjective creates the objective named in opts.
func NewObjective(opts Options) (ObjectiveFunction, error) {
	switch opts.Objective {
	case ObjectiveTweedie:
		return NewTweedieObjective(opts.VariancePower), nil
	case ObjectivePoisson:
		return &PoissonObjective{}, nil
	case ObjectiveRegression:
		return &L2Objective{}, nil
	default:
		return nil, errors.NewValidationError("Objective", "unknown objective", opts.Objective)
	}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func checkFinite(op string, labels []float64) error {
	for i, y := range labels {
		if math.IsNaN(y) || math.IsInf(y, 0) {
			return errors.NewValueError(op, fmt.Sprintf("label %d is not finite: %v", i, y))
		}
	}
	return nil
}

func checkNonNegative(op string, labels []float64) error {
	if err := checkFinite(op, labels); err != nil {
		return err
	}
	for i, y := range labels {
		if y < 0 {
			return errors.NewValueError(op, fmt.Sprintf("label %d is negative (%v); log-link objectives require labels >= 0", i, y))
		}
	}
	return nil
}

// L2Objective implements squared error with identity link.
type L2Objective struct{}

func (o *L2Objective) Gradient(raw, label float64) (float64, float64) {
	return raw - label, 1
}

func (o *L2Objective) Loss(raw, label float64) float64 {
	d := raw - label
	return 0.5 * d * d
}

func (o *L2Objective) InitScore(labels []float64) float64 { return mean(labels) }

func (o *L2Objective) Transform(raw float64) float64 { return raw }

func (o *L2Objective) CheckLabels(labels []float64) error {
	return checkFinite("L2Objective", labels)
}

func (o *L2Objective) Name() string { return ObjectiveRegression }

// PoissonObjective implements Poisson deviance with log link.
type PoissonObjective struct{}

func (o *PoissonObjective) Gradient(raw, label float64) (float64, float64) {
	e := errors.StabilizeExp(raw)
	return e - label, e
}

func (o *PoissonObjective) Loss(raw, label float64) float64 {
	return errors.StabilizeExp(raw) - label*raw
}

func (o *PoissonObjective) InitScore(labels []float64) float64 {
	return errors.StabilizeLog(mean(labels))
}

func (o *PoissonObjective) Transform(raw float64) float64 { return errors.StabilizeExp(raw) }

func (o *PoissonObjective) CheckLabels(labels []float64) error {
	return checkNonNegative("PoissonObjective", labels)
}

func (o *PoissonObjective) Name() string { return ObjectivePoisson }

// TweedieObjective implements the Tweedie negative log-likelihood with log
// link and variance power Rho in (1, 2):
//
//	loss = -y·exp((1-ρ)f)/(1-ρ) + exp((2-ρ)f)/(2-ρ)
type TweedieObjective struct {
	Rho float64
}

// NewTweedieObjective creates a Tweedie objective with the given variance power.
func NewTweedieObjective(rho float64) *TweedieObjective {
	return &TweedieObjective{Rho: rho}
}

func (o *TweedieObjective) Gradient(raw, label float64) (float64, float64) {
	a := errors.StabilizeExp((1 - o.Rho) * raw)
	b := errors.StabilizeExp((2 - o.Rho) * raw)
	grad := -label*a + b
	hess := -label*(1-o.Rho)*a + (2-o.Rho)*b
	return grad, hess
}

func (o *TweedieObjective) Loss(raw, label float64) float64 {
	a := errors.StabilizeExp((1 - o.Rho) * raw)
	b := errors.StabilizeExp((2 - o.Rho) * raw)
	return -label*a/(1-o.Rho) + b/(2-o.Rho)
}

func (o *TweedieObjective) InitScore(labels []float64) float64 {
	return errors.StabilizeLog(mean(labels))
}

func (o *TweedieObjective) Transform(raw float64) float64 { return errors.StabilizeExp(raw) }

func (o *TweedieObjective) CheckLabels(labels []float64) error {
	return checkNonNegative("TweedieObjective", labels)
}

func (o *TweedieObjective) Name() string { return ObjectiveTweedie }
