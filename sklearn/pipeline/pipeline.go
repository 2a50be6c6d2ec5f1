// Package pipeline chains column transforms with a tree trainer, and
// provides cross-validation and zip-archive persistence of fitted pipelines.
package pipeline

import (
	"context"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/salesforecast/dataset"
	"github.com/YuminosukeSato/salesforecast/metrics"
	"github.com/YuminosukeSato/salesforecast/pkg/errors"
	"github.com/YuminosukeSato/salesforecast/pkg/log"
	"github.com/YuminosukeSato/salesforecast/preprocessing"
	"github.com/YuminosukeSato/salesforecast/sklearn/fasttree"
)

// Default column names read by the trainer.
const (
	DefaultFeatureColumn = "Features"
	DefaultLabelColumn   = "Label"
)

// Pipeline is an unfitted sequence of transforms followed by a trainer.
type Pipeline struct {
	Steps         []preprocessing.Estimator
	Trainer       *fasttree.Trainer
	FeatureColumn string
	LabelColumn   string
}

// New creates a pipeline reading the default Features and Label columns.
func New(trainer *fasttree.Trainer, steps ...preprocessing.Estimator) *Pipeline {
	return &Pipeline{
		Steps:         steps,
		Trainer:       trainer,
		FeatureColumn: DefaultFeatureColumn,
		LabelColumn:   DefaultLabelColumn,
	}
}

// Append adds a transform to the end of the pipeline.
func (p *Pipeline) Append(step preprocessing.Estimator) *Pipeline {
	p.Steps = append(p.Steps, step)
	return p
}

// Fit fits every transform in order, then trains on the resulting feature
// and label columns.
func (p *Pipeline) Fit(ctx context.Context, frame *dataset.Frame) (*Model, error) {
	if p.Trainer == nil {
		return nil, errors.NewValidationError("Pipeline.Trainer", "a trainer is required", nil)
	}
	if frame == nil || frame.NumRows() == 0 {
		return nil, errors.NewModelError("Pipeline.Fit", "empty data", errors.ErrEmptyData)
	}

	start := time.Now()
	transforms := make([]preprocessing.Transformer, 0, len(p.Steps))
	cur := frame
	for _, step := range p.Steps {
		t, err := step.Fit(cur)
		if err != nil {
			return nil, errors.Wrapf(err, "fit step %s", step.OutputColumn())
		}
		if cur, err = t.Transform(cur); err != nil {
			return nil, errors.Wrapf(err, "transform step %s", step.OutputColumn())
		}
		transforms = append(transforms, t)
	}

	m := &Model{
		Transforms:    transforms,
		FeatureColumn: p.FeatureColumn,
		LabelColumn:   p.LabelColumn,
		TrainerName:   p.Trainer.String(),
		Options:       p.Trainer.Options(),
	}
	X, slots, err := m.features(cur)
	if err != nil {
		return nil, err
	}
	y, err := m.labels(cur)
	if err != nil {
		return nil, err
	}

	regressor, err := p.Trainer.Fit(ctx, X, y)
	if err != nil {
		return nil, err
	}
	regressor.FeatureNames = slots
	m.Regressor = regressor

	log.GetLoggerWithName("pipeline").Debug("Pipeline fitted",
		log.ModelNameKey, m.TrainerName,
		log.SamplesKey, frame.NumRows(),
		log.FeaturesKey, len(slots),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return m, nil
}

// Model is a fitted pipeline.
type Model struct {
	ID        string
	CreatedAt time.Time

	Transforms    []preprocessing.Transformer
	Regressor     *fasttree.Model
	FeatureColumn string
	LabelColumn   string
	TrainerName   string
	Options       fasttree.Options
}

// Transform applies every fitted transform to frame.
func (m *Model) Transform(frame *dataset.Frame) (*dataset.Frame, error) {
	cur := frame
	for _, t := range m.Transforms {
		var err error
		if cur, err = t.Transform(cur); err != nil {
			return nil, errors.Wrapf(err, "transform step %s", t.OutputColumn())
		}
	}
	return cur, nil
}

// FeatureNames returns the slot names of the feature vector.
func (m *Model) FeatureNames() []string {
	if m.Regressor == nil {
		return nil
	}
	return append([]string(nil), m.Regressor.FeatureNames...)
}

// Predict transforms frame and returns one prediction per row.
func (m *Model) Predict(frame *dataset.Frame) ([]float64, error) {
	if m.Regressor == nil {
		return nil, errors.NewNotFittedError("pipeline.Model", "Predict")
	}
	out, err := m.Transform(frame)
	if err != nil {
		return nil, err
	}
	X, _, err := m.features(out)
	if err != nil {
		return nil, err
	}
	return m.Regressor.Predict(X)
}

// PredictOne forecasts the month following a single product row.
func (m *Model) PredictOne(p dataset.ProductData) (dataset.ProductUnitPrediction, error) {
	preds, err := m.Predict(dataset.FromProducts([]dataset.ProductData{p}))
	if err != nil {
		return dataset.ProductUnitPrediction{}, err
	}
	return dataset.ProductUnitPrediction{Score: preds[0]}, nil
}

// Evaluate scores the model on a labelled frame.
func (m *Model) Evaluate(frame *dataset.Frame) (metrics.RegressionMetrics, error) {
	if m.Regressor == nil {
		return metrics.RegressionMetrics{}, errors.NewNotFittedError("pipeline.Model", "Evaluate")
	}
	out, err := m.Transform(frame)
	if err != nil {
		return metrics.RegressionMetrics{}, err
	}
	X, _, err := m.features(out)
	if err != nil {
		return metrics.RegressionMetrics{}, err
	}
	y, err := m.labels(out)
	if err != nil {
		return metrics.RegressionMetrics{}, err
	}
	preds, err := m.Regressor.Predict(X)
	if err != nil {
		return metrics.RegressionMetrics{}, err
	}
	return metrics.EvaluateRegression(mat.NewVecDense(len(y), y), mat.NewVecDense(len(preds), preds))
}

func (m *Model) features(frame *dataset.Frame) (*mat.Dense, []string, error) {
	col, err := frame.Vector(m.FeatureColumn)
	if err != nil {
		return nil, nil, errors.Wrap(err, "feature column")
	}
	return col.Data, col.SlotNames, nil
}

func (m *Model) labels(frame *dataset.Frame) ([]float64, error) {
	col, err := frame.Vector(m.LabelColumn)
	if err != nil {
		return nil, errors.Wrap(err, "label column")
	}
	if col.Width() != 1 {
		return nil, errors.NewDimensionError("label column", 1, col.Width(), 1)
	}
	return mat.Col(nil, 0, col.Data), nil
}
