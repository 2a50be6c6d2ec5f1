// Package forecast trains, saves and exercises the per-product monthly
// unit-sales model.
package forecast

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/YuminosukeSato/salesforecast/dataset"
	"github.com/YuminosukeSato/salesforecast/internal/console"
	"github.com/YuminosukeSato/salesforecast/pkg/errors"
	"github.com/YuminosukeSato/salesforecast/pkg/log"
	"github.com/YuminosukeSato/salesforecast/preprocessing"
	"github.com/YuminosukeSato/salesforecast/sklearn/fasttree"
	"github.com/YuminosukeSato/salesforecast/sklearn/pipeline"
)

// DefaultModelPath is where the model is written when no path is configured.
const DefaultModelPath = "product_month_fastTreeTweedie.zip"

// Intermediate column names produced by the pipeline.
const (
	NumFeatures = "NumFeatures"
	CatFeatures = "CatFeatures"
)

// NumericFeatureColumns are the ProductData fields concatenated into NumFeatures.
var NumericFeatureColumns = []string{
	dataset.ColYear, dataset.ColMonth, dataset.ColUnits, dataset.ColAvg,
	dataset.ColCount, dataset.ColMax, dataset.ColMin, dataset.ColPrev,
}

// BuildPipeline assembles the forecasting pipeline:
// numeric features, one-hot product id, their concatenation, the label copy
// and the boosted tree trainer.
func BuildPipeline(opts fasttree.Options) *pipeline.Pipeline {
	return pipeline.New(fasttree.NewTrainer(opts),
		preprocessing.Concatenate(NumFeatures, NumericFeatureColumns...),
		preprocessing.OneHotEncoding(CatFeatures, dataset.ColProductID),
		preprocessing.Concatenate(pipeline.DefaultFeatureColumn, NumFeatures, CatFeatures),
		preprocessing.CopyColumns(pipeline.DefaultLabelColumn, dataset.ColNext),
	)
}

// Trainer runs the train-and-save and test-prediction routines.
type Trainer struct {
	Options fasttree.Options
	CV      pipeline.CVOptions
	// Out receives the console report. Nil discards it.
	Out io.Writer
	// ImportancePlot, when set, is the path of a feature importance chart
	// written after training. Failing to write it is logged, not returned.
	ImportancePlot string
	logger         log.Logger
}

// NewTrainer returns a Trainer with FastTreeTweedie defaults and 6-fold
// cross-validation, reporting to out.
func NewTrainer(out io.Writer) *Trainer {
	return &Trainer{
		Options: fasttree.DefaultOptions(),
		CV:      pipeline.DefaultCVOptions(),
		Out:     out,
		logger:  log.GetLoggerWithName("forecast"),
	}
}

func (t *Trainer) out() io.Writer {
	if t.Out == nil {
		return io.Discard
	}
	return t.Out
}

func (t *Trainer) getLogger() log.Logger {
	if t.logger == nil {
		t.logger = log.GetLoggerWithName("forecast")
	}
	return t.logger
}

// TrainResult is what TrainAndSaveModel produced.
type TrainResult struct {
	CrossValidation *pipeline.CVResult
	Model           *pipeline.Model
}

// TrainAndSaveModel removes any model at outputModelPath, cross-validates the
// pipeline on the data at dataPath, fits it on all rows and saves the result
// to outputModelPath.
func (t *Trainer) TrainAndSaveModel(ctx context.Context, dataPath, outputModelPath string) (*TrainResult, error) {
	if outputModelPath == "" {
		outputModelPath = DefaultModelPath
	}
	if err := os.Remove(outputModelPath); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "remove existing model %s", outputModelPath)
	}

	w := t.out()
	console.WriteHeader(w, "Training product forecasting")

	rows, err := dataset.Load(dataPath)
	if err != nil {
		return nil, errors.Wrapf(err, "read training data %s", dataPath)
	}
	frame := dataset.FromProducts(rows)
	p := BuildPipeline(t.Options)

	console.WriteSection(w, "Cross-validating to get model's accuracy metrics")
	start := time.Now()
	cv, err := p.CrossValidate(ctx, frame, t.CV)
	if err != nil {
		return nil, errors.Wrap(err, "cross-validate")
	}
	console.PrintRegressionFoldsAverageMetrics(w, p.Trainer.String(), cv)

	model, err := p.Fit(ctx, frame)
	if err != nil {
		return nil, errors.Wrap(err, "fit")
	}
	if err := model.SaveToFile(outputModelPath); err != nil {
		return nil, err
	}

	t.getLogger().Info("Forecast model trained",
		log.ModelNameKey, p.Trainer.String(),
		log.SamplesKey, frame.NumRows(),
		log.R2ScoreKey, cv.Summary.Mean.RSquared,
		log.DataPathKey, outputModelPath,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)

	if t.ImportancePlot != "" {
		if err := t.plotImportance(model); err != nil {
			t.getLogger().Warn("Feature importance chart not written", err, log.DataPathKey, t.ImportancePlot)
		}
	}
	return &TrainResult{CrossValidation: cv, Model: model}, nil
}

// TestPrediction loads the model at outputModelPath and forecasts every
// sample from Samples, writing one line per forecast.
func (t *Trainer) TestPrediction(outputModelPath string) ([]Prediction, error) {
	if outputModelPath == "" {
		outputModelPath = DefaultModelPath
	}
	w := t.out()
	console.WriteHeader(w, "Testing Product Unit Sales Forecast model")

	model, err := pipeline.LoadFromFile(outputModelPath)
	if err != nil {
		return nil, err
	}
	return PredictSamples(w, model, Samples())
}

// TrainAndSaveModel runs Trainer.TrainAndSaveModel with the default options,
// writing the report to out.
func TrainAndSaveModel(ctx context.Context, out io.Writer, dataPath, outputModelPath string) (*TrainResult, error) {
	return NewTrainer(out).TrainAndSaveModel(ctx, dataPath, outputModelPath)
}

// TestPrediction runs Trainer.TestPrediction, writing the forecasts to out.
func TestPrediction(out io.Writer, outputModelPath string) ([]Prediction, error) {
	return NewTrainer(out).TestPrediction(outputModelPath)
}
