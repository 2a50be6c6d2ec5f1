package pipeline

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/YuminosukeSato/salesforecast/dataset"
	"github.com/YuminosukeSato/salesforecast/metrics"
	"github.com/YuminosukeSato/salesforecast/pkg/errors"
	"github.com/YuminosukeSato/salesforecast/pkg/log"
	"github.com/YuminosukeSato/salesforecast/sklearn/model_selection"
)

// CVOptions configures CrossValidate.
type CVOptions struct {
	Folds   int
	Shuffle bool
	Seed    int64
	// Parallelism bounds the number of folds trained at once; values < 1
	// mean one fold at a time.
	Parallelism int
}

// DefaultCVOptions returns 6 shuffled folds trained sequentially.
func DefaultCVOptions() CVOptions {
	return CVOptions{Folds: 6, Shuffle: true, Seed: 0, Parallelism: 1}
}

// FoldResult holds the test metrics of one fold.
type FoldResult struct {
	Fold      int
	TrainSize int
	TestSize  int
	Metrics   metrics.RegressionMetrics
	Duration  time.Duration
}

// CVResult holds per-fold metrics and their aggregate.
type CVResult struct {
	Folds   []FoldResult
	Summary metrics.RegressionSummary
}

// PerFoldMetrics returns the metrics of every fold in fold order.
func (r *CVResult) PerFoldMetrics() []metrics.RegressionMetrics {
	out := make([]metrics.RegressionMetrics, len(r.Folds))
	for i, f := range r.Folds {
		out[i] = f.Metrics
	}
	return out
}

// CrossValidate fits the pipeline on k-1 folds and evaluates it on the
// held-out fold, for every fold. Results are ordered by fold regardless of
// Parallelism. The returned models are discarded.
func (p *Pipeline) CrossValidate(ctx context.Context, frame *dataset.Frame, opts CVOptions) (*CVResult, error) {
	if p.Trainer == nil {
		return nil, errors.NewValidationError("Pipeline.Trainer", "a trainer is required", nil)
	}
	folds, err := model_selection.NewKFold(opts.Folds, opts.Shuffle, opts.Seed).Split(frame.NumRows())
	if err != nil {
		return nil, err
	}

	logger := log.GetLoggerWithName("pipeline.cv").With(
		log.OperationKey, log.OperationCrossValidate,
		log.ModelNameKey, p.Trainer.String(),
	)
	logger.Info("Cross-validation started",
		log.SamplesKey, frame.NumRows(),
		"folds", len(folds),
	)

	results := make([]FoldResult, len(folds))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, opts.Parallelism))
	for k, fold := range folds {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			train, err := frame.Subset(fold.TrainIndices)
			if err != nil {
				return err
			}
			test, err := frame.Subset(fold.TestIndices)
			if err != nil {
				return err
			}
			m, err := p.Fit(gctx, train)
			if err != nil {
				return errors.Wrapf(err, "fold %d", k)
			}
			fm, err := m.Evaluate(test)
			if err != nil {
				return errors.Wrapf(err, "evaluate fold %d", k)
			}
			results[k] = FoldResult{
				Fold:      k,
				TrainSize: len(fold.TrainIndices),
				TestSize:  len(fold.TestIndices),
				Metrics:   fm,
				Duration:  time.Since(start),
			}
			logger.Debug("Fold evaluated",
				log.FoldKey, k,
				log.LossKey, fm.LossFn,
				log.R2ScoreKey, fm.RSquared,
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &CVResult{Folds: results}
	if res.Summary, err = metrics.AverageRegression(res.PerFoldMetrics()); err != nil {
		return nil, err
	}
	logger.Info("Cross-validation completed",
		log.LossKey, res.Summary.Mean.LossFn,
		log.R2ScoreKey, res.Summary.Mean.RSquared,
	)
	return res, nil
}
