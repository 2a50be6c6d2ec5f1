package forecast

import (
	"fmt"
	"io"

	"github.com/YuminosukeSato/salesforecast/dataset"
	"github.com/YuminosukeSato/salesforecast/internal/console"
	"github.com/YuminosukeSato/salesforecast/internal/report"
	"github.com/YuminosukeSato/salesforecast/pkg/errors"
	"github.com/YuminosukeSato/salesforecast/pkg/log"
	"github.com/YuminosukeSato/salesforecast/sklearn/pipeline"
)

// Sample is a known product month used to exercise a saved model.
// Actual is the units sold in the following month, when known.
type Sample struct {
	Data   dataset.ProductData
	Actual *float64
}

// Prediction pairs a sample with its forecast.
type Prediction struct {
	Sample Sample
	dataset.ProductUnitPrediction
}

func known(v float64) *float64 { return &v }

// Samples returns the fixed product months used by TestPrediction: products
// 263 and 988 in October and November 2017.
func Samples() []Sample {
	return []Sample{
		{
			Data: dataset.ProductData{
				ProductID: "263", Month: 10, Year: 2017,
				Avg: 91, Max: 370, Min: 1, Count: 10, Prev: 1675, Units: 910,
			},
			Actual: known(551),
		},
		{
			Data: dataset.ProductData{
				ProductID: "263", Month: 11, Year: 2017,
				Avg: 29, Max: 221, Min: 1, Count: 35, Prev: 910, Units: 551,
			},
		},
		{
			Data: dataset.ProductData{
				ProductID: "988", Month: 10, Year: 2017,
				Avg: 43, Max: 220, Min: 1, Count: 25, Prev: 1036, Units: 1094,
			},
			Actual: known(1076),
		},
		{
			Data: dataset.ProductData{
				ProductID: "988", Month: 11, Year: 2017,
				Avg: 41, Max: 225, Min: 4, Count: 26, Prev: 1094, Units: 1076,
			},
		},
	}
}

// PredictSamples forecasts each sample with model and writes one line per
// sample to w, grouped by product.
func PredictSamples(w io.Writer, model *pipeline.Model, samples []Sample) ([]Prediction, error) {
	preds := make([]Prediction, 0, len(samples))
	product, group := "", 0
	for _, s := range samples {
		if s.Data.ProductID != product {
			if group > 0 {
				fmt.Fprintln(w, " ")
			}
			group++
			product = s.Data.ProductID
			fmt.Fprintf(w, "** Testing Product %d **\n", group)
		}

		p, err := model.PredictOne(s.Data)
		if err != nil {
			return nil, errors.Wrapf(err, "predict product %s month %v", s.Data.ProductID, s.Data.Month)
		}
		fmt.Fprintln(w, console.PredictionLine(s.Data, p.Score, s.Actual))
		preds = append(preds, Prediction{Sample: s, ProductUnitPrediction: p})
	}

	log.GetLoggerWithName("forecast").Debug("Samples predicted",
		log.OperationKey, log.OperationPredict,
		log.PredsKey, len(preds),
	)
	return preds, nil
}

func (t *Trainer) plotImportance(model *pipeline.Model) error {
	if err := report.PlotFeatureImportance(model.Regressor, t.ImportancePlot, report.DefaultTopN); err != nil {
		return errors.Wrapf(err, "plot feature importance to %s", t.ImportancePlot)
	}
	t.getLogger().Info("Feature importance chart written", log.DataPathKey, t.ImportancePlot)
	return nil
}
