// Package salesforecast forecasts next-month unit sales per product with
// gradient-boosted regression trees under a Tweedie loss.
//
// The module is split into a small ML library and the application built on
// top of it.
//
// # Library
//
//   - dataset: ProductData rows, CSV/TSV/Excel readers and the column Frame.
//   - preprocessing: Concatenate, OneHotEncoding and CopyColumns transforms.
//   - sklearn/fasttree: histogram-based boosted trees (FastTreeTweedie).
//   - sklearn/model_selection: seeded KFold splits.
//   - sklearn/pipeline: transform+trainer pipelines, cross-validation and
//     zip model archives.
//   - metrics: L1, L2, RMS and R² with fold averaging.
//   - pkg/errors, pkg/log: structured errors and zerolog-backed logging.
//
// # Application
//
//   - internal/forecast: TrainAndSaveModel and TestPrediction.
//   - internal/server: HTTP prediction service with Prometheus metrics.
//   - internal/report: feature importance charts.
//   - cmd/forecast: the command line entry point.
//
// # Quick Start
//
// Train on a statistics file, save the model and run the sample forecasts:
//
//	forecast -data Data/products.stats.csv -model product_month_fastTreeTweedie.zip
//
// The same steps from Go:
//
//	tr := forecast.NewTrainer(os.Stdout)
//	if _, err := tr.TrainAndSaveModel(ctx, dataPath, modelPath); err != nil {
//	    log.Fatal(err)
//	}
//	preds, err := tr.TestPrediction(modelPath)
//
// Settings can also come from FORECAST_* environment variables, a .env file
// or a YAML file passed with -config; see internal/config.
package salesforecast
