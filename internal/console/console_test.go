package console

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/YuminosukeSato/salesforecast/dataset"
	"github.com/YuminosukeSato/salesforecast/metrics"
	"github.com/YuminosukeSato/salesforecast/sklearn/pipeline"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{551, "551"},
		{0.5, "0.5"},
		{1.23456, "1.235"},
		{-0.0001, "0"},
		{12.100, "12.1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Format(tt.in), "Format(%v)", tt.in)
	}
}

func TestWriteHeader(t *testing.T) {
	var buf bytes.Buffer
	WriteHeader(&buf, "Training product forecasting")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 3)
	assert.Equal(t, "Training product forecasting", lines[1])
	assert.Equal(t, strings.Repeat("=", len(lines[1])), lines[2])
}

func TestPrintRegressionFoldsAverageMetrics(t *testing.T) {
	res := &pipeline.CVResult{
		Summary: metrics.RegressionSummary{
			Mean:   metrics.RegressionMetrics{L1: 10.5, L2: 200, RMS: 14.142, LossFn: 200, RSquared: 0.9},
			StdDev: metrics.RegressionMetrics{L1: 1, L2: 20, RMS: 0.5, LossFn: 20, RSquared: 0.01},
			Folds:  6,
		},
	}

	var buf bytes.Buffer
	PrintRegressionFoldsAverageMetrics(&buf, "FastTreeTweedie", res)
	out := buf.String()

	assert.Contains(t, out, "Metrics for FastTreeTweedie Regression model")
	assert.Contains(t, out, "Folds:                 6")
	assert.Contains(t, out, "Average L1 Loss:       10.5  (std 1)")
	assert.Contains(t, out, "Average RMS:           14.142  (std 0.5)")
	assert.Contains(t, out, "Average R-squared:     0.9  (std 0.01)")
}

func TestPredictionLine(t *testing.T) {
	sample := dataset.ProductData{ProductID: "263", Year: 2017, Month: 10}
	actual := 551.0

	assert.Equal(t,
		"Product: 263, month: 11, year: 2017 - Real value (units): 551, Forecast Prediction (units): 560.25",
		PredictionLine(sample, 560.25, &actual))
	assert.Equal(t,
		"Product: 263, month: 11, year: 2017 - Forecast Prediction (units): 560.25",
		PredictionLine(sample, 560.25, nil))
}
