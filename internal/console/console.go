// Package console formats the human-readable output of the forecast tool.
package console

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/salesforecast/dataset"
	"github.com/YuminosukeSato/salesforecast/sklearn/pipeline"
)

const ruleWidth = 109

// WriteHeader writes each line framed by rules of '=' as wide as the
// longest line.
func WriteHeader(w io.Writer, lines ...string) {
	width := 0
	for _, l := range lines {
		width = max(width, len(l))
	}
	rule := strings.Repeat("=", width)
	fmt.Fprintln(w, " ")
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
	fmt.Fprintln(w, rule)
}

// WriteSection writes a single-line banner such as
// "=============== Cross-validating ... ===============".
func WriteSection(w io.Writer, title string) {
	fmt.Fprintf(w, "=============== %s ===============\n", title)
}

// PrintRegressionFoldsAverageMetrics writes the cross-validation averages of
// every regression metric.
func PrintRegressionFoldsAverageMetrics(w io.Writer, algorithm string, res *pipeline.CVResult) {
	mean := res.Summary.Mean
	std := res.Summary.StdDev

	stars := strings.Repeat("*", ruleWidth)
	fmt.Fprintln(w, stars)
	fmt.Fprintf(w, "*       Metrics for %s Regression model      \n", algorithm)
	fmt.Fprintln(w, "*"+strings.Repeat("-", ruleWidth-1))
	fmt.Fprintf(w, "*       Folds:                 %d\n", res.Summary.Folds)
	fmt.Fprintf(w, "*       Average L1 Loss:       %s  (std %s)\n", Format(mean.L1), Format(std.L1))
	fmt.Fprintf(w, "*       Average L2 Loss:       %s  (std %s)\n", Format(mean.L2), Format(std.L2))
	fmt.Fprintf(w, "*       Average RMS:           %s  (std %s)\n", Format(mean.RMS), Format(std.RMS))
	fmt.Fprintf(w, "*       Average Loss Function: %s  (std %s)\n", Format(mean.LossFn), Format(std.LossFn))
	fmt.Fprintf(w, "*       Average R-squared:     %s  (std %s)\n", Format(mean.RSquared), Format(std.RSquared))
	fmt.Fprintln(w, stars)
}

// Format renders v with at most three decimals and no trailing zeros.
func Format(v float64) string {
	s := strconv.FormatFloat(v, 'f', 3, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "-0" {
		return "0"
	}
	return s
}

// PredictionLine formats a forecast for the month after sample. When actual
// is non-nil the known value is shown next to the forecast.
func PredictionLine(sample dataset.ProductData, score float64, actual *float64) string {
	prefix := fmt.Sprintf("Product: %s, month: %d, year: %d",
		sample.ProductID, int(sample.Month)+1, int(sample.Year))
	if actual != nil {
		return fmt.Sprintf("%s - Real value (units): %s, Forecast Prediction (units): %s",
			prefix, Format(*actual), Format(score))
	}
	return fmt.Sprintf("%s - Forecast Prediction (units): %s", prefix, Format(score))
}
