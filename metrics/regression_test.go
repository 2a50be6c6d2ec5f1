package metrics

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/salesforecast/pkg/errors"
)

func TestMSE(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   []float64
		yPred   []float64
		want    float64
		wantErr bool
	}{
		{"perfect prediction", []float64{1, 2, 3, 4, 5}, []float64{1, 2, 3, 4, 5}, 0, false},
		{"simple case", []float64{1, 2, 3, 4}, []float64{1.5, 2.5, 2.5, 3.5}, 0.25, false},
		{"larger errors", []float64{10, 20, 30}, []float64{12, 18, 33}, 17.0 / 3.0, false},
		{"dimension mismatch", []float64{1, 2, 3}, []float64{1, 2}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MSE(mat.NewVecDense(len(tt.yTrue), tt.yTrue), mat.NewVecDense(len(tt.yPred), tt.yPred))
			if (err != nil) != tt.wantErr {
				t.Fatalf("MSE() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && math.Abs(got-tt.want) > 1e-10 {
				t.Errorf("MSE() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMSEEmpty(t *testing.T) {
	if _, err := MSE(nil, nil); err == nil {
		t.Error("expected error for nil vectors")
	}
}

func TestRMSEAndMAE(t *testing.T) {
	yTrue := mat.NewVecDense(4, []float64{3, -0.5, 2, 7})
	yPred := mat.NewVecDense(4, []float64{2.5, 0.0, 2, 8})

	rmse, err := RMSE(yTrue, yPred)
	if err != nil {
		t.Fatal(err)
	}
	if want := math.Sqrt(0.375); math.Abs(rmse-want) > 1e-10 {
		t.Errorf("RMSE() = %v, want %v", rmse, want)
	}

	mae, err := MAE(yTrue, yPred)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(mae-0.5) > 1e-10 {
		t.Errorf("MAE() = %v, want 0.5", mae)
	}
}

func TestR2Score(t *testing.T) {
	tests := []struct {
		name  string
		yTrue []float64
		yPred []float64
		want  float64
	}{
		{"perfect prediction", []float64{1, 2, 3}, []float64{1, 2, 3}, 1},
		{"mean prediction", []float64{1, 2, 3}, []float64{2, 2, 2}, 0},
		{"sklearn example", []float64{3, -0.5, 2, 7}, []float64{2.5, 0.0, 2, 8}, 0.9486081370449679},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := R2Score(mat.NewVecDense(len(tt.yTrue), tt.yTrue), mat.NewVecDense(len(tt.yPred), tt.yPred))
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(got-tt.want) > 1e-10 {
				t.Errorf("R2Score() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestR2ScoreConstantLabelsWarns(t *testing.T) {
	var warned error
	errors.SetWarningHandler(func(w error) { warned = w })
	defer errors.SetWarningHandler(func(error) {})

	got, err := R2Score(mat.NewVecDense(3, []float64{5, 5, 5}), mat.NewVecDense(3, []float64{4, 5, 6}))
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Errorf("R2Score() = %v, want 0", got)
	}
	var w *errors.UndefinedMetricWarning
	if !errors.As(warned, &w) {
		t.Fatalf("expected UndefinedMetricWarning, got %v", warned)
	}
}

func TestEvaluateRegression(t *testing.T) {
	yTrue := mat.NewVecDense(4, []float64{3, -0.5, 2, 7})
	yPred := mat.NewVecDense(4, []float64{2.5, 0.0, 2, 8})

	m, err := EvaluateRegression(yTrue, yPred)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(m.L1-0.5) > 1e-10 || math.Abs(m.L2-0.375) > 1e-10 {
		t.Errorf("unexpected L1/L2: %+v", m)
	}
	if m.LossFn != m.L2 {
		t.Errorf("LossFn = %v, want L2 %v", m.LossFn, m.L2)
	}
	if math.Abs(m.RMS-math.Sqrt(0.375)) > 1e-10 {
		t.Errorf("RMS = %v", m.RMS)
	}
}

func TestAverageRegression(t *testing.T) {
	folds := []RegressionMetrics{
		{L1: 1, L2: 2, RMS: math.Sqrt(2), LossFn: 2, RSquared: 0.5},
		{L1: 3, L2: 4, RMS: 2, LossFn: 4, RSquared: 0.7},
	}
	s, err := AverageRegression(folds)
	if err != nil {
		t.Fatal(err)
	}
	if s.Folds != 2 {
		t.Errorf("Folds = %d", s.Folds)
	}
	if math.Abs(s.Mean.L1-2) > 1e-12 || math.Abs(s.Mean.RSquared-0.6) > 1e-12 {
		t.Errorf("unexpected mean: %+v", s.Mean)
	}
	// sample standard deviation of {1, 3}
	if math.Abs(s.StdDev.L1-math.Sqrt2) > 1e-12 {
		t.Errorf("StdDev.L1 = %v, want %v", s.StdDev.L1, math.Sqrt2)
	}

	single, err := AverageRegression(folds[:1])
	if err != nil {
		t.Fatal(err)
	}
	if single.StdDev.L1 != 0 {
		t.Errorf("single-fold std dev = %v, want 0", single.StdDev.L1)
	}

	if _, err := AverageRegression(nil); err == nil {
		t.Error("expected error for no folds")
	}
}
