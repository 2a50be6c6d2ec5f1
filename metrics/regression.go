// Package metrics は回帰モデルの評価指標を提供します。
//
// 交差検証では各フォールドで EvaluateRegression を計算し、
// AverageRegression でフォールド間の平均と標準偏差を集計します。
package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/salesforecast/pkg/errors"
)

func checkPair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	if yTrue == nil || yPred == nil || yTrue.Len() == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	n := yTrue.Len()
	if yPred.Len() != n {
		return 0, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}

// MSE は平均二乗誤差（Mean Squared Error）を計算する
//
//	MSE = (1/n) * Σ(yTrue - yPred)²
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := yTrue.AtVec(i) - yPred.AtVec(i)
		sum += d * d
	}
	return sum / float64(n), nil
}

// RMSE は平方根平均二乗誤差（Root Mean Squared Error）を計算する
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差（Mean Absolute Error）を計算する
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += math.Abs(yTrue.AtVec(i) - yPred.AtVec(i))
	}
	return sum / float64(n), nil
}

// R2Score は決定係数（R²）を計算する
//
// yTrue がすべて同じ値の場合、R² は定義できないため
// UndefinedMetricWarning を発生させて 0 を返します。
func R2Score(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("R2Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	yMean := stat.Mean(mat.Col(nil, 0, yTrue), nil)

	var tss, rss float64
	for i := 0; i < n; i++ {
		t := yTrue.AtVec(i)
		p := yPred.AtVec(i)
		tss += (t - yMean) * (t - yMean)
		rss += (t - p) * (t - p)
	}

	if tss == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("R2Score", "no variance in yTrue", 0))
		return 0, nil
	}
	return 1 - rss/tss, nil
}

// RegressionMetrics は1回の評価で得られる回帰指標の組です。
//
//	L1       平均絶対誤差
//	L2       平均二乗誤差
//	RMS      平方根平均二乗誤差
//	LossFn   学習時の損失関数で測った平均損失（二乗損失、L2と同値）
//	RSquared 決定係数
type RegressionMetrics struct {
	L1       float64 `json:"l1"`
	L2       float64 `json:"l2"`
	RMS      float64 `json:"rms"`
	LossFn   float64 `json:"loss_fn"`
	RSquared float64 `json:"r_squared"`
}

// EvaluateRegression は真値と予測値から RegressionMetrics を計算する
func EvaluateRegression(yTrue, yPred *mat.VecDense) (RegressionMetrics, error) {
	l1, err := MAE(yTrue, yPred)
	if err != nil {
		return RegressionMetrics{}, err
	}
	l2, err := MSE(yTrue, yPred)
	if err != nil {
		return RegressionMetrics{}, err
	}
	r2, err := R2Score(yTrue, yPred)
	if err != nil {
		return RegressionMetrics{}, err
	}
	return RegressionMetrics{
		L1:       l1,
		L2:       l2,
		RMS:      math.Sqrt(l2),
		LossFn:   l2,
		RSquared: r2,
	}, nil
}

// RegressionSummary は複数フォールドの指標の平均と標準偏差です。
type RegressionSummary struct {
	Mean   RegressionMetrics `json:"mean"`
	StdDev RegressionMetrics `json:"std_dev"`
	Folds  int               `json:"folds"`
}

// AverageRegression はフォールドごとの指標を集計する
func AverageRegression(folds []RegressionMetrics) (RegressionSummary, error) {
	if len(folds) == 0 {
		return RegressionSummary{}, errors.NewValueError("AverageRegression", "no folds to average")
	}

	column := func(get func(RegressionMetrics) float64) []float64 {
		out := make([]float64, len(folds))
		for i, m := range folds {
			out[i] = get(m)
		}
		return out
	}
	summarize := func(get func(RegressionMetrics) float64) (float64, float64) {
		xs := column(get)
		if len(xs) == 1 {
			return xs[0], 0
		}
		return stat.MeanStdDev(xs, nil)
	}

	var s RegressionSummary
	s.Folds = len(folds)
	s.Mean.L1, s.StdDev.L1 = summarize(func(m RegressionMetrics) float64 { return m.L1 })
	s.Mean.L2, s.StdDev.L2 = summarize(func(m RegressionMetrics) float64 { return m.L2 })
	s.Mean.RMS, s.StdDev.RMS = summarize(func(m RegressionMetrics) float64 { return m.RMS })
	s.Mean.LossFn, s.StdDev.LossFn = summarize(func(m RegressionMetrics) float64 { return m.LossFn })
	s.Mean.RSquared, s.StdDev.RSquared = summarize(func(m RegressionMetrics) float64 { return m.RSquared })
	return s, nil
}
