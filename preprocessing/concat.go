package preprocessing

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/salesforecast/dataset"
	"github.com/YuminosukeSato/salesforecast/pkg/errors"
)

// ConcatTransformer は複数の数値列を横方向に連結して1つのベクトル列にする
//
// 学習するパラメータを持たないため、Estimator と Transformer の両方を満たす。
type ConcatTransformer struct {
	Output string
	Inputs []string
}

// Concatenate は新しい連結変換を作成する
//
// パラメータ:
//   - output: 出力列名
//   - inputs: 連結する数値列名（この順に並ぶ）
//
// 使用例:
//
//	numeric := preprocessing.Concatenate("NumFeatures", "year", "month", "units")
func Concatenate(output string, inputs ...string) *ConcatTransformer {
	return &ConcatTransformer{Output: output, Inputs: inputs}
}

// OutputColumn は出力列名を返す
func (c *ConcatTransformer) OutputColumn() string { return c.Output }

// Fit は自分自身を返す
func (c *ConcatTransformer) Fit(f *dataset.Frame) (Transformer, error) {
	if _, err := c.Transform(f); err != nil {
		return nil, err
	}
	return c, nil
}

// Transform は入力列を連結した列を追加する。スロット名は入力列のものを引き継ぐ。
func (c *ConcatTransformer) Transform(f *dataset.Frame) (*dataset.Frame, error) {
	if len(c.Inputs) == 0 {
		return nil, errors.NewValidationError("Concatenate.Inputs", "at least one input column is required", c.Inputs)
	}

	cols := make([]*dataset.VectorColumn, len(c.Inputs))
	width := 0
	for i, name := range c.Inputs {
		col, err := f.Vector(name)
		if err != nil {
			return nil, errors.Wrapf(err, "Concatenate(%s)", c.Output)
		}
		cols[i] = col
		width += col.Width()
	}

	n := f.NumRows()
	out := mat.NewDense(n, width, nil)
	slots := make([]string, 0, width)
	offset := 0
	for _, col := range cols {
		w := col.Width()
		out.Slice(0, n, offset, offset+w).(*mat.Dense).Copy(col.Data)
		slots = append(slots, col.SlotNames...)
		offset += w
	}

	next := f.Clone()
	if err := next.AddVector(c.Output, out, slots); err != nil {
		return nil, err
	}
	return next, nil
}
