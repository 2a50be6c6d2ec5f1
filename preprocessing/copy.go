package preprocessing

import (
	"github.com/YuminosukeSato/salesforecast/dataset"
	"github.com/YuminosukeSato/salesforecast/pkg/errors"
)

// CopyTransformer は列を別名で複製する
type CopyTransformer struct {
	Output string
	Input  string
}

// CopyColumns は新しい列複製変換を作成する
func CopyColumns(output, input string) *CopyTransformer {
	return &CopyTransformer{Output: output, Input: input}
}

// OutputColumn は出力列名を返す
func (c *CopyTransformer) OutputColumn() string { return c.Output }

// Fit は自分自身を返す
func (c *CopyTransformer) Fit(f *dataset.Frame) (Transformer, error) {
	if _, err := c.Transform(f); err != nil {
		return nil, err
	}
	return c, nil
}

// Transform は入力列と同じ内容の出力列を追加する
func (c *CopyTransformer) Transform(f *dataset.Frame) (*dataset.Frame, error) {
	next := f.Clone()
	if vec, err := f.Vector(c.Input); err == nil {
		slots := vec.SlotNames
		if vec.Width() == 1 {
			slots = []string{c.Output}
		}
		if err := next.AddVector(c.Output, vec.Data, slots); err != nil {
			return nil, err
		}
		return next, nil
	}
	text, err := f.Text(c.Input)
	if err != nil {
		return nil, errors.Wrapf(err, "CopyColumns(%s)", c.Output)
	}
	if err := next.AddText(c.Output, text); err != nil {
		return nil, err
	}
	return next, nil
}
