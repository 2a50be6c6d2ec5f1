// Package preprocessing は学習パイプラインで使う列変換を提供します。
//
// 各変換は Estimator として学習データに Fit され、学習済みの Transformer を返します。
// Transformer は入力 Frame を変更せず、出力列を追加した新しい Frame を返します。
package preprocessing

import (
	"encoding/gob"

	"github.com/YuminosukeSato/salesforecast/dataset"
)

// Transformer は学習済みの列変換
type Transformer interface {
	// Transform は出力列を追加した新しいFrameを返す
	Transform(f *dataset.Frame) (*dataset.Frame, error)

	// OutputColumn は変換が書き込む列名を返す
	OutputColumn() string
}

// Estimator は学習データから Transformer を作る変換
type Estimator interface {
	// Fit は学習データから変換のパラメータを学習する
	Fit(f *dataset.Frame) (Transformer, error)

	// OutputColumn は変換が書き込む列名を返す
	OutputColumn() string
}

func init() {
	// パイプラインは []Transformer としてgobで永続化される
	gob.Register(&ConcatTransformer{})
	gob.Register(&OneHotTransformer{})
	gob.Register(&CopyTransformer{})
}
