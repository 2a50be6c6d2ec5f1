package preprocessing

import (
	"fmt"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/salesforecast/dataset"
	"github.com/YuminosukeSato/salesforecast/pkg/errors"
	"github.com/YuminosukeSato/salesforecast/pkg/log"
)

// OneHotEncoder はテキスト列をワンホットベクトルに変換する Estimator
type OneHotEncoder struct {
	Output string
	Input  string
}

// OneHotEncoding は新しいワンホットエンコーダを作成する
//
// パラメータ:
//   - output: 出力ベクトル列名
//   - input: カテゴリ値を持つテキスト列名
func OneHotEncoding(output, input string) *OneHotEncoder {
	return &OneHotEncoder{Output: output, Input: input}
}

// OutputColumn は出力列名を返す
func (e *OneHotEncoder) OutputColumn() string { return e.Output }

// Fit は入力列の語彙を出現順に学習する
func (e *OneHotEncoder) Fit(f *dataset.Frame) (Transformer, error) {
	values, err := f.Text(e.Input)
	if err != nil {
		return nil, errors.Wrapf(err, "OneHotEncoding(%s)", e.Output)
	}
	seen := make(map[string]struct{}, 64)
	var vocab []string
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		vocab = append(vocab, v)
	}
	if len(vocab) == 0 {
		return nil, errors.NewModelError("OneHotEncoding.Fit", "empty vocabulary", errors.ErrEmptyData)
	}

	log.GetLoggerWithName("preprocessing.onehot").Debug("Vocabulary learned",
		log.ModelNameKey, "OneHotEncoding",
		"input", e.Input,
		"vocabulary.size", len(vocab),
	)
	return &OneHotTransformer{Output: e.Output, Input: e.Input, Vocabulary: vocab}, nil
}

// OneHotTransformer は学習済みの語彙でワンホット変換を行う
//
// 語彙にない値はすべて0のベクトルになる。
type OneHotTransformer struct {
	Output     string
	Input      string
	Vocabulary []string

	once  sync.Once
	index map[string]int
}

// OutputColumn は出力列名を返す
func (t *OneHotTransformer) OutputColumn() string { return t.Output }

// SlotNames は "input=value" 形式のスロット名を返す
func (t *OneHotTransformer) SlotNames() []string {
	slots := make([]string, len(t.Vocabulary))
	for i, v := range t.Vocabulary {
		slots[i] = fmt.Sprintf("%s=%s", t.Input, v)
	}
	return slots
}

func (t *OneHotTransformer) lookup() map[string]int {
	// gobから復元した場合にも索引を作り直す
	t.once.Do(func() {
		t.index = make(map[string]int, len(t.Vocabulary))
		for i, v := range t.Vocabulary {
			t.index[v] = i
		}
	})
	return t.index
}

// Transform はワンホット列を追加した新しいFrameを返す
func (t *OneHotTransformer) Transform(f *dataset.Frame) (*dataset.Frame, error) {
	values, err := f.Text(t.Input)
	if err != nil {
		return nil, errors.Wrapf(err, "OneHotEncoding(%s)", t.Output)
	}
	index := t.lookup()
	out := mat.NewDense(f.NumRows(), len(t.Vocabulary), nil)
	for i, v := range values {
		if j, ok := index[v]; ok {
			out.Set(i, j, 1)
		}
	}
	next := f.Clone()
	if err := next.AddVector(t.Output, out, t.SlotNames()); err != nil {
		return nil, err
	}
	return next, nil
}
