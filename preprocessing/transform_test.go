package preprocessing

import (
	"bytes"
	"encoding/gob"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/salesforecast/dataset"
)

func sampleFrame() *dataset.Frame {
	return dataset.FromProducts([]dataset.ProductData{
		{ProductID: "263", Year: 2017, Month: 10, Units: 910, Avg: 91, Count: 10, Max: 370, Min: 1, Prev: 1675, Next: 551},
		{ProductID: "988", Year: 2017, Month: 10, Units: 1094, Avg: 43, Count: 25, Max: 220, Min: 1, Prev: 1036, Next: 1076},
		{ProductID: "263", Year: 2017, Month: 11, Units: 551, Avg: 29, Count: 35, Max: 221, Min: 1, Prev: 910, Next: 600},
	})
}

func TestConcatenate(t *testing.T) {
	f := sampleFrame()
	c := Concatenate("NumFeatures", dataset.ColYear, dataset.ColMonth, dataset.ColUnits)

	fitted, err := c.Fit(f)
	require.NoError(t, err)
	out, err := fitted.Transform(f)
	require.NoError(t, err)

	v, err := out.Vector("NumFeatures")
	require.NoError(t, err)
	assert.Equal(t, []string{"year", "month", "units"}, v.SlotNames)
	assert.Equal(t, []float64{2017, 11, 551}, v.Data.RawRowView(2))

	assert.False(t, f.Has("NumFeatures"), "input frame must not be mutated")

	_, err = Concatenate("X", "missing").Fit(f)
	assert.Error(t, err)
	_, err = Concatenate("X", dataset.ColProductID).Fit(f)
	assert.Error(t, err, "text columns cannot be concatenated")
	_, err = Concatenate("X").Fit(f)
	assert.Error(t, err)
}

func TestOneHotEncoding(t *testing.T) {
	f := sampleFrame()
	fitted, err := OneHotEncoding("CatFeatures", dataset.ColProductID).Fit(f)
	require.NoError(t, err)

	oh := fitted.(*OneHotTransformer)
	assert.Equal(t, []string{"263", "988"}, oh.Vocabulary, "vocabulary keeps first-appearance order")

	out, err := fitted.Transform(f)
	require.NoError(t, err)
	v, err := out.Vector("CatFeatures")
	require.NoError(t, err)
	assert.Equal(t, []string{"productId=263", "productId=988"}, v.SlotNames)
	assert.Equal(t, []float64{1, 0}, v.Data.RawRowView(0))
	assert.Equal(t, []float64{0, 1}, v.Data.RawRowView(1))

	t.Run("unknown value encodes to zeros", func(t *testing.T) {
		unseen := dataset.FromProducts([]dataset.ProductData{{ProductID: "42"}})
		out, err := fitted.Transform(unseen)
		require.NoError(t, err)
		v, err := out.Vector("CatFeatures")
		require.NoError(t, err)
		assert.Equal(t, []float64{0, 0}, v.Data.RawRowView(0))
	})

	t.Run("numeric input rejected", func(t *testing.T) {
		_, err := OneHotEncoding("X", dataset.ColUnits).Fit(f)
		assert.Error(t, err)
	})
}

func TestCopyColumns(t *testing.T) {
	f := sampleFrame()
	out, err := CopyColumns("Label", dataset.ColNext).Transform(f)
	require.NoError(t, err)
	v, err := out.Vector("Label")
	require.NoError(t, err)
	assert.Equal(t, []string{"Label"}, v.SlotNames)
	assert.Equal(t, 1076.0, v.Data.At(1, 0))

	out, err = CopyColumns("id", dataset.ColProductID).Transform(f)
	require.NoError(t, err)
	ids, err := out.Text("id")
	require.NoError(t, err)
	assert.Equal(t, "988", ids[1])

	_, err = CopyColumns("x", "missing").Fit(f)
	assert.Error(t, err)
}

func TestTransformersSurviveGob(t *testing.T) {
	f := sampleFrame()
	fitted, err := OneHotEncoding("CatFeatures", dataset.ColProductID).Fit(f)
	require.NoError(t, err)

	steps := []Transformer{
		Concatenate("NumFeatures", dataset.ColYear, dataset.ColMonth),
		fitted,
		CopyColumns("Label", dataset.ColNext),
	}
	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(steps))

	var restored []Transformer
	require.NoError(t, gob.NewDecoder(&buf).Decode(&restored))
	require.Len(t, restored, 3)

	out := f
	for _, s := range restored {
		out, err = s.Transform(out)
		require.NoError(t, err)
	}
	v, err := out.Vector("CatFeatures")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, v.Data.RawRowView(1))
}
