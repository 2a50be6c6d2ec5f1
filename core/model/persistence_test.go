package model

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubModel struct {
	Weights   []float64
	Name      string
	NFeatures int
}

func TestSaveLoadModel(t *testing.T) {
	m := &stubModel{Weights: []float64{0.5, -1.25}, Name: "stub", NFeatures: 2}

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "stub.gob")
		require.NoError(t, SaveModel(m, path))

		var loaded stubModel
		require.NoError(t, LoadModel(&loaded, path))
		assert.Equal(t, m.Weights, loaded.Weights)
		assert.Equal(t, 2, loaded.NFeatures)
	})

	t.Run("writer", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, SaveModelToWriter(m, &buf))

		var loaded stubModel
		require.NoError(t, LoadModelFromReader(&loaded, &buf))
		assert.Equal(t, "stub", loaded.Name)
	})

	t.Run("missing file", func(t *testing.T) {
		var loaded stubModel
		err := LoadModel(&loaded, filepath.Join(t.TempDir(), "nope.gob"))
		assert.Error(t, err)
	})

	t.Run("corrupt payload", func(t *testing.T) {
		var loaded stubModel
		err := LoadModelFromReader(&loaded, bytes.NewBufferString("not gob"))
		assert.Error(t, err)
	})
}
