package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/salesforecast/sklearn/fasttree"
)

func leaf(v float64) fasttree.Node {
	return fasttree.Node{LeftChild: -1, RightChild: -1, LeafValue: v}
}

func stump(feature int, gain float64) fasttree.Tree {
	return fasttree.Tree{
		Nodes: []fasttree.Node{
			{LeftChild: 1, RightChild: 2, SplitFeature: feature, Threshold: 0.5, Gain: gain},
			leaf(-1),
			leaf(1),
		},
		NumLeaves:     2,
		ShrinkageRate: 0.1,
	}
}

func testModel() *fasttree.Model {
	return &fasttree.Model{
		Trees:        []fasttree.Tree{stump(2, 3), stump(0, 10), stump(2, 4)},
		Objective:    fasttree.ObjectiveTweedie,
		NumFeatures:  4,
		FeatureNames: []string{"units", "", "prev", "productId=263"},
	}
}

func TestTopFeatures(t *testing.T) {
	top, err := TopFeatures(testModel(), 0)
	require.NoError(t, err)
	assert.Equal(t, []Importance{
		{Feature: "units", Gain: 10},
		{Feature: "prev", Gain: 7},
	}, top)

	top, err = TopFeatures(testModel(), 1)
	require.NoError(t, err)
	assert.Len(t, top, 1)
	assert.Equal(t, "units", top[0].Feature)
}

func TestTopFeatures_UnnamedFeature(t *testing.T) {
	m := testModel()
	m.Trees = []fasttree.Tree{stump(1, 2)}
	top, err := TopFeatures(m, 0)
	require.NoError(t, err)
	assert.Equal(t, "f1", top[0].Feature)
}

func TestTopFeatures_NilModel(t *testing.T) {
	_, err := TopFeatures(nil, 5)
	assert.Error(t, err)
}

func TestPlotFeatureImportance(t *testing.T) {
	for _, ext := range []string{"png", "svg"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "importance."+ext)
			require.NoError(t, PlotFeatureImportance(testModel(), path, DefaultTopN))

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Positive(t, info.Size())
		})
	}
}

func TestPlotFeatureImportance_Errors(t *testing.T) {
	dir := t.TempDir()

	empty := &fasttree.Model{NumFeatures: 2}
	assert.Error(t, PlotFeatureImportance(empty, filepath.Join(dir, "empty.png"), 5))

	assert.Error(t, PlotFeatureImportance(testModel(), filepath.Join(dir, "chart.unknown"), 5))
}
