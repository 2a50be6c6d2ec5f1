// Package report renders charts describing a trained model.
package report

import (
	"image/color"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/YuminosukeSato/salesforecast/pkg/errors"
	"github.com/YuminosukeSato/salesforecast/sklearn/fasttree"
)

// DefaultTopN is the number of features charted when no limit is given.
const DefaultTopN = 15

// Importance is the total split gain attributed to one feature.
type Importance struct {
	Feature string
	Gain    float64
}

// TopFeatures returns up to topN features with non-zero gain, highest first.
// Ties keep feature order. topN <= 0 returns every feature.
func TopFeatures(model *fasttree.Model, topN int) ([]Importance, error) {
	if model == nil {
		return nil, errors.NewNotFittedError("FastTreeModel", "FeatureImportance")
	}
	gains, err := model.FeatureImportance(fasttree.ImportanceGain)
	if err != nil {
		return nil, err
	}

	out := make([]Importance, 0, len(gains))
	for i, g := range gains {
		if g <= 0 {
			continue
		}
		name := ""
		if i < len(model.FeatureNames) {
			name = model.FeatureNames[i]
		}
		if name == "" {
			name = "f" + strconv.Itoa(i)
		}
		out = append(out, Importance{Feature: name, Gain: g})
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Gain > out[b].Gain })
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out, nil
}

// PlotFeatureImportance writes a bar chart of the topN features by gain to
// path. The image format follows the path extension (png, svg, pdf, ...).
func PlotFeatureImportance(model *fasttree.Model, path string, topN int) error {
	top, err := TopFeatures(model, topN)
	if err != nil {
		return err
	}
	if len(top) == 0 {
		return errors.NewValueError("PlotFeatureImportance", "model has no splits to chart")
	}

	values := make(plotter.Values, len(top))
	names := make([]string, len(top))
	for i, imp := range top {
		values[i] = imp.Gain
		names[i] = imp.Feature
	}

	p := plot.New()
	p.Title.Text = "Feature importance (" + model.Objective + ")"
	p.Y.Label.Text = "Total split gain"

	bars, err := plotter.NewBarChart(values, vg.Points(18))
	if err != nil {
		return errors.Wrap(err, "build bar chart")
	}
	bars.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(names...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter

	width := vg.Length(math.Max(6, 0.5*float64(len(top)))) * vg.Inch
	if err := p.Save(width, 4*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "save chart %s", path)
	}
	return nil
}
