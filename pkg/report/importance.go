// Package report renders training reports.
package report

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Importance is one feature's share of the forest's impurity decrease.
type Importance struct {
	Feature string
	Value   float64
}

// Rank pairs names with importances, highest first. Equal values keep the
// feature order.
func Rank(names []string, values []float64) ([]Importance, error) {
	if len(names) != len(values) {
		return nil, fmt.Errorf("report: %d names but %d importances", len(names), len(values))
	}
	out := make([]Importance, len(names))
	for i := range names {
		out[i] = Importance{Feature: names[i], Value: values[i]}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	return out, nil
}

// PlotImportances saves a horizontal bar chart of ranked importances to path.
// The image format follows the file extension (png, svg, pdf...).
func PlotImportances(ranked []Importance, path string) error {
	if len(ranked) == 0 {
		return fmt.Errorf("report: nothing to plot")
	}
	p := plot.New()
	p.Title.Text = "Feature importance (mean decrease in impurity)"
	p.X.Label.Text = "Importance"

	// bottom to top, so the most important feature is drawn at the top
	values := make(plotter.Values, len(ranked))
	names := make([]string, len(ranked))
	for i, imp := range ranked {
		k := len(ranked) - 1 - i
		values[k] = imp.Value
		names[k] = imp.Feature
	}

	bars, err := plotter.NewBarChart(values, vg.Points(8))
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	bars.Horizontal = true
	bars.Color = color.RGBA{R: 50, G: 90, B: 200, A: 255}
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalY(names...)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	height := vg.Length(len(ranked))*12*vg.Millimeter/4 + 2*vg.Inch
	if err := p.Save(7*vg.Inch, height, path); err != nil {
		return fmt.Errorf("report: save %s: %w", path, err)
	}
	logrus.WithField("path", path).Info("feature importance plot saved")
	return nil
}
