package dataprep

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/manjudata/predict-mlops/pkg/stats"
)

// MedianImputer replaces NaN in numeric columns with the column median
// learned at fit time.
type MedianImputer struct {
	Medians []float64
}

// Fit learns one median per column. A column with no values gets 0.
func (m *MedianImputer) Fit(cols [][]float64) {
	m.Medians = make([]float64, len(cols))
	for j, col := range cols {
		med, ok := stats.NanMedian(col)
		if !ok {
			logrus.Warnf("median imputer: column %d has no values, filling with 0", j)
		}
		m.Medians[j] = med
	}
}

// Fill returns v, or the learned median of column j when v is NaN.
func (m *MedianImputer) Fill(j int, v float64) float64 {
	if math.IsNaN(v) {
		return m.Medians[j]
	}
	return v
}

// ModeImputer replaces missing ("") values in categorical columns with the
// most frequent category learned at fit time.
type ModeImputer struct {
	Modes []string
}

// Fit learns one mode per column. A column with no values keeps "".
func (m *ModeImputer) Fit(cols [][]string) {
	m.Modes = make([]string, len(cols))
	for j, col := range cols {
		mode, ok := stats.ModeString(col)
		if !ok {
			logrus.Warnf("mode imputer: column %d has no values", j)
		}
		m.Modes[j] = mode
	}
}

// Fill returns v, or the learned mode of column j when v is missing.
func (m *ModeImputer) Fill(j int, v string) string {
	if v == "" {
		return m.Modes[j]
	}
	return v
}
