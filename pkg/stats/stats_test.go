package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMedian(t *testing.T) {
	assert.Equal(t, 2.0, Median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, Median([]float64{4, 1, 3, 2}))
	assert.Equal(t, 0.0, Median(nil))
}

func TestNanMedianSkipsMissing(t *testing.T) {
	m, ok := NanMedian([]float64{math.NaN(), 10, 30, math.NaN(), 20})
	assert.True(t, ok)
	assert.Equal(t, 20.0, m)

	_, ok = NanMedian([]float64{math.NaN()})
	assert.False(t, ok)
}

func TestModeString(t *testing.T) {
	m, ok := ModeString([]string{"Urban", "", "Rural", "Urban", "Rural", ""})
	assert.True(t, ok)
	assert.Equal(t, "Rural", m)

	_, ok = ModeString([]string{"", ""})
	assert.False(t, ok)
}

func TestProportions(t *testing.T) {
	p := Proportions([]int{0, 1, 1, 1})
	assert.InDelta(t, 0.25, p[0], 1e-12)
	assert.InDelta(t, 0.75, p[1], 1e-12)
}

func TestPercentile(t *testing.T) {
	x := []float64{4, 1, math.NaN(), 3, 2}
	assert.Equal(t, 1.0, Percentile(x, 0))
	assert.Equal(t, 2.5, Percentile(x, 50))
	assert.Equal(t, 4.0, Percentile(x, 100))
	assert.InDelta(t, 1.75, Percentile(x, 25), 1e-12)
	assert.True(t, math.IsNaN(Percentile([]float64{math.NaN()}, 50)))
}

func TestCountOutliers(t *testing.T) {
	x := []float64{10, 11, 12, 13, 14, 15, 100, math.NaN(), -50}
	assert.Equal(t, 2, CountOutliers(x, 1.5))

	low, high := IQRBounds([]float64{1, 2, 3, 4, 5}, 1.5)
	assert.Equal(t, -1.0, low)
	assert.Equal(t, 7.0, high)
}
