package stats

import (
	"math"
	"sort"
)

// Percentile returns the p-th percentile (0-100) of the non-NaN values of x,
// interpolating linearly between neighbours. It returns NaN if x has no values.
func Percentile(x []float64, p float64) float64 {
	valid := DropNaN(x)
	if len(valid) == 0 {
		return math.NaN()
	}
	sort.Float64s(valid)
	pos := p / 100 * float64(len(valid)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo < 0 {
		return valid[0]
	}
	if hi >= len(valid) {
		return valid[len(valid)-1]
	}
	frac := pos - float64(lo)
	return valid[lo] + frac*(valid[hi]-valid[lo])
}

// IQRBounds returns the Tukey fences Q1 - k*IQR and Q3 + k*IQR of x.
func IQRBounds(x []float64, k float64) (low, high float64) {
	q1, q3 := Percentile(x, 25), Percentile(x, 75)
	iqr := q3 - q1
	return q1 - k*iqr, q3 + k*iqr
}

// CountOutliers counts the non-NaN values of x outside the Tukey fences.
// Values are only counted, never clipped or dropped.
func CountOutliers(x []float64, k float64) int {
	low, high := IQRBounds(x, k)
	n := 0
	for _, v := range x {
		if !math.IsNaN(v) && (v < low || v > high) {
			n++
		}
	}
	return n
}
