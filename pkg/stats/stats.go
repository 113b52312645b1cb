package stats

import (
	"math"
	"sort"
)

// Median returns the median value of the slice (allocates a copy).
func Median(x []float64) float64 {
	n := len(x)
	if n == 0 {
		return 0
	}
	cp := make([]float64, n)
	copy(cp, x)
	sort.Float64s(cp)
	mid := n >> 1
	if n&1 == 0 {
		return (cp[mid-1] + cp[mid]) * 0.5
	}
	return cp[mid]
}

// NanMedian is Median over the non-NaN values of x. ok is false when every value is NaN.
func NanMedian(x []float64) (median float64, ok bool) {
	valid := DropNaN(x)
	if len(valid) == 0 {
		return 0, false
	}
	return Median(valid), true
}

// DropNaN returns the non-NaN values of x in order.
func DropNaN(x []float64) []float64 {
	out := make([]float64, 0, len(x))
	for _, v := range x {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// ModeString returns the most frequent non-empty string; ties go to the
// lexicographically smallest. ok is false when there is no non-empty value.
func ModeString(x []string) (mode string, ok bool) {
	counts := make(map[string]int)
	for _, v := range x {
		if v != "" {
			counts[v]++
		}
	}
	maxCount := 0
	for v, c := range counts {
		if c > maxCount || (c == maxCount && v < mode) {
			mode, maxCount = v, c
		}
	}
	return mode, maxCount > 0
}

// Proportions returns the share of each label in y.
func Proportions(y []int) map[int]float64 {
	out := make(map[int]float64)
	if len(y) == 0 {
		return out
	}
	for _, v := range y {
		out[v]++
	}
	for k := range out {
		out[k] /= float64(len(y))
	}
	return out
}
