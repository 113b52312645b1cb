package dataprep

import (
	"math"
	"strconv"
	"strings"
)

// IsMissing reports whether a raw cell holds no value.
func IsMissing(v string) bool {
	switch strings.TrimSpace(v) {
	case "", "NA", "NaN", "nan", "null":
		return true
	}
	return false
}

// ParseNumeric converts a raw cell to float64. Missing cells become NaN.
func ParseNumeric(v string) (float64, error) {
	if IsMissing(v) {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(strings.TrimSpace(v), 64)
}

// StripColumnNames trims incidental whitespace around every header name.
func StripColumnNames(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = strings.TrimSpace(h)
	}
	return out
}

// DropColumns returns the header names that are not in drop, keeping order.
func DropColumns(header []string, drop ...string) []string {
	skip := make(map[string]struct{}, len(drop))
	for _, d := range drop {
		skip[d] = struct{}{}
	}
	out := make([]string, 0, len(header))
	for _, h := range header {
		if _, ok := skip[h]; !ok {
			out = append(out, h)
		}
	}
	return out
}
