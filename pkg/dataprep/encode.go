package dataprep

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// LabelEncoder maps each distinct category to its index in the sorted class list.
type LabelEncoder struct {
	Classes []string
}

// Fit learns the sorted distinct non-missing values of col.
func (e *LabelEncoder) Fit(col []string) {
	seen := map[string]struct{}{}
	e.Classes = e.Classes[:0]
	for _, v := range col {
		v = strings.TrimSpace(v)
		if IsMissing(v) {
			continue
		}
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			e.Classes = append(e.Classes, v)
		}
	}
	sort.Strings(e.Classes)
}

// Transform encodes col. Missing values become NaN; values unseen at fit time
// are an error.
func (e *LabelEncoder) Transform(col []string) ([]float64, error) {
	out := make([]float64, len(col))
	for i, v := range col {
		v = strings.TrimSpace(v)
		if IsMissing(v) {
			out[i] = math.NaN()
			continue
		}
		j := sort.SearchStrings(e.Classes, v)
		if j == len(e.Classes) || e.Classes[j] != v {
			return nil, fmt.Errorf("row %d: unseen label %q", i, v)
		}
		out[i] = float64(j)
	}
	return out, nil
}

// FitTransform fits on col and encodes it.
func (e *LabelEncoder) FitTransform(col []string) ([]float64, error) {
	e.Fit(col)
	return e.Transform(col)
}

// OrdinalEncoder maps categories to explicit ranks, case-insensitively.
type OrdinalEncoder struct {
	Ranks map[string]float64
}

// BrakeRanks ranks brake condition quality.
var BrakeRanks = map[string]float64{"good": 2, "fair": 1, "poor": 0}

// Transform encodes col. Missing values become NaN; a category without a rank
// is an error.
func (e *OrdinalEncoder) Transform(col []string) ([]float64, error) {
	out := make([]float64, len(col))
	for i, v := range col {
		if IsMissing(v) {
			out[i] = math.NaN()
			continue
		}
		rank, ok := e.Ranks[strings.ToLower(strings.TrimSpace(v))]
		if !ok {
			return nil, fmt.Errorf("row %d: unmapped category %q", i, v)
		}
		out[i] = rank
	}
	return out, nil
}

// OneHotEncoder expands a categorical column into one indicator per category
// seen at fit time. Unseen categories encode as all zeros.
type OneHotEncoder struct {
	Column     string
	Categories []string
}

// Fit learns the sorted distinct non-empty categories of col.
func (e *OneHotEncoder) Fit(col []string) {
	seen := map[string]struct{}{}
	e.Categories = e.Categories[:0]
	for _, v := range col {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			e.Categories = append(e.Categories, v)
		}
	}
	sort.Strings(e.Categories)
}

// Encode writes the indicators for v into dst, which must have len(Categories) slots.
func (e *OneHotEncoder) Encode(v string, dst []float64) {
	for k := range dst {
		dst[k] = 0
	}
	j := sort.SearchStrings(e.Categories, v)
	if j < len(e.Categories) && e.Categories[j] == v {
		dst[j] = 1
	}
}

// FeatureNames returns "<column>_<category>" for every category.
func (e *OneHotEncoder) FeatureNames() []string {
	out := make([]string, len(e.Categories))
	for i, c := range e.Categories {
		out[i] = e.Column + "_" + c
	}
	return out
}
