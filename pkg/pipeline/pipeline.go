package pipeline

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/manjudata/predict-mlops/pkg/data"
	"github.com/manjudata/predict-mlops/pkg/dataprep"
	"github.com/manjudata/predict-mlops/pkg/errs"
	"github.com/manjudata/predict-mlops/pkg/model"
)

// ColumnTransformer imputes and encodes a feature table into dense vectors.
// Numeric columns are median-imputed; categorical columns are mode-imputed and
// one-hot encoded. The encoded order is numeric columns, then one-hot blocks.
type ColumnTransformer struct {
	NumericCols     []string
	CategoricalCols []string
	Numeric         dataprep.MedianImputer
	Categorical     dataprep.ModeImputer
	OneHot          []dataprep.OneHotEncoder
}

// Fit classifies the columns of t by declared kind and learns imputation
// statistics and categories.
func (c *ColumnTransformer) Fit(t *data.Table) error {
	if err := t.Validate(); err != nil {
		return errs.E(errs.KindSchema, "fit column transformer", err)
	}
	c.NumericCols, c.CategoricalCols = nil, nil
	var num [][]float64
	var cat [][]string
	for _, col := range t.Columns {
		if col.Kind == data.Categorical {
			c.CategoricalCols = append(c.CategoricalCols, col.Name)
			cat = append(cat, col.Cat)
			continue
		}
		c.NumericCols = append(c.NumericCols, col.Name)
		num = append(num, col.Num)
	}

	c.Numeric.Fit(num)
	c.Categorical.Fit(cat)
	c.OneHot = make([]dataprep.OneHotEncoder, len(cat))
	for j, values := range cat {
		filled := make([]string, len(values))
		for i, v := range values {
			filled[i] = c.Categorical.Fill(j, v)
		}
		c.OneHot[j] = dataprep.OneHotEncoder{Column: c.CategoricalCols[j]}
		c.OneHot[j].Fit(filled)
	}
	return nil
}

// Width is the length of an encoded vector.
func (c *ColumnTransformer) Width() int {
	w := len(c.NumericCols)
	for _, e := range c.OneHot {
		w += len(e.Categories)
	}
	return w
}

// FeatureNames returns the encoded feature names in vector order.
func (c *ColumnTransformer) FeatureNames() []string {
	out := append([]string(nil), c.NumericCols...)
	for _, e := range c.OneHot {
		out = append(out, e.FeatureNames()...)
	}
	return out
}

// FillValues returns, per encoded feature, the value a missing input takes:
// the median for numeric features, and for one-hot features 1 when the
// category is the training mode.
func (c *ColumnTransformer) FillValues() []float64 {
	out := append([]float64(nil), c.Numeric.Medians...)
	for j, e := range c.OneHot {
		mode := c.Categorical.Modes[j]
		for _, cat := range e.Categories {
			v := 0.0
			if cat == mode {
				v = 1
			}
			out = append(out, v)
		}
	}
	return out
}

// Transform encodes t. Columns are looked up by name so the table's column
// order does not matter, but every fitted column must be present.
func (c *ColumnTransformer) Transform(t *data.Table) ([][]float64, error) {
	const op = "transform features"
	n := t.Len()
	X := make([][]float64, n)
	width := c.Width()
	for i := range X {
		X[i] = make([]float64, width)
	}

	for j, name := range c.NumericCols {
		col, ok := t.Column(name)
		if !ok || col.Kind != data.Numeric {
			return nil, errs.Errorf(errs.KindSchema, op, "missing numeric column %s", name)
		}
		for i, v := range col.Num {
			X[i][j] = c.Numeric.Fill(j, v)
		}
	}

	offset := len(c.NumericCols)
	for j, name := range c.CategoricalCols {
		col, ok := t.Column(name)
		if !ok || col.Kind != data.Categorical {
			return nil, errs.Errorf(errs.KindSchema, op, "missing categorical column %s", name)
		}
		enc := c.OneHot[j]
		k := len(enc.Categories)
		for i, v := range col.Cat {
			enc.Encode(c.Categorical.Fill(j, v), X[i][offset:offset+k])
		}
		offset += k
	}
	return X, nil
}

// Metadata travels with a trained pipeline.
type Metadata struct {
	RunID        string
	TrainedAt    time.Time
	Seed         int64
	NEstimators  int
	Inputs       Schema
	FeatureNames []string
}

// Pipeline bundles preprocessing and the forest into one artifact.
type Pipeline struct {
	Prep   *ColumnTransformer
	Forest *model.RandomForest
	Meta   Metadata
}

func NewPipeline(forest *model.RandomForest) *Pipeline {
	return &Pipeline{Prep: &ColumnTransformer{}, Forest: forest}
}

// Fit fits preprocessing and then the forest on its output.
func (p *Pipeline) Fit(t *data.Table, y []int) error {
	const op = "fit pipeline"
	if t.Len() != len(y) {
		return errs.Errorf(errs.KindTraining, op, "%d rows but %d labels", t.Len(), len(y))
	}
	if err := p.Prep.Fit(t); err != nil {
		return err
	}
	X, err := p.Prep.Transform(t)
	if err != nil {
		return err
	}

	start := time.Now()
	if err := p.Forest.Fit(X, y); err != nil {
		return errs.E(errs.KindTraining, op, err)
	}
	p.Meta = Metadata{
		RunID:        uuid.NewString(),
		TrainedAt:    time.Now().UTC(),
		Seed:         p.Forest.RandomState,
		NEstimators:  p.Forest.NEstimators,
		Inputs:       SchemaOf(t),
		FeatureNames: p.Prep.FeatureNames(),
	}
	logrus.WithFields(logrus.Fields{
		"run_id":   p.Meta.RunID,
		"rows":     len(y),
		"features": len(p.Meta.FeatureNames),
		"trees":    p.Forest.NEstimators,
		"elapsed":  time.Since(start).Round(time.Millisecond),
	}).Info("pipeline fitted")
	return nil
}

// FeatureNames returns the encoded feature names the forest expects, falling
// back to FallbackFeatures for artifacts without metadata.
func (p *Pipeline) FeatureNames() []string {
	if len(p.Meta.FeatureNames) > 0 {
		return p.Meta.FeatureNames
	}
	return FallbackFeatures
}

// FillValues returns the per-feature imputation values, or nil when the
// artifact has no fitted preprocessing.
func (p *Pipeline) FillValues() []float64 {
	if p.Prep == nil || len(p.Prep.Numeric.Medians) == 0 {
		return nil
	}
	return p.Prep.FillValues()
}

// Predict encodes t and predicts one class per row.
func (p *Pipeline) Predict(t *data.Table) ([]int, error) {
	X, err := p.Prep.Transform(t)
	if err != nil {
		return nil, err
	}
	return p.PredictVectors(X)
}

// PredictVectors predicts already-encoded vectors. Missing values (NaN) must
// have been filled by the caller.
func (p *Pipeline) PredictVectors(X [][]float64) ([]int, error) {
	want := p.Forest.NInputs
	for i, row := range X {
		if len(row) != want {
			return nil, errs.Errorf(errs.KindSchema, "predict", "row %d has %d features, model expects %d", i, len(row), want)
		}
		for j, v := range row {
			if math.IsNaN(v) {
				return nil, errs.E(errs.KindCoercion, "predict", fmt.Errorf("row %d: feature %d is missing", i, j))
			}
		}
	}
	return p.Forest.Predict(X), nil
}

// Importances pairs encoded feature names with forest importances.
func (p *Pipeline) Importances() ([]string, []float64) {
	return p.FeatureNames(), p.Forest.FeatureImportances()
}
