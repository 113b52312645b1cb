package serve

import (
	"context"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/manjudata/predict-mlops/pkg/config"
	"github.com/manjudata/predict-mlops/pkg/errs"
	"github.com/manjudata/predict-mlops/pkg/pipeline"
)

// Labels maps class ids to display labels.
var Labels = map[int]string{
	0: "Maintenance not Required",
	1: "Maintenance Required",
}

// LabelFor returns the display label of class, or its decimal form if unknown.
func LabelFor(class int) string {
	if l, ok := Labels[class]; ok {
		return l
	}
	return strconv.Itoa(class)
}

// Prediction is the result for one submitted record.
type Prediction struct {
	Class int
	Label string
}

// Predictor serves predictions from a loaded artifact. It is safe for
// concurrent use; Reload swaps the artifact without blocking readers.
type Predictor struct {
	artifact atomic.Pointer[pipeline.Pipeline]
	policy   string
	metrics  *Metrics
}

// NewPredictor wraps an already loaded artifact. policy is one of
// config.MissingImpute or config.MissingZero.
func NewPredictor(p *pipeline.Pipeline, policy string, m *Metrics) *Predictor {
	if m == nil {
		m = NewMetrics()
	}
	pr := &Predictor{policy: policy, metrics: m}
	pr.artifact.Store(p)
	return pr
}

// LoadPredictor loads the artifact at path.
func LoadPredictor(path, policy string, m *Metrics) (*Predictor, error) {
	p, err := pipeline.Load(path)
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"path": path, "run_id": p.Meta.RunID}).Info("model loaded")
	return NewPredictor(p, policy, m), nil
}

// Artifact returns the artifact currently in use.
func (pr *Predictor) Artifact() *pipeline.Pipeline { return pr.artifact.Load() }

// FeatureNames returns the encoded input fields, in model order.
func (pr *Predictor) FeatureNames() []string { return pr.Artifact().FeatureNames() }

// Metrics returns the collectors the predictor reports to.
func (pr *Predictor) Metrics() *Metrics { return pr.metrics }

// Reload replaces the artifact with the one at path. On failure the current
// artifact stays in place.
func (pr *Predictor) Reload(path string) error {
	p, err := pipeline.Load(path)
	if err != nil {
		pr.metrics.Reloads.WithLabelValues("error").Inc()
		return err
	}
	pr.artifact.Store(p)
	pr.metrics.Reloads.WithLabelValues("ok").Inc()
	logrus.WithFields(logrus.Fields{"path": path, "run_id": p.Meta.RunID}).Info("model reloaded")
	return nil
}

// ReloadOn reloads path each time trigger fires, until ctx is done.
func (pr *Predictor) ReloadOn(ctx context.Context, path string, trigger <-chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-trigger:
			logrus.WithField("signal", sig).Info("reloading model")
			if err := pr.Reload(path); err != nil {
				logrus.WithError(err).Error("model reload failed, keeping current model")
			}
		}
	}
}

// Predict coerces the submitted values and runs the model. Values are keyed
// by encoded feature name; blank or absent fields follow the missing-value
// policy.
func (pr *Predictor) Predict(values map[string]string) (Prediction, error) {
	return pr.PredictWith(pr.Artifact(), values)
}

// PredictWith is Predict against a specific artifact, so a caller that already
// read the feature names from a uses the same schema for the prediction.
func (pr *Predictor) PredictWith(a *pipeline.Pipeline, values map[string]string) (Prediction, error) {
	const op = "predict"
	names := a.FeatureNames()
	if len(names) != a.Forest.NInputs {
		return Prediction{}, errs.Errorf(errs.KindSchema, op, "%d feature names but model expects %d inputs", len(names), a.Forest.NInputs)
	}

	fill := pr.fillValues(a, len(names))
	row := make([]float64, len(names))
	for j, name := range names {
		v, err := coerce(values[name])
		if err != nil {
			return Prediction{}, errs.E(errs.KindCoercion, op, fmt.Errorf("field %s: %w", name, err))
		}
		if math.IsNaN(v) {
			v = fill[j]
		}
		row[j] = v
	}

	classes, err := a.PredictVectors([][]float64{row})
	if err != nil {
		return Prediction{}, err
	}
	return Prediction{Class: classes[0], Label: LabelFor(classes[0])}, nil
}

func (pr *Predictor) fillValues(a *pipeline.Pipeline, width int) []float64 {
	if pr.policy == config.MissingImpute {
		if fill := a.FillValues(); len(fill) == width {
			return fill
		}
		logrus.Debug("artifact has no imputation statistics, filling blanks with 0")
	}
	return make([]float64, width)
}

// coerce parses a submitted value; blank and NaN yield NaN.
func coerce(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	if math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not finite", s)
	}
	return v, nil
}
