package serve

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manjudata/predict-mlops/internal/testutil"
	"github.com/manjudata/predict-mlops/pkg/config"
	"github.com/manjudata/predict-mlops/pkg/data"
	"github.com/manjudata/predict-mlops/pkg/dataprep"
	"github.com/manjudata/predict-mlops/pkg/errs"
	"github.com/manjudata/predict-mlops/pkg/model"
	"github.com/manjudata/predict-mlops/pkg/pipeline"
)

var (
	fixtureOnce sync.Once
	fixture     *pipeline.Pipeline
	fixtureErr  error
)

// trainedPipeline fits one fleet model shared by all tests in the package.
func trainedPipeline(t *testing.T) *pipeline.Pipeline {
	t.Helper()
	fixtureOnce.Do(func() {
		raw, err := data.ReadRaw(strings.NewReader(testutil.FleetCSV(400, 5)))
		if err != nil {
			fixtureErr = err
			return
		}
		tr, err := dataprep.NewVehicleTransformer().Transform(raw)
		if err != nil {
			fixtureErr = err
			return
		}
		p := pipeline.NewPipeline(model.NewRandomForest(model.WithNEstimators(50), model.WithSeed(42)))
		fixtureErr = p.Fit(tr.Features, tr.Labels)
		fixture = p
	})
	require.NoError(t, fixtureErr)
	return fixture
}

func newTestServer(t *testing.T, policy string) (*Server, *Predictor) {
	t.Helper()
	pred := NewPredictor(trainedPipeline(t), policy, nil)
	cfg := config.Default().Serving
	cfg.Debug = false
	return NewServer(pred, cfg), pred
}

func postForm(t *testing.T, s *Server, values map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{}
	for k, v := range values {
		form.Set(k, v)
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestIndexRendersForm(t *testing.T) {
	s, _ := newTestServer(t, config.MissingImpute)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `name="Engine_Temperature"`)
	assert.Contains(t, w.Body.String(), `name="Road_Conditions_Urban"`)
	assert.NotContains(t, w.Body.String(), "Prediction:")
}

func TestPostValidRecord(t *testing.T) {
	s, _ := newTestServer(t, config.MissingImpute)
	w := postForm(t, s, testutil.MidRangeRecord(1, 80))

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t,
		strings.Contains(body, "Prediction: <strong>Maintenance Required</strong>") ||
			strings.Contains(body, "Prediction: <strong>Maintenance not Required</strong>"),
		body)
	// submitted values are echoed back
	assert.Contains(t, body, `value="80"`)
}

func TestFixtureScenario(t *testing.T) {
	s, _ := newTestServer(t, config.MissingImpute)

	w := postForm(t, s, testutil.MidRangeRecord(0, 110))
	assert.Contains(t, w.Body.String(), "<strong>Maintenance Required</strong>")

	w = postForm(t, s, testutil.MidRangeRecord(2, 70))
	assert.Contains(t, w.Body.String(), "<strong>Maintenance not Required</strong>")
}

func TestPostAllBlank(t *testing.T) {
	for _, policy := range []string{config.MissingImpute, config.MissingZero} {
		t.Run(policy, func(t *testing.T) {
			s, _ := newTestServer(t, policy)
			w := postForm(t, s, map[string]string{})
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), "Prediction:")
			assert.NotContains(t, w.Body.String(), "Error:")
		})
	}
}

func TestPostNonNumeric(t *testing.T) {
	s, pred := newTestServer(t, config.MissingImpute)
	rec := testutil.MidRangeRecord(1, 80)
	rec["Engine_Temperature"] = "hot"

	w := postForm(t, s, rec)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Error:")
	assert.Contains(t, w.Body.String(), "Engine_Temperature")
	assert.Contains(t, w.Body.String(), `value="hot"`)

	_, err := pred.Predict(rec)
	assert.True(t, errors.Is(err, errs.ErrCoercion))
}

func TestPredictorPolicies(t *testing.T) {
	p := trainedPipeline(t)
	rec := testutil.MidRangeRecord(0, 110)
	rec["Usage_Hours"] = "  "

	for _, policy := range []string{config.MissingImpute, config.MissingZero} {
		got, err := NewPredictor(p, policy, nil).Predict(rec)
		require.NoError(t, err)
		assert.Contains(t, Labels, got.Class)
		assert.Equal(t, Labels[got.Class], got.Label)
	}
}

func TestPredictorRejectsInfinity(t *testing.T) {
	rec := testutil.MidRangeRecord(1, 80)
	rec["Oil_Quality"] = "Inf"
	_, err := NewPredictor(trainedPipeline(t), config.MissingImpute, nil).Predict(rec)
	assert.True(t, errors.Is(err, errs.ErrCoercion))
}

func TestPredictorWidthMismatch(t *testing.T) {
	forest := model.NewRandomForest(model.WithNEstimators(3))
	require.NoError(t, forest.Fit([][]float64{{0, 1}, {1, 0}, {0, 0}, {1, 1}}, []int{0, 1, 0, 1}))
	p := &pipeline.Pipeline{Prep: &pipeline.ColumnTransformer{}, Forest: forest}

	_, err := NewPredictor(p, config.MissingImpute, nil).Predict(map[string]string{})
	assert.True(t, errors.Is(err, errs.ErrSchema))
}

func TestLabelFor(t *testing.T) {
	assert.Equal(t, "Maintenance Required", LabelFor(1))
	assert.Equal(t, "Maintenance not Required", LabelFor(0))
	assert.Equal(t, "7", LabelFor(7))
}

func TestHealthAndMetrics(t *testing.T) {
	s, _ := newTestServer(t, config.MissingImpute)
	postForm(t, s, testutil.MidRangeRecord(0, 110))

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var health map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, trainedPipeline(t).Meta.RunID, health["run_id"])
	assert.Equal(t, float64(29), health["features"])

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "predict_mlops_predictions_total")
	assert.Contains(t, w.Body.String(), "predict_mlops_prediction_duration_seconds")
}

func TestReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.gob")
	require.NoError(t, pipeline.Save(path, trainedPipeline(t)))

	pred, err := LoadPredictor(path, config.MissingImpute, nil)
	require.NoError(t, err)
	first := pred.Artifact()

	require.NoError(t, pred.Reload(path))
	assert.NotSame(t, first, pred.Artifact())
	assert.Equal(t, first.Meta.RunID, pred.Artifact().Meta.RunID)

	// a broken file leaves the current model in place
	require.NoError(t, os.WriteFile(path, []byte("broken"), 0o644))
	current := pred.Artifact()
	assert.Error(t, pred.Reload(path))
	assert.Same(t, current, pred.Artifact())
}

func TestReloadOnSignal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.gob")
	require.NoError(t, pipeline.Save(path, trainedPipeline(t)))
	pred := NewPredictor(trainedPipeline(t), config.MissingImpute, nil)
	before := pred.Artifact()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	trigger := make(chan os.Signal, 1)
	go pred.ReloadOn(ctx, path, trigger)
	trigger <- syscall.SIGHUP

	assert.Eventually(t, func() bool { return pred.Artifact() != before }, 5*time.Second, 10*time.Millisecond)
}

func TestPredictWithPinsArtifact(t *testing.T) {
	full := trainedPipeline(t)
	pred := NewPredictor(full, config.MissingImpute, nil)

	narrow := model.NewRandomForest(model.WithNEstimators(3))
	require.NoError(t, narrow.Fit([][]float64{{0, 1, 0}, {1, 0, 1}, {0, 0, 0}, {1, 1, 1}}, []int{0, 1, 0, 1}))
	swapped := &pipeline.Pipeline{
		Prep:   &pipeline.ColumnTransformer{},
		Forest: narrow,
		Meta:   pipeline.Metadata{FeatureNames: []string{"a", "b", "c"}},
	}

	// the form was rendered from the full artifact, then the model is swapped
	page := emptyPage(full)
	pred.artifact.Store(swapped)

	values := testutil.MidRangeRecord(0, 110)
	got, err := pred.PredictWith(full, values)
	require.NoError(t, err)
	assert.Equal(t, "Maintenance Required", got.Label)
	assert.Len(t, page.Fields, len(full.FeatureNames()))

	// without pinning, the same submission is scored by the swapped model
	got, err = pred.Predict(values)
	require.NoError(t, err)
	assert.Contains(t, swapped.Forest.Classes, got.Class)
	assert.Len(t, emptyPage(pred.Artifact()).Fields, 3)
}
