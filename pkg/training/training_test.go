package training

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manjudata/predict-mlops/internal/testutil"
	"github.com/manjudata/predict-mlops/pkg/config"
	"github.com/manjudata/predict-mlops/pkg/data"
	"github.com/manjudata/predict-mlops/pkg/errs"
	"github.com/manjudata/predict-mlops/pkg/loader"
	"github.com/manjudata/predict-mlops/pkg/pipeline"
)

func testConfig(t *testing.T, rows int) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.Raw = testutil.WriteFleetCSV(t, dir, rows, 11)
	cfg.Paths.Processed = filepath.Join(dir, "processed")
	cfg.Paths.Model = filepath.Join(dir, "models", "model.gob")
	cfg.Report.PlotPath = filepath.Join(dir, "reports", "importance.png")
	cfg.Model.NEstimators = 30
	return cfg
}

func TestEndToEnd(t *testing.T) {
	cfg := testConfig(t, 400)

	split, err := NewProcessor(cfg).Run()
	require.NoError(t, err)
	assert.InDelta(t, 80, len(split.YTest), 1)
	for _, f := range []string{loader.XTrainFile, loader.XTestFile, loader.YTrainFile, loader.YTestFile} {
		assert.FileExists(t, filepath.Join(cfg.Paths.Processed, f))
	}

	p, m, err := NewTrainer(cfg).Run()
	require.NoError(t, err)
	assert.FileExists(t, cfg.Paths.Model)
	assert.FileExists(t, pipeline.SchemaPath(cfg.Paths.Model))
	assert.FileExists(t, cfg.Report.PlotPath)
	assert.Equal(t, testutil.FallbackFeatureNames, p.FeatureNames())

	// labels follow a simple rule on two features, so the forest should learn it
	assert.Greater(t, m.Accuracy, 0.8)
	for _, v := range []float64{m.Precision, m.Recall, m.F1} {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	cfg := testConfig(t, 200)
	_, err := NewProcessor(cfg).Run()
	require.NoError(t, err)
	_, _, err = NewTrainer(cfg).Run()
	require.NoError(t, err)

	p, err := pipeline.Load(cfg.Paths.Model)
	require.NoError(t, err)
	split, err := loader.LoadPartitions(cfg.Paths.Processed)
	require.NoError(t, err)

	a, err := Evaluate(p, split.XTest, split.YTest)
	require.NoError(t, err)
	b, err := Evaluate(p, split.XTest, split.YTest)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestTrainingIsReproducible(t *testing.T) {
	cfg := testConfig(t, 200)
	_, err := NewProcessor(cfg).Run()
	require.NoError(t, err)

	_, first, err := NewTrainer(cfg).Run()
	require.NoError(t, err)
	_, second, err := NewTrainer(cfg).Run()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestProcessorSchemaError(t *testing.T) {
	cfg := testConfig(t, 20)
	require.NoError(t, os.WriteFile(cfg.Paths.Raw, []byte("Vehicle_ID,Usage_Hours\nV1,10\n"), 0o644))
	_, err := NewProcessor(cfg).Run()
	assert.True(t, errors.Is(err, errs.ErrSchema))
}

func TestProcessorMissingFile(t *testing.T) {
	cfg := testConfig(t, 20)
	cfg.Paths.Raw = filepath.Join(t.TempDir(), "absent.csv")
	_, err := NewProcessor(cfg).Run()
	assert.True(t, errors.Is(err, errs.ErrDataLoad))
}

func TestTrainerWithoutPartitions(t *testing.T) {
	cfg := testConfig(t, 20)
	_, _, err := NewTrainer(cfg).Run()
	assert.True(t, errors.Is(err, errs.ErrDataLoad))
}

func TestLogOutliers(t *testing.T) {
	tbl := &data.Table{Columns: []data.Column{
		{Name: "flat", Kind: data.Numeric, Num: []float64{1, 2, 3, 4, 5}},
		{Name: "spiky", Kind: data.Numeric, Num: []float64{1, 2, 3, 4, 500}},
		{Name: "cat", Kind: data.Categorical, Cat: []string{"a", "b", "c", "d", "e"}},
	}}
	got := logOutliers(logrus.NewEntry(logrus.StandardLogger()), tbl)
	assert.Equal(t, map[string]int{"spiky": 1}, got)
}

func TestTrainerAppliesModelConfig(t *testing.T) {
	cfg := testConfig(t, 200)
	cfg.Model.Criterion = "entropy"
	cfg.Model.MinSamplesLeaf = 2
	cfg.Model.Bootstrap = false
	cfg.Report.PlotPath = ""
	_, err := NewProcessor(cfg).Run()
	require.NoError(t, err)

	p, m, err := NewTrainer(cfg).Run()
	require.NoError(t, err)
	assert.Equal(t, "entropy", p.Forest.Criterion)
	assert.Equal(t, 2, p.Forest.MinSamplesLeaf)
	assert.False(t, p.Forest.Bootstrap)
	for _, tree := range p.Forest.Trees {
		assert.Equal(t, "entropy", tree.Criterion)
	}
	assert.Greater(t, m.Accuracy, 0.75)
}
