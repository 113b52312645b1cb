package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manjudata/predict-mlops/internal/testutil"
	"github.com/manjudata/predict-mlops/pkg/pipeline"
)

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	raw := testutil.WriteFleetCSV(t, dir, 150, 3)
	path := filepath.Join(dir, "config.yaml")
	body := fmt.Sprintf(`paths:
  raw: %s
  processed: %s
  model: %s
model:
  n_estimators: 10
logging:
  level: warn
`, raw, filepath.Join(dir, "processed"), filepath.Join(dir, "models", "model.gob"))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func run(t *testing.T, args ...string) error {
	t.Helper()
	skipPreprocess, configPath, logLevel = false, "", ""
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestTrainCommand(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir)

	require.NoError(t, run(t, "train", "--config", cfg))
	model := filepath.Join(dir, "models", "model.gob")
	assert.FileExists(t, model)
	assert.FileExists(t, pipeline.SchemaPath(model))

	// partitions exist now, so training alone works too
	require.NoError(t, run(t, "train", "--config", cfg, "--skip-preprocess"))
}

func TestPreprocessCommand(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, run(t, "preprocess", "--config", writeConfig(t, dir), "--log", "error"))
	assert.FileExists(t, filepath.Join(dir, "processed", "X_train.gob"))
}

func TestCommandErrors(t *testing.T) {
	dir := t.TempDir()
	assert.Error(t, run(t, "train", "--config", filepath.Join(dir, "absent.yaml")))
	assert.Error(t, run(t, "train", "--config", writeConfig(t, dir), "--skip-preprocess"))
	assert.Error(t, run(t, "preprocess", "--config", writeConfig(t, dir), "--log", "loud"))
}
