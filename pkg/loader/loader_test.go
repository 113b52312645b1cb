package loader

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manjudata/predict-mlops/pkg/data"
	"github.com/manjudata/predict-mlops/pkg/errs"
	"github.com/manjudata/predict-mlops/pkg/stats"
)

// sample builds n rows with a row id column and a 30% positive class.
func sample(n int) (*data.Table, []int) {
	id := make([]float64, n)
	cat := make([]string, n)
	y := make([]int, n)
	for i := range id {
		id[i] = float64(i)
		cat[i] = []string{"a", "b", ""}[i%3]
		if i%10 < 3 {
			y[i] = 1
		}
	}
	id[5] = math.NaN()
	return &data.Table{Columns: []data.Column{
		{Name: "id", Kind: data.Numeric, Num: id},
		{Name: "c", Kind: data.Categorical, Cat: cat},
	}}, y
}

func TestStratifiedSplitDeterministic(t *testing.T) {
	tbl, y := sample(200)
	a, err := StratifiedSplit(tbl, y, 0.2, 42)
	require.NoError(t, err)
	b, err := StratifiedSplit(tbl, y, 0.2, 42)
	require.NoError(t, err)

	assert.Equal(t, a.YTrain, b.YTrain)
	assert.Equal(t, a.YTest, b.YTest)
	assert.Equal(t, a.XTest.Columns[1].Cat, b.XTest.Columns[1].Cat)

	c, err := StratifiedSplit(tbl, y, 0.2, 7)
	require.NoError(t, err)
	assert.NotEqual(t, a.XTest.Columns[1].Cat, c.XTest.Columns[1].Cat)
}

func TestStratifiedSplitPreservesRatio(t *testing.T) {
	tbl, y := sample(200)
	s, err := StratifiedSplit(tbl, y, 0.25, 1)
	require.NoError(t, err)

	assert.Len(t, s.YTest, 50)
	assert.Len(t, s.YTrain, 150)
	assert.InDelta(t, 0.3, stats.Proportions(s.YTest)[1], 0.02)
	assert.InDelta(t, 0.3, stats.Proportions(s.YTrain)[1], 0.02)
	assert.Equal(t, 50, s.XTest.Len())
	require.NoError(t, s.XTrain.Validate())
}

func TestStratifiedSplitRowsStayAligned(t *testing.T) {
	tbl, y := sample(100)
	s, err := StratifiedSplit(tbl, y, 0.3, 3)
	require.NoError(t, err)
	for i, id := range s.XTrain.Columns[0].Num {
		if math.IsNaN(id) {
			assert.Equal(t, y[5], s.YTrain[i])
			continue
		}
		assert.Equal(t, y[int(id)], s.YTrain[i])
	}
}

func TestStratifiedSplitErrors(t *testing.T) {
	tbl, y := sample(10)
	for name, tc := range map[string]struct {
		y     []int
		ratio float64
	}{
		"zero ratio":      {y, 0},
		"ratio of one":    {y, 1},
		"length mismatch": {y[:5], 0.2},
		"singleton class": {[]int{0, 0, 0, 0, 0, 0, 0, 0, 0, 1}, 0.2},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := StratifiedSplit(tbl, tc.y, tc.ratio, 1)
			assert.Error(t, err)
		})
	}
}

func TestTestCountClamps(t *testing.T) {
	assert.Equal(t, 1, testCount(2, 0.01))
	assert.Equal(t, 1, testCount(2, 0.99))
	assert.Equal(t, 20, testCount(100, 0.2))
}

func TestPartitionsRoundTrip(t *testing.T) {
	tbl, y := sample(60)
	s, err := StratifiedSplit(tbl, y, 0.2, 42)
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "processed")
	require.NoError(t, SavePartitions(dir, s))
	for _, f := range []string{XTrainFile, XTestFile, YTrainFile, YTestFile} {
		assert.FileExists(t, filepath.Join(dir, f))
	}

	got, err := LoadPartitions(dir)
	require.NoError(t, err)
	assert.Equal(t, s.YTrain, got.YTrain)
	assert.Equal(t, s.YTest, got.YTest)
	assert.Equal(t, s.XTest.Names(), got.XTest.Names())
	assert.Equal(t, s.XTest.Columns[1].Cat, got.XTest.Columns[1].Cat)
	assert.Equal(t, data.Categorical, got.XTrain.Columns[1].Kind)
}

func TestLoadPartitionsMissing(t *testing.T) {
	_, err := LoadPartitions(t.TempDir())
	assert.True(t, errors.Is(err, errs.ErrDataLoad))
}

func TestLoadPartitionsCorrupt(t *testing.T) {
	tbl, y := sample(20)
	s, err := StratifiedSplit(tbl, y, 0.2, 1)
	require.NoError(t, err)
	dir := t.TempDir()
	require.NoError(t, SavePartitions(dir, s))
	require.NoError(t, os.WriteFile(filepath.Join(dir, YTestFile), []byte("junk"), 0o644))

	_, err = LoadPartitions(dir)
	assert.True(t, errors.Is(err, errs.ErrSerialization))
}
