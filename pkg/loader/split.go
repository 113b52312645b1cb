package loader

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/manjudata/predict-mlops/pkg/data"
	"github.com/manjudata/predict-mlops/pkg/errs"
	"github.com/manjudata/predict-mlops/pkg/stats"
)

// Split holds the four train/test partitions.
type Split struct {
	XTrain, XTest *data.Table
	YTrain, YTest []int
}

// StratifiedSplit splits t and y into train and test sets so that every class
// keeps roughly its proportion in both. The same input and seed always give
// the same partitions.
func StratifiedSplit(t *data.Table, y []int, testRatio float64, seed int64) (*Split, error) {
	const op = "split dataset"
	if testRatio <= 0 || testRatio >= 1 {
		return nil, errs.Errorf(errs.KindTraining, op, "test ratio %v outside (0, 1)", testRatio)
	}
	if t.Len() != len(y) {
		return nil, errs.Errorf(errs.KindSchema, op, "%d rows but %d labels", t.Len(), len(y))
	}

	byClass := map[int][]int{}
	for i, c := range y {
		byClass[c] = append(byClass[c], i)
	}
	classes := make([]int, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Ints(classes)

	rng := rand.New(rand.NewSource(seed))
	var trainIdx, testIdx []int
	for _, c := range classes {
		idx := byClass[c]
		if len(idx) < 2 {
			return nil, errs.Errorf(errs.KindTraining, op, "class %d has %d member(s), need at least 2", c, len(idx))
		}
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		nTest := testCount(len(idx), testRatio)
		testIdx = append(testIdx, idx[:nTest]...)
		trainIdx = append(trainIdx, idx[nTest:]...)
	}
	rng.Shuffle(len(trainIdx), func(i, j int) { trainIdx[i], trainIdx[j] = trainIdx[j], trainIdx[i] })
	rng.Shuffle(len(testIdx), func(i, j int) { testIdx[i], testIdx[j] = testIdx[j], testIdx[i] })

	s := &Split{
		XTrain: t.Take(trainIdx),
		XTest:  t.Take(testIdx),
		YTrain: takeLabels(y, trainIdx),
		YTest:  takeLabels(y, testIdx),
	}
	logrus.WithFields(logrus.Fields{
		"train":         len(trainIdx),
		"test":          len(testIdx),
		"seed":          seed,
		"train_classes": stats.Proportions(s.YTrain),
		"test_classes":  stats.Proportions(s.YTest),
	}).Info("dataset split")
	return s, nil
}

// testCount is round(n*ratio) clamped so both sides keep at least one row.
func testCount(n int, ratio float64) int {
	k := int(math.Round(float64(n) * ratio))
	if k < 1 {
		k = 1
	}
	if k > n-1 {
		k = n - 1
	}
	return k
}

func takeLabels(y []int, idx []int) []int {
	out := make([]int, len(idx))
	for i, r := range idx {
		out[i] = y[r]
	}
	return out
}

// String summarises partition sizes.
func (s *Split) String() string {
	return fmt.Sprintf("train=%d test=%d", len(s.YTrain), len(s.YTest))
}
