package model

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sync"
)

// RandomForest for classification
type RandomForest struct {
	// Hyperparameters / options
	NEstimators         int
	MaxDepth            int
	MinSamplesSplit     int
	MinSamplesLeaf      int
	MaxFeatures         int    // 0 => round(sqrt(p))
	Criterion           string // "gini" or "entropy"
	MinImpurityDecrease float64
	Bootstrap           bool
	RandomState         int64
	Workers             int // 0 => GOMAXPROCS

	// Fitted state
	Trees   []*DecisionTreeClassifier
	Classes []int
	NInputs int
}

// RandomForestOption functional config for RandomForest
type RandomForestOption func(*RandomForest)

func WithNEstimators(n int) RandomForestOption { return func(rf *RandomForest) { rf.NEstimators = n } }
func WithBootstrap(b bool) RandomForestOption  { return func(rf *RandomForest) { rf.Bootstrap = b } }
func WithSeed(seed int64) RandomForestOption   { return func(rf *RandomForest) { rf.RandomState = seed } }
func WithForestMaxDepth(d int) RandomForestOption {
	return func(rf *RandomForest) { rf.MaxDepth = d }
}
func WithForestMinSamplesSplit(n int) RandomForestOption {
	return func(rf *RandomForest) { rf.MinSamplesSplit = n }
}
func WithForestMaxFeatures(k int) RandomForestOption {
	return func(rf *RandomForest) { rf.MaxFeatures = k }
}
func WithForestMinSamplesLeaf(n int) RandomForestOption {
	return func(rf *RandomForest) { rf.MinSamplesLeaf = n }
}
func WithForestCriterion(c string) RandomForestOption {
	return func(rf *RandomForest) { rf.Criterion = c }
}
func WithForestMinImpurityDecrease(v float64) RandomForestOption {
	return func(rf *RandomForest) { rf.MinImpurityDecrease = v }
}
func WithWorkers(n int) RandomForestOption { return func(rf *RandomForest) { rf.Workers = n } }

// NewRandomForest initializes the forest with sensible defaults.
func NewRandomForest(opts ...RandomForestOption) *RandomForest {
	rf := &RandomForest{
		NEstimators:     100,
		MaxDepth:        0,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MaxFeatures:     0,
		Criterion:       "gini",
		Bootstrap:       true,
		RandomState:     42,
	}
	for _, o := range opts {
		o(rf)
	}
	return rf
}

// Fit trains the random forest.
// Each tree gets its own seed (RandomState + tree index) and is stored at its
// index, so the result does not depend on goroutine scheduling.
func (rf *RandomForest) Fit(X [][]float64, y []int) error {
	if len(X) == 0 {
		return errors.New("randomforest: empty X")
	}
	n := len(X)
	if len(y) != n {
		return errors.New("randomforest: X and y length mismatch")
	}
	if rf.NEstimators <= 0 {
		return fmt.Errorf("randomforest: NEstimators must be positive, got %d", rf.NEstimators)
	}
	if rf.Criterion != "" && rf.Criterion != "gini" && rf.Criterion != "entropy" {
		return fmt.Errorf("randomforest: unknown criterion %q", rf.Criterion)
	}
	p := len(X[0])
	maxFeatures := rf.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = int(math.Max(1, math.Round(math.Sqrt(float64(p)))))
	}

	all := make([]int, n)
	for i := range all {
		all[i] = i
	}
	rf.Classes = uniqueSorted(y, all)
	rf.NInputs = p
	rf.Trees = make([]*DecisionTreeClassifier, rf.NEstimators)

	workers := rf.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	jobs := make(chan int)
	errCh := make(chan error, rf.NEstimators)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				seed := rf.RandomState + int64(idx)
				treeRand := rand.New(rand.NewSource(seed))

				// Bootstrap sampling: an index slice, not a copy of the data.
				sampleIndices := make([]int, n)
				for j := 0; j < n; j++ {
					if rf.Bootstrap {
						sampleIndices[j] = treeRand.Intn(n)
					} else {
						sampleIndices[j] = j
					}
				}

				tree := NewDecisionTreeClassifier(
					WithMaxDepth(rf.MaxDepth),
					WithMinSamplesSplit(rf.MinSamplesSplit),
					WithMaxFeatures(maxFeatures),
					WithRandomState(seed),
				)
				if err := tree.FitIndices(X, y, sampleIndices); err != nil {
					errCh <- fmt.Errorf("randomforest: tree %d: %w", idx, err)
					continue
				}
				rf.Trees[idx] = tree
			}
		}()
	}
	for i := 0; i < rf.NEstimators; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	close(errCh)

	// Check for any errors from goroutines.
	if err, ok := <-errCh; ok {
		return err
	}
	return nil
}

// PredictProba averages the tree class distributions, aligned with rf.Classes.
func (rf *RandomForest) PredictProba(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	classPos := make(map[int]int, len(rf.Classes))
	for i, c := range rf.Classes {
		classPos[c] = i
	}
	for i := range out {
		out[i] = make([]float64, len(rf.Classes))
	}
	for _, tree := range rf.Trees {
		probas := tree.PredictProba(X)
		for i, row := range probas {
			for k, p := range row {
				out[i][classPos[tree.classes[k]]] += p
			}
		}
	}
	for i := range out {
		for k := range out[i] {
			out[i][k] /= float64(len(rf.Trees))
		}
	}
	return out
}

// Predict returns the class with the highest averaged probability; ties go to
// the smallest class label.
func (rf *RandomForest) Predict(X [][]float64) []int {
	probas := rf.PredictProba(X)
	out := make([]int, len(X))
	for i, row := range probas {
		out[i] = rf.Classes[argmaxFloat(row)]
	}
	return out
}

// FeatureImportances averages the normalised per-tree importances.
func (rf *RandomForest) FeatureImportances() []float64 {
	out := make([]float64, rf.NInputs)
	if len(rf.Trees) == 0 {
		return out
	}
	for _, tree := range rf.Trees {
		for j, v := range tree.FeatureImportances() {
			out[j] += v
		}
	}
	for j := range out {
		out[j] /= float64(len(rf.Trees))
	}
	return out
}
