package model

import (
	"bytes"
	"encoding/gob"
	"errors"
	"math"
	"math/rand"
	"sort"
)

// ---------------------------
// Types & options
// ---------------------------

// DecisionTreeClassifier is a CART-style classifier.
type DecisionTreeClassifier struct {
	// Hyperparameters / options
	MaxDepth            int     // maximum depth (root depth = 0). 0 => no limit
	MinSamplesSplit     int     // minimum samples to attempt a split
	MinSamplesLeaf      int     // minimum samples required in each leaf
	Criterion           string  // "gini" (default) or "entropy"
	MaxFeatures         int     // 0 => use all features, >0 => number of features to sample when looking for split
	MinImpurityDecrease float64 // minimal impurity decrease to accept a split
	RandomState         int64   // seed for randomness (feature subsampling)

	// internals
	root        *Node
	classes     []int     // unique class labels, sorted (order used by probas)
	importances []float64 // total weighted impurity decrease per feature
}

// Node is a node of a fitted tree. Fields are exported for gob.
type Node struct {
	Leaf        bool
	Feature     int
	Threshold   float64 // numeric threshold: x <= Threshold => left
	Categorical bool    // equality split: x == Threshold => left
	MissingLeft bool    // NaN => left
	Left        *Node
	Right       *Node

	N      int       // training samples that reached this node
	Probas []float64 // class distribution (aligned with tree classes), leaves only
}

// Option functional config
type Option func(*DecisionTreeClassifier)

func WithMaxDepth(d int) Option { return func(t *DecisionTreeClassifier) { t.MaxDepth = d } }
func WithMinSamplesSplit(n int) Option {
	return func(t *DecisionTreeClassifier) { t.MinSamplesSplit = n }
}
func WithMinSamplesLeaf(n int) Option {
	return func(t *DecisionTreeClassifier) { t.MinSamplesLeaf = n }
}
func WithCriterion(c string) Option { return func(t *DecisionTreeClassifier) { t.Criterion = c } }
func WithMaxFeatures(k int) Option  { return func(t *DecisionTreeClassifier) { t.MaxFeatures = k } }
func WithMinImpurityDecrease(v float64) Option {
	return func(t *DecisionTreeClassifier) { t.MinImpurityDecrease = v }
}
func WithRandomState(seed int64) Option {
	return func(t *DecisionTreeClassifier) { t.RandomState = seed }
}

// NewDecisionTreeClassifier returns a classifier with sensible defaults.
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	d := &DecisionTreeClassifier{
		MaxDepth:            0, // 0 => no explicit max (stopping by other criteria)
		MinSamplesSplit:     2,
		MinSamplesLeaf:      1,
		Criterion:           "gini",
		MaxFeatures:         0,
		MinImpurityDecrease: 0.0,
		RandomState:         0,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// ---------------------------
// Public API: Fit / Predict / PredictProba / Save/Load
// ---------------------------

// Fit trains the decision tree on X (n x p) and y (n labels as ints).
// Missing values must be math.NaN().
func (t *DecisionTreeClassifier) Fit(X [][]float64, y []int) error {
	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	return t.FitIndices(X, y, idx)
}

// FitIndices trains on the rows of X selected by idx. Indices may repeat, which
// is how bootstrap samples are passed without copying rows.
func (t *DecisionTreeClassifier) FitIndices(X [][]float64, y []int, idx []int) error {
	if len(X) == 0 || len(idx) == 0 {
		return errors.New("dtree: empty X")
	}
	if len(y) != len(X) {
		return errors.New("dtree: X and y length mismatch")
	}
	p := len(X[0])
	for i := range X {
		if len(X[i]) != p {
			return errors.New("dtree: inconsistent number of features in X rows")
		}
	}

	t.classes = uniqueSorted(y, idx)
	t.importances = make([]float64, p)

	b := &builder{
		tree:     t,
		X:        X,
		y:        y,
		p:        p,
		nClasses: len(t.classes),
		classOf:  make(map[int]int, len(t.classes)),
		rnd:      rand.New(rand.NewSource(t.RandomState)),
	}
	for i, c := range t.classes {
		b.classOf[c] = i
	}
	b.impurity = giniFromCounts
	if t.Criterion == "entropy" {
		b.impurity = entropyFromCounts
	}

	t.root = b.buildNode(append([]int(nil), idx...), 0)
	return nil
}

// Classes returns the sorted class labels seen at fit time.
func (t *DecisionTreeClassifier) Classes() []int { return t.classes }

// FeatureImportances returns the normalised impurity decrease per feature.
func (t *DecisionTreeClassifier) FeatureImportances() []float64 {
	out := make([]float64, len(t.importances))
	total := 0.0
	for _, v := range t.importances {
		total += v
	}
	if total == 0 {
		return out
	}
	for i, v := range t.importances {
		out[i] = v / total
	}
	return out
}

// Predict returns predicted class labels aligned with the labels the tree was trained on.
func (t *DecisionTreeClassifier) Predict(X [][]float64) []int {
	out := make([]int, len(X))
	for i := range X {
		out[i] = t.classes[argmaxFloat(t.predictProbaSingle(X[i]))]
	}
	return out
}

// PredictProba returns the per-class probability vectors for rows in X.
func (t *DecisionTreeClassifier) PredictProba(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i := range X {
		out[i] = t.predictProbaSingle(X[i])
	}
	return out
}

// MarshalBinary implements encoding.BinaryMarshaler using gob.
func (t *DecisionTreeClassifier) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	for _, v := range []any{
		t.MaxDepth, t.MinSamplesSplit, t.MinSamplesLeaf, t.Criterion, t.MaxFeatures,
		t.MinImpurityDecrease, t.RandomState, t.classes, t.importances, t.root,
	} {
		if err := enc.Encode(v); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler using gob.
func (t *DecisionTreeClassifier) UnmarshalBinary(data []byte) error {
	dec := gob.NewDecoder(bytes.NewBuffer(data))
	for _, v := range []any{
		&t.MaxDepth, &t.MinSamplesSplit, &t.MinSamplesLeaf, &t.Criterion, &t.MaxFeatures,
		&t.MinImpurityDecrease, &t.RandomState, &t.classes, &t.importances, &t.root,
	} {
		if err := dec.Decode(v); err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------
// Internal builders & helpers
// ---------------------------

type builder struct {
	tree     *DecisionTreeClassifier
	X        [][]float64
	y        []int
	p        int
	nClasses int
	classOf  map[int]int
	impurity func([]int) float64
	rnd      *rand.Rand
}

// splitResult holds the best split found for one feature.
type splitResult struct {
	gain      float64
	feature   int
	threshold float64
	isCat     bool
	nanLeft   bool
}

// pair is a value and its original row index.
type pair struct {
	v float64
	i int
}

func (b *builder) counts(idx []int) []int {
	counts := make([]int, b.nClasses)
	for _, ii := range idx {
		counts[b.classOf[b.y[ii]]]++
	}
	return counts
}

func (b *builder) leaf(n int, counts []int) *Node {
	return &Node{Leaf: true, N: n, Probas: countsToProbas(counts)}
}

func (b *builder) buildNode(idx []int, depth int) *Node {
	t := b.tree
	counts := b.counts(idx)

	// make leaf if pure or too few samples or depth reached
	if isPure(counts) || (t.MinSamplesSplit > 0 && len(idx) < t.MinSamplesSplit) {
		return b.leaf(len(idx), counts)
	}
	if t.MaxDepth > 0 && depth >= t.MaxDepth {
		return b.leaf(len(idx), counts)
	}

	// determine features to try
	featIndices := make([]int, b.p)
	for j := range featIndices {
		featIndices[j] = j
	}
	if t.MaxFeatures > 0 && t.MaxFeatures < b.p {
		for i := 0; i < t.MaxFeatures; i++ {
			j := i + b.rnd.Intn(b.p-i)
			featIndices[i], featIndices[j] = featIndices[j], featIndices[i]
		}
		featIndices = featIndices[:t.MaxFeatures]
		sort.Ints(featIndices)
	}

	parentImpurity := b.impurity(counts)
	best := splitResult{feature: -1}
	for _, f := range featIndices {
		if r := b.bestSplitForFeature(idx, f, counts, parentImpurity); r.feature >= 0 && r.gain > best.gain {
			best = r
		}
	}

	if best.feature == -1 || best.gain <= t.MinImpurityDecrease {
		return b.leaf(len(idx), counts)
	}

	leftIdx, rightIdx := b.partition(idx, best)
	if len(leftIdx) == 0 || len(rightIdx) == 0 {
		return b.leaf(len(idx), counts)
	}
	t.importances[best.feature] += float64(len(idx)) * best.gain

	return &Node{
		Feature:     best.feature,
		Threshold:   best.threshold,
		Categorical: best.isCat,
		MissingLeft: best.nanLeft,
		N:           len(idx),
		Left:        b.buildNode(leftIdx, depth+1),
		Right:       b.buildNode(rightIdx, depth+1),
	}
}

func (b *builder) partition(idx []int, s splitResult) (left, right []int) {
	for _, ii := range idx {
		v := b.X[ii][s.feature]
		var goLeft bool
		switch {
		case math.IsNaN(v):
			goLeft = s.nanLeft
		case s.isCat:
			goLeft = v == s.threshold
		default:
			goLeft = v <= s.threshold
		}
		if goLeft {
			left = append(left, ii)
		} else {
			right = append(right, ii)
		}
	}
	return left, right
}

// bestSplitForFeature scans thresholds of feature f with running class counts.
// Integer-like features with few distinct values also try equality splits.
// Missing values are tried on both sides of every candidate.
func (b *builder) bestSplitForFeature(idx []int, f int, total []int, parentImpurity float64) splitResult {
	minLeaf := b.tree.MinSamplesLeaf
	result := splitResult{feature: -1}

	valid := make([]pair, 0, len(idx))
	nanCounts := make([]int, b.nClasses)
	nNaN := 0
	for _, ii := range idx {
		v := b.X[ii][f]
		if math.IsNaN(v) {
			nanCounts[b.classOf[b.y[ii]]]++
			nNaN++
			continue
		}
		valid = append(valid, pair{v, ii})
	}
	if len(valid) == 0 {
		return result
	}
	n := float64(len(idx))

	try := func(left []int, nLeft int, threshold float64, isCat bool) {
		right := make([]int, b.nClasses)
		for nanSide := 0; nanSide < 2; nanSide++ {
			if nanSide == 1 && nNaN == 0 {
				return
			}
			l := append([]int(nil), left...)
			nl := nLeft
			if nanSide == 0 {
				for c := range l {
					l[c] += nanCounts[c]
				}
				nl += nNaN
			}
			for c := range right {
				right[c] = total[c] - l[c]
			}
			nr := len(idx) - nl
			if nl < minLeaf || nr < minLeaf || nl == 0 || nr == 0 {
				continue
			}
			weighted := float64(nl)/n*b.impurity(l) + float64(nr)/n*b.impurity(right)
			if gain := parentImpurity - weighted; gain > result.gain {
				result = splitResult{gain: gain, feature: f, threshold: threshold, isCat: isCat, nanLeft: nanSide == 0}
			}
		}
	}

	sort.Slice(valid, func(a, c int) bool {
		if valid[a].v == valid[c].v {
			return valid[a].i < valid[c].i
		}
		return valid[a].v < valid[c].v
	})

	// equality splits for small integer-like domains
	if uniq := distinctSorted(valid); len(uniq) > 2 && len(uniq) <= 30 && allIntLike(uniq) {
		for _, uv := range uniq {
			left := make([]int, b.nClasses)
			nLeft := 0
			for _, pv := range valid {
				if pv.v == uv {
					left[b.classOf[b.y[pv.i]]]++
					nLeft++
				}
			}
			try(left, nLeft, uv, true)
		}
	}

	// numeric threshold splits between consecutive distinct values
	left := make([]int, b.nClasses)
	for s := 1; s < len(valid); s++ {
		left[b.classOf[b.y[valid[s-1].i]]]++
		if valid[s].v == valid[s-1].v {
			continue
		}
		try(left, s, (valid[s-1].v+valid[s].v)/2.0, false)
	}
	return result
}

// ---------------------------
// Helpers used in buildNode
// ---------------------------

func uniqueSorted(y []int, idx []int) []int {
	seen := map[int]struct{}{}
	var out []int
	for _, ii := range idx {
		if _, ok := seen[y[ii]]; !ok {
			seen[y[ii]] = struct{}{}
			out = append(out, y[ii])
		}
	}
	sort.Ints(out)
	return out
}

func distinctSorted(sorted []pair) []float64 {
	var out []float64
	for i, p := range sorted {
		if i == 0 || p.v != sorted[i-1].v {
			out = append(out, p.v)
		}
	}
	return out
}

func allIntLike(vals []float64) bool {
	for _, v := range vals {
		if !almostInt(v) {
			return false
		}
	}
	return true
}

func almostInt(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	_, frac := math.Modf(math.Abs(v))
	return frac < 1e-9 || frac > 1-1e-9
}

// ---------------------------
// Prediction helper
// ---------------------------

func (t *DecisionTreeClassifier) predictProbaSingle(x []float64) []float64 {
	if t.root == nil {
		p := make([]float64, len(t.classes))
		for i := range p {
			p[i] = 1.0 / float64(len(p))
		}
		return p
	}
	node := t.root
	for !node.Leaf {
		val := x[node.Feature]
		switch {
		case math.IsNaN(val):
			if node.MissingLeft {
				node = node.Left
			} else {
				node = node.Right
			}
		case node.Categorical:
			if val == node.Threshold {
				node = node.Left
			} else {
				node = node.Right
			}
		default:
			if val <= node.Threshold {
				node = node.Left
			} else {
				node = node.Right
			}
		}
	}
	return node.Probas
}

// ---------------------------
// Utilities: impurity & misc
// ---------------------------

func giniFromCounts(counts []int) float64 {
	n := 0.0
	for _, c := range counts {
		n += float64(c)
	}
	if n == 0 {
		return 0
	}
	res := 0.0
	for _, c := range counts {
		p := float64(c) / n
		res += p * (1 - p)
	}
	return res
}

func entropyFromCounts(counts []int) float64 {
	n := 0.0
	for _, c := range counts {
		n += float64(c)
	}
	if n == 0 {
		return 0
	}
	res := 0.0
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		res -= p * math.Log2(p)
	}
	return res
}

func isPure(counts []int) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func countsToProbas(counts []int) []float64 {
	n := 0
	for _, c := range counts {
		n += c
	}
	p := make([]float64, len(counts))
	if n == 0 {
		return p
	}
	for i := range counts {
		p[i] = float64(counts[i]) / float64(n)
	}
	return p
}

// argmaxFloat returns the first index of the largest value.
func argmaxFloat(arr []float64) int {
	best := 0
	for i := 1; i < len(arr); i++ {
		if arr[i] > arr[best] {
			best = i
		}
	}
	return best
}
