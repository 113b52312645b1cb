package model

import "sort"

// Classification metrics

// AccuracyInt is the fraction of matching labels.
func AccuracyInt(yTrue []int, yPred []int) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	c := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			c++
		}
	}
	return float64(c) / float64(len(yTrue))
}

// PrecisionRecallF1 computes binary metrics for the positive label 1.
// Undefined ratios are reported as 0.
func PrecisionRecallF1(yTrue []int, yPred []int) (prec, rec, f1 float64) {
	return precisionRecallF1For(yTrue, yPred, 1)
}

func precisionRecallF1For(yTrue, yPred []int, label int) (prec, rec, f1 float64) {
	tp, fp, fn := 0, 0, 0
	for i := range yTrue {
		if yPred[i] == label && yTrue[i] == label {
			tp++
		}
		if yPred[i] == label && yTrue[i] != label {
			fp++
		}
		if yPred[i] != label && yTrue[i] == label {
			fn++
		}
	}
	if tp+fp > 0 {
		prec = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		rec = float64(tp) / float64(tp+fn)
	}
	if prec+rec > 0 {
		f1 = 2 * prec * rec / (prec + rec)
	}
	return
}

// WeightedPrecisionRecallF1 averages per-class metrics weighted by each
// class's support in yTrue. A class that is never predicted contributes a
// precision of 0 instead of failing.
func WeightedPrecisionRecallF1(yTrue []int, yPred []int) (prec, rec, f1 float64) {
	if len(yTrue) == 0 {
		return 0, 0, 0
	}
	support := map[int]int{}
	for _, y := range yTrue {
		support[y]++
	}
	labels := make([]int, 0, len(support))
	for l := range support {
		labels = append(labels, l)
	}
	sort.Ints(labels)

	n := float64(len(yTrue))
	for _, l := range labels {
		p, r, f := precisionRecallF1For(yTrue, yPred, l)
		w := float64(support[l]) / n
		prec += w * p
		rec += w * r
		f1 += w * f
	}
	return prec, rec, f1
}
