package model

// Classifier is a supervised classifier over dense float features.
type Classifier interface {
	Fit(X [][]float64, y []int) error
	Predict(X [][]float64) []int
	PredictProba(X [][]float64) [][]float64 // per-class probabilities, aligned with the sorted classes
}

var (
	_ Classifier = (*DecisionTreeClassifier)(nil)
	_ Classifier = (*RandomForest)(nil)
)
