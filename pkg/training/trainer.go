package training

import (
	"github.com/sirupsen/logrus"

	"github.com/manjudata/predict-mlops/pkg/config"
	"github.com/manjudata/predict-mlops/pkg/data"
	"github.com/manjudata/predict-mlops/pkg/errs"
	"github.com/manjudata/predict-mlops/pkg/loader"
	"github.com/manjudata/predict-mlops/pkg/model"
	"github.com/manjudata/predict-mlops/pkg/pipeline"
	"github.com/manjudata/predict-mlops/pkg/report"
)

// Metrics is the evaluation of one trained artifact on the test partition.
type Metrics struct {
	Accuracy  float64
	Precision float64
	Recall    float64
	F1        float64
}

func (m Metrics) Fields() logrus.Fields {
	return logrus.Fields{
		"accuracy":  m.Accuracy,
		"precision": m.Precision,
		"recall":    m.Recall,
		"f1":        m.F1,
	}
}

// Trainer fits the pipeline on persisted partitions, saves it and evaluates it.
type Trainer struct {
	ProcessedDir string
	ModelPath    string
	PlotPath     string // empty => no importance plot
	Model        config.ModelConfig
}

func NewTrainer(cfg *config.Config) *Trainer {
	return &Trainer{
		ProcessedDir: cfg.Paths.Processed,
		ModelPath:    cfg.Paths.Model,
		PlotPath:     cfg.Report.PlotPath,
		Model:        cfg.Model,
	}
}

func (t *Trainer) forest() *model.RandomForest {
	return model.NewRandomForest(
		model.WithNEstimators(t.Model.NEstimators),
		model.WithSeed(t.Model.Seed),
		model.WithForestMaxDepth(t.Model.MaxDepth),
		model.WithForestMinSamplesSplit(t.Model.MinSamplesSplit),
		model.WithForestMinSamplesLeaf(t.Model.MinSamplesLeaf),
		model.WithForestMaxFeatures(t.Model.MaxFeatures),
		model.WithForestCriterion(t.Model.Criterion),
		model.WithForestMinImpurityDecrease(t.Model.MinImpurityDecrease),
		model.WithBootstrap(t.Model.Bootstrap),
		model.WithWorkers(t.Model.Workers),
	)
}

// Run trains, persists and evaluates. The artifact at ModelPath is replaced.
func (t *Trainer) Run() (*pipeline.Pipeline, Metrics, error) {
	log := logrus.WithField("stage", "train")

	split, err := loader.LoadPartitions(t.ProcessedDir)
	if err != nil {
		return nil, Metrics{}, err
	}
	log.WithField("split", split.String()).Info("data loaded")

	p := pipeline.NewPipeline(t.forest())
	if err := p.Fit(split.XTrain, split.YTrain); err != nil {
		return nil, Metrics{}, err
	}
	if err := pipeline.Save(t.ModelPath, p); err != nil {
		return nil, Metrics{}, err
	}
	if t.PlotPath != "" {
		if err := t.plot(p); err != nil {
			// plot failures do not fail the run
			log.WithError(err).Warn("feature importance plot failed")
		}
	}

	m, err := Evaluate(p, split.XTest, split.YTest)
	if err != nil {
		return nil, Metrics{}, err
	}
	log.WithFields(m.Fields()).Info("evaluation metrics")
	return p, m, nil
}

func (t *Trainer) plot(p *pipeline.Pipeline) error {
	ranked, err := report.Rank(p.Importances())
	if err != nil {
		return err
	}
	return report.PlotImportances(ranked, t.PlotPath)
}

// Evaluate computes accuracy and support-weighted precision, recall and F1 of
// p on a held-out table.
func Evaluate(p *pipeline.Pipeline, X *data.Table, y []int) (Metrics, error) {
	if X.Len() != len(y) {
		return Metrics{}, errs.Errorf(errs.KindTraining, "evaluate", "%d rows but %d labels", X.Len(), len(y))
	}
	pred, err := p.Predict(X)
	if err != nil {
		return Metrics{}, err
	}
	prec, rec, f1 := model.WeightedPrecisionRecallF1(y, pred)
	return Metrics{
		Accuracy:  model.AccuracyInt(y, pred),
		Precision: prec,
		Recall:    rec,
		F1:        f1,
	}, nil
}
