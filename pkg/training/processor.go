// Package training runs the offline stages: preprocessing, training and
// evaluation.
package training

import (
	"github.com/sirupsen/logrus"

	"github.com/manjudata/predict-mlops/pkg/config"
	"github.com/manjudata/predict-mlops/pkg/data"
	"github.com/manjudata/predict-mlops/pkg/dataprep"
	"github.com/manjudata/predict-mlops/pkg/loader"
	"github.com/manjudata/predict-mlops/pkg/stats"
)

// outlierFence is the Tukey multiplier used for the data-quality log.
const outlierFence = 1.5

// Processor turns the raw CSV into persisted train/test partitions.
type Processor struct {
	RawPath      string
	ProcessedDir string
	TestRatio    float64
	Seed         int64
}

func NewProcessor(cfg *config.Config) *Processor {
	return &Processor{
		RawPath:      cfg.Paths.Raw,
		ProcessedDir: cfg.Paths.Processed,
		TestRatio:    cfg.Split.TestRatio,
		Seed:         cfg.Split.Seed,
	}
}

// Run loads, transforms, splits and saves. It stops at the first error.
func (p *Processor) Run() (*loader.Split, error) {
	log := logrus.WithField("stage", "preprocess")

	raw, err := data.ReadCSV(p.RawPath)
	if err != nil {
		return nil, err
	}
	out, err := dataprep.NewVehicleTransformer().Transform(raw)
	if err != nil {
		return nil, err
	}
	if n := dataprep.NaNCount(out.Features); n > 0 {
		log.WithField("missing", n).Info("missing numeric values left for imputation")
	}
	logOutliers(log, out.Features)

	split, err := loader.StratifiedSplit(out.Features, out.Labels, p.TestRatio, p.Seed)
	if err != nil {
		return nil, err
	}
	if err := loader.SavePartitions(p.ProcessedDir, split); err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"vehicle_types": out.VehicleTypes,
		"split":         split.String(),
	}).Info("data processing completed")
	return split, nil
}

// logOutliers reports numeric columns with values outside the Tukey fences.
// Outliers are counted only, never clipped.
func logOutliers(log *logrus.Entry, t *data.Table) map[string]int {
	found := map[string]int{}
	for _, c := range t.Columns {
		if c.Kind != data.Numeric {
			continue
		}
		if n := stats.CountOutliers(c.Num, outlierFence); n > 0 {
			found[c.Name] = n
			log.WithFields(logrus.Fields{"column": c.Name, "outliers": n}).Debug("outliers detected")
		}
	}
	if len(found) > 0 {
		log.WithField("columns", len(found)).Info("numeric columns with outliers")
	}
	return found
}
