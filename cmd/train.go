package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/manjudata/predict-mlops/pkg/training"
)

var skipPreprocess bool // Reuse existing partitions instead of rebuilding them

// trainCmd runs the offline pipeline end to end
var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Preprocess, train, save and evaluate the maintenance model",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if !skipPreprocess {
			if _, err := training.NewProcessor(cfg).Run(); err != nil {
				return err
			}
		}
		p, m, err := training.NewTrainer(cfg).Run()
		if err != nil {
			return err
		}
		logrus.WithFields(m.Fields()).WithField("run_id", p.Meta.RunID).Info("training pipeline completed")
		return nil
	},
}

func init() {
	trainCmd.Flags().BoolVar(&skipPreprocess, "skip-preprocess", false, "Reuse partitions already in paths.processed")
}
