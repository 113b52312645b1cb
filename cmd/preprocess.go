package cmd

import (
	"github.com/spf13/cobra"

	"github.com/manjudata/predict-mlops/pkg/training"
)

// preprocessCmd transforms the raw CSV and writes the train/test partitions
var preprocessCmd = &cobra.Command{
	Use:   "preprocess",
	Short: "Transform raw vehicle data and write train/test partitions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		_, err = training.NewProcessor(cfg).Run()
		return err
	},
}
