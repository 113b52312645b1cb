package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/manjudata/predict-mlops/pkg/config"
)

var (
	configPath string // Path to a YAML config file
	logLevel   string // Log verbosity level, overrides logging.level
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:           "predict-mlops",
	Short:         "Vehicle predictive-maintenance training pipeline and prediction server",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// loadConfig reads the config and sets up logging from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	logrus.SetLevel(lvl)
	if cfg.Logging.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return cfg, nil
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Error("command failed")
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ./config.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "", "Log level (trace, debug, info, warn, error, fatal, panic)")

	rootCmd.AddCommand(preprocessCmd, trainCmd, serveCmd)
}
