package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/manjudata/predict-mlops/pkg/serve"
)

// serveCmd starts the prediction web form
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the prediction form for the trained model (SIGHUP reloads the model)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		pred, err := serve.LoadPredictor(cfg.Paths.Model, cfg.Serving.MissingValues, serve.NewMetrics())
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)
		go pred.ReloadOn(ctx, cfg.Paths.Model, hup)

		return serve.NewServer(pred, cfg.Serving).Run(ctx)
	},
}
