package serve

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are the inference endpoint's Prometheus collectors, registered on a
// dedicated registry.
type Metrics struct {
	Predictions *prometheus.CounterVec
	Errors      *prometheus.CounterVec
	Reloads     *prometheus.CounterVec
	Latency     prometheus.Histogram

	registry *prometheus.Registry
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Predictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "predict_mlops_predictions_total",
				Help: "Predictions served, by predicted label",
			},
			[]string{"label"},
		),
		Errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "predict_mlops_prediction_errors_total",
				Help: "Failed prediction requests, by error kind",
			},
			[]string{"kind"},
		),
		Reloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "predict_mlops_model_reloads_total",
				Help: "Model reload attempts, by status",
			},
			[]string{"status"},
		),
		Latency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "predict_mlops_prediction_duration_seconds",
				Help:    "Time to coerce inputs and run the model",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
		),
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(m.Predictions, m.Errors, m.Reloads, m.Latency)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
