package logic

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics
var (
	sourceLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medal_forecast_source_loads_total",
		Help: "Source load cycles by outcome",
	}, []string{"outcome"})

	loadedEntities = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "medal_forecast_entities",
		Help: "Entities with feature vectors in the current load cycle",
	})

	forecastRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medal_forecast_runs_total",
		Help: "Forecast runs by requested mode and outcome",
	}, []string{"mode", "outcome"})

	inferenceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "medal_forecast_inference_duration_seconds",
		Help:    "Duration of model inference calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"path"})

	classifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medal_forecast_classifications_total",
		Help: "Classification requests by outcome",
	}, []string{"outcome"})
)
