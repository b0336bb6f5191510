package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	forecastsStored = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smartcare_forecast_rows_stored_total",
		Help: "Total number of forecast rows upserted.",
	}, []string{"task"})
	forecastsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smartcare_forecast_failures_total",
		Help: "Total number of entities whose forecast failed.",
	}, []string{"task", "reason"})
	naiveFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smartcare_forecast_naive_fallbacks_total",
		Help: "Total number of forecasts served by the naive fallback.",
	}, []string{"task"})
	clamps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smartcare_forecast_clamps_total",
		Help: "Total number of forecast points whose p10/yhat/p90 had to be reordered.",
	})
	alertsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smartcare_alerts_published_total",
		Help: "Total number of alert summaries published to Redis.",
	})
	metricsStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smartcare_model_metrics_stored_total",
		Help: "Total number of model metric rows upserted.",
	})
	evaluationsDeferred = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smartcare_evaluations_deferred_total",
		Help: "Total number of facility evaluations deferred for missing actuals.",
	})
	facilityDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "smartcare_facility_run_duration_seconds",
		Help:    "Duration of one facility's forecast run.",
		Buckets: []float64{0.05, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0},
	})
)
