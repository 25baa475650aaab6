package triage

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the triage subsystem.
type Metrics struct {
	PredictionsTotal   *prometheus.CounterVec
	PredictionErrors   *prometheus.CounterVec
	PredictionDuration prometheus.Histogram
	StageDuration      *prometheus.HistogramVec
	PrimaryConfidence  prometheus.Histogram
	LowConfidenceTotal prometheus.Counter
	BatchItems         prometheus.Histogram
	StoreFailures      prometheus.Counter
	NotifyFailures     prometheus.Counter
}

// NewMetrics registers and returns triage metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PredictionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sift_predictions_total",
			Help: "Total completed predictions by primary category.",
		}, []string{"category"}),
		PredictionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sift_prediction_errors_total",
			Help: "Total failed predictions by pipeline stage.",
		}, []string{"stage"}),
		PredictionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sift_prediction_duration_seconds",
			Help:    "End-to-end prediction duration in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms .. ~20s
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sift_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms .. ~4s
		}, []string{"stage"}),
		PrimaryConfidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sift_primary_confidence",
			Help:    "Confidence of the top-ranked category per prediction.",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11), // 0 .. 1
		}),
		LowConfidenceTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sift_low_confidence_total",
			Help: "Predictions whose primary confidence fell below the low tier.",
		}),
		BatchItems: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sift_batch_items",
			Help:    "Items per batch prediction request.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1 .. 512
		}),
		StoreFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sift_store_failures_total",
			Help: "Prediction history writes that failed.",
		}),
		NotifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sift_notify_failures_total",
			Help: "Low-confidence notifications that failed.",
		}),
	}

	reg.MustRegister(
		m.PredictionsTotal,
		m.PredictionErrors,
		m.PredictionDuration,
		m.StageDuration,
		m.PrimaryConfidence,
		m.LowConfidenceTotal,
		m.BatchItems,
		m.StoreFailures,
		m.NotifyFailures,
	)

	return m
}

// Hooks returns an EngineHooks that records the corresponding metrics.
func (m *Metrics) Hooks() EngineHooks {
	return EngineHooks{
		OnStage: func(stage string, seconds float64) {
			m.StageDuration.WithLabelValues(stage).Observe(seconds)
		},
		OnComplete: func(category string, confidence, seconds float64) {
			m.PredictionsTotal.WithLabelValues(category).Inc()
			m.PrimaryConfidence.Observe(confidence)
			m.PredictionDuration.Observe(seconds)
		},
		OnError: func(stage string) {
			m.PredictionErrors.WithLabelValues(stage).Inc()
		},
	}
}
