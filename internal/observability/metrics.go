package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	classificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ecotrack",
		Subsystem: "archetype",
		Name:      "classifications_total",
		Help:      "Archetype classifications served, labeled by archetype.",
	}, []string{"archetype"})
	modelLoadedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ecotrack",
		Subsystem: "archetype",
		Name:      "model_loaded",
		Help:      "Whether an archetype model is currently published (1) or not (0).",
	})
	modelTrainedAtGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ecotrack",
		Subsystem: "archetype",
		Name:      "model_trained_at_timestamp_seconds",
		Help:      "Unix timestamp of the published model's training run.",
	})
	estimateFallbacksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ecotrack",
		Subsystem: "emissions",
		Name:      "climatiq_fallbacks_total",
		Help:      "Estimates served by the local factor catalog after a Climatiq failure.",
	})
	activityLoggedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ecotrack",
		Subsystem: "persistence",
		Name:      "last_activity_logged_timestamp_seconds",
		Help:      "Unix timestamp of the most recent activity persisted to Postgres.",
	})
	geminiCallsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ecotrack",
		Subsystem: "gemini",
		Name:      "calls_total",
		Help:      "Gemini API calls, labeled by operation and outcome.",
	}, []string{"operation", "status"})
)

func init() {
	prometheus.MustRegister(
		classificationsTotal,
		modelLoadedGauge,
		modelTrainedAtGauge,
		estimateFallbacksTotal,
		activityLoggedGauge,
		geminiCallsTotal,
	)
}

// RecordClassification counts one served archetype classification.
func RecordClassification(archetype string) {
	if archetype == "" {
		archetype = "unknown"
	}
	classificationsTotal.WithLabelValues(archetype).Inc()
}

// RecordModelPublished updates the model availability gauges.
func RecordModelPublished(trainedAt time.Time) {
	modelLoadedGauge.Set(1)
	if !trainedAt.IsZero() {
		modelTrainedAtGauge.Set(float64(trainedAt.Unix()))
	}
}

// RecordEstimateFallback counts one estimate that fell back to the local catalog.
func RecordEstimateFallback() {
	estimateFallbacksTotal.Inc()
}

// RecordActivityLogged updates the persistence watermark gauge.
func RecordActivityLogged(ts time.Time) {
	if ts.IsZero() {
		return
	}
	activityLoggedGauge.Set(float64(ts.Unix()))
}

// RecordGeminiCall counts one Gemini API call.
func RecordGeminiCall(operation string, success bool) {
	status := "ok"
	if !success {
		status = "error"
	}
	geminiCallsTotal.WithLabelValues(operation, status).Inc()
}
