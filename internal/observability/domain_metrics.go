package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Cache event labels.
const (
	CacheHit     = "hit"
	CacheMiss    = "miss"
	CacheExpired = "expired"
)

var (
	asksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querypilot_asks_total",
			Help: "Total orchestrator runs by terminal status.",
		},
		[]string{"status"},
	)
	askDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "querypilot_ask_duration_seconds",
			Help:    "End-to-end orchestrator run duration in seconds.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 60},
		},
	)
	improvementCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "querypilot_improvement_cycles_total",
			Help: "Total improvement cycles taken across all runs.",
		},
	)
	modelCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querypilot_model_calls_total",
			Help: "Total model completion calls by backend and outcome.",
		},
		[]string{"backend", "outcome"},
	)
	cacheEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querypilot_cache_events_total",
			Help: "Response cache lookups by event (hit, miss, expired).",
		},
		[]string{"event"},
	)
	executionDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "querypilot_execution_duration_seconds",
			Help:    "SQL execution duration by source.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"source"},
	)
)

func init() {
	prometheus.MustRegister(
		asksTotal,
		askDurationSeconds,
		improvementCyclesTotal,
		modelCallsTotal,
		cacheEventsTotal,
		executionDurationSeconds,
	)
}

func ObserveRun(status string, elapsed time.Duration) {
	asksTotal.WithLabelValues(status).Inc()
	askDurationSeconds.Observe(elapsed.Seconds())
}

func IncrementImprovementCycles() {
	improvementCyclesTotal.Inc()
}

func ObserveModelCall(backend string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	modelCallsTotal.WithLabelValues(backend, outcome).Inc()
}

func IncrementCacheEvent(event string) {
	cacheEventsTotal.WithLabelValues(event).Inc()
}

func ObserveExecution(source string, elapsed time.Duration) {
	executionDurationSeconds.WithLabelValues(source).Observe(elapsed.Seconds())
}
