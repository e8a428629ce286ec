package metrics

import (
	"MomentumScreener/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	outcomes       *prometheus.CounterVec
	providerErrors *prometheus.CounterVec
	runs           prometheus.Counter
	lastRun        *prometheus.GaugeVec
	runDuration    prometheus.Histogram
	latency        *prometheus.HistogramVec
	cacheLookups   *prometheus.CounterVec
}

// New creates a recorder registered on reg, or on the default registry when reg is nil.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		outcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "screener_outcomes_total",
				Help: "Screened symbols by category and rejection reason",
			},
			[]string{"category", "reason"},
		),
		providerErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "screener_provider_errors_total",
				Help: "Failed provider calls",
			},
			[]string{"provider", "op"},
		),
		runs: f.NewCounter(prometheus.CounterOpts{
			Name: "screener_runs_total",
			Help: "Completed screening runs",
		}),
		lastRun: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "screener_last_run_symbols",
				Help: "Symbol counts of the most recent run",
			},
			[]string{"bucket"},
		),
		runDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "screener_run_duration_seconds",
			Help:    "Wall time of a screening run",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "screener_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "screener_cache_lookups_total",
				Help: "Provider cache lookups by data kind and result",
			},
			[]string{"kind", "result"},
		),
	}
}

// RecordOutcome counts one classified symbol. Accepted outcomes carry an empty reason.
func (r *Recorder) RecordOutcome(category models.Category, reason string) {
	r.outcomes.WithLabelValues(string(category), reason).Inc()
}

// RecordProviderError counts a failed provider call.
func (r *Recorder) RecordProviderError(provider, op string) {
	r.providerErrors.WithLabelValues(provider, op).Inc()
}

// RecordRun records the shape and duration of a completed run.
func (r *Recorder) RecordRun(evaluated, topTier, emerging int, seconds float64) {
	r.runs.Inc()
	r.lastRun.WithLabelValues("evaluated").Set(float64(evaluated))
	r.lastRun.WithLabelValues("top_tier").Set(float64(topTier))
	r.lastRun.WithLabelValues("emerging").Set(float64(emerging))
	r.runDuration.Observe(seconds)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordCacheLookup counts a provider cache hit or miss.
func (r *Recorder) RecordCacheLookup(kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(kind, result).Inc()
}
