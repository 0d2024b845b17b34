package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	providerCalls   *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	budgetExhausted *prometheus.CounterVec
	scanDuration    *prometheus.HistogramVec
	stageCandidates *prometheus.GaugeVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		providerCalls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketscan_provider_calls_total",
				Help: "Provider calls by outcome (ok, error, rate_limited, auth_error, insufficient)",
			},
			[]string{"provider", "outcome"},
		),
		cacheHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketscan_cache_hits_total",
				Help: "Enrichment requests served from cache",
			},
			[]string{"category"},
		),
		budgetExhausted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketscan_budget_exhausted_total",
				Help: "Scans whose resource budget ran out, by pipeline phase",
			},
			[]string{"phase"},
		),
		scanDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marketscan_scan_duration_seconds",
				Help:    "End-to-end scan duration by kind",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		stageCandidates: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "marketscan_stage_candidates",
				Help: "Candidates surviving each pipeline stage of the latest scan",
			},
			[]string{"stage"},
		),
	}
}

// RecordProviderCall records one provider call and its outcome.
func (r *Recorder) RecordProviderCall(provider, outcome string) {
	r.providerCalls.WithLabelValues(provider, outcome).Inc()
}

// RecordCacheHit records an enrichment served from cache.
func (r *Recorder) RecordCacheHit(category string) {
	r.cacheHits.WithLabelValues(category).Inc()
}

// RecordBudgetExhausted records a budget running out in a pipeline phase.
func (r *Recorder) RecordBudgetExhausted(phase string) {
	r.budgetExhausted.WithLabelValues(phase).Inc()
}

// RecordScan records an end-to-end scan duration.
func (r *Recorder) RecordScan(kind string, seconds float64) {
	r.scanDuration.WithLabelValues(kind).Observe(seconds)
}

// RecordStageCount records how many candidates survived a stage.
func (r *Recorder) RecordStageCount(stage string, n int) {
	r.stageCandidates.WithLabelValues(stage).Set(float64(n))
}
