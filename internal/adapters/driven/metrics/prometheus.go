// Package metrics provides the Prometheus implementation of the pipeline
// metrics port.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/custodia-labs/cvscreener/internal/core/ports/driven"
)

// Ensure PrometheusMetrics implements the interface.
var _ driven.Metrics = (*PrometheusMetrics)(nil)

// PrometheusMetrics records pipeline signals as Prometheus collectors.
// Recording never fails; collector errors surface at scrape time.
type PrometheusMetrics struct {
	requests      *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter
	retrievalSize prometheus.Histogram
	similarity    prometheus.Histogram
	tokens        *prometheus.CounterVec
	errors        *prometheus.CounterVec
}

// NewPrometheusMetrics creates and registers the collectors. registry may
// be nil to use the default registry.
func NewPrometheusMetrics(registry prometheus.Registerer) *PrometheusMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	m := &PrometheusMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rag_requests_total",
			Help: "Completed queries by status.",
		}, []string{"status"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rag_request_duration_seconds",
			Help:    "Duration of pipeline stages.",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rag_cache_hits_total",
			Help: "Responses served from the cache.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rag_cache_misses_total",
			Help: "Cache lookups that fell through to the pipeline.",
		}),
		retrievalSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rag_retrieval_results",
			Help:    "Number of chunks returned per retrieval.",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 20},
		}),
		similarity: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rag_retrieval_similarity",
			Help:    "Similarity scores of retrieved chunks.",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rag_tokens_total",
			Help: "Token usage by type.",
		}, []string{"type"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rag_errors_total",
			Help: "Pipeline errors by kind.",
		}, []string{"type"}),
	}
	registry.MustRegister(
		m.requests, m.stageDuration, m.cacheHits, m.cacheMisses,
		m.retrievalSize, m.similarity, m.tokens, m.errors,
	)
	return m
}

// RecordRequest counts a completed query by status.
func (m *PrometheusMetrics) RecordRequest(status string) {
	m.requests.WithLabelValues(status).Inc()
}

// ObserveStage records one pipeline stage duration.
func (m *PrometheusMetrics) ObserveStage(stage string, d time.Duration) {
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordCacheHit counts a response served from cache.
func (m *PrometheusMetrics) RecordCacheHit() {
	m.cacheHits.Inc()
}

// RecordCacheMiss counts a cache lookup that fell through.
func (m *PrometheusMetrics) RecordCacheMiss() {
	m.cacheMisses.Inc()
}

// RecordRetrieval records the result count and similarities of one pass.
func (m *PrometheusMetrics) RecordRetrieval(count int, similarities []float64) {
	m.retrievalSize.Observe(float64(count))
	for _, s := range similarities {
		m.similarity.Observe(s)
	}
}

// RecordTokens counts prompt and completion token usage.
func (m *PrometheusMetrics) RecordTokens(prompt, completion int) {
	m.tokens.WithLabelValues("prompt").Add(float64(prompt))
	m.tokens.WithLabelValues("completion").Add(float64(completion))
}

// RecordError counts an error by kind.
func (m *PrometheusMetrics) RecordError(kind string) {
	m.errors.WithLabelValues(kind).Inc()
}
