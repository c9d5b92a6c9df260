package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusMetrics_Counters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewPrometheusMetrics(registry)

	m.RecordRequest("success")
	m.RecordRequest("success")
	m.RecordRequest("error")
	m.RecordCacheHit()
	m.RecordCacheMiss()
	m.RecordCacheMiss()
	m.RecordTokens(100, 20)
	m.RecordError("generation")

	assert.InDelta(t, 2, testutil.ToFloat64(m.requests.WithLabelValues("success")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(m.requests.WithLabelValues("error")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(m.cacheHits), 1e-9)
	assert.InDelta(t, 2, testutil.ToFloat64(m.cacheMisses), 1e-9)
	assert.InDelta(t, 100, testutil.ToFloat64(m.tokens.WithLabelValues("prompt")), 1e-9)
	assert.InDelta(t, 20, testutil.ToFloat64(m.tokens.WithLabelValues("completion")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(m.errors.WithLabelValues("generation")), 1e-9)
}

func TestPrometheusMetrics_Observations(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewPrometheusMetrics(registry)

	m.ObserveStage("retrieval", 50*time.Millisecond)
	m.RecordRetrieval(3, []float64{0.9, 0.7, 0.4})

	families, err := registry.Gather()
	assert.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["rag_request_duration_seconds"])
	assert.True(t, names["rag_retrieval_results"])
	assert.True(t, names["rag_retrieval_similarity"])
}
