package httpapi

import (
	"sync"
	"time"
)

// defaultTraceCap bounds the trace history exposed on /stats.
const defaultTraceCap = 100

// PipelineTrace records the outcome of one query request.
type PipelineTrace struct {
	Time      time.Time     `json:"time"`
	Question  string        `json:"question"`
	Status    string        `json:"status"`
	FromCache bool          `json:"from_cache"`
	Retrieved int           `json:"retrieved"`
	Duration  time.Duration `json:"duration_ms"`
}

// traceRing keeps the most recent traces, oldest evicted first.
type traceRing struct {
	mu     sync.Mutex
	traces []PipelineTrace
	cap    int
}

func newTraceRing(capacity int) *traceRing {
	if capacity <= 0 {
		capacity = defaultTraceCap
	}
	return &traceRing{cap: capacity}
}

func (r *traceRing) Add(t PipelineTrace) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.traces = append(r.traces, t)
	if len(r.traces) > r.cap {
		r.traces = r.traces[len(r.traces)-r.cap:]
	}
}

// Recent returns the retained traces, newest last.
func (r *traceRing) Recent() []PipelineTrace {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]PipelineTrace, len(r.traces))
	copy(out, r.traces)
	return out
}
