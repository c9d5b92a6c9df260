package driven

import "time"

// Metrics records pipeline observability signals. Implementations must be
// safe for concurrent use and must never return errors to the pipeline:
// recording is strictly best-effort.
type Metrics interface {
	// RecordRequest counts a completed query with status "success" or "error".
	RecordRequest(status string)

	// ObserveStage records the duration of one pipeline stage
	// (retrieval, prompt, generation, validation).
	ObserveStage(stage string, d time.Duration)

	// RecordCacheHit counts a response served from cache.
	RecordCacheHit()

	// RecordCacheMiss counts a cache lookup that fell through.
	RecordCacheMiss()

	// RecordRetrieval records the result count and similarity scores of
	// one retrieval pass.
	RecordRetrieval(count int, similarities []float64)

	// RecordTokens counts prompt and completion token usage.
	RecordTokens(prompt, completion int)

	// RecordError counts an error by kind.
	RecordError(kind string)
}
