package domain

// RetrievedResult is a chunk annotated with retrieval-time signals.
// Results are created fresh for every query and never persisted.
type RetrievedResult struct {
	// ChunkID identifies the underlying chunk.
	ChunkID string

	// Content is the chunk text.
	Content string

	// Title is the owning document title.
	Title string

	// URL is the owning document locator.
	URL string

	// Metadata is the chunk metadata.
	Metadata map[string]any

	// VectorScore is the raw cosine similarity (0-1).
	// Only meaningful when HasVectorScore is true.
	VectorScore float64

	// HasVectorScore reports whether vector search produced this result.
	HasVectorScore bool

	// LexicalScore is the raw keyword relevance (BM25).
	// Only meaningful when HasLexicalScore is true.
	LexicalScore float64

	// HasLexicalScore reports whether lexical search produced this result.
	HasLexicalScore bool

	// VectorScoreNorm is VectorScore min-max scaled to [0,1] within one
	// retrieval batch. Zero when the chunk was not found by vector search.
	VectorScoreNorm float64

	// LexicalScoreNorm is LexicalScore min-max scaled to [0,1] within one
	// retrieval batch. Zero when the chunk was not found by lexical search.
	LexicalScoreNorm float64

	// HybridScore is alpha*VectorScoreNorm + (1-alpha)*LexicalScoreNorm.
	HybridScore float64
}

// Similarity returns the score to expose to callers: the raw vector
// similarity when present, otherwise the hybrid score.
func (r *RetrievedResult) Similarity() float64 {
	if r.HasVectorScore {
		return r.VectorScore
	}
	return r.HybridScore
}
