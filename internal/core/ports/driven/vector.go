package driven

import "context"

// VectorSearcher provides semantic similarity search over stored chunk
// embeddings. Backed by pgvector in production, brute-force cosine in tests.
type VectorSearcher interface {
	// NearestNeighbors finds the k chunks closest to the query vector,
	// ordered by descending cosine similarity.
	NearestNeighbors(ctx context.Context, embedding []float32, k int) ([]VectorHit, error)
}

// VectorHit represents a similarity search result, hydrated with the chunk
// text and owning document fields.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Content is the chunk text.
	Content string

	// Title is the owning document title.
	Title string

	// URL is the owning document locator.
	URL string

	// Metadata is the chunk metadata.
	Metadata map[string]any

	// Similarity is the cosine similarity score (0-1).
	Similarity float64
}
