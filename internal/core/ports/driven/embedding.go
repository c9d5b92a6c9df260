package driven

import "context"

// Embedder generates vector embeddings from text.
//
// Note: this is separate from VectorSearcher, which searches stored vectors.
// Embedder generates vectors; VectorSearcher queries them.
//
// Implementations may include:
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Compatible inference servers behind the same API
type Embedder interface {
	// Embed generates a vector embedding for a single query text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts efficiently.
	// Used during ingestion; more efficient than calling Embed in a loop.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 1536, 3072).
	// This must match the vector column dimension in the document store.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string
}
