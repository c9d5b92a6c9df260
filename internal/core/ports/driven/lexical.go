package driven

import "context"

// LexicalIndex provides keyword relevance scoring over the chunk corpus.
// Backed by an in-memory BM25 index rebuilt from the document store.
type LexicalIndex interface {
	// Score returns chunk IDs mapped to their keyword relevance for the
	// query. Chunks with zero score are excluded.
	Score(ctx context.Context, query string) (map[string]float64, error)

	// Refresh rebuilds the index from the full corpus to pick up newly
	// ingested chunks. Rebuild cost is O(corpus size).
	Refresh(ctx context.Context) error

	// Len returns the number of indexed chunks. Zero means the index has
	// not been built yet.
	Len() int
}
