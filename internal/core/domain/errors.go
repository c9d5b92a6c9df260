package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmbeddingUnavailable indicates the embedding provider failed or
	// is not configured. Vector search is disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorSearchUnavailable indicates nearest-neighbour search failed.
	// Vector search is mandatory for the default retrieval configuration.
	ErrVectorSearchUnavailable = errors.New("vector search unavailable")

	// ErrLexicalIndexEmpty indicates the lexical index holds no documents.
	ErrLexicalIndexEmpty = errors.New("lexical index empty")

	// ErrCacheMiss indicates a cache lookup found no live entry.
	// Not a failure: callers fall through to a fresh computation.
	ErrCacheMiss = errors.New("cache miss")
)
