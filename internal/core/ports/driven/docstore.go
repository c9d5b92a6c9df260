package driven

import (
	"context"

	"github.com/custodia-labs/cvscreener/internal/core/domain"
)

// DocumentStore persists documents and their embedded chunks.
// Backed by PostgreSQL with pgvector for production, in-memory for tests.
type DocumentStore interface {
	// UpsertDocument stores or updates a document keyed by URL and returns
	// the store-assigned document ID.
	UpsertDocument(ctx context.Context, doc *domain.Document) (int64, error)

	// GetDocumentInfo returns the ID and content hash for a URL, or
	// domain.ErrNotFound when the document has never been ingested.
	GetDocumentInfo(ctx context.Context, url string) (*domain.DocumentInfo, error)

	// DeleteChunks removes all chunks for a document before re-ingestion.
	DeleteChunks(ctx context.Context, documentID int64) error

	// InsertChunks stores chunks with their embeddings for a document and
	// returns the number inserted. Chunks without an embedding are skipped.
	InsertChunks(ctx context.Context, documentID int64, chunks []domain.Chunk) (int, error)

	// GetChunk retrieves a specific chunk by ID.
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)

	// LoadCorpus returns every stored chunk, without embeddings.
	// Used to (re)build the lexical index.
	LoadCorpus(ctx context.Context) ([]domain.Chunk, error)

	// DocumentCount returns the number of stored documents.
	DocumentCount(ctx context.Context) (int, error)

	// ChunkCount returns the number of stored chunks.
	ChunkCount(ctx context.Context) (int, error)
}
