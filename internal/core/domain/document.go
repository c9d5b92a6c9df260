package domain

import "time"

// Document represents an ingested resume with metadata.
// It is the canonical representation after PDF text extraction.
type Document struct {
	// ID is the store-assigned identifier (zero until persisted).
	ID int64

	// URL is the stable document locator, e.g. "cv://cv-01-jane-doe".
	URL string

	// Title is the human-readable title, usually the candidate name.
	Title string

	// Content is the full extracted text before chunking.
	Content string

	// Metadata contains arbitrary key-value pairs (source file, page count, ...).
	Metadata map[string]any

	// ContentHash is a digest of Content used for idempotent re-ingestion.
	// Identical hash means the document is unchanged and can be skipped.
	ContentHash string

	// CreatedAt is when the document was first ingested.
	CreatedAt time.Time

	// UpdatedAt is when the document was last re-ingested.
	UpdatedAt time.Time
}

// DocumentInfo is the minimal document record used for change detection.
type DocumentInfo struct {
	ID          int64
	ContentHash string
}

// Chunk represents a retrievable unit within a document.
// Documents are split into chunks sized for embedding.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentURL links to the owning Document.
	DocumentURL string

	// Title is the owning document title, carried for result rendering.
	Title string

	// Content is the text content of this chunk.
	Content string

	// Index is the ordinal position within the document.
	Index int

	// Embedding is the vector representation for semantic search.
	// Its dimension is fixed by the embedding model at ingestion time.
	Embedding []float32

	// Metadata contains chunk-specific key-value pairs, including
	// "chunk_index" and "total_chunks".
	Metadata map[string]any
}
