// Package postgres provides the production document store backed by
// PostgreSQL with the pgvector extension for similarity search.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvector "github.com/pgvector/pgvector-go/pgx"

	"github.com/custodia-labs/cvscreener/internal/core/domain"
	"github.com/custodia-labs/cvscreener/internal/core/ports/driven"
)

// Ensure Store implements the interfaces.
var (
	_ driven.DocumentStore  = (*Store)(nil)
	_ driven.VectorSearcher = (*Store)(nil)
)

// Config holds connection settings.
type Config struct {
	// DSN is the PostgreSQL connection string (required).
	DSN string

	// Dimensions is the embedding vector size the schema is created with.
	// Must match the embedding model. Default 1536.
	Dimensions int
}

// Store persists documents and embedded chunks in PostgreSQL and answers
// nearest-neighbour queries through pgvector's cosine distance operator.
type Store struct {
	pool       *pgxpool.Pool
	dimensions int
}

// NewStore connects to PostgreSQL and ensures the schema exists.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres: DSN is required")
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = 1536
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	s := &Store{pool: pool, dimensions: cfg.Dimensions}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) ensureSchema(ctx context.Context) error {
	schema := fmt.Sprintf(`
		CREATE EXTENSION IF NOT EXISTS vector;

		CREATE TABLE IF NOT EXISTS documents (
			id SERIAL PRIMARY KEY,
			url TEXT UNIQUE NOT NULL,
			title TEXT,
			content TEXT NOT NULL,
			metadata JSONB DEFAULT '{}'::jsonb,
			content_hash TEXT,
			created_at TIMESTAMP DEFAULT NOW(),
			updated_at TIMESTAMP DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS embeddings (
			id SERIAL PRIMARY KEY,
			chunk_id TEXT UNIQUE NOT NULL,
			document_id INTEGER REFERENCES documents(id) ON DELETE CASCADE,
			chunk_index INTEGER NOT NULL,
			chunk_text TEXT NOT NULL,
			embedding vector(%d) NOT NULL,
			metadata JSONB DEFAULT '{}'::jsonb,
			created_at TIMESTAMP DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_documents_url ON documents(url);
		CREATE INDEX IF NOT EXISTS idx_documents_content_hash ON documents(content_hash);
		CREATE INDEX IF NOT EXISTS idx_embeddings_document_id ON embeddings(document_id);
		CREATE INDEX IF NOT EXISTS idx_embeddings_vector ON embeddings
			USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100);
		CREATE INDEX IF NOT EXISTS idx_embeddings_metadata ON embeddings USING gin(metadata);
	`, s.dimensions)

	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// UpsertDocument stores or updates a document keyed by URL.
func (s *Store) UpsertDocument(ctx context.Context, doc *domain.Document) (int64, error) {
	metadata, err := marshalMetadata(doc.Metadata)
	if err != nil {
		return 0, err
	}
	var id int64
	err = s.pool.QueryRow(ctx, `
		INSERT INTO documents (url, title, content, metadata, content_hash)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (url) DO UPDATE SET
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			metadata = EXCLUDED.metadata,
			content_hash = EXCLUDED.content_hash,
			updated_at = NOW()
		RETURNING id`,
		doc.URL, doc.Title, doc.Content, metadata, doc.ContentHash,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert document: %w", err)
	}
	return id, nil
}

// GetDocumentInfo returns the ID and content hash for a URL.
func (s *Store) GetDocumentInfo(ctx context.Context, url string) (*domain.DocumentInfo, error) {
	var info domain.DocumentInfo
	var hash *string
	err := s.pool.QueryRow(ctx,
		`SELECT id, content_hash FROM documents WHERE url = $1`, url,
	).Scan(&info.ID, &hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document info: %w", err)
	}
	if hash != nil {
		info.ContentHash = *hash
	}
	return &info, nil
}

// DeleteChunks removes all chunks for a document.
func (s *Store) DeleteChunks(ctx context.Context, documentID int64) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM embeddings WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	return nil
}

// InsertChunks stores chunks with embeddings for a document in one
// transaction. Chunks without an embedding are skipped.
func (s *Store) InsertChunks(ctx context.Context, documentID int64, chunks []domain.Chunk) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	inserted := 0
	for _, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			continue
		}
		metadata, err := marshalMetadata(chunk.Metadata)
		if err != nil {
			return 0, err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO embeddings (chunk_id, document_id, chunk_index, chunk_text, embedding, metadata)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			chunk.ID, documentID, chunk.Index, chunk.Content,
			pgvector.NewVector(chunk.Embedding), metadata)
		if err != nil {
			return 0, fmt.Errorf("insert chunk %s: %w", chunk.ID, err)
		}
		inserted++
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

// GetChunk retrieves a specific chunk by ID, hydrated with its document
// title and URL.
func (s *Store) GetChunk(ctx context.Context, id string) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var metadata []byte
	var title *string
	err := s.pool.QueryRow(ctx, `
		SELECT e.chunk_id, e.chunk_index, e.chunk_text, e.metadata, d.url, d.title
		FROM embeddings e
		JOIN documents d ON e.document_id = d.id
		WHERE e.chunk_id = $1`, id,
	).Scan(&chunk.ID, &chunk.Index, &chunk.Content, &metadata, &chunk.DocumentURL, &title)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get chunk: %w", err)
	}
	if title != nil {
		chunk.Title = *title
	}
	if chunk.Metadata, err = unmarshalMetadata(metadata); err != nil {
		return nil, err
	}
	return &chunk, nil
}

// LoadCorpus returns every stored chunk without embeddings, ordered by
// document and chunk index.
func (s *Store) LoadCorpus(ctx context.Context) ([]domain.Chunk, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT e.chunk_id, e.chunk_index, e.chunk_text, e.metadata, d.url, d.title
		FROM embeddings e
		JOIN documents d ON e.document_id = d.id
		ORDER BY d.url, e.chunk_index`)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	defer rows.Close()

	var out []domain.Chunk
	for rows.Next() {
		var chunk domain.Chunk
		var metadata []byte
		var title *string
		if err := rows.Scan(&chunk.ID, &chunk.Index, &chunk.Content, &metadata,
			&chunk.DocumentURL, &title); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		if title != nil {
			chunk.Title = *title
		}
		if chunk.Metadata, err = unmarshalMetadata(metadata); err != nil {
			return nil, err
		}
		out = append(out, chunk)
	}
	return out, rows.Err()
}

// DocumentCount returns the number of stored documents.
func (s *Store) DocumentCount(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// ChunkCount returns the number of stored chunks.
func (s *Store) ChunkCount(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM embeddings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

// NearestNeighbors finds the k chunks closest to the query vector by cosine
// distance, hydrated with their document fields.
func (s *Store) NearestNeighbors(ctx context.Context, embedding []float32, k int) ([]driven.VectorHit, error) {
	vec := pgvector.NewVector(embedding)
	rows, err := s.pool.Query(ctx, `
		SELECT e.chunk_id, e.chunk_text, e.metadata, d.url, d.title,
		       1 - (e.embedding <=> $1) AS similarity
		FROM embeddings e
		JOIN documents d ON e.document_id = d.id
		ORDER BY e.embedding <=> $1
		LIMIT $2`, vec, k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var hits []driven.VectorHit
	for rows.Next() {
		var hit driven.VectorHit
		var metadata []byte
		var title *string
		if err := rows.Scan(&hit.ChunkID, &hit.Content, &metadata,
			&hit.URL, &title, &hit.Similarity); err != nil {
			return nil, fmt.Errorf("scan hit: %w", err)
		}
		if title != nil {
			hit.Title = *title
		}
		if hit.Metadata, err = unmarshalMetadata(metadata); err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

func marshalMetadata(m map[string]any) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return raw, nil
}

func unmarshalMetadata(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return m, nil
}
