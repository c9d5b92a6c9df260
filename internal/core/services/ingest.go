package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/cvscreener/internal/core/domain"
	"github.com/custodia-labs/cvscreener/internal/core/ports/driven"
	"github.com/custodia-labs/cvscreener/internal/core/ports/driving"
	"github.com/custodia-labs/cvscreener/internal/logger"
)

// Ensure Ingester implements the interface.
var _ driving.IngestService = (*Ingester)(nil)

// DocumentChunker splits a document into retrievable chunks.
// Satisfied by chunker.Chunker.
type DocumentChunker interface {
	ChunkDocument(doc *domain.Document) []domain.Chunk
}

// IngestConfig controls one ingestion run.
type IngestConfig struct {
	// EmbedBatchSize is the number of chunk texts sent per embedding call.
	EmbedBatchSize int
}

// Ingester loads resumes, splits them into chunks, embeds the chunks and
// persists everything in the document store. Re-ingestion is idempotent:
// documents whose content hash is unchanged are skipped unless forced.
type Ingester struct {
	loader   driven.ResumeLoader
	chunker  DocumentChunker
	embedder driven.Embedder
	store    driven.DocumentStore
	lexical  driven.LexicalIndex
	cfg      IngestConfig
	log      logger.Logger
}

// NewIngester creates an ingester. lexical may be nil; when present its
// index is refreshed after a run that stored new chunks.
func NewIngester(
	loader driven.ResumeLoader,
	chunker DocumentChunker,
	embedder driven.Embedder,
	store driven.DocumentStore,
	lexical driven.LexicalIndex,
	cfg IngestConfig,
	log logger.Logger,
) *Ingester {
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = 100
	}
	if log == nil {
		log = logger.Default()
	}
	return &Ingester{
		loader:   loader,
		chunker:  chunker,
		embedder: embedder,
		store:    store,
		lexical:  lexical,
		cfg:      cfg,
		log:      log,
	}
}

// Run executes one ingestion pass over the feed. One failing document is
// logged and counted; the run proceeds with the rest.
func (s *Ingester) Run(ctx context.Context, force bool) (*driving.IngestReport, error) {
	docs, err := s.loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load resumes: %w", err)
	}

	report := &driving.IngestReport{DocumentsSeen: len(docs)}
	for i := range docs {
		doc := &docs[i]
		switch created, embedded, err := s.ingestDocument(ctx, doc, force); {
		case err == errUnchanged:
			report.DocumentsSkipped++
			s.log.Debug("document unchanged, skipping", "url", doc.URL)
		case err != nil:
			report.DocumentsFailed++
			s.log.Error("document ingestion failed", "url", doc.URL, "error", err)
		default:
			report.ChunksCreated += created
			report.ChunksEmbedded += embedded
			s.log.Info("document ingested", "url", doc.URL, "chunks", created)
		}
	}

	if s.lexical != nil && report.ChunksEmbedded > 0 {
		if err := s.lexical.Refresh(ctx); err != nil {
			s.log.Warn("lexical index refresh failed", "error", err)
		}
	}

	s.log.Info("ingestion run complete",
		"seen", report.DocumentsSeen,
		"skipped", report.DocumentsSkipped,
		"failed", report.DocumentsFailed,
		"chunks", report.ChunksEmbedded)
	return report, nil
}

// errUnchanged is an internal sentinel for the unchanged-hash skip path.
var errUnchanged = errors.New("document content unchanged")

func (s *Ingester) ingestDocument(ctx context.Context, doc *domain.Document, force bool) (created, embedded int, err error) {
	info, err := s.store.GetDocumentInfo(ctx, doc.URL)
	switch {
	case err == nil:
		if !force && info.ContentHash == doc.ContentHash {
			return 0, 0, errUnchanged
		}
	case errors.Is(err, domain.ErrNotFound):
		// First ingestion of this document.
	default:
		return 0, 0, fmt.Errorf("lookup document: %w", err)
	}

	chunks := s.chunker.ChunkDocument(doc)
	if len(chunks) == 0 {
		return 0, 0, fmt.Errorf("no chunks produced")
	}

	if err := s.embedChunks(ctx, chunks); err != nil {
		return 0, 0, err
	}

	docID, err := s.store.UpsertDocument(ctx, doc)
	if err != nil {
		return 0, 0, fmt.Errorf("upsert document: %w", err)
	}
	// Replace rather than merge: stale chunks from a previous version
	// must not survive a re-ingestion.
	if err := s.store.DeleteChunks(ctx, docID); err != nil {
		return 0, 0, fmt.Errorf("delete stale chunks: %w", err)
	}
	n, err := s.store.InsertChunks(ctx, docID, chunks)
	if err != nil {
		return 0, 0, fmt.Errorf("insert chunks: %w", err)
	}
	return len(chunks), n, nil
}

// embedChunks fills chunk embeddings in batches.
func (s *Ingester) embedChunks(ctx context.Context, chunks []domain.Chunk) error {
	for start := 0; start < len(chunks); start += s.cfg.EmbedBatchSize {
		end := start + s.cfg.EmbedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Content)
		}
		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed batch at %d: %w", start, err)
		}
		if len(vectors) != len(texts) {
			return fmt.Errorf("embed batch at %d: got %d vectors for %d texts", start, len(vectors), len(texts))
		}
		for i, v := range vectors {
			chunks[start+i].Embedding = v
		}
	}
	return nil
}

// Stats returns corpus counts from the document store.
func (s *Ingester) Stats(ctx context.Context) (*driving.CorpusStats, error) {
	docCount, err := s.store.DocumentCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	chunkCount, err := s.store.ChunkCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("count chunks: %w", err)
	}
	return &driving.CorpusStats{Documents: docCount, Chunks: chunkCount}, nil
}
