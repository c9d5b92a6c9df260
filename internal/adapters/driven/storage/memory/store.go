// Package memory provides an in-memory document store with brute-force
// vector search. Used in tests and for small corpora without PostgreSQL.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/cvscreener/internal/core/domain"
	"github.com/custodia-labs/cvscreener/internal/core/ports/driven"
)

// Ensure Store implements the interfaces.
var (
	_ driven.DocumentStore  = (*Store)(nil)
	_ driven.VectorSearcher = (*Store)(nil)
)

type documentRecord struct {
	doc    domain.Document
	chunks []domain.Chunk
}

// Store is an in-memory implementation of the document store and vector
// searcher. Safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	byID   map[int64]*documentRecord
	byURL  map[string]int64
	nextID int64
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		byID:   make(map[int64]*documentRecord),
		byURL:  make(map[string]int64),
		nextID: 1,
	}
}

// UpsertDocument stores or updates a document keyed by URL.
func (s *Store) UpsertDocument(_ context.Context, doc *domain.Document) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byURL[doc.URL]
	if !ok {
		id = s.nextID
		s.nextID++
		s.byURL[doc.URL] = id
		s.byID[id] = &documentRecord{}
	}
	stored := *doc
	stored.ID = id
	s.byID[id].doc = stored
	return id, nil
}

// GetDocumentInfo returns the ID and content hash for a URL.
func (s *Store) GetDocumentInfo(_ context.Context, url string) (*domain.DocumentInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byURL[url]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &domain.DocumentInfo{ID: id, ContentHash: s.byID[id].doc.ContentHash}, nil
}

// DeleteChunks removes all chunks for a document.
func (s *Store) DeleteChunks(_ context.Context, documentID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.byID[documentID]; ok {
		rec.chunks = nil
	}
	return nil
}

// InsertChunks stores chunks with embeddings for a document. Chunks without
// an embedding are skipped.
func (s *Store) InsertChunks(_ context.Context, documentID int64, chunks []domain.Chunk) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[documentID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	n := 0
	for _, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			continue
		}
		rec.chunks = append(rec.chunks, chunk)
		n++
	}
	return n, nil
}

// GetChunk retrieves a specific chunk by ID.
func (s *Store) GetChunk(_ context.Context, id string) (*domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.byID {
		for i := range rec.chunks {
			if rec.chunks[i].ID == id {
				chunk := rec.chunks[i]
				return &chunk, nil
			}
		}
	}
	return nil, domain.ErrNotFound
}

// LoadCorpus returns every stored chunk without embeddings.
func (s *Store) LoadCorpus(_ context.Context) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Chunk
	for _, rec := range s.byID {
		for _, chunk := range rec.chunks {
			chunk.Embedding = nil
			out = append(out, chunk)
		}
	}
	// Stable order keeps index rebuilds deterministic.
	sort.Slice(out, func(i, j int) bool {
		if out[i].DocumentURL != out[j].DocumentURL {
			return out[i].DocumentURL < out[j].DocumentURL
		}
		return out[i].Index < out[j].Index
	})
	return out, nil
}

// DocumentCount returns the number of stored documents.
func (s *Store) DocumentCount(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID), nil
}

// ChunkCount returns the number of stored chunks.
func (s *Store) ChunkCount(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, rec := range s.byID {
		n += len(rec.chunks)
	}
	return n, nil
}

// NearestNeighbors finds the k chunks closest to the query vector by
// brute-force cosine similarity.
func (s *Store) NearestNeighbors(_ context.Context, embedding []float32, k int) ([]driven.VectorHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var hits []driven.VectorHit
	for _, rec := range s.byID {
		for _, chunk := range rec.chunks {
			sim := cosineSimilarity(embedding, chunk.Embedding)
			hits = append(hits, driven.VectorHit{
				ChunkID:    chunk.ID,
				Content:    chunk.Content,
				Title:      rec.doc.Title,
				URL:        rec.doc.URL,
				Metadata:   chunk.Metadata,
				Similarity: sim,
			})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
