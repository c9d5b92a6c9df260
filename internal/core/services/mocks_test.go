package services

import (
	"context"
	"time"

	"github.com/custodia-labs/cvscreener/internal/core/domain"
	"github.com/custodia-labs/cvscreener/internal/core/ports/driven"
)

// --- Mock implementations shared by the service tests ---

// mockEmbedder implements driven.Embedder.
type mockEmbedder struct {
	embedding []float32
	embedErr  error
	calls     int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	m.calls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.embedding, nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.calls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = m.embedding
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int   { return len(m.embedding) }
func (m *mockEmbedder) ModelName() string { return "mock-embedder" }

// mockVectorSearcher implements driven.VectorSearcher.
type mockVectorSearcher struct {
	hits      []driven.VectorHit
	searchErr error
}

func (m *mockVectorSearcher) NearestNeighbors(_ context.Context, _ []float32, k int) ([]driven.VectorHit, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if k > len(m.hits) {
		return m.hits, nil
	}
	return m.hits[:k], nil
}

// mockLexicalIndex implements driven.LexicalIndex.
type mockLexicalIndex struct {
	scores     map[string]float64
	scoreErr   error
	refreshErr error
	length     int
	refreshes  int
}

func (m *mockLexicalIndex) Score(_ context.Context, _ string) (map[string]float64, error) {
	if m.scoreErr != nil {
		return nil, m.scoreErr
	}
	return m.scores, nil
}

func (m *mockLexicalIndex) Refresh(_ context.Context) error {
	m.refreshes++
	if m.refreshErr != nil {
		return m.refreshErr
	}
	m.length = len(m.scores)
	return nil
}

func (m *mockLexicalIndex) Len() int { return m.length }

// mockDocumentStore implements driven.DocumentStore.
type mockDocumentStore struct {
	chunks        map[string]*domain.Chunk
	docs          map[string]*domain.DocumentInfo
	nextID        int64
	inserted      []domain.Chunk
	deletedFor    []int64
	upsertErr     error
	insertErr     error
	getChunkErr   error
	corpus        []domain.Chunk
	loadCorpusErr error
}

func newMockDocumentStore() *mockDocumentStore {
	return &mockDocumentStore{
		chunks: make(map[string]*domain.Chunk),
		docs:   make(map[string]*domain.DocumentInfo),
		nextID: 1,
	}
}

func (m *mockDocumentStore) UpsertDocument(_ context.Context, doc *domain.Document) (int64, error) {
	if m.upsertErr != nil {
		return 0, m.upsertErr
	}
	info, ok := m.docs[doc.URL]
	if !ok {
		info = &domain.DocumentInfo{ID: m.nextID}
		m.nextID++
		m.docs[doc.URL] = info
	}
	info.ContentHash = doc.ContentHash
	return info.ID, nil
}

func (m *mockDocumentStore) GetDocumentInfo(_ context.Context, url string) (*domain.DocumentInfo, error) {
	info, ok := m.docs[url]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return info, nil
}

func (m *mockDocumentStore) DeleteChunks(_ context.Context, documentID int64) error {
	m.deletedFor = append(m.deletedFor, documentID)
	return nil
}

func (m *mockDocumentStore) InsertChunks(_ context.Context, _ int64, chunks []domain.Chunk) (int, error) {
	if m.insertErr != nil {
		return 0, m.insertErr
	}
	n := 0
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			continue
		}
		m.inserted = append(m.inserted, c)
		n++
	}
	return n, nil
}

func (m *mockDocumentStore) GetChunk(_ context.Context, id string) (*domain.Chunk, error) {
	if m.getChunkErr != nil {
		return nil, m.getChunkErr
	}
	c, ok := m.chunks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

func (m *mockDocumentStore) LoadCorpus(_ context.Context) ([]domain.Chunk, error) {
	if m.loadCorpusErr != nil {
		return nil, m.loadCorpusErr
	}
	return m.corpus, nil
}

func (m *mockDocumentStore) DocumentCount(_ context.Context) (int, error) {
	return len(m.docs), nil
}

func (m *mockDocumentStore) ChunkCount(_ context.Context) (int, error) {
	return len(m.inserted) + len(m.chunks), nil
}

// mockCompletionService implements driven.CompletionService.
type mockCompletionService struct {
	text        string
	usage       *driven.TokenUsage
	completeErr error
	calls       int
	lastPrompt  []driven.ChatMessage
}

func (m *mockCompletionService) Complete(_ context.Context, messages []driven.ChatMessage, _ driven.CompletionOptions) (*driven.CompletionResult, error) {
	m.calls++
	m.lastPrompt = messages
	if m.completeErr != nil {
		return nil, m.completeErr
	}
	return &driven.CompletionResult{Text: m.text, Usage: m.usage}, nil
}

func (m *mockCompletionService) ModelName() string { return "mock-llm" }

// mockCacheBackend implements driven.CacheBackend with a plain map.
type mockCacheBackend struct {
	entries map[string][]byte
	getErr  error
	setErr  error
}

func newMockCacheBackend() *mockCacheBackend {
	return &mockCacheBackend{entries: make(map[string][]byte)}
}

func (m *mockCacheBackend) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.entries[key]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	return v, nil
}

func (m *mockCacheBackend) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.entries[key] = value
	return nil
}

func (m *mockCacheBackend) Delete(_ context.Context, key string) error {
	delete(m.entries, key)
	return nil
}

func (m *mockCacheBackend) Clear(_ context.Context) error {
	m.entries = make(map[string][]byte)
	return nil
}

// mockMetrics implements driven.Metrics and records what was observed.
type mockMetrics struct {
	requests   map[string]int
	stages     map[string]int
	cacheHits  int
	cacheMiss  int
	retrievals []int
	tokens     [][2]int
	errors     map[string]int
}

func newMockMetrics() *mockMetrics {
	return &mockMetrics{
		requests: make(map[string]int),
		stages:   make(map[string]int),
		errors:   make(map[string]int),
	}
}

func (m *mockMetrics) RecordRequest(status string)              { m.requests[status]++ }
func (m *mockMetrics) ObserveStage(stage string, _ time.Duration) { m.stages[stage]++ }
func (m *mockMetrics) RecordCacheHit()                          { m.cacheHits++ }
func (m *mockMetrics) RecordCacheMiss()                         { m.cacheMiss++ }
func (m *mockMetrics) RecordRetrieval(count int, _ []float64)   { m.retrievals = append(m.retrievals, count) }
func (m *mockMetrics) RecordTokens(prompt, completion int) {
	m.tokens = append(m.tokens, [2]int{prompt, completion})
}
func (m *mockMetrics) RecordError(kind string) { m.errors[kind]++ }

// mockResumeLoader implements driven.ResumeLoader.
type mockResumeLoader struct {
	docs    []domain.Document
	loadErr error
}

func (m *mockResumeLoader) Load(_ context.Context) ([]domain.Document, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.docs, nil
}
