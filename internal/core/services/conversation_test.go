package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/cvscreener/internal/core/domain"
	"github.com/custodia-labs/cvscreener/internal/core/ports/driven"
)

// stubRetriever implements Retriever with canned results.
type stubRetriever struct {
	results  []domain.RetrievedResult
	err      error
	calls    int
	lastQ    string
	lastTopK int
}

func (s *stubRetriever) Retrieve(_ context.Context, question string, topK int) ([]domain.RetrievedResult, error) {
	s.calls++
	s.lastQ = question
	s.lastTopK = topK
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

const engineAnswer = `Jane Doe is a backend engineer with 5 years of Python experience and a focus on data work [1].

**Sources consulted:**
1. CV Jane Doe - cv://cv-01-jane-doe (Relevance: 92%)`

const engineAnswerStripped = "Jane Doe is a backend engineer with 5 years of Python experience and a focus on data work [1]."

func newTestEngine(retriever *stubRetriever, completer *mockCompletionService, cache *ResponseCache, metrics driven.Metrics) *ConversationEngine {
	return NewConversationEngine(retriever, completer, nil, nil, cache, metrics, EngineConfig{
		TopK:       5,
		MaxHistory: 3,
	}, nil)
}

func singleResult() []domain.RetrievedResult {
	return []domain.RetrievedResult{
		{ChunkID: "c1", Content: "5 years Python experience", Title: "CV Jane Doe",
			URL: "cv://cv-01-jane-doe", VectorScore: 0.92, HasVectorScore: true, HybridScore: 0.5},
	}
}

func TestEngineQuery_FullPipeline(t *testing.T) {
	retriever := &stubRetriever{results: singleResult()}
	completer := &mockCompletionService{
		text:  engineAnswer,
		usage: &driven.TokenUsage{PromptTokens: 900, CompletionTokens: 60, TotalTokens: 960},
	}
	metrics := newMockMetrics()
	cache := NewResponseCache(newMockCacheBackend(), time.Hour, nil)
	engine := newTestEngine(retriever, completer, cache, metrics)

	result, err := engine.Query(context.Background(), "What experience does Jane Doe have?", 0)

	require.NoError(t, err)
	assert.False(t, result.FromCache)
	// The sources footer is stripped; sources are rendered separately.
	assert.Equal(t, engineAnswerStripped, result.Answer)
	require.Len(t, result.Sources, 1)
	assert.Equal(t, "c1", result.Sources[0].ChunkID)
	require.NotNil(t, result.Validation)
	assert.True(t, result.Validation.Passed, "issues: %v", result.Validation.Issues)

	assert.Equal(t, 5, retriever.lastTopK, "topK 0 must select the configured default")
	assert.Equal(t, 1, engine.HistoryLen())
	assert.Equal(t, 1, metrics.requests["success"])
	assert.Equal(t, 1, metrics.cacheMiss)
	assert.Equal(t, [][2]int{{900, 60}}, metrics.tokens)
	for _, stage := range []string{"retrieval", "prompt", "generation", "validation"} {
		assert.Equal(t, 1, metrics.stages[stage], "stage %s", stage)
	}
}

func TestEngineQuery_EmptyQuestion(t *testing.T) {
	engine := newTestEngine(&stubRetriever{}, &mockCompletionService{}, nil, nil)

	_, err := engine.Query(context.Background(), "  ", 5)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestEngineQuery_CacheHitSkipsPipeline(t *testing.T) {
	retriever := &stubRetriever{results: singleResult()}
	completer := &mockCompletionService{text: engineAnswer}
	metrics := newMockMetrics()
	cache := NewResponseCache(newMockCacheBackend(), time.Hour, nil)
	engine := newTestEngine(retriever, completer, cache, metrics)
	ctx := context.Background()

	first, err := engine.Query(ctx, "What experience does Jane Doe have?", 5)
	require.NoError(t, err)

	second, err := engine.Query(ctx, "what experience does jane doe have", 5)
	require.NoError(t, err)

	assert.True(t, second.FromCache)
	assert.Equal(t, first.Answer, second.Answer)
	assert.Nil(t, second.Validation)
	assert.Equal(t, 1, retriever.calls, "cache hit must not retrieve")
	assert.Equal(t, 1, completer.calls, "cache hit must not generate")
	assert.Equal(t, 1, metrics.cacheHits)
	assert.Equal(t, 1, engine.HistoryLen(), "cache hits do not extend history")
}

func TestEngineQuery_EmptyRetrievalShortCircuits(t *testing.T) {
	retriever := &stubRetriever{results: nil}
	completer := &mockCompletionService{text: engineAnswer}
	cache := NewResponseCache(newMockCacheBackend(), time.Hour, nil)
	engine := newTestEngine(retriever, completer, cache, nil)
	ctx := context.Background()

	result, err := engine.Query(ctx, "unknown candidate?", 5)

	require.NoError(t, err)
	assert.Equal(t, NoInformationAnswer, result.Answer)
	assert.Empty(t, result.Sources)
	assert.Nil(t, result.Validation)
	assert.Equal(t, 0, completer.calls, "no generation without context")
	assert.Equal(t, 0, engine.HistoryLen())

	// The empty outcome is never cached: once the corpus has matching
	// chunks, the same question produces a real answer.
	retriever.results = singleResult()
	result, err = engine.Query(ctx, "unknown candidate?", 5)
	require.NoError(t, err)
	assert.NotEqual(t, NoInformationAnswer, result.Answer)
	assert.False(t, result.FromCache)
}

func TestEngineQuery_RetrievalFailure(t *testing.T) {
	retriever := &stubRetriever{err: errors.New("pgvector down")}
	metrics := newMockMetrics()
	engine := newTestEngine(retriever, &mockCompletionService{}, nil, metrics)

	_, err := engine.Query(context.Background(), "question", 5)

	require.Error(t, err)
	assert.Equal(t, 1, metrics.requests["error"])
	assert.Equal(t, 1, metrics.errors["retrieval"])
}

func TestEngineQuery_GenerationFailureDegrades(t *testing.T) {
	retriever := &stubRetriever{results: singleResult()}
	completer := &mockCompletionService{completeErr: errors.New("rate limited")}
	metrics := newMockMetrics()
	engine := newTestEngine(retriever, completer, nil, metrics)

	result, err := engine.Query(context.Background(), "What experience does Jane Doe have?", 5)

	require.NoError(t, err, "generation failure must not fail the query")
	assert.Contains(t, result.Answer, "Error generating response")
	assert.Contains(t, result.Answer, "rate limited")
	assert.Equal(t, 1, metrics.errors["generation"])
	assert.Equal(t, 1, engine.HistoryLen(), "error answers are recorded in history")
}

func TestEngineQuery_ValidationIsAdvisory(t *testing.T) {
	retriever := &stubRetriever{results: singleResult()}
	// No citations, no footer: validation fails but the answer survives.
	completer := &mockCompletionService{text: "Jane is great and has a lot of experience in the field."}
	metrics := newMockMetrics()
	engine := newTestEngine(retriever, completer, nil, metrics)

	result, err := engine.Query(context.Background(), "What experience does Jane have?", 5)

	require.NoError(t, err)
	require.NotNil(t, result.Validation)
	assert.False(t, result.Validation.Passed)
	assert.Equal(t, "Jane is great and has a lot of experience in the field.", result.Answer)
	assert.Equal(t, 1, metrics.errors["validation"])
}

func TestEngineQuery_HistoryBounded(t *testing.T) {
	retriever := &stubRetriever{results: singleResult()}
	completer := &mockCompletionService{text: engineAnswer}
	engine := newTestEngine(retriever, completer, nil, nil)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_, err := engine.Query(ctx, fmt.Sprintf("question number %d please", i), 5)
		require.NoError(t, err)
	}

	assert.Equal(t, 3, engine.HistoryLen())
	history := engine.History()
	require.Len(t, history, 3)
	assert.Equal(t, "question number 3 please", history[0].Question)
	assert.Equal(t, "question number 5 please", history[2].Question)
}

func TestEngineQuery_AugmentsShortFollowUp(t *testing.T) {
	retriever := &stubRetriever{results: singleResult()}
	completer := &mockCompletionService{text: "Jane has strong skills in Python and the cloud [1].\n\n**Sources consulted:**\n1. x"}
	engine := newTestEngine(retriever, completer, nil, nil)
	ctx := context.Background()

	_, err := engine.Query(ctx, "What are the skills of Jane Doe?", 5)
	require.NoError(t, err)

	_, err = engine.Query(ctx, "details?", 5)
	require.NoError(t, err)

	assert.Equal(t, "details about the candidate skills", retriever.lastQ,
		"retrieval sees the augmented question")
	history := engine.History()
	require.Len(t, history, 2)
	assert.Equal(t, "details", history[1].Question, "history keeps the unaugmented question")
}

func TestEngineClearHistory(t *testing.T) {
	retriever := &stubRetriever{results: singleResult()}
	engine := newTestEngine(retriever, &mockCompletionService{text: engineAnswer}, nil, nil)

	_, err := engine.Query(context.Background(), "What experience does Jane Doe have?", 5)
	require.NoError(t, err)
	require.Equal(t, 1, engine.HistoryLen())

	engine.ClearHistory()

	assert.Equal(t, 0, engine.HistoryLen())
}

func TestStripSourcesFooter(t *testing.T) {
	assert.Equal(t, engineAnswerStripped, stripSourcesFooter(engineAnswer))
	assert.Equal(t, "no footer here", stripSourcesFooter("no footer here"))
}

func TestNormalizeInput(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  What   skills?  ", "What skills"},
		{"Who is Jane Doe?!", "Who is Jane Doe"},
		{"plain question", "plain question"},
		{"???", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeInput(tt.in), "input %q", tt.in)
	}
}
