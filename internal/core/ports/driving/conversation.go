package driving

import (
	"context"

	"github.com/custodia-labs/cvscreener/internal/core/domain"
)

// ConversationService answers questions over the ingested resume corpus.
//
// A service instance owns one conversation history and is NOT safe for
// concurrent queries: callers must serialize access per session or create
// one instance per session.
type ConversationService interface {
	// Query runs the full pipeline for one question. topK <= 0 selects the
	// configured default. The returned sources are ordered by relevance.
	Query(ctx context.Context, question string, topK int) (*QueryResult, error)

	// ClearHistory discards the conversation history.
	ClearHistory()

	// HistoryLen returns the number of retained conversation turns.
	HistoryLen() int
}

// QueryResult is the outcome of one pipeline run.
type QueryResult struct {
	// Answer is the final answer text.
	Answer string

	// Sources are the retrieved chunks the answer is grounded on.
	// Empty when no relevant information was found.
	Sources []domain.RetrievedResult

	// FromCache is true when the answer was served from the response cache.
	FromCache bool

	// Validation holds the guardrail outcome. Nil on the cache-hit and
	// empty-retrieval paths, where no generation happened.
	Validation *domain.ValidationResult
}
