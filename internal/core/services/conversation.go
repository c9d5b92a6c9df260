package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/cvscreener/internal/core/domain"
	"github.com/custodia-labs/cvscreener/internal/core/ports/driven"
	"github.com/custodia-labs/cvscreener/internal/core/ports/driving"
	"github.com/custodia-labs/cvscreener/internal/logger"
)

// Ensure ConversationEngine implements the interface.
var _ driving.ConversationService = (*ConversationEngine)(nil)

// NoInformationAnswer is returned when retrieval finds nothing relevant.
// It is never cached, so a later ingestion can produce a real answer.
const NoInformationAnswer = "I couldn't find relevant information in the available CVs to answer that. " +
	"Try asking about the candidates' experience, skills, or education."

// Retriever is the retrieval contract the engine drives. Satisfied by
// HybridRetriever.
type Retriever interface {
	Retrieve(ctx context.Context, question string, topK int) ([]domain.RetrievedResult, error)
}

// EngineConfig controls one conversation engine instance.
type EngineConfig struct {
	// TopK is the default number of chunks retrieved per question.
	TopK int

	// MaxHistory bounds the retained conversation turns (FIFO eviction).
	MaxHistory int

	// MaxTokens and Temperature are passed to the completion provider.
	MaxTokens   int
	Temperature float64
}

// ConversationEngine runs the question-answering pipeline: cache lookup,
// hybrid retrieval, prompt composition, generation, guardrail validation,
// history update, cache store.
//
// An engine owns one conversation history and is not safe for concurrent
// queries; give each session its own engine or serialize access.
type ConversationEngine struct {
	retriever Retriever
	completer driven.CompletionService
	builder   *PromptBuilder
	validator *GuardrailValidator
	cache     *ResponseCache
	metrics   driven.Metrics
	analyzer  QueryAnalyzer
	cfg       EngineConfig
	log       logger.Logger

	history []domain.ConversationTurn
}

// NewConversationEngine creates an engine. cache may be nil to disable
// response caching; metrics may be nil to disable instrumentation.
func NewConversationEngine(
	retriever Retriever,
	completer driven.CompletionService,
	builder *PromptBuilder,
	validator *GuardrailValidator,
	cache *ResponseCache,
	metrics driven.Metrics,
	cfg EngineConfig,
	log logger.Logger,
) *ConversationEngine {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = 10
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1000
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.7
	}
	if builder == nil {
		builder = NewPromptBuilder(true)
	}
	if validator == nil {
		validator = NewGuardrailValidator(GuardrailConfig{})
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if log == nil {
		log = logger.Default()
	}
	return &ConversationEngine{
		retriever: retriever,
		completer: completer,
		builder:   builder,
		validator: validator,
		cache:     cache,
		metrics:   metrics,
		cfg:       cfg,
		log:       log,
	}
}

// Query answers one question over the ingested corpus.
func (e *ConversationEngine) Query(ctx context.Context, question string, topK int) (*driving.QueryResult, error) {
	question = normalizeInput(question)
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
	}
	if topK <= 0 {
		topK = e.cfg.TopK
	}

	if e.cache != nil {
		if cached := e.cache.Get(ctx, question, topK); cached != nil {
			e.metrics.RecordCacheHit()
			e.metrics.RecordRequest("success")
			e.log.Debug("cache hit", "question_len", len(question))
			return &driving.QueryResult{
				Answer:    cached.Answer,
				Sources:   cached.Sources,
				FromCache: true,
			}, nil
		}
		e.metrics.RecordCacheMiss()
	}

	// Short follow-ups borrow a topic from the previous answer. The
	// augmented form drives retrieval and the prompt; the original
	// question is what ends up in history and the cache.
	retrievalQuestion, augmented := e.analyzer.AugmentShortQuery(question, e.history)
	if augmented {
		e.log.Debug("augmented short question", "original", question, "augmented", retrievalQuestion)
	}

	start := time.Now()
	results, err := e.retriever.Retrieve(ctx, retrievalQuestion, topK)
	e.metrics.ObserveStage("retrieval", time.Since(start))
	if err != nil {
		e.metrics.RecordError("retrieval")
		e.metrics.RecordRequest("error")
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	similarities := make([]float64, 0, len(results))
	for i := range results {
		similarities = append(similarities, results[i].Similarity())
	}
	e.metrics.RecordRetrieval(len(results), similarities)

	if len(results) == 0 {
		e.log.Info("no relevant chunks found", "question_len", len(question))
		e.metrics.RecordRequest("success")
		return &driving.QueryResult{Answer: NoInformationAnswer, Sources: []domain.RetrievedResult{}}, nil
	}

	start = time.Now()
	prompt, analysis := e.builder.Build(results, e.history, retrievalQuestion)
	e.metrics.ObserveStage("prompt", time.Since(start))
	e.log.Debug("prompt composed",
		"complexity", string(analysis.Complexity),
		"augmented", augmented,
		"length", analysis.PromptLength)

	answer := e.generate(ctx, prompt)

	start = time.Now()
	validation := e.validator.Validate(answer, FormatContext(results), results)
	e.metrics.ObserveStage("validation", time.Since(start))
	if !validation.Passed {
		e.metrics.RecordError("validation")
		e.log.Warn("answer failed validation",
			"score", validation.Score, "issues", strings.Join(validation.Issues, "; "))
	}

	answer = stripSourcesFooter(answer)

	e.history = append(e.history, domain.ConversationTurn{Question: question, Answer: answer})
	if len(e.history) > e.cfg.MaxHistory {
		e.history = e.history[len(e.history)-e.cfg.MaxHistory:]
	}

	if e.cache != nil {
		e.cache.Set(ctx, question, topK, &CachedResponse{Answer: answer, Sources: results})
	}

	e.metrics.RecordRequest("success")
	return &driving.QueryResult{
		Answer:     answer,
		Sources:    results,
		Validation: validation,
	}, nil
}

// normalizeInput collapses internal whitespace and strips trailing
// punctuation. The normalized form drives the rest of the pipeline; case is
// only folded inside the cache key.
func normalizeInput(question string) string {
	question = strings.Join(strings.Fields(question), " ")
	return strings.TrimRight(question, "?!. ")
}

// generate invokes the completion provider. A provider failure degrades to
// a visible error answer so the conversation flow completes and is recorded.
func (e *ConversationEngine) generate(ctx context.Context, prompt string) string {
	start := time.Now()
	result, err := e.completer.Complete(ctx,
		[]driven.ChatMessage{{Role: "user", Content: prompt}},
		driven.CompletionOptions{MaxTokens: e.cfg.MaxTokens, Temperature: e.cfg.Temperature})
	e.metrics.ObserveStage("generation", time.Since(start))
	if err != nil {
		e.metrics.RecordError("generation")
		e.log.Error("generation failed", "error", err)
		return fmt.Sprintf("Error generating response: %v", err)
	}
	if result.Usage != nil {
		e.metrics.RecordTokens(result.Usage.PromptTokens, result.Usage.CompletionTokens)
	}
	return strings.TrimSpace(result.Text)
}

// ClearHistory discards the conversation history.
func (e *ConversationEngine) ClearHistory() {
	e.history = nil
	e.log.Debug("conversation history cleared")
}

// HistoryLen returns the number of retained turns.
func (e *ConversationEngine) HistoryLen() int {
	return len(e.history)
}

// History returns a copy of the retained turns, oldest first.
func (e *ConversationEngine) History() []domain.ConversationTurn {
	out := make([]domain.ConversationTurn, len(e.history))
	copy(out, e.history)
	return out
}

// stripSourcesFooter removes a trailing sources section the model may have
// emitted; sources are rendered separately by the caller.
func stripSourcesFooter(answer string) string {
	for _, marker := range footerMarkers {
		if idx := strings.Index(answer, marker); idx >= 0 {
			return strings.TrimSpace(answer[:idx])
		}
	}
	return answer
}

// noopMetrics discards every observation.
type noopMetrics struct{}

func (noopMetrics) RecordRequest(string)               {}
func (noopMetrics) ObserveStage(string, time.Duration) {}
func (noopMetrics) RecordCacheHit()                    {}
func (noopMetrics) RecordCacheMiss()                   {}
func (noopMetrics) RecordRetrieval(int, []float64)     {}
func (noopMetrics) RecordTokens(int, int)              {}
func (noopMetrics) RecordError(string)                 {}
