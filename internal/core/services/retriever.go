package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/cvscreener/internal/core/domain"
	"github.com/custodia-labs/cvscreener/internal/core/ports/driven"
	"github.com/custodia-labs/cvscreener/internal/logger"
)

// RetrieverConfig controls the hybrid retrieval pass.
type RetrieverConfig struct {
	// TopK is the number of results returned to the caller.
	TopK int

	// TopKVector is the candidate pool size for the vector pass.
	TopKVector int

	// TopKLexical is the candidate pool size for the lexical pass.
	TopKLexical int

	// Alpha weighs the vector score against the lexical score:
	// hybrid = alpha*vector + (1-alpha)*lexical. Range [0,1].
	Alpha float64
}

// HybridRetriever combines semantic vector search with BM25 keyword search.
// Each pass runs independently; scores are min-max normalised per list and
// merged by chunk identity, so a chunk found by both passes outranks a chunk
// found by one.
type HybridRetriever struct {
	embedder driven.Embedder
	vectors  driven.VectorSearcher
	lexical  driven.LexicalIndex
	store    driven.DocumentStore
	cfg      RetrieverConfig
	log      logger.Logger
}

// NewHybridRetriever creates a retriever. The lexical index may be nil, in
// which case retrieval degrades to pure vector search.
func NewHybridRetriever(
	embedder driven.Embedder,
	vectors driven.VectorSearcher,
	lexical driven.LexicalIndex,
	store driven.DocumentStore,
	cfg RetrieverConfig,
	log logger.Logger,
) *HybridRetriever {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.TopKVector <= 0 {
		cfg.TopKVector = 20
	}
	if cfg.TopKLexical <= 0 {
		cfg.TopKLexical = 20
	}
	if cfg.Alpha < 0 || cfg.Alpha > 1 {
		cfg.Alpha = 0.5
	}
	if log == nil {
		log = logger.Default()
	}
	return &HybridRetriever{
		embedder: embedder,
		vectors:  vectors,
		lexical:  lexical,
		store:    store,
		cfg:      cfg,
		log:      log,
	}
}

// Retrieve runs both passes for the question and returns up to topK merged
// results ordered by descending hybrid score. topK <= 0 selects the
// configured default. A vector search failure aborts retrieval; a lexical
// failure only degrades it.
func (r *HybridRetriever) Retrieve(ctx context.Context, question string, topK int) ([]domain.RetrievedResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
	}
	if topK <= 0 {
		topK = r.cfg.TopK
	}

	byID := make(map[string]*domain.RetrievedResult)
	order := make([]string, 0, r.cfg.TopKVector+r.cfg.TopKLexical)

	hits, err := r.vectorPass(ctx, question)
	if err != nil {
		return nil, err
	}
	for _, h := range hits {
		res := &domain.RetrievedResult{
			ChunkID:        h.ChunkID,
			Content:        h.Content,
			Title:          h.Title,
			URL:            h.URL,
			Metadata:       h.Metadata,
			VectorScore:    h.Similarity,
			HasVectorScore: true,
		}
		byID[h.ChunkID] = res
		order = append(order, h.ChunkID)
	}

	scores := r.lexicalPass(ctx, question)
	for _, sc := range scores {
		if res, ok := byID[sc.chunkID]; ok {
			res.LexicalScore = sc.score
			res.HasLexicalScore = true
			continue
		}
		res, err := r.hydrate(ctx, sc.chunkID)
		if err != nil {
			r.log.Warn("skipping unhydratable lexical hit", "chunk_id", sc.chunkID, "error", err)
			continue
		}
		res.LexicalScore = sc.score
		res.HasLexicalScore = true
		byID[sc.chunkID] = res
		order = append(order, sc.chunkID)
	}

	results := make([]domain.RetrievedResult, 0, len(order))
	for _, id := range order {
		results = append(results, *byID[id])
	}

	normalizeScores(results)
	for i := range results {
		results[i].HybridScore = r.cfg.Alpha*results[i].VectorScoreNorm +
			(1-r.cfg.Alpha)*results[i].LexicalScoreNorm
	}

	// Stable sort keeps vector rank order on hybrid-score ties.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].HybridScore > results[j].HybridScore
	})

	if len(results) > topK {
		results = results[:topK]
	}
	r.log.Debug("retrieval complete",
		"question_len", len(question), "vector_hits", len(hits),
		"lexical_hits", len(scores), "returned", len(results))
	return results, nil
}

func (r *HybridRetriever) vectorPass(ctx context.Context, question string) ([]driven.VectorHit, error) {
	embedding, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
	}
	hits, err := r.vectors.NearestNeighbors(ctx, embedding, r.cfg.TopKVector)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrVectorSearchUnavailable, err)
	}
	return hits, nil
}

type lexicalHit struct {
	chunkID string
	score   float64
}

// lexicalPass returns the top lexical candidates sorted by descending score.
// It rebuilds the index lazily on first use and swallows failures: lexical
// search is an enrichment, not a requirement.
func (r *HybridRetriever) lexicalPass(ctx context.Context, question string) []lexicalHit {
	if r.lexical == nil {
		return nil
	}
	if r.lexical.Len() == 0 {
		if err := r.lexical.Refresh(ctx); err != nil {
			r.log.Warn("lexical index refresh failed", "error", err)
			return nil
		}
	}
	scores, err := r.lexical.Score(ctx, question)
	if err != nil {
		r.log.Warn("lexical scoring failed", "error", err)
		return nil
	}
	hits := make([]lexicalHit, 0, len(scores))
	for id, score := range scores {
		hits = append(hits, lexicalHit{chunkID: id, score: score})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].chunkID < hits[j].chunkID
	})
	if len(hits) > r.cfg.TopKLexical {
		hits = hits[:r.cfg.TopKLexical]
	}
	return hits
}

func (r *HybridRetriever) hydrate(ctx context.Context, chunkID string) (*domain.RetrievedResult, error) {
	chunk, err := r.store.GetChunk(ctx, chunkID)
	if err != nil {
		return nil, fmt.Errorf("get chunk: %w", err)
	}
	return &domain.RetrievedResult{
		ChunkID:  chunk.ID,
		Content:  chunk.Content,
		Title:    chunk.Title,
		URL:      chunk.DocumentURL,
		Metadata: chunk.Metadata,
	}, nil
}

// normalizeScores min-max scales vector and lexical scores independently
// within the batch. When every score in a list is equal, every present
// score normalises to 1.0 so a single-hit list still contributes.
func normalizeScores(results []domain.RetrievedResult) {
	normalize(results,
		func(r *domain.RetrievedResult) (float64, bool) { return r.VectorScore, r.HasVectorScore },
		func(r *domain.RetrievedResult, v float64) { r.VectorScoreNorm = v })
	normalize(results,
		func(r *domain.RetrievedResult) (float64, bool) { return r.LexicalScore, r.HasLexicalScore },
		func(r *domain.RetrievedResult, v float64) { r.LexicalScoreNorm = v })
}

func normalize(
	results []domain.RetrievedResult,
	get func(*domain.RetrievedResult) (float64, bool),
	set func(*domain.RetrievedResult, float64),
) {
	lo, hi := 0.0, 0.0
	seen := false
	for i := range results {
		v, ok := get(&results[i])
		if !ok {
			continue
		}
		if !seen || v < lo {
			lo = v
		}
		if !seen || v > hi {
			hi = v
		}
		seen = true
	}
	if !seen {
		return
	}
	span := hi - lo
	for i := range results {
		v, ok := get(&results[i])
		if !ok {
			continue
		}
		if span == 0 {
			set(&results[i], 1.0)
			continue
		}
		set(&results[i], (v-lo)/span)
	}
}
