// Package lexical provides an in-memory BM25 keyword index over the chunk
// corpus. The index is rebuilt on demand from the document store; reads run
// against an immutable snapshot so a rebuild never blocks scoring.
package lexical

import (
	"context"
	"math"
	"strings"
	"sync"

	"github.com/custodia-labs/cvscreener/internal/core/ports/driven"
)

// Ensure BM25Index implements the interface.
var _ driven.LexicalIndex = (*BM25Index)(nil)

// BM25 parameters. Standard Okapi defaults.
const (
	k1 = 1.5
	b  = 0.75
)

// snapshot is an immutable index state. Scoring reads one snapshot; Refresh
// swaps in a new one atomically under the lock.
type snapshot struct {
	chunkIDs  []string
	termFreqs []map[string]int
	docLens   []int
	docFreq   map[string]int
	avgDocLen float64
}

// BM25Index scores chunks by Okapi BM25 over whitespace-tokenized,
// lowercased text. Safe for concurrent use.
type BM25Index struct {
	store driven.DocumentStore

	mu   sync.RWMutex
	snap *snapshot
}

// NewBM25Index creates an index over the store's corpus. The index is empty
// until Refresh is called.
func NewBM25Index(store driven.DocumentStore) *BM25Index {
	return &BM25Index{store: store}
}

// Refresh rebuilds the index from the full corpus. Concurrent Score calls
// keep reading the previous snapshot until the swap.
func (x *BM25Index) Refresh(ctx context.Context) error {
	chunks, err := x.store.LoadCorpus(ctx)
	if err != nil {
		return err
	}

	snap := &snapshot{
		chunkIDs:  make([]string, 0, len(chunks)),
		termFreqs: make([]map[string]int, 0, len(chunks)),
		docLens:   make([]int, 0, len(chunks)),
		docFreq:   make(map[string]int),
	}
	totalLen := 0
	for _, chunk := range chunks {
		terms := tokenize(chunk.Content)
		freq := make(map[string]int, len(terms))
		for _, term := range terms {
			freq[term]++
		}
		for term := range freq {
			snap.docFreq[term]++
		}
		snap.chunkIDs = append(snap.chunkIDs, chunk.ID)
		snap.termFreqs = append(snap.termFreqs, freq)
		snap.docLens = append(snap.docLens, len(terms))
		totalLen += len(terms)
	}
	if len(chunks) > 0 {
		snap.avgDocLen = float64(totalLen) / float64(len(chunks))
	}

	x.mu.Lock()
	x.snap = snap
	x.mu.Unlock()
	return nil
}

// Score returns chunk IDs mapped to their BM25 relevance for the query.
// Zero-score chunks are excluded.
func (x *BM25Index) Score(_ context.Context, query string) (map[string]float64, error) {
	x.mu.RLock()
	snap := x.snap
	x.mu.RUnlock()
	if snap == nil || len(snap.chunkIDs) == 0 {
		return map[string]float64{}, nil
	}

	queryTerms := tokenize(query)
	n := float64(len(snap.chunkIDs))

	scores := make(map[string]float64)
	for i, id := range snap.chunkIDs {
		docLen := float64(snap.docLens[i])
		var score float64
		for _, term := range queryTerms {
			tf := float64(snap.termFreqs[i][term])
			if tf == 0 {
				continue
			}
			df := float64(snap.docFreq[term])
			idf := math.Log(1 + (n-df+0.5)/(df+0.5))
			score += idf * (tf * (k1 + 1)) / (tf + k1*(1-b+b*docLen/snap.avgDocLen))
		}
		if score > 0 {
			scores[id] = score
		}
	}
	return scores, nil
}

// Len returns the number of indexed chunks.
func (x *BM25Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.snap == nil {
		return 0
	}
	return len(x.snap.chunkIDs)
}

// tokenize lowercases and splits on non-alphanumeric runes so "Python," and
// "python" score the same term.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
}
