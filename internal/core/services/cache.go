package services

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/cvscreener/internal/core/domain"
	"github.com/custodia-labs/cvscreener/internal/core/ports/driven"
	"github.com/custodia-labs/cvscreener/internal/logger"
)

const cacheKeyPrefix = "rag:response:"

// CachedResponse is the serialised payload stored per answered question.
type CachedResponse struct {
	Answer  string                   `json:"answer"`
	Sources []domain.RetrievedResult `json:"sources"`
}

// CacheStats reports cache effectiveness counters since process start.
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
}

// HitRate returns hits / (hits + misses), or 0 when nothing was looked up.
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// ResponseCache memoises full pipeline responses keyed by the normalised
// question and its topK. Two phrasings that normalise identically share an
// entry. Backend failures are swallowed: a broken cache degrades to a
// cache-miss pipeline, never to a failed query.
type ResponseCache struct {
	backend driven.CacheBackend
	ttl     time.Duration
	log     logger.Logger

	hits   atomic.Int64
	misses atomic.Int64
	sets   atomic.Int64
}

// NewResponseCache creates a cache over the given backend. A zero ttl
// defaults to one hour.
func NewResponseCache(backend driven.CacheBackend, ttl time.Duration, log logger.Logger) *ResponseCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if log == nil {
		log = logger.Default()
	}
	return &ResponseCache{backend: backend, ttl: ttl, log: log}
}

// Get returns the cached response for the question, or nil on a miss.
func (c *ResponseCache) Get(ctx context.Context, question string, topK int) *CachedResponse {
	key := c.key(question, topK)
	raw, err := c.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			c.log.Warn("cache lookup failed", "error", err)
		}
		c.misses.Add(1)
		return nil
	}
	var resp CachedResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		c.log.Warn("discarding undecodable cache entry", "key", key, "error", err)
		c.misses.Add(1)
		return nil
	}
	c.hits.Add(1)
	return &resp
}

// Set stores a response under the normalised question key.
func (c *ResponseCache) Set(ctx context.Context, question string, topK int, resp *CachedResponse) {
	raw, err := json.Marshal(resp)
	if err != nil {
		c.log.Warn("cache encode failed", "error", err)
		return
	}
	if err := c.backend.Set(ctx, c.key(question, topK), raw, c.ttl); err != nil {
		c.log.Warn("cache store failed", "error", err)
		return
	}
	c.sets.Add(1)
}

// Clear drops every cached response.
func (c *ResponseCache) Clear(ctx context.Context) error {
	return c.backend.Clear(ctx)
}

// Stats returns the current counters.
func (c *ResponseCache) Stats() CacheStats {
	return CacheStats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Sets:   c.sets.Load(),
	}
}

func (c *ResponseCache) key(question string, topK int) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s|%d", normalizeQuestion(question), topK)))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

// normalizeQuestion canonicalises a question for cache keying: lowercase,
// whitespace collapsed to single spaces, trailing punctuation stripped.
func normalizeQuestion(question string) string {
	q := strings.ToLower(strings.TrimSpace(question))
	q = strings.Join(strings.Fields(q), " ")
	return strings.TrimRight(q, "?!. ")
}
