// Package cache provides response cache backends: a process-local map for
// single-instance deployments and tests, and Redis for shared deployments.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/cvscreener/internal/core/domain"
	"github.com/custodia-labs/cvscreener/internal/core/ports/driven"
)

// Ensure MemoryBackend implements the interface.
var _ driven.CacheBackend = (*MemoryBackend)(nil)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryBackend is an in-process cache backend with lazy expiry. Safe for
// concurrent use via a coarse lock.
type MemoryBackend struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get returns the value for key, or domain.ErrCacheMiss when absent or
// expired. Expired entries are dropped on read.
func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[key]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	if m.now().After(entry.expiresAt) {
		delete(m.entries, key)
		return nil, domain.ErrCacheMiss
	}
	return entry.value, nil
}

// Set stores value under key for the given time-to-live.
func (m *MemoryBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{value: value, expiresAt: m.now().Add(ttl)}
	return nil
}

// Delete removes a key.
func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Clear removes all entries.
func (m *MemoryBackend) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]memoryEntry)
	return nil
}
