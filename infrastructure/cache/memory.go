package cache

import (
	"context"
	"sync"
	"time"

	"github.com/oddsflow/swarm/internal/domain"
	"github.com/oddsflow/swarm/internal/ports"
)

type memoryEntry struct {
	result    *domain.SwarmResult
	expiresAt time.Time
}

// MemoryCache is an in-process ResultCache for tests and single-node
// deployments without Redis. Expired entries are dropped lazily on read.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

var _ ports.ResultCache = (*MemoryCache)(nil)

// NewMemoryCache returns an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get returns the cached result for the event if it has not expired.
func (c *MemoryCache) Get(_ context.Context, eventID string) (*domain.SwarmResult, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[eventID]
	c.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have
		// refreshed the entry.
		if current, ok := c.entries[eventID]; ok && c.now().After(current.expiresAt) {
			delete(c.entries, eventID)
		}
		c.mu.Unlock()
		return nil, false, nil
	}

	// Callers get their own copy; the stored result stays immutable even
	// if a caller mutates what it was handed.
	copied := *entry.result
	return &copied, true, nil
}

// Set stores the result with the given TTL.
func (c *MemoryCache) Set(_ context.Context, eventID string, result *domain.SwarmResult, ttl time.Duration) error {
	c.mu.Lock()
	c.entries[eventID] = memoryEntry{result: result, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

// Delete evicts the entry for the event.
func (c *MemoryCache) Delete(_ context.Context, eventID string) error {
	c.mu.Lock()
	delete(c.entries, eventID)
	c.mu.Unlock()
	return nil
}
