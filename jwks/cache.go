package jwks

import (
	"context"
	"sync"
	"time"
)

// KeyCache stores resolved keys by (endpoint, credential, kid).
// Implementations must be safe for concurrent use.
type KeyCache interface {
	// Get returns the key for k. A miss is (nil, false, nil).
	Get(ctx context.Context, k CacheKey) (*KeyMaterial, bool, error)
	// Put stores m under k, replacing any previous entry.
	Put(ctx context.Context, k CacheKey, m *KeyMaterial) error
	// Invalidate drops k. Dropping an absent key is not an error.
	Invalidate(ctx context.Context, k CacheKey) error
}

// DefaultCacheTTL is how long a fetched key stays cached. Signing keys
// rotate rarely.
const DefaultCacheTTL = time.Hour

type cacheEntry struct {
	material   *KeyMaterial
	insertedAt time.Time
	expiresAt  time.Time
}

// MemoryCache is an in-process KeyCache with TTL eviction.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[CacheKey]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache(opts ...MemoryCacheOption) *MemoryCache {
	c := &MemoryCache{
		entries: make(map[CacheKey]cacheEntry),
		ttl:     DefaultCacheTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *MemoryCache) Get(_ context.Context, k CacheKey) (*KeyMaterial, bool, error) {
	now := c.now()

	c.mu.RLock()
	entry, ok := c.entries[k]
	c.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if !now.Before(entry.expiresAt) {
		c.mu.Lock()
		// Re-check: a concurrent Put may have refreshed the entry.
		if cur, ok := c.entries[k]; ok && !now.Before(cur.expiresAt) {
			delete(c.entries, k)
		}
		c.mu.Unlock()
		return nil, false, nil
	}

	return entry.material, true, nil
}

// Put stores m for the cache TTL, or until m.ExpiresAt when the backend
// allowed caching for longer.
func (c *MemoryCache) Put(_ context.Context, k CacheKey, m *KeyMaterial) error {
	now := c.now()
	expiresAt := now.Add(c.ttl)
	if m.ExpiresAt.After(expiresAt) {
		expiresAt = m.ExpiresAt
	}

	c.mu.Lock()
	c.entries[k] = cacheEntry{material: m, insertedAt: now, expiresAt: expiresAt}
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Invalidate(_ context.Context, k CacheKey) error {
	c.mu.Lock()
	delete(c.entries, k)
	c.mu.Unlock()
	return nil
}

// Len returns the number of entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Purge drops every entry.
func (c *MemoryCache) Purge() {
	c.mu.Lock()
	c.entries = make(map[CacheKey]cacheEntry)
	c.mu.Unlock()
}
