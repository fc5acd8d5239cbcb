package db

import (
	"crypto/sha256"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// pruneThreshold is the entry count above which Set drops expired entries.
const pruneThreshold = 256

type CacheEntry struct {
	Result    *ResultSet
	Timestamp time.Time
}

// Cache is a thread-safe in-memory cache of query results. Entries are never
// stale in content because the store is immutable; maxAge only bounds memory.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]CacheEntry
	maxAge  time.Duration
}

func NewCache(maxAge time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]CacheEntry),
		maxAge:  maxAge,
	}
}

func (c *Cache) Set(query string, result *ResultSet) {
	c.mu.Lock()
	c.entries[getCacheKey(query)] = CacheEntry{
		Result:    result,
		Timestamp: time.Now(),
	}
	size := len(c.entries)
	c.mu.Unlock()

	if size > pruneThreshold {
		c.InvalidateOlder(c.maxAge)
	}
}

func (c *Cache) Get(query string) (*ResultSet, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[getCacheKey(query)]
	if !ok {
		return nil, false
	}

	if time.Since(entry.Timestamp) > c.maxAge {
		slog.Debug("Cache entry expired", "query", query)
		return nil, false
	}

	return entry.Result, true
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// Removes all cache entries
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]CacheEntry)
}

// Removes all cache entries older than the given duration
func (c *Cache) InvalidateOlder(olderThan time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	clearOlderThan := time.Now().Add(-olderThan)

	for key, entry := range c.entries {
		if entry.Timestamp.Before(clearOlderThan) {
			delete(c.entries, key)
		}
	}
}

// Returns the cache key hash (sha256) for the given query
func getCacheKey(query string) string {
	hash := sha256.Sum256([]byte(query))

	return fmt.Sprintf("%x", hash)
}
