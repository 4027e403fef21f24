// Package cache provides the in-memory DocumentCache used by the caching middleware.
package cache

import (
	"sync"
	"time"

	"github.com/custodia-labs/replica/internal/core/domain"
	"github.com/custodia-labs/replica/internal/core/ports/driven"
)

// Ensure TTLCache implements the interface.
var _ driven.DocumentCache = (*TTLCache)(nil)

type entry struct {
	doc     *domain.Document
	expires time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

// TTLCache is a map of documents with per-entry expiry.
// Expired entries are dropped when read; nothing runs in the background.
type TTLCache struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// NewTTLCache creates an empty cache.
func NewTTLCache() *TTLCache {
	return &TTLCache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get returns the cached document. A cached nil reports ok.
func (c *TTLCache) Get(key string) (*domain.Document, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if e.expired(c.now()) {
		delete(c.entries, key)
		return nil, false
	}
	return e.doc, true
}

// Put caches doc. A ttl of zero never expires.
func (c *TTLCache) Put(key string, doc *domain.Document, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := entry{doc: doc}
	if ttl > 0 {
		e.expires = c.now().Add(ttl)
	}
	c.entries[key] = e
}

// Evict removes key.
func (c *TTLCache) Evict(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len returns the number of unexpired entries.
func (c *TTLCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for _, e := range c.entries {
		if !e.expired(now) {
			n++
		}
	}
	return n
}
