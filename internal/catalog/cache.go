package catalog

import (
	"sync"
	"time"
)

// Cache holds parsed service records keyed by service name.
//
// Every Set and Evict bumps a per-key generation. A loader captures the
// generation before reading the backing record and fills the cache only if it
// is unchanged, so a slow read can never overwrite a newer write or resurrect
// an evicted entry.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	gens    map[string]uint64
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	svc      *ServiceConfig
	storedAt time.Time
}

// NewCache creates a cache. A ttl of 0 keeps entries until they are evicted.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]cacheEntry),
		gens:    make(map[string]uint64),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached record for name. The returned value must not be mutated.
func (c *Cache) Get(name string) (*ServiceConfig, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[name]
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(entry.storedAt) >= c.ttl {
		return nil, false
	}
	return entry.svc, true
}

// Generation returns the current generation for name.
func (c *Cache) Generation(name string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gens[name]
}

// Set stores svc unconditionally.
func (c *Cache) Set(name string, svc *ServiceConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gens[name]++
	c.entries[name] = cacheEntry{svc: svc, storedAt: c.now()}
}

// Fill stores svc only if no Set or Evict happened for name since gen was read.
func (c *Cache) Fill(name string, svc *ServiceConfig, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gens[name] != gen {
		return false
	}
	c.entries[name] = cacheEntry{svc: svc, storedAt: c.now()}
	return true
}

// Evict removes the given names.
func (c *Cache) Evict(names ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, name := range names {
		c.gens[name]++
		delete(c.entries, name)
	}
}

// Clear evicts everything. Called on shutdown.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for name := range c.entries {
		c.gens[name]++
	}
	c.entries = make(map[string]cacheEntry)
}

// Len returns the number of cached records, including expired ones not yet replaced.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
