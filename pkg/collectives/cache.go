package collectives

import (
	"sync"

	"github.com/gomlx/collectives/backends"
	"github.com/gomlx/collectives/pkg/core/sched"
)

// Cached is a cacheable schedule and the events it returned when it was built.
type Cached struct {
	Schedule *sched.Schedule
	Events   []backends.Event
}

// Cache of schedules, keyed by the caller's cache key (coll.Attr.CacheKey).
//
// It's safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]Cached
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]Cached)}
}

// Get returns the schedule cached with key.
func (c *Cache) Get(key string) (Cached, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, found := c.entries[key]
	return entry, found
}

// Put caches the schedule with key. If key is already cached, the first schedule is kept and
// returned, and s is released.
func (c *Cache) Put(key string, s *sched.Schedule, events []backends.Event) Cached {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, found := c.entries[key]; found {
		s.Release()
		return entry
	}
	entry := Cached{Schedule: s, Events: events}
	c.entries[key] = entry
	return entry
}

// Len returns the number of cached schedules.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Release all the cached schedules, and empty the cache.
func (c *Cache) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, entry := range c.entries {
		entry.Schedule.Release()
	}
	clear(c.entries)
}
