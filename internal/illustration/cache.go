package illustration

import (
	"container/list"
	"log/slog"
	"sync"
	"time"
)

// Cache holds successful illustration URLs keyed by (prompt, style). It is
// the only structure shared across turns in a process: entries expire after
// the TTL, the least recently used entry is evicted beyond the size bound,
// and expired entries are swept on every access. All operations are safe
// under concurrent readers and writers.
type Cache struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	entries    map[string]*list.Element
	order      *list.List // front is most recently used
	logger     *slog.Logger
	now        func() time.Time
}

type cacheEntry struct {
	key      string
	url      string
	storedAt time.Time
}

func NewCache(maxEntries int, ttl time.Duration) *Cache {
	return &Cache{
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		logger:     slog.Default().With("component", "illustration_cache"),
		now:        time.Now,
	}
}

func cacheKey(prompt, style string) string {
	return prompt + "\x00" + style
}

// Get returns the cached URL for (prompt, style) if present and fresh.
// A hit promotes the entry to most recently used.
func (c *Cache) Get(prompt, style string) (string, bool) {
	key := cacheKey(prompt, style)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweepLocked()

	elem, ok := c.entries[key]
	if !ok {
		return "", false
	}
	c.order.MoveToFront(elem)
	entry := elem.Value.(*cacheEntry)
	c.logger.Debug("illustration cache hit",
		"age", c.now().Sub(entry.storedAt),
		"entries", len(c.entries))
	return entry.url, true
}

// Set stores a successful URL, evicting the least recently used entry when
// the cache is full.
func (c *Cache) Set(prompt, style, url string) {
	key := cacheKey(prompt, style)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweepLocked()

	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.url = url
		entry.storedAt = c.now()
		c.order.MoveToFront(elem)
		return
	}

	for len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, url: url, storedAt: c.now()})
}

// Len reports the current number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweepLocked()
	return len(c.entries)
}

func (c *Cache) sweepLocked() {
	cutoff := c.now().Add(-c.ttl)
	for elem := c.order.Back(); elem != nil; {
		prev := elem.Prev()
		entry := elem.Value.(*cacheEntry)
		if entry.storedAt.Before(cutoff) {
			c.order.Remove(elem)
			delete(c.entries, entry.key)
		}
		elem = prev
	}
}

func (c *Cache) evictOldestLocked() {
	elem := c.order.Back()
	if elem == nil {
		return
	}
	entry := elem.Value.(*cacheEntry)
	c.order.Remove(elem)
	delete(c.entries, entry.key)
	c.logger.Debug("evicted least recently used illustration", "entries", len(c.entries))
}
