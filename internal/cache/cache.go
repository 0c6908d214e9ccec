// Package cache is a byte-size-bounded LRU with TTL expiry, used to hold
// extraction results keyed by content fingerprint. TTL is measured from
// creation time, not last access: an entry can expire even if recently read.
package cache

import (
	"container/list"
	"log/slog"
	"sync"
	"time"
)

type entry[V any] struct {
	key       string
	value     V
	size      int64
	createdAt time.Time
	accessed  time.Time
}

// Cache is safe for concurrent use. The recency list keeps the least
// recently used entry at the front and the most recently used at the back.
type Cache[V any] struct {
	mu          sync.Mutex
	maxSize     int64
	ttl         time.Duration
	entries     map[string]*list.Element
	order       *list.List
	currentSize int64
	log         *slog.Logger

	now func() time.Time // overridable in tests
}

// Stats is a point-in-time snapshot of cache occupancy.
type Stats struct {
	Size    int64
	MaxSize int64
	Count   int
}

// New creates a cache holding at most maxSize bytes, expiring entries ttl
// after creation.
func New[V any](maxSize int64, ttl time.Duration, log *slog.Logger) *Cache[V] {
	return &Cache[V]{
		maxSize: maxSize,
		ttl:     ttl,
		entries: make(map[string]*list.Element),
		order:   list.New(),
		log:     log,
		now:     time.Now,
	}
}

// Get returns the cached value, refreshing its recency. An entry past its
// TTL is evicted lazily and reported as a miss.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	e := el.Value.(*entry[V])
	if c.now().Sub(e.createdAt) > c.ttl {
		c.removeLocked(el)
		return zero, false
	}
	e.accessed = c.now()
	c.order.MoveToBack(el)
	return e.value, true
}

// Set inserts a value of the given byte size, evicting least-recently-used
// entries until it fits. An entry larger than the whole cache is rejected
// with a warning and nothing is evicted for it.
func (c *Cache[V]) Set(key string, value V, size int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if size > c.maxSize {
		c.log.Warn("cache entry exceeds max cache size, not caching",
			"key", key, "entry_bytes", size, "max_bytes", c.maxSize)
		return
	}

	if el, ok := c.entries[key]; ok {
		c.removeLocked(el)
	}
	for c.currentSize+size > c.maxSize && c.order.Len() > 0 {
		c.removeLocked(c.order.Front())
	}

	now := c.now()
	el := c.order.PushBack(&entry[V]{
		key:       key,
		value:     value,
		size:      size,
		createdAt: now,
		accessed:  now,
	})
	c.entries[key] = el
	c.currentSize += size
}

// Delete removes an entry. Deleting an absent key is a no-op.
func (c *Cache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return false
	}
	c.removeLocked(el)
	return true
}

// Cleanup removes every entry past its TTL regardless of recency and
// returns the number removed. Intended for periodic invocation.
func (c *Cache[V]) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		if now.Sub(el.Value.(*entry[V]).createdAt) > c.ttl {
			c.removeLocked(el)
			removed++
		}
		el = next
	}
	return removed
}

// Clear drops all entries.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
	c.currentSize = 0
}

// Len returns the number of entries.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Size returns the tracked total byte size.
func (c *Cache[V]) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentSize
}

// Stats returns an occupancy snapshot.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Size: c.currentSize, MaxSize: c.maxSize, Count: c.order.Len()}
}

func (c *Cache[V]) removeLocked(el *list.Element) {
	e := el.Value.(*entry[V])
	c.order.Remove(el)
	delete(c.entries, e.key)
	c.currentSize -= e.size
}
