package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRUCache is a bounded map with per-entry TTL. The least recently used
// entry is evicted when the cache is full.
type LRUCache[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*list.Element
	lru     *list.List
	now     func() time.Time

	evictions int64
}

type cacheItem[T any] struct {
	key       string
	data      T
	expiresAt time.Time
}

var _ Cache[int] = (*LRUCache[int])(nil)

// NewLRUCache creates a new LRU cache with TTL
func NewLRUCache[T any](maxSize int, ttl time.Duration) *LRUCache[T] {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &LRUCache[T]{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
		now:     time.Now,
	}
}

// Get retrieves a value from the cache
func (c *LRUCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.lookup(key)
	if !ok {
		var zero T
		return zero, false
	}
	return item.data, true
}

// Set stores a value in the cache and restarts its TTL.
func (c *LRUCache[T]) Set(key string, data T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store(key, data, c.now().Add(c.ttl))
}

// Update applies fn to the current value of key under the cache lock and
// stores the result. fn receives ok=false when the key is absent or
// expired; in that case the entry gets a fresh TTL, otherwise it keeps its
// original expiry.
func (c *LRUCache[T]) Update(key string, fn func(current T, ok bool) T) T {
	c.mu.Lock()
	defer c.mu.Unlock()

	if item, ok := c.lookup(key); ok {
		item.data = fn(item.data, true)
		return item.data
	}
	var zero T
	data := fn(zero, false)
	c.store(key, data, c.now().Add(c.ttl))
	return data
}

// Delete removes a key from the cache
func (c *LRUCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.items[key]; exists {
		c.removeElement(elem)
	}
}

// lookup returns the live item for key and marks it most recently used.
// Expired items are dropped. Callers hold c.mu.
func (c *LRUCache[T]) lookup(key string) (*cacheItem[T], bool) {
	elem, exists := c.items[key]
	if !exists {
		return nil, false
	}
	item := elem.Value.(*cacheItem[T])
	if c.now().After(item.expiresAt) {
		c.removeElement(elem)
		return nil, false
	}
	c.lru.MoveToFront(elem)
	return item, true
}

func (c *LRUCache[T]) store(key string, data T, expiresAt time.Time) {
	item := &cacheItem[T]{key: key, data: data, expiresAt: expiresAt}
	if elem, exists := c.items[key]; exists {
		elem.Value = item
		c.lru.MoveToFront(elem)
		return
	}

	c.items[key] = c.lru.PushFront(item)
	if c.lru.Len() > c.maxSize {
		if oldest := c.lru.Back(); oldest != nil {
			c.removeElement(oldest)
			c.evictions++
		}
	}
}

func (c *LRUCache[T]) removeElement(elem *list.Element) {
	item := elem.Value.(*cacheItem[T])
	delete(c.items, item.key)
	c.lru.Remove(elem)
}

// CleanExpired removes all expired entries and returns count of removed items
func (c *LRUCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for elem := c.lru.Back(); elem != nil; {
		prev := elem.Prev()
		if now.After(elem.Value.(*cacheItem[T]).expiresAt) {
			c.removeElement(elem)
			removed++
		}
		elem = prev
	}
	return removed
}

// Size returns the current number of items in the cache
func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Evictions returns how many entries were dropped for capacity.
func (c *LRUCache[T]) Evictions() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictions
}
