package cache

import (
	"container/list"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/songrec/internal/resource"
)

// LRU is a least-recently-used cache safe for concurrent use.
type LRU[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	items    map[K]*list.Element
	order    *list.List
	sizeOf   func(V) int64
	rc       *resource.Controller

	hits   atomic.Int64
	misses atomic.Int64
}

type entry[K comparable, V any] struct {
	key   K
	value V
	size  int64
}

// NewLRU creates a cache holding at most capacity entries.
// sizeOf reports the bytes an entry charges against rc; both may be nil.
func NewLRU[K comparable, V any](capacity int, sizeOf func(V) int64, rc *resource.Controller) *LRU[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	return &LRU[K, V]{
		capacity: capacity,
		items:    make(map[K]*list.Element),
		order:    list.New(),
		sizeOf:   sizeOf,
		rc:       rc,
	}
}

// Get returns the cached value for key and marks it recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.hits.Add(1)
		c.order.MoveToFront(el)
		return el.Value.(*entry[K, V]).value, true
	}
	c.misses.Add(1)
	var zero V
	return zero, false
}

// Add caches value under key, evicting the least recently used entries when
// full. It reports whether the value was cached.
func (c *LRU[K, V]) Add(key K, value V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	var size int64
	if c.sizeOf != nil {
		size = c.sizeOf(value)
	}

	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
	for c.order.Len() >= c.capacity {
		c.removeElement(c.order.Back())
	}
	if c.rc != nil && c.rc.AcquireMemory(size) != nil {
		return false
	}

	c.items[key] = c.order.PushFront(&entry[K, V]{key: key, value: value, size: size})
	return true
}

// Remove drops key from the cache.
func (c *LRU[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if ok {
		c.removeElement(el)
	}
	return ok
}

// Purge drops every entry.
func (c *LRU[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for c.order.Len() > 0 {
		c.removeElement(c.order.Back())
	}
}

// Len returns the number of cached entries.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns the hit and miss counts of Get.
func (c *LRU[K, V]) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *LRU[K, V]) removeElement(el *list.Element) {
	e := c.order.Remove(el).(*entry[K, V])
	delete(c.items, e.key)
	c.rc.ReleaseMemory(e.size)
}
