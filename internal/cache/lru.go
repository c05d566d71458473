package cache

import (
	"container/list"
	"sync"
	"time"
)

type lruEntry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

// LRU is a thread-safe in-memory LRU cache with per-entry TTL expiration.
// Expired entries are only dropped when touched.
type LRU[V any] struct {
	mu        sync.Mutex
	capacity  int
	ttl       time.Duration
	items     map[string]*list.Element
	evictList *list.List
	now       func() time.Time
}

// NewLRU creates a cache holding at most capacity entries for ttl each.
func NewLRU[V any](capacity int, ttl time.Duration) *LRU[V] {
	if capacity < 1 {
		capacity = 1
	}
	return &LRU[V]{
		capacity:  capacity,
		ttl:       ttl,
		items:     make(map[string]*list.Element),
		evictList: list.New(),
		now:       time.Now,
	}
}

// Get returns the value for key, or false if missing or expired.
func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	elem, ok := c.items[key]
	if !ok {
		return zero, false
	}

	entry := elem.Value.(*lruEntry[V])
	if !c.now().Before(entry.expiresAt) {
		c.removeElement(elem)
		return zero, false
	}

	c.evictList.MoveToFront(elem)
	return entry.value, true
}

// Set stores value under key, evicting the least recently used entry when a
// new key would exceed capacity.
func (c *LRU[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(c.ttl)
	if elem, ok := c.items[key]; ok {
		c.evictList.MoveToFront(elem)
		entry := elem.Value.(*lruEntry[V])
		entry.value = value
		entry.expiresAt = expiresAt
		return
	}

	if c.evictList.Len() >= c.capacity {
		c.evictOne()
	}

	elem := c.evictList.PushFront(&lruEntry[V]{key: key, value: value, expiresAt: expiresAt})
	c.items[key] = elem
}

// Delete removes key if present.
func (c *LRU[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
}

// Len returns the number of stored entries, expired ones included.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}

// Clear drops every entry.
func (c *LRU[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.evictList.Init()
}

// evictOne prefers dropping an already expired entry from the cold end so a
// dead entry never costs a live one its slot.
func (c *LRU[V]) evictOne() {
	now := c.now()
	for elem := c.evictList.Back(); elem != nil; elem = elem.Prev() {
		if !now.Before(elem.Value.(*lruEntry[V]).expiresAt) {
			c.removeElement(elem)
			return
		}
	}
	if oldest := c.evictList.Back(); oldest != nil {
		c.removeElement(oldest)
	}
}

func (c *LRU[V]) removeElement(elem *list.Element) {
	c.evictList.Remove(elem)
	delete(c.items, elem.Value.(*lruEntry[V]).key)
}
