package cache

import "sync"

// Cache is a generic LRU cache holding at most limit entries. Entries
// pushed out by newer ones, replaced, deleted or cleared are handed to the
// eviction callback so that GPU objects can be released.
//
// Cache is safe for concurrent use and must not be copied.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*entry[K, V]
	order   recency[K, V]
	limit   int
	onEvict func(K, V)
	stats   Stats
}

// New creates a cache. A limit of 0 means unlimited. onEvict may be nil.
func New[K comparable, V any](limit int, onEvict func(K, V)) *Cache[K, V] {
	return &Cache[K, V]{
		entries: make(map[K]*entry[K, V]),
		limit:   limit,
		onEvict: onEvict,
	}
}

// Get returns the value for key and marks it most recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		var zero V
		return zero, false
	}
	c.stats.Hits++
	c.order.touch(e)
	return e.value, true
}

// Set stores value under key, evicting the previous value and, when the
// cache is full, the least recently used entry.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		old := e.value
		e.value = value
		c.order.touch(e)
		c.evicted(key, old)
		return
	}
	c.insert(key, value)
}

// GetOrCreate returns the cached value or stores the result of create.
// create runs under the cache lock; a failed create stores nothing.
func (c *Cache[K, V]) GetOrCreate(key K, create func() (V, error)) (V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		c.stats.Hits++
		c.order.touch(e)
		return e.value, nil
	}
	c.stats.Misses++
	value, err := create()
	if err != nil {
		return value, err
	}
	c.insert(key, value)
	return value, nil
}

// Delete removes key and reports whether it was present.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return false
	}
	c.order.unlink(e)
	delete(c.entries, key)
	c.evicted(key, e.value)
	return true
}

// Clear evicts every entry, least recently used first.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for e := c.order.popBack(); e != nil; e = c.order.popBack() {
		delete(c.entries, e.key)
		c.evicted(e.key, e.value)
	}
}

// Len returns the number of entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of the cache counters.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Len = len(c.entries)
	s.Capacity = c.limit
	return s
}

// insert adds a new entry. Caller must hold c.mu.
func (c *Cache[K, V]) insert(key K, value V) {
	e := &entry[K, V]{key: key, value: value}
	c.entries[key] = e
	c.order.pushFront(e)
	for c.limit > 0 && len(c.entries) > c.limit {
		old := c.order.popBack()
		delete(c.entries, old.key)
		c.stats.Evictions++
		c.evicted(old.key, old.value)
	}
}

// evicted runs the callback. Caller must hold c.mu.
func (c *Cache[K, V]) evicted(key K, value V) {
	if c.onEvict != nil {
		c.onEvict(key, value)
	}
}

// Stats contains cache counters.
type Stats struct {
	// Len is the current number of entries.
	Len int
	// Capacity is the entry limit, 0 when unlimited.
	Capacity int
	// Hits and Misses count lookups.
	Hits   uint64
	Misses uint64
	// Evictions counts entries pushed out by the limit.
	Evictions uint64
}

// HitRate returns Hits / (Hits + Misses), 0 without lookups.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
