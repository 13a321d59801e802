package cache

import (
	"container/list"
	"sync"
	"time"
)

type slot[K comparable, V any] struct {
	key      K
	value    V
	deadline time.Time
}

// TTLCache: a size-bounded LRU whose entries expire after a fixed lifetime.
// It backs the HTTP rate limiter, the in-process menu cache and the credential cache.
type TTLCache[K comparable, V any] struct {
	mu       sync.Mutex
	lifetime time.Duration
	capacity int
	recency  *list.List // front is most recently used
	index    map[K]*list.Element
	now      func() time.Time
}

// NewTTLCache: creates a cache holding at most capacity entries for lifetime each.
// Non-positive arguments are raised to one entry and one second.
func NewTTLCache[K comparable, V any](capacity int, lifetime time.Duration) *TTLCache[K, V] {
	return &TTLCache[K, V]{
		lifetime: max(lifetime, time.Second),
		capacity: max(capacity, 1),
		recency:  list.New(),
		index:    make(map[K]*list.Element),
		now:      time.Now,
	}
}

// Get: returns a live entry and marks it recently used.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s := c.lookup(key); s != nil {
		return s.value, true
	}
	var zero V
	return zero, false
}

// Set: stores value and restarts its lifetime.
func (c *TTLCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.insert(key, value)
}

// Update: replaces the value under key with fn(current, found). A live entry keeps its
// deadline, so counters stored this way reset only when the entry expires.
func (c *TTLCache[K, V]) Update(key K, fn func(current V, found bool) V) V {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s := c.lookup(key); s != nil {
		s.value = fn(s.value, true)
		return s.value
	}
	var zero V
	value := fn(zero, false)
	c.insert(key, value)
	return value
}

// Delete: removes key if present.
func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.index[key]; ok {
		c.drop(el)
	}
}

// Sweep: removes every expired entry and returns how many were dropped.
func (c *TTLCache[K, V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	dropped := 0
	for el := c.recency.Back(); el != nil; {
		prev := el.Prev()
		if now.After(el.Value.(*slot[K, V]).deadline) {
			c.drop(el)
			dropped++
		}
		el = prev
	}
	return dropped
}

func (c *TTLCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.index)
}

// lookup: returns the live slot for key, evicting it when expired.
func (c *TTLCache[K, V]) lookup(key K) *slot[K, V] {
	el, ok := c.index[key]
	if !ok {
		return nil
	}
	s := el.Value.(*slot[K, V])
	if c.now().After(s.deadline) {
		c.drop(el)
		return nil
	}
	c.recency.MoveToFront(el)
	return s
}

func (c *TTLCache[K, V]) insert(key K, value V) {
	deadline := c.now().Add(c.lifetime)
	if el, ok := c.index[key]; ok {
		s := el.Value.(*slot[K, V])
		s.value, s.deadline = value, deadline
		c.recency.MoveToFront(el)
		return
	}

	c.index[key] = c.recency.PushFront(&slot[K, V]{key: key, value: value, deadline: deadline})
	for len(c.index) > c.capacity {
		c.drop(c.recency.Back())
	}
}

func (c *TTLCache[K, V]) drop(el *list.Element) {
	c.recency.Remove(el)
	delete(c.index, el.Value.(*slot[K, V]).key)
}
