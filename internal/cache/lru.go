package cache

import (
	"container/list"
	"sync"
	"time"
)

// Stats is a point-in-time view of an LRUCache's counters.
type Stats struct {
	Hits    uint64
	Misses  uint64
	Evicted uint64 // dropped to stay within capacity
	Expired uint64 // dropped because their TTL ran out
	Entries int
}

// LRUCache is a size-bounded cache whose entries also expire after a TTL.
// The least recently read entry is the first to go when it is full.
type LRUCache[T any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	index    map[string]*list.Element
	order    *list.List // front is most recently used
	now      func() time.Time
	stats    Stats
}

type entry[T any] struct {
	key     string
	value   T
	expires time.Time
}

func (e *entry[T]) stale(now time.Time) bool { return now.After(e.expires) }

// NewLRUCache returns a cache holding at most capacity entries, each for
// ttl. Capacities below one hold a single entry.
func NewLRUCache[T any](capacity int, ttl time.Duration) *LRUCache[T] {
	return &LRUCache[T]{
		capacity: max(capacity, 1),
		ttl:      ttl,
		index:    make(map[string]*list.Element),
		order:    list.New(),
		now:      time.Now,
	}
}

// Get returns the live value for key. An expired entry is dropped and
// counted as a miss.
func (c *LRUCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.index[key]; ok {
		e := elem.Value.(*entry[T])
		if !e.stale(c.now()) {
			c.order.MoveToFront(elem)
			c.stats.Hits++
			return e.value, true
		}
		c.drop(elem)
		c.stats.Expired++
	}
	c.stats.Misses++
	var zero T
	return zero, false
}

// Set stores value under key with a fresh TTL, evicting the least recently
// used entry when the cache is over capacity.
func (c *LRUCache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := &entry[T]{key: key, value: value, expires: c.now().Add(c.ttl)}
	if elem, ok := c.index[key]; ok {
		elem.Value = e
		c.order.MoveToFront(elem)
		return
	}
	c.index[key] = c.order.PushFront(e)

	for c.order.Len() > c.capacity {
		c.drop(c.order.Back())
		c.stats.Evicted++
	}
}

// Delete removes key and reports whether it was present.
func (c *LRUCache[T]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.index[key]
	if ok {
		c.drop(elem)
	}
	return ok
}

// CleanExpired drops every expired entry and returns how many went.
func (c *LRUCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for elem := c.order.Back(); elem != nil; {
		prev := elem.Prev()
		if elem.Value.(*entry[T]).stale(now) {
			c.drop(elem)
			removed++
		}
		elem = prev
	}
	c.stats.Expired += uint64(removed)
	return removed
}

// Size returns the number of entries, expired or not.
func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.index)
}

// Stats returns the counters accumulated since creation.
func (c *LRUCache[T]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Entries = len(c.index)
	return s
}

func (c *LRUCache[T]) drop(elem *list.Element) {
	delete(c.index, elem.Value.(*entry[T]).key)
	c.order.Remove(elem)
}
