// Package hashcache implements the bounded memo cache that maps a
// normalised string to its min-hash vector.
//
// Entries are evicted oldest-inserted first once the cache is full, so a
// lookup for a retained key always returns the vector stored for it and an
// overflow only ever drops whole entries. Stored vectors are shared with
// callers and must be treated as read-only.
package hashcache

import (
	"container/list"
	"sync"

	"github.com/paveg/tabprep/internal/monitoring"
)

// DefaultCapacity is the number of vectors a cache keeps when no capacity is given.
const DefaultCapacity = 1024

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Entries   int
	Capacity  int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

type entry struct {
	key string
	vec []float64
}

// Cache is a thread-safe bounded map from string to vector.
type Cache struct {
	mu       sync.Mutex
	order    *list.List               // front is the oldest entry
	index    map[string]*list.Element // key → order element
	capacity int

	hits      uint64
	misses    uint64
	evictions uint64
}

// New creates a Cache holding at most capacity entries.
// A non-positive capacity selects DefaultCapacity.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		order:    list.New(),
		index:    make(map[string]*list.Element),
		capacity: capacity,
	}
}

// Get returns the vector stored under key.
func (c *Cache) Get(key string) ([]float64, bool) {
	c.mu.Lock()
	elem, ok := c.index[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	c.mu.Unlock()

	monitoring.RecordCacheLookup(ok)
	if !ok {
		return nil, false
	}
	return elem.Value.(*entry).vec, true
}

// Put stores vec under key, evicting the oldest entry when the cache is full.
// An existing key keeps its stored vector.
func (c *Cache) Put(key string, vec []float64) {
	c.mu.Lock()
	evicted := c.putLocked(key, vec)
	c.mu.Unlock()

	monitoring.RecordCacheEvictions(evicted)
}

// GetOrCompute returns the stored vector for key, or computes, stores and
// returns it. compute runs without the lock held.
func (c *Cache) GetOrCompute(key string, compute func() []float64) []float64 {
	if vec, ok := c.Get(key); ok {
		return vec
	}
	vec := compute()
	c.Put(key, vec)
	return vec
}

// Absorb inserts the entries of each shard in shard order.
func (c *Cache) Absorb(shards ...*Shard) {
	evicted := 0
	c.mu.Lock()
	for _, s := range shards {
		if s == nil {
			continue
		}
		for _, key := range s.keys {
			evicted += c.putLocked(key, s.vecs[key])
		}
	}
	c.mu.Unlock()

	monitoring.RecordCacheEvictions(evicted)
}

func (c *Cache) putLocked(key string, vec []float64) int {
	if _, ok := c.index[key]; ok {
		return 0
	}
	evicted := 0
	for c.order.Len() >= c.capacity {
		oldest := c.order.Front()
		delete(c.index, oldest.Value.(*entry).key)
		c.order.Remove(oldest)
		c.evictions++
		evicted++
	}
	c.index[key] = c.order.PushBack(&entry{key: key, vec: vec})
	return evicted
}

// Len returns the current number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Capacity returns the maximum number of entries.
func (c *Cache) Capacity() int {
	return c.capacity
}

// Keys returns the cached keys, oldest first.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, c.order.Len())
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		keys = append(keys, elem.Value.(*entry).key)
	}
	return keys
}

// Snapshot returns a copy of the key → vector mapping.
func (c *Cache) Snapshot() map[string][]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string][]float64, c.order.Len())
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		e := elem.Value.(*entry)
		out[e.key] = e.vec
	}
	return out
}

// Clone returns an independent cache with the same capacity and entries.
// Counters start from zero.
func (c *Cache) Clone() *Cache {
	c.mu.Lock()
	defer c.mu.Unlock()

	clone := New(c.capacity)
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		e := elem.Value.(*entry)
		clone.index[e.key] = clone.order.PushBack(&entry{key: e.key, vec: e.vec})
	}
	return clone
}

// Stats returns a point-in-time snapshot of cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Entries:   c.order.Len(),
		Capacity:  c.capacity,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

// Union returns a cache holding every key of the given caches. Its capacity
// is large enough that no key is dropped. For duplicate keys the first
// cache's vector is kept.
func Union(caches ...*Cache) *Cache {
	capacity := 0
	seen := make(map[string]struct{})
	for _, c := range caches {
		if c == nil {
			continue
		}
		capacity = max(capacity, c.Capacity())
		for _, key := range c.Keys() {
			seen[key] = struct{}{}
		}
	}
	capacity = max(capacity, len(seen))

	out := New(capacity)
	for _, c := range caches {
		if c == nil {
			continue
		}
		c.mu.Lock()
		for elem := c.order.Front(); elem != nil; elem = elem.Next() {
			e := elem.Value.(*entry)
			out.putLocked(e.key, e.vec)
		}
		c.mu.Unlock()
	}
	return out
}
