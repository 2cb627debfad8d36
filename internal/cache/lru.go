package cache

import (
	"container/list"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/bsvm/resource"
)

// EntryBytes is the memory charged per cached value.
const EntryBytes = 64

// PairKey identifies an unordered pair of vector IDs.
type PairKey struct {
	Lo, Hi uint64
}

// Pair returns the canonical key for the IDs a and b.
func Pair(a, b uint64) PairKey {
	if a > b {
		a, b = b, a
	}
	return PairKey{Lo: a, Hi: b}
}

type entry struct {
	key   PairKey
	value float64
}

// KernelCache is an LRU of kernel values. It is safe for concurrent use.
type KernelCache struct {
	mu        sync.Mutex
	capacity  int
	items     map[PairKey]*list.Element
	evictList *list.List
	rc        *resource.Controller

	hits   atomic.Int64
	misses atomic.Int64
}

// NewKernelCache creates a cache holding at most capacity values.
// A non-positive capacity yields a cache that stores nothing.
func NewKernelCache(capacity int, rc *resource.Controller) *KernelCache {
	return &KernelCache{
		capacity:  capacity,
		items:     make(map[PairKey]*list.Element),
		evictList: list.New(),
		rc:        rc,
	}
}

// Get returns the cached value for the pair (a, b).
func (c *KernelCache) Get(a, b uint64) (float64, bool) {
	if c == nil {
		return 0, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[Pair(a, b)]; ok {
		c.hits.Add(1)
		c.evictList.MoveToFront(ent)
		return ent.Value.(*entry).value, true
	}
	c.misses.Add(1)
	return 0, false
}

// Put caches value for the pair (a, b).
func (c *KernelCache) Put(a, b uint64, value float64) {
	if c == nil || c.capacity <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	key := Pair(a, b)
	if ent, ok := c.items[key]; ok {
		ent.Value.(*entry).value = value
		c.evictList.MoveToFront(ent)
		return
	}

	for c.evictList.Len() >= c.capacity {
		c.removeElement(c.evictList.Back())
	}

	// Never block a kernel evaluation on cache memory.
	if !c.rc.TryAcquireMemory(EntryBytes) {
		return
	}

	c.items[key] = c.evictList.PushFront(&entry{key: key, value: value})
}

// GetOrCompute returns the cached value or computes, caches and returns it.
func (c *KernelCache) GetOrCompute(a, b uint64, compute func() (float64, error)) (float64, error) {
	if v, ok := c.Get(a, b); ok {
		return v, nil
	}
	v, err := compute()
	if err != nil {
		return 0, err
	}
	c.Put(a, b, v)
	return v, nil
}

// Forget drops every entry involving id.
func (c *KernelCache) Forget(id uint64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	var stale []*list.Element
	for key, ent := range c.items {
		if key.Lo == id || key.Hi == id {
			stale = append(stale, ent)
		}
	}
	for _, ent := range stale {
		c.removeElement(ent)
	}
}

// Reset drops every entry.
func (c *KernelCache) Reset() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.evictList.Len() > 0 {
		c.removeElement(c.evictList.Back())
	}
}

func (c *KernelCache) removeElement(e *list.Element) {
	c.evictList.Remove(e)
	delete(c.items, e.Value.(*entry).key)
	c.rc.ReleaseMemory(EntryBytes)
}

// Len returns the number of cached values.
func (c *KernelCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}

// Stats returns the hit and miss counters.
func (c *KernelCache) Stats() (hits, misses int64) {
	if c == nil {
		return 0, 0
	}
	return c.hits.Load(), c.misses.Load()
}
