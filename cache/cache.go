// Package cache implements a bounded FIFO fingerprint cache mapping a
// position fingerprint to a cached evaluation, thread-safe, with
// symmetry-aware lookup during the opening.
//
// Grounded directly on original_source/src/NNCache.{h,cpp}: a single
// mutex guarding an unordered_map plus a deque recording insertion order,
// MIN_CACHE_COUNT/MAX_CACHE_COUNT clamps and set_size_from_playouts'
// "3 x playouts" heuristic. The Go translation swaps
// unordered_map+deque<key> for a map[uint64]*list.Element over a
// container/list.List, which is the idiomatic Go substitute for an
// ordered eviction queue (O(1) lookup, push and evict, same as the C++).
package cache

import (
	"container/list"
	"sync"

	"github.com/gozero/engine/eval"
)

const (
	// MinCacheCount is NNCache::MIN_CACHE_COUNT.
	MinCacheCount = 6_000
	// MaxCacheCount is NNCache::MAX_CACHE_COUNT.
	MaxCacheCount = 150_000
)

// SymmetryFunc permutes a policy vector according to one of the board's
// non-identity symmetries. The inverse maps (Symmetries.Inverse) use the
// same type. Both are supplied by the board collaborator, which alone
// knows the board's geometry.
type SymmetryFunc func(policy []float32) []float32

// Cache is the fingerprint -> Evaluation store.
type Cache struct {
	mu       sync.Mutex
	size     int
	index    map[uint64]*list.Element
	order    *list.List // list.Element.Value is *cacheEntry, insertion order, newest at back
	hits     int
	lookups  int
	inserts  int
}

type cacheEntry struct {
	key   uint64
	value eval.Evaluation
}

// New builds a Cache with the given capacity.
func New(size int) *Cache {
	if size < 1 {
		size = MaxCacheCount
	}
	return &Cache{
		size:  size,
		index: make(map[uint64]*list.Element, size),
		order: list.New(),
	}
}

// Lookup returns the cached Evaluation for key, if any.
func (c *Cache) Lookup(key uint64) (eval.Evaluation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lookups++
	el, ok := c.index[key]
	if !ok {
		return eval.Evaluation{}, false
	}
	c.hits++
	return el.Value.(*cacheEntry).value, true
}

// Insert adds key -> value if key is not already present. Re-inserting an
// existing key is a no-op.
func (c *Cache) Insert(key uint64, value eval.Evaluation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.index[key]; ok {
		return
	}
	el := c.order.PushBack(&cacheEntry{key: key, value: value})
	c.index[key] = el
	c.inserts++

	for c.order.Len() > c.size {
		oldest := c.order.Front()
		c.order.Remove(oldest)
		delete(c.index, oldest.Value.(*cacheEntry).key)
	}
}

// Resize adjusts capacity, evicting from the FIFO head until size fits.
func (c *Cache) Resize(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.size = n
	for c.order.Len() > c.size {
		oldest := c.order.Front()
		c.order.Remove(oldest)
		delete(c.index, oldest.Value.(*cacheEntry).key)
	}
}

// SetSizeFromPlayouts implements NNCache::set_size_from_playouts: cache
// entries are mostly reused within the last few moves, so size the cache
// off the playout budget rather than a flat constant.
func (c *Cache) SetSizeFromPlayouts(maxPlayouts int) {
	const numCacheMoves = 3
	const unlimitedPlayouts = int(^uint(0) >> 1) // math.MaxInt; maxPlayouts <= 0 is treated as unlimited
	maxPlayoutsPerMove := maxPlayouts
	if cap := unlimitedPlayouts / numCacheMoves; maxPlayoutsPerMove > cap || maxPlayoutsPerMove <= 0 {
		maxPlayoutsPerMove = cap
	}
	size := numCacheMoves * maxPlayoutsPerMove
	if size > MaxCacheCount {
		size = MaxCacheCount
	}
	if size < MinCacheCount {
		size = MinCacheCount
	}
	c.Resize(size)
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = make(map[uint64]*list.Element, c.size)
	c.order.Init()
}

// HitRate returns (hits, lookups).
func (c *Cache) HitRate() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.lookups
}

// Len returns the number of entries currently cached.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
