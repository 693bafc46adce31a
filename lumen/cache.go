package lumen

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

const cacheShardCount = 64

// ComputedCache memoizes derived artifacts (parsed requests, task lists,
// simulation results) within a single audit run. Keys are structural
// hashes built by the caller via Key, never object identity, and the cache
// is handed through the pipeline explicitly rather than living in package
// state. Callers clear it between independent runs.
//
// Sharded with xxhash distribution to keep lock contention down when the
// metric estimators run concurrently.
type ComputedCache struct {
	shards [cacheShardCount]cacheShard
}

type cacheShard struct {
	mu    sync.RWMutex
	table map[uint64]any
}

// NewComputedCache creates an empty cache scoped to one audit run.
func NewComputedCache() *ComputedCache {
	return &ComputedCache{}
}

// Key builds a cache key from the structural identity of an input: hash
// whatever uniquely describes it (file path, option string, node count).
func (c *ComputedCache) Key(parts ...string) uint64 {
	h := xxhash.New()
	for _, p := range parts {
		_, _ = h.WriteString(p)
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}

// Get returns the cached artifact for key, if any.
func (c *ComputedCache) Get(key uint64) (any, bool) {
	shard := &c.shards[key%cacheShardCount]
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	if shard.table == nil {
		return nil, false
	}
	v, ok := shard.table[key]
	return v, ok
}

// Put stores an artifact under key, replacing any previous value.
func (c *ComputedCache) Put(key uint64, v any) {
	shard := &c.shards[key%cacheShardCount]
	shard.mu.Lock()
	defer shard.mu.Unlock()
	if shard.table == nil {
		shard.table = make(map[uint64]any)
	}
	shard.table[key] = v
}

// Clear drops every cached artifact. Call between independent audit runs.
func (c *ComputedCache) Clear() {
	for i := range c.shards {
		shard := &c.shards[i]
		shard.mu.Lock()
		shard.table = nil
		shard.mu.Unlock()
	}
}
