// nodecache.go adapts the teacher's cache/memory package (an LRU over
// github.com/hashicorp/golang-lru/v2) into the Loaded-link cache consulted
// by Merk.Get's allowCache flag and by the commit-time prune policy: a
// node whose key is hot in the cache is kept Loaded rather than demoted
// to Reference.
package merk

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// NodeCache is an in-memory LRU of recently-touched node keys. Unlike the
// teacher's cache.IndexTermCache (which caches parsed values), NodeCache
// only needs presence/recency, so it stores a zero-size marker per key.
type NodeCache struct {
	lru *lru.Cache[string, struct{}]
	mu  sync.RWMutex
}

// NewNodeCache creates a node cache holding at most size recently-touched
// keys.
func NewNodeCache(size int) (*NodeCache, error) {
	l, err := lru.New[string, struct{}](size)
	if err != nil {
		return nil, err
	}
	return &NodeCache{lru: l}, nil
}

// Touch marks key as recently used.
func (c *NodeCache) Touch(key []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(string(key), struct{}{})
}

// Contains reports whether key is currently hot in the cache.
func (c *NodeCache) Contains(key []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lru.Contains(string(key))
}

// ShouldPrune implements PrunePolicy: a node stays resident (not pruned)
// iff it's hot in the cache.
func (c *NodeCache) ShouldPrune(key []byte, _ int) bool {
	return !c.Contains(key)
}
