package ai

import (
	"container/list"
	"sync"
)

// vectorCache is an LRU cache of embeddings keyed by text, so re-ingesting
// overlapping chunks or repeating a question skips inference.
type vectorCache struct {
	capacity int
	entries  map[string]*list.Element
	lru      *list.List
	mu       sync.Mutex
}

type vectorCacheEntry struct {
	key   string
	value []float32
}

func newVectorCache(capacity int) *vectorCache {
	if capacity <= 0 {
		capacity = 1024
	}
	return &vectorCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		lru:      list.New(),
	}
}

func (c *vectorCache) get(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[key]; ok {
		c.lru.MoveToFront(elem)
		return elem.Value.(*vectorCacheEntry).value, true
	}
	return nil, false
}

func (c *vectorCache) set(key string, value []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*vectorCacheEntry).value = value
		return
	}
	elem := c.lru.PushFront(&vectorCacheEntry{key: key, value: value})
	c.entries[key] = elem
	if c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		if oldest != nil {
			c.lru.Remove(oldest)
			delete(c.entries, oldest.Value.(*vectorCacheEntry).key)
		}
	}
}
