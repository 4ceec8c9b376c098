// Package basemap proxies and caches the background raster tiles.
package basemap

import (
	"container/list"
	"sync"
	"time"
)

// TileKey addresses one XYZ tile.
type TileKey struct {
	Z, X, Y int
}

// Cache is an LRU tile cache with TTL expiry. It is safe for concurrent use.
type Cache struct {
	mu         sync.Mutex
	entries    map[TileKey]*list.Element
	lru        *list.List // front = most recently used
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
}

type cacheEntry struct {
	key       TileKey
	data      []byte
	createdAt time.Time
}

// NewCache creates a cache holding at most maxEntries tiles for ttl each.
func NewCache(maxEntries int, ttl time.Duration) *Cache {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	return &Cache{
		entries:    make(map[TileKey]*list.Element),
		lru:        list.New(),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
	}
}

// Get returns a cached tile, or nil on miss or expiry.
func (c *Cache) Get(k TileKey) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[k]
	if !ok {
		return nil
	}
	e := el.Value.(*cacheEntry)
	if c.ttl > 0 && c.now().Sub(e.createdAt) > c.ttl {
		c.lru.Remove(el)
		delete(c.entries, k)
		return nil
	}
	c.lru.MoveToFront(el)
	return e.data
}

// Put stores a tile, evicting the least recently used one at capacity.
func (c *Cache) Put(k TileKey, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[k]; ok {
		el.Value = &cacheEntry{key: k, data: data, createdAt: c.now()}
		c.lru.MoveToFront(el)
		return
	}
	for c.lru.Len() >= c.maxEntries {
		oldest := c.lru.Back()
		c.lru.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
	c.entries[k] = c.lru.PushFront(&cacheEntry{key: k, data: data, createdAt: c.now()})
}

// Len reports the number of cached tiles.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
