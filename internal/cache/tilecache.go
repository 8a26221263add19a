// Tilemason - Geospatial Tiling and Aggregation Engine
// Copyright 2026 The Tilemason Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geoforge/tilemason

// Package cache memoizes generated tile payloads keyed by (tile key,
// dataset version) with a bounded-capacity LRU. Staleness is handled by
// the version component of the key: after an ingestion-driven version
// bump every lookup for the new version misses naturally, no purge
// required, though PruneStale can reclaim the memory eagerly.
package cache

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/geoforge/tilemason/internal/metrics"
	"github.com/geoforge/tilemason/internal/tile"
)

// entry is a node in the LRU's doubly-linked list.
type entry struct {
	key     string
	version uint64
	data    []byte
	prev    *entry
	next    *entry
}

// TileCache is a thread-safe LRU over encoded tile payloads with O(1)
// get, put, and eviction. A doubly-linked list tracks recency and a map
// provides lookup; head.next is the most recently used entry.
type TileCache struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*entry
	head     *entry
	tail     *entry

	group singleflight.Group

	hits   int64
	misses int64
}

// DefaultCapacity bounds the cache when no capacity is configured.
const DefaultCapacity = 4096

// New creates a tile cache with the given entry capacity.
func New(capacity int) *TileCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &TileCache{
		capacity: capacity,
		items:    make(map[string]*entry, capacity),
		head:     &entry{},
		tail:     &entry{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// cacheKey combines tile key and dataset version; a version bump changes
// every key, which is what invalidates stale tiles.
func cacheKey(key tile.Key, version uint64) string {
	return fmt.Sprintf("%d:%s", version, key)
}

// Get returns the cached payload for (key, version). A lookup for a
// version no longer current simply misses because the composite key
// differs.
func (c *TileCache) Get(key tile.Key, version uint64) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[cacheKey(key, version)]
	if !ok {
		c.misses++
		metrics.TileCacheMisses.Inc()
		return nil, false
	}
	c.moveToFront(e)
	c.hits++
	metrics.TileCacheHits.Inc()
	return e.data, true
}

// Put stores a payload for (key, version), evicting the least recently
// used entry when over capacity.
func (c *TileCache) Put(key tile.Key, version uint64, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ck := cacheKey(key, version)
	if e, ok := c.items[ck]; ok {
		e.data = data
		c.moveToFront(e)
		return
	}

	e := &entry{key: ck, version: version, data: data}
	c.addToFront(e)
	c.items[ck] = e

	for len(c.items) > c.capacity {
		c.evictOldest()
	}
	metrics.TileCacheSize.Set(float64(len(c.items)))
}

// GetOrGenerate returns the cached payload or invokes generate exactly
// once for all concurrent callers of the same (key, version); the other
// callers block and share the single result. Failed generations are not
// cached, so a retry runs generate again.
func (c *TileCache) GetOrGenerate(key tile.Key, version uint64, generate func() ([]byte, error)) ([]byte, error) {
	if data, ok := c.Get(key, version); ok {
		return data, nil
	}

	ck := cacheKey(key, version)
	v, err, shared := c.group.Do(ck, func() (any, error) {
		// Re-check: a concurrent caller may have populated the cache
		// between the miss above and entering the group.
		if data, ok := c.Get(key, version); ok {
			return data, nil
		}
		data, err := generate()
		if err != nil {
			return nil, err
		}
		c.Put(key, version, data)
		return data, nil
	})
	if shared {
		metrics.TileRequestsCoalesced.Inc()
	}
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// PruneStale drops every entry built against a version older than
// current. Version keying already makes those entries unreachable
// through Get; pruning bounds the memory they occupy until eviction
// would get to them.
func (c *TileCache) PruneStale(current uint64) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for e := c.tail.prev; e != c.head; {
		prev := e.prev
		if e.version < current {
			c.remove(e)
			removed++
		}
		e = prev
	}
	metrics.TileCacheSize.Set(float64(len(c.items)))
	return removed
}

// Len returns the current number of cached tiles.
func (c *TileCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns hit/miss counters and current size.
func (c *TileCache) Stats() (hits, misses int64, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, len(c.items)
}

// Internal list operations, called with mu held.

func (c *TileCache) addToFront(e *entry) {
	e.prev = c.head
	e.next = c.head.next
	c.head.next.prev = e
	c.head.next = e
}

func (c *TileCache) moveToFront(e *entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	c.addToFront(e)
}

func (c *TileCache) remove(e *entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	delete(c.items, e.key)
}

func (c *TileCache) evictOldest() {
	oldest := c.tail.prev
	if oldest == c.head {
		return
	}
	c.remove(oldest)
	metrics.TileCacheEvictions.Inc()
}
