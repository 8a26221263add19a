// Tilemason - Geospatial Tiling and Aggregation Engine
// Copyright 2026 The Tilemason Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geoforge/tilemason

// Package engine assembles the tiling core: it holds the published
// (snapshot, version) pair, serves tile requests through the cache and a
// bounded worker pool, and receives snapshot publications from the
// ingestion pipeline.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/geoforge/tilemason/internal/cache"
	"github.com/geoforge/tilemason/internal/index"
	"github.com/geoforge/tilemason/internal/logging"
	"github.com/geoforge/tilemason/internal/metrics"
	"github.com/geoforge/tilemason/internal/tile"
	"github.com/geoforge/tilemason/internal/tilestore"
)

// ErrBusy reports that the worker pool and its queue are saturated. The
// request was shed without side effects and may be retried.
var ErrBusy = errors.New("engine busy")

// published pairs a snapshot with its version. Swapped atomically as one
// value so a reader never sees a version from one publication and a
// snapshot from another.
type published struct {
	snap    *index.Snapshot
	version uint64
}

// Generator produces a tile for a key against one snapshot and version.
// Satisfied by *tile.Generator.
type Generator interface {
	Generate(snap *index.Snapshot, key tile.Key, version uint64) (*tile.Tile, error)
}

// Options tunes the engine's cache and worker pool.
type Options struct {
	// CacheCapacity bounds the in-memory tile cache.
	CacheCapacity int

	// MaxConcurrentGenerations bounds how many tile generations run at
	// once.
	MaxConcurrentGenerations int

	// MaxQueuedRequests bounds how many requests may wait for a worker
	// slot before new arrivals are shed with ErrBusy.
	MaxQueuedRequests int
}

// DefaultOptions returns the pool settings used when none are
// configured.
func DefaultOptions() Options {
	return Options{
		CacheCapacity:            cache.DefaultCapacity,
		MaxConcurrentGenerations: 8,
		MaxQueuedRequests:        64,
	}
}

// Engine serves tiles against the latest published snapshot. Tile
// requests are read-only and lock-free on the snapshot path; the only
// mutation is the atomic publication swap.
type Engine struct {
	current   atomic.Pointer[published]
	publishMu sync.Mutex

	generator Generator
	cache     *cache.TileCache
	store     *tilestore.Store

	workers *semaphore.Weighted
	waiting atomic.Int64
	opts    Options
}

// New creates an engine serving the empty snapshot at version 0. The
// store may be nil when tile persistence is disabled.
func New(generator Generator, store *tilestore.Store, opts Options) *Engine {
	def := DefaultOptions()
	if opts.CacheCapacity <= 0 {
		opts.CacheCapacity = def.CacheCapacity
	}
	if opts.MaxConcurrentGenerations <= 0 {
		opts.MaxConcurrentGenerations = def.MaxConcurrentGenerations
	}
	if opts.MaxQueuedRequests < 0 {
		opts.MaxQueuedRequests = def.MaxQueuedRequests
	}

	e := &Engine{
		generator: generator,
		cache:     cache.New(opts.CacheCapacity),
		store:     store,
		workers:   semaphore.NewWeighted(int64(opts.MaxConcurrentGenerations)),
		opts:      opts,
	}
	e.current.Store(&published{snap: index.EmptySnapshot(), version: 0})
	return e
}

// Current returns the published snapshot and its version.
func (e *Engine) Current() (*index.Snapshot, uint64) {
	p := e.current.Load()
	return p.snap, p.version
}

// Version returns the current dataset version.
func (e *Engine) Version() uint64 {
	return e.current.Load().version
}

// Publish makes snap the served snapshot under the next version and
// returns that version. Publications are serialized; in-flight tile
// requests keep the pair they loaded and finish against it.
func (e *Engine) Publish(snap *index.Snapshot) uint64 {
	e.publishMu.Lock()
	defer e.publishMu.Unlock()

	version := e.current.Load().version + 1
	e.current.Store(&published{snap: snap, version: version})

	metrics.DatasetVersion.Set(float64(version))
	metrics.IndexFeatures.Set(float64(snap.Len()))

	pruned := e.cache.PruneStale(version)
	if e.store != nil {
		if removed, err := e.store.PruneVersion(version); err != nil {
			logging.Err(err).Str("component", "engine").Msg("pruning persistent tile store failed")
		} else {
			pruned += removed
		}
	}

	logging.Info().
		Str("component", "engine").
		Uint64("version", version).
		Int("features", snap.Len()).
		Int("tiles_pruned", pruned).
		Msg("snapshot published")
	return version
}

// GetTile returns the encoded payload for tile z/x/y against the current
// dataset version. The cache is consulted first; on a miss the request
// takes a worker slot (or joins an in-flight generation for the same
// tile) and generates against the snapshot loaded up front, so a
// concurrent publication never mixes versions within one payload.
//
// Invalid keys return tile.ErrTileOutOfRange. A saturated pool returns
// ErrBusy without generating anything.
func (e *Engine) GetTile(ctx context.Context, z, x, y int) ([]byte, uint64, error) {
	key, err := tile.NewKey(z, x, y)
	if err != nil {
		return nil, 0, err
	}

	// One load pins both snapshot and version for the whole request.
	p := e.current.Load()

	if data, ok := e.cache.Get(key, p.version); ok {
		return data, p.version, nil
	}

	if !e.workers.TryAcquire(1) {
		// All workers busy; wait only while the queue has room.
		if e.waiting.Load() >= int64(e.opts.MaxQueuedRequests) {
			metrics.TileRequestsRejected.Inc()
			return nil, 0, fmt.Errorf("%w: %d requests queued", ErrBusy, e.opts.MaxQueuedRequests)
		}
		e.waiting.Add(1)
		err = e.workers.Acquire(ctx, 1)
		e.waiting.Add(-1)
		if err != nil {
			return nil, 0, fmt.Errorf("acquire generation slot: %w", err)
		}
	}
	defer e.workers.Release(1)

	data, err := e.cache.GetOrGenerate(key, p.version, func() ([]byte, error) {
		return e.generate(p, key)
	})
	if err != nil {
		return nil, 0, err
	}
	return data, p.version, nil
}

// generate builds and encodes one tile, consulting the persistent store
// before doing the work and writing back after.
func (e *Engine) generate(p *published, key tile.Key) ([]byte, error) {
	if e.store != nil {
		if data, ok, err := e.store.Get(key, p.version); err == nil && ok {
			return data, nil
		}
	}

	t, err := e.generator.Generate(p.snap, key, p.version)
	if err != nil {
		return nil, err
	}
	data, err := t.Encode()
	if err != nil {
		return nil, fmt.Errorf("%w: encode %s: %v", tile.ErrGenerationFailure, key, err)
	}

	if e.store != nil {
		if err := e.store.Put(key, p.version, data); err != nil {
			logging.Err(err).
				Str("component", "engine").
				Str("tile", key.String()).
				Msg("persisting tile failed")
		}
	}
	return data, nil
}

// ValidateIndex checks the published snapshot's structural invariants,
// returning index.ErrIndexCorruption when they do not hold.
func (e *Engine) ValidateIndex() error {
	return e.current.Load().snap.Validate()
}

// CacheStats exposes cache counters for the status endpoint.
func (e *Engine) CacheStats() (hits, misses int64, size int) {
	return e.cache.Stats()
}
