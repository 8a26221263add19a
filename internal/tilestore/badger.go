// Tilemason - Geospatial Tiling and Aggregation Engine
// Copyright 2026 The Tilemason Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geoforge/tilemason

// Package tilestore persists generated tile payloads in BadgerDB so warm
// tiles survive restarts. It sits behind the in-memory cache: consulted
// on a cache miss, written after generation, pruned by version when the
// dataset moves on.
package tilestore

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/geoforge/tilemason/internal/tile"
)

// tileKeyPrefix namespaces tile payloads in the key space.
const tileKeyPrefix = "tile:"

// Store is a BadgerDB-backed tile payload store.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) a store at the given path. An empty path opens
// an in-memory store, used in tests.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts = opts.WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open tile store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// storeKey renders the Badger key for a tile. The version leads so that
// PruneVersion can drop a whole dataset generation by prefix.
func storeKey(key tile.Key, version uint64) []byte {
	return fmt.Appendf(nil, "%s%d:%s", tileKeyPrefix, version, key)
}

// Get returns the stored payload for (key, version), or ok=false when
// absent.
func (s *Store) Get(key tile.Key, version uint64) ([]byte, bool, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(storeKey(key, version))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get tile: %w", err)
	}
	return data, true, nil
}

// Put stores a payload for (key, version).
func (s *Store) Put(key tile.Key, version uint64, data []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(storeKey(key, version), data)
	})
	if err != nil {
		return fmt.Errorf("put tile: %w", err)
	}
	return nil
}

// PruneVersion deletes every payload built against a version older than
// current. Returns the number of payloads removed.
func (s *Store) PruneVersion(current uint64) (int, error) {
	removed := 0
	err := s.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: false, Prefix: []byte(tileKeyPrefix)})
		defer it.Close()

		var stale [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			k := it.Item().KeyCopy(nil)
			var version uint64
			var rest string
			if _, err := fmt.Sscanf(string(k[len(tileKeyPrefix):]), "%d:%s", &version, &rest); err != nil {
				continue
			}
			if version < current {
				stale = append(stale, k)
			}
		}
		for _, k := range stale {
			if err := txn.Delete(k); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("prune tiles: %w", err)
	}
	return removed, nil
}
