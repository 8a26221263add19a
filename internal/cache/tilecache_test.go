// Tilemason - Geospatial Tiling and Aggregation Engine
// Copyright 2026 The Tilemason Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geoforge/tilemason

package cache

import (
	"bytes"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/geoforge/tilemason/internal/tile"
)

func mustKey(t *testing.T, z, x, y int) tile.Key {
	t.Helper()
	k, err := tile.NewKey(z, x, y)
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	return k
}

func TestTileCache_PutGet(t *testing.T) {
	t.Parallel()

	c := New(4)
	k := mustKey(t, 3, 1, 2)
	c.Put(k, 1, []byte("payload"))

	got, ok := c.Get(k, 1)
	if !ok || !bytes.Equal(got, []byte("payload")) {
		t.Errorf("Get = %q, %v; want payload, true", got, ok)
	}

	// Same tile under a different version is a distinct entry.
	if _, ok := c.Get(k, 2); ok {
		t.Error("Get with bumped version should miss")
	}
}

func TestTileCache_EvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	c := New(2)
	a := mustKey(t, 2, 0, 0)
	b := mustKey(t, 2, 1, 0)
	d := mustKey(t, 2, 2, 0)

	c.Put(a, 1, []byte("a"))
	c.Put(b, 1, []byte("b"))

	// Touch a so b becomes the eviction candidate.
	if _, ok := c.Get(a, 1); !ok {
		t.Fatal("a should be cached")
	}
	c.Put(d, 1, []byte("d"))

	if _, ok := c.Get(b, 1); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.Get(a, 1); !ok {
		t.Error("a should still be cached")
	}
	if _, ok := c.Get(d, 1); !ok {
		t.Error("d should be cached")
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestTileCache_PruneStale(t *testing.T) {
	t.Parallel()

	c := New(10)
	k1 := mustKey(t, 4, 1, 1)
	k2 := mustKey(t, 4, 2, 2)
	k3 := mustKey(t, 4, 3, 3)
	c.Put(k1, 1, []byte("old"))
	c.Put(k2, 2, []byte("old"))
	c.Put(k3, 3, []byte("current"))

	removed := c.PruneStale(3)
	if removed != 2 {
		t.Errorf("PruneStale removed %d, want 2", removed)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
	if _, ok := c.Get(k3, 3); !ok {
		t.Error("current-version entry should survive pruning")
	}
}

func TestTileCache_GetOrGenerate_CoalescesConcurrentCallers(t *testing.T) {
	t.Parallel()

	c := New(10)
	k := mustKey(t, 6, 10, 20)

	var generations atomic.Int32
	generate := func() ([]byte, error) {
		generations.Add(1)
		time.Sleep(50 * time.Millisecond)
		return []byte("generated"), nil
	}

	const callers = 16
	var wg sync.WaitGroup
	results := make([][]byte, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.GetOrGenerate(k, 1, generate)
		}(i)
	}
	wg.Wait()

	if n := generations.Load(); n != 1 {
		t.Errorf("generate ran %d times, want 1", n)
	}
	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if !bytes.Equal(results[i], []byte("generated")) {
			t.Errorf("caller %d got %q", i, results[i])
		}
	}
}

func TestTileCache_GetOrGenerate_ErrorNotCached(t *testing.T) {
	t.Parallel()

	c := New(10)
	k := mustKey(t, 1, 0, 1)
	boom := errors.New("boom")

	calls := 0
	if _, err := c.GetOrGenerate(k, 1, func() ([]byte, error) {
		calls++
		return nil, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	// The failure must not poison the cache; the retry generates again.
	data, err := c.GetOrGenerate(k, 1, func() ([]byte, error) {
		calls++
		return []byte("ok"), nil
	})
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !bytes.Equal(data, []byte("ok")) || calls != 2 {
		t.Errorf("retry got %q after %d calls, want ok after 2", data, calls)
	}
}

func TestTileCache_PutSameKeyReplaces(t *testing.T) {
	t.Parallel()

	c := New(2)
	k := mustKey(t, 0, 0, 0)
	c.Put(k, 1, []byte("one"))
	c.Put(k, 1, []byte("two"))

	got, ok := c.Get(k, 1)
	if !ok || !bytes.Equal(got, []byte("two")) {
		t.Errorf("Get = %q, want two", got)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestTileCache_Stats(t *testing.T) {
	t.Parallel()

	c := New(2)
	k := mustKey(t, 0, 0, 0)
	c.Put(k, 1, []byte("x"))
	c.Get(k, 1)
	c.Get(k, 2)

	hits, misses, size := c.Stats()
	if hits != 1 || misses != 1 || size != 1 {
		t.Errorf("Stats = %d hits, %d misses, %d entries; want 1, 1, 1", hits, misses, size)
	}
}
