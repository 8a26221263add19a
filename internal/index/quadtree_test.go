// Tilemason - Geospatial Tiling and Aggregation Engine
// Copyright 2026 The Tilemason Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geoforge/tilemason

package index

import (
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/geoforge/tilemason/internal/geom"
)

func pointFeature(id string, x, y float64) *geom.Feature {
	return geom.NewFeature(id, geom.NewPoint(x, y), nil)
}

func queryIDs(t *Tree, box geom.Box) []string {
	ids := t.Query(box, nil)
	sort.Strings(ids)
	return ids
}

func TestTree_InsertAndQuery(t *testing.T) {
	t.Parallel()

	tree := NewTree()
	tree.Insert(pointFeature("a", 10, 10))
	tree.Insert(pointFeature("b", -50, 20))
	tree.Insert(pointFeature("c", 10.5, 10.5))

	got := queryIDs(tree, geom.Box{MinX: 9, MinY: 9, MaxX: 11, MaxY: 11})
	if len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Errorf("Query = %v, want [a c]", got)
	}

	if got := queryIDs(tree, geom.Box{MinX: 100, MinY: 50, MaxX: 120, MaxY: 60}); len(got) != 0 {
		t.Errorf("empty region: Query = %v, want none", got)
	}
}

func TestTree_QueryExactOnBoxEdges(t *testing.T) {
	t.Parallel()

	tree := NewTree()
	tree.Insert(pointFeature("edge", 5, 5))

	// A feature sitting exactly on the query box edge must be returned.
	got := queryIDs(tree, geom.Box{MinX: 5, MinY: 5, MaxX: 6, MaxY: 6})
	if len(got) != 1 || got[0] != "edge" {
		t.Errorf("Query = %v, want [edge]", got)
	}
}

func TestTree_ReplaceByID(t *testing.T) {
	t.Parallel()

	tree := NewTree()
	tree.Insert(pointFeature("x", 0, 0))
	tree.Insert(pointFeature("x", 40, 40))

	if tree.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", tree.Len())
	}
	if got := queryIDs(tree, geom.Box{MinX: -1, MinY: -1, MaxX: 1, MaxY: 1}); len(got) != 0 {
		t.Errorf("old location still queryable: %v", got)
	}
	if got := queryIDs(tree, geom.Box{MinX: 39, MinY: 39, MaxX: 41, MaxY: 41}); len(got) != 1 {
		t.Errorf("new location not queryable: %v", got)
	}
}

func TestTree_RemoveUnknown(t *testing.T) {
	t.Parallel()

	tree := NewTree()
	tree.Insert(pointFeature("a", 1, 1))

	err := tree.Remove("missing")
	if !errors.Is(err, ErrFeatureNotFound) {
		t.Errorf("Remove(missing) = %v, want ErrFeatureNotFound", err)
	}
	if tree.Len() != 1 {
		t.Errorf("Len() = %d after failed remove, want 1", tree.Len())
	}
}

func TestTree_RemoveThenQuery(t *testing.T) {
	t.Parallel()

	tree := NewTree()
	tree.Insert(pointFeature("a", 1, 1))
	tree.Insert(pointFeature("b", 2, 2))

	if err := tree.Remove("a"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	got := queryIDs(tree, geom.Box{MinX: 0, MinY: 0, MaxX: 3, MaxY: 3})
	if len(got) != 1 || got[0] != "b" {
		t.Errorf("Query = %v, want [b]", got)
	}
	if _, ok := tree.Feature("a"); ok {
		t.Error("Feature(a) still resolvable after removal")
	}
}

func TestTree_SplitAndDeepQuery(t *testing.T) {
	t.Parallel()

	// Enough clustered points to force several splits.
	tree := NewTree()
	for i := 0; i < 200; i++ {
		x := 10 + float64(i)*0.01
		tree.Insert(pointFeature(fmt.Sprintf("p%03d", i), x, 10))
	}

	got := queryIDs(tree, geom.Box{MinX: 10, MinY: 9, MaxX: 10.5, MaxY: 11})
	if len(got) != 51 {
		t.Errorf("Query returned %d features, want 51", len(got))
	}
	if err := tree.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestTree_StraddlersStayQueryable(t *testing.T) {
	t.Parallel()

	tree := NewTree()
	// A feature spanning the root's center never fits a child cell and
	// stays on an internal node after splits.
	wide, err := geom.NewLineString([]geom.Coord{{X: -30, Y: -30}, {X: 30, Y: 30}})
	if err != nil {
		t.Fatalf("NewLineString: %v", err)
	}
	tree.Insert(geom.NewFeature("wide", wide, nil))
	for i := 0; i < 100; i++ {
		tree.Insert(pointFeature(fmt.Sprintf("p%03d", i), float64(i), 45))
	}

	got := queryIDs(tree, geom.Box{MinX: -1, MinY: -1, MaxX: 1, MaxY: 1})
	if len(got) != 1 || got[0] != "wide" {
		t.Errorf("Query = %v, want [wide]", got)
	}
}

func TestTree_RebuildCompactsTombstones(t *testing.T) {
	t.Parallel()

	tree := NewTree()
	for i := 0; i < 100; i++ {
		tree.Insert(pointFeature(fmt.Sprintf("p%03d", i), float64(i), 0))
	}
	for i := 0; i < 60; i++ {
		if err := tree.Remove(fmt.Sprintf("p%03d", i)); err != nil {
			t.Fatalf("Remove: %v", err)
		}
	}

	if tree.Len() != 40 {
		t.Fatalf("Len() = %d, want 40", tree.Len())
	}
	// Deletions past the rebuild threshold compacted the tree.
	if tree.tombstones != 0 {
		t.Errorf("tombstones = %d after heavy deletion, want 0", tree.tombstones)
	}
	got := queryIDs(tree, geom.Box{MinX: -1, MinY: -1, MaxX: 200, MaxY: 1})
	if len(got) != 40 {
		t.Errorf("Query returned %d features, want 40", len(got))
	}
	if err := tree.Validate(); err != nil {
		t.Errorf("Validate after rebuild: %v", err)
	}
}

func TestTree_WorldEdgeFeature(t *testing.T) {
	t.Parallel()

	tree := NewTree()
	// Feature boxes are clamped to the world extent, so an out-of-range
	// coordinate still indexes at the edge.
	tree.Insert(pointFeature("edge", 180, 90))
	got := queryIDs(tree, geom.Box{MinX: 179, MinY: 89, MaxX: 180, MaxY: 90})
	if len(got) != 1 {
		t.Errorf("Query = %v, want [edge]", got)
	}
	if err := tree.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestTree_ValidateDetectsEscapedItem(t *testing.T) {
	t.Parallel()

	tree := NewTree()
	tree.Insert(pointFeature("a", 0, 0))

	// Corrupt the tree directly: move the item's box outside its node.
	tree.byID["a"].box = geom.Box{MinX: 200, MinY: 95, MaxX: 201, MaxY: 96}
	if err := tree.Validate(); !errors.Is(err, ErrIndexCorruption) {
		t.Errorf("Validate = %v, want ErrIndexCorruption", err)
	}
}
