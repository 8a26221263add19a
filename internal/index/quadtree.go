// Tilemason - Geospatial Tiling and Aggregation Engine
// Copyright 2026 The Tilemason Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geoforge/tilemason

// Package index implements the in-process spatial index: a quadtree over
// the world extent mapping feature bounding boxes to feature references.
// Mutation happens through a Builder owned by the ingestion pipeline;
// readers only ever see immutable Snapshots, so a query observes either
// the pre-ingestion or the post-ingestion index in its entirety.
package index

import (
	"errors"
	"fmt"
	"sort"

	"github.com/geoforge/tilemason/internal/geom"
)

var (
	// ErrFeatureNotFound reports removal of an unknown feature id. It is
	// non-fatal and leaves the index unchanged.
	ErrFeatureNotFound = errors.New("feature not found")

	// ErrIndexCorruption reports a violated structural invariant. It is
	// fatal: the index must be rebuilt from the feature source.
	ErrIndexCorruption = errors.New("index corruption")
)

const (
	// nodeCapacity is the number of entries a leaf holds before it splits.
	nodeCapacity = 8

	// maxDepth bounds the tree height; at depth 24 a cell spans roughly
	// 2e-5 degrees, far below any realistic feature density.
	maxDepth = 24
)

// worldBounds is the fixed extent the quadtree partitions.
var worldBounds = geom.Box{MinX: -180, MinY: -90, MaxX: 180, MaxY: 90}

// item wraps a feature stored in the tree. Removal marks the item dead
// in place (a tombstone); the entry is physically dropped on the next
// rebuild.
type item struct {
	feat *geom.Feature
	// box is the feature box clamped to the world extent; node
	// containment is decided against it.
	box  geom.Box
	dead bool
}

// node is one quadtree cell. Leaves keep all their items; internal nodes
// keep only items that straddle a child boundary.
type node struct {
	box      geom.Box
	depth    int
	items    []*item
	children *[4]*node
}

// Tree is a mutable quadtree. It is not safe for concurrent use; the
// Builder serializes access and readers go through Snapshots.
type Tree struct {
	root       *node
	byID       map[string]*item
	tombstones int
}

// NewTree creates an empty quadtree over the world extent.
func NewTree() *Tree {
	return &Tree{
		root: &node{box: worldBounds},
		byID: make(map[string]*item),
	}
}

// Len returns the number of live features.
func (t *Tree) Len() int { return len(t.byID) }

// Insert adds a feature, replacing any live feature with the same id.
func (t *Tree) Insert(f *geom.Feature) {
	if old, ok := t.byID[f.ID]; ok {
		old.dead = true
		t.tombstones++
	}
	it := &item{feat: f, box: f.Box.Clamp(worldBounds)}
	t.byID[f.ID] = it
	t.root.insert(it)
	t.maybeRebuild()
}

// Remove tombstones the feature with the given id. Unknown ids return
// ErrFeatureNotFound and change nothing.
func (t *Tree) Remove(id string) error {
	it, ok := t.byID[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrFeatureNotFound, id)
	}
	it.dead = true
	t.tombstones++
	delete(t.byID, id)
	t.maybeRebuild()
	return nil
}

// Query appends to dst the ids of all live features whose bounding box
// intersects box, in no particular order. Bounding-box intersection is
// exact: no false negatives, false positives are filtered by callers via
// geometry clipping.
func (t *Tree) Query(box geom.Box, dst []string) []string {
	return t.root.query(box, dst)
}

// Feature returns the live feature with the given id.
func (t *Tree) Feature(id string) (*geom.Feature, bool) {
	it, ok := t.byID[id]
	if !ok {
		return nil, false
	}
	return it.feat, true
}

// maybeRebuild compacts the tree once tombstones reach a quarter of the
// live entry count, bounding the garbage queries have to skip.
func (t *Tree) maybeRebuild() {
	if t.tombstones == 0 || t.tombstones*4 < len(t.byID) {
		return
	}
	t.rebuild()
}

// rebuild reconstructs the tree from live items only. Insertion order is
// sorted by id so rebuilt trees are structurally deterministic.
func (t *Tree) rebuild() {
	ids := make([]string, 0, len(t.byID))
	for id := range t.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	t.root = &node{box: worldBounds}
	t.tombstones = 0
	for _, id := range ids {
		it := t.byID[id]
		fresh := &item{feat: it.feat, box: it.box}
		t.byID[id] = fresh
		t.root.insert(fresh)
	}
}

// Clone returns a compacted copy of the tree sharing the (immutable)
// feature values. Later mutations of t do not affect the clone.
func (t *Tree) Clone() *Tree {
	clone := NewTree()
	ids := make([]string, 0, len(t.byID))
	for id := range t.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		clone.Insert(t.byID[id].feat)
	}
	return clone
}

// Validate walks the tree checking structural invariants: every live item
// is contained by its node's box, reachable exactly once, and the set of
// reachable items matches the id table. A violation is returned as
// ErrIndexCorruption and means the index must be rebuilt from source.
func (t *Tree) Validate() error {
	seen := make(map[string]bool, len(t.byID))
	if err := t.root.validate(seen); err != nil {
		return err
	}
	for id := range t.byID {
		if !seen[id] {
			return fmt.Errorf("%w: feature %q not reachable from root", ErrIndexCorruption, id)
		}
	}
	for id := range seen {
		if _, ok := t.byID[id]; !ok {
			return fmt.Errorf("%w: reachable feature %q missing from id table", ErrIndexCorruption, id)
		}
	}
	return nil
}

// insert places an item at the deepest node that fully contains it.
func (n *node) insert(it *item) {
	if n.children != nil {
		if c := n.childContaining(it.box); c != nil {
			c.insert(it)
			return
		}
		n.items = append(n.items, it)
		return
	}

	n.items = append(n.items, it)
	if len(n.items) > nodeCapacity && n.depth < maxDepth {
		n.split()
	}
}

// split turns a leaf into an internal node, pushing items down into
// whichever child fully contains them. Straddlers stay put.
func (n *node) split() {
	cx := (n.box.MinX + n.box.MaxX) / 2
	cy := (n.box.MinY + n.box.MaxY) / 2
	n.children = &[4]*node{
		{box: geom.Box{MinX: n.box.MinX, MinY: n.box.MinY, MaxX: cx, MaxY: cy}, depth: n.depth + 1},
		{box: geom.Box{MinX: cx, MinY: n.box.MinY, MaxX: n.box.MaxX, MaxY: cy}, depth: n.depth + 1},
		{box: geom.Box{MinX: n.box.MinX, MinY: cy, MaxX: cx, MaxY: n.box.MaxY}, depth: n.depth + 1},
		{box: geom.Box{MinX: cx, MinY: cy, MaxX: n.box.MaxX, MaxY: n.box.MaxY}, depth: n.depth + 1},
	}

	keep := n.items[:0]
	for _, it := range n.items {
		if c := n.childContaining(it.box); c != nil {
			c.insert(it)
		} else {
			keep = append(keep, it)
		}
	}
	n.items = keep
}

// childContaining returns the child whose box fully contains b, or nil
// when b straddles a boundary.
func (n *node) childContaining(b geom.Box) *node {
	for _, c := range n.children {
		if c.box.Contains(b) {
			return c
		}
	}
	return nil
}

func (n *node) query(box geom.Box, dst []string) []string {
	if !n.box.Intersects(box) {
		return dst
	}
	for _, it := range n.items {
		if !it.dead && it.box.Intersects(box) {
			dst = append(dst, it.feat.ID)
		}
	}
	if n.children != nil {
		for _, c := range n.children {
			dst = c.query(box, dst)
		}
	}
	return dst
}

func (n *node) validate(seen map[string]bool) error {
	for _, it := range n.items {
		if it.dead {
			continue
		}
		if !n.box.Contains(it.box) {
			return fmt.Errorf("%w: feature %q box outside its node", ErrIndexCorruption, it.feat.ID)
		}
		if seen[it.feat.ID] {
			return fmt.Errorf("%w: feature %q reachable twice", ErrIndexCorruption, it.feat.ID)
		}
		seen[it.feat.ID] = true
	}
	if n.children != nil {
		for _, c := range n.children {
			if !n.box.Contains(c.box) {
				return fmt.Errorf("%w: child node escapes parent bounds", ErrIndexCorruption)
			}
			if err := c.validate(seen); err != nil {
				return err
			}
		}
	}
	return nil
}
