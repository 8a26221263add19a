// Tilemason - Geospatial Tiling and Aggregation Engine
// Copyright 2026 The Tilemason Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geoforge/tilemason

package index

import "github.com/geoforge/tilemason/internal/geom"

// Builder is the single-writer handle to the index. The ingestion
// pipeline mutates it under its own lock and publishes the result as a
// Snapshot; nothing else ever writes.
type Builder struct {
	tree *Tree
}

// NewBuilder creates an empty index builder.
func NewBuilder() *Builder {
	return &Builder{tree: NewTree()}
}

// Insert adds or replaces a feature by id.
func (b *Builder) Insert(f *geom.Feature) {
	b.tree.Insert(f)
}

// Remove deletes a feature by id, returning ErrFeatureNotFound for
// unknown ids.
func (b *Builder) Remove(id string) error {
	return b.tree.Remove(id)
}

// Len returns the number of live features.
func (b *Builder) Len() int {
	return b.tree.Len()
}

// Reset discards all state, used when rebuilding after corruption.
func (b *Builder) Reset() {
	b.tree = NewTree()
}

// Snapshot produces an immutable, compacted copy of the current index
// state. The snapshot shares feature values (which are read-only) but no
// tree structure, so further Builder mutations never leak into it.
func (b *Builder) Snapshot() *Snapshot {
	return &Snapshot{tree: b.tree.Clone()}
}

// Snapshot is a read-only view of the index at one point in time. It is
// safe for unlimited concurrent readers.
type Snapshot struct {
	tree *Tree
}

// EmptySnapshot returns a snapshot with no features, the state served
// before the first ingestion batch.
func EmptySnapshot() *Snapshot {
	return &Snapshot{tree: NewTree()}
}

// Query returns the ids of features whose bounding box intersects box.
func (s *Snapshot) Query(box geom.Box) []string {
	return s.tree.Query(box, nil)
}

// Feature returns the feature with the given id.
func (s *Snapshot) Feature(id string) (*geom.Feature, bool) {
	return s.tree.Feature(id)
}

// Len returns the number of features in the snapshot.
func (s *Snapshot) Len() int {
	return s.tree.Len()
}

// Validate checks the structural invariants of the snapshot's tree.
func (s *Snapshot) Validate() error {
	return s.tree.Validate()
}
