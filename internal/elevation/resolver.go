// Tilemason - Geospatial Tiling and Aggregation Engine
// Copyright 2026 The Tilemason Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geoforge/tilemason

// Package elevation maintains the derived 3D dataset: per-feature heights
// and extrusion profiles used by overlay rendering. Records live apart
// from base geometry so they can be recomputed without touching the
// spatial index.
package elevation

import "sync"

// Record augments one feature with height data for 3D extrusion.
type Record struct {
	FeatureID string    `json:"feature_id"`
	Height    float64   `json:"height"`
	Profile   []float64 `json:"profile,omitempty"`
}

// Resolver answers height lookups for tile generation. Writes replace the
// whole record set atomically; tile requests only ever read.
type Resolver struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewResolver creates an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{records: make(map[string]Record)}
}

// Resolve returns the elevation record for a feature, if one is
// registered.
func (r *Resolver) Resolve(featureID string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[featureID]
	return rec, ok
}

// Apply replaces the full record set in one step. Triggered by elevation
// source ingestion, never by tile requests.
func (r *Resolver) Apply(records []Record) {
	next := make(map[string]Record, len(records))
	for _, rec := range records {
		next[rec.FeatureID] = rec
	}
	r.mu.Lock()
	r.records = next
	r.mu.Unlock()
}

// Drop removes the record for a single feature, used when the feature's
// geometry is removed.
func (r *Resolver) Drop(featureID string) {
	r.mu.Lock()
	delete(r.records, featureID)
	r.mu.Unlock()
}

// Len returns the number of registered records.
func (r *Resolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}
