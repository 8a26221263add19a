// Tilemason - Geospatial Tiling and Aggregation Engine
// Copyright 2026 The Tilemason Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geoforge/tilemason

package geom

// Feature is a geometry with an identity and an attribute bag. The
// bounding box is computed once at creation and never changes afterwards;
// replacing geometry means replacing the whole Feature. After ingestion a
// Feature is owned by the spatial index and read-only to everyone else.
type Feature struct {
	ID         string
	Geometry   Geometry
	Attributes map[string]any
	Box        Box
}

// NewFeature builds a Feature and freezes its bounding box. Attribute
// values are expected to be scalars (string, float64, int64, bool);
// normalization happens at the ingestion boundary.
func NewFeature(id string, g Geometry, attrs map[string]any) *Feature {
	return &Feature{
		ID:         id,
		Geometry:   g,
		Attributes: attrs,
		Box:        g.Bounds(),
	}
}
