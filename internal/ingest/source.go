// Tilemason - Geospatial Tiling and Aggregation Engine
// Copyright 2026 The Tilemason Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geoforge/tilemason

// Package ingest is the batch/streaming path that loads raw records,
// normalizes them into the geometry model, and publishes updated index
// snapshots. It is the only writer of the spatial index and the only
// place the dataset version is bumped.
package ingest

import "context"

// RawRecord is one dynamic record from the feature source: a mapping of
// field name to value. Expected fields: "id" (string, generated when
// absent), "geometry" (GeoJSON object), "attributes" (map of scalars).
// Nothing dynamic survives past this package.
type RawRecord map[string]any

// ElevationRow is one row from the elevation source.
type ElevationRow struct {
	FeatureID string    `json:"feature_id"`
	Height    float64   `json:"height"`
	Profile   []float64 `json:"profile,omitempty"`
}

// FeatureSource is the external spatially-indexed store features are
// pulled from. Implementations perform the actual I/O; the pipeline only
// consumes the records.
type FeatureSource interface {
	FetchFeatures(ctx context.Context, datasetID string) ([]RawRecord, error)
}

// ElevationSource supplies the derived 3D dataset.
type ElevationSource interface {
	FetchElevation(ctx context.Context, datasetID string) ([]ElevationRow, error)
}
