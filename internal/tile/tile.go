// Tilemason - Geospatial Tiling and Aggregation Engine
// Copyright 2026 The Tilemason Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geoforge/tilemason

package tile

import (
	"github.com/goccy/go-json"

	"github.com/geoforge/tilemason/internal/geom"
)

// EncodingVersion identifies the payload wire format. Bump it whenever
// the encoded byte layout changes, since cached tiles are compared by
// bytes.
const EncodingVersion = 1

// Coordinate is one [x, y] pair in tile-local normalized space.
type Coordinate [2]float64

// Fragment is one clipped, simplified piece of a feature inside a tile.
// Coordinates are normalized to [0,1] x [0,1] with (0,0) at the tile's
// north-west corner. Points carry one run of one coordinate, lines one
// run per fragment, polygons one run per ring (exterior first).
type Fragment struct {
	FeatureID  string         `json:"id"`
	Type       geom.Type      `json:"type"`
	Runs       [][]Coordinate `json:"runs"`
	Attributes map[string]any `json:"attributes,omitempty"`
	Height     *float64       `json:"height,omitempty"`
}

// Tile is an immutable generated payload: the key it was built for, the
// dataset version it was built against, and the ordered fragments.
// Staleness is handled by version mismatch, never by in-place update.
type Tile struct {
	Encoding  int        `json:"encoding"`
	Z         int        `json:"z"`
	X         int        `json:"x"`
	Y         int        `json:"y"`
	Version   uint64     `json:"version"`
	Fragments []Fragment `json:"fragments"`
}

// Encode serializes the tile to its canonical byte form. Struct fields
// encode in declaration order and attribute map keys sort
// lexicographically, so encoding the same tile twice yields identical
// bytes.
func (t *Tile) Encode() ([]byte, error) {
	return json.Marshal(t)
}

// Decode parses a previously encoded tile payload.
func Decode(data []byte) (*Tile, error) {
	var t Tile
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}
