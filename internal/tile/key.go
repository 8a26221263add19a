// Tilemason - Geospatial Tiling and Aggregation Engine
// Copyright 2026 The Tilemason Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geoforge/tilemason

// Package tile holds the tile addressing scheme, the tile generator, and
// the payload codec. A tile is a fixed rectangular slice of the map at a
// zoom level, addressed by (z, x, y) in the standard 2^z x 2^z Web
// Mercator grid.
package tile

import (
	"errors"
	"fmt"
	"math"

	"github.com/geoforge/tilemason/internal/geom"
)

// ErrTileOutOfRange reports z/x/y outside the valid range for that zoom.
// No generation is attempted for such keys.
var ErrTileOutOfRange = errors.New("tile out of range")

// MaxZoom is the deepest zoom level served.
const MaxZoom = 22

// Key addresses one tile. Immutable value type; used together with the
// dataset version as the cache key.
type Key struct {
	Z int
	X int
	Y int
}

// NewKey validates and constructs a tile key.
func NewKey(z, x, y int) (Key, error) {
	if z < 0 || z > MaxZoom {
		return Key{}, fmt.Errorf("%w: zoom %d", ErrTileOutOfRange, z)
	}
	max := 1 << uint(z)
	if x < 0 || x >= max || y < 0 || y >= max {
		return Key{}, fmt.Errorf("%w: %d/%d/%d", ErrTileOutOfRange, z, x, y)
	}
	return Key{Z: z, X: x, Y: y}, nil
}

// String renders the key as z/x/y.
func (k Key) String() string {
	return fmt.Sprintf("%d/%d/%d", k.Z, k.X, k.Y)
}

// Bounds calculates the geographic bounds for the tile using the Web
// Mercator projection (EPSG:3857): the world is divided into 2^z x 2^z
// cells, y growing southwards.
func (k Key) Bounds() geom.Box {
	n := math.Pow(2, float64(k.Z))

	minLon := float64(k.X)/n*360.0 - 180.0
	maxLon := float64(k.X+1)/n*360.0 - 180.0

	minLatRad := math.Atan(math.Sinh(math.Pi * (1 - 2*float64(k.Y+1)/n)))
	maxLatRad := math.Atan(math.Sinh(math.Pi * (1 - 2*float64(k.Y)/n)))

	return geom.Box{
		MinX: minLon,
		MinY: minLatRad * 180.0 / math.Pi,
		MaxX: maxLon,
		MaxY: maxLatRad * 180.0 / math.Pi,
	}
}

// SimplifyTolerance returns the pixel-equivalent simplification tolerance
// for this tile: one 256th of the tile's width, so coarser zooms simplify
// more aggressively in proportion to 1/2^z.
func (k Key) SimplifyTolerance() float64 {
	return k.Bounds().Width() / 256.0
}
