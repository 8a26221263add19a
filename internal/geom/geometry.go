// Tilemason - Geospatial Tiling and Aggregation Engine
// Copyright 2026 The Tilemason Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geoforge/tilemason

// Package geom holds the canonical in-memory geometry model: tagged
// point/line/polygon variants, bounding boxes, clipping, and
// simplification. Everything downstream (index, tile generator) builds on
// these types; raw source records never survive past the ingestion
// boundary in any other shape.
package geom

import (
	"errors"
	"fmt"
)

// ErrInvalidGeometry reports malformed coordinate data. It is always
// wrapped with detail and reported per record, never fatal to a batch.
var ErrInvalidGeometry = errors.New("invalid geometry")

// Type tags a geometry variant.
type Type string

const (
	TypePoint      Type = "Point"
	TypeLineString Type = "LineString"
	TypePolygon    Type = "Polygon"
)

// Coord is a single x/y coordinate pair (longitude/latitude in world
// space, normalized units in tile space).
type Coord struct {
	X float64
	Y float64
}

// Geometry is the tagged union over the three variants. Implementations
// are immutable after construction.
type Geometry interface {
	Type() Type
	Bounds() Box
}

// Point is a single coordinate.
type Point struct {
	Coord Coord
}

// LineString is an ordered sequence of at least two coordinates.
type LineString struct {
	Coords []Coord
}

// Polygon is an ordered sequence of closed rings; the first ring is the
// exterior, any further rings are holes.
type Polygon struct {
	Rings [][]Coord
}

// NewPoint constructs a Point.
func NewPoint(x, y float64) Point {
	return Point{Coord: Coord{X: x, Y: y}}
}

// NewLineString constructs a LineString, validating that it has at least
// two coordinates.
func NewLineString(coords []Coord) (LineString, error) {
	if len(coords) < 2 {
		return LineString{}, fmt.Errorf("%w: linestring needs >= 2 points, got %d", ErrInvalidGeometry, len(coords))
	}
	return LineString{Coords: coords}, nil
}

// NewPolygon constructs a Polygon. Every ring must be closed (first
// coordinate equal to the last) and carry at least four coordinate pairs.
func NewPolygon(rings [][]Coord) (Polygon, error) {
	if len(rings) == 0 {
		return Polygon{}, fmt.Errorf("%w: polygon needs at least one ring", ErrInvalidGeometry)
	}
	for i, ring := range rings {
		if len(ring) < 4 {
			return Polygon{}, fmt.Errorf("%w: ring %d needs >= 4 coordinate pairs, got %d", ErrInvalidGeometry, i, len(ring))
		}
		if ring[0] != ring[len(ring)-1] {
			return Polygon{}, fmt.Errorf("%w: ring %d is not closed", ErrInvalidGeometry, i)
		}
	}
	return Polygon{Rings: rings}, nil
}

// Type implements Geometry.
func (p Point) Type() Type { return TypePoint }

// Type implements Geometry.
func (l LineString) Type() Type { return TypeLineString }

// Type implements Geometry.
func (p Polygon) Type() Type { return TypePolygon }

// Bounds implements Geometry.
func (p Point) Bounds() Box {
	return Box{MinX: p.Coord.X, MinY: p.Coord.Y, MaxX: p.Coord.X, MaxY: p.Coord.Y}
}

// Bounds implements Geometry.
func (l LineString) Bounds() Box {
	return boundsOf(l.Coords)
}

// Bounds implements Geometry. The exterior ring determines the box; holes
// lie inside it by definition.
func (p Polygon) Bounds() Box {
	return boundsOf(p.Rings[0])
}

// boundsOf computes the axis-aligned bounding box of a coordinate run.
func boundsOf(coords []Coord) Box {
	b := Box{MinX: coords[0].X, MinY: coords[0].Y, MaxX: coords[0].X, MaxY: coords[0].Y}
	for _, c := range coords[1:] {
		if c.X < b.MinX {
			b.MinX = c.X
		}
		if c.X > b.MaxX {
			b.MaxX = c.X
		}
		if c.Y < b.MinY {
			b.MinY = c.Y
		}
		if c.Y > b.MaxY {
			b.MaxY = c.Y
		}
	}
	return b
}
