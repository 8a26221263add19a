// Tilemason - Geospatial Tiling and Aggregation Engine
// Copyright 2026 The Tilemason Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geoforge/tilemason

package geom

// Box is an axis-aligned bounding rectangle.
type Box struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// Intersects reports whether the two boxes overlap. Boxes sharing only an
// edge or corner still intersect.
func (b Box) Intersects(o Box) bool {
	return b.MinX <= o.MaxX && o.MinX <= b.MaxX &&
		b.MinY <= o.MaxY && o.MinY <= b.MaxY
}

// Contains reports whether o lies entirely inside b (edges inclusive).
func (b Box) Contains(o Box) bool {
	return o.MinX >= b.MinX && o.MaxX <= b.MaxX &&
		o.MinY >= b.MinY && o.MaxY <= b.MaxY
}

// ContainsCoord reports whether the coordinate lies inside b (edges
// inclusive).
func (b Box) ContainsCoord(c Coord) bool {
	return c.X >= b.MinX && c.X <= b.MaxX && c.Y >= b.MinY && c.Y <= b.MaxY
}

// Expand returns the smallest box covering both b and o.
func (b Box) Expand(o Box) Box {
	if o.MinX < b.MinX {
		b.MinX = o.MinX
	}
	if o.MinY < b.MinY {
		b.MinY = o.MinY
	}
	if o.MaxX > b.MaxX {
		b.MaxX = o.MaxX
	}
	if o.MaxY > b.MaxY {
		b.MaxY = o.MaxY
	}
	return b
}

// Clamp returns b intersected with o. If the boxes do not overlap the
// result is an empty box at o's nearest edge.
func (b Box) Clamp(o Box) Box {
	if b.MinX < o.MinX {
		b.MinX = o.MinX
	}
	if b.MinY < o.MinY {
		b.MinY = o.MinY
	}
	if b.MaxX > o.MaxX {
		b.MaxX = o.MaxX
	}
	if b.MaxY > o.MaxY {
		b.MaxY = o.MaxY
	}
	if b.MinX > b.MaxX {
		b.MinX = b.MaxX
	}
	if b.MinY > b.MaxY {
		b.MinY = b.MaxY
	}
	return b
}

// Width returns the horizontal extent.
func (b Box) Width() float64 { return b.MaxX - b.MinX }

// Height returns the vertical extent.
func (b Box) Height() float64 { return b.MaxY - b.MinY }

// Center returns the midpoint of the box.
func (b Box) Center() Coord {
	return Coord{X: (b.MinX + b.MaxX) / 2, Y: (b.MinY + b.MaxY) / 2}
}
