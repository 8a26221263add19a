// Tilemason - Geospatial Tiling and Aggregation Engine
// Copyright 2026 The Tilemason Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geoforge/tilemason

package geom

import "math"

// Simplify reduces the coordinate count of g with Douglas-Peucker at the
// given tolerance. Endpoints are always preserved and rings keep their
// closure, so the operation is deterministic for a given input. The
// result may be degenerate (too few points, zero area); callers decide
// whether to drop it, Simplify reports that via the second return value.
func Simplify(g Geometry, tolerance float64) (Geometry, bool) {
	if tolerance <= 0 {
		return g, !isDegenerate(g)
	}
	switch v := g.(type) {
	case Point:
		return v, true
	case LineString:
		coords := douglasPeucker(v.Coords, tolerance)
		if len(coords) < 2 || zeroLength(coords) {
			return nil, false
		}
		return LineString{Coords: coords}, true
	case Polygon:
		rings := make([][]Coord, 0, len(v.Rings))
		for i, ring := range v.Rings {
			simplified := douglasPeucker(ring, tolerance)
			if len(simplified) < 4 || ringArea(simplified[:len(simplified)-1]) == 0 {
				if i == 0 {
					// Exterior collapsed, drop the whole polygon.
					return nil, false
				}
				continue
			}
			rings = append(rings, simplified)
		}
		return Polygon{Rings: rings}, true
	default:
		return nil, false
	}
}

// isDegenerate reports whether g has no renderable extent.
func isDegenerate(g Geometry) bool {
	switch v := g.(type) {
	case LineString:
		return len(v.Coords) < 2 || zeroLength(v.Coords)
	case Polygon:
		ring := v.Rings[0]
		return len(ring) < 4 || ringArea(ring[:len(ring)-1]) == 0
	default:
		return false
	}
}

// zeroLength reports whether every coordinate of the run coincides.
func zeroLength(coords []Coord) bool {
	for _, c := range coords[1:] {
		if c != coords[0] {
			return false
		}
	}
	return true
}

// douglasPeucker keeps the first and last coordinates and recursively
// retains the most distant intermediate point above tolerance.
func douglasPeucker(coords []Coord, tolerance float64) []Coord {
	if len(coords) <= 2 {
		return coords
	}

	first, last := coords[0], coords[len(coords)-1]
	maxDist := -1.0
	maxIdx := 0
	for i := 1; i < len(coords)-1; i++ {
		if d := perpendicularDistance(coords[i], first, last); d > maxDist {
			maxDist = d
			maxIdx = i
		}
	}

	if maxDist <= tolerance {
		return []Coord{first, last}
	}

	left := douglasPeucker(coords[:maxIdx+1], tolerance)
	right := douglasPeucker(coords[maxIdx:], tolerance)
	return append(left[:len(left)-1], right...)
}

// perpendicularDistance measures the distance from p to the segment a-b.
// When a and b coincide it degrades to point distance.
func perpendicularDistance(p, a, b Coord) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	if dx == 0 && dy == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}
	// Distance from point to infinite line, then clamp to the segment.
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / (dx*dx + dy*dy)
	switch {
	case t < 0:
		t = 0
	case t > 1:
		t = 1
	}
	cx := a.X + t*dx
	cy := a.Y + t*dy
	return math.Hypot(p.X-cx, p.Y-cy)
}
