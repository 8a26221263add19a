// Tilemason - Geospatial Tiling and Aggregation Engine
// Copyright 2026 The Tilemason Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geoforge/tilemason

package geom

// Clip computes the portion of g that falls inside box. The result is
// zero or more fragments: a point either survives or not, a line may
// split into several runs, a polygon is clipped ring-by-ring with
// Sutherland-Hodgman. Degenerate fragments (zero-length lines, rings
// with no area) are dropped, so an empty slice is a normal outcome.
func Clip(g Geometry, box Box) []Geometry {
	switch v := g.(type) {
	case Point:
		if box.ContainsCoord(v.Coord) {
			return []Geometry{v}
		}
		return nil
	case LineString:
		return clipLine(v, box)
	case Polygon:
		if p, ok := clipPolygon(v, box); ok {
			return []Geometry{p}
		}
		return nil
	default:
		return nil
	}
}

// edge identifies one of the four clip boundaries.
type edge int

const (
	edgeLeft edge = iota
	edgeRight
	edgeBottom
	edgeTop
)

// inside reports whether c is on the kept side of the edge.
func (e edge) inside(c Coord, box Box) bool {
	switch e {
	case edgeLeft:
		return c.X >= box.MinX
	case edgeRight:
		return c.X <= box.MaxX
	case edgeBottom:
		return c.Y >= box.MinY
	default:
		return c.Y <= box.MaxY
	}
}

// intersect returns the point where segment a-b crosses the edge. The
// caller guarantees a and b straddle the edge, so the denominator is
// never zero.
func (e edge) intersect(a, b Coord, box Box) Coord {
	switch e {
	case edgeLeft:
		t := (box.MinX - a.X) / (b.X - a.X)
		return Coord{X: box.MinX, Y: a.Y + t*(b.Y-a.Y)}
	case edgeRight:
		t := (box.MaxX - a.X) / (b.X - a.X)
		return Coord{X: box.MaxX, Y: a.Y + t*(b.Y-a.Y)}
	case edgeBottom:
		t := (box.MinY - a.Y) / (b.Y - a.Y)
		return Coord{X: a.X + t*(b.X-a.X), Y: box.MinY}
	default:
		t := (box.MaxY - a.Y) / (b.Y - a.Y)
		return Coord{X: a.X + t*(b.X-a.X), Y: box.MaxY}
	}
}

// clipRing runs Sutherland-Hodgman on a single closed ring. The input
// ring carries the closing coordinate; it is stripped before clipping and
// restored afterwards.
func clipRing(ring []Coord, box Box) []Coord {
	if len(ring) < 4 {
		return nil
	}
	out := make([]Coord, len(ring)-1)
	copy(out, ring[:len(ring)-1])

	for e := edgeLeft; e <= edgeTop; e++ {
		if len(out) == 0 {
			return nil
		}
		in := out
		out = make([]Coord, 0, len(in)+4)
		prev := in[len(in)-1]
		prevInside := e.inside(prev, box)
		for _, cur := range in {
			curInside := e.inside(cur, box)
			switch {
			case curInside && prevInside:
				out = append(out, cur)
			case curInside && !prevInside:
				out = append(out, e.intersect(prev, cur, box), cur)
			case !curInside && prevInside:
				out = append(out, e.intersect(prev, cur, box))
			}
			prev, prevInside = cur, curInside
		}
	}

	out = dedupeConsecutive(out)
	if len(out) < 3 || ringArea(out) == 0 {
		return nil
	}
	// Re-close the ring.
	return append(out, out[0])
}

// clipPolygon clips every ring; a polygon whose exterior degenerates is
// dropped entirely, degenerate holes are dropped individually.
func clipPolygon(p Polygon, box Box) (Polygon, bool) {
	exterior := clipRing(p.Rings[0], box)
	if exterior == nil {
		return Polygon{}, false
	}
	rings := make([][]Coord, 0, len(p.Rings))
	rings = append(rings, exterior)
	for _, hole := range p.Rings[1:] {
		if clipped := clipRing(hole, box); clipped != nil {
			rings = append(rings, clipped)
		}
	}
	return Polygon{Rings: rings}, true
}

// clipLine clips each segment of the line against the box and stitches
// consecutive surviving segments back into runs, so one input line can
// yield several disjoint fragments.
func clipLine(l LineString, box Box) []Geometry {
	var frags []Geometry
	var run []Coord

	flush := func() {
		run = dedupeConsecutive(run)
		if len(run) >= 2 {
			frags = append(frags, LineString{Coords: run})
		}
		run = nil
	}

	for i := 0; i < len(l.Coords)-1; i++ {
		a, b, ok := clipSegment(l.Coords[i], l.Coords[i+1], box)
		if !ok {
			flush()
			continue
		}
		if len(run) == 0 || run[len(run)-1] != a {
			// Segment does not continue the current run.
			flush()
			run = append(run, a)
		}
		run = append(run, b)
	}
	flush()
	return frags
}

// clipSegment clips segment a-b to the box using the Liang-Barsky
// parametric method. Returns the clipped endpoints and whether any part
// of the segment lies inside.
func clipSegment(a, b Coord, box Box) (Coord, Coord, bool) {
	dx := b.X - a.X
	dy := b.Y - a.Y
	t0, t1 := 0.0, 1.0

	clip := func(p, q float64) bool {
		if p == 0 {
			return q >= 0
		}
		r := q / p
		if p < 0 {
			if r > t1 {
				return false
			}
			if r > t0 {
				t0 = r
			}
		} else {
			if r < t0 {
				return false
			}
			if r < t1 {
				t1 = r
			}
		}
		return true
	}

	if !clip(-dx, a.X-box.MinX) ||
		!clip(dx, box.MaxX-a.X) ||
		!clip(-dy, a.Y-box.MinY) ||
		!clip(dy, box.MaxY-a.Y) {
		return Coord{}, Coord{}, false
	}

	p0 := Coord{X: a.X + t0*dx, Y: a.Y + t0*dy}
	p1 := Coord{X: a.X + t1*dx, Y: a.Y + t1*dy}
	if p0 == p1 {
		// Grazing contact with a corner or edge, no length inside.
		return Coord{}, Coord{}, false
	}
	return p0, p1, true
}

// dedupeConsecutive removes consecutive duplicate coordinates in place.
func dedupeConsecutive(coords []Coord) []Coord {
	if len(coords) < 2 {
		return coords
	}
	out := coords[:1]
	for _, c := range coords[1:] {
		if c != out[len(out)-1] {
			out = append(out, c)
		}
	}
	return out
}

// ringArea returns twice the signed shoelace area of an open ring. Zero
// means the ring is degenerate.
func ringArea(ring []Coord) float64 {
	var sum float64
	for i := range ring {
		j := (i + 1) % len(ring)
		sum += ring[i].X*ring[j].Y - ring[j].X*ring[i].Y
	}
	return sum
}
