// Tilemason - Geospatial Tiling and Aggregation Engine
// Copyright 2026 The Tilemason Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geoforge/tilemason

package tile

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/geoforge/tilemason/internal/elevation"
	"github.com/geoforge/tilemason/internal/geom"
	"github.com/geoforge/tilemason/internal/index"
	"github.com/geoforge/tilemason/internal/metrics"
)

// ErrGenerationFailure reports an unexpected fault during clip/simplify.
// The cache is left unpopulated and the request is safe to retry.
var ErrGenerationFailure = errors.New("tile generation failure")

// Generator turns an index snapshot and a tile key into an encoded tile
// payload. It is stateless apart from the elevation resolver and safe
// for concurrent use.
type Generator struct {
	resolver *elevation.Resolver
}

// NewGenerator creates a generator. The resolver may be nil when no 3D
// augmentation is wanted.
func NewGenerator(resolver *elevation.Resolver) *Generator {
	return &Generator{resolver: resolver}
}

// Generate builds the tile for key against the given snapshot and
// dataset version. For a fixed snapshot and version, repeated calls with
// the same key produce byte-identical output: candidates are ordered by
// feature id before serialization and every geometry operation is
// deterministic.
func (g *Generator) Generate(snap *index.Snapshot, key Key, version uint64) (t *Tile, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			t = nil
			err = fmt.Errorf("%w: %v", ErrGenerationFailure, r)
			metrics.TileGenerationErrors.Inc()
			return
		}
		metrics.TileGenerationDuration.WithLabelValues(strconv.Itoa(key.Z)).Observe(time.Since(start).Seconds())
	}()

	bounds := key.Bounds()
	tolerance := key.SimplifyTolerance()

	ids := snap.Query(bounds)
	sort.Strings(ids)

	fragments := make([]Fragment, 0, len(ids))
	for _, id := range ids {
		feat, ok := snap.Feature(id)
		if !ok {
			continue
		}
		for _, clipped := range geom.Clip(feat.Geometry, bounds) {
			simplified, ok := geom.Simplify(clipped, tolerance)
			if !ok {
				continue
			}
			frag := Fragment{
				FeatureID:  feat.ID,
				Type:       simplified.Type(),
				Runs:       projectRuns(simplified, bounds),
				Attributes: feat.Attributes,
			}
			if g.resolver != nil {
				if rec, ok := g.resolver.Resolve(feat.ID); ok {
					h := rec.Height
					frag.Height = &h
				}
			}
			fragments = append(fragments, frag)
		}
	}

	return &Tile{
		Encoding:  EncodingVersion,
		Z:         key.Z,
		X:         key.X,
		Y:         key.Y,
		Version:   version,
		Fragments: fragments,
	}, nil
}

// projectRuns converts world coordinates into tile-local normalized
// space, (0,0) at the tile's north-west corner.
func projectRuns(g geom.Geometry, bounds geom.Box) [][]Coordinate {
	switch v := g.(type) {
	case geom.Point:
		return [][]Coordinate{{project(v.Coord, bounds)}}
	case geom.LineString:
		return [][]Coordinate{projectRun(v.Coords, bounds)}
	case geom.Polygon:
		runs := make([][]Coordinate, len(v.Rings))
		for i, ring := range v.Rings {
			runs[i] = projectRun(ring, bounds)
		}
		return runs
	default:
		return nil
	}
}

func projectRun(coords []geom.Coord, bounds geom.Box) []Coordinate {
	run := make([]Coordinate, len(coords))
	for i, c := range coords {
		run[i] = project(c, bounds)
	}
	return run
}

func project(c geom.Coord, bounds geom.Box) Coordinate {
	u := (c.X - bounds.MinX) / bounds.Width()
	v := (bounds.MaxY - c.Y) / bounds.Height()
	return Coordinate{clamp01(u), clamp01(v)}
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}
