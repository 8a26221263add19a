// Tilemason - Geospatial Tiling and Aggregation Engine
// Copyright 2026 The Tilemason Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geoforge/tilemason

package tile

import (
	"bytes"
	"math"
	"sort"
	"testing"

	"github.com/geoforge/tilemason/internal/elevation"
	"github.com/geoforge/tilemason/internal/geom"
	"github.com/geoforge/tilemason/internal/index"
)

func testSnapshot(t *testing.T) *index.Snapshot {
	t.Helper()

	b := index.NewBuilder()
	b.Insert(geom.NewFeature("origin", geom.NewPoint(0, 0), map[string]any{
		"name": "origin",
		"rank": float64(1),
	}))

	square, err := geom.NewPolygon([][]geom.Coord{
		{{X: -60, Y: -60}, {X: 60, Y: -60}, {X: 60, Y: 60}, {X: -60, Y: 60}, {X: -60, Y: -60}},
	})
	if err != nil {
		t.Fatalf("NewPolygon: %v", err)
	}
	b.Insert(geom.NewFeature("square", square, nil))

	line, err := geom.NewLineString([]geom.Coord{{X: -170, Y: 40}, {X: 170, Y: 40}})
	if err != nil {
		t.Fatalf("NewLineString: %v", err)
	}
	b.Insert(geom.NewFeature("line", line, nil))

	return b.Snapshot()
}

func TestGenerator_Deterministic(t *testing.T) {
	t.Parallel()

	snap := testSnapshot(t)
	resolver := elevation.NewResolver()
	resolver.Apply([]elevation.Record{{FeatureID: "square", Height: 12.5}})
	gen := NewGenerator(resolver)
	key, _ := NewKey(0, 0, 0)

	first, err := gen.Generate(snap, key, 3)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	second, err := gen.Generate(snap, key, 3)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	a, err := first.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	b, err := second.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("same snapshot, key, and version should encode byte-identically")
	}
}

func TestGenerator_FragmentOrderAndContent(t *testing.T) {
	t.Parallel()

	snap := testSnapshot(t)
	gen := NewGenerator(nil)
	key, _ := NewKey(0, 0, 0)

	tl, err := gen.Generate(snap, key, 7)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if tl.Version != 7 {
		t.Errorf("Version = %d, want 7", tl.Version)
	}
	if tl.Encoding != EncodingVersion {
		t.Errorf("Encoding = %d, want %d", tl.Encoding, EncodingVersion)
	}
	if len(tl.Fragments) != 3 {
		t.Fatalf("got %d fragments, want 3", len(tl.Fragments))
	}
	ids := []string{tl.Fragments[0].FeatureID, tl.Fragments[1].FeatureID, tl.Fragments[2].FeatureID}
	if !sort.StringsAreSorted(ids) {
		t.Errorf("fragments not ordered by feature id: %v", ids)
	}

	var origin *Fragment
	for i := range tl.Fragments {
		if tl.Fragments[i].FeatureID == "origin" {
			origin = &tl.Fragments[i]
		}
	}
	if origin == nil {
		t.Fatal("origin fragment missing")
	}
	if origin.Type != geom.TypePoint {
		t.Errorf("origin type = %q, want Point", origin.Type)
	}
	c := origin.Runs[0][0]
	if math.Abs(c[0]-0.5) > 1e-9 || math.Abs(c[1]-0.5) > 1e-9 {
		t.Errorf("origin projected to %v, want [0.5 0.5]", c)
	}
	if origin.Attributes["name"] != "origin" {
		t.Errorf("attributes lost: %v", origin.Attributes)
	}
}

func TestGenerator_ExcludesFeaturesOutsideTile(t *testing.T) {
	t.Parallel()

	b := index.NewBuilder()
	b.Insert(geom.NewFeature("east", geom.NewPoint(10, 10), nil))
	snap := b.Snapshot()
	gen := NewGenerator(nil)

	// z1/0/0 is the north-west quadrant; (10, 10) lies east of it.
	key, _ := NewKey(1, 0, 0)
	tl, err := gen.Generate(snap, key, 1)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(tl.Fragments) != 0 {
		t.Errorf("got %d fragments, want 0", len(tl.Fragments))
	}
}

func TestGenerator_ElevationJoined(t *testing.T) {
	t.Parallel()

	b := index.NewBuilder()
	b.Insert(geom.NewFeature("tower", geom.NewPoint(2, 2), nil))
	b.Insert(geom.NewFeature("flat", geom.NewPoint(3, 3), nil))
	snap := b.Snapshot()

	resolver := elevation.NewResolver()
	resolver.Apply([]elevation.Record{{FeatureID: "tower", Height: 99.5}})
	gen := NewGenerator(resolver)

	key, _ := NewKey(0, 0, 0)
	tl, err := gen.Generate(snap, key, 1)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	for _, frag := range tl.Fragments {
		switch frag.FeatureID {
		case "tower":
			if frag.Height == nil || *frag.Height != 99.5 {
				t.Errorf("tower Height = %v, want 99.5", frag.Height)
			}
		case "flat":
			if frag.Height != nil {
				t.Errorf("flat Height = %v, want nil", *frag.Height)
			}
		}
	}
}

func TestGenerator_EmptySnapshot(t *testing.T) {
	t.Parallel()

	gen := NewGenerator(nil)
	key, _ := NewKey(5, 17, 12)
	tl, err := gen.Generate(index.EmptySnapshot(), key, 0)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(tl.Fragments) != 0 {
		t.Errorf("got %d fragments, want 0", len(tl.Fragments))
	}

	data, err := tl.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Z != 5 || decoded.X != 17 || decoded.Y != 12 {
		t.Errorf("round-trip key = %d/%d/%d, want 5/17/12", decoded.Z, decoded.X, decoded.Y)
	}
}
