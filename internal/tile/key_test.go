// Tilemason - Geospatial Tiling and Aggregation Engine
// Copyright 2026 The Tilemason Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geoforge/tilemason

package tile

import (
	"errors"
	"math"
	"testing"
)

func TestNewKey_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		z, x, y int
		valid   bool
	}{
		{"origin", 0, 0, 0, true},
		{"max zoom", MaxZoom, 0, 0, true},
		{"zoom too deep", MaxZoom + 1, 0, 0, false},
		{"negative zoom", -1, 0, 0, false},
		{"x at limit", 3, 7, 0, true},
		{"x past limit", 3, 8, 0, false},
		{"negative y", 3, 0, -1, false},
		{"y past limit", 1, 0, 2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewKey(tt.z, tt.x, tt.y)
			if tt.valid && err != nil {
				t.Errorf("NewKey(%d,%d,%d) = %v, want nil", tt.z, tt.x, tt.y, err)
			}
			if !tt.valid && !errors.Is(err, ErrTileOutOfRange) {
				t.Errorf("NewKey(%d,%d,%d) = %v, want ErrTileOutOfRange", tt.z, tt.x, tt.y, err)
			}
		})
	}
}

func TestKey_String(t *testing.T) {
	t.Parallel()

	k, _ := NewKey(5, 17, 12)
	if got := k.String(); got != "5/17/12" {
		t.Errorf("String() = %q, want %q", got, "5/17/12")
	}
}

func TestKey_BoundsZoomZero(t *testing.T) {
	t.Parallel()

	k, _ := NewKey(0, 0, 0)
	b := k.Bounds()

	if b.MinX != -180 || b.MaxX != 180 {
		t.Errorf("longitude extent = [%f, %f], want [-180, 180]", b.MinX, b.MaxX)
	}
	// Web Mercator latitude limit.
	const maxLat = 85.05112877980659
	if math.Abs(b.MaxY-maxLat) > 1e-9 || math.Abs(b.MinY+maxLat) > 1e-9 {
		t.Errorf("latitude extent = [%f, %f], want [-%f, %f]", b.MinY, b.MaxY, maxLat, maxLat)
	}
}

func TestKey_BoundsQuadrants(t *testing.T) {
	t.Parallel()

	// At z=1 the north-west tile covers the western hemisphere north of
	// the equator.
	k, _ := NewKey(1, 0, 0)
	b := k.Bounds()
	if b.MinX != -180 || b.MaxX != 0 {
		t.Errorf("longitude extent = [%f, %f], want [-180, 0]", b.MinX, b.MaxX)
	}
	if math.Abs(b.MinY) > 1e-9 {
		t.Errorf("MinY = %f, want 0 (equator)", b.MinY)
	}

	// Children tile the parent without gaps.
	parent, _ := NewKey(1, 1, 1)
	nw, _ := NewKey(2, 2, 2)
	se, _ := NewKey(2, 3, 3)
	pb := parent.Bounds()
	if got := nw.Bounds(); math.Abs(got.MinX-pb.MinX) > 1e-9 || math.Abs(got.MaxY-pb.MaxY) > 1e-9 {
		t.Errorf("north-west child corner %+v does not meet parent %+v", got, pb)
	}
	if got := se.Bounds(); math.Abs(got.MaxX-pb.MaxX) > 1e-9 || math.Abs(got.MinY-pb.MinY) > 1e-9 {
		t.Errorf("south-east child corner %+v does not meet parent %+v", got, pb)
	}
}

func TestKey_SimplifyToleranceHalvesPerZoom(t *testing.T) {
	t.Parallel()

	k0, _ := NewKey(0, 0, 0)
	k1, _ := NewKey(1, 0, 0)
	k2, _ := NewKey(2, 0, 0)

	t0 := k0.SimplifyTolerance()
	t1 := k1.SimplifyTolerance()
	t2 := k2.SimplifyTolerance()

	if math.Abs(t0-360.0/256.0) > 1e-12 {
		t.Errorf("z0 tolerance = %f, want %f", t0, 360.0/256.0)
	}
	if math.Abs(t0/t1-2) > 1e-9 || math.Abs(t1/t2-2) > 1e-9 {
		t.Errorf("tolerances %f, %f, %f do not halve per zoom", t0, t1, t2)
	}
}
