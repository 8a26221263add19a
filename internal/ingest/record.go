// Tilemason - Geospatial Tiling and Aggregation Engine
// Copyright 2026 The Tilemason Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geoforge/tilemason

package ingest

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	gogeom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/geoforge/tilemason/internal/geom"
	"github.com/geoforge/tilemason/internal/validation"
)

// Rejection reasons, used as metric labels and reported per record.
const (
	ReasonMissingGeometry = "missing_geometry"
	ReasonInvalidGeometry = "invalid_geometry"
	ReasonBadID           = "bad_id"
	ReasonBadAttribute    = "bad_attribute"
)

// recordEnvelope is the statically-checked shape of a raw record.
type recordEnvelope struct {
	ID       string `validate:"omitempty,min=1"`
	Geometry any    `validate:"required"`
}

// parseRecord normalizes one raw record into a Feature. On failure it
// returns the rejection reason alongside the error; the caller records
// the rejection and moves on to the next record.
func parseRecord(rec RawRecord) (*geom.Feature, string, error) {
	env := recordEnvelope{Geometry: rec["geometry"]}

	id, reason, err := recordID(rec)
	if err != nil {
		return nil, reason, err
	}
	env.ID = id

	if err := validation.ValidateStruct(&env); err != nil {
		return nil, ReasonMissingGeometry, fmt.Errorf("record %s: %w", id, err)
	}

	g, err := decodeGeometry(env.Geometry)
	if err != nil {
		return nil, ReasonInvalidGeometry, fmt.Errorf("record %s: %w", id, err)
	}

	attrs, err := normalizeAttributes(rec["attributes"])
	if err != nil {
		return nil, ReasonBadAttribute, fmt.Errorf("record %s: %w", id, err)
	}

	return geom.NewFeature(id, g, attrs), "", nil
}

// recordID extracts the record id, minting a UUID when the source did
// not provide one.
func recordID(rec RawRecord) (string, string, error) {
	raw, ok := rec["id"]
	if !ok || raw == nil {
		return uuid.NewString(), "", nil
	}
	id, ok := raw.(string)
	if !ok || id == "" {
		return "", ReasonBadID, fmt.Errorf("id must be a non-empty string, got %T", raw)
	}
	return id, "", nil
}

// decodeGeometry round-trips the dynamic geometry value through its JSON
// form and decodes it as GeoJSON, then converts into the internal model.
// Only the three first-class geometry types are accepted.
func decodeGeometry(raw any) (geom.Geometry, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", geom.ErrInvalidGeometry, err)
	}
	var gg gogeom.T
	if err := geojson.Unmarshal(data, &gg); err != nil {
		return nil, fmt.Errorf("%w: %v", geom.ErrInvalidGeometry, err)
	}
	return convertGeometry(gg)
}

// convertGeometry maps a decoded go-geom value onto the internal tagged
// union, applying the model's structural validation.
func convertGeometry(gg gogeom.T) (geom.Geometry, error) {
	switch v := gg.(type) {
	case *gogeom.Point:
		c := v.Coords()
		return geom.NewPoint(c.X(), c.Y()), nil
	case *gogeom.LineString:
		return geom.NewLineString(convertRun(v.Coords()))
	case *gogeom.Polygon:
		src := v.Coords()
		rings := make([][]geom.Coord, len(src))
		for i, ring := range src {
			rings[i] = convertRun(ring)
		}
		return geom.NewPolygon(rings)
	default:
		return nil, fmt.Errorf("%w: unsupported geometry type %T", geom.ErrInvalidGeometry, gg)
	}
}

func convertRun(src []gogeom.Coord) []geom.Coord {
	out := make([]geom.Coord, len(src))
	for i, c := range src {
		out[i] = geom.Coord{X: c.X(), Y: c.Y()}
	}
	return out
}

// normalizeAttributes checks the attribute bag holds only scalars and
// normalizes numeric types to float64. Integers arrive as int or int64
// when records are built in-process and as float64 after a JSON decode;
// downstream code sees one numeric type either way.
func normalizeAttributes(raw any) (map[string]any, error) {
	if raw == nil {
		return nil, nil
	}
	in, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("attributes must be an object, got %T", raw)
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		switch tv := v.(type) {
		case nil:
			continue
		case string, bool, float64:
			out[k] = tv
		case int:
			out[k] = float64(tv)
		case int64:
			out[k] = float64(tv)
		case json.Number:
			f, err := tv.Float64()
			if err != nil {
				return nil, fmt.Errorf("attribute %q: %v", k, err)
			}
			out[k] = f
		default:
			return nil, fmt.Errorf("attribute %q has non-scalar type %T", k, v)
		}
	}
	return out, nil
}
