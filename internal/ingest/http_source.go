// Tilemason - Geospatial Tiling and Aggregation Engine
// Copyright 2026 The Tilemason Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geoforge/tilemason

package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	json "github.com/goccy/go-json"
)

// maxSourceResponseBytes caps how much of a source response is read,
// guarding against a misbehaving upstream.
const maxSourceResponseBytes = 256 << 20

// HTTPSource pulls datasets from an upstream feature service over HTTP.
// It implements both FeatureSource and ElevationSource against the
// conventional layout:
//
//	GET {base}/datasets/{id}/features  -> {"records": [...]}
//	GET {base}/datasets/{id}/elevation -> {"records": [...]}
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSource creates a source rooted at baseURL.
func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPSource{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// FetchFeatures implements FeatureSource.
func (s *HTTPSource) FetchFeatures(ctx context.Context, datasetID string) ([]RawRecord, error) {
	var body struct {
		Records []RawRecord `json:"records"`
	}
	if err := s.get(ctx, datasetID, "features", &body); err != nil {
		return nil, err
	}
	return body.Records, nil
}

// FetchElevation implements ElevationSource.
func (s *HTTPSource) FetchElevation(ctx context.Context, datasetID string) ([]ElevationRow, error) {
	var body struct {
		Records []ElevationRow `json:"records"`
	}
	if err := s.get(ctx, datasetID, "elevation", &body); err != nil {
		return nil, err
	}
	return body.Records, nil
}

// get performs one GET against the source and decodes the JSON body.
func (s *HTTPSource) get(ctx context.Context, datasetID, resource string, out any) error {
	u := fmt.Sprintf("%s/datasets/%s/%s", s.baseURL, url.PathEscape(datasetID), resource)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build source request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", resource, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: source returned %s", resource, resp.Status)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxSourceResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", resource, err)
	}
	return nil
}
