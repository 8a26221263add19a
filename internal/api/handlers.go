// Tilemason - Geospatial Tiling and Aggregation Engine
// Copyright 2026 The Tilemason Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geoforge/tilemason

package api

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/geoforge/tilemason/internal/engine"
	"github.com/geoforge/tilemason/internal/index"
	"github.com/geoforge/tilemason/internal/ingest"
	"github.com/geoforge/tilemason/internal/tile"
)

// handleGetTile serves one encoded tile payload. Payloads are immutable
// per (tile, version), so the ETag is simply the payload hash and a
// matching If-None-Match short-circuits to 304.
func (s *Server) handleGetTile(w http.ResponseWriter, r *http.Request) {
	z, errZ := strconv.Atoi(chi.URLParam(r, "z"))
	x, errX := strconv.Atoi(chi.URLParam(r, "x"))
	y, errY := strconv.Atoi(chi.URLParam(r, "y"))
	if errZ != nil || errX != nil || errY != nil {
		writeError(w, http.StatusBadRequest, "invalid tile coordinates", "z, x, and y must be integers")
		return
	}

	data, version, err := s.engine.GetTile(r.Context(), z, x, y)
	switch {
	case errors.Is(err, tile.ErrTileOutOfRange):
		writeError(w, http.StatusNotFound, "tile out of range", err.Error())
		return
	case errors.Is(err, engine.ErrBusy):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, "engine busy", err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "tile generation failed", err.Error())
		return
	}

	sum := sha256.Sum256(data)
	etag := `"` + hex.EncodeToString(sum[:16]) + `"`
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("ETag", etag)
	w.Header().Set("X-Dataset-Version", strconv.FormatUint(version, 10))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ingestRequest is the POST /ingest body.
type ingestRequest struct {
	Records []ingest.RawRecord `json:"records"`
}

// handleIngest accepts a batch of raw records and returns the per-record
// result. Rejected records do not fail the request; they are itemized in
// the response.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if len(req.Records) == 0 {
		writeError(w, http.StatusBadRequest, "empty batch", "records must contain at least one record")
		return
	}

	res, err := s.pipeline.Ingest(r.Context(), req.Records)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "ingestion failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleRemoveFeature deletes one feature by id.
func (s *Server) handleRemoveFeature(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	version, err := s.pipeline.Remove(id)
	if errors.Is(err, index.ErrFeatureNotFound) {
		writeError(w, http.StatusNotFound, "feature not found", fmt.Sprintf("no feature with id %s", id))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "removal failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"removed": id, "version": version})
}

// handleGetElevation returns the elevation record for one feature.
func (s *Server) handleGetElevation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, ok := s.resolver.Resolve(id)
	if !ok {
		writeError(w, http.StatusNotFound, "elevation not found", fmt.Sprintf("no elevation record for feature %s", id))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// statusResponse summarizes the engine for operators.
type statusResponse struct {
	Version     uint64 `json:"version"`
	Features    int    `json:"features"`
	CacheHits   int64  `json:"cache_hits"`
	CacheMisses int64  `json:"cache_misses"`
	CacheSize   int    `json:"cache_size"`
}

// handleStatus reports the published version and cache counters.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap, version := s.engine.Current()
	hits, misses, size := s.engine.CacheStats()
	writeJSON(w, http.StatusOK, statusResponse{
		Version:     version,
		Features:    snap.Len(),
		CacheHits:   hits,
		CacheMisses: misses,
		CacheSize:   size,
	})
}

// handleHealth is the liveness probe. It also surfaces index corruption,
// flipping the instance unhealthy so orchestration can recycle it while
// a rebuild runs.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.ValidateIndex(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "detail": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
