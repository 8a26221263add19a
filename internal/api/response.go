// Tilemason - Geospatial Tiling and Aggregation Engine
// Copyright 2026 The Tilemason Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geoforge/tilemason

package api

import (
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/geoforge/tilemason/internal/logging"
)

// APIError is the JSON error envelope returned on every non-2xx
// response.
type APIError struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// writeJSON serializes v and writes it with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Err(err).Str("component", "api").Msg("writing response failed")
	}
}

// writeError writes the error envelope.
func writeError(w http.ResponseWriter, status int, message, detail string) {
	writeJSON(w, status, APIError{Error: message, Detail: detail})
}
