// Tilemason - Geospatial Tiling and Aggregation Engine
// Copyright 2026 The Tilemason Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geoforge/tilemason

// Package api exposes the tiling engine over HTTP: tile retrieval,
// ingestion, feature removal, elevation lookup, health, and Prometheus
// metrics.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/geoforge/tilemason/internal/config"
	"github.com/geoforge/tilemason/internal/elevation"
	"github.com/geoforge/tilemason/internal/engine"
	"github.com/geoforge/tilemason/internal/ingest"
)

// Server wires the HTTP surface to the engine and pipeline.
type Server struct {
	engine   *engine.Engine
	pipeline *ingest.Pipeline
	resolver *elevation.Resolver
	cfg      config.ServerConfig
}

// NewServer creates the HTTP server facade.
func NewServer(eng *engine.Engine, pipe *ingest.Pipeline, resolver *elevation.Resolver, cfg config.ServerConfig) *Server {
	return &Server{engine: eng, pipeline: pipe, resolver: resolver, cfg: cfg}
}

// Router builds the chi router with the full middleware chain.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(instrument)
	if s.cfg.Timeout > 0 {
		r.Use(middleware.Timeout(s.cfg.Timeout))
	}
	if s.cfg.RateLimitReqs > 0 {
		r.Use(httprate.LimitByIP(s.cfg.RateLimitReqs, s.cfg.RateLimitWindow))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "If-None-Match"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/tiles/{z}/{x}/{y}.json", s.handleGetTile)
		r.Get("/status", s.handleStatus)
		r.Post("/ingest", s.handleIngest)
		r.Delete("/features/{id}", s.handleRemoveFeature)
		r.Get("/elevation/{id}", s.handleGetElevation)
	})

	return r
}
