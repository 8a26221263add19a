// Tilemason - Geospatial Tiling and Aggregation Engine
// Copyright 2026 The Tilemason Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geoforge/tilemason

// Package main is the entry point for the Tilemason server.
//
// Tilemason serves map tiles generated on demand from an in-memory
// spatial index. Startup order:
//
//  1. Configuration: Koanf v2 layered sources (env > config file > defaults)
//  2. Logging: global zerolog logger
//  3. Tile store: optional BadgerDB persistence for generated tiles
//  4. Engine: snapshot holder, tile cache, bounded generation pool
//  5. Pipeline: the single writer of the spatial index
//  6. Supervisor tree: HTTP server and, when configured, the ingest poller
//
// Graceful shutdown runs on SIGINT and SIGTERM: the HTTP server drains
// in-flight requests within server.shutdown_timeout and the tile store
// is closed last.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/geoforge/tilemason/internal/api"
	"github.com/geoforge/tilemason/internal/config"
	"github.com/geoforge/tilemason/internal/elevation"
	"github.com/geoforge/tilemason/internal/engine"
	"github.com/geoforge/tilemason/internal/ingest"
	"github.com/geoforge/tilemason/internal/logging"
	"github.com/geoforge/tilemason/internal/supervisor"
	"github.com/geoforge/tilemason/internal/supervisor/services"
	"github.com/geoforge/tilemason/internal/tile"
	"github.com/geoforge/tilemason/internal/tilestore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Msg("starting tilemason")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var store *tilestore.Store
	if cfg.TileStore.Enabled {
		store, err = tilestore.Open(cfg.TileStore.Path)
		if err != nil {
			logging.Fatal().Err(err).Str("path", cfg.TileStore.Path).Msg("opening tile store failed")
		}
		defer func() {
			if err := store.Close(); err != nil {
				logging.Err(err).Msg("closing tile store failed")
			}
		}()
		logging.Info().Str("path", cfg.TileStore.Path).Msg("tile store opened")
	}

	resolver := elevation.NewResolver()
	eng := engine.New(tile.NewGenerator(resolver), store, engine.Options{
		CacheCapacity:            cfg.Engine.CacheCapacity,
		MaxConcurrentGenerations: cfg.Engine.MaxConcurrentGenerations,
		MaxQueuedRequests:        cfg.Engine.MaxQueuedRequests,
	})

	var featureSource ingest.FeatureSource
	var elevationSource ingest.ElevationSource
	if cfg.Ingest.SourceURL != "" {
		src := ingest.NewHTTPSource(cfg.Ingest.SourceURL, cfg.Ingest.SourceTimeout)
		featureSource = src
		elevationSource = src
	}
	pipeline := ingest.NewPipeline(eng, resolver, featureSource, elevationSource, ingest.Options{
		BreakerMaxFailures: uint32(cfg.Ingest.BreakerMaxFailures),
		BreakerOpenTimeout: cfg.Ingest.BreakerOpenTimeout,
	})

	server := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     api.NewServer(eng, pipeline, resolver, cfg.Server).Router(),
		ReadTimeout: cfg.Server.Timeout,
		IdleTimeout: 2 * cfg.Server.Timeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("http server service added")

	if cfg.Ingest.Interval > 0 && featureSource != nil {
		tree.AddDataService(services.NewPollerService(
			pipeline, eng,
			cfg.Ingest.DatasetID,
			cfg.Ingest.Interval,
			cfg.Ingest.SyncsPerMinute,
			cfg.Ingest.Elevation,
		))
		logging.Info().
			Str("dataset_id", cfg.Ingest.DatasetID).
			Dur("interval", cfg.Ingest.Interval).
			Msg("ingest poller service added")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	errCh := tree.ServeBackground(ctx)
	select {
	case <-ctx.Done():
		logging.Info().Msg("context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor tree error")
		}
	}
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor shutdown error")
		}
	}

	logging.Info().Msg("stopped gracefully")
}
