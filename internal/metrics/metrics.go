// Tilemason - Geospatial Tiling and Aggregation Engine
// Copyright 2026 The Tilemason Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geoforge/tilemason

// Package metrics exposes Prometheus instrumentation for the tiling
// engine: cache efficiency, generation latency, index size, ingestion
// throughput, and worker pool pressure.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Tile cache metrics
	TileCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tile_cache_hits_total",
			Help: "Total number of tile cache hits",
		},
	)

	TileCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tile_cache_misses_total",
			Help: "Total number of tile cache misses",
		},
	)

	TileCacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tile_cache_evictions_total",
			Help: "Total number of tile cache evictions",
		},
	)

	TileCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tile_cache_entries",
			Help: "Current number of cached tiles",
		},
	)

	DatasetVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dataset_version",
			Help: "Current dataset version (increments on every accepted ingestion batch)",
		},
	)

	// Tile generation metrics
	TileGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tile_generation_duration_seconds",
			Help:    "Duration of tile generation in seconds",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"zoom"},
	)

	TileGenerationErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tile_generation_errors_total",
			Help: "Total number of failed tile generations",
		},
	)

	TileRequestsCoalesced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tile_requests_coalesced_total",
			Help: "Total number of tile requests that joined an in-flight generation",
		},
	)

	TileRequestsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tile_requests_rejected_total",
			Help: "Total number of tile requests rejected by worker pool backpressure",
		},
	)

	// Spatial index metrics
	IndexFeatures = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "index_features",
			Help: "Number of live features in the published index snapshot",
		},
	)

	// Ingestion metrics
	IngestRecordsAccepted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_records_accepted_total",
			Help: "Total number of records accepted by the ingestion pipeline",
		},
	)

	IngestRecordsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_records_rejected_total",
			Help: "Total number of records rejected by the ingestion pipeline",
		},
		[]string{"reason"},
	)

	IngestBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingest_batch_duration_seconds",
			Help:    "Duration of ingestion batches in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// HTTP metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)
)
