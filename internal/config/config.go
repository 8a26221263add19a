// Tilemason - Geospatial Tiling and Aggregation Engine
// Copyright 2026 The Tilemason Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geoforge/tilemason

// Package config defines the application configuration and loads it with
// Koanf v2 from layered sources: built-in defaults, then an optional
// YAML file, then TILEMASON_-prefixed environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/geoforge/tilemason/internal/validation"
)

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Engine    EngineConfig    `koanf:"engine"`
	Ingest    IngestConfig    `koanf:"ingest"`
	TileStore TileStoreConfig `koanf:"tilestore"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig configures the HTTP serving layer.
type ServerConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout         time.Duration `koanf:"timeout" validate:"min=1s"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs" validate:"min=0"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// EngineConfig configures the tiling engine core.
type EngineConfig struct {
	// CacheCapacity bounds the number of tiles held in memory.
	CacheCapacity int `koanf:"cache_capacity" validate:"min=1"`

	// MaxConcurrentGenerations bounds the worker pool serving tile
	// generation.
	MaxConcurrentGenerations int `koanf:"max_concurrent_generations" validate:"min=1"`

	// MaxQueuedRequests bounds how many requests may wait for a worker
	// before the engine sheds load.
	MaxQueuedRequests int `koanf:"max_queued_requests" validate:"min=0"`
}

// IngestConfig configures the ingestion pipeline and its poller.
type IngestConfig struct {
	// DatasetID selects the dataset pulled from the feature source.
	DatasetID string `koanf:"dataset_id"`

	// SourceURL is the base URL of the upstream feature service. Empty
	// disables source-driven ingestion; the HTTP ingest endpoint still
	// works.
	SourceURL string `koanf:"source_url" validate:"omitempty,url"`

	// SourceTimeout bounds each fetch from the source.
	SourceTimeout time.Duration `koanf:"source_timeout"`

	// Elevation also pulls the derived 3D dataset each sync cycle.
	Elevation bool `koanf:"elevation"`

	// Interval is the re-sync period of the supervised poller. Zero
	// disables polling.
	Interval time.Duration `koanf:"interval"`

	// SyncsPerMinute paces poller syncs; zero means unpaced.
	SyncsPerMinute int `koanf:"syncs_per_minute" validate:"min=0"`

	// BreakerMaxFailures trips the circuit breaker guarding the feature
	// source after this many consecutive failures.
	BreakerMaxFailures int `koanf:"breaker_max_failures" validate:"min=1"`

	// BreakerOpenTimeout is how long the breaker stays open before
	// probing the source again.
	BreakerOpenTimeout time.Duration `koanf:"breaker_open_timeout"`
}

// TileStoreConfig configures the optional persistent tile store.
type TileStoreConfig struct {
	Enabled bool `koanf:"enabled"`
	// Path is the BadgerDB directory; empty means in-memory.
	Path string `koanf:"path"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration against its validate tags plus
// cross-field rules.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Ingest.Interval > 0 && c.Ingest.DatasetID == "" {
		return fmt.Errorf("invalid configuration: ingest.interval set but ingest.dataset_id empty")
	}
	if c.Ingest.Interval > 0 && c.Ingest.SourceURL == "" {
		return fmt.Errorf("invalid configuration: ingest.interval set but ingest.source_url empty")
	}
	return nil
}
