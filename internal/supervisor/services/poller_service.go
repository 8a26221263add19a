// Tilemason - Geospatial Tiling and Aggregation Engine
// Copyright 2026 The Tilemason Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geoforge/tilemason

package services

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/geoforge/tilemason/internal/ingest"
	"github.com/geoforge/tilemason/internal/logging"
)

// Syncer is the slice of the ingestion pipeline the poller drives.
// Satisfied by *ingest.Pipeline.
type Syncer interface {
	Sync(ctx context.Context, datasetID string) (ingest.Result, error)
	SyncElevation(ctx context.Context, datasetID string) (uint64, error)
	Rebuild(ctx context.Context, datasetID string) (ingest.Result, error)
}

// IndexChecker reports whether the published index still holds its
// structural invariants. Satisfied by *engine.Engine.
type IndexChecker interface {
	ValidateIndex() error
}

// PollerService periodically re-syncs the dataset from the feature
// source. A rate limiter paces syncs independently of the tick interval
// so a tight interval cannot stampede the source. When the published
// index fails validation the poller escalates to a full rebuild.
type PollerService struct {
	syncer    Syncer
	checker   IndexChecker
	datasetID string
	interval  time.Duration
	limiter   *rate.Limiter
	elevation bool
}

// NewPollerService creates the poller. syncsPerMinute of zero disables
// pacing; withElevation also pulls the 3D dataset each cycle.
func NewPollerService(syncer Syncer, checker IndexChecker, datasetID string, interval time.Duration, syncsPerMinute int, withElevation bool) *PollerService {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if syncsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(syncsPerMinute)/60.0), 1)
	}
	return &PollerService{
		syncer:    syncer,
		checker:   checker,
		datasetID: datasetID,
		interval:  interval,
		limiter:   limiter,
		elevation: withElevation,
	}
}

// Serve implements suture.Service: an initial sync, then one per tick
// until the context is canceled.
func (p *PollerService) Serve(ctx context.Context) error {
	p.cycle(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.cycle(ctx)
		}
	}
}

// cycle runs one paced sync. Failures are logged, not returned: the
// breaker inside the pipeline handles a flapping source, and the next
// tick retries.
func (p *PollerService) cycle(ctx context.Context) {
	if err := p.limiter.Wait(ctx); err != nil {
		return
	}

	if err := p.checker.ValidateIndex(); err != nil {
		logging.Err(err).Str("component", "poller").Msg("index validation failed, rebuilding")
		if _, err := p.syncer.Rebuild(ctx, p.datasetID); err != nil {
			logging.Err(err).Str("component", "poller").Msg("rebuild failed")
		}
		return
	}

	if _, err := p.syncer.Sync(ctx, p.datasetID); err != nil {
		logging.Err(err).Str("component", "poller").Str("dataset_id", p.datasetID).Msg("sync failed")
		return
	}
	if p.elevation {
		if _, err := p.syncer.SyncElevation(ctx, p.datasetID); err != nil {
			logging.Err(err).Str("component", "poller").Str("dataset_id", p.datasetID).Msg("elevation sync failed")
		}
	}
}

// String implements fmt.Stringer; suture uses it in log messages.
func (p *PollerService) String() string {
	return "ingest-poller"
}
