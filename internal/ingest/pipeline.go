// Tilemason - Geospatial Tiling and Aggregation Engine
// Copyright 2026 The Tilemason Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geoforge/tilemason

package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/geoforge/tilemason/internal/elevation"
	"github.com/geoforge/tilemason/internal/index"
	"github.com/geoforge/tilemason/internal/logging"
	"github.com/geoforge/tilemason/internal/metrics"
)

// Publisher receives new index snapshots from the pipeline and makes
// them visible to readers, returning the version assigned to the
// publication. The engine implements it.
type Publisher interface {
	Publish(snap *index.Snapshot) uint64
	Version() uint64
}

// Options tunes the pipeline's circuit breaker.
type Options struct {
	// BreakerMaxFailures trips the breaker guarding the feature source
	// after this many consecutive fetch failures.
	BreakerMaxFailures uint32

	// BreakerOpenTimeout is how long the breaker stays open before
	// letting a probe through.
	BreakerOpenTimeout time.Duration
}

// DefaultOptions returns the breaker settings used when none are
// configured.
func DefaultOptions() Options {
	return Options{
		BreakerMaxFailures: 5,
		BreakerOpenTimeout: 30 * time.Second,
	}
}

// RejectedRecord reports one record the pipeline refused, with its
// position in the batch and the reason.
type RejectedRecord struct {
	Index     int    `json:"index"`
	FeatureID string `json:"feature_id,omitempty"`
	Reason    string `json:"reason"`
	Detail    string `json:"detail"`
}

// Result summarizes one ingestion batch.
type Result struct {
	Accepted int              `json:"accepted"`
	Rejected []RejectedRecord `json:"rejected,omitempty"`

	// Version is the dataset version after the batch. Unchanged when no
	// record was accepted.
	Version uint64 `json:"version"`
}

// Pipeline is the single writer of the spatial index. It parses raw
// records, mutates its private Builder under a lock, and publishes
// immutable snapshots through the Publisher. Record-level failures are
// collected per record and never abort a batch.
type Pipeline struct {
	mu        sync.Mutex
	builder   *index.Builder
	resolver  *elevation.Resolver
	publisher Publisher

	features   FeatureSource
	elevations ElevationSource
	breaker    *gobreaker.CircuitBreaker[[]RawRecord]
}

// NewPipeline creates a pipeline. The sources may be nil when the
// deployment only ingests via the HTTP API.
func NewPipeline(publisher Publisher, resolver *elevation.Resolver, features FeatureSource, elevations ElevationSource, opts Options) *Pipeline {
	if opts.BreakerMaxFailures == 0 {
		opts.BreakerMaxFailures = DefaultOptions().BreakerMaxFailures
	}
	if opts.BreakerOpenTimeout <= 0 {
		opts.BreakerOpenTimeout = DefaultOptions().BreakerOpenTimeout
	}
	return &Pipeline{
		builder:    index.NewBuilder(),
		resolver:   resolver,
		publisher:  publisher,
		features:   features,
		elevations: elevations,
		breaker: gobreaker.NewCircuitBreaker[[]RawRecord](gobreaker.Settings{
			Name:    "feature-source",
			Timeout: opts.BreakerOpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= opts.BreakerMaxFailures
			},
		}),
	}
}

// Ingest parses and indexes a batch of raw records. Invalid records are
// collected in the result with reasons; the rest of the batch proceeds.
// When at least one record is accepted a new snapshot is published and
// the dataset version advances by exactly one for the whole batch.
func (p *Pipeline) Ingest(ctx context.Context, records []RawRecord) (Result, error) {
	start := time.Now()
	defer func() {
		metrics.IngestBatchDuration.Observe(time.Since(start).Seconds())
	}()

	p.mu.Lock()
	defer p.mu.Unlock()

	res := Result{Version: p.publisher.Version()}
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("ingest batch aborted at record %d: %w", i, err)
		}
		feat, reason, err := parseRecord(rec)
		if err != nil {
			res.Rejected = append(res.Rejected, RejectedRecord{
				Index:  i,
				Reason: reason,
				Detail: err.Error(),
			})
			metrics.IngestRecordsRejected.WithLabelValues(reason).Inc()
			continue
		}
		p.builder.Insert(feat)
		res.Accepted++
	}
	metrics.IngestRecordsAccepted.Add(float64(res.Accepted))

	if res.Accepted > 0 {
		res.Version = p.publisher.Publish(p.builder.Snapshot())
	}

	logging.Info().
		Str("component", "ingest").
		Int("accepted", res.Accepted).
		Int("rejected", len(res.Rejected)).
		Uint64("version", res.Version).
		Dur("elapsed", time.Since(start)).
		Msg("ingestion batch processed")
	return res, nil
}

// Remove deletes one feature by id and publishes the resulting snapshot.
// Unknown ids return index.ErrFeatureNotFound without a publication; the
// caller decides whether that matters.
func (p *Pipeline) Remove(id string) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.builder.Remove(id); err != nil {
		return p.publisher.Version(), err
	}
	p.resolver.Drop(id)
	version := p.publisher.Publish(p.builder.Snapshot())
	logging.Info().
		Str("component", "ingest").
		Str("feature_id", id).
		Uint64("version", version).
		Msg("feature removed")
	return version, nil
}

// Sync pulls the dataset from the feature source and ingests it. The
// fetch runs through the circuit breaker, so a flapping source fails
// fast instead of hammering it.
func (p *Pipeline) Sync(ctx context.Context, datasetID string) (Result, error) {
	if p.features == nil {
		return Result{}, errors.New("no feature source configured")
	}
	records, err := p.breaker.Execute(func() ([]RawRecord, error) {
		return p.features.FetchFeatures(ctx, datasetID)
	})
	if err != nil {
		return Result{}, fmt.Errorf("fetch features for dataset %s: %w", datasetID, err)
	}
	return p.Ingest(ctx, records)
}

// SyncElevation pulls the derived 3D dataset and swaps it into the
// resolver in one step. Heights are part of tile payloads, so the swap
// publishes a fresh snapshot to advance the version and invalidate
// cached tiles.
func (p *Pipeline) SyncElevation(ctx context.Context, datasetID string) (uint64, error) {
	if p.elevations == nil {
		return 0, errors.New("no elevation source configured")
	}
	rows, err := p.elevations.FetchElevation(ctx, datasetID)
	if err != nil {
		return 0, fmt.Errorf("fetch elevation for dataset %s: %w", datasetID, err)
	}

	records := make([]elevation.Record, len(rows))
	for i, row := range rows {
		records[i] = elevation.Record{
			FeatureID: row.FeatureID,
			Height:    row.Height,
			Profile:   row.Profile,
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.resolver.Apply(records)
	version := p.publisher.Publish(p.builder.Snapshot())
	logging.Info().
		Str("component", "ingest").
		Int("records", len(records)).
		Uint64("version", version).
		Msg("elevation dataset applied")
	return version, nil
}

// Rebuild discards the index and re-syncs the dataset from the feature
// source. This is the corruption recovery path: the old snapshot keeps
// serving reads until the rebuilt one is published.
func (p *Pipeline) Rebuild(ctx context.Context, datasetID string) (Result, error) {
	p.mu.Lock()
	p.builder.Reset()
	p.mu.Unlock()

	logging.Warn().
		Str("component", "ingest").
		Str("dataset_id", datasetID).
		Msg("rebuilding spatial index from source")
	return p.Sync(ctx, datasetID)
}

// Len returns the number of live features in the builder.
func (p *Pipeline) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.builder.Len()
}
