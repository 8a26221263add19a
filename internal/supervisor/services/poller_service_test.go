// Tilemason - Geospatial Tiling and Aggregation Engine
// Copyright 2026 The Tilemason Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geoforge/tilemason

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/geoforge/tilemason/internal/ingest"
)

type fakeSyncer struct {
	syncs      atomic.Int32
	elevations atomic.Int32
	rebuilds   atomic.Int32
}

func (f *fakeSyncer) Sync(_ context.Context, _ string) (ingest.Result, error) {
	f.syncs.Add(1)
	return ingest.Result{Accepted: 1}, nil
}

func (f *fakeSyncer) SyncElevation(_ context.Context, _ string) (uint64, error) {
	f.elevations.Add(1)
	return 1, nil
}

func (f *fakeSyncer) Rebuild(_ context.Context, _ string) (ingest.Result, error) {
	f.rebuilds.Add(1)
	return ingest.Result{}, nil
}

type fakeChecker struct {
	err error
}

func (f *fakeChecker) ValidateIndex() error { return f.err }

func TestPollerService_SyncsOnStartAndTicks(t *testing.T) {
	t.Parallel()

	syncer := &fakeSyncer{}
	svc := NewPollerService(syncer, &fakeChecker{}, "ds", 20*time.Millisecond, 0, true)

	ctx, cancel := context.WithTimeout(context.Background(), 110*time.Millisecond)
	defer cancel()
	if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve = %v, want DeadlineExceeded", err)
	}

	// Initial sync plus roughly five ticks; allow slack for scheduling.
	if n := syncer.syncs.Load(); n < 2 {
		t.Errorf("syncs = %d, want at least 2", n)
	}
	if n := syncer.elevations.Load(); n < 2 {
		t.Errorf("elevation syncs = %d, want at least 2", n)
	}
	if n := syncer.rebuilds.Load(); n != 0 {
		t.Errorf("rebuilds = %d, want 0", n)
	}
}

func TestPollerService_RebuildsOnCorruption(t *testing.T) {
	t.Parallel()

	syncer := &fakeSyncer{}
	checker := &fakeChecker{err: errors.New("index corruption")}
	svc := NewPollerService(syncer, checker, "ds", 20*time.Millisecond, 0, false)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_ = svc.Serve(ctx)

	if n := syncer.rebuilds.Load(); n == 0 {
		t.Error("corrupted index should trigger a rebuild")
	}
	if n := syncer.syncs.Load(); n != 0 {
		t.Errorf("syncs = %d, want 0 while index is corrupt", n)
	}
}

func TestPollerService_PacingLimitsSyncRate(t *testing.T) {
	t.Parallel()

	syncer := &fakeSyncer{}
	// One sync per minute: the burst covers the initial sync, every
	// further tick blocks on the limiter until the context expires.
	svc := NewPollerService(syncer, &fakeChecker{}, "ds", 5*time.Millisecond, 1, false)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	_ = svc.Serve(ctx)

	if n := syncer.syncs.Load(); n != 1 {
		t.Errorf("syncs = %d, want exactly 1 under pacing", n)
	}
}

func TestPollerService_String(t *testing.T) {
	t.Parallel()

	svc := NewPollerService(&fakeSyncer{}, &fakeChecker{}, "ds", time.Second, 0, false)
	if svc.String() != "ingest-poller" {
		t.Errorf("String() = %q", svc.String())
	}
}
