// Tilemason - Geospatial Tiling and Aggregation Engine
// Copyright 2026 The Tilemason Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geoforge/tilemason

package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

// mockServer implements HTTPServer for lifecycle testing.
type mockServer struct {
	serveErr    error
	shutdownErr error
	started     chan struct{}
	release     chan struct{}
	shutdowns   int
}

func newMockServer(serveErr error) *mockServer {
	return &mockServer{
		serveErr: serveErr,
		started:  make(chan struct{}),
		release:  make(chan struct{}),
	}
}

func (m *mockServer) ListenAndServe() error {
	close(m.started)
	if m.serveErr != nil {
		return m.serveErr
	}
	<-m.release
	return http.ErrServerClosed
}

func (m *mockServer) Shutdown(_ context.Context) error {
	m.shutdowns++
	close(m.release)
	return m.shutdownErr
}

func TestHTTPServerService_GracefulShutdown(t *testing.T) {
	t.Parallel()

	mock := newMockServer(nil)
	svc := NewHTTPServerService(mock, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	<-mock.started
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
	if mock.shutdowns != 1 {
		t.Errorf("Shutdown called %d times, want 1", mock.shutdowns)
	}
}

func TestHTTPServerService_StartupFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("listen: address in use")
	svc := NewHTTPServerService(newMockServer(boom), time.Second)

	err := svc.Serve(context.Background())
	if err == nil || !errors.Is(err, boom) {
		t.Errorf("Serve = %v, want wrapped startup error", err)
	}
}

func TestHTTPServerService_String(t *testing.T) {
	t.Parallel()

	svc := NewHTTPServerService(newMockServer(nil), time.Second)
	if svc.String() != "http-server" {
		t.Errorf("String() = %q", svc.String())
	}
}
