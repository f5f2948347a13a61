// BSE Pipeline - Corporate Announcement Ingestion and Categorization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bse-pipeline

/*
Package services provides suture.Service wrappers for components whose
lifecycle does not already match suture v4's context-aware Serve pattern.
It currently holds one wrapper, HTTPServerService, which translates the
ListenAndServe/Shutdown pattern.

# Overview

Each wrapper implements the suture.Service interface:

	type Service interface {
	    Serve(ctx context.Context) error
	}

The wrappers handle:
  - Lifecycle translation (ListenAndServe/Shutdown to Serve pattern)
  - Graceful shutdown via context cancellation
  - Error propagation for supervisor restart decisions
  - Service identification via fmt.Stringer

# Available Services

HTTP Server (HTTPServerService):
  - Wraps *http.Server with graceful shutdown
  - Converts ListenAndServe pattern to Serve
  - Configurable shutdown timeout for draining connections (10s when
    zero or negative)

# Usage Example

Creating and registering the service:

	import (
	    "net/http"
	    "time"

	    "github.com/tomtom215/bse-pipeline/internal/supervisor"
	    "github.com/tomtom215/bse-pipeline/internal/supervisor/services"
	)

	func setupSupervisor(ctx context.Context, logger *slog.Logger, server *http.Server) {
	    tree, _ := supervisor.NewTree(logger, supervisor.DefaultTreeConfig())

	    // HTTP server with 30s shutdown timeout
	    httpSvc := services.NewHTTPServerService(server, 30*time.Second)
	    tree.Add(httpSvc)

	    // Start supervision
	    tree.Serve(ctx)
	}

The worker's health endpoint does not use a Tree: it calls Serve on
the service directly.

# Lifecycle Pattern

ListenAndServe Pattern:

	type Listener interface {
	    ListenAndServe() error
	    Shutdown(ctx context.Context) error
	}

	// Wrapped as:
	func (s *Service) Serve(ctx context.Context) error {
	    go s.server.ListenAndServe()
	    <-ctx.Done()
	    return s.server.Shutdown(shutdownCtx)
	}

# Return Values

HTTPServerService.Serve returns:

	ctx.Err()            -> shutdown after ctx was canceled
	wrapped error        -> ListenAndServe failed, or Shutdown failed
	nil                  -> ListenAndServe returned nil or http.ErrServerClosed on its own

# Service Identification

All services implement fmt.Stringer for logging:

	func (s *HTTPServerService) String() string {
	    return "http-server"
	}

Suture uses this for log messages:

	INFO http-server: starting
	INFO http-server: stopped
	ERROR http-server: restarting after failure

# Testing

Services can be tested with mock components:

	type MockServer struct {
	    started  bool
	    shutdown bool
	    stop     chan struct{}
	}

	func (m *MockServer) ListenAndServe() error {
	    m.started = true
	    <-m.stop // Block until shutdown
	    return http.ErrServerClosed
	}

	func (m *MockServer) Shutdown(ctx context.Context) error {
	    m.shutdown = true
	    close(m.stop)
	    return nil
	}

	func TestHTTPService(t *testing.T) {
	    mock := &MockServer{stop: make(chan struct{})}
	    svc := services.NewHTTPServerService(mock, time.Second)

	    ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	    defer cancel()

	    svc.Serve(ctx)

	    if !mock.started { t.Error("server not started") }
	    if !mock.shutdown { t.Error("server not shutdown") }
	}

# Thread Safety

HTTPServerService holds no mutable state of its own after
construction. Calling Serve more than once on the same value is not
supported (undefined behavior).

# See Also

  - internal/supervisor: Tree, which runs suture services
  - github.com/thejerf/suture/v4: Underlying supervision library
*/
package services
