// BSE Pipeline - Corporate Announcement Ingestion and Categorization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bse-pipeline

package supervisor

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingService struct {
	serveCount atomic.Int32
}

func (c *countingService) Serve(ctx context.Context) error {
	c.serveCount.Add(1)
	<-ctx.Done()
	return ctx.Err()
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDefaultTreeConfig_FillsExpectedDefaults(t *testing.T) {
	cfg := DefaultTreeConfig()
	assert.Equal(t, 5.0, cfg.FailureThreshold)
	assert.Equal(t, 30.0, cfg.FailureDecay)
	assert.Equal(t, 15*time.Second, cfg.FailureBackoff)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestNewTree_ZeroValueConfigGetsDefaults(t *testing.T) {
	tree, err := NewTree(testLogger(), TreeConfig{})
	require.NoError(t, err)
	assert.Equal(t, 5.0, tree.config.FailureThreshold)
	assert.Equal(t, 10*time.Second, tree.config.ShutdownTimeout)
}

func TestTree_AddAndServeRunsRegisteredServices(t *testing.T) {
	tree, err := NewTree(testLogger(), DefaultTreeConfig())
	require.NoError(t, err)

	svc := &countingService{}
	tree.Add(svc)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	require.Eventually(t, func() bool { return svc.serveCount.Load() > 0 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-errCh:
	case <-time.After(2 * time.Second):
		t.Fatal("tree did not shut down after context cancel")
	}
}

func TestTree_UnstoppedServiceReportOnCleanShutdownIsEmpty(t *testing.T) {
	tree, err := NewTree(testLogger(), DefaultTreeConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)
	cancel()
	<-errCh

	report, err := tree.UnstoppedServiceReport()
	require.NoError(t, err)
	assert.Empty(t, report)
}
