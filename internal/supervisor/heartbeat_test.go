// BSE Pipeline - Corporate Announcement Ingestion and Categorization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bse-pipeline

package supervisor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHeartbeatWriter_InitialStatus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heartbeat.json")
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h := NewHeartbeatWriter(path, time.Minute, start)
	assert.Equal(t, os.Getpid(), h.status.SupervisorPID)
	assert.Equal(t, start.Unix(), h.status.StartTime)
	assert.True(t, h.status.SupervisorRunning)
}

func TestUpdate_WritesAtomicallyAndIsReadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heartbeat.json")
	h := NewHeartbeatWriter(path, time.Minute, time.Now())

	err := h.Update(func(s *HeartbeatStatus) { s.ChildRunning = true; s.ChildPID = 1234 })
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got HeartbeatStatus
	require.NoError(t, json.Unmarshal(data, &got))
	assert.True(t, got.ChildRunning)
	assert.Equal(t, 1234, got.ChildPID)
}

func TestUpdate_NoLeftoverTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "heartbeat.json")
	h := NewHeartbeatWriter(path, time.Minute, time.Now())
	require.NoError(t, h.Update(func(s *HeartbeatStatus) {}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "heartbeat.json", entries[0].Name())
}

func TestServe_WritesFinalRecordOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heartbeat.json")
	h := NewHeartbeatWriter(path, time.Hour, time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Serve(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got HeartbeatStatus
	require.NoError(t, json.Unmarshal(data, &got))
	assert.False(t, got.SupervisorRunning)
}

func TestServe_WritesRunningRecordWhileActive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heartbeat.json")
	h := NewHeartbeatWriter(path, 20*time.Millisecond, time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Serve(ctx)

	time.Sleep(100 * time.Millisecond)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got HeartbeatStatus
	require.NoError(t, json.Unmarshal(data, &got))
	assert.True(t, got.SupervisorRunning)
}
