// BSE Pipeline - Corporate Announcement Ingestion and Categorization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bse-pipeline

package supervisor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// HeartbeatStatus is the JSON document written to the heartbeat file.
type HeartbeatStatus struct {
	SupervisorPID      int    `json:"supervisor_pid"`
	StartTime          int64  `json:"start_time"`
	Timestamp          int64  `json:"timestamp"`
	RestartCount       int    `json:"restart_count"`
	InternetOnline     bool   `json:"internet_online"`
	ChildRunning       bool   `json:"child_running"`
	ChildPID           int    `json:"child_pid"`
	ChildExitCode      int    `json:"child_exit_code"`
	ChildCorrelationID string `json:"child_correlation_id"`
	LastRestartReason  string `json:"last_restart_reason"`
	SupervisorRunning  bool   `json:"supervisor_running"`
}

// HeartbeatWriter owns the single mutable status record and rewrites
// the heartbeat file atomically (write tmp, rename) every interval.
// All shared mutable state lives behind mu; there is exactly one
// writer.
type HeartbeatWriter struct {
	path     string
	interval time.Duration

	mu     sync.Mutex
	status HeartbeatStatus
}

// NewHeartbeatWriter builds a writer targeting path, rewriting every
// interval.
func NewHeartbeatWriter(path string, interval time.Duration, startTime time.Time) *HeartbeatWriter {
	return &HeartbeatWriter{
		path:     path,
		interval: interval,
		status: HeartbeatStatus{
			SupervisorPID:     os.Getpid(),
			StartTime:         startTime.Unix(),
			SupervisorRunning: true,
		},
	}
}

// Update applies fn to the current status under lock and writes the
// result immediately.
func (h *HeartbeatWriter) Update(fn func(*HeartbeatStatus)) error {
	h.mu.Lock()
	fn(&h.status)
	snapshot := h.status
	h.mu.Unlock()
	return writeAtomic(h.path, snapshot)
}

func writeAtomic(path string, status HeartbeatStatus) error {
	status.Timestamp = time.Now().Unix()
	payload, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal heartbeat: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".heartbeat-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp heartbeat file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp heartbeat file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp heartbeat file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename heartbeat file: %w", err)
	}
	return nil
}

// Serve implements suture.Service: it rewrites the heartbeat file
// every interval until ctx is canceled, at which point it flushes a
// final supervisor_running=false record.
func (h *HeartbeatWriter) Serve(ctx context.Context) error {
	if err := h.Update(func(s *HeartbeatStatus) {}); err != nil {
		return fmt.Errorf("initial heartbeat write: %w", err)
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = h.Update(func(s *HeartbeatStatus) { s.SupervisorRunning = false })
			return ctx.Err()
		case <-ticker.C:
			_ = h.Update(func(s *HeartbeatStatus) {})
		}
	}
}
