// BSE Pipeline - Corporate Announcement Ingestion and Categorization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bse-pipeline

package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/bse-pipeline/internal/metrics"
)

// Config holds the child-process supervision parameters (spec.md
// §4.8's env vars).
type Config struct {
	Command   string
	Args      []string
	Env       []string

	HeartbeatPath       string
	HeartbeatInterval   time.Duration
	FreezeTimeout       time.Duration
	RestartDelay        time.Duration
	InternetCheckInterval time.Duration
	ErrorMsgInterval    time.Duration
	DNSAddr             string
	FallbackURL         string
}

// DefaultConfig returns spec-mandated defaults for every duration field.
func DefaultConfig() Config {
	return Config{
		HeartbeatInterval:     15 * time.Second,
		FreezeTimeout:         10 * time.Second,
		RestartDelay:          10 * time.Second,
		InternetCheckInterval: 10 * time.Second,
		ErrorMsgInterval:      60 * time.Second,
		DNSAddr:               "8.8.8.8:53",
	}
}

// connectivityService adapts ConnectivityProber's extra-argument Serve
// into the plain suture.Service{Serve(ctx) error} shape.
type connectivityService struct {
	prober   *ConnectivityProber
	interval time.Duration
	onChange func(online bool)
}

func (c *connectivityService) Serve(ctx context.Context) error {
	return c.prober.Serve(ctx, c.interval, c.onChange)
}

// Supervisor owns the worker child process's full lifecycle: spawn,
// stderr digestion, connectivity-loss termination, restart-on-exit,
// and heartbeat reporting. It is not itself a suture.Service — an OS
// process cannot satisfy that interface — so it drives its own
// restart loop directly, while delegating its ancillary goroutines
// (heartbeat, connectivity, digest) to a Tree.
type Supervisor struct {
	cfg    Config
	logger *slog.Logger

	tree      *Tree
	heartbeat *HeartbeatWriter
	prober    *ConnectivityProber
	digest    *Digest

	mu           sync.Mutex
	restartCount int
	lastReason   string
	childCancel  context.CancelFunc
}

// New builds a Supervisor and wires its internal services onto tree.
func New(cfg Config, logger *slog.Logger, tree *Tree, notifier Notifier) *Supervisor {
	hb := NewHeartbeatWriter(cfg.HeartbeatPath, cfg.HeartbeatInterval, time.Now())
	prober := NewConnectivityProber(cfg.DNSAddr, cfg.FallbackURL)
	digest := NewDigest(notifier, cfg.ErrorMsgInterval, 90)

	s := &Supervisor{cfg: cfg, logger: logger, tree: tree, heartbeat: hb, prober: prober, digest: digest}

	tree.Add(hb)
	tree.Add(digest)
	tree.Add(&connectivityService{prober: prober, interval: cfg.InternetCheckInterval, onChange: s.onConnectivityChange})

	return s
}

func (s *Supervisor) onConnectivityChange(online bool) {
	metrics.ObserveConnectivity(online)
	_ = s.heartbeat.Update(func(st *HeartbeatStatus) { st.InternetOnline = online })
	if !online {
		s.logger.Warn("internet connectivity lost, terminating child")
		s.terminateChild("internet connectivity lost")
	}
}

// Run blocks, spawning the worker, restarting it on exit, until ctx is
// canceled.
func (s *Supervisor) Run(ctx context.Context) error {
	if err := s.prober.WaitUntilStable(ctx, 2*time.Second, 3); err != nil {
		return fmt.Errorf("waiting for stable connectivity: %w", err)
	}
	_ = s.heartbeat.Update(func(st *HeartbeatStatus) { st.InternetOnline = true })

	for {
		select {
		case <-ctx.Done():
			s.terminateChild("supervisor shutting down")
			_ = s.heartbeat.Update(func(st *HeartbeatStatus) { st.SupervisorRunning = false })
			return ctx.Err()
		default:
		}

		exitCode, err := s.runChildOnce(ctx)
		if ctx.Err() != nil {
			s.terminateChild("supervisor shutting down")
			_ = s.heartbeat.Update(func(st *HeartbeatStatus) { st.SupervisorRunning = false })
			return ctx.Err()
		}

		metrics.SupervisorRestartsTotal.Inc()
		s.mu.Lock()
		s.restartCount++
		reason := fmt.Sprintf("child exited with code %d", exitCode)
		if err != nil {
			reason = fmt.Sprintf("child failed: %v", err)
		}
		s.lastReason = reason
		count := s.restartCount
		s.mu.Unlock()

		_ = s.heartbeat.Update(func(st *HeartbeatStatus) {
			st.ChildRunning = false
			st.ChildExitCode = exitCode
			st.RestartCount = count
			st.LastRestartReason = reason
		})
		s.logger.Warn("worker child exited, restarting", "reason", reason, "restart_count", count)

		select {
		case <-ctx.Done():
			continue
		case <-time.After(s.cfg.RestartDelay):
		}
	}
}

// runChildOnce spawns and waits for a single run of the worker,
// returning its exit code.
func (s *Supervisor) runChildOnce(ctx context.Context) (int, error) {
	childCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.childCancel = cancel
	s.mu.Unlock()
	defer cancel()

	cmd := exec.CommandContext(childCtx, s.cfg.Command, s.cfg.Args...)
	cmd.Env = append(os.Environ(), s.cfg.Env...)
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGINT) }
	cmd.WaitDelay = s.cfg.FreezeTimeout

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return -1, fmt.Errorf("open child stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return -1, fmt.Errorf("start child: %w", err)
	}

	correlationID := uuid.NewString()
	s.digest.SetCorrelationID(correlationID)
	_ = s.heartbeat.Update(func(st *HeartbeatStatus) {
		st.ChildRunning = true
		st.ChildPID = cmd.Process.Pid
		st.ChildCorrelationID = correlationID
	})
	s.logger.Info("worker child started", "pid", cmd.Process.Pid, "correlation_id", correlationID)

	go s.digest.ConsumeStderr(stderr)

	err = cmd.Wait()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return -1, err
		}
	}
	return exitCode, nil
}

// terminateChild signals the currently running child, if any, to stop.
func (s *Supervisor) terminateChild(reason string) {
	s.mu.Lock()
	cancel := s.childCancel
	s.lastReason = reason
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
