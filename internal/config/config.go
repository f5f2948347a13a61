// BSE Pipeline - Corporate Announcement Ingestion and Categorization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bse-pipeline

// Package config loads and validates the worker and supervisor
// processes' configuration via a layered koanf stack: struct defaults,
// an optional YAML file, then environment variables (highest
// priority).
package config

import "time"

// StoreConfig configures the document store backing.
type StoreConfig struct {
	DSN string `koanf:"dsn"`
}

// UpstreamConfig configures the announcement-feed HTTP upstream.
type UpstreamConfig struct {
	URL             string            `koanf:"url"`
	PayloadTemplate map[string]string `koanf:"payload_template"`
	Headers         map[string]string `koanf:"headers"`
}

// FetchConfig configures fetch concurrency, timeouts and retries.
type FetchConfig struct {
	ConcurrencyLimit int           `koanf:"concurrency_limit"`
	Timeout          time.Duration `koanf:"timeout"`
	RetryCount       int           `koanf:"retry_count"`
	RetryDelay       time.Duration `koanf:"retry_delay"`
	LiveDays         int           `koanf:"live_days"`
}

// HistoricalConfig bounds the historical backfill window. Dates are
// kept as "2006-01-02" strings here since koanf's default decode
// hooks parse durations but not timestamps; ParseHistoricalWindow
// converts them for use by the fetcher.
type HistoricalConfig struct {
	MinDate string `koanf:"min_date"`
	MaxDate string `koanf:"max_date"`
}

// ParseHistoricalWindow parses HistoricalConfig's date strings,
// defaulting MinDate to the zero time and MaxDate to now when empty.
func (h HistoricalConfig) ParseHistoricalWindow() (min, max time.Time, err error) {
	if h.MinDate != "" {
		min, err = time.Parse("2006-01-02", h.MinDate)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	max = time.Now()
	if h.MaxDate != "" {
		max, err = time.Parse("2006-01-02", h.MaxDate)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	return min, max, nil
}

// PipelineConfig configures categorization/division/dedup behavior.
type PipelineConfig struct {
	InsertBatch             int     `koanf:"insert_batch"`
	EmbeddingTextThreshold  float64 `koanf:"embedding_text_threshold"`
	DashboardDedupThreshold float64 `koanf:"dashboard_dedup_threshold"`
	NoOfDaysCheck           int     `koanf:"no_of_days_check"`
}

// RunConfig configures the orchestrator's live loop cadence.
type RunConfig struct {
	IntervalMinutes int `koanf:"interval_minutes"`
}

// SupervisorConfig configures the outer child-process supervisor.
type SupervisorConfig struct {
	HeartbeatPath         string        `koanf:"heartbeat_path"`
	HeartbeatInterval     time.Duration `koanf:"heartbeat_interval"`
	FreezeTimeout         time.Duration `koanf:"freeze_timeout"`
	RestartDelay          time.Duration `koanf:"restart_delay"`
	InternetCheckInterval time.Duration `koanf:"internet_check_interval"`
	ErrorMsgInterval      time.Duration `koanf:"error_msg_interval"`
}

// LoggingConfig configures zerolog sink behavior.
type LoggingConfig struct {
	Level         string `koanf:"level"`
	Format        string `koanf:"format"`
	Caller        bool   `koanf:"caller"`
	RetentionDays int    `koanf:"retention_days"`
	FilePath      string `koanf:"file_path"`
}

// NotificationConfig configures the outbound digest sink.
type NotificationConfig struct {
	WebhookURL string `koanf:"webhook_url"`
	Token      string `koanf:"token"`
	ChatID     string `koanf:"chat_id"`
}

// EmbeddingConfig configures the optional external embedding service.
// Empty ServiceURL means the worker runs without an embedder: dashboard
// entries are still inserted, just never vectorized or deduplicated.
type EmbeddingConfig struct {
	ServiceURL string        `koanf:"service_url"`
	Timeout    time.Duration `koanf:"timeout"`
	NumWorkers int           `koanf:"num_workers"`
	UseGPU     bool          `koanf:"use_gpu"`
}

// HealthConfig configures the worker's health-check HTTP listener.
type HealthConfig struct {
	Addr string `koanf:"addr"`
}

// Config is the root configuration for both the worker and supervisor
// processes. Only the sections relevant to a given process are read
// by that process's main, but both share this one struct and loader.
type Config struct {
	Store        StoreConfig        `koanf:"store"`
	Upstream     UpstreamConfig     `koanf:"upstream"`
	Fetch        FetchConfig        `koanf:"fetch"`
	Historical   HistoricalConfig   `koanf:"historical"`
	Pipeline     PipelineConfig     `koanf:"pipeline"`
	Run          RunConfig          `koanf:"run"`
	Supervisor   SupervisorConfig   `koanf:"supervisor"`
	Logging      LoggingConfig      `koanf:"logging"`
	Notification NotificationConfig `koanf:"notification"`
	Embedding    EmbeddingConfig    `koanf:"embedding"`
	Health       HealthConfig       `koanf:"health"`
}
