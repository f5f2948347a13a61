// BSE Pipeline - Corporate Announcement Ingestion and Categorization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bse-pipeline

package config

import (
	"fmt"
	"strings"
)

// Validate checks that required configuration is present and
// internally consistent.
func (c *Config) Validate() error {
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateUpstream(); err != nil {
		return err
	}
	if err := c.validateFetch(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateStore() error {
	if strings.TrimSpace(c.Store.DSN) == "" {
		return fmt.Errorf("store.dsn is required")
	}
	return nil
}

func (c *Config) validateUpstream() error {
	if strings.TrimSpace(c.Upstream.URL) == "" {
		return fmt.Errorf("upstream.url is required")
	}
	return nil
}

func (c *Config) validateFetch() error {
	if c.Fetch.ConcurrencyLimit <= 0 {
		return fmt.Errorf("fetch.concurrency_limit must be positive, got %d", c.Fetch.ConcurrencyLimit)
	}
	if c.Fetch.RetryCount < 0 {
		return fmt.Errorf("fetch.retry_count must be non-negative, got %d", c.Fetch.RetryCount)
	}
	if c.Fetch.LiveDays <= 0 {
		return fmt.Errorf("fetch.live_days must be positive, got %d", c.Fetch.LiveDays)
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.InsertBatch <= 0 {
		return fmt.Errorf("pipeline.insert_batch must be positive, got %d", c.Pipeline.InsertBatch)
	}
	if c.Pipeline.DashboardDedupThreshold <= 0 || c.Pipeline.DashboardDedupThreshold > 1 {
		return fmt.Errorf("pipeline.dashboard_dedup_threshold must be in (0, 1], got %f", c.Pipeline.DashboardDedupThreshold)
	}
	if c.Pipeline.EmbeddingTextThreshold <= 0 || c.Pipeline.EmbeddingTextThreshold > 1 {
		return fmt.Errorf("pipeline.embedding_text_threshold must be in (0, 1], got %f", c.Pipeline.EmbeddingTextThreshold)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug/info/warn/error, got %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
