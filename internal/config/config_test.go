// BSE Pipeline - Corporate Announcement Ingestion and Categorization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bse-pipeline

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.Store.DSN = "/data/pipeline.duckdb"
	cfg.Upstream.URL = "https://example.invalid/api/announcements"
	return cfg
}

func TestValidate_ValidConfigPasses(t *testing.T) {
	err := validConfig().Validate()
	require.NoError(t, err)
}

func TestValidate_MissingStoreDSN(t *testing.T) {
	cfg := validConfig()
	cfg.Store.DSN = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.dsn")
}

func TestValidate_MissingUpstreamURL(t *testing.T) {
	cfg := validConfig()
	cfg.Upstream.URL = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream.url")
}

func TestValidate_InvalidConcurrencyLimit(t *testing.T) {
	cfg := validConfig()
	cfg.Fetch.ConcurrencyLimit = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "concurrency_limit")
}

func TestValidate_InvalidDashboardDedupThreshold(t *testing.T) {
	cfg := validConfig()
	cfg.Pipeline.DashboardDedupThreshold = 1.5
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dashboard_dedup_threshold")
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "verbose"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.level")
}

func TestHistoricalConfig_ParseHistoricalWindow_Empty(t *testing.T) {
	h := HistoricalConfig{}
	min, max, err := h.ParseHistoricalWindow()
	require.NoError(t, err)
	assert.True(t, min.IsZero())
	assert.False(t, max.IsZero())
}

func TestHistoricalConfig_ParseHistoricalWindow_Explicit(t *testing.T) {
	h := HistoricalConfig{MinDate: "2024-01-01", MaxDate: "2024-12-31"}
	min, max, err := h.ParseHistoricalWindow()
	require.NoError(t, err)
	assert.Equal(t, 2024, min.Year())
	assert.Equal(t, 2024, max.Year())
}
