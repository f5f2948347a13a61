// BSE Pipeline - Corporate Announcement Ingestion and Categorization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bse-pipeline

// Package logging is the worker and supervisor processes' shared
// zerolog-based global logger: zero-allocation structured logging,
// JSON output for production and a console writer for local runs,
// correlation-ID propagation via context (context.go), and an slog
// adapter (slog_adapter.go) for suture's event log.
//
// # Quick start
//
//	import "github.com/tomtom215/bse-pipeline/internal/logging"
//
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	logging.Info().Str("scrip_cd", code).Msg("announcement categorized")
//	logging.Error().Err(err).Msg("fetch failed")
//
//	logger := logging.Ctx(ctx)
//	logger.Info().Msg("processing request")
//
// # Configuration
//
// Environment variables, read by internal/config and passed through
// as a Config:
//
//	LOG_LEVEL  - debug, info, warn, error (default: info)
//	LOG_FORMAT - json, console (default: json)
//	LOG_CALLER - true, false (default: false)
//
// # Log chains
//
// Always terminate a chain with .Msg() or .Send() — an unterminated
// chain is dropped silently:
//
//	logging.Info().Str("key", "value").Msg("message")  // correct
//	logging.Info().Str("key", "value")                 // dropped
//
// # Component loggers
//
//	fetchLogger := logging.With().Str("component", "fetcher").Logger()
//	fetchLogger.Warn().Err(err).Msg("retrying after circuit open")
//
// # slog adapter
//
// Suture (internal/supervisor's Tree) logs via slog; NewSlogLogger
// bridges its log/slog.Handler calls back into the same zerolog
// global logger so both paths end up in one output stream.
//
//	slogLogger := logging.NewSlogLogger()
package logging
