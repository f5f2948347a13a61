// BSE Pipeline - Corporate Announcement Ingestion and Categorization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bse-pipeline

// Package metrics exposes Prometheus instrumentation for the
// fetch/categorize/divide/dedup pipeline and the process that
// supervises its worker: fetch throughput and errors, circuit breaker
// state, per-category record and report counts, dashboard dedup
// duration, and supervisor restart/connectivity state.
//
// Metrics are registered against the default Prometheus registry via
// promauto at package init and are safe for concurrent use from any
// goroutine.
package metrics
