// BSE Pipeline - Corporate Announcement Ingestion and Categorization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bse-pipeline

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the fetch/categorize/divide/dedup
// pipeline and its supervising process.
var (
	FetchDaysTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_fetch_days_total",
			Help: "Total number of calendar days fetched from the upstream feed",
		},
		[]string{"mode"}, // "historical", "live"
	)

	FetchErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_fetch_errors_total",
			Help: "Total number of upstream fetch failures after retry exhaustion",
		},
		[]string{"mode"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_fetch_duration_seconds",
			Help:    "Duration of a single day's upstream fetch, in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	CircuitBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pipeline_fetch_circuit_breaker_state",
			Help: "Upstream circuit breaker state: 0=closed, 1=half-open, 2=open",
		},
	)

	RecordsCategorizedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_records_categorized_total",
			Help: "Total number of announcement records categorized",
		},
		[]string{"category"},
	)

	RecordsSkippedDuplicateTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_records_skipped_duplicate_total",
			Help: "Total number of incoming records skipped as already-seen news_ids",
		},
	)

	ReportsWrittenTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_reports_written_total",
			Help: "Total number of report documents written by category",
		},
		[]string{"category"},
	)

	DashboardDuplicatesMarkedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_dashboard_duplicates_marked_total",
			Help: "Total number of dashboard entries marked duplicate by clustering",
		},
	)

	DashboardDedupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pipeline_dashboard_dedup_duration_seconds",
			Help:    "Duration of a single dashboard dedup pass, in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	EmbeddingsGeneratedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_embeddings_generated_total",
			Help: "Total number of short-summary embeddings computed",
		},
	)

	SupervisorRestartsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "supervisor_child_restarts_total",
			Help: "Total number of times the supervisor restarted the worker child process",
		},
	)

	SupervisorConnectivityOnline = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "supervisor_internet_online",
			Help: "1 if the supervisor's last connectivity probe succeeded, else 0",
		},
	)

	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_store_query_duration_seconds",
			Help:    "Duration of document store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "collection"},
	)

	StoreQueryErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_store_query_errors_total",
			Help: "Total number of document store operation errors",
		},
		[]string{"operation", "collection"},
	)
)

// ObserveCircuitBreakerState records gobreaker's numeric state (0
// closed, 1 half-open, 2 open) on the gauge.
func ObserveCircuitBreakerState(state int) {
	CircuitBreakerState.Set(float64(state))
}

// ObserveConnectivity records the supervisor's last probe result.
func ObserveConnectivity(online bool) {
	if online {
		SupervisorConnectivityOnline.Set(1)
		return
	}
	SupervisorConnectivityOnline.Set(0)
}
