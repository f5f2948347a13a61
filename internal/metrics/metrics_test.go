// BSE Pipeline - Corporate Announcement Ingestion and Categorization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bse-pipeline

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordsCategorizedTotal_IncrementsByCategory(t *testing.T) {
	RecordsCategorizedTotal.WithLabelValues("Annual Report").Inc()
	got := testutil.ToFloat64(RecordsCategorizedTotal.WithLabelValues("Annual Report"))
	assert.GreaterOrEqual(t, got, float64(1))
}

func TestReportsWrittenTotal_IncrementsByCategory(t *testing.T) {
	ReportsWrittenTotal.WithLabelValues("Credit Rating").Inc()
	got := testutil.ToFloat64(ReportsWrittenTotal.WithLabelValues("Credit Rating"))
	assert.GreaterOrEqual(t, got, float64(1))
}

func TestObserveCircuitBreakerState(t *testing.T) {
	ObserveCircuitBreakerState(2)
	assert.Equal(t, float64(2), testutil.ToFloat64(CircuitBreakerState))

	ObserveCircuitBreakerState(0)
	assert.Equal(t, float64(0), testutil.ToFloat64(CircuitBreakerState))
}

func TestObserveConnectivity(t *testing.T) {
	ObserveConnectivity(true)
	assert.Equal(t, float64(1), testutil.ToFloat64(SupervisorConnectivityOnline))

	ObserveConnectivity(false)
	assert.Equal(t, float64(0), testutil.ToFloat64(SupervisorConnectivityOnline))
}

func TestDashboardDuplicatesMarkedTotal_Increments(t *testing.T) {
	before := testutil.ToFloat64(DashboardDuplicatesMarkedTotal)
	DashboardDuplicatesMarkedTotal.Add(3)
	after := testutil.ToFloat64(DashboardDuplicatesMarkedTotal)
	assert.Equal(t, before+3, after)
}
