// BSE Pipeline - Corporate Announcement Ingestion and Categorization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bse-pipeline

package fetcher

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponse_ArrayShape(t *testing.T) {
	body := []byte(`[{"SCRIP_CD":"500001","AttachmentName":"a.pdf"}]`)
	recs, err := parseResponse(body)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "500001", recs[0].SCRIPCD)
}

func TestParseResponse_NoRecordFoundIsEmptyNotError(t *testing.T) {
	body := []byte(`{"Error_Msg":"No Record found"}`)
	recs, err := parseResponse(body)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestParseResponse_UnexpectedObjectShapeIsAnomaly(t *testing.T) {
	body := []byte(`{"Error_Msg":"some other message"}`)
	_, err := parseResponse(body)
	require.Error(t, err)
	var ae anomalyError
	assert.ErrorAs(t, err, &ae)
}

func TestParseResponse_UnparseableBodyIsAnomaly(t *testing.T) {
	_, err := parseResponse([]byte("not json"))
	require.Error(t, err)
}

func TestFetchHistorical_SwapsFromAndToWhenReversed(t *testing.T) {
	var gotDays []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		json.NewDecoder(r.Body).Decode(&payload)
		gotDays = append(gotDays, payload["tradedt"].(string))
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.URL = srv.URL
	cfg.ConcurrencyLimit = 4
	f := New(cfg)

	to := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	from := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	results, err := f.FetchHistorical(t.Context(), from, to)
	require.NoError(t, err)
	assert.Len(t, results, 3)
	assert.Len(t, gotDays, 3)
}

func TestFetchHistorical_ClampsToConfiguredRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.URL = srv.URL
	cfg.HistoricalMinDate = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	cfg.HistoricalMaxDate = time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)
	f := New(cfg)

	results, err := f.FetchHistorical(t.Context(),
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, results, 3)
	assert.Equal(t, "20240102", results[0].Tradedt)
	assert.Equal(t, "20240104", results[2].Tradedt)
}

func TestFetchLive_DefaultsToRollingWindowWhenNoLastSeen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.URL = srv.URL
	cfg.LiveDays = 3
	f := New(cfg)

	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	results, err := f.FetchLive(t.Context(), now, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "20240608", results[0].Tradedt)
	assert.Equal(t, "20240610", results[2].Tradedt)
}

func TestFetchLive_StartsFromLastSeenWithinWindow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.URL = srv.URL
	cfg.LiveDays = 7
	f := New(cfg)

	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	lastSeen := time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC)
	results, err := f.FetchLive(t.Context(), now, &lastSeen)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "20240609", results[0].Tradedt)
	assert.Equal(t, "20240610", results[1].Tradedt)
}

func TestFetchLive_LastSeenTodayFetchesOnlyToday(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.URL = srv.URL
	f := New(cfg)

	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	lastSeen := now
	results, err := f.FetchLive(t.Context(), now, &lastSeen)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "20240610", results[0].Tradedt)
}

func TestDoRequest_RetriesThenSucceeds(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`[{"SCRIP_CD":"500001"}]`))
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.URL = srv.URL
	cfg.RetryCount = 3
	cfg.RetryDelaySec = 0
	f := New(cfg)

	result := f.fetchOneDay(t.Context(), "live", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
	require.Len(t, result.Records, 1)
	assert.GreaterOrEqual(t, attempts, 2)
}

func TestDoRequest_ExhaustsRetriesReturnsEmptyDayResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.URL = srv.URL
	cfg.RetryCount = 1
	cfg.RetryDelaySec = 0
	f := New(cfg)

	result := f.fetchOneDay(t.Context(), "live", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
	assert.Empty(t, result.Records)
	assert.Equal(t, "20240101", result.Tradedt)
}
