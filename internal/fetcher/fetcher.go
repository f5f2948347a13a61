// BSE Pipeline - Corporate Announcement Ingestion and Categorization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bse-pipeline

// Package fetcher issues per-trading-day POST requests against the
// upstream announcements API with bounded concurrency, timeout and
// exponential-backoff retry, covering both a live rolling window and
// arbitrary historical ranges.
package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/bse-pipeline/internal/logging"
	"github.com/tomtom215/bse-pipeline/internal/metrics"
	"github.com/tomtom215/bse-pipeline/internal/models"
)

// circuit breaker state numbering matches metrics.ObserveCircuitBreakerState's doc.
const (
	cbStateClosed   = 0
	cbStateHalfOpen = 1
	cbStateOpen     = 2
)

// Config holds the tunables for a Fetcher.
type Config struct {
	URL               string
	PayloadTemplate   map[string]any
	ConcurrencyLimit  int
	TimeoutSec        int
	RetryCount        int
	RetryDelaySec     int
	HistoricalMinDate time.Time
	HistoricalMaxDate time.Time
	LiveDays          int
}

// DefaultConfig mirrors the upstream source's defaults.
func DefaultConfig() Config {
	return Config{
		ConcurrencyLimit: 20,
		TimeoutSec:       50,
		RetryCount:       3,
		RetryDelaySec:    2,
		LiveDays:         7,
	}
}

// DayResult is the outcome of fetching a single trading day.
type DayResult struct {
	Tradedt string
	Records []models.RawAnnouncement
}

// Fetcher issues day-windowed requests against the upstream API.
type Fetcher struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[[]byte]
}

// New builds a Fetcher sharing one HTTP client and circuit breaker
// across all requests it issues.
func New(cfg Config) *Fetcher {
	cbSettings := gobreaker.Settings{
		Name:        "bse-upstream",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 10 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("fetcher circuit breaker state change")
			metrics.ObserveCircuitBreakerState(gobreakerStateCode(to))
		},
	}
	return &Fetcher{
		cfg:     cfg,
		client:  &http.Client{Timeout: time.Duration(cfg.TimeoutSec) * time.Second},
		limiter: rate.NewLimiter(rate.Limit(cfg.ConcurrencyLimit), cfg.ConcurrencyLimit),
		cb:      gobreaker.NewCircuitBreaker[[]byte](cbSettings),
	}
}

// FetchHistorical fetches every trading day in [from, to] inclusive,
// clamped to the configured historical range. Swaps from/to if
// from > to.
func (f *Fetcher) FetchHistorical(ctx context.Context, from, to time.Time) ([]DayResult, error) {
	if from.After(to) {
		from, to = to, from
	}
	if !f.cfg.HistoricalMinDate.IsZero() && from.Before(f.cfg.HistoricalMinDate) {
		from = f.cfg.HistoricalMinDate
	}
	if !f.cfg.HistoricalMaxDate.IsZero() && to.After(f.cfg.HistoricalMaxDate) {
		to = f.cfg.HistoricalMaxDate
	}

	var days []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return f.fetchDays(ctx, "historical", days, midnight)
}

// FetchLive fetches the rolling window [today-(LiveDays-1), today]. If
// lastSeen falls within that window, the window instead starts at
// lastSeen's day. If lastSeen is today, only today is requested.
func (f *Fetcher) FetchLive(ctx context.Context, now time.Time, lastSeen *time.Time) ([]DayResult, error) {
	today := now.Truncate(24 * time.Hour)
	windowStart := today.AddDate(0, 0, -(f.cfg.LiveDays - 1))

	start := windowStart
	if lastSeen != nil {
		ls := lastSeen.Truncate(24 * time.Hour)
		if !ls.Before(windowStart) && !ls.After(today) {
			start = ls
		}
		if ls.Equal(today) {
			start = today
		}
	}

	var days []time.Time
	for d := start; !d.After(today); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}

	refTime := func(d time.Time) time.Time {
		if d.Equal(today) {
			return now
		}
		return midnight(d)
	}
	return f.fetchDays(ctx, "live", days, refTime)
}

func gobreakerStateCode(s gobreaker.State) int {
	switch s {
	case gobreaker.StateHalfOpen:
		return cbStateHalfOpen
	case gobreaker.StateOpen:
		return cbStateOpen
	default:
		return cbStateClosed
	}
}

func midnight(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
}

// fetchDays issues one request per day concurrently, bounded by
// cfg.ConcurrencyLimit, using refTime(day) as the hour/min/sec source
// for the request payload.
func (f *Fetcher) fetchDays(ctx context.Context, mode string, days []time.Time, refTime func(time.Time) time.Time) ([]DayResult, error) {
	sem := make(chan struct{}, f.cfg.ConcurrencyLimit)
	results := make([]DayResult, len(days))
	var wg sync.WaitGroup

	for i, day := range days {
		wg.Add(1)
		go func(i int, day time.Time) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := f.limiter.Wait(ctx); err != nil {
				results[i] = DayResult{Tradedt: day.Format("20060102")}
				return
			}
			results[i] = f.fetchOneDay(ctx, mode, day, refTime(day))
		}(i, day)
	}
	wg.Wait()
	return results, nil
}

// anomalyError marks an unexpected upstream response (a non-2xx status
// or an unrecognized body); it is retried like a transport error. The
// normal empty-day response is not an error: parseResponse returns no
// records and a nil error for it.
type anomalyError struct{ reason string }

func (e anomalyError) Error() string { return "anomaly: " + e.reason }

func (f *Fetcher) fetchOneDay(ctx context.Context, mode string, day, ref time.Time) DayResult {
	tradedt := day.Format("20060102")
	start := time.Now()
	defer func() {
		metrics.FetchDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	}()

	operation := func() ([]models.RawAnnouncement, error) {
		return f.doRequest(ctx, tradedt, ref)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Duration(f.cfg.RetryDelaySec) * time.Second
	bo.Multiplier = 2
	bo.MaxElapsedTime = 0

	var records []models.RawAnnouncement
	err := backoff.Retry(func() error {
		recs, err := operation()
		if err != nil {
			return err
		}
		records = recs
		return nil
	}, backoff.WithMaxRetries(bo, uint64(f.cfg.RetryCount)))

	metrics.FetchDaysTotal.WithLabelValues(mode).Inc()
	if err != nil {
		metrics.FetchErrorsTotal.WithLabelValues(mode).Inc()
		logging.Warn().Str("tradedt", tradedt).Err(err).Msg("fetch day failed after retries, returning empty")
		return DayResult{Tradedt: tradedt}
	}
	return DayResult{Tradedt: tradedt, Records: records}
}

func (f *Fetcher) doRequest(ctx context.Context, tradedt string, ref time.Time) ([]models.RawAnnouncement, error) {
	payload := make(map[string]any, len(f.cfg.PayloadTemplate)+4)
	for k, v := range f.cfg.PayloadTemplate {
		payload[k] = v
	}
	payload["tradedt"] = tradedt
	payload["hr"] = fmt.Sprintf("%02d", ref.Hour())
	payload["min"] = fmt.Sprintf("%02d", ref.Minute())
	payload["sec"] = fmt.Sprintf("%02d", ref.Second())

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	respBody, err := f.cb.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.cfg.URL, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := f.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("do request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, anomalyError{reason: fmt.Sprintf("status %d", resp.StatusCode)}
		}
		return io.ReadAll(resp.Body)
	})
	if err != nil {
		return nil, err
	}

	return parseResponse(respBody)
}

func parseResponse(body []byte) ([]models.RawAnnouncement, error) {
	var asArray []models.RawAnnouncement
	if err := json.Unmarshal(body, &asArray); err == nil {
		return asArray, nil
	}

	var asObject struct {
		ErrorMsg string `json:"Error_Msg"`
	}
	if err := json.Unmarshal(body, &asObject); err == nil {
		if asObject.ErrorMsg == "No Record found" {
			return nil, nil
		}
		return nil, anomalyError{reason: "unexpected object response shape"}
	}

	return nil, anomalyError{reason: "unparseable response body"}
}
