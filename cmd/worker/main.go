// BSE Pipeline - Corporate Announcement Ingestion and Categorization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bse-pipeline

// Command worker runs the announcement fetch/categorize/divide/dedup
// pipeline, either as a one-shot historical backfill (--hist) or as a
// continuous live-polling loop.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/bse-pipeline/internal/categorize"
	"github.com/tomtom215/bse-pipeline/internal/config"
	"github.com/tomtom215/bse-pipeline/internal/embedder"
	"github.com/tomtom215/bse-pipeline/internal/fetcher"
	"github.com/tomtom215/bse-pipeline/internal/logging"
	"github.com/tomtom215/bse-pipeline/internal/orchestrator"
	"github.com/tomtom215/bse-pipeline/internal/reference"
	"github.com/tomtom215/bse-pipeline/internal/store"
	"github.com/tomtom215/bse-pipeline/internal/supervisor/services"
)

func main() {
	hist := flag.Bool("hist", false, "run a one-shot historical backfill instead of the continuous live loop")
	histFrom := flag.String("from", "", "historical backfill start date, YYYY-MM-DD (defaults to historical.min_date)")
	histTo := flag.String("to", "", "historical backfill end date, YYYY-MM-DD (defaults to historical.max_date, or today when that is unset)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := store.Open(cfg.Store.DSN)
	if err != nil {
		logging.Error().Err(err).Msg("open store")
		os.Exit(1)
	}
	defer db.Close()

	refMap, err := reference.Load(ctx, db.CompanyMaster())
	if err != nil {
		logging.Error().Err(err).Msg("load company reference map")
		os.Exit(1)
	}
	logging.Info().Int("companies", refMap.Len()).Msg("loaded company reference map")

	cat := categorize.New(refMap, categorize.DefaultRules())

	minDate, maxDate, err := cfg.Historical.ParseHistoricalWindow()
	if err != nil {
		logging.Error().Err(err).Msg("parse historical window")
		os.Exit(1)
	}

	fetchCfg := fetcher.DefaultConfig()
	fetchCfg.URL = cfg.Upstream.URL
	fetchCfg.PayloadTemplate = make(map[string]any, len(cfg.Upstream.PayloadTemplate))
	for k, v := range cfg.Upstream.PayloadTemplate {
		fetchCfg.PayloadTemplate[k] = v
	}
	fetchCfg.ConcurrencyLimit = cfg.Fetch.ConcurrencyLimit
	fetchCfg.TimeoutSec = int(cfg.Fetch.Timeout.Seconds())
	fetchCfg.RetryCount = cfg.Fetch.RetryCount
	fetchCfg.RetryDelaySec = int(cfg.Fetch.RetryDelay.Seconds())
	fetchCfg.LiveDays = cfg.Fetch.LiveDays
	fetchCfg.HistoricalMinDate = minDate
	fetchCfg.HistoricalMaxDate = maxDate
	f := fetcher.New(fetchCfg)

	orchCfg := orchestrator.DefaultConfig()
	orchCfg.RunIntervalMin = cfg.Run.IntervalMinutes
	orchCfg.LiveDays = cfg.Fetch.LiveDays
	orchCfg.NoOfDaysCheck = cfg.Pipeline.NoOfDaysCheck
	orchCfg.DashboardDedupThreshold = cfg.Pipeline.DashboardDedupThreshold
	orchCfg.LivesquackThreshold = cfg.Pipeline.EmbeddingTextThreshold

	emb := buildEmbedder(cfg.Embedding)
	orch := orchestrator.New(orchCfg, f, cat, db, emb)

	go serveHealth(ctx, cfg.Health.Addr)

	if *hist {
		from := minDate
		to := maxDate
		if *histFrom != "" {
			from, err = time.Parse("2006-01-02", *histFrom)
			if err != nil {
				logging.Error().Err(err).Msg("parse --from")
				os.Exit(1)
			}
		}
		if *histTo != "" {
			to, err = time.Parse("2006-01-02", *histTo)
			if err != nil {
				logging.Error().Err(err).Msg("parse --to")
				os.Exit(1)
			}
		}
		if err := orch.RunHistorical(ctx, from, to); err != nil {
			logging.Error().Err(err).Msg("historical backfill failed")
			os.Exit(1)
		}
		logging.Info().Msg("historical backfill complete")
		return
	}

	if err := orch.RunLive(ctx, time.Now); err != nil && ctx.Err() == nil {
		logging.Error().Err(err).Msg("live loop failed")
		os.Exit(1)
	}
	logging.Info().Msg("worker shut down")
}

// buildEmbedder returns nil when no embedding service URL is
// configured, leaving the orchestrator to insert dashboard entries
// unvectorized. The embedding model itself is an external collaborator
// (spec.md §1 Non-goals); this only builds the HTTP boundary to one.
func buildEmbedder(cfg config.EmbeddingConfig) *embedder.Embedder {
	if cfg.ServiceURL == "" {
		return nil
	}
	model := embedder.NewHTTPModel(cfg.ServiceURL, &http.Client{Timeout: cfg.Timeout})
	return embedder.New(model, cfg.UseGPU, cfg.NumWorkers)
}

// serveHealth runs the worker's /healthz and /metrics endpoints behind
// a Chi router (rate limited, with panic recovery) under the generic
// HTTPServerService wrapper, so it shares the same graceful-shutdown
// behavior suture services get in the supervisor.
func serveHealth(ctx context.Context, addr string) {
	if addr == "" {
		return
	}
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(httprate.LimitByIP(120, time.Minute))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	svc := services.NewHTTPServerService(srv, 10*time.Second)
	if err := svc.Serve(ctx); err != nil {
		logging.Error().Err(err).Msg("health endpoint failed")
	}
}
