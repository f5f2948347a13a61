// BSE Pipeline - Corporate Announcement Ingestion and Categorization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bse-pipeline

// Package orchestrator drives the fetch -> categorize -> divide ->
// dedup pipeline, in a single historical pass or a continuous live
// loop, gated by connectivity checks.
package orchestrator

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/bse-pipeline/internal/categorize"
	"github.com/tomtom215/bse-pipeline/internal/dedup"
	"github.com/tomtom215/bse-pipeline/internal/embedder"
	"github.com/tomtom215/bse-pipeline/internal/fetcher"
	"github.com/tomtom215/bse-pipeline/internal/logging"
	"github.com/tomtom215/bse-pipeline/internal/models"
	"github.com/tomtom215/bse-pipeline/internal/reports"
	"github.com/tomtom215/bse-pipeline/internal/store"
)

// Config holds timing knobs for the live loop and the connectivity
// gate.
type Config struct {
	RunIntervalMin      int
	ConnectivityURL     string
	ConnectivityBackoff time.Duration
	LiveDays            int
	NoOfDaysCheck       int

	// DashboardDedupThreshold and LivesquackThreshold override the
	// deduplicators' default similarity thresholds when positive; zero
	// leaves each deduplicator's own package default in place.
	DashboardDedupThreshold float64
	LivesquackThreshold     float64
}

// DefaultConfig mirrors the documented defaults.
func DefaultConfig() Config {
	return Config{
		RunIntervalMin:          15,
		ConnectivityBackoff:     15 * time.Minute,
		LiveDays:                7,
		NoOfDaysCheck:           7,
		DashboardDedupThreshold: dedup.DefaultThreshold,
		LivesquackThreshold:     dedup.DefaultLivesquackThreshold,
	}
}

// Orchestrator wires the pipeline stages together.
type Orchestrator struct {
	cfg        Config
	fetcher    *fetcher.Fetcher
	categorize *categorize.Categorizer
	store      store.Store
	embedder   *embedder.Embedder
	dashDedup  *dedup.Dashboard
	livesquack *dedup.Livesquack
	httpProbe  *http.Client
}

// New builds an Orchestrator. emb may be nil, in which case the
// embed+filter step of divideAndDedup is skipped entirely and
// dashboard entries are inserted unvectorized (the post-insert
// Dashboard deduplicator then has nothing to cluster on for them).
func New(cfg Config, f *fetcher.Fetcher, c *categorize.Categorizer, s store.Store, emb *embedder.Embedder) *Orchestrator {
	dashDedup := dedup.NewDashboard(s.Dashboard())
	if cfg.DashboardDedupThreshold > 0 {
		dashDedup.Threshold = cfg.DashboardDedupThreshold
	}
	livesquack := dedup.NewLivesquack(s.Dashboard())
	if cfg.LivesquackThreshold > 0 {
		livesquack.Threshold = cfg.LivesquackThreshold
	}
	return &Orchestrator{
		cfg:        cfg,
		fetcher:    f,
		categorize: c,
		store:      s,
		embedder:   emb,
		dashDedup:  dashDedup,
		livesquack: livesquack,
		httpProbe:  &http.Client{Timeout: 5 * time.Second},
	}
}

// RunHistorical performs a single pass: gate on connectivity, fetch
// the inclusive [from, to] range, categorize, divide. Returns after
// one pass.
func (o *Orchestrator) RunHistorical(ctx context.Context, from, to time.Time) error {
	o.gateOnConnectivity(ctx)

	days, err := o.fetcher.FetchHistorical(ctx, from, to)
	if err != nil {
		return fmt.Errorf("fetch historical: %w", err)
	}

	raw := flattenDays(days)
	watermark := from.Format(models.TradedateLayout)
	return o.categorizeAndDivide(ctx, raw, watermark)
}

// RunLive runs the continuous live loop until ctx is cancelled. Each
// iteration gates on connectivity, fetches the live window since the
// last watermark, categorizes, divides, seeds dashboard entries for
// the touched companies (embedding and Livesquack-filtering them first
// if an embedder is configured), and re-runs the post-insert dashboard
// deduplicator over those companies' recent windows.
func (o *Orchestrator) RunLive(ctx context.Context, now func() time.Time) error {
	lastWatermark := now().AddDate(0, 0, -(o.cfg.LiveDays - 1))

	ticker := time.NewTicker(time.Duration(o.cfg.RunIntervalMin) * time.Minute)
	defer ticker.Stop()

	for {
		o.gateOnConnectivity(ctx)

		runStart := now().Truncate(time.Minute)

		days, err := o.fetcher.FetchLive(ctx, runStart, &lastWatermark)
		if err != nil {
			logging.Error().Err(err).Msg("fetch live failed this iteration")
		} else {
			raw := flattenDays(days)
			watermark := lastWatermark.Format(models.TradedateLayout)
			canon, err := o.categorize.Run(ctx, o.store.Announcements(), raw, watermark)
			if err != nil {
				logging.Error().Err(err).Msg("categorize failed this iteration")
			} else if len(canon) > 0 {
				if err := o.divideAndDedup(ctx, canon, watermark); err != nil {
					logging.Error().Err(err).Msg("divide/dedup failed this iteration")
				}
			}
		}

		lastWatermark = runStart

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func flattenDays(days []fetcher.DayResult) []models.RawAnnouncement {
	var out []models.RawAnnouncement
	for _, d := range days {
		out = append(out, d.Records...)
	}
	return out
}

func (o *Orchestrator) categorizeAndDivide(ctx context.Context, raw []models.RawAnnouncement, watermark string) error {
	canon, err := o.categorize.Run(ctx, o.store.Announcements(), raw, watermark)
	if err != nil {
		return fmt.Errorf("categorize: %w", err)
	}
	if len(canon) == 0 {
		return nil
	}
	return o.divideAndDedup(ctx, canon, watermark)
}

// divideAndDedup writes canon to the announcements/reports
// collections, seeds the dashboard with one candidate entry per
// eligible canonical announcement (embedding and Livesquack-filtering
// them first when an embedder is configured), then re-runs the
// post-insert dashboard deduplicator for every company touched this
// iteration. The richer LLM-based impact/sentiment enrichment path
// named in spec.md §1's Non-goals is a separate ingestion path that
// may overwrite these fields later; this orchestrator only guarantees
// the entries exist and are embedded/filtered for the deduplicator to
// work with.
func (o *Orchestrator) divideAndDedup(ctx context.Context, canon []models.Announcement, watermark string) error {
	divider := reports.New(o.store.Announcements(), o.store.Reports())
	res, err := divider.Divide(ctx, canon, watermark)
	if err != nil {
		return fmt.Errorf("divide: %w", err)
	}
	logging.Info().
		Int("announcements_inserted", res.AnnouncementsInserted).
		Int("announcements_skipped", res.AnnouncementsSkipped).
		Int("reports_inserted", res.ReportsInserted).
		Int("reports_skipped", res.ReportsSkipped).
		Msg("orchestrator: categorize/divide complete")

	since := time.Now().AddDate(0, 0, -o.cfg.NoOfDaysCheck)

	if err := o.seedDashboardEntries(ctx, canon, since); err != nil {
		logging.Warn().Err(err).Msg("dashboard seeding failed this iteration")
	}

	companies := distinctCompanies(canon)
	if marked, err := o.dashDedup.Run(ctx, companies, since); err != nil {
		logging.Warn().Err(err).Msg("dashboard dedup failed this iteration")
	} else if marked > 0 {
		logging.Info().Int64("marked_duplicate", marked).Msg("dashboard dedup complete")
	}
	return nil
}

// seedDashboardEntries builds a candidate dashboard entry per eligible
// canonical announcement, embeds them if an embedder is configured,
// runs the Livesquack pre-insert filter over the embedded candidates,
// and inserts whatever survives. Announcements in
// models.CategoriesExcludedFromDashboardDedup never become candidates.
// If no embedder is configured, candidates are inserted unembedded and
// unfiltered: Livesquack.Filter is only invoked after Embed has
// succeeded for the batch, since in a batch where some entries carry an
// embedding it leaves out the ones that do not.
func (o *Orchestrator) seedDashboardEntries(ctx context.Context, canon []models.Announcement, since time.Time) error {
	candidates := dashboardCandidates(canon)
	if len(candidates) == 0 {
		return nil
	}

	if o.embedder != nil {
		if err := o.embedder.Embed(ctx, candidates); err != nil {
			return fmt.Errorf("embed dashboard candidates: %w", err)
		}
		if o.livesquack != nil {
			kept, err := o.livesquack.Filter(ctx, candidates, since)
			if err != nil {
				logging.Warn().Err(err).Msg("livesquack filter failed, inserting candidates unfiltered")
			} else {
				candidates = kept
			}
		}
	}

	var inserted int
	for _, c := range candidates {
		if _, err := o.store.Dashboard().Insert(ctx, c); err != nil {
			logging.Warn().Str("news_id", c.NewsID).Err(err).Msg("dashboard insert failed")
			continue
		}
		inserted++
	}
	if inserted > 0 {
		logging.Info().Int("inserted", inserted).Msg("dashboard entries seeded")
	}
	return nil
}

// dashboardCandidates builds one DashboardEntry per canonical
// announcement eligible for the dashboard, using the headline as a
// placeholder short summary: the LLM-based impact/sentiment scoring
// that would normally replace it is a separate ingestion path (spec.md
// §1 Non-goals) not implemented here.
func dashboardCandidates(canon []models.Announcement) []models.DashboardEntry {
	var out []models.DashboardEntry
	for _, a := range canon {
		if models.CategoriesExcludedFromDashboardDedup[a.Category] {
			continue
		}
		dtTm, err := models.ParseTradedate(a.Tradedate)
		if err != nil {
			continue
		}
		out = append(out, models.DashboardEntry{
			NewsID:       a.NewsID,
			Company:      a.Company,
			Stock:        a.SymbolMap.SELECTED,
			DtTm:         dtTm,
			Category:     a.Category,
			Source:       "BSE",
			ShortSummary: a.HeadLine,
			SymbolMap:    a.SymbolMap,
			DocumentDate: a.Tradedate,
		})
	}
	return out
}

func distinctCompanies(canon []models.Announcement) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, a := range canon {
		if _, ok := seen[a.Company]; !ok {
			seen[a.Company] = struct{}{}
			out = append(out, a.Company)
		}
	}
	return out
}

// gateOnConnectivity probes ConnectivityURL before proceeding. On
// failure it retries with ConnectivityBackoff until the probe
// succeeds or ctx is cancelled; it never aborts the process.
func (o *Orchestrator) gateOnConnectivity(ctx context.Context) {
	if o.cfg.ConnectivityURL == "" {
		return
	}
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.cfg.ConnectivityURL, nil)
		if err == nil {
			resp, err := o.httpProbe.Do(req)
			if err == nil {
				resp.Body.Close()
				if resp.StatusCode < 500 {
					return
				}
			}
		}
		logging.Warn().Dur("backoff", o.cfg.ConnectivityBackoff).Msg("connectivity gate: probe failed, waiting")
		select {
		case <-ctx.Done():
			return
		case <-time.After(o.cfg.ConnectivityBackoff):
		}
	}
}
