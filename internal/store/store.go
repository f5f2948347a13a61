// BSE Pipeline - Corporate Announcement Ingestion and Categorization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bse-pipeline

// Package store abstracts the persistent document collections the
// pipeline reads and writes: AllAnnouncements, AllReports,
// CompanyMaster and Dashboard. The collections are treated as named
// sets supporting find/insert/update/distinct with indexed queries;
// this package backs that abstraction with an embedded DuckDB
// database rather than a document database, storing each document as
// a JSON payload alongside the columns the pipeline actually filters
// or sorts on.
package store

import (
	"context"
	"time"

	"github.com/tomtom215/bse-pipeline/internal/models"
)

// AnnouncementStore is the AllAnnouncements collection.
type AnnouncementStore interface {
	// ExistingNewsIDs returns the set of news_ids with Tradedate >=
	// watermark (canonical "YYYY-MM-DD HH:MM:SS" format).
	ExistingNewsIDs(ctx context.Context, watermark string) (map[string]struct{}, error)

	// InsertMany inserts docs, skipping (not erroring on) news_id
	// collisions. Returns the count actually inserted and the count
	// skipped as duplicates.
	InsertMany(ctx context.Context, docs []models.Announcement) (inserted, skipped int, err error)
}

// ReportStore is the AllReports collection.
type ReportStore interface {
	// ExistingReportNewsIDs returns the news_ids already present in
	// the reports collection for category with dt_tm >= watermark,
	// used to exclude already-divided announcements from a re-run.
	ExistingReportNewsIDs(ctx context.Context, category models.Category, watermark string) (map[string]struct{}, error)

	// ExistingCountForBaseID returns how many report_id values already
	// share the given base_id prefix (company_shortcat_FYyearqtr), the
	// current occupancy of that partition.
	ExistingCountForBaseID(ctx context.Context, baseID string) (int, error)

	// InsertMany inserts docs in batches of at most batchSize,
	// skipping report_id collisions. Returns inserted/skipped counts
	// and the first non-duplicate-key error encountered, if any
	// (processing continues past such errors to the next batch).
	InsertMany(ctx context.Context, docs []models.Report, batchSize int) (inserted, skipped int, err error)
}

// CompanyRecord is one row of the raw company master, before the
// reference loader's filter is applied.
type CompanyRecord struct {
	BSECode        string
	ISIN           string
	CompanyName    string
	NSECode        string
	MarketCapCrore float64
}

// CompanyMasterStore is the read-only CompanyMaster collection.
type CompanyMasterStore interface {
	LoadAll(ctx context.Context) ([]CompanyRecord, error)
}

// DashboardStore is the Dashboard collection.
type DashboardStore interface {
	// Insert adds a new entry, assigning its ID.
	Insert(ctx context.Context, doc models.DashboardEntry) (id string, err error)

	// FindForDedup returns, per company in companies, the entries
	// eligible for the post-insert BSE deduplicator: dt_tm >= since,
	// source == "BSE", category not in excludedCategories,
	// embedding present, duplicate == false.
	FindForDedup(ctx context.Context, companies []string, since time.Time, excludedCategories map[models.Category]bool) (map[string][]models.DashboardEntry, error)

	// FindRecentForLivesquack returns, per company, the entries
	// eligible for the Livesquack pre-insert check: same filter as
	// FindForDedup plus a non-empty short summary.
	FindRecentForLivesquack(ctx context.Context, companies []string, since time.Time, excludedCategories map[models.Category]bool) (map[string][]models.DashboardEntry, error)

	// MarkDuplicates sets duplicate=true for the given ids where
	// duplicate is currently false. Returns the number modified.
	MarkDuplicates(ctx context.Context, ids []string) (int64, error)
}

// Store bundles the four collections behind one handle, matching the
// single async DB handle the worker holds for its data-plane
// collections.
type Store interface {
	Announcements() AnnouncementStore
	Reports() ReportStore
	CompanyMaster() CompanyMasterStore
	Dashboard() DashboardStore
	Close() error
}
