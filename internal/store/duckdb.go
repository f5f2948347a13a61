// BSE Pipeline - Corporate Announcement Ingestion and Categorization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bse-pipeline

package store

import (
	"context"
	"database/sql"
	"fmt"
	"runtime"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/bse-pipeline/internal/metrics"
	"github.com/tomtom215/bse-pipeline/internal/models"
)

// instrument records a store operation's duration and, on error, bumps
// the error counter; collection/operation label the teacher's
// StoreQueryDuration/StoreQueryErrorsTotal vectors.
func instrument(collection, operation string, err *error, start time.Time) {
	metrics.StoreQueryDuration.WithLabelValues(operation, collection).Observe(time.Since(start).Seconds())
	if *err != nil {
		metrics.StoreQueryErrorsTotal.WithLabelValues(operation, collection).Inc()
	}
}

// DuckDB backs Store with an embedded analytical database file. Each
// collection is one table: indexed/queried fields get native columns,
// everything else rides along as a JSON payload column, preserving
// document-store flexibility without a document database.
type DuckDB struct {
	conn *sql.DB
}

// Open opens (creating if absent) a DuckDB database at dsn. Pass
// ":memory:" for an ephemeral store, used by tests.
func Open(dsn string) (*DuckDB, error) {
	conn, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	conn.SetMaxOpenConns(runtime.NumCPU())
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(time.Hour)

	d := &DuckDB{conn: conn}
	if err := d.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate duckdb: %w", err)
	}
	return d, nil
}

func (d *DuckDB) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS announcements (
			news_id VARCHAR PRIMARY KEY,
			tradedate VARCHAR NOT NULL,
			company VARCHAR NOT NULL,
			category VARCHAR NOT NULL,
			doc JSON NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_announcements_tradedate ON announcements(tradedate)`,
		`CREATE TABLE IF NOT EXISTS reports (
			report_id VARCHAR PRIMARY KEY,
			report_type VARCHAR NOT NULL,
			dt_tm VARCHAR NOT NULL,
			news_id VARCHAR NOT NULL,
			base_id VARCHAR NOT NULL,
			doc JSON NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_type_dt ON reports(report_type, dt_tm)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_base_id ON reports(base_id)`,
		`CREATE TABLE IF NOT EXISTS company_master (
			bse_code VARCHAR PRIMARY KEY,
			isin VARCHAR,
			company_name VARCHAR,
			nse_code VARCHAR,
			market_cap_crore DOUBLE
		)`,
		`CREATE TABLE IF NOT EXISTS dashboard (
			id VARCHAR PRIMARY KEY,
			news_id VARCHAR NOT NULL,
			company VARCHAR NOT NULL,
			dt_tm TIMESTAMP NOT NULL,
			source VARCHAR NOT NULL,
			category VARCHAR NOT NULL,
			duplicate BOOLEAN NOT NULL DEFAULT false,
			doc JSON NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_dashboard_company_dt ON dashboard(company, dt_tm)`,
		`CREATE INDEX IF NOT EXISTS idx_dashboard_news_id ON dashboard(news_id)`,
	}
	for _, s := range stmts {
		if _, err := d.conn.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s, err)
		}
	}
	return nil
}

// Close closes the underlying connection pool.
func (d *DuckDB) Close() error { return d.conn.Close() }

func (d *DuckDB) Announcements() AnnouncementStore { return announcementStore{d} }
func (d *DuckDB) Reports() ReportStore             { return reportStore{d} }
func (d *DuckDB) CompanyMaster() CompanyMasterStore { return companyMasterStore{d} }
func (d *DuckDB) Dashboard() DashboardStore        { return dashboardStore{d} }

var _ Store = (*DuckDB)(nil)

func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return contains(msg, "PRIMARY KEY") || contains(msg, "UNIQUE") || contains(msg, "Duplicate key") || contains(msg, "violates")
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

// --- announcements ---

type announcementStore struct{ d *DuckDB }

func (s announcementStore) ExistingNewsIDs(ctx context.Context, watermark string) (out map[string]struct{}, err error) {
	defer instrument("announcements", "existing_news_ids", &err, time.Now())
	rows, err := s.d.conn.QueryContext(ctx, `SELECT news_id FROM announcements WHERE tradedate >= ?`, watermark)
	if err != nil {
		return nil, fmt.Errorf("query existing news ids: %w", err)
	}
	defer rows.Close()
	out = make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}

func (s announcementStore) InsertMany(ctx context.Context, docs []models.Announcement) (inserted, skipped int, err error) {
	defer instrument("announcements", "insert_many", &err, time.Now())
	for _, a := range docs {
		payload, err := json.Marshal(a)
		if err != nil {
			return inserted, skipped, fmt.Errorf("marshal announcement %s: %w", a.NewsID, err)
		}
		_, err = s.d.conn.ExecContext(ctx,
			`INSERT INTO announcements (news_id, tradedate, company, category, doc) VALUES (?, ?, ?, ?, ?)`,
			a.NewsID, a.Tradedate, a.Company, string(a.Category), string(payload))
		if err != nil {
			if isDuplicateKeyErr(err) {
				skipped++
				continue
			}
			return inserted, skipped, fmt.Errorf("insert announcement %s: %w", a.NewsID, err)
		}
		inserted++
	}
	return inserted, skipped, nil
}

// --- reports ---

type reportStore struct{ d *DuckDB }

func (s reportStore) ExistingReportNewsIDs(ctx context.Context, category models.Category, watermark string) (out map[string]struct{}, err error) {
	defer instrument("reports", "existing_report_news_ids", &err, time.Now())
	rows, err := s.d.conn.QueryContext(ctx,
		`SELECT news_id FROM reports WHERE report_type = ? AND dt_tm >= ?`, string(category), watermark)
	if err != nil {
		return nil, fmt.Errorf("query existing report news ids: %w", err)
	}
	defer rows.Close()
	out = make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}

func (s reportStore) ExistingCountForBaseID(ctx context.Context, baseID string) (n int, err error) {
	defer instrument("reports", "existing_count_for_base_id", &err, time.Now())
	err = s.d.conn.QueryRowContext(ctx, `SELECT count(*) FROM reports WHERE base_id = ?`, baseID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count base_id %s: %w", baseID, err)
	}
	return n, nil
}

func (s reportStore) InsertMany(ctx context.Context, docs []models.Report, batchSize int) (inserted, skipped int, err error) {
	defer instrument("reports", "insert_many", &err, time.Now())
	if batchSize <= 0 {
		batchSize = len(docs)
		if batchSize == 0 {
			batchSize = 1
		}
	}
	for start := 0; start < len(docs); start += batchSize {
		end := start + batchSize
		if end > len(docs) {
			end = len(docs)
		}
		tx, txErr := s.d.conn.BeginTx(ctx, nil)
		if txErr != nil {
			return inserted, skipped, fmt.Errorf("begin tx: %w", txErr)
		}
		batchErr := func() error {
			for _, r := range docs[start:end] {
				payload, mErr := json.Marshal(r)
				if mErr != nil {
					return fmt.Errorf("marshal report %s: %w", r.ReportID, mErr)
				}
				baseID := r.ReportID
				if idx := lastUnderscore(r.ReportID); idx > 0 {
					baseID = r.ReportID[:idx]
				}
				_, execErr := tx.ExecContext(ctx,
					`INSERT INTO reports (report_id, report_type, dt_tm, news_id, base_id, doc) VALUES (?, ?, ?, ?, ?, ?)`,
					r.ReportID, string(r.ReportType), r.DtTm, r.NewsID, baseID, string(payload))
				if execErr != nil {
					if isDuplicateKeyErr(execErr) {
						skipped++
						continue
					}
					return fmt.Errorf("insert report %s: %w", r.ReportID, execErr)
				}
				inserted++
			}
			return nil
		}()
		if batchErr != nil {
			tx.Rollback()
			if err == nil {
				err = batchErr
			}
			continue
		}
		if cErr := tx.Commit(); cErr != nil && err == nil {
			err = fmt.Errorf("commit batch: %w", cErr)
		}
	}
	return inserted, skipped, err
}

func lastUnderscore(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '_' {
			return i
		}
	}
	return -1
}

// --- company master ---

type companyMasterStore struct{ d *DuckDB }

func (s companyMasterStore) LoadAll(ctx context.Context) (out []CompanyRecord, err error) {
	defer instrument("company_master", "load_all", &err, time.Now())
	rows, err := s.d.conn.QueryContext(ctx,
		`SELECT bse_code, isin, company_name, nse_code, market_cap_crore FROM company_master`)
	if err != nil {
		return nil, fmt.Errorf("load company master: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var r CompanyRecord
		if err := rows.Scan(&r.BSECode, &r.ISIN, &r.CompanyName, &r.NSECode, &r.MarketCapCrore); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// --- dashboard ---

type dashboardStore struct{ d *DuckDB }

func (s dashboardStore) Insert(ctx context.Context, doc models.DashboardEntry) (id string, err error) {
	defer instrument("dashboard", "insert", &err, time.Now())
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal dashboard entry: %w", err)
	}
	_, err = s.d.conn.ExecContext(ctx,
		`INSERT INTO dashboard (id, news_id, company, dt_tm, source, category, duplicate, doc) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.NewsID, doc.Company, doc.DtTm, doc.Source, string(doc.Category), doc.Duplicate, string(payload))
	if err != nil {
		return "", fmt.Errorf("insert dashboard entry %s: %w", doc.NewsID, err)
	}
	return doc.ID, nil
}

func excludedList(excluded map[models.Category]bool) []string {
	out := make([]string, 0, len(excluded))
	for c := range excluded {
		out = append(out, string(c))
	}
	return out
}

func (s dashboardStore) find(ctx context.Context, companies []string, since time.Time, excluded map[models.Category]bool, requireSummary bool) (out map[string][]models.DashboardEntry, err error) {
	defer instrument("dashboard", "find", &err, time.Now())
	if len(companies) == 0 {
		return map[string][]models.DashboardEntry{}, nil
	}
	placeholders := make([]any, 0, len(companies)+1)
	placeholders = append(placeholders, since)
	inClause := ""
	for i, c := range companies {
		if i > 0 {
			inClause += ", "
		}
		inClause += "?"
		placeholders = append(placeholders, c)
	}
	excl := excludedList(excluded)
	exclClause := ""
	for _, c := range excl {
		exclClause += ", ?"
		placeholders = append(placeholders, c)
	}
	q := fmt.Sprintf(`SELECT doc FROM dashboard WHERE dt_tm >= ? AND company IN (%s) AND source = 'BSE' AND duplicate = false AND category NOT IN ('' %s) ORDER BY dt_tm DESC`, inClause, exclClause)
	rows, err := s.d.conn.QueryContext(ctx, q, placeholders...)
	if err != nil {
		return nil, fmt.Errorf("query dashboard for dedup: %w", err)
	}
	defer rows.Close()
	out = make(map[string][]models.DashboardEntry)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var entry models.DashboardEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return nil, fmt.Errorf("unmarshal dashboard entry: %w", err)
		}
		if len(entry.EmbeddingShortSummary) == 0 {
			continue
		}
		if requireSummary && entry.ShortSummary == "" {
			continue
		}
		out[entry.Company] = append(out[entry.Company], entry)
	}
	return out, rows.Err()
}

func (s dashboardStore) FindForDedup(ctx context.Context, companies []string, since time.Time, excluded map[models.Category]bool) (map[string][]models.DashboardEntry, error) {
	return s.find(ctx, companies, since, excluded, false)
}

func (s dashboardStore) FindRecentForLivesquack(ctx context.Context, companies []string, since time.Time, excluded map[models.Category]bool) (map[string][]models.DashboardEntry, error) {
	return s.find(ctx, companies, since, excluded, true)
}

func (s dashboardStore) MarkDuplicates(ctx context.Context, ids []string) (modified int64, err error) {
	defer instrument("dashboard", "mark_duplicates", &err, time.Now())
	if len(ids) == 0 {
		return 0, nil
	}
	tx, err := s.d.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	for _, id := range ids {
		res, execErr := tx.ExecContext(ctx, `UPDATE dashboard SET duplicate = true WHERE id = ? AND duplicate = false`, id)
		if execErr != nil {
			tx.Rollback()
			return modified, fmt.Errorf("mark duplicate %s: %w", id, execErr)
		}
		n, _ := res.RowsAffected()
		modified += n
	}
	if err := tx.Commit(); err != nil {
		return modified, fmt.Errorf("commit: %w", err)
	}
	return modified, nil
}
