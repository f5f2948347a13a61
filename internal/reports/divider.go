// BSE Pipeline - Corporate Announcement Ingestion and Categorization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bse-pipeline

// Package reports divides categorized announcements into per-category
// report streams, assigning each a deterministic report_id keyed by
// (company, category, fiscal-quarter, ordinal-within-quarter).
package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/tomtom215/bse-pipeline/internal/metrics"
	"github.com/tomtom215/bse-pipeline/internal/models"
	"github.com/tomtom215/bse-pipeline/internal/store"
)

// DefaultInsertBatch is the default chunk size for bulk report writes.
const DefaultInsertBatch = 1000

// FiscalQuarter maps a calendar month to its Indian fiscal quarter
// label and fiscal year, given the calendar year the month falls in.
// Fiscal year ends March 31: Jan-Mar belongs to Q4 of the prior fiscal
// year; Apr-Jun is Q1 of the current fiscal year.
func FiscalQuarter(month, calendarYear int) (qtr string, fiscalYear int) {
	switch {
	case month >= 1 && month <= 3:
		return "Q4", calendarYear - 1
	case month >= 4 && month <= 6:
		return "Q1", calendarYear
	case month >= 7 && month <= 9:
		return "Q2", calendarYear
	default:
		return "Q3", calendarYear
	}
}

// Divider implements the report divider contract (spec §4.4).
type Divider struct {
	Announcements store.AnnouncementStore
	Reports       store.ReportStore
	InsertBatch   int
}

// New builds a Divider with DefaultInsertBatch.
func New(anns store.AnnouncementStore, reports store.ReportStore) *Divider {
	return &Divider{Announcements: anns, Reports: reports, InsertBatch: DefaultInsertBatch}
}

// Result summarizes one Divide call.
type Result struct {
	AnnouncementsInserted int
	AnnouncementsSkipped  int
	ReportsInserted       int
	ReportsSkipped        int
}

// Divide bulk-inserts canon into the announcements collection, then
// for each of the four reportable categories computes and inserts the
// per-category report documents, assigning dense ordinals within each
// (company, category, year, qtr) partition in Tradedate-ascending
// order.
func (d *Divider) Divide(ctx context.Context, canon []models.Announcement, watermark string) (Result, error) {
	var res Result
	if len(canon) == 0 {
		return res, nil
	}

	inserted, skipped, err := d.Announcements.InsertMany(ctx, canon)
	if err != nil {
		return res, fmt.Errorf("insert announcements: %w", err)
	}
	res.AnnouncementsInserted, res.AnnouncementsSkipped = inserted, skipped

	for _, category := range models.CategoriesRequiringReport {
		var inCategory []models.Announcement
		for _, a := range canon {
			if a.Category == category {
				inCategory = append(inCategory, a)
			}
		}
		if len(inCategory) == 0 {
			continue
		}

		existingNewsIDs, err := d.Reports.ExistingReportNewsIDs(ctx, category, watermark)
		if err != nil {
			return res, fmt.Errorf("load existing report news ids for %s: %w", category, err)
		}

		var filtered []models.Announcement
		for _, a := range inCategory {
			if _, ok := existingNewsIDs[a.NewsID]; !ok {
				filtered = append(filtered, a)
			}
		}
		if len(filtered) == 0 {
			continue
		}

		docs, err := d.structureCategoryDocs(ctx, category, filtered)
		if err != nil {
			return res, fmt.Errorf("structure reports for %s: %w", category, err)
		}

		ins, skip, err := d.Reports.InsertMany(ctx, docs, d.InsertBatch)
		res.ReportsInserted += ins
		res.ReportsSkipped += skip
		if err != nil {
			return res, fmt.Errorf("insert reports for %s: %w", category, err)
		}
		metrics.ReportsWrittenTotal.WithLabelValues(string(category)).Add(float64(ins))
	}
	return res, nil
}

// structureCategoryDocs groups filtered by (company, year, qtr) base
// id, looks up each partition's current occupancy, and assigns dense
// ordinals in Tradedate-ascending order within each group.
func (d *Divider) structureCategoryDocs(ctx context.Context, category models.Category, filtered []models.Announcement) ([]models.Report, error) {
	type parsed struct {
		ann models.Announcement
		dt  time.Time
	}

	groups := make(map[string][]parsed)
	var order []string
	shortCat := models.ShortCode(category)

	for _, a := range filtered {
		dt, err := models.ParseTradedate(a.Tradedate)
		if err != nil {
			continue
		}
		qtr, fiscalYear := FiscalQuarter(int(dt.Month()), dt.Year())
		baseID := fmt.Sprintf("%s_%s_FY%d%s", a.Company, shortCat, fiscalYear, qtr)
		if _, ok := groups[baseID]; !ok {
			order = append(order, baseID)
		}
		groups[baseID] = append(groups[baseID], parsed{ann: a, dt: dt})
	}

	docs := make([]models.Report, 0, len(filtered))
	now := time.Now().UTC().Format(models.TradedateLayout)

	for _, baseID := range order {
		members := groups[baseID]
		sort.SliceStable(members, func(i, j int) bool {
			return members[i].dt.Before(members[j].dt)
		})

		start, err := d.Reports.ExistingCountForBaseID(ctx, baseID)
		if err != nil {
			return nil, fmt.Errorf("existing count for %s: %w", baseID, err)
		}

		for i, m := range members {
			count := start + i + 1
			qtr, fiscalYear := FiscalQuarter(int(m.dt.Month()), m.dt.Year())
			docs = append(docs, models.Report{
				Company:      m.ann.Company,
				SymbolMap:    m.ann.SymbolMap,
				NewsID:       m.ann.NewsID,
				Datecode:     m.dt.Format("20060102"),
				Year:         fiscalYear,
				Qtr:          qtr,
				DtTm:         m.ann.Tradedate,
				URL:          m.ann.AttachmentURL,
				ReportID:     fmt.Sprintf("%s_%d", baseID, count),
				ReportType:   category,
				ReportLine:   m.ann.NewsBody,
				Count:        count,
				DocumentDate: now,
			})
		}
	}
	return docs, nil
}
