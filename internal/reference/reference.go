// BSE Pipeline - Corporate Announcement Ingestion and Categorization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bse-pipeline

// Package reference loads the company master once at startup and
// holds it immutably for the life of the process.
package reference

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tomtom215/bse-pipeline/internal/models"
	"github.com/tomtom215/bse-pipeline/internal/store"
)

var isin9Pattern = regexp.MustCompile(`^IN9`)
var partlyPaidPattern = regexp.MustCompile(`(?i)partly\s?paid`)

// Map is an immutable BSE_code -> CompanyRef lookup. Safe for
// concurrent reads by any number of goroutines; never mutated after
// Load returns.
type Map struct {
	byBSE map[string]models.CompanyRef
}

// Load pulls the company master from src and applies the reference
// filter: BSE code present, market cap > 0, ISIN not matching IN9, and
// company name not containing "partly paid" (case-insensitive).
func Load(ctx context.Context, src store.CompanyMasterStore) (*Map, error) {
	records, err := src.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load company master: %w", err)
	}

	m := &Map{byBSE: make(map[string]models.CompanyRef, len(records))}
	for _, rec := range records {
		bse := strings.TrimSpace(rec.BSECode)
		if bse == "" {
			continue
		}
		if rec.MarketCapCrore <= 0 {
			continue
		}
		if isin9Pattern.MatchString(rec.ISIN) {
			continue
		}
		if partlyPaidPattern.MatchString(rec.CompanyName) {
			continue
		}
		bseInt, _ := strconv.Atoi(bse)
		selected := rec.NSECode
		if selected == "" {
			selected = bse
		}
		m.byBSE[bse] = models.CompanyRef{
			Company: rec.ISIN,
			SymbolMap: models.SymbolMap{
				NSE:         rec.NSECode,
				BSE:         bseInt,
				CompanyName: rec.CompanyName,
				SELECTED:    selected,
			},
		}
	}
	return m, nil
}

// Lookup returns the reference entry for a trimmed BSE scrip code.
func (m *Map) Lookup(bseCode string) (models.CompanyRef, bool) {
	ref, ok := m.byBSE[strings.TrimSpace(bseCode)]
	return ref, ok
}

// Len returns the number of companies retained after filtering.
func (m *Map) Len() int { return len(m.byBSE) }
