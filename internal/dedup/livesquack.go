// BSE Pipeline - Corporate Announcement Ingestion and Categorization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bse-pipeline

package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/bse-pipeline/internal/logging"
	"github.com/tomtom215/bse-pipeline/internal/models"
	"github.com/tomtom215/bse-pipeline/internal/store"
)

// Livesquack runs the pre-insert dedup path: for each incoming entry
// of a company, it compares the entry's embedding against the
// company's existing recent dashboard entries and drops it if the
// maximum similarity meets or exceeds Threshold. It never touches the
// store beyond reading — kept entries are left to the caller to
// insert.
type Livesquack struct {
	Store     store.DashboardStore
	Threshold float64
}

// NewLivesquack builds a Livesquack filter with DefaultLivesquackThreshold.
func NewLivesquack(s store.DashboardStore) *Livesquack {
	return &Livesquack{Store: s, Threshold: DefaultLivesquackThreshold}
}

// Filter returns the subset of incoming that are not near-duplicates
// of an existing dashboard entry for the same company. If no entry in
// incoming has both a Company and an embedding, incoming is returned
// unchanged; otherwise entries missing either are left out of the
// result.
func (l *Livesquack) Filter(ctx context.Context, incoming []models.DashboardEntry, since time.Time) ([]models.DashboardEntry, error) {
	byCompany := make(map[string][]models.DashboardEntry)
	for _, d := range incoming {
		if d.Company == "" || len(d.EmbeddingShortSummary) == 0 {
			continue
		}
		byCompany[d.Company] = append(byCompany[d.Company], d)
	}
	if len(byCompany) == 0 {
		return incoming, nil
	}

	companies := make([]string, 0, len(byCompany))
	for c := range byCompany {
		companies = append(companies, c)
	}

	existing, err := l.Store.FindRecentForLivesquack(ctx, companies, since, models.CategoriesExcludedFromDashboardDedup)
	if err != nil {
		return nil, fmt.Errorf("load dashboard entries for livesquack: %w", err)
	}

	var kept []models.DashboardEntry
	var dropped int
	for company, docs := range byCompany {
		dashDocs := existing[company]
		for _, d := range docs {
			if len(dashDocs) == 0 {
				kept = append(kept, d)
				continue
			}
			maxSim := maxSimilarity(d.EmbeddingShortSummary, dashDocs)
			if maxSim >= l.Threshold {
				dropped++
				continue
			}
			kept = append(kept, d)
		}
	}
	if dropped > 0 {
		logging.Info().Int("dropped", dropped).Msg("livesquack: duplicates filtered before insert")
	}
	return kept, nil
}

func maxSimilarity(v []float32, docs []models.DashboardEntry) float64 {
	normed := l2Normalize(v)
	best := -1.0
	for _, d := range docs {
		score := innerProduct(normed, l2Normalize(d.EmbeddingShortSummary))
		if score > best {
			best = score
		}
	}
	return best
}
