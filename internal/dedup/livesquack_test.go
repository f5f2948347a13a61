// BSE Pipeline - Corporate Announcement Ingestion and Categorization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bse-pipeline

package dedup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/bse-pipeline/internal/models"
)

func TestFilter_ReturnsIncomingUnchangedWhenNoneHaveCompanyAndEmbedding(t *testing.T) {
	s := &fakeDashboardStore{livesquackData: map[string][]models.DashboardEntry{}}
	l := NewLivesquack(s)
	incoming := []models.DashboardEntry{
		{Company: "", EmbeddingShortSummary: []float32{1}},
		{Company: "ACME", EmbeddingShortSummary: nil},
	}
	kept, err := l.Filter(t.Context(), incoming, time.Now())
	require.NoError(t, err)
	assert.Equal(t, incoming, kept)
}

func TestFilter_KeepsEntryWhenNoExistingDashboardDocs(t *testing.T) {
	s := &fakeDashboardStore{livesquackData: map[string][]models.DashboardEntry{}}
	l := NewLivesquack(s)
	incoming := []models.DashboardEntry{{Company: "ACME", EmbeddingShortSummary: []float32{1, 0}}}
	kept, err := l.Filter(t.Context(), incoming, time.Now())
	require.NoError(t, err)
	require.Len(t, kept, 1)
}

func TestFilter_DropsWhenSimilarityMeetsThreshold(t *testing.T) {
	s := &fakeDashboardStore{livesquackData: map[string][]models.DashboardEntry{
		"ACME": {{EmbeddingShortSummary: []float32{1, 0}}},
	}}
	l := NewLivesquack(s)
	incoming := []models.DashboardEntry{{Company: "ACME", EmbeddingShortSummary: []float32{1, 0}}}
	kept, err := l.Filter(t.Context(), incoming, time.Now())
	require.NoError(t, err)
	assert.Empty(t, kept)
}

func TestFilter_KeepsWhenBelowThreshold(t *testing.T) {
	s := &fakeDashboardStore{livesquackData: map[string][]models.DashboardEntry{
		"ACME": {{EmbeddingShortSummary: []float32{0, 1}}},
	}}
	l := NewLivesquack(s)
	incoming := []models.DashboardEntry{{Company: "ACME", EmbeddingShortSummary: []float32{1, 0}}}
	kept, err := l.Filter(t.Context(), incoming, time.Now())
	require.NoError(t, err)
	require.Len(t, kept, 1)
}

func TestMaxSimilarity_PicksHighestScoringDoc(t *testing.T) {
	docs := []models.DashboardEntry{
		{EmbeddingShortSummary: []float32{0, 1}},
		{EmbeddingShortSummary: []float32{1, 0}},
	}
	sim := maxSimilarity([]float32{1, 0}, docs)
	assert.InDelta(t, 1.0, sim, 1e-9)
}
