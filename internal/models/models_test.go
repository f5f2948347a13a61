// BSE Pipeline - Corporate Announcement Ingestion and Categorization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bse-pipeline

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShortCode_KnownCategories(t *testing.T) {
	assert.Equal(t, "IP", ShortCode(CategoryInvestorPresentation))
	assert.Equal(t, "AR", ShortCode(CategoryAnnualReport))
	assert.Equal(t, "CR", ShortCode(CategoryCreditRating))
	assert.Equal(t, "ECT", ShortCode(CategoryEarningsCallScript))
}

func TestShortCode_UnknownCategoryFallsBackToPrefix(t *testing.T) {
	assert.Equal(t, "GE", ShortCode(CategoryGeneral))
	assert.Equal(t, "XY", ShortCode(Category("xyz corp")))
}

func TestShortCode_ShortCategoryNameDoesNotPanic(t *testing.T) {
	assert.Equal(t, "X", ShortCode(Category("x")))
	assert.Equal(t, "", ShortCode(Category("")))
}

func TestCategoriesExcludedFromDashboardDedup(t *testing.T) {
	assert.True(t, CategoriesExcludedFromDashboardDedup[CategoryInvestorPresentation])
	assert.True(t, CategoriesExcludedFromDashboardDedup[CategoryEarningsCallScript])
	assert.True(t, CategoriesExcludedFromDashboardDedup[Category("Broker Report")])
	assert.False(t, CategoriesExcludedFromDashboardDedup[CategoryAnnualReport])
	assert.False(t, CategoriesExcludedFromDashboardDedup[CategoryGeneral])
}

func TestCategoriesRequiringReport(t *testing.T) {
	assert.Len(t, CategoriesRequiringReport, 4)
	assert.Contains(t, CategoriesRequiringReport, CategoryInvestorPresentation)
	assert.NotContains(t, CategoriesRequiringReport, CategoryGeneral)
}

func TestParseTradedate_RoundTrip(t *testing.T) {
	ts, err := ParseTradedate("2024-03-15 09:30:00")
	require.NoError(t, err)
	assert.Equal(t, 2024, ts.Year())
	assert.Equal(t, 3, int(ts.Month()))
	assert.Equal(t, 15, ts.Day())
}

func TestParseTradedate_InvalidFormat(t *testing.T) {
	_, err := ParseTradedate("15/03/2024 09:30:00")
	require.Error(t, err)
}
