// BSE Pipeline - Corporate Announcement Ingestion and Categorization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bse-pipeline

package reference

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/bse-pipeline/internal/store"
)

type fakeCompanyMasterStore struct {
	records []store.CompanyRecord
}

func (f fakeCompanyMasterStore) LoadAll(ctx context.Context) ([]store.CompanyRecord, error) {
	return f.records, nil
}

func TestLoad_FiltersMissingBSECode(t *testing.T) {
	src := fakeCompanyMasterStore{records: []store.CompanyRecord{
		{BSECode: "", ISIN: "INE000A01001", CompanyName: "Acme", MarketCapCrore: 100},
	}}
	m, err := Load(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Len())
}

func TestLoad_FiltersZeroMarketCap(t *testing.T) {
	src := fakeCompanyMasterStore{records: []store.CompanyRecord{
		{BSECode: "500001", ISIN: "INE000A01001", CompanyName: "Acme", MarketCapCrore: 0},
	}}
	m, err := Load(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Len())
}

func TestLoad_FiltersIN9ISIN(t *testing.T) {
	src := fakeCompanyMasterStore{records: []store.CompanyRecord{
		{BSECode: "500001", ISIN: "IN9000A01001", CompanyName: "Acme", MarketCapCrore: 100},
	}}
	m, err := Load(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Len())
}

func TestLoad_FiltersPartlyPaidCompanyName(t *testing.T) {
	src := fakeCompanyMasterStore{records: []store.CompanyRecord{
		{BSECode: "500001", ISIN: "INE000A01001", CompanyName: "Acme Partly Paid", MarketCapCrore: 100},
	}}
	m, err := Load(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Len())
}

func TestLoad_RetainsValidRecordWithParsedBSEInt(t *testing.T) {
	src := fakeCompanyMasterStore{records: []store.CompanyRecord{
		{BSECode: "500001", ISIN: "INE000A01001", CompanyName: "Acme Ltd", NSECode: "ACME", MarketCapCrore: 100},
	}}
	m, err := Load(context.Background(), src)
	require.NoError(t, err)
	require.Equal(t, 1, m.Len())

	ref, ok := m.Lookup("500001")
	require.True(t, ok)
	assert.Equal(t, "INE000A01001", ref.Company)
	assert.Equal(t, 500001, ref.SymbolMap.BSE)
	assert.Equal(t, "ACME", ref.SymbolMap.NSE)
	assert.Equal(t, "Acme Ltd", ref.SymbolMap.CompanyName)
}

func TestLookup_TrimsWhitespace(t *testing.T) {
	src := fakeCompanyMasterStore{records: []store.CompanyRecord{
		{BSECode: "500001", ISIN: "INE000A01001", CompanyName: "Acme Ltd", MarketCapCrore: 100},
	}}
	m, err := Load(context.Background(), src)
	require.NoError(t, err)

	_, ok := m.Lookup("  500001  ")
	assert.True(t, ok)
}

func TestLookup_UnknownCodeReturnsFalse(t *testing.T) {
	m, err := Load(context.Background(), fakeCompanyMasterStore{})
	require.NoError(t, err)
	_, ok := m.Lookup("999999")
	assert.False(t, ok)
}
