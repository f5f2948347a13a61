// BSE Pipeline - Corporate Announcement Ingestion and Categorization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bse-pipeline

package categorize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/bse-pipeline/internal/models"
	"github.com/tomtom215/bse-pipeline/internal/reference"
	"github.com/tomtom215/bse-pipeline/internal/store"
)

type fakeCompanyMasterStore struct {
	records []store.CompanyRecord
}

func (f fakeCompanyMasterStore) LoadAll(ctx context.Context) ([]store.CompanyRecord, error) {
	return f.records, nil
}

type fakeAnnouncementStore struct {
	existing map[string]struct{}
}

func (f fakeAnnouncementStore) ExistingNewsIDs(ctx context.Context, watermark string) (map[string]struct{}, error) {
	if f.existing == nil {
		return map[string]struct{}{}, nil
	}
	return f.existing, nil
}

func (f fakeAnnouncementStore) InsertMany(ctx context.Context, docs []models.Announcement) (int, int, error) {
	return len(docs), 0, nil
}

func testRefMap(t *testing.T) *reference.Map {
	t.Helper()
	src := fakeCompanyMasterStore{records: []store.CompanyRecord{
		{BSECode: "500001", ISIN: "INE000A01001", CompanyName: "Acme Ltd", NSECode: "ACME", MarketCapCrore: 100},
	}}
	m, err := reference.Load(context.Background(), src)
	require.NoError(t, err)
	return m
}

func rawRec(scripCD, attach, headline, body, descriptor string) models.RawAnnouncement {
	return models.RawAnnouncement{
		SCRIPCD:        scripCD,
		AttachmentName: attach,
		HeadLine:       headline,
		NewsBody:       body,
		Descriptor:     descriptor,
		Tradedate:      "15/03/2024 09:30:00",
	}
}

func TestCategorizeOne_UnknownCompanyIsSkipped(t *testing.T) {
	c := New(testRefMap(t), nil)
	_, ok := c.categorizeOne(rawRec("999999", "abc.pdf", "", "", ""), map[string]struct{}{})
	assert.False(t, ok)
}

func TestCategorizeOne_NonPDFAttachmentIsSkipped(t *testing.T) {
	c := New(testRefMap(t), nil)
	_, ok := c.categorizeOne(rawRec("500001", "abc.txt", "", "", ""), map[string]struct{}{})
	assert.False(t, ok)
}

func TestCategorizeOne_DuplicateNewsIDIsSkipped(t *testing.T) {
	c := New(testRefMap(t), nil)
	existing := map[string]struct{}{"abc": {}}
	_, ok := c.categorizeOne(rawRec("500001", "abc.pdf", "", "", ""), existing)
	assert.False(t, ok)
}

func TestCategorizeOne_DescriptorExactMatchTakesPriorityOverRules(t *testing.T) {
	c := New(testRefMap(t), nil)
	canon, ok := c.categorizeOne(rawRec("500001", "abc.pdf", "Annual Report for FY24", "", "Credit Rating"), map[string]struct{}{})
	require.True(t, ok)
	assert.Equal(t, models.CategoryCreditRating, canon.Category)
}

func TestCategorizeOne_RuleMatchesHeadline(t *testing.T) {
	c := New(testRefMap(t), nil)
	canon, ok := c.categorizeOne(rawRec("500001", "abc.pdf", "Investor Presentation Q4", "", ""), map[string]struct{}{})
	require.True(t, ok)
	assert.Equal(t, models.CategoryInvestorPresentation, canon.Category)
}

func TestCategorizeOne_NoRuleMatchFallsBackToGeneral(t *testing.T) {
	c := New(testRefMap(t), nil)
	canon, ok := c.categorizeOne(rawRec("500001", "abc.pdf", "Board meeting outcome", "", ""), map[string]struct{}{})
	require.True(t, ok)
	assert.Equal(t, models.CategoryGeneral, canon.Category)
}

func TestCategorizeOne_PopulatesFieldsFromReferenceAndRecord(t *testing.T) {
	c := New(testRefMap(t), nil)
	canon, ok := c.categorizeOne(rawRec("500001", "abc.pdf", "Credit Rating update", "", ""), map[string]struct{}{})
	require.True(t, ok)
	assert.Equal(t, "abc", canon.NewsID)
	assert.Equal(t, "INE000A01001", canon.Company)
	assert.Equal(t, "2024-03-15 09:30:00", canon.Tradedate)
	assert.Equal(t, 500001, canon.SymbolMap.BSE)
}

func TestRun_DeduplicatesWithinBatch(t *testing.T) {
	c := New(testRefMap(t), nil)
	raw := []models.RawAnnouncement{
		rawRec("500001", "abc.pdf", "", "", ""),
		rawRec("500001", "abc.pdf", "", "", ""),
	}
	out, err := c.Run(context.Background(), fakeAnnouncementStore{}, raw, "")
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestRun_SkipsAlreadyIngestedNewsID(t *testing.T) {
	c := New(testRefMap(t), nil)
	raw := []models.RawAnnouncement{rawRec("500001", "abc.pdf", "", "", "")}
	out, err := c.Run(context.Background(), fakeAnnouncementStore{existing: map[string]struct{}{"abc": {}}}, raw, "")
	require.NoError(t, err)
	assert.Empty(t, out)
}
