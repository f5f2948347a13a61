// BSE Pipeline - Corporate Announcement Ingestion and Categorization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bse-pipeline

// Package categorize filters raw announcements against the company
// reference set, assigns a category from structured and regex rules,
// and de-duplicates against previously ingested news_ids.
package categorize

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/tomtom215/bse-pipeline/internal/metrics"
	"github.com/tomtom215/bse-pipeline/internal/models"
	"github.com/tomtom215/bse-pipeline/internal/reference"
	"github.com/tomtom215/bse-pipeline/internal/store"
)

// Rule is one category-assignment rule. A rule matches a record if
// either of its (optional) regexes hits the record's HeadLine or
// NewsBody, case-insensitively.
type Rule struct {
	Category models.Category
	HeadLine *regexp.Regexp
	NewsBody *regexp.Regexp
}

// DefaultRules returns the rule set in spec order; first match wins.
// Precompiled once; callers hold the returned slice for the life of
// the process.
func DefaultRules() []Rule {
	return []Rule{
		{Category: models.CategoryInvestorPresentation, HeadLine: regexp.MustCompile(`(?i)presentation`)},
		{Category: models.CategoryAnnualReport, HeadLine: regexp.MustCompile(`(?i)annual report`)},
		{Category: models.CategoryCreditRating, HeadLine: regexp.MustCompile(`(?i)credit rating`)},
		{Category: models.CategoryEarningsCallScript, HeadLine: regexp.MustCompile(`(?i)earnings call|conference call|transcript`)},
	}
}

// Categorizer holds the reference map and compiled rule set for the
// life of the process.
type Categorizer struct {
	ref   *reference.Map
	rules []Rule
}

// New builds a Categorizer over ref using rules (DefaultRules() if
// nil/empty).
func New(ref *reference.Map, rules []Rule) *Categorizer {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Categorizer{ref: ref, rules: rules}
}

// Run filters and categorizes raw, skipping any news_id already in
// the announcements collection with Tradedate >= watermark, or
// appearing more than once within raw itself.
func (c *Categorizer) Run(ctx context.Context, anns store.AnnouncementStore, raw []models.RawAnnouncement, watermark string) ([]models.Announcement, error) {
	existing, err := anns.ExistingNewsIDs(ctx, watermark)
	if err != nil {
		return nil, fmt.Errorf("load existing news ids: %w", err)
	}

	out := make([]models.Announcement, 0, len(raw))
	for _, rec := range raw {
		canon, ok := c.categorizeOne(rec, existing)
		if !ok {
			continue
		}
		existing[canon.NewsID] = struct{}{}
		out = append(out, canon)
		metrics.RecordsCategorizedTotal.WithLabelValues(string(canon.Category)).Inc()
	}
	return out, nil
}

func (c *Categorizer) categorizeOne(rec models.RawAnnouncement, existing map[string]struct{}) (models.Announcement, bool) {
	attach := strings.TrimSpace(rec.AttachmentName)
	if !strings.HasSuffix(attach, ".pdf") {
		return models.Announcement{}, false
	}
	newsID := attach[:len(attach)-len(".pdf")]
	if newsID == "" {
		return models.Announcement{}, false
	}
	if _, dup := existing[newsID]; dup {
		metrics.RecordsSkippedDuplicateTotal.Inc()
		return models.Announcement{}, false
	}

	scripCD := strings.TrimSpace(rec.SCRIPCD)
	ref, ok := c.ref.Lookup(scripCD)
	if !ok {
		return models.Announcement{}, false
	}

	canonicalTradedate, err := parseUpstreamTradedate(rec.Tradedate)
	if err != nil {
		return models.Announcement{}, false
	}

	category := c.assignCategory(rec)

	return models.Announcement{
		NewsID:        newsID,
		Company:       ref.Company,
		SymbolMap:     ref.SymbolMap,
		Tradedate:     canonicalTradedate,
		Category:      category,
		SCRIPCD:       scripCD,
		HeadLine:      strings.TrimSpace(rec.HeadLine),
		NewsBody:      strings.TrimSpace(rec.NewsBody),
		Descriptor:    strings.TrimSpace(rec.Descriptor),
		AttachmentURL: strings.TrimSpace(rec.AttachmentURL),
	}, true
}

func (c *Categorizer) assignCategory(rec models.RawAnnouncement) models.Category {
	desc := strings.TrimSpace(rec.Descriptor)
	if isKnownCategory(models.Category(desc)) {
		return models.Category(desc)
	}

	head := strings.ToLower(strings.TrimSpace(rec.HeadLine))
	body := strings.ToLower(strings.TrimSpace(rec.NewsBody))
	for _, rule := range c.rules {
		if rule.HeadLine != nil && rule.HeadLine.MatchString(head) {
			return rule.Category
		}
		if rule.NewsBody != nil && rule.NewsBody.MatchString(body) {
			return rule.Category
		}
	}
	return models.CategoryGeneral
}

func isKnownCategory(c models.Category) bool {
	switch c {
	case models.CategoryInvestorPresentation, models.CategoryAnnualReport,
		models.CategoryCreditRating, models.CategoryEarningsCallScript, models.CategoryGeneral:
		return true
	default:
		return false
	}
}

func parseUpstreamTradedate(s string) (string, error) {
	t, err := time.Parse(models.UpstreamTradedateLayout, s)
	if err != nil {
		return "", fmt.Errorf("parse tradedate %q: %w", s, err)
	}
	return t.Format(models.TradedateLayout), nil
}
