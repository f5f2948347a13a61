// BSE Pipeline - Corporate Announcement Ingestion and Categorization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bse-pipeline

// Package models defines the document shapes exchanged between the
// fetcher, categorizer, report divider, embedder and dashboard
// deduplicator.
package models

import (
	"strings"
	"time"
)

// Category is one of the fixed announcement categories.
type Category string

const (
	CategoryInvestorPresentation Category = "Investor Presentation"
	CategoryAnnualReport         Category = "Annual Report"
	CategoryCreditRating         Category = "Credit Rating"
	CategoryEarningsCallScript   Category = "Earnings Call Transcript"
	CategoryGeneral              Category = "General"
)

// RawAnnouncement is a single record as received from the upstream API,
// before categorization. The named fields are the only ones the
// pipeline consults. The categorizer copies SCRIP_CD, HeadLine,
// NewsBody, Descriptor and ATTACHMENTURL into Announcement as they are,
// rewrites Tradedate into TradedateLayout, and only checks
// AttachmentName without carrying it forward.
type RawAnnouncement struct {
	SCRIPCD        string `json:"SCRIP_CD"`
	AttachmentName string `json:"AttachmentName"`
	HeadLine       string `json:"HeadLine"`
	NewsBody       string `json:"NewsBody"`
	Descriptor     string `json:"Descriptor"`
	Tradedate      string `json:"Tradedate"`
	AttachmentURL  string `json:"ATTACHMENTURL"`
}

// SymbolMap carries the exchange identifiers for a company.
type SymbolMap struct {
	NSE          string `json:"NSE"`
	BSE          int    `json:"BSE"`
	CompanyName  string `json:"Company_Name"`
	SELECTED     string `json:"SELECTED"`
}

// CompanyRef is one entry of the company reference set, keyed by BSE
// scrip code in the owning map.
type CompanyRef struct {
	Company   string // ISIN-like identifier
	SymbolMap SymbolMap
}

// Announcement is a canonical announcement after categorization: a raw
// announcement plus reference-derived and derived fields. It is
// inserted once and never mutated.
type Announcement struct {
	NewsID        string    `json:"news_id"`
	Company       string    `json:"company"`
	SymbolMap     SymbolMap `json:"symbolmap"`
	Tradedate     string    `json:"Tradedate"` // YYYY-MM-DD HH:MM:SS
	Category      Category  `json:"category"`
	SCRIPCD       string    `json:"SCRIP_CD"`
	HeadLine      string    `json:"HeadLine"`
	NewsBody      string    `json:"NewsBody"`
	Descriptor    string    `json:"Descriptor"`
	AttachmentURL string    `json:"ATTACHMENTURL"`
}

// TradedateLayout is the canonical, store-facing Tradedate format.
const TradedateLayout = "2006-01-02 15:04:05"

// UpstreamTradedateLayout is the format Tradedate arrives in from the
// upstream API.
const UpstreamTradedateLayout = "02/01/2006 15:04:05"

// ParseTradedate parses a canonical Tradedate string.
func ParseTradedate(s string) (time.Time, error) {
	return time.Parse(TradedateLayout, s)
}

// Report is a derived, per-category document. Created by the divider
// and never mutated.
type Report struct {
	Company      string    `json:"company"`
	SymbolMap    SymbolMap `json:"symbolmap"`
	NewsID       string    `json:"news_id"`
	Datecode     string    `json:"datecode"` // YYYYMMDD
	Year         int       `json:"Year"`     // fiscal year
	Qtr          string    `json:"Qtr"`      // Q1..Q4
	DtTm         string    `json:"dt_tm"`    // canonical Tradedate
	URL          string    `json:"url"`
	ReportID     string    `json:"report_id"`
	ReportType   Category  `json:"report_type"`
	ReportLine   string    `json:"report_line"`
	Count        int       `json:"count"`
	DocumentDate string    `json:"document_date"`
}

// DashboardEntry is a news item enriched with impact/sentiment/embedding
// data for downstream consumption.
type DashboardEntry struct {
	ID                    string    `json:"id"`
	NewsID                string    `json:"news_id"`
	Company               string    `json:"company"`
	Stock                 string    `json:"stock"`
	DtTm                  time.Time `json:"dt_tm"`
	Category              Category  `json:"category"`
	Source                string    `json:"source"`
	Impact                string    `json:"impact"`
	ImpactScore           float64   `json:"impact_score"`
	Sentiment             string    `json:"sentiment"`
	ShortSummary          string    `json:"short summary"`
	SymbolMap             SymbolMap `json:"symbolmap"`
	EmbeddingShortSummary []float32 `json:"embedding_shortsummary,omitempty"`
	Duplicate             bool      `json:"duplicate"`
	DocumentDate          string    `json:"document_date"`
}

// CategoriesRequiringReport is the closed set of categories the report
// divider creates per-category report documents for.
var CategoriesRequiringReport = []Category{
	CategoryInvestorPresentation,
	CategoryAnnualReport,
	CategoryCreditRating,
	CategoryEarningsCallScript,
}

// ShortCode returns the report_id short category code for c, falling
// back to the first two uppercased letters for any category without an
// explicit mapping.
func ShortCode(c Category) string {
	switch c {
	case CategoryInvestorPresentation:
		return "IP"
	case CategoryAnnualReport:
		return "AR"
	case CategoryCreditRating:
		return "CR"
	case CategoryEarningsCallScript:
		return "ECT"
	default:
		s := strings.ToUpper(string(c))
		if len(s) >= 2 {
			return s[:2]
		}
		return s
	}
}

// CategoriesExcludedFromDashboardDedup are never considered for the
// post-insert BSE dashboard deduplicator or the Livesquack pre-insert
// check.
var CategoriesExcludedFromDashboardDedup = map[Category]bool{
	CategoryInvestorPresentation: true,
	CategoryEarningsCallScript:   true,
	"Broker Report":              true,
}
