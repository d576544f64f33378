// Package model holds the core data types the ingestion worker moves
// between feeds, the scheduler and the storage clients.
package model

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Market is the exchange region a ticker trades in. This service only
// ingests US; CN and HK are enumerated for forward structure per the
// data model but have no producers wired in this repository.
type Market string

const (
	MarketUS Market = "US"
	MarketCN Market = "CN"
	MarketHK Market = "HK"
)

// TickerFilter selects which tickers an all-tickers job writes.
type TickerFilter string

const (
	FilterAll       TickerFilter = "all"
	FilterMainboard TickerFilter = "mainboard"
	FilterCommon    TickerFilter = "common"
)

var (
	warrantUnitRights = regexp.MustCompile(`^[A-Z]{4}[WUR]$`)
	warrantSuffixWS   = regexp.MustCompile(`^[A-Z]{3}WS$`)
	mainboardPattern  = regexp.MustCompile(`^[A-Z]{1,5}$`)
)

// NormalizeTicker upper-cases and trims a raw ticker symbol.
func NormalizeTicker(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// PassesFilter reports whether ticker t passes filter f. The "common"
// filter excludes warrants/units/rights (pattern [A-Z]{4}(W|U|R)) and
// [A-Z]{3}WS, and anything that isn't a plain 1-5 letter mainboard symbol.
func PassesFilter(t string, f TickerFilter) bool {
	t = NormalizeTicker(t)
	switch f {
	case FilterAll:
		return true
	case FilterMainboard:
		return mainboardPattern.MatchString(t)
	case FilterCommon:
		if !mainboardPattern.MatchString(t) {
			return false
		}
		if warrantUnitRights.MatchString(t) || warrantSuffixWS.MatchString(t) {
			return false
		}
		return true
	default:
		return false
	}
}

// Bar is a single minute OHLCV quote. Identity is (Ticker, Market, Time).
type Bar struct {
	Ticker string
	Market Market
	Time   time.Time

	Open  decimal.Decimal
	High  decimal.Decimal
	Low   decimal.Decimal
	Close decimal.Decimal

	Volume int64

	VWAP           *decimal.Decimal
	Trades         *int64
	Change         *decimal.Decimal
	ChangePercent  *decimal.Decimal
	PreviousClose  *decimal.Decimal
}

// Valid reports whether b has the minimum fields TSWriter requires
// (non-zero Time, Open and Close set). Bars failing this are dropped with
// a warning rather than written (spec §4.1).
func (b Bar) Valid() bool {
	if b.Time.IsZero() {
		return false
	}
	if b.Open.IsZero() || b.Close.IsZero() {
		// a zero-value decimal here means the field was never set, not a
		// genuine $0 quote; either one missing invalidates the bar.
		return false
	}
	return true
}

// DailyBar is a single daily OHLCV bar. Identity is (Ticker, Market, Date).
type DailyBar struct {
	Ticker string
	Market Market
	Date   time.Time

	Open  decimal.Decimal
	High  decimal.Decimal
	Low   decimal.Decimal
	Close decimal.Decimal

	Volume int64

	VWAP   *decimal.Decimal
	Trades *int64

	Change        decimal.Decimal
	ChangePercent decimal.Decimal
}

// WithDerived returns a copy of d with Change/ChangePercent computed from
// Close-Open (spec §3: "Same shape as Bar plus derived change fields").
func (d DailyBar) WithDerived() DailyBar {
	d.Change = d.Close.Sub(d.Open)
	if !d.Open.IsZero() {
		d.ChangePercent = d.Change.Div(d.Open).Mul(decimal.NewFromInt(100))
	}
	return d
}

// NewsInsight is a single ticker's sentiment call within a news item.
type NewsInsight struct {
	Ticker             string
	Sentiment          string // positive, negative, neutral
	SentimentReasoning string
}

// NewsItem is a single news article's metadata. Identity is (ID, Ticker).
// The object-store body (if fetched) holds the full article content; this
// struct carries metadata plus the S3Path back-reference (I4).
type NewsItem struct {
	ID          string
	Ticker      string
	Time        time.Time // published_utc
	Title       string
	URL         string
	Source      string // publisher.name
	Author      string
	Description string
	ImageURL    string
	Keywords    []string
	Tickers     []string
	Sentiment   string // primary-ticker insight only; others live in the object body
	SentimentReasoning string
	S3Path      string

	// Insights carries every per-ticker insight from the upstream payload,
	// including non-primary tickers; only Sentiment/SentimentReasoning
	// (the primary ticker's) are mirrored into the time-series record (I4).
	Insights []NewsInsight
}

// FinancialsPeriod distinguishes quarterly vs annual fundamentals filings.
type FinancialsPeriod string

const (
	PeriodQuarterly FinancialsPeriod = "quarterly"
	PeriodAnnual    FinancialsPeriod = "annual"
)

// Fundamentals carries one filing period's scalar financial statement
// values. Identity is (Ticker, Market, PeriodType, EndDate).
type Fundamentals struct {
	Ticker     string
	Market     Market
	PeriodType FinancialsPeriod
	EndDate    time.Time

	StartDate   *time.Time
	FilingDate  *time.Time
	FiscalYear  string
	CompanyName string
	CIK         string
	SIC         string

	IncomeStatement map[string]decimal.Decimal
	BalanceSheet    map[string]decimal.Decimal
	CashFlow        map[string]decimal.Decimal
}

// MarketStatus is the derived US-market session state.
type MarketStatus struct {
	IsOpen     bool
	EarlyHours bool
	AfterHours bool
}
