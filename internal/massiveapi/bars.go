package massiveapi

import (
	"context"
	"fmt"
)

// Bar is a single OHLC bar with volume and trade data. Field names mirror
// the abbreviated JSON keys the upstream API uses.
type Bar struct {
	Open      float64 `json:"o"`
	High      float64 `json:"h"`
	Low       float64 `json:"l"`
	Close     float64 `json:"c"`
	Volume    float64 `json:"v"`
	VWAP      float64 `json:"vw"`
	Timestamp int64   `json:"t"` // unix millis
	NumTrades int     `json:"n"`
}

// BarsResponse is the response envelope for the ticker-range aggregates
// endpoint.
type BarsResponse struct {
	Status       string `json:"status"`
	Ticker       string `json:"ticker"`
	Adjusted     bool   `json:"adjusted"`
	ResultsCount int    `json:"resultsCount"`
	RequestID    string `json:"request_id"`
	Results      []Bar  `json:"results"`
}

// BarsParams holds the query parameters for the aggregates endpoint.
type BarsParams struct {
	Multiplier string
	Timespan   string // "minute" or "day"
	From       string
	To         string
	Adjusted   string
	Sort       string
	Limit      string
}

// GetBars fetches custom OHLC aggregate bars for ticker over the range in
// p (spec §6: GET /v2/aggs/ticker/{ticker}/range/1/{minute|day}/{from}/{to}).
func (c *Client) GetBars(ctx context.Context, ticker string, p BarsParams) (*BarsResponse, error) {
	path := fmt.Sprintf("/v2/aggs/ticker/%s/range/%s/%s/%s/%s",
		ticker, p.Multiplier, p.Timespan, p.From, p.To)

	params := map[string]string{
		"adjusted": p.Adjusted,
		"sort":     p.Sort,
		"limit":    p.Limit,
	}

	var result BarsResponse
	if err := c.get(ctx, path, params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GroupedDaily is a single ticker's daily summary within a grouped-daily
// response.
type GroupedDaily struct {
	Ticker    string  `json:"T"`
	Open      float64 `json:"o"`
	High      float64 `json:"h"`
	Low       float64 `json:"l"`
	Close     float64 `json:"c"`
	Volume    float64 `json:"v"`
	VWAP      float64 `json:"vw"`
	Timestamp int64   `json:"t"`
	NumTrades int     `json:"n"`
	OTC       bool    `json:"otc"`
}

// GroupedDailyResponse is the response envelope for the grouped-daily
// endpoint.
type GroupedDailyResponse struct {
	Status       string         `json:"status"`
	Adjusted     bool           `json:"adjusted"`
	ResultsCount int            `json:"resultsCount"`
	RequestID    string         `json:"request_id"`
	Results      []GroupedDaily `json:"results"`
}

// GroupedDailyParams holds the query parameters for the grouped-daily
// endpoint.
type GroupedDailyParams struct {
	Adjusted   string
	IncludeOTC string
}

// GetGroupedDaily fetches one daily bar per ticker for date (spec §6:
// GET /v2/aggs/grouped/locale/us/market/stocks/{date}).
func (c *Client) GetGroupedDaily(ctx context.Context, date string, p GroupedDailyParams) (*GroupedDailyResponse, error) {
	path := fmt.Sprintf("/v2/aggs/grouped/locale/us/market/stocks/%s", date)

	params := map[string]string{
		"adjusted":    p.Adjusted,
		"include_otc": p.IncludeOTC,
	}

	var result GroupedDailyResponse
	if err := c.get(ctx, path, params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
