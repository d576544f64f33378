package massiveapi

import "context"

// SnapshotBar is an OHLCV summary embedded in a ticker snapshot.
type SnapshotBar struct {
	Open   float64 `json:"o"`
	High   float64 `json:"h"`
	Low    float64 `json:"l"`
	Close  float64 `json:"c"`
	Volume float64 `json:"v"`
	VWAP   float64 `json:"vw"`
}

// SnapshotTicker is a single ticker's current-day snapshot.
type SnapshotTicker struct {
	Ticker          string      `json:"ticker"`
	TodaysChange    float64     `json:"todaysChange"`
	TodaysChangePct float64     `json:"todaysChangePerc"`
	Updated         int64       `json:"updated"`
	Day             SnapshotBar `json:"day"`
	PrevDay         SnapshotBar `json:"prevDay"`
}

// AllTickersSnapshotResponse is the response envelope for the all-tickers
// snapshot endpoint.
type AllTickersSnapshotResponse struct {
	Status    string           `json:"status"`
	RequestID string           `json:"request_id"`
	Count     int              `json:"count"`
	Tickers   []SnapshotTicker `json:"tickers"`
}

// AllTickersSnapshotParams holds optional filters for the snapshot
// endpoint.
type AllTickersSnapshotParams struct {
	Tickers string // comma-separated, empty means every US ticker
}

// GetSnapshotAllTickers fetches the current-day summary for every US
// ticker in one response (spec §6: GET
// /v2/snapshot/locale/us/markets/stocks/tickers).
func (c *Client) GetSnapshotAllTickers(ctx context.Context, p AllTickersSnapshotParams) (*AllTickersSnapshotResponse, error) {
	params := map[string]string{
		"tickers": p.Tickers,
	}

	var result AllTickersSnapshotResponse
	if err := c.get(ctx, "/v2/snapshot/locale/us/markets/stocks/tickers", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
