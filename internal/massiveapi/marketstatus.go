package massiveapi

import "context"

// MarketStatusResponse is the upstream market-status endpoint's response
// (spec §6: GET /v1/marketstatus/now).
type MarketStatusResponse struct {
	Market     string `json:"market"` // "open", "closed", "extended-hours"
	AfterHours bool   `json:"afterHours"`
	EarlyHours bool   `json:"earlyHours"`
}

// GetMarketStatus fetches the upstream market-status snapshot, used as the
// authoritative source for MarketStatus ahead of the time-of-day fallback
// rules (spec §3).
func (c *Client) GetMarketStatus(ctx context.Context) (*MarketStatusResponse, error) {
	var result MarketStatusResponse
	if err := c.get(ctx, "/v1/marketstatus/now", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
