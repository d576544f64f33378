package massiveapi

import "context"

// FinancialStatement is a flat map of line-item name to reported value;
// the upstream schema varies by filer and period, so it is not modelled as
// a fixed struct.
type FinancialStatement map[string]float64

// Financials is a single filing period's scalar financial-statement data
// (spec §6: GET /vX/reference/financials).
type Financials struct {
	EndDate        string             `json:"end_date"`
	StartDate      string             `json:"start_date"`
	FilingDate     string             `json:"filing_date"`
	Timeframe      string             `json:"timeframe"`
	FiscalPeriod   string             `json:"fiscal_period"`
	FiscalYear     string             `json:"fiscal_year"`
	CompanyName    string             `json:"company_name"`
	CIK            string             `json:"cik"`
	SIC            string             `json:"sic"`
	IncomeStatement FinancialStatement `json:"income_statement"`
	BalanceSheet    FinancialStatement `json:"balance_sheet"`
	CashFlow        FinancialStatement `json:"cash_flow_statement"`
}

// financialsEnvelope is the raw wire shape: financials are nested one
// level under a "financials" key alongside period metadata.
type financialsEnvelope struct {
	EndDate      string `json:"end_date"`
	StartDate    string `json:"start_date"`
	FilingDate   string `json:"filing_date"`
	Timeframe    string `json:"timeframe"`
	FiscalPeriod string `json:"fiscal_period"`
	FiscalYear   string `json:"fiscal_year"`
	CompanyName  string `json:"company_name"`
	CIK          string `json:"cik"`
	SIC          string `json:"sic"`
	Financials   struct {
		IncomeStatement FinancialStatement `json:"income_statement"`
		BalanceSheet    FinancialStatement `json:"balance_sheet"`
		CashFlow        FinancialStatement `json:"cash_flow_statement"`
	} `json:"financials"`
}

// FinancialsResponse is the response envelope for the financials endpoint.
type FinancialsResponse struct {
	Status    string               `json:"status"`
	RequestID string               `json:"request_id"`
	Results   []financialsEnvelope `json:"results"`
}

// FinancialsParams holds the query parameters for the financials endpoint.
type FinancialsParams struct {
	Ticker string
	Limit  string
}

// GetFinancials fetches filing-period financial statements for a ticker.
// A 403/404 response is classified NotAvailable by the client and should
// be soft-skipped by the caller (spec §7: "not available").
func (c *Client) GetFinancials(ctx context.Context, p FinancialsParams) ([]Financials, error) {
	params := map[string]string{
		"ticker": p.Ticker,
		"limit":  p.Limit,
	}

	var result FinancialsResponse
	if err := c.get(ctx, "/vX/reference/financials", params, &result); err != nil {
		return nil, err
	}

	out := make([]Financials, 0, len(result.Results))
	for _, r := range result.Results {
		out = append(out, Financials{
			EndDate:         r.EndDate,
			StartDate:       r.StartDate,
			FilingDate:      r.FilingDate,
			Timeframe:       r.Timeframe,
			FiscalPeriod:    r.FiscalPeriod,
			FiscalYear:      r.FiscalYear,
			CompanyName:     r.CompanyName,
			CIK:             r.CIK,
			SIC:             r.SIC,
			IncomeStatement: r.Financials.IncomeStatement,
			BalanceSheet:    r.Financials.BalanceSheet,
			CashFlow:        r.Financials.CashFlow,
		})
	}
	return out, nil
}
