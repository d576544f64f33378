package tswriter

import (
	"context"

	"github.com/wavepilot/ingest/internal/model"
)

// WriteQuotes normalises and writes minute bars into stock_quotes_raw.
// Bars with sentinel-invalid fields (missing time, open or close) are
// dropped with a warning, not written (spec §4.1).
func (w *Writer) WriteQuotes(ctx context.Context, bars []model.Bar) error {
	points := make([]Point, 0, len(bars))
	for _, b := range bars {
		if !b.Valid() {
			w.log.Warn().Str("ticker", b.Ticker).Msg("dropping invalid bar")
			continue
		}
		points = append(points, barPoint(MeasurementQuotesRaw, b))
	}
	return w.writeBatched(ctx, points)
}

// WriteDailyData normalises and writes daily bars into
// stock_quotes_aggregated.
func (w *Writer) WriteDailyData(ctx context.Context, daily []model.DailyBar) error {
	points := make([]Point, 0, len(daily))
	for _, d := range daily {
		points = append(points, dailyPoint(d))
	}
	return w.writeBatched(ctx, points)
}

// WriteNews writes a single news item's metadata as its own request. News
// records are not grouped into batches; each request is retried on
// transient failure like any other write.
func (w *Writer) WriteNews(ctx context.Context, news model.NewsItem) error {
	return w.writeWithRetry(ctx, []Point{newsPoint(news)})
}

// WriteFundamentals writes a batch of fundamentals records. Failure is
// handled at batch granularity only; individual per-record rollback is
// not supported (spec §9).
func (w *Writer) WriteFundamentals(ctx context.Context, fund []model.Fundamentals) error {
	points := make([]Point, 0, len(fund))
	for _, f := range fund {
		points = append(points, fundamentalsPoint(f))
	}
	return w.writeBatched(ctx, points)
}

func barPoint(measurement string, b model.Bar) Point {
	fields := map[string]interface{}{
		"open":   b.Open.String(),
		"high":   b.High.String(),
		"low":    b.Low.String(),
		"close":  b.Close.String(),
		"volume": b.Volume,
	}
	if b.VWAP != nil {
		fields["vwap"] = b.VWAP.String()
	}
	if b.Trades != nil {
		fields["trades"] = *b.Trades
	}
	if b.Change != nil {
		fields["change"] = b.Change.String()
	}
	if b.ChangePercent != nil {
		fields["changePercent"] = b.ChangePercent.String()
	}
	if b.PreviousClose != nil {
		fields["previousClose"] = b.PreviousClose.String()
	}
	return Point{
		Measurement: measurement,
		Tags: map[string]string{
			"ticker": SanitizeTag(b.Ticker),
			"market": SanitizeTag(string(b.Market)),
		},
		Fields: fields,
		Time:   b.Time,
	}
}

func dailyPoint(d model.DailyBar) Point {
	d = d.WithDerived()
	fields := map[string]interface{}{
		"open":          d.Open.String(),
		"high":          d.High.String(),
		"low":           d.Low.String(),
		"close":         d.Close.String(),
		"volume":        d.Volume,
		"change":        d.Change.String(),
		"changePercent": d.ChangePercent.String(),
	}
	if d.VWAP != nil {
		fields["vwap"] = d.VWAP.String()
	}
	if d.Trades != nil {
		fields["trades"] = *d.Trades
	}
	return Point{
		Measurement: MeasurementQuotesAggregated,
		Tags: map[string]string{
			"ticker": SanitizeTag(d.Ticker),
			"market": SanitizeTag(string(d.Market)),
		},
		Fields: fields,
		Time:   d.Date,
	}
}

func newsPoint(n model.NewsItem) Point {
	fields := map[string]interface{}{
		"id":    n.ID,
		"title": SanitizeField(n.Title),
		"url":   SanitizeField(n.URL),
	}
	if n.Author != "" {
		fields["author"] = SanitizeField(n.Author)
	}
	if n.Description != "" {
		fields["description"] = SanitizeField(n.Description)
	}
	if n.ImageURL != "" {
		fields["imageUrl"] = SanitizeField(n.ImageURL)
	}
	if n.Sentiment != "" {
		fields["sentiment"] = n.Sentiment
	}
	if n.SentimentReasoning != "" {
		fields["sentimentReasoning"] = SanitizeField(n.SentimentReasoning)
	}
	if n.S3Path != "" {
		fields["s3Path"] = n.S3Path
	}
	return Point{
		Measurement: MeasurementNews,
		Tags: map[string]string{
			"ticker": SanitizeTag(n.Ticker),
			"market": SanitizeTag(string(model.MarketUS)),
			"source": SanitizeTag(n.Source),
		},
		Fields: fields,
		Time:   n.Time,
	}
}

func fundamentalsPoint(f model.Fundamentals) Point {
	fields := map[string]interface{}{
		"companyName": SanitizeField(f.CompanyName),
		"cik":         f.CIK,
		"sic":         f.SIC,
		"fiscalYear":  f.FiscalYear,
	}
	for k, v := range f.IncomeStatement {
		fields["income_"+k] = v.String()
	}
	for k, v := range f.BalanceSheet {
		fields["balance_"+k] = v.String()
	}
	for k, v := range f.CashFlow {
		fields["cashflow_"+k] = v.String()
	}
	return Point{
		Measurement: MeasurementFundamentals,
		Tags: map[string]string{
			"ticker":     SanitizeTag(f.Ticker),
			"market":     SanitizeTag(string(f.Market)),
			"periodType": SanitizeTag(string(f.PeriodType)),
		},
		Fields: fields,
		Time:   f.EndDate,
	}
}
