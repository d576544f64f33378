package scheduler

import (
	"context"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wavepilot/ingest/internal/massiveapi"
	"github.com/wavepilot/ingest/internal/model"
	"github.com/wavepilot/ingest/internal/stitch"
)

const (
	// interTickerDelay is the general per-ticker sleep within a job (spec
	// §4.4: "sleep 200ms (general)").
	interTickerDelay = 200 * time.Millisecond
	// sipCorrectionDelay is the shorter per-ticker gap the
	// sipMinuteCorrection job uses (spec §4.4: "100ms gap").
	sipCorrectionDelay = 100 * time.Millisecond
	// backfillDelay is the per-symbol delay backfillHistory uses (spec
	// §4.4: "Per-symbol delay 300ms").
	backfillDelay = 300 * time.Millisecond
)

// dayBucket floors t to its calendar day in UTC, the identity component
// DailyBar.Date carries (spec §4.1, §3: rows key on (ticker, market,
// Date)). snapshotJob and eodJob must agree on this bucket for the same
// trading day so the end-of-day write overwrites the day's intraday
// snapshot row rather than landing beside it.
func dayBucket(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// sleep pauses for d unless ctx is cancelled first.
func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

type bypassGateKey struct{}

// withBypassGate marks ctx so market-gated jobs run regardless of session
// state. Used by RunTask's manual-trigger path (spec §4.4: "runTask(name)
// ... bypassing the market gate").
func withBypassGate(ctx context.Context) context.Context {
	return context.WithValue(ctx, bypassGateKey{}, true)
}

func gateBypassed(ctx context.Context) bool {
	v, _ := ctx.Value(bypassGateKey{}).(bool)
	return v
}

// snapshotJob is the "snapshot" cron entry (spec §4.4): all-tickers
// snapshot, filtered to common stock, written as daily data in
// 1000-batches.
type snapshotJob struct{ deps Deps }

func (j *snapshotJob) Name() string { return "snapshot" }

func (j *snapshotJob) Run(ctx context.Context) error {
	if !gateBypassed(ctx) && !j.deps.Clock.Status(ctx).IsOpen {
		return nil
	}

	resp, err := j.deps.Upstream.GetSnapshotAllTickers(ctx, massiveapi.AllTickersSnapshotParams{})
	if err != nil {
		return err
	}

	bars := make([]model.DailyBar, 0, len(resp.Tickers))
	for _, t := range resp.Tickers {
		if !model.PassesFilter(t.Ticker, model.FilterCommon) {
			continue
		}
		bars = append(bars, model.DailyBar{
			Ticker: model.NormalizeTicker(t.Ticker),
			Market: model.MarketUS,
			Date:   dayBucket(time.UnixMilli(t.Updated)),
			Open:   decimal.NewFromFloat(t.Day.Open),
			High:   decimal.NewFromFloat(t.Day.High),
			Low:    decimal.NewFromFloat(t.Day.Low),
			Close:  decimal.NewFromFloat(t.Day.Close),
			Volume: int64(t.Day.Volume),
		})
	}

	return j.deps.Writer.WriteDailyData(ctx, bars)
}

// sipMinuteCorrectionJob is the "sipMinuteCorrection" cron entry (spec
// §4.4): for each watchlist ticker, fetch the minute at now-16min and
// overwrite (Layer 1/2 SIP correction, S4).
type sipMinuteCorrectionJob struct{ deps Deps }

func (j *sipMinuteCorrectionJob) Name() string { return "sipMinuteCorrection" }

func (j *sipMinuteCorrectionJob) Run(ctx context.Context) error {
	if !gateBypassed(ctx) && !j.deps.Clock.Status(ctx).IsOpen {
		return nil
	}

	now := time.Now().UTC()
	target := stitch.SIPCorrectionTime(now)
	from := strconv.FormatInt(target.UnixMilli(), 10)
	to := strconv.FormatInt(target.Add(time.Minute).UnixMilli(), 10)

	for i, ticker := range j.deps.Watchlist.Tickers() {
		if i > 0 {
			sleep(ctx, sipCorrectionDelay)
		}
		resp, err := j.deps.Upstream.GetBars(ctx, ticker, massiveapi.BarsParams{
			Multiplier: "1",
			Timespan:   "minute",
			From:       from,
			To:         to,
			Sort:       "asc",
			Limit:      "5",
		})
		if err != nil {
			continue
		}

		bars := make([]model.Bar, 0, len(resp.Results))
		for _, b := range resp.Results {
			t := time.UnixMilli(b.Timestamp).UTC()
			if !t.Equal(target) {
				continue
			}
			bars = append(bars, barFromUpstream(ticker, b))
		}
		if len(bars) > 0 {
			_ = j.deps.Writer.WriteQuotes(ctx, bars)
		}
	}
	return nil
}

// eodJob is the "eod" cron entry (spec §4.4): grouped-daily for all
// tickers (Layer 3, full-day EOD rewrite of the daily measurement) plus one
// run of the SIP minute correction, which rewrites only the single minute
// at fire time minus 16 minutes for each watchlist ticker. The rest of the
// day's minute bars are not re-fetched.
type eodJob struct{ deps Deps }

func (j *eodJob) Name() string { return "eod" }

func (j *eodJob) Run(ctx context.Context) error {
	date := time.Now().UTC().Format("2006-01-02")
	resp, err := j.deps.Upstream.GetGroupedDaily(ctx, date, massiveapi.GroupedDailyParams{Adjusted: "true"})
	if err != nil {
		return err
	}

	bars := make([]model.DailyBar, 0, len(resp.Results))
	for _, r := range resp.Results {
		if !model.PassesFilter(r.Ticker, model.FilterCommon) {
			continue
		}
		bars = append(bars, model.DailyBar{
			Ticker: model.NormalizeTicker(r.Ticker),
			Market: model.MarketUS,
			Date:   dayBucket(time.UnixMilli(r.Timestamp)),
			Open:   decimal.NewFromFloat(r.Open),
			High:   decimal.NewFromFloat(r.High),
			Low:    decimal.NewFromFloat(r.Low),
			Close:  decimal.NewFromFloat(r.Close),
			Volume: int64(r.Volume),
		})
	}
	if err := j.deps.Writer.WriteDailyData(ctx, bars); err != nil {
		return err
	}

	// eod fires after the close (spec §4.4: 16:30 ET), so its minute
	// correction must run regardless of session state.
	sipJob := &sipMinuteCorrectionJob{deps: j.deps}
	return sipJob.Run(withBypassGate(ctx))
}

// newsJob is the "news" cron entry (spec §4.4): for each watchlist
// ticker, list recent news and delegate to NewsStore with
// fetchContent=true.
type newsJob struct{ deps Deps }

func (j *newsJob) Name() string { return "news" }

func (j *newsJob) Run(ctx context.Context) error {
	for i, ticker := range j.deps.Watchlist.Tickers() {
		if i > 0 {
			sleep(ctx, interTickerDelay)
		}
		resp, err := j.deps.Upstream.GetNews(ctx, massiveapi.NewsParams{
			Ticker: ticker,
			Limit:  "20",
			Sort:   "published_utc",
			Order:  "desc",
		})
		if err != nil {
			continue
		}

		items := make([]model.NewsItem, 0, len(resp.Results))
		for _, a := range resp.Results {
			items = append(items, newsItemFromUpstream(ticker, a))
		}
		j.deps.News.Save(ctx, items, true)
	}
	return nil
}

// fundamentalsJob is the "fundamentals" cron entry (spec §4.4): for each
// watchlist ticker, GET financials; 403/404 is skipped as not-available.
type fundamentalsJob struct{ deps Deps }

func (j *fundamentalsJob) Name() string { return "fundamentals" }

func (j *fundamentalsJob) Run(ctx context.Context) error {
	for i, ticker := range j.deps.Watchlist.Tickers() {
		if i > 0 {
			sleep(ctx, interTickerDelay)
		}
		results, err := j.deps.Upstream.GetFinancials(ctx, massiveapi.FinancialsParams{Ticker: ticker, Limit: "4"})
		if err != nil {
			continue // NotAvailable (403/404) and transient failures are both soft-skipped per-ticker
		}

		fund := make([]model.Fundamentals, 0, len(results))
		for _, f := range results {
			fund = append(fund, fundamentalsFromUpstream(ticker, f))
		}
		if len(fund) > 0 {
			_ = j.deps.Writer.WriteFundamentals(ctx, fund)
		}
	}
	return nil
}

// backfillDays is how far back Stage-1 (far-history) backfill reaches
// (spec §4.2: "30 calendar days of daily and minute aggregates").
const backfillDays = 30

// BackfillHistory runs the Stage-1 backfill for symbols: 30 days of daily
// and minute aggregates, re-clipped to t <= now-15m (S1) before write. It
// is triggered by the control surface on a new subscription (spec §4.4,
// §6's POST /subscribe side effects), not by the cron table.
func (s *Scheduler) BackfillHistory(ctx context.Context, symbols []string) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -backfillDays).Format("2006-01-02")
	to := now.Format("2006-01-02")

	for i, ticker := range symbols {
		if i > 0 {
			sleep(ctx, backfillDelay)
		}
		if err := s.backfillOne(ctx, ticker, from, to, now); err != nil {
			s.log.Warn().Err(err).Str("ticker", ticker).Msg("backfill failed")
		}
	}
}

func (s *Scheduler) backfillOne(ctx context.Context, ticker, from, to string, now time.Time) error {
	daily, err := s.deps.Upstream.GetBars(ctx, ticker, massiveapi.BarsParams{
		Multiplier: "1",
		Timespan:   "day",
		From:       from,
		To:         to,
		Adjusted:   "true",
		Sort:       "asc",
		Limit:      "50",
	})
	if err != nil {
		return err
	}
	dailyBars := make([]model.DailyBar, 0, len(daily.Results))
	for _, b := range daily.Results {
		t := time.UnixMilli(b.Timestamp).UTC()
		if !stitch.StageOneClip(t, now) {
			continue
		}
		dailyBars = append(dailyBars, model.DailyBar{
			Ticker: model.NormalizeTicker(ticker),
			Market: model.MarketUS,
			Date:   dayBucket(t),
			Open:   decimal.NewFromFloat(b.Open),
			High:   decimal.NewFromFloat(b.High),
			Low:    decimal.NewFromFloat(b.Low),
			Close:  decimal.NewFromFloat(b.Close),
			Volume: int64(b.Volume),
		})
	}
	if err := s.deps.Writer.WriteDailyData(ctx, dailyBars); err != nil {
		return err
	}

	minute, err := s.deps.Upstream.GetBars(ctx, ticker, massiveapi.BarsParams{
		Multiplier: "1",
		Timespan:   "minute",
		From:       from,
		To:         to,
		Adjusted:   "true",
		Sort:       "asc",
		Limit:      "50000",
	})
	if err != nil {
		return err
	}
	minuteBars := make([]model.Bar, 0, len(minute.Results))
	for _, b := range minute.Results {
		t := time.UnixMilli(b.Timestamp).UTC()
		if !stitch.StageOneClip(t, now) {
			continue
		}
		minuteBars = append(minuteBars, barFromUpstream(ticker, b))
	}
	return s.deps.Writer.WriteQuotes(ctx, minuteBars)
}

func barFromUpstream(ticker string, b massiveapi.Bar) model.Bar {
	bar := model.Bar{
		Ticker: model.NormalizeTicker(ticker),
		Market: model.MarketUS,
		Time:   time.UnixMilli(b.Timestamp).UTC(),
		Open:   decimal.NewFromFloat(b.Open),
		High:   decimal.NewFromFloat(b.High),
		Low:    decimal.NewFromFloat(b.Low),
		Close:  decimal.NewFromFloat(b.Close),
		Volume: int64(b.Volume),
	}
	vwap := decimal.NewFromFloat(b.VWAP)
	bar.VWAP = &vwap
	trades := int64(b.NumTrades)
	bar.Trades = &trades
	return bar
}

func newsItemFromUpstream(ticker string, a massiveapi.NewsArticle) model.NewsItem {
	publishedAt, _ := time.Parse(time.RFC3339, a.PublishedUTC)

	insights := make([]model.NewsInsight, 0, len(a.Insights))
	var primarySentiment, primaryReasoning string
	for _, ins := range a.Insights {
		insights = append(insights, model.NewsInsight{
			Ticker:             ins.Ticker,
			Sentiment:          ins.Sentiment,
			SentimentReasoning: ins.SentimentReasoning,
		})
		if model.NormalizeTicker(ins.Ticker) == model.NormalizeTicker(ticker) {
			primarySentiment = ins.Sentiment
			primaryReasoning = ins.SentimentReasoning
		}
	}

	return model.NewsItem{
		ID:                 a.ID,
		Ticker:             model.NormalizeTicker(ticker),
		Time:               publishedAt,
		Title:              a.Title,
		URL:                a.ArticleURL,
		Source:             a.Publisher.Name,
		Author:             a.Author,
		Description:        a.Description,
		ImageURL:           a.ImageURL,
		Keywords:           a.Keywords,
		Tickers:            a.Tickers,
		Sentiment:          primarySentiment,
		SentimentReasoning: primaryReasoning,
		Insights:           insights,
	}
}

func fundamentalsFromUpstream(ticker string, f massiveapi.Financials) model.Fundamentals {
	period := model.PeriodQuarterly
	if f.Timeframe == "annual" {
		period = model.PeriodAnnual
	}
	endDate, _ := time.Parse("2006-01-02", f.EndDate)

	fund := model.Fundamentals{
		Ticker:          model.NormalizeTicker(ticker),
		Market:          model.MarketUS,
		PeriodType:      period,
		EndDate:         endDate,
		FiscalYear:      f.FiscalYear,
		CompanyName:     f.CompanyName,
		CIK:             f.CIK,
		SIC:             f.SIC,
		IncomeStatement: decimalMap(f.IncomeStatement),
		BalanceSheet:    decimalMap(f.BalanceSheet),
		CashFlow:        decimalMap(f.CashFlow),
	}
	if startDate, err := time.Parse("2006-01-02", f.StartDate); err == nil {
		fund.StartDate = &startDate
	}
	if filingDate, err := time.Parse("2006-01-02", f.FilingDate); err == nil {
		fund.FilingDate = &filingDate
	}
	return fund
}

func decimalMap(m massiveapi.FinancialStatement) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(m))
	for k, v := range m {
		out[k] = decimal.NewFromFloat(v)
	}
	return out
}
