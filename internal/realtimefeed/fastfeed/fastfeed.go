// Package fastfeed is the IEX real-time side of C3 RealtimeFeed
// (spec §4.3). Grounded on
// quantum-encoding-quantum-zig-forge/cmd/data-collector/main.go's real
// alpacahq/alpaca-trade-api-go/v3 usage (alpaca.NewClient,
// marketdata.NewClient, stream.NewStocksClient(marketdata.IEX, ...),
// SubscribeToBars, Connect(ctx), GetBars); the market-monitor/backoff
// wrapper around the vendor SDK is grounded on
// aristath-sentinel/internal/clients/tradernet/websocket_client.go's
// reconnectLoop shape, adapted to the SDK's own Connect call rather than raw
// socket I/O. The fast feed uses the vendor SDK's
// internal heartbeat (spec §4.3): no separate ping/pong is implemented
// here.
package fastfeed

import (
	"context"
	"sync"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata/stream"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/wavepilot/ingest/internal/marketclock"
	"github.com/wavepilot/ingest/internal/model"
	"github.com/wavepilot/ingest/internal/realtimefeed/connstate"
	"github.com/wavepilot/ingest/internal/stitch"
	"github.com/wavepilot/ingest/internal/tswriter"
)

// BarHandler is called for every live bar the stream delivers, after
// transform.
type BarHandler func(ctx context.Context, bar model.Bar)

// Feed is the fast-feed (IEX) RealtimeFeed variant.
type Feed struct {
	apiKey, apiSecret string

	marketData *marketdata.Client
	clock      *marketclock.Service
	writer     *tswriter.Writer
	subs       *connstate.Subscriptions
	log        zerolog.Logger

	mu                sync.Mutex
	state             connstate.State
	shouldBeConnected bool
	streamClient      *stream.StocksClient
	monitor           *connstate.Monitor
	cancelStream      context.CancelFunc
}

// New builds a Feed. The vendor streaming client is created lazily inside
// connect(), since alpacahq's stream.StocksClient binds its symbol set at
// construction time.
func New(apiKey, apiSecret string, clock *marketclock.Service, writer *tswriter.Writer, log zerolog.Logger) *Feed {
	return &Feed{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		marketData: marketdata.NewClient(marketdata.ClientOpts{APIKey: apiKey, APISecret: apiSecret}),
		clock:      clock,
		writer:     writer,
		subs:       connstate.NewSubscriptions(),
		log:        log.With().Str("component", "fastfeed").Logger(),
		state:      connstate.Idle,
	}
}

// Connect sets the shouldBeConnected intent and starts the market monitor;
// it does not itself open a connection (spec §4.3).
func (f *Feed) Connect(ctx context.Context) {
	f.mu.Lock()
	f.shouldBeConnected = true
	if f.monitor == nil {
		f.monitor = connstate.NewMonitor(func() { f.checkAndConnect(ctx) })
		f.monitor.Start(ctx)
	}
	f.mu.Unlock()
}

// Disconnect flips shouldBeConnected=false and closes any live connection
// (spec §5 shutdown ordering: "flip shouldBeConnected=false on both feeds").
func (f *Feed) Disconnect() {
	f.mu.Lock()
	f.shouldBeConnected = false
	monitor := f.monitor
	f.monitor = nil
	f.mu.Unlock()

	if monitor != nil {
		monitor.Stop()
	}
	f.closeStream()
}

// shouldConnect implements the fast-feed's policy: connect only during
// regular hours (spec §4.3).
func (f *Feed) shouldConnect(ctx context.Context) bool {
	return f.clock.Status(ctx).IsOpen
}

func (f *Feed) checkAndConnect(ctx context.Context) {
	f.mu.Lock()
	shouldBeConnected := f.shouldBeConnected
	currentState := f.state
	f.mu.Unlock()

	if !shouldBeConnected {
		return
	}

	want := f.shouldConnect(ctx)
	connected := currentState == connstate.Connected
	connecting := currentState == connstate.Connecting

	switch {
	case want && !connected && !connecting:
		f.connect(ctx)
	case !want && connected:
		f.log.Info().Msg("market closed, closing fast feed (intentional, no reconnect)")
		f.closeStream()
	}
}

func (f *Feed) connect(ctx context.Context) {
	f.mu.Lock()
	f.state = connstate.Connecting
	f.mu.Unlock()

	streamCtx, cancel := context.WithCancel(ctx)
	client := stream.NewStocksClient(marketdata.IEX, stream.WithCredentials(f.apiKey, f.apiSecret))

	if err := client.SubscribeToBars(func(bar stream.Bar) {
		f.handleBar(streamCtx, bar)
	}, f.subs.DrainPending()...); err != nil {
		f.log.Error().Err(err).Msg("subscribe to bars failed")
		cancel()
		f.scheduleReconnect(ctx, 1)
		return
	}

	f.mu.Lock()
	f.streamClient = client
	f.cancelStream = cancel
	f.state = connstate.Authenticated
	f.mu.Unlock()

	go func() {
		err := client.Connect(streamCtx)
		f.mu.Lock()
		wasConnected := f.state == connstate.Connected || f.state == connstate.Authenticated
		f.state = connstate.Idle
		shouldBeConnected := f.shouldBeConnected
		f.mu.Unlock()

		f.subs.ResetToPending()
		if err != nil && wasConnected && shouldBeConnected {
			f.log.Warn().Err(err).Msg("fast feed stream closed, scheduling reconnect")
			f.scheduleReconnect(ctx, 1)
		}
	}()

	f.mu.Lock()
	f.state = connstate.Connected
	f.mu.Unlock()
}

func (f *Feed) scheduleReconnect(ctx context.Context, attempt int) {
	if !connstate.ShouldAttempt(attempt) {
		f.log.Error().Int("attempt", attempt).Msg("fast feed reconnect attempts exhausted, giving up")
		return
	}
	delay := connstate.ReconnectDelay(attempt)
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		f.mu.Lock()
		shouldBeConnected := f.shouldBeConnected
		f.mu.Unlock()
		if !shouldBeConnected || !f.shouldConnect(ctx) {
			return
		}
		f.connect(ctx)
	}()
}

func (f *Feed) closeStream() {
	f.mu.Lock()
	cancel := f.cancelStream
	f.cancelStream = nil
	f.state = connstate.Idle
	f.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	f.subs.ResetToPending()
}

// handleBar transforms and writes a single live bar (spec §4.3: "Fast-feed
// bar event -> transform -> writeQuotes([bar])").
func (f *Feed) handleBar(ctx context.Context, bar stream.Bar) {
	b := model.Bar{
		Ticker: model.NormalizeTicker(bar.Symbol),
		Market: model.MarketUS,
		Time:   bar.Timestamp,
		Open:   decimal.NewFromFloat(bar.Open),
		High:   decimal.NewFromFloat(bar.High),
		Low:    decimal.NewFromFloat(bar.Low),
		Close:  decimal.NewFromFloat(bar.Close),
		Volume: int64(bar.Volume),
	}
	vwap := decimal.NewFromFloat(bar.VWAP)
	b.VWAP = &vwap
	trades := int64(bar.TradeCount)
	b.Trades = &trades

	if err := f.writer.WriteQuotes(ctx, []model.Bar{b}); err != nil {
		f.log.Error().Err(err).Str("ticker", b.Ticker).Msg("failed to write fast-feed bar")
	}
}

// Subscribe adds tickers to the fast feed's subscription set. Idempotent;
// new tickers are uppercased and diffed against current subscriptions
// (spec §4.3). It also triggers Stage-2 backfill for genuinely new
// tickers.
func (f *Feed) Subscribe(ctx context.Context, tickers ...string) {
	norm := make([]string, len(tickers))
	for i, t := range tickers {
		norm[i] = model.NormalizeTicker(t)
	}

	f.mu.Lock()
	authenticated := f.state == connstate.Connected || f.state == connstate.Authenticated
	client := f.streamClient
	f.mu.Unlock()

	fresh := f.subs.Add(authenticated, norm...)
	if len(fresh) == 0 {
		return
	}

	if authenticated && client != nil {
		if err := client.SubscribeToBars(func(bar stream.Bar) { f.handleBar(ctx, bar) }, fresh...); err != nil {
			f.log.Error().Err(err).Strs("tickers", fresh).Msg("wire-level subscribe failed")
		}
	}

	go f.stage2Backfill(ctx, fresh)
}

// Unsubscribe removes tickers from the fast feed's subscription set. ctx is
// accepted (but unused) to match delayedfeed.Feed's signature for the
// control surface's shared interface.
func (f *Feed) Unsubscribe(_ context.Context, tickers ...string) {
	norm := make([]string, len(tickers))
	for i, t := range tickers {
		norm[i] = model.NormalizeTicker(t)
	}
	removed := f.subs.Remove(norm...)

	f.mu.Lock()
	client := f.streamClient
	f.mu.Unlock()
	if client != nil && len(removed) > 0 {
		if err := client.UnsubscribeFromBars(removed...); err != nil {
			f.log.Error().Err(err).Strs("tickers", removed).Msg("wire-level unsubscribe failed")
		}
	}
}

// stage2Backfill implements spec §4.3's "Fast-feed subscribe also triggers
// Stage-2 backfill for new tickers": GET 1-minute bars for
// [now-15m, now], re-clip defensively, write.
func (f *Feed) stage2Backfill(ctx context.Context, tickers []string) {
	now := time.Now().UTC()
	start := now.Add(-stitch.StageOneDelay)

	for _, ticker := range tickers {
		bars, err := f.marketData.GetBars(ticker, marketdata.GetBarsRequest{
			TimeFrame: marketdata.OneMin,
			Start:     start,
			End:       now,
		})
		if err != nil {
			f.log.Error().Err(err).Str("ticker", ticker).Msg("stage-2 backfill fetch failed")
			continue
		}

		out := make([]model.Bar, 0, len(bars))
		for _, bar := range bars {
			if !stitch.StageTwoClip(bar.Timestamp, now) {
				continue // defensive re-clip (spec §9)
			}
			out = append(out, model.Bar{
				Ticker: ticker,
				Market: model.MarketUS,
				Time:   bar.Timestamp,
				Open:   decimal.NewFromFloat(bar.Open),
				High:   decimal.NewFromFloat(bar.High),
				Low:    decimal.NewFromFloat(bar.Low),
				Close:  decimal.NewFromFloat(bar.Close),
				Volume: int64(bar.Volume),
			})
		}
		if err := f.writer.WriteQuotes(ctx, out); err != nil {
			f.log.Error().Err(err).Str("ticker", ticker).Msg("stage-2 backfill write failed")
		}
	}
}

// Status reports the feed's health-endpoint shape (spec §6).
func (f *Feed) Status() (connected bool, subscriptions []string) {
	f.mu.Lock()
	connected = f.state == connstate.Connected
	f.mu.Unlock()
	return connected, f.subs.Snapshot()
}
