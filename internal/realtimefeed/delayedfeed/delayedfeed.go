// Package delayedfeed is the SIP streaming side of C3 RealtimeFeed (spec
// §4.3): a websocket client authenticating against the delayed-feed host,
// subscribing to aggregate-minute ("AM") events, and writing them through
// TSWriter as Layer-1 corrections. Connection and reconnect shape is
// grounded on aristath-sentinel/internal/clients/tradernet/websocket_client.go's
// MarketStatusWebSocket (dial, auth-then-subscribe, read loop, reconnect
// loop with backoff), including its crypto/tls ALPN trick for forcing
// HTTP/1.1 on the websocket upgrade handshake, using the same
// nhooyr.io/websocket client library. The {action,params} / ev-discriminator
// wire shape is grounded on cloudmanic-massive/internal/ws/client.go's
// subscribeAction and Message types.
package delayedfeed

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"nhooyr.io/websocket"

	"github.com/wavepilot/ingest/internal/marketclock"
	"github.com/wavepilot/ingest/internal/model"
	"github.com/wavepilot/ingest/internal/realtimefeed/connstate"
	"github.com/wavepilot/ingest/internal/tswriter"
)

const (
	dialTimeout = 30 * time.Second
	writeWait   = 10 * time.Second

	// HeartbeatInterval and PongDeadline are the delayed feed's heartbeat
	// parameters (spec §5: "WS ping 30s, pong deadline 10s").
	HeartbeatInterval = 30 * time.Second
	PongDeadline      = 10 * time.Second

	// afterCloseWindow is how long past market close the delayed feed stays
	// connected to drain the tail of delayed bars (spec §4.3: "connects
	// from open through close + 15 min").
	afterCloseWindow = 15 * time.Minute
)

func createHTTP1Client() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   dialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSClientConfig:   &tls.Config{NextProtos: []string{"http/1.1"}},
			ForceAttemptHTTP2: false,
		},
	}
}

// Feed is the delayed-feed (SIP stream) RealtimeFeed variant.
type Feed struct {
	url    string
	apiKey string

	httpClient *http.Client
	clock      *marketclock.Service
	writer     *tswriter.Writer
	subs       *connstate.Subscriptions
	log        zerolog.Logger

	mu                sync.Mutex
	shouldBeConnected bool
	state             connstate.State
	conn              *websocket.Conn
	cancelConn        context.CancelFunc
	monitor           *connstate.Monitor
}

// New builds a Feed. url is the delayed-feed websocket host; apiKey
// authenticates the `auth` frame.
func New(url, apiKey string, clock *marketclock.Service, writer *tswriter.Writer, log zerolog.Logger) *Feed {
	return &Feed{
		url:        url,
		apiKey:     apiKey,
		httpClient: createHTTP1Client(),
		clock:      clock,
		writer:     writer,
		subs:       connstate.NewSubscriptions(),
		log:        log.With().Str("component", "delayedfeed").Logger(),
		state:      connstate.Idle,
	}
}

// Connect sets the shouldBeConnected intent and starts the market monitor.
func (f *Feed) Connect(ctx context.Context) {
	f.mu.Lock()
	f.shouldBeConnected = true
	if f.monitor == nil {
		f.monitor = connstate.NewMonitor(func() { f.checkAndConnect(ctx) })
		f.monitor.Start(ctx)
	}
	f.mu.Unlock()
}

// Disconnect flips shouldBeConnected=false and tears down any live
// connection.
func (f *Feed) Disconnect() {
	f.mu.Lock()
	f.shouldBeConnected = false
	monitor := f.monitor
	f.monitor = nil
	f.mu.Unlock()

	if monitor != nil {
		monitor.Stop()
	}
	f.closeConn("shutdown")
}

// shouldConnect implements the delayed feed's wider window: open through
// close+15min, so the tail of delayed bars for the session arrives before
// disconnect (spec §4.3, §9 REDESIGN: "skips reconnect if market is
// closed" is the preferred revision, implemented via this same policy
// function gating both initial connect and reconnect).
func (f *Feed) shouldConnect(ctx context.Context) bool {
	status := f.clock.Status(ctx)
	if status.IsOpen {
		return true
	}
	if !status.AfterHours {
		return false
	}
	cal, err := marketclock.NewUSCalendar()
	if err != nil {
		return false
	}
	return cal.StatusAt(time.Now().Add(-afterCloseWindow)).IsOpen
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
	connected := currentState == connstate.Connected || currentState == connstate.Authenticated
	connecting := currentState == connstate.Connecting

	switch {
	case want && !connected && !connecting:
		go f.connect(ctx, 1)
	case !want && connected:
		f.log.Info().Msg("outside delayed-feed window, closing (intentional, no reconnect)")
		f.closeConn("market closed")
	}
}

func (f *Feed) connect(ctx context.Context, attempt int) {
	f.mu.Lock()
	f.state = connstate.Connecting
	f.mu.Unlock()

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	conn, _, err := websocket.Dial(dialCtx, f.url, &websocket.DialOptions{HTTPClient: f.httpClient})
	cancel()
	if err != nil {
		f.log.Warn().Err(err).Int("attempt", attempt).Msg("delayed feed dial failed")
		f.scheduleReconnect(ctx, attempt)
		return
	}

	connCtx, connCancel := context.WithCancel(ctx)

	f.mu.Lock()
	f.conn = conn
	f.cancelConn = connCancel
	f.mu.Unlock()

	if err := f.authenticate(connCtx, conn); err != nil {
		f.log.Warn().Err(err).Int("attempt", attempt).Msg("delayed feed auth failed")
		connCancel()
		conn.Close(websocket.StatusNormalClosure, "auth failed")
		f.clearConn()
		f.scheduleReconnect(ctx, attempt)
		return
	}

	f.mu.Lock()
	f.state = connstate.Authenticated
	f.mu.Unlock()

	if err := f.resubscribeAll(connCtx, conn); err != nil {
		f.log.Warn().Err(err).Msg("delayed feed re-subscribe failed")
	}

	f.mu.Lock()
	f.state = connstate.Connected
	f.mu.Unlock()

	go f.heartbeatLoop(connCtx, conn)
	go f.readLoop(connCtx, conn, ctx)
}

func (f *Feed) authenticate(ctx context.Context, conn *websocket.Conn) error {
	msg := authMessage{Action: "auth", Params: f.apiKey}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}

// resubscribeAll replays the union of subscriptions ∪ pending on
// (re)authentication (spec §4.3, §5's subscription-state table).
func (f *Feed) resubscribeAll(ctx context.Context, conn *websocket.Conn) error {
	all := f.subs.DrainPending()
	if len(all) == 0 {
		return nil
	}
	return f.sendSubscribe(ctx, conn, "subscribe", all)
}

func (f *Feed) sendSubscribe(ctx context.Context, conn *websocket.Conn, action string, tickers []string) error {
	params := make([]string, len(tickers))
	for i, t := range tickers {
		params[i] = "AM." + t
	}
	msg := subscribeMessage{Action: action, Params: strings.Join(params, ",")}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}

// Subscribe adds tickers to the delayed feed (spec §4.3's idempotent
// subscribe/unsubscribe).
func (f *Feed) Subscribe(ctx context.Context, tickers ...string) {
	norm := make([]string, len(tickers))
	for i, t := range tickers {
		norm[i] = model.NormalizeTicker(t)
	}

	f.mu.Lock()
	authenticated := f.state == connstate.Connected || f.state == connstate.Authenticated
	conn := f.conn
	f.mu.Unlock()

	fresh := f.subs.Add(authenticated, norm...)
	if len(fresh) == 0 || !authenticated || conn == nil {
		return
	}
	if err := f.sendSubscribe(ctx, conn, "subscribe", fresh); err != nil {
		f.log.Error().Err(err).Strs("tickers", fresh).Msg("wire-level subscribe failed")
	}
}

// Unsubscribe removes tickers from the delayed feed.
func (f *Feed) Unsubscribe(ctx context.Context, tickers ...string) {
	norm := make([]string, len(tickers))
	for i, t := range tickers {
		norm[i] = model.NormalizeTicker(t)
	}
	removed := f.subs.Remove(norm...)

	f.mu.Lock()
	conn := f.conn
	f.mu.Unlock()
	if conn != nil && len(removed) > 0 {
		if err := f.sendSubscribe(ctx, conn, "unsubscribe", removed); err != nil {
			f.log.Error().Err(err).Strs("tickers", removed).Msg("wire-level unsubscribe failed")
		}
	}
}

// heartbeatLoop pings every HeartbeatInterval; a pong that doesn't arrive
// within PongDeadline forces the connection closed and lets the close
// handler schedule reconnect (spec §5).
func (f *Feed) heartbeatLoop(connCtx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-connCtx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(connCtx, PongDeadline)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				f.log.Warn().Err(err).Msg("delayed feed heartbeat timed out, closing")
				_ = conn.Close(websocket.StatusGoingAway, "heartbeat timeout")
				return
			}
		}
	}
}

func (f *Feed) readLoop(connCtx context.Context, conn *websocket.Conn, parentCtx context.Context) {
	defer func() {
		wasIntentional := connCtx.Err() != nil
		f.clearConn()
		f.subs.ResetToPending()

		f.mu.Lock()
		shouldBeConnected := f.shouldBeConnected
		f.mu.Unlock()

		if !wasIntentional && shouldBeConnected {
			f.scheduleReconnect(parentCtx, 1)
		}
	}()

	for {
		_, data, err := conn.Read(connCtx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				f.log.Info().Msg("delayed feed closed normally")
			} else if connCtx.Err() == nil {
				f.log.Error().Err(err).Msg("delayed feed read error")
			}
			return
		}

		events, err := decodeEvents(data)
		if err != nil {
			f.log.Warn().Err(err).Msg("delayed feed: failed to decode frame")
			continue
		}
		for _, e := range events {
			f.handleEvent(parentCtx, e)
		}
	}
}

func (f *Feed) handleEvent(ctx context.Context, e event) {
	switch e.Ev {
	case "status":
		if e.Status == "auth_failed" {
			f.log.Error().Str("message", e.Message).Msg("delayed feed auth rejected")
		}
	case "AM":
		var am aggMinute
		if err := json.Unmarshal(e.raw, &am); err != nil {
			f.log.Warn().Err(err).Msg("delayed feed: failed to decode AM event")
			return
		}
		bar := model.Bar{
			Ticker: model.NormalizeTicker(am.Symbol),
			Market: model.MarketUS,
			Time:   time.UnixMilli(am.Start).UTC(),
			Open:   decimal.NewFromFloat(am.Open),
			High:   decimal.NewFromFloat(am.High),
			Low:    decimal.NewFromFloat(am.Low),
			Close:  decimal.NewFromFloat(am.Close),
			Volume: am.Volume,
		}
		vwap := decimal.NewFromFloat(am.VWAP)
		bar.VWAP = &vwap
		trades := am.Trades
		bar.Trades = &trades

		if err := f.writer.WriteQuotes(ctx, []model.Bar{bar}); err != nil {
			f.log.Error().Err(err).Str("ticker", bar.Ticker).Msg("failed to write delayed-feed bar")
		}
	}
}

func (f *Feed) scheduleReconnect(ctx context.Context, attempt int) {
	if !connstate.ShouldAttempt(attempt) {
		f.log.Error().Int("attempt", attempt).Msg("delayed feed reconnect attempts exhausted, giving up")
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
		f.connect(ctx, attempt+1)
	}()
}

func (f *Feed) clearConn() {
	f.mu.Lock()
	f.conn = nil
	f.cancelConn = nil
	f.state = connstate.Idle
	f.mu.Unlock()
}

func (f *Feed) closeConn(reason string) {
	f.mu.Lock()
	conn := f.conn
	cancel := f.cancelConn
	f.conn = nil
	f.cancelConn = nil
	f.state = connstate.Idle
	f.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, reason)
	}
	f.subs.ResetToPending()
}

// Status reports the feed's health-endpoint shape (spec §6).
func (f *Feed) Status() (connected bool, subscriptions []string) {
	f.mu.Lock()
	connected = f.state == connstate.Connected
	f.mu.Unlock()
	return connected, f.subs.Snapshot()
}
