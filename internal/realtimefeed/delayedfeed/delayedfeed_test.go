package delayedfeed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/wavepilot/ingest/internal/config"
	"github.com/wavepilot/ingest/internal/marketclock"
	"github.com/wavepilot/ingest/internal/tswriter"
)

func TestDecodeEventsSingleAndArray(t *testing.T) {
	single, err := decodeEvents([]byte(`{"ev":"status","status":"connected"}`))
	require.NoError(t, err)
	require.Len(t, single, 1)
	require.Equal(t, "status", single[0].Ev)

	multi, err := decodeEvents([]byte(`[{"ev":"AM","sym":"AAPL"},{"ev":"AM","sym":"MSFT"}]`))
	require.NoError(t, err)
	require.Len(t, multi, 2)

	var a aggMinute
	require.NoError(t, json.Unmarshal(multi[0].raw, &a))
	require.Equal(t, "AAPL", a.Symbol)
}

// sipServer is a gorilla/websocket-backed test double for the delayed-feed
// wire protocol (spec §6): it accepts the auth/subscribe handshake and then
// lets the test push AM events down the same connection, exercising the
// production nhooyr.io/websocket client against a real socket rather than
// decodeEvents alone.
type sipServer struct {
	upgrader websocket.Upgrader

	mu       sync.Mutex
	authMsgs []authMessage
	subMsgs  []subscribeMessage
	conn     *websocket.Conn
	connCh   chan *websocket.Conn
}

func newSIPServer() *sipServer {
	return &sipServer{connCh: make(chan *websocket.Conn, 1)}
}

func (s *sipServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	s.connCh <- conn

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var probe struct {
			Action string `json:"action"`
		}
		if json.Unmarshal(data, &probe) != nil {
			continue
		}
		switch probe.Action {
		case "auth":
			var m authMessage
			_ = json.Unmarshal(data, &m)
			s.mu.Lock()
			s.authMsgs = append(s.authMsgs, m)
			s.mu.Unlock()
		case "subscribe", "unsubscribe":
			var m subscribeMessage
			_ = json.Unmarshal(data, &m)
			s.mu.Lock()
			s.subMsgs = append(s.subMsgs, m)
			s.mu.Unlock()
		}
	}
}

func (s *sipServer) sendAM(t *testing.T, am aggMinute) {
	t.Helper()
	conn := <-s.connCh
	s.connCh <- conn
	payload := struct {
		Ev string `json:"ev"`
		aggMinute
	}{Ev: "AM", aggMinute: am}
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func (s *sipServer) waitAuth(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return len(s.authMsgs) > 0
	}, 2*time.Second, 10*time.Millisecond)
}

// TestDelayedFeedAuthenticatesAndWritesAggMinute exercises E1: connect,
// authenticate, subscribe, receive an AM event, and have it land as a
// WriteQuotes call.
func TestDelayedFeedAuthenticatesAndWritesAggMinute(t *testing.T) {
	sip := newSIPServer()
	wsSrv := httptest.NewServer(sip)
	defer wsSrv.Close()
	wsURL := "ws" + strings.TrimPrefix(wsSrv.URL, "http")

	var mu sync.Mutex
	var writeCount int
	tsSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		writeCount++
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer tsSrv.Close()

	writer := tswriter.New(&config.Config{InfluxDBEndpoint: tsSrv.URL, InfluxDBDatabase: "market_data"}, nil, zerolog.Nop())
	calendar, err := marketclock.NewUSCalendar()
	require.NoError(t, err)
	clock := marketclock.NewService(calendar, nil, zerolog.Nop())

	f := New(wsURL, "testkey", clock, writer, zerolog.Nop())
	f.subs.Add(false, "AAPL")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.connect(ctx, 1)

	sip.waitAuth(t)
	require.Equal(t, "testkey", sip.authMsgs[0].Params)

	require.Eventually(t, func() bool {
		sip.mu.Lock()
		defer sip.mu.Unlock()
		return len(sip.subMsgs) > 0
	}, 2*time.Second, 10*time.Millisecond)
	sip.mu.Lock()
	require.Equal(t, "AM.AAPL", sip.subMsgs[0].Params)
	sip.mu.Unlock()

	sip.sendAM(t, aggMinute{Symbol: "AAPL", Start: time.Now().UnixMilli(), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return writeCount > 0
	}, 2*time.Second, 10*time.Millisecond)

	f.closeConn("test done")
}

func TestShouldConnectCoversOpenAndAfterHours(t *testing.T) {
	calendar, err := marketclock.NewUSCalendar()
	require.NoError(t, err)
	clock := marketclock.NewService(calendar, nil, zerolog.Nop())
	writer := tswriter.New(&config.Config{InfluxDBEndpoint: "http://example.invalid"}, nil, zerolog.Nop())

	f := New("wss://example.invalid", "key", clock, writer, zerolog.Nop())
	// With no upstream, Status falls back to the calendar's time-of-day
	// rules, so shouldConnect must match the calendar: open now, or open
	// afterCloseWindow ago (the first 15 minutes after the close).
	now := time.Now()
	want := calendar.StatusAt(now).IsOpen || calendar.StatusAt(now.Add(-afterCloseWindow)).IsOpen
	require.Equal(t, want, f.shouldConnect(context.Background()))
}
