package control

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/wavepilot/ingest/internal/model"
)

type fakeFeed struct {
	subscribed   []string
	unsubscribed []string
	connected    bool
}

func (f *fakeFeed) Subscribe(_ context.Context, tickers ...string) {
	f.subscribed = append(f.subscribed, tickers...)
}
func (f *fakeFeed) Unsubscribe(_ context.Context, tickers ...string) {
	f.unsubscribed = append(f.unsubscribed, tickers...)
}
func (f *fakeFeed) Status() (bool, []string) { return f.connected, f.subscribed }

type fakeScheduler struct{}

func (fakeScheduler) Status() (bool, []string) { return true, []string{"AAPL"} }
func (fakeScheduler) BackfillHistory(_ context.Context, _ []string) {}

func newTestServer() (*Server, *fakeFeed, *fakeFeed, *model.Watchlist) {
	fast := &fakeFeed{connected: true}
	delayed := &fakeFeed{connected: true}
	wl := model.NewWatchlist(nil)
	s := New(0, fast, delayed, fakeScheduler{}, wl, zerolog.Nop())
	return s, fast, delayed, wl
}

func TestHandleHealth(t *testing.T) {
	s, _, _, _ := newTestServer()

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "healthy", resp.Status)
	require.Equal(t, "running", resp.Services.Scheduler.Status)
}

// TestHandleSubscribeAddsToWatchlistAndBothFeeds mirrors the spec's
// POST /subscribe side-effects: both feeds subscribed, watchlist updated.
func TestHandleSubscribeAddsToWatchlistAndBothFeeds(t *testing.T) {
	s, fast, delayed, wl := newTestServer()

	body, _ := json.Marshal(symbolsRequest{Symbols: []string{"tsla"}})
	req := httptest.NewRequest("POST", "/subscribe", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	require.Equal(t, []string{"TSLA"}, fast.subscribed)
	require.Equal(t, []string{"TSLA"}, delayed.subscribed)
	require.True(t, wl.Contains("TSLA"))
}

func TestHandleSubscribeRejectsInvalidBody(t *testing.T) {
	s, _, _, _ := newTestServer()

	req := httptest.NewRequest("POST", "/subscribe", bytes.NewReader([]byte(`not json`)))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, 400, rec.Code)
}

func TestHandleSubscriptionsReturnsWatchlist(t *testing.T) {
	s, _, _, wl := newTestServer()
	wl.Add("TSLA", "AAPL")

	req := httptest.NewRequest("GET", "/subscriptions", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	var resp subscriptionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.ElementsMatch(t, []string{"TSLA", "AAPL"}, resp.Subscriptions)
}

func TestHandleUnsubscribeRemovesFromWatchlist(t *testing.T) {
	s, fast, delayed, wl := newTestServer()
	wl.Add("TSLA")

	body, _ := json.Marshal(symbolsRequest{Symbols: []string{"TSLA"}})
	req := httptest.NewRequest("POST", "/unsubscribe", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	require.Equal(t, []string{"TSLA"}, fast.unsubscribed)
	require.Equal(t, []string{"TSLA"}, delayed.unsubscribed)
	require.False(t, wl.Contains("TSLA"))
}
