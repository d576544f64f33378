package scheduler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/wavepilot/ingest/internal/config"
	"github.com/wavepilot/ingest/internal/massiveapi"
	"github.com/wavepilot/ingest/internal/model"
	"github.com/wavepilot/ingest/internal/newsstore"
	"github.com/wavepilot/ingest/internal/tswriter"
)

// openClock always reports the market open; closedClock always reports it
// closed. Both satisfy the Deps.Clock interface without a live upstream.
type openClock struct{}

func (openClock) Status(context.Context) model.MarketStatus { return model.MarketStatus{IsOpen: true} }

type closedClock struct{}

func (closedClock) Status(context.Context) model.MarketStatus { return model.MarketStatus{IsOpen: false} }

// recordingWriter captures every point batch a test job writes, the same
// shape tswriter's own tests use.
func newRecordingWriter(t *testing.T) (*tswriter.Writer, func() [][]byte) {
	var mu sync.Mutex
	var bodies [][]byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		mu.Lock()
		bodies = append(bodies, body)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	cfg := &config.Config{InfluxDBEndpoint: srv.URL, InfluxDBDatabase: "market_data"}
	writer := tswriter.New(cfg, nil, zerolog.Nop())

	return writer, func() [][]byte {
		mu.Lock()
		defer mu.Unlock()
		return bodies
	}
}

func newTestDeps(t *testing.T, clock interface {
	Status(ctx context.Context) model.MarketStatus
}, upstreamHandler http.HandlerFunc) (Deps, func() [][]byte) {
	upstreamSrv := httptest.NewServer(upstreamHandler)
	t.Cleanup(upstreamSrv.Close)

	writer, batches := newRecordingWriter(t)
	news := newsstore.New(nil, writer, zerolog.Nop())

	return Deps{
		Upstream:  massiveapi.NewClient(upstreamSrv.URL, "testkey"),
		Writer:    writer,
		News:      news,
		Watchlist: model.NewWatchlist([]string{"AAPL", "MSFT"}),
		Clock:     clock,
		Log:       zerolog.Nop(),
	}, batches
}

func TestSnapshotJobSkipsWhenMarketClosed(t *testing.T) {
	var hit bool
	deps, _ := newTestDeps(t, closedClock{}, func(w http.ResponseWriter, r *http.Request) {
		hit = true
		_ = json.NewEncoder(w).Encode(massiveapi.AllTickersSnapshotResponse{})
	})

	require.NoError(t, (&snapshotJob{deps: deps}).Run(context.Background()))
	require.False(t, hit, "snapshot job must not call upstream while the market is closed")
}

func TestSnapshotJobFiltersAndWrites(t *testing.T) {
	deps, batches := newTestDeps(t, openClock{}, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(massiveapi.AllTickersSnapshotResponse{
			Tickers: []massiveapi.SnapshotTicker{
				{Ticker: "AAPL", Day: massiveapi.SnapshotBar{Open: 100, High: 101, Low: 99, Close: 100.5, Volume: 1000}},
				{Ticker: "AAPLW", Day: massiveapi.SnapshotBar{Open: 1, High: 1, Low: 1, Close: 1, Volume: 10}},
			},
		})
	})

	require.NoError(t, (&snapshotJob{deps: deps}).Run(context.Background()))
	require.Len(t, batches(), 1, "the snapshot is written as one batch")
	var pts []tswriter.Point
	require.NoError(t, json.Unmarshal(batches()[0], &pts))
	require.Len(t, pts, 1, "only the common-stock ticker should reach a write")
}

func TestSipMinuteCorrectionJobWritesOnlyTargetMinute(t *testing.T) {
	var calls int
	deps, batches := newTestDeps(t, openClock{}, func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(massiveapi.BarsResponse{
			Results: []massiveapi.Bar{
				{Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10, Timestamp: 0},
			},
		})
	})

	require.NoError(t, (&sipMinuteCorrectionJob{deps: deps}).Run(context.Background()))
	require.Equal(t, 2, calls, "one request per watchlist ticker")
	require.Empty(t, batches(), "a bar outside the target minute must not be written")
}

func TestEodJobWritesGroupedDailyAndRunsCorrection(t *testing.T) {
	var path string
	deps, batches := newTestDeps(t, openClock{}, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		if r.URL.Path == "/v2/aggs/grouped/locale/us/market/stocks/"+time.Now().UTC().Format("2006-01-02") {
			_ = json.NewEncoder(w).Encode(massiveapi.GroupedDailyResponse{
				Results: []massiveapi.GroupedDaily{
					{Ticker: "AAPL", Open: 100, High: 101, Low: 99, Close: 100.5, Volume: 1000},
				},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(massiveapi.BarsResponse{})
	})

	require.NoError(t, (&eodJob{deps: deps}).Run(context.Background()))
	require.NotEmpty(t, path)
	require.GreaterOrEqual(t, len(batches()), 1)
}

func TestNewsJobSavesPerTickerArticles(t *testing.T) {
	deps, batches := newTestDeps(t, openClock{}, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(massiveapi.NewsResponse{
			Results: []massiveapi.NewsArticle{
				{ID: "n1", Title: "headline", PublishedUTC: "2025-01-15T12:00:00Z"},
			},
		})
	})

	require.NoError(t, (&newsJob{deps: deps}).Run(context.Background()))
	require.Len(t, batches(), 2, "one news write per watchlist ticker")
}

func TestFundamentalsJobSkipsNotAvailable(t *testing.T) {
	deps, batches := newTestDeps(t, openClock{}, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	require.NoError(t, (&fundamentalsJob{deps: deps}).Run(context.Background()))
	require.Empty(t, batches(), "a not-available response must not produce a write")
}

func TestRunTaskBypassesMarketGate(t *testing.T) {
	var hit bool
	deps, _ := newTestDeps(t, closedClock{}, func(w http.ResponseWriter, r *http.Request) {
		hit = true
		_ = json.NewEncoder(w).Encode(massiveapi.AllTickersSnapshotResponse{})
	})

	s := New(deps)
	require.NoError(t, s.RunTask(context.Background(), "snapshot"))
	require.True(t, hit, "runTask must bypass the market-open gate")
}

func TestBackfillHistoryClipsToStageOneWindow(t *testing.T) {
	deps, batches := newTestDeps(t, openClock{}, func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().UTC()
		_ = json.NewEncoder(w).Encode(massiveapi.BarsResponse{
			Results: []massiveapi.Bar{
				{Open: 1, High: 1, Low: 1, Close: 1, Volume: 1, Timestamp: now.Add(-20 * time.Minute).UnixMilli()},
				{Open: 1, High: 1, Low: 1, Close: 1, Volume: 1, Timestamp: now.Add(-1 * time.Minute).UnixMilli()},
			},
		})
	})

	s := New(deps)
	s.BackfillHistory(context.Background(), []string{"AAPL"})
	require.NotEmpty(t, batches())
	for _, b := range batches() {
		var pts []tswriter.Point
		require.NoError(t, json.Unmarshal(b, &pts))
		require.Len(t, pts, 1, "the bar inside the last 15 minutes must be clipped")
	}
}
