package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWatchlistAddIsIdempotentAndNormalises(t *testing.T) {
	w := NewWatchlist([]string{"aapl", "TSLA"})
	require.Equal(t, []string{"AAPL", "TSLA"}, w.Tickers())

	added := w.Add("tsla", "nvda")
	require.Equal(t, []string{"NVDA"}, added, "already-present ticker must not be re-added")
	require.Equal(t, []string{"AAPL", "TSLA", "NVDA"}, w.Tickers())
}

func TestWatchlistRemove(t *testing.T) {
	w := NewWatchlist([]string{"AAPL", "TSLA", "NVDA"})
	removed := w.Remove("tsla", "msft")
	require.Equal(t, []string{"TSLA"}, removed, "absent ticker must not be reported as removed")
	require.Equal(t, []string{"AAPL", "NVDA"}, w.Tickers())
	require.False(t, w.Contains("TSLA"))
}

func TestWatchlistSetReplacesContents(t *testing.T) {
	w := NewWatchlist([]string{"AAPL"})
	w.Set([]string{"msft", "googl"})
	require.Equal(t, []string{"MSFT", "GOOGL"}, w.Tickers())
	require.False(t, w.Contains("AAPL"))
}
