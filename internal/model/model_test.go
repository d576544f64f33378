package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTicker(t *testing.T) {
	require.Equal(t, "AAPL", NormalizeTicker("  aapl "))
	require.Equal(t, "", NormalizeTicker(""))
}

func TestPassesFilter(t *testing.T) {
	tests := []struct {
		ticker string
		filter TickerFilter
		want   bool
	}{
		{"AAPL", FilterAll, true},
		{"AAPL", FilterMainboard, true},
		{"AAPL", FilterCommon, true},
		{"BRK.A", FilterMainboard, false},
		{"AAPLW", FilterCommon, false},
		{"AAPLW", FilterMainboard, true},
		{"ABCWS", FilterCommon, false},
		{"TSLA", FilterCommon, true},
		{"", FilterCommon, false},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, PassesFilter(tt.ticker, tt.filter), "%s/%s", tt.ticker, tt.filter)
	}
}

func TestBarValid(t *testing.T) {
	require.False(t, Bar{}.Valid(), "zero-value bar is invalid")
	require.False(t, Bar{Time: time.Now()}.Valid(), "zero open and close is invalid")
	require.False(t, Bar{Time: time.Now(), Close: decimal.NewFromInt(150)}.Valid(), "missing open alone is invalid")
	require.False(t, Bar{Time: time.Now(), Open: decimal.NewFromInt(150)}.Valid(), "missing close alone is invalid")
	require.True(t, Bar{Time: time.Now(), Open: decimal.NewFromInt(1), Close: decimal.NewFromInt(2)}.Valid())
}

func TestDailyBarWithDerived(t *testing.T) {
	d := DailyBar{Open: decimal.NewFromInt(100), Close: decimal.NewFromInt(110)}
	d = d.WithDerived()
	require.True(t, d.Change.Equal(decimal.NewFromInt(10)))
	require.True(t, d.ChangePercent.Equal(decimal.NewFromInt(10)))
}

func TestDailyBarWithDerivedZeroOpen(t *testing.T) {
	d := DailyBar{Open: decimal.Zero, Close: decimal.NewFromInt(5)}
	d = d.WithDerived()
	require.True(t, d.ChangePercent.IsZero(), "division by zero open must not panic, percent stays zero")
}
