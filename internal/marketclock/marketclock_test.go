package marketclock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStatusAtTable(t *testing.T) {
	cal, err := NewUSCalendar()
	require.NoError(t, err)

	cases := []struct {
		name             string
		hour, minute     int
		weekday          time.Weekday
		wantOpen         bool
		wantEarly        bool
		wantAfter        bool
	}{
		{"weekday pre-market", 5, 0, time.Monday, false, true, false},
		{"weekday open", 10, 0, time.Tuesday, true, false, false},
		{"weekday just before close", 15, 59, time.Wednesday, true, false, false},
		{"weekday after close", 16, 30, time.Thursday, false, false, true},
		{"weekday late night", 22, 0, time.Friday, false, false, false},
		{"saturday", 10, 0, time.Saturday, false, false, false},
		{"sunday", 10, 0, time.Sunday, false, false, false},
	}

	base := time.Date(2025, 1, 6, 0, 0, 0, 0, cal.Location) // a Monday
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			offset := int(tc.weekday - time.Monday)
			d := base.AddDate(0, 0, offset)
			at := time.Date(d.Year(), d.Month(), d.Day(), tc.hour, tc.minute, 0, 0, cal.Location)

			got := cal.StatusAt(at)
			require.Equal(t, tc.wantOpen, got.IsOpen, "isOpen")
			require.Equal(t, tc.wantEarly, got.EarlyHours, "earlyHours")
			require.Equal(t, tc.wantAfter, got.AfterHours, "afterHours")
		})
	}
}
