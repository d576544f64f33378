package stitch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStageOneClip(t *testing.T) {
	now := time.Date(2025, 1, 15, 14, 30, 0, 0, time.UTC)

	assert.True(t, StageOneClip(now.Add(-16*time.Minute), now))
	assert.True(t, StageOneClip(now.Add(-15*time.Minute), now))
	assert.False(t, StageOneClip(now.Add(-14*time.Minute), now))
	assert.False(t, StageOneClip(now, now))
}

func TestStageTwoClip(t *testing.T) {
	now := time.Date(2025, 1, 15, 14, 30, 0, 0, time.UTC)

	assert.False(t, StageTwoClip(now.Add(-16*time.Minute), now))
	assert.True(t, StageTwoClip(now.Add(-15*time.Minute), now))
	assert.True(t, StageTwoClip(now, now))
	assert.False(t, StageTwoClip(now.Add(time.Minute), now))
}

func TestSIPCorrectionTime(t *testing.T) {
	now := time.Date(2025, 1, 15, 14, 30, 45, 0, time.UTC)
	got := SIPCorrectionTime(now)
	want := time.Date(2025, 1, 15, 14, 14, 0, 0, time.UTC)
	assert.Equal(t, want, got)
}

// TestE2WatchlistBackfillClip mirrors spec scenario E2: a subscribe-driven
// Stage-2 backfill at t_now=14:30 over bars [14:14 .. 14:29] keeps exactly
// [14:15, 14:30).
func TestE2WatchlistBackfillClip(t *testing.T) {
	now := time.Date(2025, 1, 15, 14, 30, 0, 0, time.UTC)
	var times []time.Time
	for m := 14; m <= 29; m++ {
		times = append(times, time.Date(2025, 1, 15, 14, m, 0, 0, time.UTC))
	}

	idx := ClipBars(times, func(bt time.Time) bool { return StageTwoClip(bt, now) })

	assert.Len(t, idx, 15) // 14:15 .. 14:29 inclusive
	assert.Equal(t, time.Date(2025, 1, 15, 14, 15, 0, 0, time.UTC), times[idx[0]])
	assert.Equal(t, time.Date(2025, 1, 15, 14, 29, 0, 0, time.UTC), times[idx[len(idx)-1]])
}
