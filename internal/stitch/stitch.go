// Package stitch encodes the cross-cutting invariants shared by
// RealtimeFeed and Scheduler that make the three producers' time windows
// disjoint-by-authority (spec §4.5). It holds no state: storage overwrite
// semantics resolve identity, so these are pure predicates over time, not a
// coordinating component.
package stitch

import "time"

// StageOneDelay is the boundary between Stage 1 (REST SIP backfill) and
// Stage 2 (REST IEX backfill): 15 minutes.
const StageOneDelay = 15 * time.Minute

// SIPCorrectionLag is the one-minute buffer past the 15-minute official
// delay used by the Layer 1/2 SIP-minute-correction job (spec S4).
const SIPCorrectionLag = 16 * time.Minute

// StageOneClip reports whether t may be written by a Stage-1 (REST SIP,
// far-history) backfill relative to now: only time <= now-15m (S1).
func StageOneClip(t, now time.Time) bool {
	return !t.After(now.Add(-StageOneDelay))
}

// StageTwoClip reports whether t may be written by a Stage-2 (REST IEX,
// recent-15-minutes) backfill relative to now: time in [now-15m, now] (S2).
func StageTwoClip(t, now time.Time) bool {
	lower := now.Add(-StageOneDelay)
	return !t.Before(lower) && !t.After(now)
}

// SIPCorrectionTime returns the bar time the Layer 1/2 SIP-minute
// correction job should fetch and overwrite for the given fire time: now
// minus the 16-minute lag (S4).
func SIPCorrectionTime(now time.Time) time.Time {
	return now.Add(-SIPCorrectionLag).Truncate(time.Minute)
}

// ClipBars filters bars (given by their timestamps) to those satisfying
// keep, preserving order. It is a generic helper; the Stage-1 and Stage-2
// backfill paths apply StageOneClip and StageTwoClip directly rather than
// calling it.
func ClipBars(times []time.Time, keep func(time.Time) bool) []int {
	idx := make([]int, 0, len(times))
	for i, t := range times {
		if keep(t) {
			idx = append(idx, i)
		}
	}
	return idx
}
