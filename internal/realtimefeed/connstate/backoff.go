package connstate

import "time"

// ReconnectBaseDelay and MaxReconnectAttempts are the spec's reconnect
// parameters (spec §4.3, §5): linear backoff, not the teacher's
// exponential formula — a deliberate divergence recorded in DESIGN.md.
const (
	ReconnectBaseDelay   = 5 * time.Second
	MaxReconnectAttempts = 10
)

// ReconnectDelay returns the delay before reconnect attempt number attempt
// (1-indexed): RECONNECT_DELAY_MS × attempt, linear (spec §4.3).
func ReconnectDelay(attempt int) time.Duration {
	return ReconnectBaseDelay * time.Duration(attempt)
}

// ShouldAttempt reports whether attempt (1-indexed) is within budget.
func ShouldAttempt(attempt int) bool {
	return attempt <= MaxReconnectAttempts
}
