package connstate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestP6ReconnectBound mirrors spec property P6: cumulative delays
// 5,10,15,...s up to attempt 10; attempt 11 is out of budget.
func TestP6ReconnectBound(t *testing.T) {
	cumulative := time.Duration(0)
	for attempt := 1; attempt <= MaxReconnectAttempts; attempt++ {
		require.True(t, ShouldAttempt(attempt))
		cumulative += ReconnectDelay(attempt)
	}
	require.False(t, ShouldAttempt(MaxReconnectAttempts+1))
	require.Equal(t, ReconnectBaseDelay*time.Duration(MaxReconnectAttempts*(MaxReconnectAttempts+1)/2), cumulative)
}

func TestReconnectDelayIsLinear(t *testing.T) {
	require.Equal(t, 5*time.Second, ReconnectDelay(1))
	require.Equal(t, 10*time.Second, ReconnectDelay(2))
	require.Equal(t, 50*time.Second, ReconnectDelay(10))
}
