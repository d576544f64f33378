package connstate

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestP4IdempotentSubscribe mirrors spec property P4:
// subscribe([a,b]); subscribe([b,c]) -> {a,b,c}; the second call's wire-level
// diff is {c} only.
func TestP4IdempotentSubscribe(t *testing.T) {
	s := NewSubscriptions()

	fresh1 := s.Add(true, "a", "b")
	sort.Strings(fresh1)
	require.Equal(t, []string{"a", "b"}, fresh1)

	fresh2 := s.Add(true, "b", "c")
	require.Equal(t, []string{"c"}, fresh2)

	snap := s.Snapshot()
	sort.Strings(snap)
	require.Equal(t, []string{"a", "b", "c"}, snap)
}

func TestPendingDrainsOnAuth(t *testing.T) {
	s := NewSubscriptions()
	s.Add(false, "a", "b")
	require.Empty(t, s.Snapshot())

	drained := s.DrainPending()
	sort.Strings(drained)
	require.Equal(t, []string{"a", "b"}, drained)

	snap := s.Snapshot()
	sort.Strings(snap)
	require.Equal(t, []string{"a", "b"}, snap)
}

func TestResetToPendingOnDisconnect(t *testing.T) {
	s := NewSubscriptions()
	s.Add(true, "a")
	s.ResetToPending()
	require.Empty(t, s.Snapshot())

	drained := s.DrainPending()
	require.Equal(t, []string{"a"}, drained)
}
