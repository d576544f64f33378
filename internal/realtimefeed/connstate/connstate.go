// Package connstate is the shared state machine and subscription
// bookkeeping for RealtimeFeed's two variants (spec §4.3). Grounded on
// aristath-sentinel/internal/clients/tradernet/websocket_client.go's
// MarketStatusWebSocket struct (state flags, mutex-guarded cache,
// stop channel, reconnect loop shape), generalised into a reusable helper
// instead of duplicated per feed.
package connstate

import "sync"

// State is one of the RealtimeFeed lifecycle states (spec §4.3).
type State int

const (
	Idle State = iota
	Connecting
	Authenticated
	Connected
	Reconnecting
	Closing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Authenticated:
		return "authenticated"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	case Closing:
		return "closing"
	default:
		return "unknown"
	}
}

// Subscriptions tracks a feed's active and pending ticker sets (spec §5's
// shared-state table: "subscription set" / "pending set", each owned by
// its RealtimeFeed instance). Pending tickers are ones added while
// disconnected; they are cleared into active on (re)authentication.
type Subscriptions struct {
	mu      sync.Mutex
	active  map[string]bool
	pending map[string]bool
}

// NewSubscriptions builds an empty subscription tracker.
func NewSubscriptions() *Subscriptions {
	return &Subscriptions{active: map[string]bool{}, pending: map[string]bool{}}
}

// Add diffs tickers against the current subscriptions (active ∪ pending)
// and returns only the genuinely new ones, placing them in active if
// authenticated is true, otherwise pending (spec §4.3 "Subscribe/
// unsubscribe are idempotent on the local set").
func (s *Subscriptions) Add(authenticated bool, tickers ...string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var fresh []string
	for _, t := range tickers {
		if s.active[t] || s.pending[t] {
			continue
		}
		if authenticated {
			s.active[t] = true
		} else {
			s.pending[t] = true
		}
		fresh = append(fresh, t)
	}
	return fresh
}

// Remove deletes tickers from both active and pending sets.
func (s *Subscriptions) Remove(tickers ...string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed []string
	for _, t := range tickers {
		had := s.active[t] || s.pending[t]
		delete(s.active, t)
		delete(s.pending, t)
		if had {
			removed = append(removed, t)
		}
	}
	return removed
}

// DrainPending moves every pending ticker into active and returns the
// union of active ∪ formerly-pending, for the caller to re-subscribe over
// the wire after (re)authentication (spec §4.3).
func (s *Subscriptions) DrainPending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for t := range s.pending {
		s.active[t] = true
	}
	s.pending = map[string]bool{}
	out := make([]string, 0, len(s.active))
	for t := range s.active {
		out = append(out, t)
	}
	return out
}

// ResetToPending moves every active ticker back to pending (on disconnect,
// spec §4.3: "Cleared to pending on disconnect").
func (s *Subscriptions) ResetToPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for t := range s.active {
		s.pending[t] = true
	}
	s.active = map[string]bool{}
}

// Snapshot returns every currently active ticker.
func (s *Subscriptions) Snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.active))
	for t := range s.active {
		out = append(out, t)
	}
	return out
}
