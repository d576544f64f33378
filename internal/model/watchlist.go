package model

import "sync"

// Watchlist is a process-local ordered set of tickers, case-normalised
// uppercase. It is owned by the scheduler (spec §5's "Shared mutable
// state" table) and mutated only through these methods; consulted by
// RealtimeFeed for its subscription set and by the scheduler for
// per-ticker jobs. Persistence is out of scope — the zero value is empty
// and callers seed it from configuration.
type Watchlist struct {
	mu     sync.Mutex
	order  []string
	lookup map[string]bool
}

// NewWatchlist builds a Watchlist seeded with the given tickers, in order,
// deduplicated and upper-cased.
func NewWatchlist(seed []string) *Watchlist {
	w := &Watchlist{lookup: make(map[string]bool)}
	w.Add(seed...)
	return w
}

// Add inserts tickers (idempotent); returns the ones that were newly added.
func (w *Watchlist) Add(tickers ...string) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.lookup == nil {
		w.lookup = make(map[string]bool)
	}
	added := make([]string, 0, len(tickers))
	for _, raw := range tickers {
		t := NormalizeTicker(raw)
		if t == "" || w.lookup[t] {
			continue
		}
		w.lookup[t] = true
		w.order = append(w.order, t)
		added = append(added, t)
	}
	return added
}

// Remove deletes tickers (idempotent); returns the ones that were
// actually present.
func (w *Watchlist) Remove(tickers ...string) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	removed := make([]string, 0, len(tickers))
	for _, raw := range tickers {
		t := NormalizeTicker(raw)
		if !w.lookup[t] {
			continue
		}
		delete(w.lookup, t)
		for i, v := range w.order {
			if v == t {
				w.order = append(w.order[:i], w.order[i+1:]...)
				break
			}
		}
		removed = append(removed, t)
	}
	return removed
}

// Set replaces the watchlist contents wholesale, preserving the given
// order.
func (w *Watchlist) Set(tickers []string) {
	w.mu.Lock()
	w.order = nil
	w.lookup = make(map[string]bool)
	w.mu.Unlock()
	w.Add(tickers...)
}

// Tickers returns a snapshot of the watchlist in insertion order. Callers
// must not assume any particular interleaving of per-ticker job completion
// across snapshots (spec §9: no stable-order guarantee is promised beyond
// "iterates set order").
func (w *Watchlist) Tickers() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.order))
	copy(out, w.order)
	return out
}

// Contains reports whether t is on the watchlist.
func (w *Watchlist) Contains(t string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lookup[NormalizeTicker(t)]
}
