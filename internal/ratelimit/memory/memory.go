package memory

import (
	"context"
	"sync"
	"time"

	"github.com/istra-watch/watchgate/internal/ratelimit"
)

type entry struct {
	ts   time.Time
	cost int
}

// Store tracks per-identifier cost inside a sliding window, in process
// memory. One mutex guards the whole map so that prune, sum and append
// happen as a single atomic step; the critical section is pure arithmetic.
//
// Identifiers are never evicted once seen, only their expired entries are.
// Memory therefore grows with unique-identifier churn; a deployment facing
// that needs the redis-backed store instead.
type Store struct {
	mu      sync.Mutex
	policy  ratelimit.Policy
	windows map[string][]entry
}

func New(policy ratelimit.Policy) *Store {
	return &Store{
		policy:  policy,
		windows: make(map[string][]entry),
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) Allow(_ context.Context, identifier string, cost int, now time.Time) (ratelimit.Decision, error) {
	if identifier == "" {
		identifier = "unknown"
	}
	if cost < 1 {
		cost = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	windowStart := now.Add(-s.policy.Window)

	// drop everything at or before the window start
	kept := s.windows[identifier][:0]
	for _, e := range s.windows[identifier] {
		if e.ts.After(windowStart) {
			kept = append(kept, e)
		}
	}
	s.windows[identifier] = kept

	current := 0
	for _, e := range kept {
		current += e.cost
	}

	reset := now.Add(s.policy.Window).Unix()

	if current+cost > s.policy.MaxCost {
		// rejected requests leave the window untouched
		return ratelimit.Decision{
			Allowed:      false,
			Limit:        s.policy.MaxCost,
			Remaining:    0,
			ResetUnixSec: reset,
		}, nil
	}

	s.windows[identifier] = append(kept, entry{ts: now, cost: cost})

	return ratelimit.Decision{
		Allowed:      true,
		Limit:        s.policy.MaxCost,
		Remaining:    s.policy.MaxCost - current - cost,
		ResetUnixSec: reset,
	}, nil
}
