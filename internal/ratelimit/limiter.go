package ratelimit

import (
	"context"
	"time"
)

type Policy struct {
	MaxCost int           // cost units per window
	Window  time.Duration // sliding window size
}

// DefaultPolicy is the weighted budget used for the API surface.
func DefaultPolicy() Policy {
	return Policy{MaxCost: 200, Window: 60 * time.Second}
}

// UnweightedPolicy is the simpler variant where every request costs 1.
func UnweightedPolicy() Policy {
	return Policy{MaxCost: 100, Window: 60 * time.Second}
}

type Decision struct {
	Allowed      bool
	Limit        int   // configured max cost
	Remaining    int   // budget left after this request (0 on reject)
	ResetUnixSec int64 // end of the current window
}

// Store admits or rejects a weighted request for an identifier within a
// sliding window. Rejection is a normal decision, not an error; errors are
// reserved for backend failures (e.g. an unreachable shared store).
//
// Prune, sum and append must be atomic per call.
type Store interface {
	Allow(ctx context.Context, identifier string, cost int, now time.Time) (Decision, error)
	Close() error
}
