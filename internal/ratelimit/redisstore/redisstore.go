// Package redisstore keeps rate-limit windows in Redis so that several
// processes can share one budget per identifier.
package redisstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/istra-watch/watchgate/internal/ratelimit"
)

// One ZSET per identifier: score = admission time (unix seconds), member =
// "<uuid>:<cost>". The whole prune/sum/append step runs as a single script
// so concurrent processes cannot oversell the budget.
const allowScript = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local max_cost = tonumber(ARGV[3])
local cost = tonumber(ARGV[4])
local member = ARGV[5]

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)

local current = 0
for _, m in ipairs(redis.call('ZRANGE', key, 0, -1)) do
  current = current + (tonumber(string.match(m, ':(%d+)$')) or 1)
end

if current + cost > max_cost then
  return {0, 0}
end

redis.call('ZADD', key, now, member)
redis.call('PEXPIRE', key, (window + 1) * 1000)
return {1, max_cost - current - cost}
`

type Store struct {
	rdb    *redis.Client
	policy ratelimit.Policy
	prefix string
	script *redis.Script
}

type Option func(*Store)

func WithKeyPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = strings.Trim(prefix, ":") }
}

func New(rdb *redis.Client, policy ratelimit.Policy, opts ...Option) *Store {
	s := &Store{
		rdb:    rdb,
		policy: policy,
		prefix: "watchgate:ratelimit",
		script: redis.NewScript(allowScript),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Close() error { return s.rdb.Close() }

func (s *Store) Allow(ctx context.Context, identifier string, cost int, now time.Time) (ratelimit.Decision, error) {
	if identifier == "" {
		identifier = "unknown"
	}
	if cost < 1 {
		cost = 1
	}

	key := s.prefix + ":" + identifier
	member := fmt.Sprintf("%s:%d", uuid.NewString(), cost)

	res, err := s.script.Run(ctx, s.rdb, []string{key},
		now.Unix(),
		int(s.policy.Window.Seconds()),
		s.policy.MaxCost,
		cost,
		member,
	).Int64Slice()
	if err != nil {
		return ratelimit.Decision{}, fmt.Errorf("ratelimit script: %w", err)
	}
	if len(res) != 2 {
		return ratelimit.Decision{}, fmt.Errorf("ratelimit script: unexpected reply %v", res)
	}

	return ratelimit.Decision{
		Allowed:      res[0] == 1,
		Limit:        s.policy.MaxCost,
		Remaining:    int(res[1]),
		ResetUnixSec: now.Add(s.policy.Window).Unix(),
	}, nil
}
