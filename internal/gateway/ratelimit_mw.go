package gateway

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/istra-watch/watchgate/internal/ratelimit"
)

type RateLimitOptions struct {
	Store  ratelimit.Store
	Costs  *ratelimit.CostTable
	Logger zerolog.Logger

	// Disabled turns limiting off globally (load testing only).
	Disabled bool
	// Allowlist holds identifiers exempt from limiting.
	Allowlist map[string]struct{}

	// hooks for metrics; either may be nil
	OnLimited func(path string)
	OnError   func(path string)
}

// RateLimit charges each API request its endpoint cost against the
// client's window. Bypassed requests (kill-switch or allowlist) run the
// inner chain without touching window state and are tagged with a marker
// header.
func RateLimit(opts RateLimitOptions) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, APIPrefix) {
				next.ServeHTTP(w, r)
				return
			}

			ip := clientIP(r)

			if opts.Disabled || contains(opts.Allowlist, ip) {
				w.Header().Set("X-RateLimit-Bypass", "true")
				next.ServeHTTP(w, r)
				return
			}

			cost := opts.Costs.Lookup(r.URL.Path)
			now := time.Now()

			dec, err := opts.Store.Allow(r.Context(), ip, cost, now)
			if err != nil {
				if opts.OnError != nil {
					opts.OnError(r.URL.Path)
				}
				opts.Logger.Error().Err(err).Str("ip", ip).Str("path", r.URL.Path).
					Msg("rate limiter failure")
				writeError(w, http.StatusInternalServerError, "Internal server error",
					"An unexpected error occurred. Please try again later.")
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(dec.Limit))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(dec.ResetUnixSec, 10))

			if !dec.Allowed {
				if opts.OnLimited != nil {
					opts.OnLimited(r.URL.Path)
				}
				opts.Logger.Warn().
					Str("ip", ip).
					Str("path", r.URL.Path).
					Int("cost", cost).
					Msg("rate limit exceeded")
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("Retry-After", strconv.FormatInt(dec.ResetUnixSec-now.Unix(), 10))
				writeError(w, http.StatusTooManyRequests, "Rate limit exceeded",
					"Too many requests. Please try again later.")
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(dec.Remaining))
			next.ServeHTTP(w, r)
		})
	}
}

func contains(set map[string]struct{}, k string) bool {
	_, ok := set[k]
	return ok
}

// clientIP resolves the rate-limiting identifier: trusted proxy header
// first, then the first forwarded hop, then the transport address.
func clientIP(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get("X-Real-IP")); v != "" {
		return v
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}
	if host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr)); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
