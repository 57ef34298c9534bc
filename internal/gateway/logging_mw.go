package gateway

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Logging is the innermost stage: one line on entry, one on exit with
// status and elapsed time. Panics are recorded with their elapsed time and
// re-raised for the ErrorHandler.
func Logging(logger zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("ip", clientIP(r)).
				Msg("request")

			rec := &statusRecorder{ResponseWriter: w}

			defer func() {
				if p := recover(); p != nil {
					logger.Error().
						Str("method", r.Method).
						Str("path", r.URL.Path).
						Str("panic_type", fmt.Sprintf("%T", p)).
						Dur("dur", time.Since(start)).
						Msg("request panicked")
					panic(p)
				}
			}()

			next.ServeHTTP(rec, r)

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Dur("dur", time.Since(start)).
				Msg("response")
		})
	}
}
