package gateway

import (
	"context"
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"

	"github.com/istra-watch/watchgate/internal/apperr"
)

// ErrorHandler is the outermost stage and the single place where failures
// become responses. Validation errors surface as 400 with their message;
// responses the inner chain already wrote pass through unchanged; panics
// and every other error become an opaque 500. Full detail is logged
// server-side only.
func ErrorHandler(logger zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			box := &errBox{}
			ctx := context.WithValue(r.Context(), keyErrBox, box)
			rec := &statusRecorder{ResponseWriter: w}

			defer func() {
				if p := recover(); p != nil {
					logger.Error().
						Interface("panic", p).
						Str("method", r.Method).
						Str("path", r.URL.Path).
						Bytes("stack", debug.Stack()).
						Msg("panic while handling request")
					if rec.status == 0 {
						writeError(rec, http.StatusInternalServerError,
							"Internal server error",
							"An unexpected error occurred. Please try again later.")
					}
				}
			}()

			next.ServeHTTP(rec, r.WithContext(ctx))

			if box.err == nil {
				return
			}

			if rec.status != 0 {
				// inner chain already answered; keep the response, keep the detail
				logger.Error().
					Err(box.err).
					Int("status", rec.status).
					Str("path", r.URL.Path).
					Msg("handler error after response was written")
				return
			}

			if verr, ok := apperr.AsValidation(box.err); ok {
				logger.Warn().
					Str("path", r.URL.Path).
					Str("reason", verr.Msg).
					Msg("validation error")
				writeError(rec, http.StatusBadRequest, "Validation error", verr.Msg)
				return
			}

			logger.Error().
				Err(box.err).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Msg("unhandled error")
			writeError(rec, http.StatusInternalServerError, "Internal server error",
				"An unexpected error occurred. Please try again later.")
		})
	}
}
