package gateway

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/istra-watch/watchgate/internal/auth"
)

// tokenPrefix is the marker in front of raw init data:
// "Authorization: tma <initDataRaw>".
const tokenPrefix = "tma "

type AuthOptions struct {
	Validator *auth.Validator
	Logger    zerolog.Logger

	// PublicPaths are API endpoints served without authentication
	// (exact match).
	PublicPaths map[string]struct{}

	// hook for metrics; may be nil
	OnFailure func(reason string)
}

// Auth validates the init data on API requests and attaches the decoded
// fields to the context. Every failure cause maps to the same 401 body;
// the concrete reason is only logged.
func Auth(opts AuthOptions) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, APIPrefix) {
				next.ServeHTTP(w, r)
				return
			}
			if contains(opts.PublicPaths, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, tokenPrefix) {
				if opts.OnFailure != nil {
					opts.OnFailure("missing_header")
				}
				opts.Logger.Warn().
					Str("path", r.URL.Path).
					Str("ip", clientIP(r)).
					Msg("missing or malformed Authorization header")
				writeError(w, http.StatusUnauthorized, "Authorization required", "")
				return
			}

			fields, err := opts.Validator.Validate(header[len(tokenPrefix):])
			if err != nil {
				if opts.OnFailure != nil {
					opts.OnFailure("invalid_init_data")
				}
				opts.Logger.Warn().
					Err(err).
					Str("path", r.URL.Path).
					Str("ip", clientIP(r)).
					Msg("init data rejected")
				writeError(w, http.StatusUnauthorized, "Invalid or expired authentication data", "")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithFields(r.Context(), fields)))
		})
	}
}
