// Package gateway is the admission layer in front of the API: an ordered
// middleware chain doing error normalization, rate limiting, authentication
// and request logging around the route handlers.
package gateway

import (
	"encoding/json"
	"net/http"
)

// APIPrefix marks the routes subject to rate limiting and authentication.
// Everything else (health, metrics, static) only gets error handling and
// logging.
const APIPrefix = "/api/"

type Middleware func(http.Handler) http.Handler

// Chain wraps h so that the first middleware is outermost.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Handler is a route handler that reports failures as values instead of
// writing error responses itself. ErrorHandler turns the returned error
// into the client-facing response.
type Handler func(http.ResponseWriter, *http.Request) error

// Wrap adapts a Handler for the mux. The returned error is handed to the
// enclosing ErrorHandler via the request context.
func Wrap(h Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := h(w, r)
		if err == nil {
			return
		}
		if box, ok := r.Context().Value(keyErrBox).(*errBox); ok {
			box.err = err
			return
		}
		// no ErrorHandler installed; fail opaque
		writeError(w, http.StatusInternalServerError, "Internal server error",
			"An unexpected error occurred. Please try again later.")
	})
}

type ctxKey int

const keyErrBox ctxKey = 0

type errBox struct {
	err error
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeError(w http.ResponseWriter, code int, errText, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(errorBody{Error: errText, Message: msg})
}

// statusRecorder remembers what the inner chain wrote so outer stages can
// log it and tell "already handled" responses from silent failures.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusRecorder) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}
