package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/istra-watch/watchgate/internal/apperr"
)

func serve(h http.Handler, path string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, path, nil)
	r.RemoteAddr = "192.0.2.10:1234"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) (errText, msg string) {
	t.Helper()
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return body.Error, body.Message
}

func TestErrorHandler_ValidationErrorTo400(t *testing.T) {
	h := ErrorHandler(zerolog.Nop())(Wrap(func(http.ResponseWriter, *http.Request) error {
		return apperr.Validationf("latitude and longitude are required")
	}))

	w := serve(h, "/api/records")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	errText, msg := decodeError(t, w)
	if errText != "Validation error" {
		t.Fatalf("error = %q", errText)
	}
	if msg != "latitude and longitude are required" {
		t.Fatalf("message = %q", msg)
	}
}

func TestErrorHandler_GenericErrorIsOpaque(t *testing.T) {
	h := ErrorHandler(zerolog.Nop())(Wrap(func(http.ResponseWriter, *http.Request) error {
		return errors.New(`pq: relation "records" does not exist`)
	}))

	w := serve(h, "/api/records")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	errText, msg := decodeError(t, w)
	if errText != "Internal server error" {
		t.Fatalf("error = %q", errText)
	}
	if msg == "" || strings.Contains(w.Body.String(), "relation") {
		t.Fatalf("internal detail leaked: %q", w.Body.String())
	}
}

func TestErrorHandler_PanicTo500(t *testing.T) {
	h := ErrorHandler(zerolog.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := serve(h, "/api/records")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if strings.Contains(w.Body.String(), "boom") {
		t.Fatalf("panic value leaked: %q", w.Body.String())
	}
}

func TestErrorHandler_WrittenResponsePassesThrough(t *testing.T) {
	h := ErrorHandler(zerolog.Nop())(Wrap(func(w http.ResponseWriter, _ *http.Request) error {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":1}`))
		return errors.New("post-write failure")
	}))

	w := serve(h, "/api/records")
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want the already-written 201", w.Code)
	}
	if w.Body.String() != `{"id":1}` {
		t.Fatalf("body = %q, want untouched", w.Body.String())
	}
}

func TestErrorHandler_SuccessUntouched(t *testing.T) {
	h := ErrorHandler(zerolog.Nop())(okHandler())

	w := serve(h, "/api/records")
	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("status = %d body = %q", w.Code, w.Body.String())
	}
}

func TestLogging_RepanicsForOuterStages(t *testing.T) {
	h := Chain(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }),
		ErrorHandler(zerolog.Nop()),
		Logging(zerolog.Nop()),
	)

	// the logging stage must re-raise so the error handler can answer
	w := serve(h, "/api/records")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
}

func TestWrap_WithoutErrorHandlerStaysOpaque(t *testing.T) {
	h := Wrap(func(http.ResponseWriter, *http.Request) error {
		return errors.New("secret detail")
	})

	w := serve(h, "/api/records")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if strings.Contains(w.Body.String(), "secret detail") {
		t.Fatalf("detail leaked: %q", w.Body.String())
	}
}
