// Package api holds the thin route handlers behind the admission layer.
// The real business surface (records, reports, employees) lives elsewhere;
// these endpoints are the ones the admission layer itself depends on.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/istra-watch/watchgate/internal/apperr"
	"github.com/istra-watch/watchgate/internal/auth"
	"github.com/istra-watch/watchgate/internal/gateway"
)

type ClientConfig struct {
	MapProvider     string `json:"map_provider"`
	MaxPhotoSizeMB  int    `json:"max_photo_size_mb"`
	RefreshInterval int    `json:"refresh_interval_sec"`
}

// Register wires the API endpoints onto the mux.
func Register(mux *http.ServeMux, clientCfg ClientConfig) {
	mux.Handle("/api/config", gateway.Wrap(configHandler(clientCfg)))
	mux.Handle("/api/user/today-status", gateway.Wrap(todayStatus))
	mux.Handle("/api/records", gateway.Wrap(createRecord))
}

// configHandler is public: the mini app fetches it before authenticating.
func configHandler(cfg ClientConfig) gateway.Handler {
	return func(w http.ResponseWriter, _ *http.Request) error {
		return writeJSON(w, http.StatusOK, cfg)
	}
}

func todayStatus(w http.ResponseWriter, r *http.Request) error {
	fields, ok := auth.FieldsFrom(r.Context())
	if !ok {
		return apperr.Validationf("authenticated user required")
	}
	return writeJSON(w, http.StatusOK, map[string]any{
		"user":       fields.User(),
		"checked_in": false,
	})
}

func createRecord(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return nil
	}

	var rec struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		return apperr.Validationf("invalid JSON body")
	}
	if rec.Latitude == nil || rec.Longitude == nil {
		return apperr.Validationf("latitude and longitude are required")
	}

	return writeJSON(w, http.StatusCreated, map[string]string{"status": "recorded"})
}

func writeJSON(w http.ResponseWriter, code int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}
