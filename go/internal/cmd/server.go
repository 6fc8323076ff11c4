package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mcdev12/hideandseek/go/internal/mapskey"
)

// statusConfig is what a companion UI needs to render the view.
type statusConfig struct {
	APIBaseURL         string        `json:"apiBaseUrl"`
	PollInterval       time.Duration `json:"pollIntervalNs"`
	GracePeriod        time.Duration `json:"gracePeriodNs"`
	GraceHidersOnly    bool          `json:"graceHidersOnly"`
	LocalGeofenceCheck bool          `json:"localGeofenceCheck"`
	LocationSource     string        `json:"locationSource"`
	MapsKeyState       mapskey.State `json:"mapsKeyState"`
	MapsKey            string        `json:"mapsKey,omitempty"`
	EventSubjectPrefix string        `json:"eventSubjectPrefix"`
	JournalEnabled     bool          `json:"journalEnabled"`
}

func setupServer(services *Services) *http.Server {
	mux := http.NewServeMux()

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	setupHealthCheck(mux)
	setupStateHandler(mux, services)
	setupConfigHandler(mux, services)

	handler := c.Handler(mux)

	return &http.Server{
		Addr:              services.Config.StatusAddr,
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func setupHealthCheck(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}

func setupStateHandler(mux *http.ServeMux, services *Services) {
	mux.HandleFunc("GET /state", func(w http.ResponseWriter, r *http.Request) {
		current := services.Router.Current()
		if current == nil {
			http.Error(w, "no view mounted", http.StatusNotFound)
			return
		}
		writeJSON(w, current.View())
	})
}

func setupConfigHandler(mux *http.ServeMux, services *Services) {
	mux.HandleFunc("GET /config", func(w http.ResponseWriter, r *http.Request) {
		cfg := services.Config
		keys := mapskey.Default()
		out := statusConfig{
			APIBaseURL:         cfg.APIBaseURL,
			PollInterval:       cfg.PollInterval.Std(),
			GracePeriod:        cfg.GracePeriod.Std(),
			GraceHidersOnly:    cfg.GraceHidersOnly,
			LocalGeofenceCheck: cfg.LocalGeofenceCheck,
			LocationSource:     cfg.Location.Source,
			MapsKeyState:       keys.State(),
			EventSubjectPrefix: cfg.EventSubjectPrefix,
			JournalEnabled:     services.db != nil,
		}
		if key, ok := keys.Key(); ok {
			out.MapsKey = key
		}
		writeJSON(w, out)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write status response")
	}
}
