// Package server provides the local HTTP API used by the settings UI and
// the calibration overlay.
package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/netra/internal/app"
	"github.com/ayusman/netra/internal/fusion"
	"github.com/ayusman/netra/internal/gaze"
	"github.com/ayusman/netra/internal/server/api"
	"github.com/ayusman/netra/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	App       *app.App
}

// Server is the HTTP server for the Netra application.
type Server struct {
	config Config
	mux    *http.ServeMux
	events *EventsHandler
	start  time.Time
}

// New creates a Server with the given configuration and wires the pipeline
// hooks that feed the event stream.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		events: NewEventsHandler(),
		start:  time.Now(),
	}
	s.setupRoutes()
	s.hookPipeline()
	return s
}

// Events returns the websocket event hub, for wiring additional observers.
func (s *Server) Events() *EventsHandler {
	return s.events
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/api/enabled", s.handleEnabled)
	s.mux.HandleFunc("/api/plugins", s.handlePlugins)
	s.mux.Handle("/api/events", s.events)

	if s.config.Store != nil {
		profilesHandler := api.NewProfilesHandler(s.config.Store)
		samplesHandler := api.NewSamplesHandler(s.config.Store)
		actionsHandler := api.NewActionsHandler(s.config.Store)

		if s.config.App != nil {
			a := s.config.App
			profilesHandler.OnChange = func() {
				// Reload errors surface in the app's own logging
				_ = a.LoadProfiles()
			}
		}

		profileRouter := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.URL.Path, "/samples") {
				samplesHandler.ServeHTTP(w, r)
				return
			}
			profilesHandler.ServeHTTP(w, r)
		})

		s.mux.Handle("/api/profiles", profileRouter)
		s.mux.Handle("/api/profiles/", profileRouter)
		s.mux.Handle("/api/actions", actionsHandler)
		s.mux.Handle("/api/actions/", actionsHandler)
	}

	if s.config.App != nil {
		calibrationHandler := api.NewCalibrationHandler(s.config.App.Calibration())
		s.mux.Handle("/api/calibration/", calibrationHandler)

		streamHandler := NewStreamHandler(s.config.App.Camera())
		s.mux.Handle("/api/stream", streamHandler)
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// hookPipeline chains the event hub onto the app's pipeline callbacks,
// preserving any hooks already installed.
func (s *Server) hookPipeline() {
	if s.config.App == nil {
		return
	}

	a := s.config.App
	prevGaze := a.OnGaze
	a.OnGaze = func(st gaze.State) {
		if prevGaze != nil {
			prevGaze(st)
		}
		s.events.PublishGaze(st)
	}

	prevAction := a.OnAction
	a.OnAction = func(ev *fusion.ActionEvent) {
		if prevAction != nil {
			prevAction(ev)
		}
		s.events.PublishAction(ev)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}

	if s.config.App != nil {
		stats := s.config.App.Governor().Stats()
		profile := s.config.App.Governor().Profile()
		response["enabled"] = s.config.App.IsEnabled()
		response["tier"] = profile.Tier
		response["fps"] = stats.FPS
		response["avg_latency_ms"] = float64(stats.AvgLatency) / float64(time.Millisecond)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// handleEnabled handles GET and POST /api/enabled: reading and toggling
// input processing.
func (s *Server) handleEnabled(w http.ResponseWriter, r *http.Request) {
	if s.config.App == nil {
		http.Error(w, "Not available", http.StatusServiceUnavailable)
		return
	}

	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		var req struct {
			Enabled bool `json:"enabled"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		s.config.App.SetEnabled(req.Enabled)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"enabled": s.config.App.IsEnabled()})
}

// handlePlugins handles GET /api/plugins and lists discovered plugins.
func (s *Server) handlePlugins(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.config.App == nil {
		http.Error(w, "Not available", http.StatusServiceUnavailable)
		return
	}

	plugins := s.config.App.PluginManager().List()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"plugins": plugins})
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
