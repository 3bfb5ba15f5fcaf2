package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vronchetti/avdecc-lib/internal/config"
	"github.com/vronchetti/avdecc-lib/internal/controller"
	"github.com/vronchetti/avdecc-lib/internal/metrics"
	"github.com/vronchetti/avdecc-lib/internal/model"
)

// HTTPServer provides HTTP status endpoints for monitoring an
// internal/controller.Controller: current entities (each with the count of
// its enumerated descriptors), the loaded configuration, and Prometheus
// metrics.
type HTTPServer struct {
	server  *http.Server
	logger  *slog.Logger
	config  *config.Config
	ctrl    *controller.Controller
	metrics *metrics.Metrics

	startTime time.Time
}

// HTTPServerConfig contains HTTP server configuration
type HTTPServerConfig struct {
	Port    int    `yaml:"port"`
	Address string `yaml:"address"`
	Enabled bool   `yaml:"enabled"`
}

// NewHTTPServer creates a new HTTP status server
func NewHTTPServer(cfg HTTPServerConfig, logger *slog.Logger,
	appConfig *config.Config, ctrl *controller.Controller, m *metrics.Metrics) *HTTPServer {

	h := &HTTPServer{
		logger:    logger,
		config:    appConfig,
		ctrl:      ctrl,
		metrics:   m,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))
	mux.HandleFunc("/entities", h.withMetrics("/entities", h.handleEntities))
	mux.HandleFunc("/entities/", h.withMetrics("/entities/{id}", h.handleEntityDetail))
	mux.HandleFunc("/config", h.withMetrics("/config", h.handleConfig))

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ww := &responseWriter{ResponseWriter: w, statusCode: 200}
		handler(ww, r)

		duration := time.Since(startTime).Seconds()
		statusCode := fmt.Sprintf("%d", ww.statusCode)
		h.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP status server", slog.String("address", h.server.Addr))

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP status server...")
	return h.server.Shutdown(ctx)
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(h.startTime)
	entities := h.ctrl.Entities()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    uptime.String(),
		"service": map[string]interface{}{
			"name":    "avdecc-controller",
			"version": "1.0.0",
		},
		"components": map[string]interface{}{
			"controller": map[string]interface{}{
				"status":           "running",
				"entities_tracked": len(entities),
				"events_missed":    h.ctrl.EventsMissed(),
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// entitySummary is the JSON shape for one tracked entity in the /entities
// and /entities/{id} responses.
type entitySummary struct {
	EntityID           string `json:"entity_id"`
	MAC                string `json:"mac"`
	State              string `json:"state"`
	CurrentConfigIndex uint16 `json:"current_config_index"`
	EnumerationErrors  int    `json:"enumeration_errors"`
	DescriptorCount    int    `json:"descriptor_count"`
}

func toSummary(entityID string, mac string, state string, configIndex uint16, errs int, descCount int) entitySummary {
	return entitySummary{
		EntityID:           entityID,
		MAC:                mac,
		State:              state,
		CurrentConfigIndex: configIndex,
		EnumerationErrors:  errs,
		DescriptorCount:    descCount,
	}
}

// handleEntities implements the /entities endpoint
func (h *HTTPServer) handleEntities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	eps := h.ctrl.Entities()
	out := make([]entitySummary, 0, len(eps))
	for _, ep := range eps {
		out = append(out, toSummary(ep.EntityID.String(), ep.MAC.String(), ep.State.String(),
			ep.CurrentConfigIndex, ep.EnumerationErrors(), ep.Registry.Len()))
	}

	response := map[string]interface{}{
		"total_entities": len(out),
		"timestamp":      time.Now().UTC(),
		"entities":       out,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleEntityDetail implements the /entities/{entity_id} endpoint
func (h *HTTPServer) handleEntityDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	idStr := strings.TrimPrefix(r.URL.Path, "/entities/")
	if idStr == "" {
		http.Error(w, "entity ID required", http.StatusBadRequest)
		return
	}

	raw, err := strconv.ParseUint(idStr, 16, 64)
	if err != nil {
		http.Error(w, "invalid entity ID", http.StatusBadRequest)
		return
	}

	ep, ok := h.ctrl.LookupByEntityID(model.EntityID(raw))
	if !ok {
		http.Error(w, "entity not found", http.StatusNotFound)
		return
	}

	summary := toSummary(ep.EntityID.String(), ep.MAC.String(), ep.State.String(),
		ep.CurrentConfigIndex, ep.EnumerationErrors(), ep.Registry.Len())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

// handleConfig implements the /config endpoint
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sanitizedConfig := map[string]interface{}{
		"interface": map[string]interface{}{
			"mode": h.config.Interface.Mode,
			"name": h.config.Interface.Name,
		},
		"entity": map[string]interface{}{
			"entity_id":       fmt.Sprintf("%016X", h.config.Entity.EntityID),
			"entity_model_id": fmt.Sprintf("%016X", h.config.Entity.EntityModelID),
		},
		"enumeration": map[string]interface{}{
			"max_inflight_read_descriptor": h.config.Enumeration.MaxInflightReadDescriptor,
		},
		"logging": map[string]interface{}{
			"level":  h.config.Logging.Level,
			"format": h.config.Logging.Format,
			"output": h.config.Logging.Output,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sanitizedConfig)
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]interface{}{
		"service": "AVDECC Controller",
		"version": "1.0.0",
		"endpoints": map[string]interface{}{
			"GET /":                   "API documentation",
			"GET /health":             "Controller health check",
			"GET /entities":           "List all tracked entities",
			"GET /entities/{entity_id}": "Get detailed entity information",
			"GET /config":             "Get controller configuration",
			"GET /metrics":            "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(apiDoc)
}
