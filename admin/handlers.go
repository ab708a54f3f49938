package admin

import (
	"encoding/json"
	"net/http"

	"github.com/maxpert/shapebench/telemetry"
	"github.com/rs/zerolog/log"
)

// StatusHandlers serves the run status over HTTP
type StatusHandlers struct {
	status *Status
}

// NewStatusHandlers creates a new StatusHandlers instance
func NewStatusHandlers(status *Status) *StatusHandlers {
	return &StatusHandlers{status: status}
}

func (h *StatusHandlers) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, h.status.Snapshot())
}

func (h *StatusHandlers) handleReport(w http.ResponseWriter, r *http.Request) {
	rep := h.status.Report()
	if rep == nil {
		writeErrorResponse(w, http.StatusNotFound, "no report published yet")
		return
	}
	writeJSONResponse(w, rep)
}

func (h *StatusHandlers) handleMetrics(w http.ResponseWriter, r *http.Request) {
	metrics := telemetry.GetMetricsHandler()
	if metrics == nil {
		writeErrorResponse(w, http.StatusNotFound, "metrics are disabled")
		return
	}
	metrics.ServeHTTP(w, r)
}

// writeJSONResponse writes a successful JSON response
func writeJSONResponse(w http.ResponseWriter, data interface{}) {
	response := map[string]interface{}{
		"data": data,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error JSON response
func writeErrorResponse(w http.ResponseWriter, status int, message string) {
	response := map[string]interface{}{
		"error": message,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Error().Err(err).Msg("Failed to encode error response")
	}
}
