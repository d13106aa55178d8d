package server

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	response := map[string]interface{}{
		"status":  "healthy",
		"version": Version,
		"service": "tradesignal",
	}
	for name, db := range s.container.Databases() {
		if err := db.QuickCheck(r.Context()); err != nil {
			status = http.StatusServiceUnavailable
			response["status"] = "unhealthy"
			response["error"] = name + ": " + err.Error()
			break
		}
	}

	writeJSON(w, status, response)
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
