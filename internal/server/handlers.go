package server

import (
	"encoding/json"
	"net/http"
)

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "healthy",
		"version": "1.0.0",
		"service": "dividends",
	}

	status := http.StatusOK
	if db := s.container.LookupDB; db != nil {
		if err := db.QuickCheck(r.Context()); err != nil {
			s.log.Warn().Err(err).Msg("Lookup cache database unreachable")
			response["status"] = "degraded"
			response["error"] = err.Error()
			status = http.StatusServiceUnavailable
		}
	}

	s.writeJSON(w, status, response)
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
