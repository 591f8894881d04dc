package httpapi

import (
	"encoding/json"
	"net/http"
	"os"
	"time"
)

// handleHealth reports process uptime computed from the start timestamp
// written by cmd/binary-cache-server into Server.StateFile at launch. If
// the file is missing or unreadable, uptime is reported as zero rather than
// failing the health check outright.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var uptimeSeconds float64

	if s.StateFile != "" {
		if raw, err := os.ReadFile(s.StateFile); err == nil {
			if started, err := time.Parse(time.RFC3339, string(raw)); err == nil {
				uptimeSeconds = time.Since(started).Seconds()
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck // client disconnects are not actionable
		"status":         "ok",
		"uptime_seconds": uptimeSeconds,
	})
}
