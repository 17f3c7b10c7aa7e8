package server

import (
	"net/http"
	"time"
)

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	response := healthResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
	}
	if s.probe != nil {
		stats, err := s.probe.Stats()
		if err != nil {
			s.log.Warn("Failed to collect process stats", "error", err)
		} else {
			response.Process = toProcessStats(stats)
		}
	}
	s.respond(w, http.StatusOK, response)
}
