package api

import (
	"net/http"
	"time"
)

// HealthResponse is the response for GET /health
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
	Leads   int    `json:"leads"`
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "ok",
		Version: s.version,
		Uptime:  time.Since(s.startTime).Round(time.Second).String(),
	}

	n, err := s.store.Leads().Count(r.Context())
	if err != nil {
		s.logger.Error("health check failed", "error", err)
		resp.Status = "degraded"
		s.sendJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	resp.Leads = n

	s.sendJSON(w, http.StatusOK, resp)
}

// handleClearAll handles POST /api/clear-all
func (s *Server) handleClearAll(w http.ResponseWriter, r *http.Request) {
	if err := s.store.ClearAll(r.Context()); err != nil {
		s.sendError(w, r, err)
		return
	}
	s.logger.Warn("all data cleared", "remote_addr", r.RemoteAddr)
	s.sendJSON(w, http.StatusOK, OKResponse{Success: true, Message: "All data cleared"})
}
