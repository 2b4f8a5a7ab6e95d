package handlers

import (
	"context"
	"net/http"
	"time"
)

type healthResponse struct {
	Status   string            `json:"status"`
	Instance string            `json:"instance"`
	Checks   map[string]string `json:"checks,omitempty"`
	Clients  int               `json:"stream_clients"`
}

// HealthHandler runs every registered check. Any failure turns the response
// into a 503.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Instance: s.Instance, Checks: map[string]string{}}
	if s.Hub != nil {
		resp.Clients = s.Hub.ClientCount()
	}
	status := http.StatusOK
	for name, check := range s.Checks {
		if err := check(ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	writeJSON(w, status, resp)
}
