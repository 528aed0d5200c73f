package api

import (
	"net/http"
	"time"
)

type healthResponse struct {
	Status    string         `json:"status"`
	Timestamp string         `json:"timestamp"`
	Services  healthServices `json:"services"`
}

type healthServices struct {
	Upstream string `json:"upstream"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	upstream := "reachable"
	if err := s.agg.Ping(r.Context()); err != nil {
		upstream = "unreachable"
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  healthServices{Upstream: upstream},
	})
}
