package server

import (
	"net/http"

	"dotsocr/internal/api"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(s, w, r, http.MethodGet) {
		return
	}
	payload := api.HealthResponse{
		Status:       "healthy",
		Service:      api.ServiceName,
		Version:      api.Version,
		ParserConfig: api.FromParserSettings(s.settings),
		Index:        s.index,
		Jobs:         api.FromJobStats(s.jobs.Stats()),
	}
	if s.deps != nil {
		payload.Dependencies = s.deps(r.Context())
	}
	// Optional dependencies never degrade the status.
	for _, dep := range payload.Dependencies {
		if !dep.Available && !dep.Optional {
			payload.Status = "degraded"
			break
		}
	}
	if payload.Jobs.Stopped {
		payload.Status = "stopping"
	}
	s.writeJSON(w, r, http.StatusOK, payload)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(s, w, r, http.MethodGet) {
		return
	}
	s.writeJSON(w, r, http.StatusOK, api.ServiceInfo{
		Message: "DotsOCR API Service",
		Version: api.Version,
		Docs:    "/docs",
		Health:  "/health",
	})
}
