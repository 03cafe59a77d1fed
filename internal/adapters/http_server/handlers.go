package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"app_reviews/internal/app"
)

type Handlers struct{ Report *app.Report }

type reportBody struct {
	RunID  string              `json:"run_id"`
	Kind   string              `json:"kind"`
	Counts map[app.Outcome]int `json:"counts"`
	Units  []app.UnitReport    `json:"units"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/report", h.getReport)
}

func (h *Handlers) getReport(w http.ResponseWriter, r *http.Request) {
	body := reportBody{
		RunID:  h.Report.RunID,
		Kind:   h.Report.Kind,
		Counts: h.Report.Counts(),
		Units:  h.Report.Units(),
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to write report body")
	}
}
