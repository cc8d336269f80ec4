package http

import (
	"net/http"

	"meifacil/internal/core"
	"meifacil/internal/report"
)

// runReportRequest optionally overrides the session's default filters.
type runReportRequest struct {
	Filters *core.ReportFilters `json:"filters"`
}

// runReportResponse is the full report screen state in one payload.
type runReportResponse struct {
	Filters      core.ReportFilters       `json:"filters"`
	Transactions []core.Transaction       `json:"transactions"`
	Summary      report.Summary           `json:"summary"`
	Configs      []core.SavedReportConfig `json:"configs"`
}

func (s *Server) handleRunReport(w http.ResponseWriter, r *http.Request) {
	var req runReportRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	sess := report.NewSession(s.repo, s.repo, s.entitlements.HasProAccess())
	if err := sess.Load(r.Context()); err != nil {
		writeDomainError(w, r, err)
		return
	}
	if req.Filters != nil {
		sess.ApplyFilters(*req.Filters)
	}

	resp := runReportResponse{
		Filters:      sess.Filters(),
		Transactions: sess.Filtered(),
		Summary:      sess.Summary(),
		Configs:      sess.Configs(),
	}
	if resp.Transactions == nil {
		resp.Transactions = []core.Transaction{}
	}
	if resp.Configs == nil {
		resp.Configs = []core.SavedReportConfig{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListReportConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.repo.ListConfigs(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if configs == nil {
		configs = []core.SavedReportConfig{}
	}
	writeJSON(w, http.StatusOK, configs)
}

func (s *Server) handleCreateReportConfig(w http.ResponseWriter, r *http.Request) {
	var cfg core.SavedReportConfig
	if err := decodeJSON(r, &cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	// POST always creates; the store assigns the ID.
	cfg.ID = ""
	saved, _, err := s.repo.UpsertConfig(r.Context(), cfg)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleUpdateReportConfig(w http.ResponseWriter, r *http.Request) {
	var cfg core.SavedReportConfig
	if err := decodeJSON(r, &cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	cfg.ID = r.PathValue("id")
	saved, _, err := s.repo.UpsertConfig(r.Context(), cfg)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDeleteReportConfig(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.DeleteConfig(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
