package http

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"meifacil/internal/export"
)

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	txs, err := s.transactions.List(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	filename := export.CSVFilename(s.now().UTC())
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	if err := export.WriteTransactionsCSV(w, txs); err != nil {
		// Headers are already out; all we can do is log.
		slog.ErrorContext(r.Context(), "Failed streaming CSV export", "error", err)
	}
}

func (s *Server) handleExportSheets(w http.ResponseWriter, r *http.Request) {
	job, err := s.exports.RequestSheetsExport(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleExportJobStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.exports.JobStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "export job not found")
			return
		}
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}
