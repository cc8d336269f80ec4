package http

import (
	"database/sql"
	"errors"
	"net/http"

	"meifacil/internal/core"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.transactions.List(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var tx core.Transaction
	if err := decodeJSON(r, &tx); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	saved, err := s.transactions.Create(r.Context(), tx)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.invalidateSummary()
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.transactions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "transaction not found")
			return
		}
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.transactions.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.invalidateSummary()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{
		"income":  core.IncomeCategories,
		"expense": core.ExpenseCategories,
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if summary, found := s.summaryCache.Get(summaryCacheKey); found {
		writeJSON(w, http.StatusOK, summary)
		return
	}

	summary, err := s.dashboard.Summary(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.summaryCache.Set(summaryCacheKey, summary)
	writeJSON(w, http.StatusOK, summary)
}
