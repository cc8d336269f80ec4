package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"meifacil/internal/core"
	"meifacil/internal/plan"
	"meifacil/internal/report"
)

// errorResponse is the JSON body for every non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response body", "error", err)
	}
}

// writeError writes a JSON error body with the given status.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeDomainError maps domain errors onto HTTP statuses. Unrecognized
// errors become opaque 500s so storage details never leak to clients.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyDescription),
		errors.Is(err, core.ErrInvalidType),
		errors.Is(err, core.ErrMissingReportName),
		errors.Is(err, core.ErrMissingSelectedFields),
		errors.Is(err, core.ErrMissingVisualization):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, plan.ErrTransactionLimit):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, plan.ErrProRequired), errors.Is(err, report.ErrProRequired):
		writeError(w, http.StatusForbidden, err.Error())
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON parses the request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
