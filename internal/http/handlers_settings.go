package http

import (
	"net/http"
	"time"

	"meifacil/internal/storage"
	"meifacil/internal/tax"
)

// dasSettingsResponse pairs the stored payment flag with the computed
// obligation status for the current month.
type dasSettingsResponse struct {
	DASPaidThisMonth bool         `json:"das_paid_this_month"`
	UpdatedAt        time.Time    `json:"updated_at"`
	DAS              tax.DASInfo  `json:"das"`
	DASN             tax.DASNInfo `json:"dasn"`
}

type dasSettingsRequest struct {
	Paid bool `json:"paid"`
}

func (s *Server) dasResponse(settings storage.MeiSettings, now time.Time) dasSettingsResponse {
	return dasSettingsResponse{
		DASPaidThisMonth: settings.DASPaidThisMonth,
		UpdatedAt:        settings.UpdatedAt,
		DAS:              tax.DASForMonth(now, settings.DASPaidThisMonth),
		DASN:             tax.DASNForToday(now),
	}
}

func (s *Server) handleGetDASSettings(w http.ResponseWriter, r *http.Request) {
	now := s.now().UTC()
	settings, err := s.repo.GetMeiSettings(r.Context(), s.settingsID, now)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.dasResponse(settings, now))
}

func (s *Server) handleSetDASSettings(w http.ResponseWriter, r *http.Request) {
	var req dasSettingsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	now := s.now().UTC()
	if err := s.repo.SetDASPaid(r.Context(), s.settingsID, req.Paid, now); err != nil {
		writeDomainError(w, r, err)
		return
	}

	settings, err := s.repo.GetMeiSettings(r.Context(), s.settingsID, now)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.invalidateSummary()
	writeJSON(w, http.StatusOK, s.dasResponse(settings, now))
}

func (s *Server) handleGetCompanyProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.repo.GetCompanyProfile(r.Context(), s.profileID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if profile == nil {
		writeError(w, http.StatusNotFound, "company profile not set")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handlePutCompanyProfile(w http.ResponseWriter, r *http.Request) {
	var profile storage.CompanyProfile
	if err := decodeJSON(r, &profile); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	profile.ID = s.profileID
	saved, err := s.repo.UpsertCompanyProfile(r.Context(), profile)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}
