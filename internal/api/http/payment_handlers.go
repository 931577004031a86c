package httpapi

import (
	"net/http"
)

func (s *Server) createPaymentHold(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	if auth.BrandID == nil {
		respondError(w, http.StatusForbidden, "FORBIDDEN", "no brand scope")
		return
	}
	contractID, err := parseUUIDParam(r, "contractId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid contract id")
		return
	}
	result, err := s.paymentSvc.CreateHold(r.Context(), contractID, *auth.BrandID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"intent":       result.Intent,
		"clientSecret": result.ClientSecret,
	})
}

func (s *Server) capturePayment(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	if auth.BrandID == nil {
		respondError(w, http.StatusForbidden, "FORBIDDEN", "no brand scope")
		return
	}
	contractID, err := parseUUIDParam(r, "contractId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid contract id")
		return
	}
	intent, err := s.paymentSvc.Capture(r.Context(), contractID, *auth.BrandID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, intent)
}

func (s *Server) releasePayment(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	if auth.BrandID == nil {
		respondError(w, http.StatusForbidden, "FORBIDDEN", "no brand scope")
		return
	}
	contractID, err := parseUUIDParam(r, "contractId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid contract id")
		return
	}
	intent, err := s.paymentSvc.Release(r.Context(), contractID, *auth.BrandID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, intent)
}

func (s *Server) getContractPayment(w http.ResponseWriter, r *http.Request) {
	contractID, err := parseUUIDParam(r, "contractId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid contract id")
		return
	}
	intent, err := s.paymentSvc.GetByContract(r.Context(), contractID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, intent)
}

func (s *Server) listLedger(w http.ResponseWriter, r *http.Request) {
	contractID, err := parseUUIDParam(r, "contractId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid contract id")
		return
	}
	entries, err := s.paymentSvc.Ledger(r.Context(), contractID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

func (s *Server) listPayouts(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	creatorID, err := s.engagementSvc.CreatorIDForUser(r.Context(), auth.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	payouts, err := s.paymentSvc.Payouts(r.Context(), creatorID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"payouts": payouts})
}
