package httpapi

import (
	"net/http"
	"time"

	appCampaign "github.com/collabify/collabify/internal/application/campaign"
	"github.com/collabify/collabify/internal/domain/campaign"
)

type campaignRequest struct {
	Title          string              `json:"title"`
	Description    string              `json:"description"`
	BudgetMinCents *int64              `json:"budgetMinCents"`
	BudgetMaxCents *int64              `json:"budgetMaxCents"`
	Deadline       *time.Time          `json:"deadline"`
	Targeting      *campaign.Targeting `json:"targeting"`
}

func (s *Server) createCampaign(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	if auth.BrandID == nil {
		respondError(w, http.StatusForbidden, "FORBIDDEN", "no brand scope")
		return
	}
	var req campaignRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid request body")
		return
	}
	c, err := s.campaignSvc.Create(r.Context(), appCampaign.CreateInput{
		BrandID:        *auth.BrandID,
		Title:          req.Title,
		Description:    req.Description,
		BudgetMinCents: req.BudgetMinCents,
		BudgetMaxCents: req.BudgetMaxCents,
		Deadline:       req.Deadline,
		Targeting:      req.Targeting,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

type campaignUpdateRequest struct {
	Title          *string             `json:"title"`
	Description    *string             `json:"description"`
	BudgetMinCents *int64              `json:"budgetMinCents"`
	BudgetMaxCents *int64              `json:"budgetMaxCents"`
	Deadline       *time.Time          `json:"deadline"`
	Targeting      *campaign.Targeting `json:"targeting"`
}

func (s *Server) updateCampaign(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	if auth.BrandID == nil {
		respondError(w, http.StatusForbidden, "FORBIDDEN", "no brand scope")
		return
	}
	campaignID, err := parseUUIDParam(r, "campaignId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid campaign id")
		return
	}
	var req campaignUpdateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid request body")
		return
	}
	c, err := s.campaignSvc.Update(r.Context(), campaignID, *auth.BrandID, appCampaign.UpdateInput{
		Title:          req.Title,
		Description:    req.Description,
		BudgetMinCents: req.BudgetMinCents,
		BudgetMaxCents: req.BudgetMaxCents,
		Deadline:       req.Deadline,
		Targeting:      req.Targeting,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (s *Server) updateCampaignStatus(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	if auth.BrandID == nil {
		respondError(w, http.StatusForbidden, "FORBIDDEN", "no brand scope")
		return
	}
	campaignID, err := parseUUIDParam(r, "campaignId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid campaign id")
		return
	}
	var req statusRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid request body")
		return
	}
	c, err := s.campaignSvc.UpdateStatus(r.Context(), campaignID, *auth.BrandID, campaign.Status(req.Status))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (s *Server) getCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID, err := parseUUIDParam(r, "campaignId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid campaign id")
		return
	}
	c, err := s.campaignSvc.Get(r.Context(), campaignID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (s *Server) listCampaigns(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	limit, offset := parseLimitOffset(r, 20, 100)

	filter := campaign.Filter{}
	if auth.BrandID != nil {
		filter.BrandID = auth.BrandID
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status := campaign.Status(v)
		filter.Status = &status
	}
	result, err := s.campaignSvc.List(r.Context(), filter, limit, offset)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"campaigns": result.Campaigns,
		"total":     result.Total,
	})
}

func (s *Server) discoverCampaigns(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	limit, offset := parseLimitOffset(r, 20, 100)
	campaigns, err := s.campaignSvc.DiscoverForUser(r.Context(), auth.UserID, limit, offset)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"campaigns": campaigns})
}
