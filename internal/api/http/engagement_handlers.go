package httpapi

import (
	"net/http"
	"time"

	appEngagement "github.com/collabify/collabify/internal/application/engagement"
	"github.com/collabify/collabify/internal/domain/engagement"
)

type applyRequest struct {
	CampaignID    string `json:"campaignId"`
	CoverLetter   string `json:"coverLetter"`
	PriceInCents  int64  `json:"priceInCents"`
	EstimatedDays int    `json:"estimatedDays"`
}

func (s *Server) apply(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	var req applyRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid request body")
		return
	}
	campaignID, err := parseUUID(req.CampaignID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid campaign id")
		return
	}
	creatorID, err := s.engagementSvc.CreatorIDForUser(r.Context(), auth.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	a, err := s.engagementSvc.Apply(r.Context(), appEngagement.ApplyInput{
		CampaignID:    campaignID,
		CreatorID:     creatorID,
		CoverLetter:   req.CoverLetter,
		PriceInCents:  req.PriceInCents,
		EstimatedDays: req.EstimatedDays,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, a)
}

func (s *Server) getApplication(w http.ResponseWriter, r *http.Request) {
	applicationID, err := parseUUIDParam(r, "applicationId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid application id")
		return
	}
	a, err := s.engagementSvc.GetApplication(r.Context(), applicationID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

func (s *Server) updateApplicationStatus(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	if auth.BrandID == nil {
		respondError(w, http.StatusForbidden, "FORBIDDEN", "no brand scope")
		return
	}
	applicationID, err := parseUUIDParam(r, "applicationId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid application id")
		return
	}
	var req statusRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid request body")
		return
	}
	a, err := s.engagementSvc.UpdateApplicationStatus(r.Context(), applicationID, *auth.BrandID, engagement.ApplicationStatus(req.Status))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

func (s *Server) withdrawApplication(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	applicationID, err := parseUUIDParam(r, "applicationId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid application id")
		return
	}
	creatorID, err := s.engagementSvc.CreatorIDForUser(r.Context(), auth.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	a, err := s.engagementSvc.Withdraw(r.Context(), applicationID, creatorID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

// listApplications lists the caller's applications. Creators see their own;
// brand users must scope by campaign through listCampaignApplications.
func (s *Server) listApplications(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	limit, offset := parseLimitOffset(r, 20, 100)

	filter := engagement.ApplicationFilter{}
	if v := r.URL.Query().Get("status"); v != "" {
		status := engagement.ApplicationStatus(v)
		filter.Status = &status
	}
	if auth.BrandID == nil {
		creatorID, err := s.engagementSvc.CreatorIDForUser(r.Context(), auth.UserID)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		filter.CreatorID = &creatorID
	} else {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "brand users list applications per campaign")
		return
	}

	result, err := s.engagementSvc.ListApplications(r.Context(), filter, limit, offset)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"applications": result.Applications,
		"total":        result.Total,
	})
}

func (s *Server) listCampaignApplications(w http.ResponseWriter, r *http.Request) {
	campaignID, err := parseUUIDParam(r, "campaignId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid campaign id")
		return
	}
	limit, offset := parseLimitOffset(r, 20, 100)

	filter := engagement.ApplicationFilter{CampaignID: &campaignID}
	if v := r.URL.Query().Get("status"); v != "" {
		status := engagement.ApplicationStatus(v)
		filter.Status = &status
	}
	result, err := s.engagementSvc.ListApplications(r.Context(), filter, limit, offset)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"applications": result.Applications,
		"total":        result.Total,
	})
}

type offerRequest struct {
	PriceInCents int64      `json:"priceInCents"`
	Message      *string    `json:"message"`
	Deliverables []string   `json:"deliverables"`
	Deadline     *time.Time `json:"deadline"`
}

func (s *Server) createOffer(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	if auth.BrandID == nil {
		respondError(w, http.StatusForbidden, "FORBIDDEN", "no brand scope")
		return
	}
	applicationID, err := parseUUIDParam(r, "applicationId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid application id")
		return
	}
	var req offerRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid request body")
		return
	}
	o, err := s.engagementSvc.CreateOffer(r.Context(), appEngagement.OfferInput{
		ApplicationID: applicationID,
		BrandID:       *auth.BrandID,
		PriceInCents:  req.PriceInCents,
		Message:       req.Message,
		Deliverables:  req.Deliverables,
		Deadline:      req.Deadline,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, o)
}

func (s *Server) getOffer(w http.ResponseWriter, r *http.Request) {
	offerID, err := parseUUIDParam(r, "offerId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid offer id")
		return
	}
	o, err := s.engagementSvc.GetOffer(r.Context(), offerID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (s *Server) listOffers(w http.ResponseWriter, r *http.Request) {
	applicationID, err := parseUUIDParam(r, "applicationId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid application id")
		return
	}
	offers, err := s.engagementSvc.ListOffers(r.Context(), applicationID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"offers": offers})
}

type respondRequest struct {
	Action  string        `json:"action"` // accept, reject or counter
	Counter *counterTerms `json:"counter"`
}

type counterTerms struct {
	PriceInCents int64      `json:"priceInCents"`
	Message      *string    `json:"message"`
	Deliverables []string   `json:"deliverables"`
	Deadline     *time.Time `json:"deadline"`
}

func (s *Server) respondToOffer(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	offerID, err := parseUUIDParam(r, "offerId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid offer id")
		return
	}
	var req respondRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid request body")
		return
	}
	creatorID, err := s.engagementSvc.CreatorIDForUser(r.Context(), auth.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	input := appEngagement.RespondInput{OfferID: offerID, CreatorID: creatorID}
	switch req.Action {
	case "accept":
		input.Accept = true
	case "reject":
	case "counter":
		if req.Counter == nil {
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", "counter terms are required")
			return
		}
		input.Counter = &appEngagement.CounterTerms{
			PriceInCents: req.Counter.PriceInCents,
			Message:      req.Counter.Message,
			Deliverables: req.Counter.Deliverables,
			Deadline:     req.Counter.Deadline,
		}
	default:
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "action must be accept, reject or counter")
		return
	}

	result, err := s.engagementSvc.Respond(r.Context(), input)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"offer":    result.Offer,
		"counter":  result.Counter,
		"contract": result.Contract,
	})
}
