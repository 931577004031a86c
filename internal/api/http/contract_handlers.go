package httpapi

import (
	"net/http"

	appDeliverable "github.com/collabify/collabify/internal/application/deliverable"
	"github.com/collabify/collabify/internal/domain/contract"
)

func (s *Server) getContract(w http.ResponseWriter, r *http.Request) {
	contractID, err := parseUUIDParam(r, "contractId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid contract id")
		return
	}
	c, err := s.deliverableSvc.GetContract(r.Context(), contractID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (s *Server) listContracts(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	limit, offset := parseLimitOffset(r, 20, 100)

	filter := contract.Filter{}
	if v := r.URL.Query().Get("status"); v != "" {
		status := contract.Status(v)
		filter.Status = &status
	}
	if auth.BrandID != nil {
		filter.BrandID = auth.BrandID
	} else {
		creatorID, err := s.engagementSvc.CreatorIDForUser(r.Context(), auth.UserID)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		filter.CreatorID = &creatorID
	}

	result, err := s.deliverableSvc.ListContracts(r.Context(), filter, limit, offset)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"contracts": result.Contracts,
		"total":     result.Total,
	})
}

func (s *Server) updateContractStatus(w http.ResponseWriter, r *http.Request) {
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
	var req statusRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid request body")
		return
	}
	c, err := s.deliverableSvc.UpdateContractStatus(r.Context(), contractID, *auth.BrandID, contract.Status(req.Status))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (s *Server) listDeliverables(w http.ResponseWriter, r *http.Request) {
	contractID, err := parseUUIDParam(r, "contractId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid contract id")
		return
	}
	deliverables, err := s.deliverableSvc.ListDeliverables(r.Context(), contractID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"deliverables": deliverables})
}

type submitRequest struct {
	FileURL *string `json:"fileUrl"`
	LinkURL *string `json:"linkUrl"`
	Notes   *string `json:"notes"`
}

func (s *Server) submitDeliverable(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	deliverableID, err := parseUUIDParam(r, "deliverableId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid deliverable id")
		return
	}
	var req submitRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid request body")
		return
	}
	creatorID, err := s.engagementSvc.CreatorIDForUser(r.Context(), auth.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	sub, err := s.deliverableSvc.Submit(r.Context(), appDeliverable.SubmitInput{
		DeliverableID: deliverableID,
		CreatorID:     creatorID,
		FileURL:       req.FileURL,
		LinkURL:       req.LinkURL,
		Notes:         req.Notes,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, sub)
}

type reviewRequest struct {
	Approved bool    `json:"approved"`
	Feedback *string `json:"feedback"`
}

func (s *Server) reviewDeliverable(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	if auth.BrandID == nil {
		respondError(w, http.StatusForbidden, "FORBIDDEN", "no brand scope")
		return
	}
	deliverableID, err := parseUUIDParam(r, "deliverableId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid deliverable id")
		return
	}
	var req reviewRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid request body")
		return
	}
	result, err := s.deliverableSvc.Review(r.Context(), appDeliverable.ReviewInput{
		DeliverableID: deliverableID,
		BrandID:       *auth.BrandID,
		ReviewerID:    auth.UserID,
		Approved:      req.Approved,
		Feedback:      req.Feedback,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"review":            result.Review,
		"deliverable":       result.Deliverable,
		"contractCompleted": result.ContractCompleted,
	})
}

func (s *Server) listSubmissions(w http.ResponseWriter, r *http.Request) {
	deliverableID, err := parseUUIDParam(r, "deliverableId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid deliverable id")
		return
	}
	submissions, err := s.deliverableSvc.ListSubmissions(r.Context(), deliverableID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"submissions": submissions})
}

func (s *Server) listReviews(w http.ResponseWriter, r *http.Request) {
	deliverableID, err := parseUUIDParam(r, "deliverableId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid deliverable id")
		return
	}
	reviews, err := s.deliverableSvc.ListReviews(r.Context(), deliverableID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"reviews": reviews})
}
