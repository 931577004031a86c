package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/collabify/collabify/internal/domain/audit"
	"github.com/collabify/collabify/internal/domain/subscription"
)

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	unreadOnly := r.URL.Query().Get("unread") == "true"
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil {
			limit = l
		}
	}
	notifications, err := s.notificationSvc.List(r.Context(), auth.UserID, unreadOnly, limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"notifications": notifications})
}

func (s *Server) unreadCount(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	count, err := s.notificationSvc.CountUnread(r.Context(), auth.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"count": count})
}

func (s *Server) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	notificationID, err := parseUUIDParam(r, "notificationId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid notification id")
		return
	}
	if err := s.notificationSvc.MarkRead(r.Context(), notificationID, auth.UserID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) markAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	if err := s.notificationSvc.MarkAllRead(r.Context(), auth.UserID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getSubscription(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	if auth.BrandID == nil {
		respondError(w, http.StatusForbidden, "FORBIDDEN", "no brand scope")
		return
	}
	sub, err := s.subscriptionSvc.Get(r.Context(), *auth.BrandID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	features, err := s.subscriptionSvc.FeaturesForBrand(r.Context(), *auth.BrandID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"subscription": sub,
		"features":     features,
	})
}

type tierRequest struct {
	Tier string `json:"tier"`
}

func (s *Server) setSubscriptionTier(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	if auth.BrandID == nil {
		respondError(w, http.StatusForbidden, "FORBIDDEN", "no brand scope")
		return
	}
	var req tierRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid request body")
		return
	}
	sub, err := s.subscriptionSvc.SetTier(r.Context(), *auth.BrandID, subscription.Tier(req.Tier))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sub)
}

func (s *Server) queryAudit(w http.ResponseWriter, r *http.Request) {
	limit, offset := parseLimitOffset(r, 50, 200)

	filter := audit.Filter{}
	q := r.URL.Query()
	if v := q.Get("entityType"); v != "" {
		filter.EntityType = &v
	}
	if v := q.Get("entityId"); v != "" {
		filter.EntityID = &v
	}
	if v := q.Get("action"); v != "" {
		action := audit.Action(v)
		filter.Action = &action
	}
	if v := q.Get("actorId"); v != "" {
		actorID, err := parseUUID(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid actor id")
			return
		}
		filter.ActorID = &actorID
	}
	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid since timestamp")
			return
		}
		filter.Since = &since
	}

	entries, err := s.auditSvc.Query(r.Context(), filter, limit, offset)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}
