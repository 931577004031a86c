package httpapi

import (
	"net/http"

	appChat "github.com/collabify/collabify/internal/application/chat"
	"github.com/collabify/collabify/internal/domain/chat"
	"github.com/collabify/collabify/internal/domain/user"
)

// chatActor reconstructs the minimal user the chat service needs to check
// conversation membership.
func chatActor(auth *AuthUser) *user.User {
	return &user.User{
		UserID: auth.UserID,
		Email:  auth.Email,
		Role:   auth.Role,
	}
}

type startConversationRequest struct {
	BrandID    *string `json:"brandId"`
	CreatorID  string  `json:"creatorId"`
	CampaignID *string `json:"campaignId"`
}

func (s *Server) startConversation(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	var req startConversationRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid request body")
		return
	}

	input := appChat.StartInput{StartedBy: chatActor(auth)}
	switch {
	case auth.BrandID != nil:
		input.BrandID = *auth.BrandID
		creatorID, err := parseUUID(req.CreatorID)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid creator id")
			return
		}
		input.CreatorID = creatorID
	default:
		if req.BrandID == nil {
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", "brandId is required")
			return
		}
		brandID, err := parseUUID(*req.BrandID)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid brand id")
			return
		}
		creatorID, err := s.engagementSvc.CreatorIDForUser(r.Context(), auth.UserID)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		input.BrandID = brandID
		input.CreatorID = creatorID
	}
	if req.CampaignID != nil {
		campaignID, err := parseUUID(*req.CampaignID)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid campaign id")
			return
		}
		input.CampaignID = &campaignID
	}

	conv, err := s.chatSvc.Start(r.Context(), input)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, conv)
}

type sendMessageRequest struct {
	Content        string  `json:"content"`
	AttachmentURL  *string `json:"attachmentUrl"`
	AttachmentName *string `json:"attachmentName"`
}

func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	conversationID, err := parseUUIDParam(r, "conversationId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid conversation id")
		return
	}
	var req sendMessageRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid request body")
		return
	}
	msg, err := s.chatSvc.Send(r.Context(), appChat.SendInput{
		ConversationID: conversationID,
		Sender:         chatActor(auth),
		Content:        req.Content,
		AttachmentURL:  req.AttachmentURL,
		AttachmentName: req.AttachmentName,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, msg)
}

func (s *Server) typing(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	conversationID, err := parseUUIDParam(r, "conversationId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid conversation id")
		return
	}
	if err := s.chatSvc.Typing(r.Context(), conversationID, chatActor(auth)); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) markRead(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	conversationID, err := parseUUIDParam(r, "conversationId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid conversation id")
		return
	}
	if err := s.chatSvc.MarkRead(r.Context(), conversationID, chatActor(auth)); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	conversationID, err := parseUUIDParam(r, "conversationId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid conversation id")
		return
	}
	limit, offset := parseLimitOffset(r, 50, 200)
	result, err := s.chatSvc.Messages(r.Context(), conversationID, chatActor(auth), limit, offset)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"messages": result.Messages,
		"total":    result.Total,
	})
}

func (s *Server) inbox(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())

	filter := chat.InboxFilter{BrandID: auth.BrandID}
	q := r.URL.Query()
	if v := q.Get("campaignId"); v != "" {
		campaignID, err := parseUUID(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid campaign id")
			return
		}
		filter.CampaignID = &campaignID
	}
	if v := q.Get("assignedTo"); v != "" {
		assigneeID, err := parseUUID(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid assignee id")
			return
		}
		filter.AssignedTo = &assigneeID
	}
	if v := q.Get("unread"); v != "" {
		unread := v == "true"
		filter.Unread = &unread
	}

	entries, err := s.chatSvc.Inbox(r.Context(), chatActor(auth), filter)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"conversations": entries})
}

type roomRequest struct {
	ClientID string `json:"clientId"`
}

func (s *Server) joinConversation(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	conversationID, err := parseUUIDParam(r, "conversationId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid conversation id")
		return
	}
	var req roomRequest
	if err := decodeBody(r, &req); err != nil || req.ClientID == "" {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "clientId is required")
		return
	}
	if err := s.chatSvc.Join(r.Context(), conversationID, chatActor(auth), req.ClientID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "joined"})
}

func (s *Server) leaveConversation(w http.ResponseWriter, r *http.Request) {
	conversationID, err := parseUUIDParam(r, "conversationId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid conversation id")
		return
	}
	var req roomRequest
	if err := decodeBody(r, &req); err != nil || req.ClientID == "" {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "clientId is required")
		return
	}
	s.chatSvc.Leave(conversationID, req.ClientID)
	respondJSON(w, http.StatusOK, map[string]string{"status": "left"})
}

type assignRequest struct {
	UserID string `json:"userId"`
}

func (s *Server) assignConversation(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	conversationID, err := parseUUIDParam(r, "conversationId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid conversation id")
		return
	}
	var req assignRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid request body")
		return
	}
	assigneeID, err := parseUUID(req.UserID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid user id")
		return
	}
	if err := s.chatSvc.Assign(r.Context(), conversationID, assigneeID, chatActor(auth)); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "assigned"})
}

func (s *Server) unassignConversation(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	conversationID, err := parseUUIDParam(r, "conversationId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid conversation id")
		return
	}
	assigneeID, err := parseUUIDParam(r, "userId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid user id")
		return
	}
	if err := s.chatSvc.Unassign(r.Context(), conversationID, assigneeID, chatActor(auth)); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "unassigned"})
}

func (s *Server) listAssignments(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	conversationID, err := parseUUIDParam(r, "conversationId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid conversation id")
		return
	}
	assignments, err := s.chatSvc.Assignments(r.Context(), conversationID, chatActor(auth))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"assignments": assignments})
}
