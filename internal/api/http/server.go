package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	appAudit "github.com/collabify/collabify/internal/application/audit"
	appAuth "github.com/collabify/collabify/internal/application/auth"
	appCampaign "github.com/collabify/collabify/internal/application/campaign"
	appChat "github.com/collabify/collabify/internal/application/chat"
	appDeliverable "github.com/collabify/collabify/internal/application/deliverable"
	appEngagement "github.com/collabify/collabify/internal/application/engagement"
	appNotification "github.com/collabify/collabify/internal/application/notification"
	appPayment "github.com/collabify/collabify/internal/application/payment"
	appSubscription "github.com/collabify/collabify/internal/application/subscription"
	"github.com/collabify/collabify/internal/domain/apperror"
	"github.com/collabify/collabify/internal/domain/notification"
	domainUser "github.com/collabify/collabify/internal/domain/user"
	"github.com/collabify/collabify/internal/infrastructure/sse"
	"github.com/collabify/collabify/internal/infrastructure/stripe"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	authSvc             *appAuth.Service
	campaignSvc         *appCampaign.Service
	engagementSvc       *appEngagement.Service
	deliverableSvc      *appDeliverable.Service
	paymentSvc          *appPayment.Service
	chatSvc             *appChat.Service
	notificationSvc     *appNotification.Service
	subscriptionSvc     *appSubscription.Service
	auditSvc            *appAudit.Service
	sseHub              *sse.Hub
	webhookSecret       string
	sessionCookieName   string
	sessionCookieSecure bool
}

func NewServer(
	authSvc *appAuth.Service,
	campaignSvc *appCampaign.Service,
	engagementSvc *appEngagement.Service,
	deliverableSvc *appDeliverable.Service,
	paymentSvc *appPayment.Service,
	chatSvc *appChat.Service,
	notificationSvc *appNotification.Service,
	subscriptionSvc *appSubscription.Service,
	auditSvc *appAudit.Service,
	sseHub *sse.Hub,
	webhookSecret string,
	sessionCookieName string,
	sessionCookieSecure bool,
) *Server {
	return &Server{
		authSvc:             authSvc,
		campaignSvc:         campaignSvc,
		engagementSvc:       engagementSvc,
		deliverableSvc:      deliverableSvc,
		paymentSvc:          paymentSvc,
		chatSvc:             chatSvc,
		notificationSvc:     notificationSvc,
		subscriptionSvc:     subscriptionSvc,
		auditSvc:            auditSvc,
		sseHub:              sseHub,
		webhookSecret:       webhookSecret,
		sessionCookieName:   sessionCookieName,
		sessionCookieSecure: sessionCookieSecure,
	}
}

// requestTimeout bounds every request except the event stream, which lives as
// long as the client keeps the connection open.
var requestTimeout = middleware.Timeout(30 * time.Second)

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/stream", s.sseEndpoint)
		})

		r.Group(func(r chi.Router) {
			r.Use(requestTimeout)
			s.mountAPI(r)
		})
	})

	return r
}

func (s *Server) mountAPI(r chi.Router) {
	// The webhook authenticates by signature, not session.
	r.Post("/payments/webhook", s.paymentWebhook)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", s.register)
		r.Post("/login", s.login)
		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/logout", s.logout)
			r.Get("/me", s.me)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Route("/campaigns", func(r chi.Router) {
			r.With(s.requireRole(string(domainUser.RoleBrand))).Post("/", s.createCampaign)
			r.Get("/", s.listCampaigns)
			r.With(s.requireRole(string(domainUser.RoleCreator))).Get("/discover", s.discoverCampaigns)
			r.Get("/{campaignId}", s.getCampaign)
			r.With(s.requireRole(string(domainUser.RoleBrand))).Patch("/{campaignId}", s.updateCampaign)
			r.With(s.requireRole(string(domainUser.RoleBrand))).Post("/{campaignId}/status", s.updateCampaignStatus)
			r.Get("/{campaignId}/applications", s.listCampaignApplications)
		})

		r.Route("/applications", func(r chi.Router) {
			r.With(s.requireRole(string(domainUser.RoleCreator))).Post("/", s.apply)
			r.Get("/", s.listApplications)
			r.Get("/{applicationId}", s.getApplication)
			r.With(s.requireRole(string(domainUser.RoleBrand))).Post("/{applicationId}/status", s.updateApplicationStatus)
			r.With(s.requireRole(string(domainUser.RoleCreator))).Post("/{applicationId}/withdraw", s.withdrawApplication)
			r.Get("/{applicationId}/offers", s.listOffers)
			r.With(s.requireRole(string(domainUser.RoleBrand))).Post("/{applicationId}/offers", s.createOffer)
		})

		r.Route("/offers", func(r chi.Router) {
			r.Get("/{offerId}", s.getOffer)
			r.With(s.requireRole(string(domainUser.RoleCreator))).Post("/{offerId}/respond", s.respondToOffer)
		})

		r.Route("/contracts", func(r chi.Router) {
			r.Get("/", s.listContracts)
			r.Get("/{contractId}", s.getContract)
			r.With(s.requireRole(string(domainUser.RoleBrand))).Post("/{contractId}/status", s.updateContractStatus)
			r.Get("/{contractId}/deliverables", s.listDeliverables)
			r.Get("/{contractId}/ledger", s.listLedger)
			r.With(s.requireRole(string(domainUser.RoleBrand))).Post("/{contractId}/payments/hold", s.createPaymentHold)
			r.With(s.requireRole(string(domainUser.RoleBrand))).Post("/{contractId}/payments/capture", s.capturePayment)
			r.With(s.requireRole(string(domainUser.RoleBrand))).Post("/{contractId}/payments/release", s.releasePayment)
			r.Get("/{contractId}/payments", s.getContractPayment)
		})

		r.Route("/deliverables", func(r chi.Router) {
			r.With(s.requireRole(string(domainUser.RoleCreator))).Post("/{deliverableId}/submissions", s.submitDeliverable)
			r.Get("/{deliverableId}/submissions", s.listSubmissions)
			r.With(s.requireRole(string(domainUser.RoleBrand))).Post("/{deliverableId}/review", s.reviewDeliverable)
			r.Get("/{deliverableId}/reviews", s.listReviews)
		})

		r.Route("/payouts", func(r chi.Router) {
			r.With(s.requireRole(string(domainUser.RoleCreator))).Get("/", s.listPayouts)
		})

		r.Route("/conversations", func(r chi.Router) {
			r.Post("/", s.startConversation)
			r.Get("/", s.inbox)
			r.Get("/{conversationId}/messages", s.listMessages)
			r.Post("/{conversationId}/messages", s.sendMessage)
			r.Post("/{conversationId}/typing", s.typing)
			r.Post("/{conversationId}/read", s.markRead)
			r.Post("/{conversationId}/join", s.joinConversation)
			r.Post("/{conversationId}/leave", s.leaveConversation)
			r.With(s.requireRole(string(domainUser.RoleBrand))).Get("/{conversationId}/assignments", s.listAssignments)
			r.With(s.requireRole(string(domainUser.RoleBrand))).Post("/{conversationId}/assignments", s.assignConversation)
			r.With(s.requireRole(string(domainUser.RoleBrand))).Delete("/{conversationId}/assignments/{userId}", s.unassignConversation)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", s.listNotifications)
			r.Get("/unread-count", s.unreadCount)
			r.Post("/{notificationId}/read", s.markNotificationRead)
			r.Post("/read-all", s.markAllNotificationsRead)
		})

		r.Route("/subscription", func(r chi.Router) {
			r.With(s.requireRole(string(domainUser.RoleBrand))).Get("/", s.getSubscription)
			r.With(s.requireRole(string(domainUser.RoleBrand))).Put("/", s.setSubscriptionTier)
		})

		r.Route("/admin", func(r chi.Router) {
			r.With(s.requireRole(string(domainUser.RoleAdmin))).Get("/audit", s.queryAudit)
		})
	})
}

// sseEndpoint upgrades the request to a server-sent event stream. Every live
// connection of a user receives user-addressed events; conversation events
// additionally require joining the conversation room.
func (s *Server) sseEndpoint(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	if auth == nil {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth")
		return
	}
	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		clientID = uuid.NewString()
	}
	userID := auth.UserID.String()

	client := notification.NewSSEClient(clientID, &userID)
	s.sseHub.Register(client)
	defer s.sseHub.Unregister(clientID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher, ok := w.(http.Flusher)
	if !ok {
		return
	}
	// Send an initial comment to flush headers and keep the connection alive.
	_, _ = w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case msg := <-client.MessageChan:
			if msg == nil {
				return
			}
			payload, _ := json.Marshal(msg)
			_, _ = w.Write([]byte("event: "))
			_, _ = w.Write([]byte(msg.Event))
			_, _ = w.Write([]byte("\ndata: "))
			_, _ = w.Write(payload)
			_, _ = w.Write([]byte("\n\n"))
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}

// paymentWebhook verifies the processor signature over the raw body and
// reconciles the event. Redeliveries return 200 without changing anything.
func (s *Server) paymentWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r, 1<<20)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "unreadable body")
		return
	}
	event, err := stripe.ConstructEvent(body, r.Header.Get("Stripe-Signature"), s.webhookSecret, time.Now(), stripe.DefaultTolerance)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_SIGNATURE", err.Error())
		return
	}
	if err := s.paymentSvc.HandleWebhook(r.Context(), event); err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"received": "true"})
}

// Helpers

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}

// respondServiceError maps a typed application error onto an HTTP status.
func respondServiceError(w http.ResponseWriter, err error) {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	switch appErr.Kind {
	case apperror.KindNotFound:
		respondError(w, http.StatusNotFound, string(appErr.Kind), appErr.Message)
	case apperror.KindForbidden:
		respondError(w, http.StatusForbidden, string(appErr.Kind), appErr.Message)
	case apperror.KindConflict:
		respondError(w, http.StatusConflict, string(appErr.Kind), appErr.Message)
	case apperror.KindInvalidState:
		respondError(w, http.StatusConflict, string(appErr.Kind), appErr.Message)
	case apperror.KindInvalidInput:
		respondError(w, http.StatusBadRequest, string(appErr.Kind), appErr.Message)
	case apperror.KindExternalProcessor:
		respondError(w, http.StatusBadGateway, string(appErr.Kind), appErr.Message)
	default:
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", appErr.Message)
	}
}

func readBody(r *http.Request, maxBytes int64) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(io.LimitReader(r.Body, maxBytes))
}

func parseUUIDParam(r *http.Request, key string) (uuid.UUID, error) {
	val := chi.URLParam(r, key)
	return uuid.Parse(val)
}

func parseUUID(val string) (uuid.UUID, error) {
	return uuid.Parse(val)
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func parseLimitOffset(r *http.Request, defaultLimit, maxLimit int) (int, int) {
	limit := defaultLimit
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil {
			limit = l
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if o, err := strconv.Atoi(v); err == nil {
			offset = o
		}
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
