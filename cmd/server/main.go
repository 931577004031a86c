package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	httpapi "github.com/collabify/collabify/internal/api/http"
	"github.com/collabify/collabify/internal/application/audit"
	"github.com/collabify/collabify/internal/application/auth"
	"github.com/collabify/collabify/internal/application/campaign"
	"github.com/collabify/collabify/internal/application/chat"
	"github.com/collabify/collabify/internal/application/deliverable"
	"github.com/collabify/collabify/internal/application/engagement"
	"github.com/collabify/collabify/internal/application/notification"
	"github.com/collabify/collabify/internal/application/payment"
	"github.com/collabify/collabify/internal/application/subscription"
	"github.com/collabify/collabify/internal/config"
	"github.com/collabify/collabify/internal/infrastructure/postgres"
	"github.com/collabify/collabify/internal/infrastructure/sse"
	"github.com/collabify/collabify/internal/infrastructure/stripe"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db error: %v", err)
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool, "internal/migrations"); err != nil {
		log.Fatalf("migration error: %v", err)
	}

	// repositories
	userRepo := postgres.NewUserRepository(pool)
	sessionRepo := postgres.NewSessionRepository(pool)
	brandRepo := postgres.NewBrandRepository(pool)
	creatorRepo := postgres.NewCreatorRepository(pool)
	campaignRepo := postgres.NewCampaignRepository(pool)
	engagementRepo := postgres.NewEngagementRepository(pool)
	contractRepo := postgres.NewContractRepository(pool)
	paymentRepo := postgres.NewPaymentRepository(pool)
	chatRepo := postgres.NewChatRepository(pool)
	notificationRepo := postgres.NewNotificationRepository(pool)
	auditRepo := postgres.NewAuditRepository(pool)
	subscriptionRepo := postgres.NewSubscriptionRepository(pool)

	// infrastructure
	sseHub := sse.NewHub()
	processor := stripe.NewClientWithBaseURL(cfg.PaymentAPIKey, cfg.PaymentAPIBaseURL, logger)

	// services
	auditSvc := audit.NewService(auditRepo, logger)
	notificationSvc := notification.NewService(notificationRepo, sseHub, logger)
	subscriptionSvc := subscription.NewService(subscriptionRepo, logger)
	authSvc := auth.NewService(userRepo, sessionRepo, brandRepo, creatorRepo, subscriptionRepo, cfg.SessionTTL, logger)
	campaignSvc := campaign.NewService(campaignRepo, creatorRepo, subscriptionSvc, logger)
	engagementSvc := engagement.NewService(engagementRepo, campaignRepo, brandRepo, creatorRepo, subscriptionSvc, notificationSvc, auditSvc, cfg.CommissionRate, cfg.OfferTTL, logger)
	deliverableSvc := deliverable.NewService(contractRepo, brandRepo, creatorRepo, notificationSvc, auditSvc, logger)
	paymentSvc := payment.NewService(paymentRepo, contractRepo, creatorRepo, processor, notificationSvc, auditSvc, cfg.CommissionRate, logger)
	chatSvc := chat.NewService(chatRepo, brandRepo, creatorRepo, subscriptionSvc, sseHub, notificationSvc, auditSvc, logger)

	// API server
	apiServer := httpapi.NewServer(
		authSvc,
		campaignSvc,
		engagementSvc,
		deliverableSvc,
		paymentSvc,
		chatSvc,
		notificationSvc,
		subscriptionSvc,
		auditSvc,
		sseHub,
		cfg.PaymentWebhookSecret,
		cfg.SessionCookieName,
		cfg.SessionCookieSecure,
	)

	httpServer := newHTTPServer(cfg.ServerAddr, apiServer.Router())

	// start server
	go func() {
		logger.Info().Str("addr", cfg.ServerAddr).Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctxShutdown)
	sseHub.Stop()
}

// newHTTPServer builds the server with timeouts that keep slow-loris
// protection on the header read but leave connection lifetime to the
// handlers. Read and write deadlines would sever long-lived event streams,
// so per-request bounds live in the router's timeout middleware instead.
func newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
