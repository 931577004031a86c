//go:build integration
// +build integration

package integration

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
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
	"github.com/collabify/collabify/internal/infrastructure/postgres"
	"github.com/collabify/collabify/internal/infrastructure/sse"
	"github.com/collabify/collabify/internal/infrastructure/stripe"
)

const (
	webhookSecret = "whsec_integration_test"

	brandEmail      = "brand@example.com"
	creatorEmail    = "creator@example.com"
	accountPassword = "Sup3rSecurePass"
)

// TestEngagementLifecycleIntegration walks the full path from registration to
// payout: campaign goes live, the creator applies, the brand offers, the
// creator accepts, funds are held and captured, work is submitted and
// approved, and the escrow is released.
func TestEngagementLifecycleIntegration(t *testing.T) {
	env, cleanup := newTestEnv(t)
	defer cleanup()

	brandClient := registerAndLogin(t, env.url, map[string]string{
		"email":     brandEmail,
		"password":  accountPassword,
		"role":      "BRAND",
		"firstName": "Bea",
		"lastName":  "Brand",
		"brandName": "Acme Drinks",
	})
	creatorClient := registerAndLogin(t, env.url, map[string]string{
		"email":       creatorEmail,
		"password":    accountPassword,
		"role":        "CREATOR",
		"firstName":   "Cara",
		"lastName":    "Creator",
		"displayName": "carathecreator",
	})

	// Campaign goes live.
	var camp struct {
		CampaignID string `json:"campaignId"`
		Status     string `json:"status"`
	}
	postJSON(t, brandClient, env.url+"/v1/campaigns", map[string]interface{}{
		"title":       "Summer Launch",
		"description": "Sparkling water launch content",
	}, &camp)
	if camp.Status != "DRAFT" {
		t.Fatalf("new campaign status = %s, want DRAFT", camp.Status)
	}
	postJSON(t, brandClient, env.url+"/v1/campaigns/"+camp.CampaignID+"/status", map[string]string{"status": "LIVE"}, nil)

	// The creator finds it and applies.
	var feed struct {
		Campaigns []struct {
			CampaignID string `json:"campaignId"`
		} `json:"campaigns"`
	}
	getJSON(t, creatorClient, env.url+"/v1/campaigns/discover", &feed)
	if len(feed.Campaigns) != 1 || feed.Campaigns[0].CampaignID != camp.CampaignID {
		t.Fatalf("discover returned %d campaigns, want the live one", len(feed.Campaigns))
	}

	var app struct {
		ApplicationID string `json:"applicationId"`
		Status        string `json:"status"`
	}
	postJSON(t, creatorClient, env.url+"/v1/applications", map[string]interface{}{
		"campaignId":    camp.CampaignID,
		"coverLetter":   "I drink a lot of sparkling water.",
		"priceInCents":  50000,
		"estimatedDays": 14,
	}, &app)
	if app.Status != "PENDING" {
		t.Fatalf("application status = %s, want PENDING", app.Status)
	}

	// A duplicate application is refused.
	status := postStatus(t, creatorClient, env.url+"/v1/applications", map[string]interface{}{
		"campaignId":    camp.CampaignID,
		"coverLetter":   "again",
		"priceInCents":  50000,
		"estimatedDays": 14,
	})
	if status != http.StatusConflict {
		t.Fatalf("duplicate application status = %d, want 409", status)
	}

	// Offer and acceptance.
	var offer struct {
		OfferID string `json:"offerId"`
		Status  string `json:"status"`
	}
	postJSON(t, brandClient, env.url+"/v1/applications/"+app.ApplicationID+"/offers", map[string]interface{}{
		"priceInCents": 60000,
		"deliverables": []string{"Instagram reel", "Story set"},
	}, &offer)
	if offer.Status != "PENDING" {
		t.Fatalf("offer status = %s, want PENDING", offer.Status)
	}

	var accepted struct {
		Contract struct {
			ContractID   string `json:"contractId"`
			Status       string `json:"status"`
			PriceInCents int64  `json:"priceInCents"`
		} `json:"contract"`
	}
	postJSON(t, creatorClient, env.url+"/v1/offers/"+offer.OfferID+"/respond", map[string]string{"action": "accept"}, &accepted)
	if accepted.Contract.Status != "ACTIVE" {
		t.Fatalf("contract status = %s, want ACTIVE", accepted.Contract.Status)
	}
	if accepted.Contract.PriceInCents != 60000 {
		t.Fatalf("contract price = %d, want the offer's 60000", accepted.Contract.PriceInCents)
	}
	contractID := accepted.Contract.ContractID

	// Escrow hold, processor authorization and capture.
	var hold struct {
		Intent struct {
			ProcessorPaymentID string `json:"processorPaymentId"`
			Status             string `json:"status"`
		} `json:"intent"`
		ClientSecret string `json:"clientSecret"`
	}
	postJSON(t, brandClient, env.url+"/v1/contracts/"+contractID+"/payments/hold", nil, &hold)
	if hold.Intent.Status != "PENDING" {
		t.Fatalf("intent status = %s, want PENDING", hold.Intent.Status)
	}

	deliverWebhook(t, env.url, "payment_intent.amount_capturable_updated", hold.Intent.ProcessorPaymentID)
	// Redelivery of the same event must be a no-op, not an error.
	deliverWebhook(t, env.url, "payment_intent.amount_capturable_updated", hold.Intent.ProcessorPaymentID)

	var captured struct {
		Status string `json:"status"`
	}
	postJSON(t, brandClient, env.url+"/v1/contracts/"+contractID+"/payments/capture", nil, &captured)
	if captured.Status != "CAPTURED" {
		t.Fatalf("intent status after capture = %s, want CAPTURED", captured.Status)
	}

	// Work is submitted and approved deliverable by deliverable.
	var deliverables struct {
		Deliverables []struct {
			DeliverableID string `json:"deliverableId"`
			Title         string `json:"title"`
		} `json:"deliverables"`
	}
	getJSON(t, brandClient, env.url+"/v1/contracts/"+contractID+"/deliverables", &deliverables)
	if len(deliverables.Deliverables) != 2 {
		t.Fatalf("contract has %d deliverables, want 2 from the offer", len(deliverables.Deliverables))
	}

	for i, d := range deliverables.Deliverables {
		link := fmt.Sprintf("https://cdn.example.com/draft-%d.mp4", i)
		postJSON(t, creatorClient, env.url+"/v1/deliverables/"+d.DeliverableID+"/submissions", map[string]interface{}{
			"linkUrl": link,
		}, nil)

		var review struct {
			ContractCompleted bool `json:"contractCompleted"`
		}
		postJSON(t, brandClient, env.url+"/v1/deliverables/"+d.DeliverableID+"/review", map[string]interface{}{
			"approved": true,
		}, &review)
		wantCompleted := i == len(deliverables.Deliverables)-1
		if review.ContractCompleted != wantCompleted {
			t.Fatalf("deliverable %d: contractCompleted = %v, want %v", i, review.ContractCompleted, wantCompleted)
		}
	}

	var contract struct {
		Status string `json:"status"`
	}
	getJSON(t, brandClient, env.url+"/v1/contracts/"+contractID, &contract)
	if contract.Status != "COMPLETED" {
		t.Fatalf("contract status = %s, want COMPLETED", contract.Status)
	}

	// Release pays the creator minus commission.
	var released struct {
		Status             string `json:"status"`
		CommissionCents    int64  `json:"commissionCents"`
		CreatorPayoutCents int64  `json:"creatorPayoutCents"`
	}
	postJSON(t, brandClient, env.url+"/v1/contracts/"+contractID+"/payments/release", nil, &released)
	if released.Status != "RELEASED" {
		t.Fatalf("intent status after release = %s, want RELEASED", released.Status)
	}
	if released.CommissionCents+released.CreatorPayoutCents != 60000 {
		t.Fatalf("split %d + %d does not conserve the captured 60000", released.CommissionCents, released.CreatorPayoutCents)
	}

	var payouts struct {
		Payouts []struct {
			AmountInCents int64 `json:"amountInCents"`
		} `json:"payouts"`
	}
	getJSON(t, creatorClient, env.url+"/v1/payouts", &payouts)
	if len(payouts.Payouts) != 1 || payouts.Payouts[0].AmountInCents != released.CreatorPayoutCents {
		t.Fatalf("payouts = %+v, want one payout of %d", payouts.Payouts, released.CreatorPayoutCents)
	}

	var ledger struct {
		Entries []struct {
			Type string `json:"type"`
		} `json:"entries"`
	}
	getJSON(t, brandClient, env.url+"/v1/contracts/"+contractID+"/ledger", &ledger)
	if len(ledger.Entries) != 4 {
		t.Fatalf("ledger has %d entries, want hold, capture, commission and payout", len(ledger.Entries))
	}
}

// TestMessagingSSEIntegration verifies that a message sent on a conversation
// reaches a participant streaming over SSE who has joined the room.
func TestMessagingSSEIntegration(t *testing.T) {
	env, cleanup := newTestEnv(t)
	defer cleanup()

	brandClient := registerAndLogin(t, env.url, map[string]string{
		"email":     brandEmail,
		"password":  accountPassword,
		"role":      "BRAND",
		"firstName": "Bea",
		"lastName":  "Brand",
		"brandName": "Acme Drinks",
	})
	creatorClient := registerAndLogin(t, env.url, map[string]string{
		"email":       creatorEmail,
		"password":    accountPassword,
		"role":        "CREATOR",
		"firstName":   "Cara",
		"lastName":    "Creator",
		"displayName": "carathecreator",
	})

	// A creator-initiated conversation needs the brand id, which the brand's
	// own session surface exposes.
	var brandMe struct {
		BrandID string `json:"brandId"`
	}
	getJSON(t, brandClient, env.url+"/v1/auth/me", &brandMe)

	var conv struct {
		ConversationID string `json:"conversationId"`
	}
	postJSON(t, creatorClient, env.url+"/v1/conversations", map[string]interface{}{
		"brandId": brandMe.BrandID,
	}, &conv)

	// The creator opens a stream and joins the conversation room.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	clientID := "it-client-1"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, env.url+"/v1/stream?client_id="+clientID, nil)
	if err != nil {
		t.Fatalf("stream request: %v", err)
	}
	resp, err := creatorClient.Do(req)
	if err != nil {
		t.Fatalf("stream connect: %v", err)
	}
	defer resp.Body.Close()

	events := make(chan map[string]interface{}, 4)
	go func() {
		reader := bufio.NewReader(resp.Body)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				return
			}
			if strings.HasPrefix(line, "data: ") {
				payload := strings.TrimSpace(strings.TrimPrefix(line, "data: "))
				var msg map[string]interface{}
				if err := json.Unmarshal([]byte(payload), &msg); err == nil {
					events <- msg
				}
			}
		}
	}()

	postJSON(t, creatorClient, env.url+"/v1/conversations/"+conv.ConversationID+"/join", map[string]string{"clientId": clientID}, nil)

	postJSON(t, brandClient, env.url+"/v1/conversations/"+conv.ConversationID+"/messages", map[string]string{
		"content": "Hi Cara, loved your application!",
	}, nil)

	deadline := time.After(5 * time.Second)
	for {
		select {
		case msg := <-events:
			if msg["event"] == "message:new" {
				return
			}
		case <-deadline:
			t.Fatalf("message:new not received over SSE")
		}
	}
}

type testEnv struct {
	url string
}

func newTestEnv(t *testing.T) (*testEnv, func()) {
	t.Helper()
	dsn := testDatabaseURL(t)

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, dsn)
	if err != nil {
		t.Fatalf("db pool: %v", err)
	}

	root := repoRoot(t)
	if err := postgres.RunMigrations(ctx, pool, filepath.Join(root, "internal", "migrations")); err != nil {
		pool.Close()
		t.Fatalf("migrations: %v", err)
	}
	if err := resetDatabase(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("reset db: %v", err)
	}

	// A stub processor that authorizes everything.
	var intentSeq int
	processorStub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/capture") {
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "captured", "status": "succeeded"})
			return
		}
		intentSeq++
		_ = json.NewEncoder(w).Encode(map[string]string{
			"id":            fmt.Sprintf("pi_test_%d", intentSeq),
			"client_secret": fmt.Sprintf("pi_test_%d_secret", intentSeq),
			"status":        "requires_payment_method",
		})
	}))

	logger := zerolog.Nop()
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

	sseHub := sse.NewHub()
	processor := stripe.NewClientWithBaseURL("sk_test", processorStub.URL, logger)

	auditSvc := audit.NewService(auditRepo, logger)
	notificationSvc := notification.NewService(notificationRepo, sseHub, logger)
	subscriptionSvc := subscription.NewService(subscriptionRepo, logger)
	authSvc := auth.NewService(userRepo, sessionRepo, brandRepo, creatorRepo, subscriptionRepo, 24*time.Hour, logger)
	campaignSvc := campaign.NewService(campaignRepo, creatorRepo, subscriptionSvc, logger)
	engagementSvc := engagement.NewService(engagementRepo, campaignRepo, brandRepo, creatorRepo, subscriptionSvc, notificationSvc, auditSvc, 0.15, engagement.DefaultOfferTTL, logger)
	deliverableSvc := deliverable.NewService(contractRepo, brandRepo, creatorRepo, notificationSvc, auditSvc, logger)
	paymentSvc := payment.NewService(paymentRepo, contractRepo, creatorRepo, processor, notificationSvc, auditSvc, 0.15, logger)
	chatSvc := chat.NewService(chatRepo, brandRepo, creatorRepo, subscriptionSvc, sseHub, notificationSvc, auditSvc, logger)

	apiServer := httpapi.NewServer(
		authSvc, campaignSvc, engagementSvc, deliverableSvc, paymentSvc, chatSvc,
		notificationSvc, subscriptionSvc, auditSvc, sseHub,
		webhookSecret, "collabify_session", false,
	)
	server := httptest.NewServer(apiServer.Router())

	cleanup := func() {
		server.Close()
		processorStub.Close()
		sseHub.Stop()
		pool.Close()
	}
	return &testEnv{url: server.URL}, cleanup
}

func registerAndLogin(t *testing.T, baseURL string, account map[string]string) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	client := &http.Client{Timeout: 10 * time.Second, Jar: jar}

	postJSON(t, client, baseURL+"/v1/auth/register", account, nil)
	postJSON(t, client, baseURL+"/v1/auth/login", map[string]string{
		"email":    account["email"],
		"password": account["password"],
	}, nil)
	return client
}

func deliverWebhook(t *testing.T, baseURL, eventType, paymentID string) {
	t.Helper()
	body, _ := json.Marshal(map[string]interface{}{
		"type": eventType,
		"data": map[string]interface{}{
			"object": map[string]string{"id": paymentID},
		},
	})
	req, err := http.NewRequest(http.MethodPost, baseURL+"/v1/payments/webhook", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("webhook request: %v", err)
	}
	req.Header.Set("Stripe-Signature", stripe.SignPayload(body, webhookSecret, time.Now()))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("webhook delivery: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("webhook status %d: %s", resp.StatusCode, string(b))
	}
}

func postJSON(t *testing.T, client *http.Client, url string, body interface{}, out interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(http.MethodPost, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		t.Fatalf("post %s status %d: %s", url, resp.StatusCode, string(bodyBytes))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
}

// postStatus posts and returns the status code without failing on errors.
func postStatus(t *testing.T, client *http.Client, url string, body interface{}) int {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode
}

func getJSON(t *testing.T, client *http.Client, url string, out interface{}) {
	t.Helper()
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		t.Fatalf("get %s status %d: %s", url, resp.StatusCode, string(bodyBytes))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func testDatabaseURL(t *testing.T) string {
	t.Helper()
	if dsn := os.Getenv("TEST_DATABASE_URL"); dsn != "" {
		return dsn
	}
	t.Skip("TEST_DATABASE_URL not set; skipping integration tests")
	return ""
}

func repoRoot(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}

func resetDatabase(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		TRUNCATE TABLE
			audit_entries,
			notifications,
			conversation_assignments,
			read_receipts,
			messages,
			conversations,
			payouts,
			ledger_entries,
			payment_intents,
			deliverable_reviews,
			deliverable_submissions,
			deliverables,
			contracts,
			offers,
			applications,
			campaigns,
			subscriptions,
			creator_profiles,
			brand_members,
			brands,
			sessions,
			users
		RESTART IDENTITY CASCADE
	`)
	return err
}
