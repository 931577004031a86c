package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/collabify/collabify/internal/domain/payment"
)

const defaultBaseURL = "https://api.stripe.com/v1"

// Client talks to the Stripe payment-intents API. Only the manual-capture
// escrow surface is implemented: create a hold, capture it. Everything else
// arrives through the webhook.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
}

func NewClient(apiKey string, logger zerolog.Logger) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  logger.With().Str("component", "stripe").Logger(),
	}
}

// NewClientWithBaseURL is used by tests to point the client at a stub server.
func NewClientWithBaseURL(apiKey, baseURL string, logger zerolog.Logger) *Client {
	c := NewClient(apiKey, logger)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

type intentResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
	Error        *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateHold opens a manual-capture payment intent. The idempotency key makes
// a retried call return the original intent instead of opening a second hold.
func (c *Client) CreateHold(ctx context.Context, amountInCents int64, currency string, idempotencyKey string, metadata map[string]string) (*payment.Hold, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amountInCents, 10))
	form.Set("currency", currency)
	form.Set("capture_method", "manual")
	for k, v := range metadata {
		form.Set("metadata["+k+"]", v)
	}

	resp, err := c.post(ctx, "/payment_intents", form, idempotencyKey)
	if err != nil {
		return nil, err
	}
	return &payment.Hold{PaymentID: resp.ID, ClientSecret: resp.ClientSecret}, nil
}

// Capture converts the hold into a funds transfer.
func (c *Client) Capture(ctx context.Context, paymentID string) error {
	_, err := c.post(ctx, "/payment_intents/"+paymentID+"/capture", url.Values{}, "")
	return err
}

func (c *Client) post(ctx context.Context, path string, form url.Values, idempotencyKey string) (*intentResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("processor request failed: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("processor response read failed: %w", err)
	}

	var resp intentResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("processor response decode failed: %w", err)
	}
	if httpResp.StatusCode >= 400 {
		msg := "processor error"
		if resp.Error != nil {
			msg = resp.Error.Message
		}
		c.logger.Warn().Int("status", httpResp.StatusCode).Str("path", path).Msg("processor call rejected")
		return nil, fmt.Errorf("%s (http %d)", msg, httpResp.StatusCode)
	}
	return &resp, nil
}
