package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds service configuration.
type Config struct {
	DatabaseURL         string
	ServerAddr          string
	SessionTTL          time.Duration
	SessionCookieName   string
	SessionCookieSecure bool

	PaymentAPIBaseURL    string
	PaymentAPIKey        string
	PaymentWebhookSecret string
	CommissionRate       float64
	OfferTTL             time.Duration
}

// Load reads configuration from environment.
func Load() (*Config, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		user := getenv("POSTGRES_USER", "collabify")
		pass := getenv("POSTGRES_PASSWORD", "collabify_pass")
		db := getenv("POSTGRES_DB", "collabify")
		host := getenv("POSTGRES_HOST", "localhost")
		port := getenv("POSTGRES_PORT", "5432")
		sslmode := getenv("DATABASE_SSLMODE", "disable")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, sslmode)
	}
	addr := getenv("SERVER_ADDR", "0.0.0.0:8080")
	ttl := parseDuration(getenv("SESSION_TTL", "24h"), 24*time.Hour)
	cookieName := getenv("SESSION_COOKIE_NAME", "collabify_session")
	cookieSecure := parseBool(getenv("SESSION_COOKIE_SECURE", "false"), false)

	commission := parseFloat(getenv("COMMISSION_RATE", "0.15"), 0.15)
	if commission < 0 || commission >= 1 {
		return nil, fmt.Errorf("COMMISSION_RATE must be in [0, 1), got %f", commission)
	}
	offerTTL := parseDuration(getenv("OFFER_TTL", "168h"), 168*time.Hour)

	return &Config{
		DatabaseURL:          dsn,
		ServerAddr:           addr,
		SessionTTL:           ttl,
		SessionCookieName:    cookieName,
		SessionCookieSecure:  cookieSecure,
		PaymentAPIBaseURL:    getenv("PAYMENT_API_BASE_URL", "https://api.stripe.com/v1"),
		PaymentAPIKey:        os.Getenv("PAYMENT_API_KEY"),
		PaymentWebhookSecret: os.Getenv("PAYMENT_WEBHOOK_SECRET"),
		CommissionRate:       commission,
		OfferTTL:             offerTTL,
	}, nil
}

func getenv(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}

func parseDuration(val string, def time.Duration) time.Duration {
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return def
	}
	return d
}

func parseBool(val string, def bool) bool {
	if val == "" {
		return def
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return def
	}
	return b
}

func parseFloat(val string, def float64) float64 {
	if val == "" {
		return def
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return def
	}
	return f
}
