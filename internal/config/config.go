package config

import (
	"os"
	"strconv"
	"time"
)

type AppConfig struct {
	// Server
	HTTPAddr  string
	RedisAddr string
	RedisPass string

	// Postgres
	DatabaseURL string

	// Stripe
	StripeSecretKey     string
	StripeWebhookSecret string
	StripeSuccessURL    string
	StripeCancelURL     string

	// Session lifecycle
	SessionRetention time.Duration
	HistoryLimit     int

	// Operator access: bcrypt hash of the admin API key
	AdminKeyHash string

	// Rate limiting
	AppendRateLimit  int64
	AppendRateWindow time.Duration
}

// Load loads environment variables into AppConfig.
func Load() AppConfig {
	return AppConfig{
		HTTPAddr:  getEnv("HTTP_ADDR", ":8000"),
		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass: getEnv("REDIS_PASS", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		StripeSuccessURL:    getEnv("STRIPE_SUCCESS_URL", "https://example.com/checkout/success"),
		StripeCancelURL:     getEnv("STRIPE_CANCEL_URL", "https://example.com/checkout/cancel"),

		SessionRetention: getEnvDuration("SESSION_RETENTION", 24*time.Hour),
		HistoryLimit:     getEnvInt("HISTORY_LIMIT", 500),

		AdminKeyHash: getEnv("ADMIN_KEY_HASH", ""),

		AppendRateLimit:  int64(getEnvInt("APPEND_RATE_LIMIT", 120)),
		AppendRateWindow: getEnvDuration("APPEND_RATE_WINDOW", time.Minute),
	}
}

// --- Helper functions ---

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
