package config

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_DSN", "host=localhost user=test password=test dbname=test port=5432 sslmode=disable")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("WHATSAPP_PHONE_NUMBER_ID", "123456789012345")
	t.Setenv("WHATSAPP_ACCESS_TOKEN", "test-access-token")
	t.Setenv("WEBHOOK_VERIFY_TOKEN", "test-verify-token")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.APIPort != 8080 {
		t.Errorf("APIPort = %d, want 8080", cfg.APIPort)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %s, want info", cfg.LogLevel)
	}
	if cfg.DefaultLanguage != "en" {
		t.Errorf("DefaultLanguage = %s, want en", cfg.DefaultLanguage)
	}
	if cfg.SendRateLimitPerSec != 10 {
		t.Errorf("SendRateLimitPerSec = %d, want 10", cfg.SendRateLimitPerSec)
	}
	if cfg.TemplateCacheTTL != 5*time.Minute {
		t.Errorf("TemplateCacheTTL = %v, want 5m", cfg.TemplateCacheTTL)
	}
	if cfg.WhatsAppAPIURL != "https://graph.facebook.com/v18.0" {
		t.Errorf("WhatsAppAPIURL = %s, want graph default", cfg.WhatsAppAPIURL)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("API_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DEFAULT_LANGUAGE", "es")
	t.Setenv("SEND_RATE_LIMIT_PER_SEC", "25")
	t.Setenv("TEMPLATE_CACHE_TTL", "90s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.APIPort != 9090 {
		t.Errorf("APIPort = %d, want 9090", cfg.APIPort)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %s, want debug", cfg.LogLevel)
	}
	if cfg.DefaultLanguage != "es" {
		t.Errorf("DefaultLanguage = %s, want es", cfg.DefaultLanguage)
	}
	if cfg.SendRateLimitPerSec != 25 {
		t.Errorf("SendRateLimitPerSec = %d, want 25", cfg.SendRateLimitPerSec)
	}
	if cfg.TemplateCacheTTL != 90*time.Second {
		t.Errorf("TemplateCacheTTL = %v, want 90s", cfg.TemplateCacheTTL)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("DATABASE_DSN", "host=localhost")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing required env vars, got nil")
	}
}

func TestLoad_RequiredFields(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DatabaseDSN == "" {
		t.Error("DatabaseDSN should not be empty")
	}
	if cfg.RedisURL == "" {
		t.Error("RedisURL should not be empty")
	}
	if cfg.WhatsAppAccessToken == "" {
		t.Error("WhatsAppAccessToken should not be empty")
	}
	if cfg.WebhookVerifyToken == "" {
		t.Error("WebhookVerifyToken should not be empty")
	}
}
