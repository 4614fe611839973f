package config

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN           string        `env:"DATABASE_DSN,required=true"`
	RedisURL              string        `env:"REDIS_URL,required=true"`
	WhatsAppAPIURL        string        `env:"WHATSAPP_API_URL,default=https://graph.facebook.com/v18.0"`
	WhatsAppPhoneNumberID string        `env:"WHATSAPP_PHONE_NUMBER_ID,required=true"`
	WhatsAppAccessToken   string        `env:"WHATSAPP_ACCESS_TOKEN,required=true"`
	WebhookVerifyToken    string        `env:"WEBHOOK_VERIFY_TOKEN,required=true"`
	DefaultLanguage       string        `env:"DEFAULT_LANGUAGE,default=en"`
	SendRateLimitPerSec   int           `env:"SEND_RATE_LIMIT_PER_SEC,default=10"`
	TemplateCacheTTL      time.Duration `env:"TEMPLATE_CACHE_TTL,default=5m"`
	APIPort               int           `env:"API_PORT,default=8080"`
	LogLevel              string        `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
