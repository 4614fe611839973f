package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ordernotify/whatsapp-dispatch/internal/domain"
	"github.com/ordernotify/whatsapp-dispatch/internal/template"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultTemplateTTL = 5 * time.Minute

var _ template.Cache = (*TemplateCache)(nil)

// TemplateCache is a read-through cache for active templates. Cache failures
// are logged and degrade to repository reads, never surfaced to callers.
type TemplateCache struct {
	client *goredis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewTemplateCache(client *goredis.Client, ttl time.Duration, logger *zap.Logger) (*TemplateCache, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if ttl <= 0 {
		ttl = defaultTemplateTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &TemplateCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}, nil
}

func templateKey(name, language string) string {
	return fmt.Sprintf("tpl:%s:%s", name, language)
}

func (c *TemplateCache) Get(ctx context.Context, name, language string) (*domain.Template, bool) {
	raw, err := c.client.Get(ctx, templateKey(name, language)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("template cache read failed",
			zap.String("template", name),
			zap.String("language", language),
			zap.Error(err),
		)
		return nil, false
	}

	var tpl domain.Template
	if err := json.Unmarshal(raw, &tpl); err != nil {
		c.logger.Warn("template cache entry corrupt, ignoring",
			zap.String("template", name),
			zap.String("language", language),
			zap.Error(err),
		)
		return nil, false
	}

	return &tpl, true
}

func (c *TemplateCache) Set(ctx context.Context, tpl *domain.Template) {
	if tpl == nil {
		return
	}

	raw, err := json.Marshal(tpl)
	if err != nil {
		c.logger.Warn("template cache encode failed",
			zap.String("template", tpl.Name),
			zap.Error(err),
		)
		return
	}

	if err := c.client.Set(ctx, templateKey(tpl.Name, tpl.Language), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("template cache write failed",
			zap.String("template", tpl.Name),
			zap.Error(err),
		)
	}
}
