package redis

import (
	"context"
	"testing"
	"time"

	"github.com/ordernotify/whatsapp-dispatch/internal/domain"
)

func TestTemplateCacheRoundTrip(t *testing.T) {
	t.Parallel()

	rdb := newTestRedisClient(t)
	cache, err := NewTemplateCache(rdb, time.Minute, nil)
	if err != nil {
		t.Fatalf("NewTemplateCache() error = %v", err)
	}

	ctx := context.Background()

	if _, ok := cache.Get(ctx, "order_confirmation", "en"); ok {
		t.Fatal("Get() on empty cache should miss")
	}

	tpl := &domain.Template{
		ID:        "tpl-1",
		Name:      "order_confirmation",
		Language:  "en",
		Body:      "Hi {{customer_name}}",
		Variables: []string{"customer_name"},
		Active:    true,
	}
	cache.Set(ctx, tpl)

	got, ok := cache.Get(ctx, "order_confirmation", "en")
	if !ok {
		t.Fatal("Get() after Set() should hit")
	}
	if got.Body != tpl.Body || got.Language != "en" {
		t.Fatalf("Get() = %+v, want cached template", got)
	}
	if len(got.Variables) != 1 || got.Variables[0] != "customer_name" {
		t.Fatalf("Get() variables = %v, want [customer_name]", got.Variables)
	}
}

func TestTemplateCacheScopesByLanguage(t *testing.T) {
	t.Parallel()

	rdb := newTestRedisClient(t)
	cache, err := NewTemplateCache(rdb, time.Minute, nil)
	if err != nil {
		t.Fatalf("NewTemplateCache() error = %v", err)
	}

	ctx := context.Background()
	cache.Set(ctx, &domain.Template{Name: "welcome_message", Language: "es", Body: "Hola", Active: true})

	if _, ok := cache.Get(ctx, "welcome_message", "en"); ok {
		t.Fatal("Get() for a different language should miss")
	}
	if _, ok := cache.Get(ctx, "welcome_message", "es"); !ok {
		t.Fatal("Get() for the cached language should hit")
	}
}

func TestTemplateCacheSurvivesCorruptEntry(t *testing.T) {
	t.Parallel()

	rdb := newTestRedisClient(t)
	cache, err := NewTemplateCache(rdb, time.Minute, nil)
	if err != nil {
		t.Fatalf("NewTemplateCache() error = %v", err)
	}

	ctx := context.Background()
	if err := rdb.Set(ctx, templateKey("broken", "en"), "not-json", time.Minute).Err(); err != nil {
		t.Fatalf("failed to seed corrupt entry: %v", err)
	}

	if _, ok := cache.Get(ctx, "broken", "en"); ok {
		t.Fatal("corrupt entry should read as a miss")
	}
}
