package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ordernotify/whatsapp-dispatch/internal/config"
	"github.com/ordernotify/whatsapp-dispatch/internal/handler"
	"github.com/ordernotify/whatsapp-dispatch/internal/infra/postgresql"
	"github.com/ordernotify/whatsapp-dispatch/internal/infra/postgresql/migrations"
	infraredis "github.com/ordernotify/whatsapp-dispatch/internal/infra/redis"
	"github.com/ordernotify/whatsapp-dispatch/internal/observability"
	"github.com/ordernotify/whatsapp-dispatch/internal/provider"
	"github.com/ordernotify/whatsapp-dispatch/internal/repository"
	"github.com/ordernotify/whatsapp-dispatch/internal/service"
	"github.com/ordernotify/whatsapp-dispatch/internal/template"
	"github.com/ordernotify/whatsapp-dispatch/internal/transport"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	messageRepo := repository.NewGormMessageRepo(db)
	templateRepo := repository.NewGormTemplateRepo(db)

	templateCache, err := infraredis.NewTemplateCache(rdb, cfg.TemplateCacheTTL, logger)
	if err != nil {
		logger.Fatal("template cache initialization failed", zap.Error(err))
	}

	templateStore, err := template.NewStore(templateRepo, templateCache, cfg.DefaultLanguage, logger)
	if err != nil {
		logger.Fatal("template store initialization failed", zap.Error(err))
	}

	limiter, err := infraredis.NewSendRateLimiter(rdb, cfg.SendRateLimitPerSec)
	if err != nil {
		logger.Fatal("rate limiter initialization failed", zap.Error(err))
	}

	whatsappProvider, err := provider.NewWhatsAppProvider(cfg.WhatsAppAPIURL, cfg.WhatsAppPhoneNumberID, cfg.WhatsAppAccessToken)
	if err != nil {
		logger.Fatal("whatsapp provider initialization failed", zap.Error(err))
	}

	dispatcher, err := service.NewDispatcher(messageRepo, templateStore, whatsappProvider, limiter, logger)
	if err != nil {
		logger.Fatal("dispatcher initialization failed", zap.Error(err))
	}

	reconciler, err := service.NewReconciler(messageRepo, logger)
	if err != nil {
		logger.Fatal("reconciler initialization failed", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	dispatcher.SetMetrics(metrics)
	reconciler.SetMetrics(metrics)

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(func(c *fiber.Ctx) error {
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			c.SetUserContext(observability.WithCorrelationID(c.UserContext(), rid))
		}
		return c.Next()
	})
	app.Use(metrics.HTTPMiddleware())
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	if err := handler.RegisterMessageRoutes(app, dispatcher); err != nil {
		logger.Fatal("message routes registration failed", zap.Error(err))
	}
	if err := handler.RegisterTemplateRoutes(app, templateStore); err != nil {
		logger.Fatal("template routes registration failed", zap.Error(err))
	}
	if err := handler.RegisterWebhookRoutes(app, reconciler, cfg.WebhookVerifyToken, logger); err != nil {
		logger.Fatal("webhook routes registration failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, groupCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("whatsapp-dispatch api started", zap.Int("port", cfg.APIPort))
		return app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	})

	g.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutdown signal received")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil {
		logger.Error("api terminated", zap.Error(err))
	}
}
