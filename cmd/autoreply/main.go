package main

import (
	"context"
	"time"

	"github.com/Pbezama/admin-panel-back/internal/approval"
	"github.com/Pbezama/admin-panel-back/internal/events"
	"github.com/Pbezama/admin-panel-back/internal/generation"
	"github.com/Pbezama/admin-panel-back/internal/graph"
	"github.com/Pbezama/admin-panel-back/internal/guard"
	"github.com/Pbezama/admin-panel-back/internal/handlers"
	"github.com/Pbezama/admin-panel-back/internal/knowledge"
	"github.com/Pbezama/admin-panel-back/internal/processor"
	"github.com/Pbezama/admin-panel-back/internal/store"
	"github.com/Pbezama/admin-panel-back/internal/whatsapp"
	"github.com/Pbezama/admin-panel-back/pkg/config"
	"github.com/Pbezama/admin-panel-back/pkg/database"
	"github.com/Pbezama/admin-panel-back/pkg/logging"
	"github.com/Pbezama/admin-panel-back/pkg/middleware"
	"github.com/Pbezama/admin-panel-back/pkg/monitoring"
	"github.com/Pbezama/admin-panel-back/pkg/server"
	"github.com/Pbezama/admin-panel-back/pkg/version"

	"github.com/redis/go-redis/v9"
)

const lockSweepInterval = time.Hour

func main() {
	logger := logging.NewLoggerWithService("autoreply")
	config.LoadEnv(logger)

	logger.Info("Starting Autoreply (Social Webhook Responder)")

	// Required config
	databaseURL := config.RequireEnv("DATABASE_URL")
	verifyToken := config.RequireEnv("META_VERIFY_TOKEN")
	serviceToken := config.RequireEnv("SERVICE_TOKEN")

	openAIKey := config.GetEnv("OPENAI_API_KEY", "")
	openAIModel := config.GetEnv("OPENAI_MODEL", "gpt-4o-mini")
	graphAPIURL := config.GetEnv("GRAPH_API_URL", "")
	whatsappToken := config.GetEnv("WHATSAPP_ACCESS_TOKEN", "")
	whatsappPhoneID := config.GetEnv("WHATSAPP_PHONE_NUMBER_ID", "")
	dashboardURL := config.GetEnv("DASHBOARD_URL", "")

	// Ports
	httpPort := config.GetEnv("AUTOREPLY_PORT", "18020")
	webhookLimitPerMin := config.GetEnvInt("AUTOREPLY_WEBHOOK_RATE_LIMIT_PER_MIN", 600)

	// Setup monitoring
	healthChecker := monitoring.NewHealthChecker("autoreply", version.Version)
	metricsCollector := monitoring.NewMetricsCollector("autoreply", version.Version, version.GitCommit)

	healthChecker.AddCheck("config", monitoring.ConfigurationHealthCheck(map[string]string{
		"META_VERIFY_TOKEN": verifyToken,
		"OPENAI_API_KEY":    openAIKey,
	}))

	// Database
	dbConfig := database.DefaultConfig()
	dbConfig.URL = databaseURL
	db := database.MustConnect(dbConfig, logger)
	defer func() { _ = db.Close() }()
	healthChecker.AddCheck("database", monitoring.DatabaseHealthCheck(db))

	if config.GetEnvBool("DATABASE_APPLY_SCHEMA", false) {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		if err := database.ApplySchema(ctx, db, logger); err != nil {
			logger.WithError(err).Fatal("Failed to apply database schema")
		}
		cancel()
	}

	repo := store.New(db, logger)

	// Redis is optional; without it deduplication does not survive a
	// restart but the in-memory guard still works.
	redisAddr := config.GetEnv("REDIS_ADDR", "")
	var redisClient *redis.Client
	if redisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: redisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("Failed to connect to Redis; webhook deduplication disabled")
			redisClient = nil
		}
		cancel()
	}
	healthChecker.AddCheck("redis", monitoring.RedisHealthCheck(redisClient))

	// Loop guard, seeded with every connected account id
	loopGuard := guard.New(logger, redisClient)
	{
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		ownIDs, err := repo.ListOwnAccountIDs(ctx)
		cancel()
		if err != nil {
			logger.WithError(err).Fatal("Failed to load connected account ids")
		}
		for _, id := range ownIDs {
			loopGuard.AddOwnID(id)
		}
		logger.WithField("count", len(ownIDs)).Info("Loop guard seeded with connected accounts")
	}

	// Expired comment locks are swept periodically so a crashed worker
	// cannot block a comment forever.
	go func() {
		ticker := time.NewTicker(lockSweepInterval)
		defer ticker.Stop()
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if _, err := repo.SweepExpiredLocks(ctx); err != nil {
				logger.WithError(err).Warn("Lock sweep failed")
			}
			cancel()
		}
	}()

	// Outbound clients
	graphClient := graph.NewClient(graphAPIURL, logger)
	whatsappClient := whatsapp.NewClient(whatsapp.Config{
		AccessToken:   whatsappToken,
		PhoneNumberID: whatsappPhoneID,
	}, logger)
	if !whatsappClient.Enabled() {
		logger.Warn("WhatsApp credentials missing; approval requests fall back to dashboard-only")
	}

	generator := generation.NewOpenAIGenerator(generation.Config{
		APIKey: openAIKey,
		Model:  openAIModel,
	}, logger)

	assembler := knowledge.NewAssembler(repo, logger)
	approvalFlow := approval.NewManager(repo, graphClient, whatsappClient, dashboardURL, logger)

	webhookEvents, webhookDropped, webhookDuration := metricsCollector.CreateWebhookMetrics()
	replies, decisions := metricsCollector.CreateReplyMetrics()
	pipelineMetrics := &processor.Metrics{
		Events:    webhookEvents,
		Dropped:   webhookDropped,
		Duration:  webhookDuration,
		Replies:   replies,
		Decisions: decisions,
	}

	pipeline := processor.New(repo, loopGuard, assembler, generator, graphClient, approvalFlow, pipelineMetrics, logger)

	// Initialize HTTP handlers
	handlerMetrics := &handlers.Metrics{
		WebhooksReceived: metricsCollector.NewCounter("webhooks_received_total", "Webhook deliveries received", []string{"source", "object"}),
		WebhooksRejected: metricsCollector.NewCounter("webhooks_rejected_total", "Webhook deliveries rejected before processing", []string{"source", "reason"}),
	}
	var limiter *handlers.WebhookRateLimiter
	if webhookLimitPerMin > 0 {
		limiter = handlers.NewWebhookRateLimiter(webhookLimitPerMin, time.Minute, 10*time.Minute)
	}
	handlers.Init(handlers.Dependencies{
		Logger:       logger,
		Metrics:      handlerMetrics,
		Normalizer:   events.NewNormalizer(logger),
		Pipeline:     pipeline,
		Guard:        loopGuard,
		RateLimiter:  limiter,
		VerifyToken:  verifyToken,
		ServiceToken: serviceToken,
	})

	// Setup HTTP router (SetupServiceRouter adds /health and /metrics)
	router := server.SetupServiceRouter(logger, "autoreply", healthChecker, metricsCollector)

	// Webhook routes (no auth - Meta calls these; the handshake uses the verify token)
	webhooks := router.Group("/webhooks")
	{
		webhooks.GET("/meta", handlers.VerifyWebhook)
		webhooks.POST("/meta", handlers.HandleMetaWebhook)
		webhooks.GET("/whatsapp", handlers.VerifyWebhook)
		webhooks.POST("/whatsapp", handlers.HandleWhatsAppWebhook)
	}

	// Service routes for the dashboard
	api := router.Group("/api", middleware.ServiceAuthMiddleware(serviceToken))
	{
		api.POST("/rules/decision", handlers.HandleRuleDecision)
		api.GET("/diagnostics", handlers.HandleDiagnostics)
	}

	// Start HTTP server with graceful shutdown
	serverConfig := server.DefaultConfig("autoreply", httpPort)
	if err := server.Start(serverConfig, router, logger); err != nil {
		logger.WithError(err).Fatal("HTTP server failed")
	}
}
