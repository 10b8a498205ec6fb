package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	apployalty "github.com/qualee/backend/internal/application/loyalty"
	"github.com/qualee/backend/internal/domain/loyalty"
	"github.com/qualee/backend/internal/domain/shared"
	"github.com/qualee/backend/internal/infrastructure/cache"
	"github.com/qualee/backend/internal/infrastructure/config"
	"github.com/qualee/backend/internal/infrastructure/event"
	"github.com/qualee/backend/internal/infrastructure/logger"
	"github.com/qualee/backend/internal/infrastructure/notification"
	"github.com/qualee/backend/internal/infrastructure/persistence"
	"github.com/qualee/backend/internal/infrastructure/telemetry"
	"github.com/qualee/backend/internal/interfaces/http/handler"
	"github.com/qualee/backend/internal/interfaces/http/middleware"
	"github.com/qualee/backend/internal/interfaces/http/router"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Version is set at build time with -ldflags "-X main.Version=..."
var Version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting Qualee loyalty backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", Version),
	)

	ctx := context.Background()

	// Telemetry
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.ConfigFrom(cfg.Telemetry), log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfigFrom(cfg.Telemetry), log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	meter := meterProvider.Meter(cfg.Telemetry.ServiceName)

	// Database. The server still starts without one: reads degrade and
	// writes answer 500/503.
	db, dbReason := openDatabase(cfg, log)
	if db != nil {
		defer func() {
			if err := db.Close(); err != nil {
				log.Error("Error closing database", zap.Error(err))
			}
		}()
	}
	availability := persistence.NewAvailabilityProbe(db, dbReason)

	// Redis backs the idempotency store and the shared rate limiter
	var redisClient redis.UniversalClient
	if cfg.Redis.Enabled {
		client, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Warn("Redis unavailable, falling back to in-memory stores", zap.Error(err))
		} else {
			redisClient = client
			defer func() { _ = client.Close() }()
			log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
		}
	}

	idempotencyStore, err := cache.NewIdempotencyStore(cfg.Idempotency, redisClient, log)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() { _ = idempotencyStore.Close() }()
	idempotencyCfg := shared.IdempotencyConfig{Enabled: cfg.Idempotency.Enabled, TTL: cfg.Idempotency.TTL}

	// Event bus: metrics and notifications observe committed changes only
	eventBus := event.NewInMemoryEventBus(log)

	loyaltyMetrics, err := telemetry.NewLoyaltyMetrics(meter, log)
	if err != nil {
		log.Fatal("Failed to register loyalty metrics", zap.Error(err))
	}
	eventBus.Subscribe(loyaltyMetrics, loyaltyMetrics.EventTypes()...)

	var dispatcher *notification.Dispatcher
	if cfg.Notification.Enabled {
		sender, err := notification.NewSender(cfg.Notification, log)
		if err != nil {
			log.Fatal("Failed to create notification sender", zap.Error(err))
		}

		dispatcher = notification.NewDispatcher(sender, cfg.Notification.Workers, cfg.Notification.QueueSize, log,
			notification.WithFailureHook(func(kind notification.Kind, reason string) {
				loyaltyMetrics.RecordNotificationFailure(string(kind), reason)
			}),
		)
		dispatcher.Start()

		notifications := notification.NewHandler(dispatcher)
		eventBus.Subscribe(
			event.NewIdempotentHandler(notifications, idempotencyStore, idempotencyCfg, log),
			notifications.EventTypes()...,
		)
		log.Info("Notifications enabled",
			zap.String("transport", cfg.Notification.Transport),
			zap.Int("workers", cfg.Notification.Workers),
		)
	}

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Services and handlers
	var handlers router.LoyaltyHandlers
	if db != nil {
		handlers = newLoyaltyHandlers(db, availability, eventBus, loyaltyConfig(cfg), log)
	} else {
		handlers = router.LoyaltyHandlers{
			Client:     handler.NewClientHandler(nil, availability),
			Points:     handler.NewPointsHandler(nil, availability),
			Redemption: handler.NewRedemptionHandler(nil, availability),
			Reward:     handler.NewRewardHandler(nil, availability),
			Settings:   handler.NewSettingsHandler(nil),
		}
	}
	systemHandler := handler.NewSystemHandler(Version, availability)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engineCfg := router.EngineConfig{
		Logger:         log,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		CORS:           corsConfig(cfg.HTTP),
		Security:       middleware.DefaultSecurityConfig(),
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		},
		Meter: meter,
	}
	if cfg.HTTP.RateLimitEnabled {
		if redisClient != nil {
			engineCfg.RateLimiter = cache.NewRedisRateLimiter(redisClient, cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		} else {
			local := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
			defer local.Stop()
			engineCfg.RateLimiter = local
		}
	}
	engine := router.NewEngine(engineCfg)

	// Health check stays outside the versioned API
	engine.GET("/health", systemHandler.Health)

	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Register(router.NewLoyaltyRoutes(handlers,
			middleware.RequireAvailable(availability),
			middleware.Idempotency(idempotencyStore, idempotencyCfg, log),
		)).
		Register(router.NewSystemRoutes(systemHandler)).
		Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	// Handlers are done; flush the event pipeline before exporters stop.
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Warn("Error stopping event bus", zap.Error(err))
	}
	if dispatcher != nil {
		if err := dispatcher.Stop(shutdownCtx); err != nil {
			log.Warn("Notifications still queued at shutdown", zap.Error(err))
		}
		stats := dispatcher.Stats()
		log.Info("Notification dispatcher stopped",
			zap.Int64("sent", stats.Sent),
			zap.Int64("dropped", stats.Dropped),
			zap.Int64("failed", stats.Failed),
		)
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Error shutting down meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Error shutting down tracer provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// openDatabase connects to PostgreSQL. On failure it returns nil and the
// reason reported by the availability probe.
func openDatabase(cfg *config.Config, log *zap.Logger) (*persistence.Database, string) {
	if !cfg.Database.IsConfigured() {
		log.Warn("Database is not configured; loyalty writes are disabled")
		return nil, "database is not configured"
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		logger.WithConflictErrors(persistence.IsUniqueViolation))
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Error("Failed to connect to database", zap.Error(err))
		return nil, "database connection failed"
	}

	plugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfigFrom(cfg.Telemetry), log)
	if err := plugin.RegisterOtelGorm(db.DB); err != nil {
		log.Warn("Failed to register database tracing", zap.Error(err))
	}

	log.Info("Database connected successfully")
	return db, ""
}

func newLoyaltyHandlers(
	db *persistence.Database,
	availability apployalty.AvailabilityChecker,
	publisher shared.EventPublisher,
	cfg apployalty.Config,
	log *zap.Logger,
) router.LoyaltyHandlers {
	merchants := persistence.NewGormMerchantRepository(db.DB)
	accounts := persistence.NewGormAccountRepository(db.DB)
	ledger := persistence.NewGormLedgerRepository(db.DB)
	rewards := persistence.NewGormRewardRepository(db.DB)
	redemptions := persistence.NewGormRedemptionRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	accountService := apployalty.NewAccountService(merchants, accounts, txScope, publisher, cfg, log)
	pointsService := apployalty.NewPointsService(merchants, accounts, ledger, txScope, publisher, cfg, log)
	redemptionService := apployalty.NewRedemptionService(accounts, rewards, redemptions, txScope, publisher, cfg, log)
	rewardService := apployalty.NewRewardService(merchants, rewards, redemptions, log)
	merchantService := apployalty.NewMerchantService(merchants, cfg, log)

	return router.LoyaltyHandlers{
		Client:     handler.NewClientHandler(accountService, availability),
		Points:     handler.NewPointsHandler(pointsService, availability),
		Redemption: handler.NewRedemptionHandler(redemptionService, availability),
		Reward:     handler.NewRewardHandler(rewardService, availability),
		Settings:   handler.NewSettingsHandler(merchantService),
	}
}

func loyaltyConfig(cfg *config.Config) apployalty.Config {
	out := apployalty.DefaultConfig()
	out.Defaults = loyalty.LoyaltySettings{
		Enabled:           out.Defaults.Enabled,
		WelcomePoints:     cfg.Loyalty.WelcomePoints,
		PointsPerPurchase: cfg.Loyalty.PointsPerPurchase,
		PurchaseThreshold: decimal.NewFromInt(cfg.Loyalty.PurchaseAmountThreshold),
	}
	out.RedemptionTTL = cfg.Loyalty.RedemptionTTL
	out.CodeAttempts = cfg.Loyalty.CodeAttempts
	out.HistoryLimit = cfg.Loyalty.HistoryPageSize
	out.MaxPageSize = cfg.Loyalty.MaxPageSize
	out.PublicURL = cfg.App.PublicURL
	out.DefaultLanguage = cfg.Loyalty.DefaultLanguage
	return out
}

func corsConfig(cfg config.HTTPConfig) middleware.CORSConfig {
	out := middleware.DefaultCORSConfig()
	if len(cfg.CORSAllowOrigins) > 0 {
		out.AllowOrigins = cfg.CORSAllowOrigins
	}
	if len(cfg.CORSAllowMethods) > 0 {
		out.AllowMethods = cfg.CORSAllowMethods
	}
	if len(cfg.CORSAllowHeaders) > 0 {
		out.AllowHeaders = cfg.CORSAllowHeaders
	}
	return out
}
