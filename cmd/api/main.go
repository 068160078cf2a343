package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/leadflowhq/leadflow/config"
	"github.com/leadflowhq/leadflow/pkg/api/handlers"
	"github.com/leadflowhq/leadflow/pkg/cache"
	"github.com/leadflowhq/leadflow/pkg/crmsync"
	"github.com/leadflowhq/leadflow/pkg/funnel"
	"github.com/leadflowhq/leadflow/pkg/logger"
	"github.com/leadflowhq/leadflow/pkg/metrics"
	custommiddleware "github.com/leadflowhq/leadflow/pkg/middleware"
	"github.com/leadflowhq/leadflow/pkg/models"
	"github.com/leadflowhq/leadflow/pkg/notify"
	"github.com/leadflowhq/leadflow/pkg/pipeline"
	"github.com/leadflowhq/leadflow/pkg/scheduler"
	"github.com/leadflowhq/leadflow/pkg/store"
)

func main() {
	cfg := config.Load()
	appLogger := logger.New(cfg.LogLevel)

	// Initialize Sentry for error tracking
	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.SentryEnvironment,
			TracesSampleRate: 0.2,
			AttachStacktrace: true,
		})
		if err != nil {
			log.Printf("Sentry initialization failed: %v", err)
		} else {
			appLogger.Info("Sentry initialized", "environment", cfg.SentryEnvironment)
			defer sentry.Flush(2 * time.Second)
		}
	}

	ctx := context.Background()

	// Database
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	appLogger.Info("Database connected and migrated")

	// Redis cache
	cacheClient, err := cache.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer cacheClient.Close()
	appLogger.Info("Redis connected")

	// Prometheus metrics
	prometheusMetrics := metrics.New()

	// Services
	funnelService := funnel.NewService(db, cacheClient, appLogger)
	crmService := crmsync.NewService(cfg.CRMEndpointURL, cfg.CRMAuthToken, cfg.CRMTimeout, appLogger)
	composer := notify.NewComposer()
	sender := notify.NewSender(cfg.EmailFrom, cfg.EmailFromName, cfg.SendGridAPIKey, appLogger)
	schedulerService := scheduler.NewService(db, sender, prometheusMetrics, cfg.MaxScheduleWindow, cfg.ExpireGracePeriod, appLogger)
	pipelineService := pipeline.NewService(
		db,
		funnelService,
		crmService,
		composer,
		sender,
		schedulerService,
		prometheusMetrics,
		appLogger,
		cfg.FollowUpDelay,
		cfg.SideEffectTimeout,
	)

	// Background dispatch and reconciliation
	cronRunner := scheduler.NewCronRunner(schedulerService, appLogger)
	if err := cronRunner.SetupJobs(cfg.DispatchInterval); err != nil {
		log.Fatalf("Failed to setup cron jobs: %v", err)
	}
	cronRunner.Start()

	// Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			appLogger.Info("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
			)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	if cfg.SentryDSN != "" {
		e.Use(sentryecho.New(sentryecho.Options{Repanic: true}))
	}
	e.Use(prometheusMetrics.Middleware())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSAllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))
	e.Use(middleware.Gzip())
	e.Use(middleware.Secure())

	rateLimiter := custommiddleware.NewRateLimiter(cfg.RateLimitRequestsPerMinute, cfg.RateLimitBurst)
	e.Use(rateLimiter.RateLimitMiddleware())

	// Handlers
	auditRequestHandler := handlers.NewAuditRequestHandler(pipelineService, db)
	funnelHandler := handlers.NewFunnelHandler(funnelService)

	// Routes
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"service": "leadflow-api",
			"version": "1.0.0",
			"status":  "running",
		})
	})

	e.GET("/health", func(c echo.Context) error {
		healthCtx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		if err := db.Ping(healthCtx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, models.HealthResponse{
				Status:   "unhealthy",
				Services: map[string]string{"database": "unreachable"},
			})
		}
		if err := cacheClient.Redis.Ping(healthCtx).Err(); err != nil {
			return c.JSON(http.StatusServiceUnavailable, models.HealthResponse{
				Status:   "unhealthy",
				Services: map[string]string{"database": "ok", "redis": "unreachable"},
			})
		}
		return c.JSON(http.StatusOK, models.HealthResponse{
			Status:   "healthy",
			Services: map[string]string{"database": "ok", "redis": "ok"},
		})
	})

	e.GET("/metrics", echo.WrapHandler(prometheusMetrics.Handler()))

	v1 := e.Group("/api/v1")
	v1.POST("/audit-requests", auditRequestHandler.Submit)
	v1.GET("/audit-requests/:id", auditRequestHandler.Get)
	v1.GET("/funnel/report", funnelHandler.GetReport)
	v1.POST("/funnel/events", funnelHandler.RecordEvent)

	// Start server
	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
		appLogger.Info("starting server", "address", addr, "environment", cfg.APIEnvironment)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down server")

	cronRunner.Stop()
	pipelineService.Drain()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("server shutdown failed", "error", err)
	}

	appLogger.Info("server stopped")
}
