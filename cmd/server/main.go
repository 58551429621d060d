// Package main runs the pulsedeck HTTP API server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pulsedeck/backend/config"
	"github.com/pulsedeck/backend/internal/auth"
	"github.com/pulsedeck/backend/internal/middleware"
	"github.com/pulsedeck/backend/internal/organizations"
	"github.com/pulsedeck/backend/internal/signals"
	"github.com/pulsedeck/backend/internal/toolbar"
	"github.com/pulsedeck/backend/pkg/database"
	"github.com/pulsedeck/backend/pkg/queue"
	"github.com/pulsedeck/backend/pkg/redis"
	"github.com/pulsedeck/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	eventsPool, err := database.NewPostgresPool(ctx, cfg.Events.URL, logger)
	if err != nil {
		logger.Fatal("events database", zap.Error(err))
	}
	defer eventsPool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Usage signals
	orgRepo := organizations.NewRepository(pool)
	eventRepo := signals.NewEventRepository(eventsPool, time.Duration(cfg.Events.QueryTimeoutSecs)*time.Second)
	signalsService := signals.NewService(eventRepo, orgRepo, logger)
	signalsHandler := signals.NewHandler(signalsService, orgRepo)

	// Toolbar OAuth
	stateService := toolbar.NewStateService(cfg.Toolbar.StateSecret, time.Duration(cfg.Toolbar.StateTTLMinutes)*time.Minute)
	replayGuard := toolbar.NewRedisReplayGuard(rdb.Client)
	appRepo := toolbar.NewAppRepository(pool)
	exchangeService := toolbar.NewExchangeService(cfg.Toolbar.AuthServerURL, logger)
	toolbarHandler := toolbar.NewHandler(
		cfg.Toolbar.Enabled, cfg.Server.SiteURL,
		authRepo, appRepo, stateService, replayGuard, exchangeService, logger,
	)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	router.POST("/auth/login", authHandler.Login)

	// Toolbar OAuth callback (browser redirect; session cookie auth)
	callbackGroup := router.Group("")
	callbackGroup.Use(middleware.JWT(jwtService))
	callbackGroup.GET(toolbar.CallbackPath, toolbarHandler.Callback)

	// Protected API (JWT required)
	api := router.Group("/api")
	api.Use(middleware.JWT(jwtService))
	{
		api.GET("/organizations/:id/usage-signals", signalsHandler.GetForOrganization)

		api.POST("/enrichment/run", middleware.RequireRole("admin"), func(c *gin.Context) {
			var payload queue.EnrichmentRunPayload
			_ = c.ShouldBindJSON(&payload) // all fields optional
			if err := jobQueue.EnqueueEnrichmentRun(c.Request.Context(), payload); err != nil {
				response.Internal(c, "failed to enqueue enrichment run")
				return
			}
			response.OK(c, gin.H{"enqueued": true})
		})

		api.POST("/user/toolbar_oauth_start", toolbarHandler.Start)
		api.POST("/user/toolbar_oauth_exchange", toolbarHandler.Exchange)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
