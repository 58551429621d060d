// Package main runs the background CRM enrichment worker.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pulsedeck/backend/config"
	"github.com/pulsedeck/backend/internal/crm"
	"github.com/pulsedeck/backend/internal/organizations"
	"github.com/pulsedeck/backend/internal/signals"
	"github.com/pulsedeck/backend/internal/worker"
	"github.com/pulsedeck/backend/pkg/database"
	"github.com/pulsedeck/backend/pkg/queue"
	"github.com/pulsedeck/backend/pkg/redis"
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

	orgRepo := organizations.NewRepository(pool)
	eventRepo := signals.NewEventRepository(eventsPool, time.Duration(cfg.Events.QueryTimeoutSecs)*time.Second)
	signalsService := signals.NewService(eventRepo, orgRepo, logger)

	crmClient := crm.NewClient(cfg.CRM.BaseURL, cfg.CRM.APIToken, time.Duration(cfg.CRM.TimeoutSecs)*time.Second, logger)
	mappingCache := crm.NewMappingCache(rdb.Client, time.Duration(cfg.Enrichment.MappingCacheTTLMins)*time.Minute, logger)

	jobQueue := queue.NewQueue(rdb.Client, logger)
	processor := worker.NewEnrichmentProcessor(signalsService, crmClient, mappingCache, jobQueue, cfg.Enrichment.BatchSize, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go processor.Run(workerCtx)
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
