package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"freightdispatch/config"
	"freightdispatch/pkg/logger"
	"freightdispatch/projection"
	"freightdispatch/service"
	"freightdispatch/storage/postgres"
)

func main() {
	// 1. Load Config
	cfg := config.Load()

	// 2. Initialize Logger
	log := logger.New(cfg.ServiceName, cfg.LoggerLevel)

	ctx := context.Background()

	// 3. Redis client for the load change feed
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	notifier := projection.NewNotifier(rdb, cfg.ChangeFeedChannel, log)

	// 4. Initialize Shared Storage (Postgres + migrations)
	pgStore, err := postgres.New(ctx, cfg, log, notifier)
	if err != nil {
		log.Error("Failed to connect to postgres", logger.Error(err))
		os.Exit(1)
	}
	defer pgStore.Close()

	// 5. Services over the store
	services := service.New(pgStore, log)
	if counts, err := services.Analytics().LoadsByStatus(ctx); err != nil {
		log.Error("Failed to read load counts", logger.Error(err))
	} else {
		log.Info("load collection", logger.Any("by_status", counts))
	}

	// 6. Projection view following the change feed
	view := projection.NewView(rdb, cfg.ChangeFeedChannel, pgStore.Load(), log)
	if err := view.Start(ctx); err != nil {
		log.Error("Failed to start projection view", logger.Error(err))
		os.Exit(1)
	}
	defer view.Stop()

	log.Info("dispatch engine is running",
		logger.Int("pending_loads", len(view.Pending())),
		logger.Int("active_loads", len(view.Active())))

	// 7. Graceful Shutdown listener
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	log.Info("Shutting down...")
}
