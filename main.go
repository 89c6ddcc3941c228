package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"slidecollabgo/internal/collab"
	"slidecollabgo/internal/config"
	"slidecollabgo/internal/database/db_client"
	"slidecollabgo/internal/http/http_server"
	"slidecollabgo/internal/redis/redis_client"
	"slidecollabgo/internal/services/presentation"
	"slidecollabgo/internal/services/progress"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	Log, _ = zap.NewDevelopment()
)

func main() {
	defer Log.Sync()
	zap.ReplaceGlobals(Log)

	// 1. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		Log.Fatal("Failed to load configuration", zap.Error(err))
	}
	Log.Debug("Configuration loaded successfully", zap.Any("config", cfg))

	// 2. Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	// 3. Redis (optional: enables the cross-instance fan-out bus and the
	//    generation-progress store)
	var redisClient *redis.Client
	if cfg.RedisEnabled() {
		redisClient, err = redis_client.NewRedisClient(cfg.RedisHost, int(cfg.RedisPort))
		if err != nil {
			Log.Fatal("Failed to create Redis client", zap.Error(err))
		}
		defer redisClient.Close()
		Log.Debug("Redis client created successfully")
	}

	// 4. Postgres db client
	pgDb, err := db_client.Open(cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDb)
	if err != nil {
		Log.Fatal("pg-open", zap.Error(err))
	}
	defer pgDb.Close()

	// 5. Services
	presentationSvc := presentation.NewPresentationService(pgDb)
	var progressSvc progress.IProgressService
	if redisClient != nil {
		progressSvc = progress.NewProgressService(redisClient)
	}

	// 6. Collaboration core: room manager + hub + optional Redis fan-out
	manager := collab.NewRoomManager()
	hub := collab.NewHub()
	var fanout *collab.Fanout
	if redisClient != nil {
		fanout = collab.NewFanout(redisClient, hub)
	}
	wsSrv := collab.NewWsServer(manager, hub, fanout, cfg.AllowedOrigin)

	// 7. HTTP + WS server
	httpServer := http_server.NewHttpServer(ctx, cfg.HttpServerPort, wsSrv, presentationSvc, progressSvc)
	if err := httpServer.Start(); err != nil {
		Log.Fatal("Failed to start HTTP server", zap.Error(err))
	}
}
