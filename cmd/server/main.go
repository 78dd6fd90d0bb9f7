package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/Ayesha-Taranum/SourceVoid/config"
	appmodel "github.com/Ayesha-Taranum/SourceVoid/internal/app/model"
	apprepository "github.com/Ayesha-Taranum/SourceVoid/internal/app/repository"
	appserver "github.com/Ayesha-Taranum/SourceVoid/internal/app/server"
	appservice "github.com/Ayesha-Taranum/SourceVoid/internal/app/service"
	"github.com/Ayesha-Taranum/SourceVoid/internal/infra/logger"
	infraNATS "github.com/Ayesha-Taranum/SourceVoid/internal/infra/nats"
	infraPostgres "github.com/Ayesha-Taranum/SourceVoid/internal/infra/postgres"
	infraPrometheus "github.com/Ayesha-Taranum/SourceVoid/internal/infra/prometheus"
	infraRedis "github.com/Ayesha-Taranum/SourceVoid/internal/infra/redis"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	isDev := os.Getenv("APP_ENV") != "production"
	log := logger.MustInit(logger.Config{
		Development: isDev,
		Level:       os.Getenv("LOG_LEVEL"),
	})
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	log.Info("Configuration loaded successfully",
		zap.Int("server_port", cfg.Server.Port),
		zap.String("postgres_host", cfg.Postgres.Host),
		zap.Int("postgres_port", cfg.Postgres.Port),
		zap.String("postgres_db", cfg.Postgres.Database),
		zap.String("redis_host", cfg.Redis.Host),
		zap.Int("redis_port", cfg.Redis.Port),
		zap.String("nats_host", cfg.NATS.Host),
		zap.Int("nats_port", cfg.NATS.Port),
		zap.Duration("room_default_ttl", cfg.Room.DefaultTTL()),
	)

	gormDB, err := infraPostgres.NewGorm(cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to open GORM connection", zap.Error(err))
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatal("Failed to access underlying SQL DB", zap.Error(err))
	}
	defer sqlDB.Close()

	if err := infraPostgres.AutoMigrate(ctx, gormDB, &appmodel.Room{}, &appmodel.ViewEvent{}); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}

	pool, err := infraPostgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to connect to Postgres", zap.Error(err))
	}
	defer pool.Close()

	log.Info("Connected to Postgres successfully")

	redisClient, err := infraRedis.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	log.Info("Connected to Redis successfully")

	natsConn, js, err := infraNATS.Connect(cfg.NATS)
	if err != nil {
		log.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	defer natsConn.Drain()
	log.Info("Connected to NATS successfully", zap.Bool("jetstream_ready", js != nil))

	if !isDev {
		promServer := infraPrometheus.NewServer(cfg.Prometheus)
		go func() {
			log.Info("Starting Prometheus metrics server",
				zap.Int("port", cfg.Prometheus.Port))
			if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Prometheus metrics server stopped unexpectedly", zap.Error(err))
			}
		}()
		defer func() {
			if err := promServer.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("Failed to close Prometheus server", zap.Error(err))
			}
		}()
	} else {
		log.Info("Skipping Prometheus metrics server in development mode")
	}

	roomRepo := apprepository.NewRoomRepository(gormDB)
	viewRepo := apprepository.NewViewEventRepository(gormDB)

	roomService := appservice.NewRoomService(roomRepo, appservice.Options{
		DefaultTTL: cfg.Room.DefaultTTL(),
		IDLength:   cfg.Room.IDLength,
	})

	viewConsumer := appservice.NewViewConsumer(js, log, viewRepo)
	if err := viewConsumer.Start(); err != nil {
		log.Fatal("Failed to start view event consumer", zap.Error(err))
	}

	if cfg.Room.ReaperEnabled {
		grace := parseDurationOr(cfg.Room.ReaperGrace, 24*time.Hour)
		interval := parseDurationOr(cfg.Room.ReaperInterval, 10*time.Minute)
		reaper := appservice.NewReaper(log, roomRepo, grace, interval)
		reaper.Start()
		defer reaper.Stop()
		log.Info("Room reaper started",
			zap.Duration("grace", grace),
			zap.Duration("interval", interval))
	}

	server := appserver.New(appserver.Dependencies{
		Logger:       log,
		Postgres:     pool,
		Redis:        redisClient,
		NATS:         natsConn,
		JetStream:    js,
		Rooms:        roomService,
		Views:        appservice.NewViewPublisher(js),
		CountMetrics: !isDev,
	})

	if err := server.Listen(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
		log.Fatal("Fiber server exited", zap.Error(err))
	}
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return fallback
}
