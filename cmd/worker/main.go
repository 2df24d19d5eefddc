package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"

	"github.com/tokoanjar/pos-api/internal/catalog"
	"github.com/tokoanjar/pos-api/internal/config"
	"github.com/tokoanjar/pos-api/internal/events"
	"github.com/tokoanjar/pos-api/internal/jobs"
	"github.com/tokoanjar/pos-api/internal/obs"
	"github.com/tokoanjar/pos-api/internal/printer"
	"github.com/tokoanjar/pos-api/internal/receipt"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "worker").Logger()

	obs.RegisterDomainMetrics(nil)

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Fatal().Err(err).Str("tz", cfg.Timezone).Msg("load timezone")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	initCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(initCtx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	if err := pool.Ping(initCtx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(initCtx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	printClient := &printer.Client{
		Transport:      &printer.TCPTransport{Addr: cfg.PrinterAddr},
		ChunkSize:      cfg.PrinterChunkSize,
		ChunkDelay:     cfg.PrinterChunkDelay,
		ConnectTimeout: cfg.PrinterConnectTimeout,
	}

	catalogSvc := catalog.NewService(catalog.ServiceConfig{
		Store:             catalog.Store{DB: pool},
		LowStockThreshold: cfg.LowStockThreshold,
	})

	bus := &events.Bus{Store: events.PGStore{DB: pool}}

	mux := jobs.NewMux(
		jobs.PrintHandler{
			Receipts: receipt.Store{DB: pool},
			Printer:  printClient,
			Location: location,
			Logger:   &logger,
		},
		jobs.LowStockHandler{
			Catalog: catalogSvc,
			Bus:     bus,
			Logger:  &logger,
		},
	)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisOpts.Addr, Password: redisOpts.Password, DB: redisOpts.DB},
		jobs.ServerConfig(),
	)

	go func() {
		<-ctx.Done()
		srv.Shutdown()
	}()

	logger.Info().Msg("worker starting")
	if err := srv.Run(mux); err != nil {
		logger.Fatal().Err(err).Msg("worker exited unexpectedly")
	}
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
