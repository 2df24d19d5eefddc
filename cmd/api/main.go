package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"

	"github.com/tokoanjar/pos-api/internal/auth"
	"github.com/tokoanjar/pos-api/internal/cart"
	"github.com/tokoanjar/pos-api/internal/catalog"
	"github.com/tokoanjar/pos-api/internal/checkout"
	"github.com/tokoanjar/pos-api/internal/common"
	"github.com/tokoanjar/pos-api/internal/config"
	"github.com/tokoanjar/pos-api/internal/events"
	"github.com/tokoanjar/pos-api/internal/health"
	"github.com/tokoanjar/pos-api/internal/jobs"
	"github.com/tokoanjar/pos-api/internal/lock"
	"github.com/tokoanjar/pos-api/internal/obs"
	"github.com/tokoanjar/pos-api/internal/pricing"
	"github.com/tokoanjar/pos-api/internal/ratelimit"
	"github.com/tokoanjar/pos-api/internal/receipt"
	"github.com/tokoanjar/pos-api/internal/report"
	"github.com/tokoanjar/pos-api/internal/restock"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	obs.RegisterDomainMetrics(nil)

	shutdownTracer, err := obs.InitTracer(context.Background(), "pos-api",
		envOrDefault("OBS_OTLP_ENDPOINT", ""), cfg.AppEnv)
	if err != nil {
		logger.Error().Err(err).Msg("initialise tracing")
	} else {
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				logger.Error().Err(err).Msg("shutdown tracer")
			}
		}()
	}

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Fatal().Err(err).Str("tz", cfg.Timezone).Msg("load timezone")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "pos-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
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
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	taskClient := asynq.NewClient(asynq.RedisClientOpt{Addr: redisOpts.Addr, Password: redisOpts.Password, DB: redisOpts.DB})
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()

	validate := validator.New()

	catalogSvc := catalog.NewService(catalog.ServiceConfig{
		Store:             catalog.Store{DB: pool},
		Cache:             catalog.NewCache(redisClient, cfg.CatalogCacheTTL),
		Validate:          validate,
		LowStockThreshold: cfg.LowStockThreshold,
	})
	catalogHandler := catalog.NewHandler(catalogSvc)

	authService, err := auth.NewService(auth.ServiceConfig{
		Pool:      pool,
		Secret:    cfg.JWTSecret,
		AccessTTL: cfg.AccessTokenTTL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise auth service")
	}
	authHandler := auth.NewHandler(authService)
	authMiddleware := auth.Middleware{Service: authService}
	hours := auth.Hours{Open: cfg.OpenHour, Close: cfg.CloseHour, Location: location}

	loginLimiter, err := ratelimit.NewLoginLimiter(redisClient, cfg.LoginRateLimit)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise login limiter")
	}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}

	cartSvc := &cart.Service{
		R:             redisClient,
		Products:      catalog.Store{DB: pool},
		TTL:           cfg.CartTTL,
		CopyBasePrice: pricing.Money(cfg.CopyBasePrice),
	}
	cartHandler := cart.NewHandler(cartSvc)

	bus := &events.Bus{Store: events.PGStore{DB: pool}}

	policy := pricing.Policy{ManualCopyProfit: pricing.ManualCopyProfitZero}
	if cfg.ManualCopyProfitRevenue {
		policy.ManualCopyProfit = pricing.ManualCopyProfitRevenue
	}

	checkoutSvc := &checkout.Service{
		Pool:     pool,
		Carts:    cartSvc,
		Locker:   lock.Locker{R: redisClient},
		Bus:      bus,
		Jobs:     jobs.Enqueuer{Client: taskClient},
		Validate: validate,
		Policy:   policy,
		LockTTL:  cfg.CheckoutLockTTL,
	}
	checkoutHandler := checkout.NewHandler(checkoutSvc)

	receiptHandler := receipt.NewHandler(receipt.Store{DB: pool}, location)

	restockHandler := restock.NewHandler(restock.NewService(restock.Store{DB: pool}, validate))

	reportSvc := &report.Service{
		DB:       pool,
		R:        redisClient,
		TTL:      cfg.ReportCacheTTL,
		Location: location,
	}
	reportHandler := report.NewHandler(reportSvc)

	buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
	httpMetrics := obs.NewHTTPMetrics("pos", buckets, nil)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	r.Use(obs.TracingMiddleware)
	r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"X-Total-Count"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.Handler())

	healthHandler := health.Handler{
		Checker: health.Probes{
			Pool:        pool,
			Redis:       redisClient,
			PrinterDial: printerProbe(cfg.PrinterAddr),
		},
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.With(ratelimit.Middleware(loginLimiter)).Post("/auth/login", authHandler.Login)

		v.Group(func(protected chi.Router) {
			protected.Use(authMiddleware.RequireAuth)
			authHandler.MountProtected(protected)
			cartHandler.Mount(protected)
			receiptHandler.Mount(protected)
			restockHandler.Mount(protected)

			protected.Get("/products", catalogHandler.List)
			protected.Get("/products/low-stock", catalogHandler.LowStock)
			protected.Get("/products/barcode/{code}", catalogHandler.GetByBarcode)
			protected.Get("/products/{id}", catalogHandler.Get)
			protected.Get("/categories", catalogHandler.Categories)

			protected.Group(func(sell chi.Router) {
				sell.Use(hours.Middleware)
				sell.Use(idem.Middleware)
				checkoutHandler.Mount(sell)
			})
		})

		v.Route("/admin", func(admin chi.Router) {
			admin.Use(authMiddleware.RequireRole(auth.RoleAdmin))
			authHandler.MountAdmin(admin)
			admin.Post("/products", catalogHandler.Create)
			admin.Put("/products/{id}", catalogHandler.Update)
			admin.Delete("/products/{id}", catalogHandler.Delete)
			admin.Post("/products/{id}/stock", catalogHandler.AdjustStock)
			reportHandler.Mount(admin)
		})
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown server")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func printerProbe(addr string) func(context.Context) error {
	if addr == "" {
		return nil
	}
	return func(ctx context.Context) error {
		d := net.Dialer{}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return err
		}
		return conn.Close()
	}
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
