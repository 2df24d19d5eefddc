package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	JWTSecret          string
	CORSAllowedOrigins []string

	AccessTokenTTL time.Duration
	LoginRateLimit string

	CartTTL        time.Duration
	IdempotencyTTL time.Duration
	CheckoutLockTTL time.Duration

	CatalogCacheTTL   time.Duration
	ReportCacheTTL    time.Duration
	LowStockThreshold int

	// CopyBasePrice is the per-sheet price below the first volume tier.
	CopyBasePrice int64

	// ManualCopyProfitRevenue counts photocopy lines as full-revenue
	// profit on manual invoices; the default excludes them.
	ManualCopyProfitRevenue bool

	// Business-hours policy: outside [OpenHour, CloseHour) transactions
	// require the admin role.
	Timezone  string
	OpenHour  int
	CloseHour int

	PrinterAddr           string
	PrinterChunkSize      int
	PrinterChunkDelay     time.Duration
	PrinterConnectTimeout time.Duration
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		JWTSecret:          k.String("JWT_SECRET"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		AccessTokenTTL: parseDuration(k.String("ACCESS_TOKEN_TTL"), "12h"),
		LoginRateLimit: valueOrDefault(k.String("LOGIN_RATE_LIMIT"), "10-M"),

		CartTTL:         parseDuration(k.String("CART_TTL"), "24h"),
		IdempotencyTTL:  parseDuration(k.String("IDEMPOTENCY_TTL"), "10m"),
		CheckoutLockTTL: parseDuration(k.String("CHECKOUT_LOCK_TTL"), "15s"),

		CatalogCacheTTL:   parseDuration(k.String("CATALOG_CACHE_TTL"), "5m"),
		ReportCacheTTL:    parseDuration(k.String("REPORT_CACHE_TTL"), "10m"),
		LowStockThreshold: parseInt(k.String("LOW_STOCK_THRESHOLD"), 5),

		CopyBasePrice: int64(parseInt(k.String("COPY_BASE_PRICE"), 300)),

		ManualCopyProfitRevenue: parseBool(k.String("MANUAL_COPY_PROFIT_REVENUE")),

		Timezone:  valueOrDefault(k.String("SHOP_TIMEZONE"), "Asia/Jakarta"),
		OpenHour:  parseInt(k.String("SHOP_OPEN_HOUR"), 7),
		CloseHour: parseInt(k.String("SHOP_CLOSE_HOUR"), 21),

		PrinterAddr:           k.String("PRINTER_ADDR"),
		PrinterChunkSize:      parseInt(k.String("PRINTER_CHUNK_SIZE"), 20),
		PrinterChunkDelay:     parseDuration(k.String("PRINTER_CHUNK_DELAY"), "50ms"),
		PrinterConnectTimeout: parseDuration(k.String("PRINTER_CONNECT_TIMEOUT"), "10s"),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.OpenHour < 0 || cfg.OpenHour > 23 || cfg.CloseHour < 0 || cfg.CloseHour > 24 {
		return nil, errors.New("shop hours out of range")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		return parsed
	}
	return fallback
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
