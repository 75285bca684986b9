package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultPort              = "8080"
	defaultDatabaseURL       = "studio.db"
	defaultJWTSecret         = "change-me-jwt-secret"
	defaultJWTRefreshSecret  = "change-me-jwt-refresh-secret"
	defaultJWTAccessTTL      = "50m"
	defaultJWTRefreshTTL     = "168h"
	defaultClientURL         = "http://localhost:5173"
	defaultExchangeTimeout   = "10s"
	defaultBookingLockTTL    = "10s"
	defaultSweepInterval     = "24h"
	defaultCORSAllowedOrigin = "http://localhost:5173"
)

type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string

	JWTSecret        string
	JWTRefreshSecret string
	JWTAccessTTL     time.Duration
	JWTRefreshTTL    time.Duration
	CookieSecure     bool

	GoogleClientID        string
	GoogleClientSecret    string
	GoogleRedirectURL     string
	GoogleExchangeTimeout time.Duration

	ClientURL          string
	AdminEmail         string
	CORSAllowedOrigins []string

	RedisAddr      string
	RedisPassword  string
	BookingLockTTL time.Duration

	CompletionSweepInterval time.Duration
}

// Load reads configuration from the environment. Variables from a .env file
// in the working directory are applied first without overriding the process env.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = strings.TrimSpace(os.Getenv("NODE_ENV"))
	}
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.Port = strings.TrimSpace(getEnv("PORT", defaultPort))
	cfg.DatabaseURL = strings.TrimSpace(getEnv("DATABASE_URL", defaultDatabaseURL))
	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))
	cfg.JWTRefreshSecret = strings.TrimSpace(getEnv("JWT_REFRESH_SECRET", defaultJWTRefreshSecret))

	var err error
	if cfg.JWTAccessTTL, err = parseDurationEnv("JWT_ACCESS_TTL", defaultJWTAccessTTL); err != nil {
		return nil, err
	}
	if cfg.JWTRefreshTTL, err = parseDurationEnv("JWT_REFRESH_TTL", defaultJWTRefreshTTL); err != nil {
		return nil, err
	}
	if cfg.GoogleExchangeTimeout, err = parseDurationEnv("GOOGLE_EXCHANGE_TIMEOUT", defaultExchangeTimeout); err != nil {
		return nil, err
	}
	if cfg.BookingLockTTL, err = parseDurationEnv("BOOKING_LOCK_TTL", defaultBookingLockTTL); err != nil {
		return nil, err
	}
	if cfg.CompletionSweepInterval, err = parseDurationEnv("COMPLETION_SWEEP_INTERVAL", defaultSweepInterval); err != nil {
		return nil, err
	}

	secureDefault := "false"
	if cfg.IsProduction() {
		secureDefault = "true"
	}
	cfg.CookieSecure = parseBoolEnv("COOKIE_SECURE", secureDefault)

	cfg.GoogleClientID = strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_ID"))
	cfg.GoogleClientSecret = strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_SECRET"))
	cfg.GoogleRedirectURL = strings.TrimSpace(os.Getenv("GOOGLE_REDIRECT_URL"))
	cfg.ClientURL = strings.TrimRight(strings.TrimSpace(getEnv("CLIENT_URL", defaultClientURL)), "/")
	cfg.AdminEmail = strings.ToLower(strings.TrimSpace(os.Getenv("ADMIN_EMAIL")))
	cfg.CORSAllowedOrigins = splitList(getEnv("CORS_ALLOWED_ORIGINS", defaultCORSAllowedOrigin))

	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	log.Printf("config loaded: env=%s port=%s cookie_secure=%t google=%t redis=%t sweep_interval=%s",
		cfg.AppEnv, cfg.Port, cfg.CookieSecure, cfg.GoogleEnabled(), cfg.RedisAddr != "", cfg.CompletionSweepInterval)

	return cfg, nil
}

// GoogleEnabled reports whether the federated login routes can be served.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}

func (c *Config) IsProduction() bool {
	return isProdLike(c.AppEnv)
}

func validateConfig(cfg *Config) error {
	if cfg.JWTAccessTTL <= 0 {
		return fmt.Errorf("JWT_ACCESS_TTL must be > 0")
	}
	if cfg.JWTRefreshTTL <= cfg.JWTAccessTTL {
		return fmt.Errorf("JWT_REFRESH_TTL must be longer than JWT_ACCESS_TTL")
	}
	if cfg.GoogleExchangeTimeout <= 0 {
		return fmt.Errorf("GOOGLE_EXCHANGE_TIMEOUT must be > 0")
	}
	if cfg.BookingLockTTL <= 0 {
		return fmt.Errorf("BOOKING_LOCK_TTL must be > 0")
	}
	if cfg.CompletionSweepInterval < 0 {
		return fmt.Errorf("COMPLETION_SWEEP_INTERVAL must be >= 0")
	}
	if cfg.JWTSecret == cfg.JWTRefreshSecret {
		return fmt.Errorf("JWT_SECRET and JWT_REFRESH_SECRET must differ")
	}

	if isProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in production JWT_SECRET must be set and not default")
		}
		if isEmptyOrDefault(cfg.JWTRefreshSecret, defaultJWTRefreshSecret) {
			return fmt.Errorf("in production JWT_REFRESH_SECRET must be set and not default")
		}
		if !cfg.CookieSecure {
			return fmt.Errorf("in production COOKIE_SECURE must be true")
		}
	}

	return nil
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseBoolEnv(name, fallback string) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(name, fallback)))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
