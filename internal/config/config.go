package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config is read from the environment. A .env file in the working directory
// is loaded first when present; real environment variables win over it.
type Config struct {
	Port           string
	DatabaseURL    string
	StoreDriver    string
	ClerkSecretKey string
	FamilyTimezone *time.Location
	RedisURL       string

	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int

	MetricsUser string
	MetricsPass string

	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads .env (if any) and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function so tests can supply a map.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	var errs []error

	getInt := func(key string, def int) int {
		raw := get(key, "")
		if raw == "" {
			return def
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			errs = append(errs, fmt.Errorf("%s must be a non-negative integer, got %q", key, raw))
			return def
		}
		return v
	}

	cfg := &Config{
		Port:           get("PORT", "3333"),
		DatabaseURL:    get("DATABASE_URL", ""),
		StoreDriver:    strings.ToLower(get("STORE_DRIVER", DriverPostgres)),
		ClerkSecretKey: get("CLERK_SECRET_KEY", ""),
		RedisURL:       get("REDIS_URL", ""),
		LogLevel:       strings.ToLower(get("LOG_LEVEL", "info")),
		LogPath:        get("LOG_PATH", ""),
		LogMaxSizeMB:   getInt("LOG_MAX_SIZE_MB", 100),
		LogMaxBackups:  getInt("LOG_MAX_BACKUPS", 3),
		LogMaxAgeDays:  getInt("LOG_MAX_AGE_DAYS", 7),
		MetricsUser:    get("METRICS_USER", ""),
		MetricsPass:    get("METRICS_PASS", ""),
		RateLimitBurst: getInt("RATE_LIMIT_BURST", 20),
	}

	rps := get("RATE_LIMIT_RPS", "10")
	if v, err := strconv.ParseFloat(rps, 64); err != nil || v <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_RPS must be a positive number, got %q", rps))
	} else {
		cfg.RateLimitRPS = v
	}

	tz := get("FAMILY_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		errs = append(errs, fmt.Errorf("FAMILY_TIMEZONE %q: %w", tz, err))
		loc = time.UTC
	}
	cfg.FamilyTimezone = loc

	switch cfg.StoreDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL environment variable is not set"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverMemory, cfg.StoreDriver))
	}

	if cfg.ClerkSecretKey == "" {
		errs = append(errs, errors.New("CLERK_SECRET_KEY environment variable is not set"))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
