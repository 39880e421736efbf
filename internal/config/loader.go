// Package config reads the scheduler's settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/example/cinema-scheduler/internal/application"
	"github.com/example/cinema-scheduler/internal/clock"
	"github.com/example/cinema-scheduler/internal/interval"
	"github.com/example/cinema-scheduler/internal/logging"
	"github.com/example/cinema-scheduler/internal/room"
)

// Store backends selectable through SCHEDULER_STORE.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Config captures environment driven configuration values for the scheduler service.
type Config struct {
	HTTPPort int

	CatalogPath   string
	CatalogReload time.Duration

	Store         string
	SQLiteDSN     string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	OpeningHours room.TimeRange
	StaleRetries int

	AMQPURL string

	LogLevel  slog.Level
	LogFormat string

	RateLimit float64
	RateBurst int
}

// Load reads an optional .env file from the working directory and then
// parses configuration values from the process environment. Variables that
// are already set take precedence over the file.
//
// Defaults are applied for optional fields; missing and invalid entries are
// collected and reported together.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("read .env: %w", err)
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv parses configuration values through lookup.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := Config{
		HTTPPort:      8080,
		CatalogReload: 30 * time.Second,
		Store:         StoreMemory,
		SQLiteDSN:     "scheduler.db",
		RedisAddr:     "localhost:6379",
		RedisPrefix:   "cinema",
		OpeningHours:  application.DefaultOpeningHours,
		StaleRetries:  application.DefaultMaxStaleRetries,
		LogLevel:      slog.LevelInfo,
		LogFormat:     "json",
		RateBurst:     20,
	}

	get := func(key string) string {
		value, _ := lookup(key)
		return strings.TrimSpace(value)
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if portValue := get("SCHEDULER_HTTP_PORT"); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "SCHEDULER_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if path := get("SCHEDULER_CATALOG_PATH"); path == "" {
		missing = append(missing, "SCHEDULER_CATALOG_PATH")
	} else {
		cfg.CatalogPath = path
	}

	if reloadValue := get("SCHEDULER_CATALOG_RELOAD"); reloadValue != "" {
		reload, err := time.ParseDuration(reloadValue)
		if err != nil || reload < 0 {
			invalid = append(invalid, "SCHEDULER_CATALOG_RELOAD")
		} else {
			cfg.CatalogReload = reload
		}
	}

	if store := strings.ToLower(get("SCHEDULER_STORE")); store != "" {
		switch store {
		case StoreMemory, StoreSQLite, StoreRedis:
			cfg.Store = store
		default:
			invalid = append(invalid, "SCHEDULER_STORE")
		}
	}

	if dsn := get("SCHEDULER_SQLITE_DSN"); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if addr := get("SCHEDULER_REDIS_ADDR"); addr != "" {
		cfg.RedisAddr = addr
	}
	cfg.RedisPassword, _ = lookup("SCHEDULER_REDIS_PASSWORD")
	if dbValue := get("SCHEDULER_REDIS_DB"); dbValue != "" {
		db, err := strconv.Atoi(dbValue)
		if err != nil || db < 0 {
			invalid = append(invalid, "SCHEDULER_REDIS_DB")
		} else {
			cfg.RedisDB = db
		}
	}
	if prefix := get("SCHEDULER_REDIS_PREFIX"); prefix != "" {
		cfg.RedisPrefix = prefix
	}

	if hoursValue := get("SCHEDULER_OPENING_HOURS"); hoursValue != "" {
		hours, err := ParseOpeningHours(hoursValue)
		if err != nil {
			invalid = append(invalid, "SCHEDULER_OPENING_HOURS")
		} else {
			cfg.OpeningHours = hours
		}
	}

	if retriesValue := get("SCHEDULER_STALE_RETRIES"); retriesValue != "" {
		retries, err := strconv.Atoi(retriesValue)
		if err != nil || retries < 0 {
			invalid = append(invalid, "SCHEDULER_STALE_RETRIES")
		} else {
			cfg.StaleRetries = retries
		}
	}

	cfg.AMQPURL = get("SCHEDULER_AMQP_URL")

	if levelValue := get("SCHEDULER_LOG_LEVEL"); levelValue != "" {
		level, err := logging.ParseLevel(levelValue)
		if err != nil {
			invalid = append(invalid, "SCHEDULER_LOG_LEVEL")
		} else {
			cfg.LogLevel = level
		}
	}

	if format := strings.ToLower(get("SCHEDULER_LOG_FORMAT")); format != "" {
		if format != "json" && format != "text" {
			invalid = append(invalid, "SCHEDULER_LOG_FORMAT")
		} else {
			cfg.LogFormat = format
		}
	}

	if rateValue := get("SCHEDULER_RATE_LIMIT"); rateValue != "" {
		rate, err := strconv.ParseFloat(rateValue, 64)
		if err != nil || rate < 0 {
			invalid = append(invalid, "SCHEDULER_RATE_LIMIT")
		} else {
			cfg.RateLimit = rate
		}
	}

	if burstValue := get("SCHEDULER_RATE_BURST"); burstValue != "" {
		burst, err := strconv.Atoi(burstValue)
		if err != nil || burst <= 0 {
			invalid = append(invalid, "SCHEDULER_RATE_BURST")
		} else {
			cfg.RateBurst = burst
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// ParseOpeningHours parses "HH:MM-HH:MM" with the start before the end.
func ParseOpeningHours(value string) (room.TimeRange, error) {
	startValue, endValue, ok := strings.Cut(value, "-")
	if !ok {
		return room.TimeRange{}, fmt.Errorf("opening hours %q: expected HH:MM-HH:MM", value)
	}
	start, err := clock.ParseTimeOfDay(strings.TrimSpace(startValue))
	if err != nil {
		return room.TimeRange{}, fmt.Errorf("opening hours %q: %w", value, err)
	}
	end, err := clock.ParseTimeOfDay(strings.TrimSpace(endValue))
	if err != nil {
		return room.TimeRange{}, fmt.Errorf("opening hours %q: %w", value, err)
	}
	if start.Compare(end) >= 0 {
		return room.TimeRange{}, fmt.Errorf("opening hours %q: start must be before end", value)
	}
	return interval.New(start, end), nil
}

// Addr returns the HTTP listen address.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
