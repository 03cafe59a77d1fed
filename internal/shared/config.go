package shared

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv           string        `validate:"required"`
	LogLevel         string        `validate:"oneof=debug info warn error"`
	LogDir           string        // empty disables the log file
	MetricsAddr      string        // empty disables the ops server
	RawDir           string        `validate:"required"`
	ProcessedDir     string        `validate:"required"`
	AppsFile         string        // empty uses DefaultApps
	ReviewCount      int           `validate:"gte=1"`
	Lang             string        `validate:"required"`
	Country          string        `validate:"required,len=2"`
	FeedTimeout      time.Duration `validate:"gt=0"`
	UpstreamRPS      int           `validate:"gte=1"`
	UpstreamTimeout  time.Duration `validate:"gt=0"`
	UpstreamAttempts int           `validate:"gte=1"`
	CleanWorkers     int           `validate:"gte=1"`
	RedisAddr        string        // empty disables the upstream cache
	RedisDB          int           `validate:"gte=0"`
	RedisPass        string
	CacheTTL         time.Duration `validate:"gte=0"`
	MySQLDSN         string        // empty disables the cleaned-review sink
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads the environment, seeded from ./.env when that file exists.
func Load() (Config, error) {
	_ = godotenv.Load()

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:           env("APP_ENV", "prod"),
		LogLevel:         env("LOG_LEVEL", "info"),
		LogDir:           env("LOG_DIR", "logs"),
		MetricsAddr:      os.Getenv("METRICS_ADDR"),
		RawDir:           env("RAW_DIR", "data/raw"),
		ProcessedDir:     env("PROCESSED_DIR", "data/processed"),
		AppsFile:         os.Getenv("APPS_FILE"),
		ReviewCount:      atoi("REVIEW_COUNT", 200),
		Lang:             env("REVIEW_LANG", "en"),
		Country:          env("REVIEW_COUNTRY", "us"),
		FeedTimeout:      time.Duration(atoi("FEED_TIMEOUT_SECONDS", 10)) * time.Second,
		UpstreamRPS:      atoi("UPSTREAM_RPS", 5),
		UpstreamTimeout:  time.Duration(atoi("UPSTREAM_TIMEOUT_SECONDS", 30)) * time.Second,
		UpstreamAttempts: atoi("UPSTREAM_ATTEMPTS", 1),
		CleanWorkers:     atoi("CLEAN_WORKERS", 1),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPass:        os.Getenv("REDIS_PASSWORD"),
		RedisDB:          atoi("REDIS_DB", 0),
		CacheTTL:         time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
		MySQLDSN:         os.Getenv("MYSQL_DSN"),
	}
	if err := validate.Struct(c); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return c, nil
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
