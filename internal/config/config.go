package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// Config holds runtime settings read from the environment.
type Config struct {
	DBDriver         string
	DatabaseURL      string
	DBPath           string
	SeedPath         string
	Port             string
	RedisURL         string
	RedisChannel     string
	WebhookURL       string
	WebhookTimeout   time.Duration
	BatchConcurrency int
	NotifyLocation   *time.Location
	StaleWindow      time.Duration
}

// Get returns the environment value for key, or fallback when unset.
func Get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw := Get(key, "")
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be an integer: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("config: %s must be positive, got %d", key, n)
	}
	return n, nil
}

// Load reads and validates the configuration.
func Load() (Config, error) {
	cfg := Config{
		DBDriver:     Get("DB_DRIVER", "sqlite"),
		DatabaseURL:  Get("DATABASE_URL", ""),
		DBPath:       Get("DB_PATH", "data/manifests.db"),
		SeedPath:     Get("SEED_PATH", "data/seeds/manifests.json"),
		Port:         Get("PORT", "8080"),
		RedisURL:     Get("REDIS_URL", ""),
		RedisChannel: Get("REDIS_CHANNEL", "manifest-changes"),
		WebhookURL:   Get("WEBHOOK_URL", ""),
	}

	switch cfg.DBDriver {
	case "sqlite":
	case "pgx":
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("config: DATABASE_URL is required when DB_DRIVER=pgx")
		}
	default:
		return Config{}, fmt.Errorf("config: unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	secs, err := getInt("WEBHOOK_TIMEOUT_SECONDS", 10)
	if err != nil {
		return Config{}, err
	}
	cfg.WebhookTimeout = time.Duration(secs) * time.Second

	if cfg.BatchConcurrency, err = getInt("BATCH_CONCURRENCY", 4); err != nil {
		return Config{}, err
	}

	ms, err := getInt("STALE_WINDOW_MS", 5000)
	if err != nil {
		return Config{}, err
	}
	cfg.StaleWindow = time.Duration(ms) * time.Millisecond

	zone := Get("NOTIFY_LOCATION", "America/Sao_Paulo")
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return Config{}, fmt.Errorf("config: NOTIFY_LOCATION %q: %w", zone, err)
	}
	cfg.NotifyLocation = loc

	return cfg, nil
}

// DSN returns the data source name for the configured driver.
func (c Config) DSN() string {
	if c.DBDriver == "pgx" {
		return c.DatabaseURL
	}
	return c.DBPath
}
