package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr           string
	DBPath         string
	LogLevel       string
	RemoteBaseURL  string
	RemoteToken    string
	RemoteTimeout  time.Duration
	SyncInterval   time.Duration
	SyncBatchSize  int
	ConflictPolicy string
	NewCardsPerDay int
	ReviewsPerDay  int
	SessionLimit   int
	SyncWorkers    int
	SyncQueueSize  int
	ProbeURL       string
	ProbeInterval  time.Duration
	ProbeTimeout   time.Duration
}

// Load reads configuration from a .env file (if present) and environment variables,
// applying sensible defaults when values are missing or invalid.
func Load() Config {
	// Ignore error so the app still starts when .env is absent in production.
	_ = godotenv.Load()

	return Config{
		Addr:           envOr("ADDR", ":8080"),
		DBPath:         envOr("DB_PATH", "file:lexflash.db"),
		LogLevel:       envOr("LOG_LEVEL", "INFO"),
		RemoteBaseURL:  envOr("REMOTE_BASE_URL", "https://api.lexflash.app"),
		RemoteToken:    envOr("REMOTE_TOKEN", ""),
		RemoteTimeout:  envDurationOr("REMOTE_TIMEOUT", 30*time.Second),
		SyncInterval:   envDurationOr("SYNC_INTERVAL", 5*time.Minute),
		SyncBatchSize:  envIntOr("SYNC_BATCH_SIZE", 50),
		ConflictPolicy: envOr("CONFLICT_POLICY", "newest-wins"),
		NewCardsPerDay: envIntOr("NEW_CARDS_PER_DAY", 20),
		ReviewsPerDay:  envIntOr("REVIEWS_PER_DAY", 100),
		SessionLimit:   envIntOr("SESSION_LIMIT", 50),
		SyncWorkers:    envIntOr("SYNC_WORKER_COUNT", 1),
		SyncQueueSize:  envIntOr("SYNC_QUEUE_SIZE", 8),
		ProbeURL:       envOr("PROBE_URL", ""),
		ProbeInterval:  envDurationOr("PROBE_INTERVAL", 30*time.Second),
		ProbeTimeout:   envDurationOr("PROBE_TIMEOUT", 5*time.Second),
	}
}

// Validate checks the configuration for values that would break at runtime.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("ADDR cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.RemoteBaseURL == "" {
		return fmt.Errorf("REMOTE_BASE_URL cannot be empty")
	}
	if c.SyncBatchSize <= 0 {
		return fmt.Errorf("SYNC_BATCH_SIZE must be positive, got %d", c.SyncBatchSize)
	}
	if c.NewCardsPerDay < 0 {
		return fmt.Errorf("NEW_CARDS_PER_DAY cannot be negative, got %d", c.NewCardsPerDay)
	}
	if c.ReviewsPerDay < 0 {
		return fmt.Errorf("REVIEWS_PER_DAY cannot be negative, got %d", c.ReviewsPerDay)
	}
	if c.SessionLimit <= 0 {
		return fmt.Errorf("SESSION_LIMIT must be positive, got %d", c.SessionLimit)
	}
	switch c.ConflictPolicy {
	case "server-wins", "client-wins", "newest-wins":
	default:
		return fmt.Errorf("CONFLICT_POLICY must be one of server-wins, client-wins, newest-wins, got %q", c.ConflictPolicy)
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		log.Printf("invalid value for %s=%q, using default %d", key, v, def)
	}
	return def
}

func envDurationOr(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("invalid value for %s=%q, using default %v", key, v, def)
	}
	return def
}
