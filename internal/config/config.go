package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Document store configuration
	Store StoreConfig

	// Redis configuration (idempotency keys)
	Redis RedisConfig

	// Listing page sizes
	Listing ListingConfig

	// Background reconciliation
	Reconcile ReconcileConfig

	// Per-client rate limiting of mutating routes
	RateLimit RateLimitConfig

	// Logging configuration
	Log LogConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CORSOrigin      string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxOpenConns   int
	MaxIdleConns   int
	MaxLifetime    time.Duration
	MigrationsPath string
}

// StoreConfig selects the document store backend
type StoreConfig struct {
	Backend string // "postgres" or "memory"
	Root    string // path prefix for every collection
}

// RedisConfig holds Redis settings. An empty Addr selects the in-memory idempotency store.
type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	IdempotencyTTL time.Duration
}

// ListingConfig holds page sizes for cursor-based listings
type ListingConfig struct {
	NewsPageSize   int
	MoviesPageSize int
}

// ReconcileConfig holds reconciliation job settings
type ReconcileConfig struct {
	Enabled      bool
	Interval     time.Duration
	PollInterval time.Duration
	Workers      int
	// Admins may start and read jobs over HTTP; empty admits any signed-in user
	Admins       []string
}

// RateLimitConfig holds limiter settings for mutating endpoints
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string
	Format string // "json" or "pretty"
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			CORSOrigin:      getEnv("CORS_ORIGIN", "*"),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			Name:           getEnv("DB_NAME", "engagement"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:   getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:   getIntEnv("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:    getDurationEnv("DB_MAX_LIFETIME", 5*time.Minute),
			MigrationsPath: getEnv("MIGRATIONS_PATH", "./migrations"),
		},
		Store: StoreConfig{
			Backend: getEnv("STORE_BACKEND", "postgres"),
			Root:    getEnv("STORE_ROOT", "artifacts/default-app-id"),
		},
		Redis: RedisConfig{
			Addr:           getEnv("REDIS_ADDR", ""),
			Password:       getEnv("REDIS_PASSWORD", ""),
			DB:             getIntEnv("REDIS_DB", 0),
			IdempotencyTTL: getDurationEnv("IDEMPOTENCY_TTL", 24*time.Hour),
		},
		Listing: ListingConfig{
			NewsPageSize:   getIntEnv("NEWS_PAGE_SIZE", 12),
			MoviesPageSize: getIntEnv("MOVIES_PAGE_SIZE", 20),
		},
		Reconcile: ReconcileConfig{
			Enabled:      getBoolEnv("RECONCILE_ENABLED", true),
			Interval:     getDurationEnv("RECONCILE_INTERVAL", time.Hour),
			PollInterval: getDurationEnv("RECONCILE_POLL_INTERVAL", 2*time.Second),
			Workers:      getIntEnv("RECONCILE_WORKERS", 8),
			Admins:       getListEnv("RECONCILE_ADMINS"),
		},
		RateLimit: RateLimitConfig{
			RPS:   getFloatEnv("RATE_LIMIT_RPS", 5),
			Burst: getIntEnv("RATE_LIMIT_BURST", 10),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("DB_NAME is required")
		}
	case "memory":
	default:
		return fmt.Errorf("STORE_BACKEND must be one of: postgres, memory")
	}
	if c.Listing.NewsPageSize <= 0 || c.Listing.MoviesPageSize <= 0 {
		return fmt.Errorf("page sizes must be positive")
	}
	if c.Reconcile.Workers <= 0 {
		return fmt.Errorf("RECONCILE_WORKERS must be positive")
	}
	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getListEnv splits a comma-separated variable, dropping empty entries
func getListEnv(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
