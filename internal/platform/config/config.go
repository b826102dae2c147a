// Package config loads application configuration from environment variables.
// All variables use the LEARN_ prefix.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	Server         ServerConfig
	Store          StoreConfig
	Database       DatabaseConfig
	Cache          CacheConfig
	NATS           NATSConfig
	RateLimit      RateLimitConfig
	Log            LogConfig
	Feedback       FeedbackConfig
	CurriculumPath string // empty uses the embedded curriculum
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
	Host string
}

// StoreConfig selects where progress and attempts are persisted.
type StoreConfig struct {
	Driver string // "memory" or "postgres"
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL         string
	MaxConns    int
	MinConns    int
	AutoMigrate bool
}

// CacheConfig holds Dragonfly/Redis connection settings.
// An empty URL keeps rate limiting in process.
type CacheConfig struct {
	URL string
}

// NATSConfig holds NATS connection settings. An empty URL disables publishing.
type NATSConfig struct {
	URL     string
	Subject string
}

// RateLimitConfig bounds attempt submissions per user.
type RateLimitConfig struct {
	Submits       int // per window; 0 disables limiting
	WindowSeconds int
}

// Window returns the limit window as a duration.
func (r RateLimitConfig) Window() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// FeedbackConfig holds result text settings.
type FeedbackConfig struct {
	Language string
}

// Load reads configuration from environment variables with LEARN_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("LEARN_SERVER_PORT", 8080),
			Host: envStr("LEARN_SERVER_HOST", "0.0.0.0"),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(envStr("LEARN_STORE_DRIVER", StoreMemory)),
		},
		Database: DatabaseConfig{
			URL:         envStr("LEARN_DATABASE_URL", ""),
			MaxConns:    envInt("LEARN_DATABASE_MAX_CONNS", 25),
			MinConns:    envInt("LEARN_DATABASE_MIN_CONNS", 5),
			AutoMigrate: envBool("LEARN_DATABASE_AUTO_MIGRATE", true),
		},
		Cache: CacheConfig{
			URL: envStr("LEARN_CACHE_URL", ""),
		},
		NATS: NATSConfig{
			URL:     envStr("LEARN_NATS_URL", ""),
			Subject: envStr("LEARN_NATS_SUBJECT", "tutor.events"),
		},
		RateLimit: RateLimitConfig{
			Submits:       envInt("LEARN_RATE_LIMIT_SUBMITS", 30),
			WindowSeconds: envInt("LEARN_RATE_LIMIT_WINDOW_SECONDS", 60),
		},
		Log: LogConfig{
			Level:  strings.ToLower(envStr("LEARN_LOG_LEVEL", "info")),
			Format: strings.ToLower(envStr("LEARN_LOG_FORMAT", "json")),
		},
		Feedback: FeedbackConfig{
			Language: envStr("LEARN_FEEDBACK_LANGUAGE", "en"),
		},
		CurriculumPath: envStr("LEARN_CURRICULUM_PATH", ""),
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreMemory:
	case StorePostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("LEARN_DATABASE_URL is required when LEARN_STORE_DRIVER is postgres")
		}
	default:
		return fmt.Errorf("LEARN_STORE_DRIVER must be 'memory' or 'postgres', got %q", c.Store.Driver)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("LEARN_SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("LEARN_DATABASE_MIN_CONNS (%d) exceeds LEARN_DATABASE_MAX_CONNS (%d)",
			c.Database.MinConns, c.Database.MaxConns)
	}

	if c.RateLimit.Submits < 0 || c.RateLimit.WindowSeconds < 0 {
		return fmt.Errorf("rate limit settings must be non-negative")
	}
	if c.RateLimit.Submits > 0 && c.RateLimit.WindowSeconds == 0 {
		return fmt.Errorf("LEARN_RATE_LIMIT_WINDOW_SECONDS is required when LEARN_RATE_LIMIT_SUBMITS is set")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LEARN_LOG_LEVEL must be debug, info, warn or error, got %q", c.Log.Level)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("LEARN_LOG_FORMAT must be 'json' or 'text', got %q", c.Log.Format)
	}

	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}
