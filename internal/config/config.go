// Package config provides centralized configuration loaded from environment
// variables. Shared by both cmd/alertd and cmd/betpulse.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Table names, single source of truth. Matches schema.sql.
// --------------------------------------------------------------------------

const (
	AlertsTable      = "alerts"
	PreferencesTable = "alert_preferences"
	FeedbackTable    = "alert_feedback"
	OpenBetsTable    = "open_bets"
)

// --------------------------------------------------------------------------
// Config struct populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Database
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// API server
	APIHost     string
	APIPort     int
	MetricsPort int
	Environment string // development, staging, production
	Debug       bool

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Game feed
	GameFeedBaseURL string
	GameFeedAPIKey  string
	GameFeedRPM     int

	// Odds cache
	RedisAddr      string
	OddsStaleAfter time.Duration

	// Kafka
	KafkaBrokers  []string
	KafkaGroupID  string
	InjuryTopic   string
	LineTickTopic string

	// Engine
	PollInterval      time.Duration
	CooldownWindow    time.Duration
	HistoryRetention  time.Duration
	LineMoveThreshold float64
	QuietHoursBypass  []string

	// Dispatch
	DispatchQueueSize   int
	DispatchWorkers     int
	DispatchMaxAttempts int

	// Maintenance
	AlertExpireAfter time.Duration
	AlertRetention   time.Duration

	// Cache
	CacheEnabled bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	dbURL := envOr("DATABASE_URL", envOr("POSTGRES_URL", ""))
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL or POSTGRES_URL must be set")
	}

	return &Config{
		DatabaseURL:    dbURL,
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 2),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 10),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8000)),
		MetricsPort: envInt("METRICS_PORT", 9090),
		Environment: envOr("ENVIRONMENT", "development"),
		Debug:       envBool("DEBUG", false),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		GameFeedBaseURL: envOr("GAME_FEED_BASE_URL", "https://feeds.betpulse.io/v1"),
		GameFeedAPIKey:  envOr("GAME_FEED_API_KEY", ""),
		GameFeedRPM:     envInt("GAME_FEED_RPM", 300),

		RedisAddr:      envOr("REDIS_ADDR", "localhost:6379"),
		OddsStaleAfter: time.Duration(envInt("ODDS_STALE_AFTER_SECONDS", 120)) * time.Second,

		KafkaBrokers:  envList("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID:  envOr("KAFKA_GROUP_ID", "betpulse-engine"),
		InjuryTopic:   envOr("KAFKA_INJURY_TOPIC", "injury-updates"),
		LineTickTopic: envOr("KAFKA_LINE_TICK_TOPIC", "market-ticks"),

		PollInterval:      time.Duration(envInt("POLL_INTERVAL_SECONDS", 30)) * time.Second,
		CooldownWindow:    time.Duration(envInt("COOLDOWN_MINUTES", 5)) * time.Minute,
		HistoryRetention:  time.Duration(envInt("HISTORY_RETENTION_MINUTES", 15)) * time.Minute,
		LineMoveThreshold: envFloat("LINE_MOVE_THRESHOLD", 1.0),
		QuietHoursBypass:  envList("QUIET_HOURS_BYPASS", []string{"critical_moment", "hedge_opportunity"}),

		DispatchQueueSize:   envInt("DISPATCH_QUEUE_SIZE", 256),
		DispatchWorkers:     envInt("DISPATCH_WORKERS", 4),
		DispatchMaxAttempts: envInt("DISPATCH_MAX_ATTEMPTS", 3),

		AlertExpireAfter: time.Duration(envInt("ALERT_EXPIRE_AFTER_HOURS", 12)) * time.Hour,
		AlertRetention:   time.Duration(envInt("ALERT_RETENTION_DAYS", 30)) * 24 * time.Hour,

		CacheEnabled: envBool("CACHE_ENABLED", true),
	}, nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
