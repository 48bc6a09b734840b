package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// JWT
	JWTSecret string

	// Centrifugo
	CentrifugoAPIKey   string
	CentrifugoSecret   string
	CentrifugoGRPCAddr string

	// Server
	Port        string
	MetricsAddr string

	// Logging
	LogLevel string

	// Matchmaking
	MatchmakingBaseToleranceRating int
	MatchmakingWidenEverySeconds   int
	MatchmakingMaxToleranceRating  int
	MatchmakingQueueTimeout        time.Duration

	// Match lifecycle
	CountdownDuration        time.Duration
	DisconnectGraceWindow    time.Duration
	DefaultMatchTimeLimitSecs int

	// Judging
	SandboxTimeout    time.Duration
	SandboxWorkDir    string
	AIGraderBaseURL   string
	AIGraderAPIKey    string
	AIGraderTimeout   time.Duration
	HintCooldown      time.Duration
	HintMaxPerMatch   int

	// Replay
	ReplayFlushSize     int
	ReplayFlushInterval time.Duration

	// Environment
	Environment string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:                    getEnv("DATABASE_URL", ""),
		RedisURL:                       getEnv("REDIS_URL", "redis://localhost:6379/0"),
		JWTSecret:                      getEnv("JWT_SECRET", ""),
		CentrifugoAPIKey:               getEnv("CENTRIFUGO_API_KEY", ""),
		CentrifugoSecret:               getEnv("CENTRIFUGO_SECRET", ""),
		CentrifugoGRPCAddr:             getEnv("CENTRIFUGO_GRPC_ADDR", "localhost:8001"),
		Port:                           getEnv("PORT", "8080"),
		MetricsAddr:                    getEnv("METRICS_ADDR", ":9090"),
		LogLevel:                       getEnv("LOG_LEVEL", "info"),
		MatchmakingBaseToleranceRating: getEnvAsInt("MATCHMAKING_BASE_TOLERANCE_RATING", 50),
		MatchmakingWidenEverySeconds:   getEnvAsInt("MATCHMAKING_WIDEN_EVERY_SECONDS", 10),
		MatchmakingMaxToleranceRating:  getEnvAsInt("MATCHMAKING_MAX_TOLERANCE_RATING", 400),
		MatchmakingQueueTimeout:        getEnvAsDuration("MATCHMAKING_QUEUE_TIMEOUT", 120*time.Second),
		CountdownDuration:              getEnvAsDuration("COUNTDOWN_DURATION", 5*time.Second),
		DisconnectGraceWindow:          getEnvAsDuration("DISCONNECT_GRACE_WINDOW", 5*time.Second),
		DefaultMatchTimeLimitSecs:      getEnvAsInt("DEFAULT_MATCH_TIME_LIMIT_SECONDS", 1800),
		SandboxTimeout:                 getEnvAsDuration("SANDBOX_TIMEOUT", 10*time.Second),
		SandboxWorkDir:                 getEnv("SANDBOX_WORK_DIR", "/tmp/codeduel-sandbox"),
		AIGraderBaseURL:                getEnv("AI_GRADER_BASE_URL", ""),
		AIGraderAPIKey:                 getEnv("AI_GRADER_API_KEY", ""),
		AIGraderTimeout:                getEnvAsDuration("AI_GRADER_TIMEOUT", 8*time.Second),
		HintCooldown:                   getEnvAsDuration("HINT_COOLDOWN", 30*time.Second),
		HintMaxPerMatch:                getEnvAsInt("HINT_MAX_PER_MATCH", 3),
		ReplayFlushSize:                getEnvAsInt("REPLAY_FLUSH_SIZE", 50),
		ReplayFlushInterval:            getEnvAsDuration("REPLAY_FLUSH_INTERVAL", 3*time.Second),
		Environment:                    getEnv("ENVIRONMENT", "development"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate ensures all required configuration is present
func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.CentrifugoAPIKey == "" {
		return fmt.Errorf("CENTRIFUGO_API_KEY is required")
	}
	if c.CentrifugoSecret == "" {
		return fmt.Errorf("CENTRIFUGO_SECRET is required")
	}
	if c.Environment == "production" && c.AIGraderBaseURL == "" {
		return fmt.Errorf("AI_GRADER_BASE_URL is required in production")
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getEnvAsInt gets an environment variable as an integer with a fallback value
func getEnvAsInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvAsDuration gets an environment variable as a duration with a fallback value
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return fallback
}
