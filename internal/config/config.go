package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application-level settings.
type Config struct {
	// Server
	ServerAddr string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Rounds
	RoundTTL time.Duration // lifetime of a round in Redis after its last update

	// Compute agent
	ComputeBaseURL string // e.g. https://multiagent.example.com/api/v1
	PipelineID     string // agent pipeline executed for both generation and evaluation

	// Polling
	PollMaxAttempts    int           // attempts before giving up on a task
	PollInterval       time.Duration // delay between "not yet done" attempts
	PollRequestTimeout time.Duration // per-attempt HTTP deadline

	// Treasury (token payout rail)
	TreasuryURL   string // signing sidecar base URL
	TreasuryToken string // bearer token for the sidecar, empty disables auth header

	// Reward
	RewardAmount    int64   // whole reward tokens per payout
	RewardThreshold float64 // minimum score (inclusive) to qualify

	// PostgreSQL
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Admin Authentication
	AdminToken string // Bearer token for admin API access
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		ServerAddr:         envOr("SERVER_ADDR", ":8080"),
		RedisAddr:          envOr("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      envOr("REDIS_PASSWORD", ""),
		RedisDB:            envIntOr("REDIS_DB", 0),
		RoundTTL:           envDurationOr("ROUND_TTL", 24*time.Hour),
		ComputeBaseURL:     envOr("COMPUTE_BASE_URL", "https://multiagent.aixblock.io/api/v1"),
		PipelineID:         envOr("COMPUTE_PIPELINE_ID", "67c1589fdf8f15e1058c90b2"),
		PollMaxAttempts:    envIntOr("POLL_MAX_ATTEMPTS", 15),
		PollInterval:       envDurationOr("POLL_INTERVAL", 2*time.Second),
		PollRequestTimeout: envDurationOr("POLL_REQUEST_TIMEOUT", 10*time.Second),
		TreasuryURL:        envOr("TREASURY_URL", "http://localhost:8091"),
		TreasuryToken:      envOr("TREASURY_TOKEN", ""),
		RewardAmount:       envInt64Or("REWARD_AMOUNT", 1),
		RewardThreshold:    envFloatOr("REWARD_THRESHOLD", 8.0),
		DBHost:             envOr("DB_HOST", "localhost"),
		DBPort:             envOr("DB_PORT", "5432"),
		DBUser:             envOr("DB_USER", "postgres"),
		DBPassword:         envOr("DB_PASSWORD", "postgres"),
		DBName:             envOr("DB_NAME", "promptcraft"),
		DBSSLMode:          envOr("DB_SSLMODE", "disable"),
		AdminToken:         envOr("ADMIN_TOKEN", ""),
	}
}

// ─── helpers ───

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envInt64Or(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
