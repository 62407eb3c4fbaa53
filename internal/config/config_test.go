package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, 15, cfg.PollMaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, 10*time.Second, cfg.PollRequestTimeout)
	assert.Equal(t, int64(1), cfg.RewardAmount)
	assert.Equal(t, 8.0, cfg.RewardThreshold)
	assert.Equal(t, 24*time.Hour, cfg.RoundTTL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":9999")
	t.Setenv("POLL_MAX_ATTEMPTS", "3")
	t.Setenv("POLL_INTERVAL", "500ms")
	t.Setenv("REWARD_THRESHOLD", "9.5")
	t.Setenv("ROUND_TTL", "1h")

	cfg := Load()
	assert.Equal(t, ":9999", cfg.ServerAddr)
	assert.Equal(t, 3, cfg.PollMaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 9.5, cfg.RewardThreshold)
	assert.Equal(t, time.Hour, cfg.RoundTTL)
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("POLL_MAX_ATTEMPTS", "lots")
	t.Setenv("REWARD_THRESHOLD", "high")
	t.Setenv("ROUND_TTL", "soon")

	cfg := Load()
	assert.Equal(t, 15, cfg.PollMaxAttempts)
	assert.Equal(t, 8.0, cfg.RewardThreshold)
	assert.Equal(t, 24*time.Hour, cfg.RoundTTL)
}
