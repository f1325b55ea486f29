package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "STORE_TYPE", "SEED_DEMO", "CACHE_TTL", "LLM_MODEL", "LLM_MAX_TOKENS", "LLM_TEMPERATURE", "APP_ENV"} {
		t.Setenv(key, "")
	}
	cfg := LoadConfig()

	assert.Equal(t, "3000", cfg.HttpPort)
	assert.Equal(t, "postgres", cfg.StoreType)
	assert.True(t, cfg.SeedDemo)
	assert.Equal(t, 30*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 4000, cfg.LLMMaxTokens)
	assert.InDelta(t, 0.7, cfg.LLMTemperature, 1e-6)
	assert.False(t, cfg.IsProd())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("STORE_TYPE", "memory")
	t.Setenv("SEED_DEMO", "false")
	t.Setenv("CACHE_TTL", "90s")
	t.Setenv("LLM_MAX_TOKENS", "not-a-number")
	t.Setenv("APP_ENV", "prod")
	cfg := LoadConfig()

	assert.Equal(t, "8080", cfg.HttpPort)
	assert.Equal(t, "memory", cfg.StoreType)
	assert.False(t, cfg.SeedDemo)
	assert.Equal(t, 90*time.Second, cfg.CacheTTL)
	assert.Equal(t, 4000, cfg.LLMMaxTokens)
	assert.True(t, cfg.IsProd())
}
