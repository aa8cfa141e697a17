package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 9090, cfg.GRPCPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, BackendMemory, cfg.Cache.Backend)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 10000, cfg.Cache.MaxEntries)
	assert.Equal(t, 30*time.Second, cfg.Executor.DefaultTimeout)
	assert.Equal(t, "loopback", cfg.Skill.Provider)
	assert.False(t, cfg.UsesRedis())
	assert.Equal(t, ":8080", cfg.GetHTTPAddr())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("DAGO_HTTP_PORT", "8181")
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("CACHE_TTL", "5m")
	t.Setenv("WORKER_POOL_SIZE", "12")
	t.Setenv("SKILL_LLM_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8181, cfg.HTTPPort)
	assert.True(t, cfg.UsesRedis())
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 12, cfg.Workers.PoolSize)
	assert.Equal(t, "anthropic", cfg.Skill.Provider)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"port out of range", "DAGO_HTTP_PORT", "70000"},
		{"unknown cache backend", "CACHE_BACKEND", "memcached"},
		{"unknown events backend", "EVENTS_BACKEND", "kafka"},
		{"bad log level", "LOG_LEVEL", "trace"},
		{"empty pool", "WORKER_POOL_SIZE", "0"},
		{"unknown provider", "SKILL_PROVIDER", "openai"},
		{"anthropic without key", "SKILL_PROVIDER", "anthropic"},
		{"not a duration", "CACHE_TTL", "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestValidate_RetryDelays(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Executor.RetryMaxDelay = cfg.Executor.RetryBaseDelay / 2
	assert.Error(t, cfg.Validate())
}
