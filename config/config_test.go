package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Database: DatabaseConfig{
			Host: "localhost", Port: 5432, User: "postgres",
			Name: "ghostlore", SSLMode: "disable",
		},
		Redis:     RedisConfig{Addr: "localhost:6379", DialTimeout: 5},
		AIService: AIServiceConfig{BaseURL: "http://localhost:8000", TimeoutMs: 3000, MaxRetries: 3, RetryDelayMs: 1000},
		RateLimit: RateLimitConfig{WindowMs: 900000, MaxRequests: 100},
		Cache: CacheConfig{
			TTLDefault: 3600, TTLGhosts: 7200, TTLStories: 7200,
			TTLRecommendations: 1800, TTLResponse: 300,
		},
		Auth: AuthConfig{SessionTimeoutMs: 86400000},
	}
}

func TestConfig_ValidConfigPasses(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestConfig_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero server port", func(c *Config) { c.Server.Port = 0 }},
		{"empty db host", func(c *Config) { c.Database.Host = "" }},
		{"bad ssl mode", func(c *Config) { c.Database.SSLMode = "sometimes" }},
		{"empty redis addr", func(c *Config) { c.Redis.Addr = "" }},
		{"redis db out of range", func(c *Config) { c.Redis.DB = 16 }},
		{"empty ai url", func(c *Config) { c.AIService.BaseURL = "" }},
		{"ai url without scheme", func(c *Config) { c.AIService.BaseURL = "localhost:8000" }},
		{"zero ai retries", func(c *Config) { c.AIService.MaxRetries = 0 }},
		{"tiny rate limit window", func(c *Config) { c.RateLimit.WindowMs = 500 }},
		{"zero cache ttl", func(c *Config) { c.Cache.TTLDefault = 0 }},
		{"short session timeout", func(c *Config) { c.Auth.SessionTimeoutMs = 1000 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDatabaseConfig_GetDSN(t *testing.T) {
	cfg := validConfig().Database
	dsn := cfg.GetDSN()

	assert.Contains(t, dsn, "host=localhost")
	assert.Contains(t, dsn, "port=5432")
	assert.Contains(t, dsn, "dbname=ghostlore")
	assert.Contains(t, dsn, "sslmode=disable")
}

func TestRateLimitConfig_Presets(t *testing.T) {
	cfg := RateLimitConfig{WindowMs: 900000, MaxRequests: 100}

	tests := []struct {
		class       string
		windowMs    int
		maxRequests int
	}{
		{"auth", 900000, 10},
		{"search", 60000, 30},
		{"ai", 60000, 10},
		{"readonly", 60000, 60},
		{"", 900000, 100},
		{"unknown", 900000, 100},
	}

	for _, tt := range tests {
		preset := cfg.Preset(tt.class)
		assert.Equal(t, tt.windowMs, preset.WindowMs, "class %q", tt.class)
		assert.Equal(t, tt.maxRequests, preset.MaxRequests, "class %q", tt.class)
	}
}

func TestDurationHelpers(t *testing.T) {
	ai := AIServiceConfig{TimeoutMs: 3000, RetryDelayMs: 1000}
	assert.Equal(t, 3*time.Second, ai.Timeout())
	assert.Equal(t, time.Second, ai.RetryDelay())

	preset := RateLimitPreset{WindowMs: 60000}
	assert.Equal(t, time.Minute, preset.Window())

	auth := AuthConfig{SessionTimeoutMs: 86400000}
	assert.Equal(t, 24*time.Hour, auth.SessionTTL())
}

func TestLoadConfig_DefaultsAreValid(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 3, cfg.AIService.MaxRetries)
}
