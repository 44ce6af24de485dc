package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"ghostlore.app/errors"
)

// Config represents the application configuration structure
type Config struct {
	Server    ServerConfig    `split_words:"true"`
	Database  DatabaseConfig  `split_words:"true"`
	Redis     RedisConfig     `split_words:"true"`
	AIService AIServiceConfig `split_words:"true"`
	RateLimit RateLimitConfig `split_words:"true"`
	Cache     CacheConfig     `split_words:"true"`
	Auth      AuthConfig      `split_words:"true"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port int `envconfig:"SERVER_PORT" default:"8080"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"postgres"`
	Password string `envconfig:"DB_PASSWORD" default:"postgres"`
	Name     string `envconfig:"DB_NAME" default:"ghostlore"`
	SSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`
}

// GetDSN returns a formatted database connection string
func (c DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// RedisConfig contains cache store connection settings
type RedisConfig struct {
	Addr         string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password     string `envconfig:"REDIS_PASSWORD" default:""`
	DB           int    `envconfig:"REDIS_DB" default:"0"`
	DialTimeout  int    `envconfig:"REDIS_DIAL_TIMEOUT" default:"5"`
	ReadTimeout  int    `envconfig:"REDIS_READ_TIMEOUT" default:"3"`
	WriteTimeout int    `envconfig:"REDIS_WRITE_TIMEOUT" default:"3"`
}

// AIServiceConfig contains settings for the upstream AI service
type AIServiceConfig struct {
	BaseURL        string `envconfig:"AI_SERVICE_URL" default:"http://localhost:8000"`
	TimeoutMs      int    `envconfig:"AI_SERVICE_TIMEOUT" default:"3000"`
	HealthTimeout  int    `envconfig:"AI_SERVICE_HEALTH_TIMEOUT" default:"2000"`
	MaxRetries     int    `envconfig:"AI_SERVICE_MAX_RETRIES" default:"3"`
	RetryDelayMs   int    `envconfig:"AI_SERVICE_RETRY_DELAY" default:"1000"`
	ProbeInterval  int    `envconfig:"AI_SERVICE_PROBE_INTERVAL" default:"60"`
}

// Timeout returns the request timeout as a duration
func (a AIServiceConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutMs) * time.Millisecond
}

// RetryDelay returns the base retry delay as a duration
func (a AIServiceConfig) RetryDelay() time.Duration {
	return time.Duration(a.RetryDelayMs) * time.Millisecond
}

// RateLimitPreset defines one fixed window and its request ceiling
type RateLimitPreset struct {
	WindowMs    int
	MaxRequests int
}

// Window returns the preset window as a duration
func (p RateLimitPreset) Window() time.Duration {
	return time.Duration(p.WindowMs) * time.Millisecond
}

// RateLimitConfig contains rate limiting presets per route class.
// Presets are data, not logic: route groups pick one by name.
type RateLimitConfig struct {
	WindowMs    int `envconfig:"RATE_LIMIT_WINDOW_MS" default:"900000"`
	MaxRequests int `envconfig:"RATE_LIMIT_MAX_REQUESTS" default:"100"`
}

// Preset returns the rate limit preset for a route class
func (c RateLimitConfig) Preset(class string) RateLimitPreset {
	switch class {
	case "auth":
		return RateLimitPreset{WindowMs: 900000, MaxRequests: 10}
	case "search":
		return RateLimitPreset{WindowMs: 60000, MaxRequests: 30}
	case "ai":
		return RateLimitPreset{WindowMs: 60000, MaxRequests: 10}
	case "readonly":
		return RateLimitPreset{WindowMs: 60000, MaxRequests: 60}
	default:
		return RateLimitPreset{WindowMs: c.WindowMs, MaxRequests: c.MaxRequests}
	}
}

// CacheConfig contains TTL settings per cache kind, in seconds
type CacheConfig struct {
	TTLDefault         int `envconfig:"CACHE_TTL_DEFAULT" default:"3600"`
	TTLGhosts          int `envconfig:"CACHE_TTL_GHOSTS" default:"7200"`
	TTLStories         int `envconfig:"CACHE_TTL_STORIES" default:"7200"`
	TTLRecommendations int `envconfig:"CACHE_TTL_RECOMMENDATIONS" default:"1800"`
	TTLResponse        int `envconfig:"CACHE_TTL_RESPONSE" default:"300"`
}

// AuthConfig contains session settings
type AuthConfig struct {
	SessionTimeoutMs int `envconfig:"SESSION_TIMEOUT" default:"86400000"`
}

// SessionTTL returns the session lifetime as a duration
func (a AuthConfig) SessionTTL() time.Duration {
	return time.Duration(a.SessionTimeoutMs) * time.Millisecond
}

// LoadConfig loads and validates application configuration from environment variables
func LoadConfig() (*Config, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, errors.NewConfigurationError("error processing config", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if err := c.Redis.Validate(); err != nil {
		return err
	}
	if err := c.AIService.Validate(); err != nil {
		return err
	}
	if err := c.RateLimit.Validate(); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return nil
}

// Validate checks server configuration
func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return errors.NewConfigurationError("SERVER_PORT must be between 1 and 65535", nil)
	}
	return nil
}

// ValidateSSLMode validates the SSL mode configuration
func (d *DatabaseConfig) ValidateSSLMode() error {
	validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
	for _, mode := range validSSLModes {
		if d.SSLMode == mode {
			return nil
		}
	}
	return errors.NewConfigurationError(
		fmt.Sprintf("DB_SSL_MODE must be one of: %s", strings.Join(validSSLModes, ", ")), nil)
}

// Validate checks database configuration
func (d *DatabaseConfig) Validate() error {
	if d.Host == "" {
		return errors.NewConfigurationError("DB_HOST cannot be empty", nil)
	}
	if d.Port < 1 || d.Port > 65535 {
		return errors.NewConfigurationError("DB_PORT must be between 1 and 65535", nil)
	}
	if d.User == "" {
		return errors.NewConfigurationError("DB_USER cannot be empty", nil)
	}
	if d.Name == "" {
		return errors.NewConfigurationError("DB_NAME cannot be empty", nil)
	}
	if err := d.ValidateSSLMode(); err != nil {
		return err
	}
	return nil
}

// Validate checks Redis configuration
func (r *RedisConfig) Validate() error {
	if r.Addr == "" {
		return errors.NewConfigurationError("REDIS_ADDR cannot be empty", nil)
	}
	if r.DB < 0 || r.DB > 15 {
		return errors.NewConfigurationError("REDIS_DB must be between 0 and 15", nil)
	}
	if r.DialTimeout < 1 {
		return errors.NewConfigurationError("REDIS_DIAL_TIMEOUT must be at least 1 second", nil)
	}
	return nil
}

// Validate checks AI service configuration
func (a *AIServiceConfig) Validate() error {
	if a.BaseURL == "" {
		return errors.NewConfigurationError("AI_SERVICE_URL cannot be empty", nil)
	}
	if !strings.HasPrefix(a.BaseURL, "http://") && !strings.HasPrefix(a.BaseURL, "https://") {
		return errors.NewConfigurationError("AI_SERVICE_URL must start with http:// or https://", nil)
	}
	if a.TimeoutMs < 1 {
		return errors.NewConfigurationError("AI_SERVICE_TIMEOUT must be positive", nil)
	}
	if a.MaxRetries < 1 {
		return errors.NewConfigurationError("AI_SERVICE_MAX_RETRIES must be at least 1", nil)
	}
	if a.RetryDelayMs < 1 {
		return errors.NewConfigurationError("AI_SERVICE_RETRY_DELAY must be positive", nil)
	}
	return nil
}

// Validate checks rate limit configuration
func (c *RateLimitConfig) Validate() error {
	if c.WindowMs < 1000 {
		return errors.NewConfigurationError("RATE_LIMIT_WINDOW_MS must be at least 1000", nil)
	}
	if c.MaxRequests < 1 {
		return errors.NewConfigurationError("RATE_LIMIT_MAX_REQUESTS must be at least 1", nil)
	}
	return nil
}

// Validate checks cache TTL configuration
func (c *CacheConfig) Validate() error {
	if c.TTLDefault < 1 {
		return errors.NewConfigurationError("CACHE_TTL_DEFAULT must be at least 1 second", nil)
	}
	if c.TTLGhosts < 1 {
		return errors.NewConfigurationError("CACHE_TTL_GHOSTS must be at least 1 second", nil)
	}
	if c.TTLStories < 1 {
		return errors.NewConfigurationError("CACHE_TTL_STORIES must be at least 1 second", nil)
	}
	if c.TTLRecommendations < 1 {
		return errors.NewConfigurationError("CACHE_TTL_RECOMMENDATIONS must be at least 1 second", nil)
	}
	if c.TTLResponse < 1 {
		return errors.NewConfigurationError("CACHE_TTL_RESPONSE must be at least 1 second", nil)
	}
	return nil
}

// Validate checks auth configuration
func (a *AuthConfig) Validate() error {
	if a.SessionTimeoutMs < 60000 {
		return errors.NewConfigurationError("SESSION_TIMEOUT must be at least 60000 ms", nil)
	}
	return nil
}
