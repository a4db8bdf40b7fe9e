// internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

// Config holds the service configuration read from the environment.
type Config struct {
	// Server
	Port           string   `envconfig:"PORT" default:"8080"`
	Env            string   `envconfig:"CLASSKIT_ENV" default:"development" validate:"oneof=development production test"`
	LogLevel       string   `envconfig:"LOG_LEVEL"`
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS"`

	// Session handoff
	HandoffBackend string        `envconfig:"HANDOFF_BACKEND" default:"memory" validate:"oneof=memory redis"`
	RedisAddr      string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisDB        int           `envconfig:"REDIS_DB" default:"0" validate:"min=0"`
	HandoffTTL     time.Duration `envconfig:"HANDOFF_TTL" default:"2h" validate:"min=0"`

	// Content generation
	OpenAIAPIKey      string        `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL     string        `envconfig:"OPENAI_BASE_URL" validate:"omitempty,url"`
	OpenAIModel       string        `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	GenerationTimeout time.Duration `envconfig:"GENERATION_TIMEOUT" default:"45s" validate:"min=0"`
	// UseMockGenerator defaults to true when no API key is configured.
	UseMockGenerator *bool `envconfig:"USE_MOCK_GENERATOR"`
	FallbackContent  bool  `envconfig:"FALLBACK_CONTENT" default:"true"`

	// Presentation
	DefaultTheme    string        `envconfig:"DEFAULT_THEME" default:"light" validate:"oneof=light dark"`
	TokenExpireTime time.Duration `envconfig:"TOKEN_EXPIRE_TIME" default:"12h" validate:"min=0"`
	// IdleTimeout is how long a presentation survives with no screen connected. Zero keeps
	// it until it is deleted.
	IdleTimeout time.Duration `envconfig:"PRESENTATION_IDLE_TIMEOUT" default:"10m" validate:"min=0"`
}

// Load reads the configuration from environment variables and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// MockGenerator reports whether content comes from the local mock instead of the LLM.
func (c *Config) MockGenerator() bool {
	if c.UseMockGenerator != nil {
		return *c.UseMockGenerator
	}
	return c.OpenAIAPIKey == ""
}

// Level returns the configured log level: debug outside production, info in production.
func (c *Config) Level() logrus.Level {
	if c.LogLevel != "" {
		if lvl, err := logrus.ParseLevel(c.LogLevel); err == nil {
			return lvl
		}
	}
	if c.IsProduction() {
		return logrus.InfoLevel
	}
	return logrus.DebugLevel
}

// NewLogger builds the process logger: JSON in production, text otherwise.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(c.Level())
	if c.IsProduction() {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

// LogFields summarizes the config for the startup log line. The API key is never logged.
func (c *Config) LogFields() logrus.Fields {
	return logrus.Fields{
		"port":            c.Port,
		"env":             c.Env,
		"handoff_backend": c.HandoffBackend,
		"handoff_ttl":     c.HandoffTTL,
		"model":           c.OpenAIModel,
		"mock_generator":  c.MockGenerator(),
		"fallback":        c.FallbackContent,
		"idle_timeout":    c.IdleTimeout,
		"api_key_set":     c.OpenAIAPIKey != "",
	}
}
