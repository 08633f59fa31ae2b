package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds the application configuration
type Config struct {
	// GitHub
	GithubToken   string `envconfig:"GITHUB_TOKEN"`
	GithubBaseURL string `split_words:"true"` // GitHub Enterprise; empty means api.github.com

	// Fetch tuning
	HTTPTimeout       time.Duration `envconfig:"HTTP_TIMEOUT" default:"30s" validate:"gt=0"`
	RequestsPerMinute int           `split_words:"true" default:"80" validate:"gt=0"`
	PerPage           int           `split_words:"true" default:"100" validate:"gt=0,lte=100"`
	MaxRetries        int           `split_words:"true" default:"3" validate:"gte=0"`
	BackoffBase       time.Duration `split_words:"true" default:"1s" validate:"gt=0"`
	BackoffMax        time.Duration `split_words:"true" default:"30s" validate:"gt=0"`
	RateLimitMaxWait  time.Duration `split_words:"true" default:"15m" validate:"gt=0"`
	StatsWorkers      int           `split_words:"true" default:"5" validate:"gt=0"`
	StatsCacheSize    int           `split_words:"true" default:"1000" validate:"gt=0"`

	// API server
	APIHost       string        `envconfig:"API_HOST" default:"0.0.0.0"`
	APIPort       int           `envconfig:"API_PORT" default:"8080" validate:"gt=0"`
	ShutdownGrace time.Duration `split_words:"true" default:"15s" validate:"gt=0"`

	// Logging
	LogLevel string `split_words:"true" default:"info" validate:"oneof=debug info warn error"`
}

// Load loads the configuration from the environment. A .env file in the
// working directory is applied first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("env load: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return &cfg, nil
}

// APIAddr returns the host:port the API server binds to.
func (c *Config) APIAddr() string {
	return fmt.Sprintf("%s:%d", c.APIHost, c.APIPort)
}

// SlogLevel maps the configured log level onto a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
