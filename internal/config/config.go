// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

// envPrefix namespaces all service environment variables (SWARM_HTTP_ADDR,
// SWARM_POSTGRES_DSN, ...). Provider API keys are unprefixed and read
// directly by the adapter registry.
const envPrefix = "swarm"

// Config is the full runtime configuration of the swarm service.
type Config struct {
	// HTTPAddr is the listen address of the HTTP API.
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080" validate:"required"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	// Environment selects logger encoding: production emits JSON,
	// development emits console output.
	Environment string `envconfig:"ENVIRONMENT" default:"production" validate:"oneof=development production"`

	// AgentCatalogPath points at the YAML agent catalog.
	AgentCatalogPath string `envconfig:"AGENT_CATALOG" default:"agents.yaml" validate:"required"`

	// PostgresDSN connects the leaderboard and prediction stores. Empty
	// falls back to in-memory stores.
	PostgresDSN string `envconfig:"POSTGRES_DSN"`

	// RedisAddr connects the result cache. Empty falls back to the
	// in-process cache.
	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// CacheTTL bounds how long a SwarmResult is served from cache.
	CacheTTL time.Duration `envconfig:"CACHE_TTL" default:"90s" validate:"gt=0"`

	// LeaderboardTTL bounds how long a leaderboard snapshot is reused
	// before re-reading the store.
	LeaderboardTTL time.Duration `envconfig:"LEADERBOARD_TTL" default:"5m" validate:"gt=0"`

	// Provider call shaping.
	AdapterTimeout    time.Duration `envconfig:"ADAPTER_TIMEOUT" default:"30s" validate:"gt=0"`
	Temperature       float64       `envconfig:"TEMPERATURE" default:"0.7" validate:"gte=0,lte=2"`
	MaxTokens         int           `envconfig:"MAX_TOKENS" default:"1024" validate:"gte=0"`
	RequestsPerSecond float64       `envconfig:"REQUESTS_PER_SECOND" default:"2" validate:"gte=0"`
	Burst             int           `envconfig:"BURST" default:"4" validate:"gte=0"`
	MaxAttempts       int           `envconfig:"MAX_ATTEMPTS" default:"3" validate:"gte=1"`
	RetryBaseDelay    time.Duration `envconfig:"RETRY_BASE_DELAY" default:"500ms" validate:"gt=0"`

	// ShutdownTimeout bounds graceful HTTP shutdown.
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s" validate:"gt=0"`
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}
