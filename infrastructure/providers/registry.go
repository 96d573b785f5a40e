package providers

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/oddsflow/swarm/internal/domain"
	"github.com/oddsflow/swarm/internal/ports"
)

// providerEnvVars maps each provider to the environment variable holding
// its API key.
var providerEnvVars = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"google":    "GOOGLE_API_KEY",
}

// Catalog is the parsed agent catalog file.
type Catalog struct {
	Agents []catalogAgent `yaml:"agents"`
}

type catalogAgent struct {
	domain.Agent `yaml:",inline"`

	// Temperature and MaxTokens override the registry defaults for this
	// agent only.
	Temperature *float64 `yaml:"temperature,omitempty"`
	MaxTokens   *int     `yaml:"max_tokens,omitempty"`
}

// LoadCatalog reads and validates the YAML agent catalog at path.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read agent catalog: %w", err)
	}

	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parse agent catalog: %w", err)
	}
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	return &catalog, nil
}

// Validate checks the catalog is non-empty, every agent is complete, IDs
// are unique, and every provider has a registered completer factory.
func (c *Catalog) Validate() error {
	if len(c.Agents) == 0 {
		return fmt.Errorf("agent catalog is empty")
	}

	validate := validator.New()
	seen := make(map[string]struct{}, len(c.Agents))
	for i, agent := range c.Agents {
		if err := validate.Struct(struct {
			ID       string `validate:"required"`
			Name     string `validate:"required"`
			Provider string `validate:"required"`
		}{agent.ID, agent.Name, agent.Provider}); err != nil {
			return fmt.Errorf("agent %d: %w", i, err)
		}
		if _, ok := seen[agent.ID]; ok {
			return fmt.Errorf("duplicate agent id %q", agent.ID)
		}
		seen[agent.ID] = struct{}{}
		if _, ok := providerEnvVars[agent.Provider]; !ok {
			return fmt.Errorf("agent %q: unknown provider %q", agent.ID, agent.Provider)
		}
	}
	return nil
}

// RegistryConfig carries the per-request defaults applied to every built
// completer.
type RegistryConfig struct {
	// Temperature and MaxTokens are defaults; catalog entries may override
	// them per agent.
	Temperature float64
	MaxTokens   int

	// Timeout bounds each provider request.
	Timeout time.Duration

	// RequestsPerSecond and Burst shape the per-agent rate limiter.
	// Zero disables rate limiting.
	RequestsPerSecond float64
	Burst             int

	// MaxAttempts and RetryBaseDelay configure the retry middleware.
	// MaxAttempts <= 1 disables retries.
	MaxAttempts    int
	RetryBaseDelay time.Duration
}

// BuildAdapters constructs one ProviderAdapter per catalog agent, in
// catalog order. Agents whose API key environment variable is unset are
// registered as unavailable rather than dropped, so requests naming them
// degrade instead of erroring.
func BuildAdapters(catalog *Catalog, cfg RegistryConfig, metrics ports.MetricsCollector, logger *zap.Logger) ([]ports.ProviderAdapter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	tracer := otel.Tracer("oddsflow.swarm/providers")

	adapters := make([]ports.ProviderAdapter, 0, len(catalog.Agents))
	for _, entry := range catalog.Agents {
		agent := entry.Agent

		envVar := providerEnvVars[agent.Provider]
		apiKey := os.Getenv(envVar)
		if apiKey == "" {
			logger.Warn("agent unavailable, API key not set",
				zap.String("agent_id", agent.ID),
				zap.String("provider", agent.Provider),
				zap.String("env_var", envVar))
			reason := &UnavailableError{AgentID: agent.ID, Provider: agent.Provider, EnvVar: envVar}
			adapters = append(adapters, NewUnavailableAdapter(agent, reason, logger))
			continue
		}

		completerCfg := CompleterConfig{
			APIKey:      apiKey,
			Model:       agent.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     cfg.Timeout,
		}
		if entry.Temperature != nil {
			completerCfg.Temperature = *entry.Temperature
		}
		if entry.MaxTokens != nil {
			completerCfg.MaxTokens = *entry.MaxTokens
		}

		middleware := buildMiddleware(cfg, agent, tracer, metrics)
		completer, err := NewCompleter(agent.Provider, completerCfg, middleware...)
		if err != nil {
			return nil, fmt.Errorf("build completer for agent %q: %w", agent.ID, err)
		}

		adapters = append(adapters, NewAdapter(agent, completer, logger))
	}

	return adapters, nil
}

// buildMiddleware assembles the standard chain. Order matters: metrics and
// tracing observe the full call including retries and rate-limit waits, the
// timeout bounds each individual attempt.
func buildMiddleware(cfg RegistryConfig, agent domain.Agent, tracer trace.Tracer, metrics ports.MetricsCollector) []Middleware {
	var chain []Middleware

	chain = append(chain, MetricsMiddleware(metrics, agent.ID, agent.Provider))
	chain = append(chain, TracingMiddleware(tracer, agent.ID))
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		chain = append(chain, RateLimitMiddleware(cfg.RequestsPerSecond, burst))
	}
	if cfg.MaxAttempts > 1 {
		chain = append(chain, RetryMiddleware(cfg.MaxAttempts, cfg.RetryBaseDelay))
	}
	if cfg.Timeout > 0 {
		chain = append(chain, TimeoutMiddleware(cfg.Timeout))
	}

	return chain
}
