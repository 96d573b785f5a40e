// Package providers implements the agent registry and the per-provider
// adapters that turn a neutral analysis request into one inference call.
//
// Each provider (OpenAI, Anthropic, Google) is abstracted behind the small
// Completer interface; cross-cutting concerns (timeout, rate limiting,
// retries, tracing, metrics) are composed onto it through middleware, and
// the shared adapter handles prompt construction and response parsing.
package providers

import (
	"context"
	"fmt"
	"time"
)

// Completer is the minimal contract a provider implementation must satisfy:
// send one prompt, return the raw model output. Middleware wraps any
// conforming implementation.
type Completer interface {
	// Complete sends the prompt and returns the raw response text.
	Complete(ctx context.Context, prompt string) (string, error)

	// Model returns the configured model identifier, for logging and
	// tracing.
	Model() string
}

// Middleware wraps a Completer to add cross-cutting functionality without
// touching provider logic.
type Middleware func(Completer) Completer

// CompleterConfig holds the settings shared by all provider completers.
type CompleterConfig struct {
	// APIKey authenticates requests to the provider.
	APIKey string

	// Model is the provider-specific model identifier.
	Model string

	// BaseURL overrides the provider's default endpoint when non-empty.
	BaseURL string

	// Temperature is passed through to the model. Handicapping wants
	// some variance between agents but not chaos.
	Temperature float64

	// MaxTokens bounds the response length.
	MaxTokens int

	// Timeout bounds each individual request. Enforced by the HTTP
	// client where the SDK supports it and by TimeoutMiddleware
	// otherwise.
	Timeout time.Duration
}

// CompleterFactory creates a Completer for one provider type.
type CompleterFactory func(CompleterConfig) (Completer, error)

// completerFactories maps provider type names to their factories.
// Providers register themselves in init so adding a backend is a single
// new file.
var completerFactories = map[string]CompleterFactory{}

// RegisterCompleterFactory registers a factory for a provider type.
func RegisterCompleterFactory(providerType string, factory CompleterFactory) {
	completerFactories[providerType] = factory
}

// NewCompleter creates a completer for the given provider type and applies
// the middleware chain, first middleware outermost.
func NewCompleter(providerType string, config CompleterConfig, middleware ...Middleware) (Completer, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	factory, ok := completerFactories[providerType]
	if !ok {
		return nil, fmt.Errorf("unknown provider type %q", providerType)
	}

	completer, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s completer: %w", providerType, err)
	}

	for i := len(middleware) - 1; i >= 0; i-- {
		completer = middleware[i](completer)
	}
	return completer, nil
}
