package providers

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicDefaultModel is used when the catalog omits a model for an
// Anthropic-backed agent.
const AnthropicDefaultModel = "claude-3-5-sonnet-20241022"

// anthropicDefaultMaxTokens applies when the config leaves MaxTokens
// unset; the Anthropic API requires an explicit value.
const anthropicDefaultMaxTokens = 1024

func init() {
	RegisterCompleterFactory("anthropic", newAnthropicCompleter)
}

// anthropicCompleter implements Completer for Anthropic's Messages API.
type anthropicCompleter struct {
	client          anthropic.Client
	model           string
	temperature     float64
	maxTokens       int
	errorClassifier *ErrorClassifier
}

func newAnthropicCompleter(config CompleterConfig) (Completer, error) {
	model := config.Model
	if model == "" {
		model = AnthropicDefaultModel
	}
	maxTokens := config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}

	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	if config.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(config.Timeout))
	}

	return &anthropicCompleter{
		client:          anthropic.NewClient(opts...),
		model:           model,
		temperature:     config.Temperature,
		maxTokens:       maxTokens,
		errorClassifier: &ErrorClassifier{Provider: "anthropic"},
	}, nil
}

// Complete sends one message request and concatenates the text blocks of
// the response.
func (c *anthropicCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(c.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		Temperature: anthropic.Float(c.temperature),
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", c.handleError(err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		switch content := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(content.Text)
		}
	}
	if text.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return text.String(), nil
}

// Model returns the configured model identifier.
func (c *anthropicCompleter) Model() string { return c.model }

// handleError classifies errors from the Anthropic SDK into ProviderErrors.
func (c *anthropicCompleter) handleError(err error) error {
	if isContextError(err) {
		return c.errorClassifier.ClassifyContextError(err)
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return c.errorClassifier.ClassifyHTTPError(apiErr.StatusCode, apiErr.Error(), err)
	}

	return NewProviderError("anthropic", ErrorTypeUnknown, 0, "request failed", err)
}
