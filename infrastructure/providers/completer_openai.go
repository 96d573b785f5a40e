package providers

import (
	"context"
	"errors"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIDefaultModel is used when the catalog omits a model for an
// OpenAI-backed agent.
const OpenAIDefaultModel = "gpt-4o-mini"

func init() {
	RegisterCompleterFactory("openai", newOpenAICompleter)
}

// openAICompleter implements Completer for OpenAI's chat completion API.
type openAICompleter struct {
	client          *openai.Client
	model           string
	temperature     float64
	maxTokens       int
	errorClassifier *ErrorClassifier
}

func newOpenAICompleter(config CompleterConfig) (Completer, error) {
	model := config.Model
	if model == "" {
		model = OpenAIDefaultModel
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	if config.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: config.Timeout}
	}

	return &openAICompleter{
		client:          openai.NewClientWithConfig(clientConfig),
		model:           model,
		temperature:     config.Temperature,
		maxTokens:       config.MaxTokens,
		errorClassifier: &ErrorClassifier{Provider: "openai"},
	}, nil
}

// Complete sends one chat completion request and returns the raw content.
func (c *openAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: float32(c.temperature),
	}
	if c.maxTokens > 0 {
		req.MaxTokens = c.maxTokens
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", c.handleError(err)
	}
	if len(resp.Choices) == 0 {
		return "", NewProviderError("openai", ErrorTypeServerError, 0, "no response choices returned", nil)
	}
	return resp.Choices[0].Message.Content, nil
}

// Model returns the configured model identifier.
func (c *openAICompleter) Model() string { return c.model }

// handleError classifies errors from the OpenAI SDK into ProviderErrors.
func (c *openAICompleter) handleError(err error) error {
	if isContextError(err) {
		return c.errorClassifier.ClassifyContextError(err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		message := apiErr.Message
		if message == "" {
			message = "unknown error"
		}
		return c.errorClassifier.ClassifyHTTPError(apiErr.HTTPStatusCode, message, err)
	}

	return NewProviderError("openai", ErrorTypeUnknown, 0, "request failed", err)
}
