package providers

import (
	"context"
	"errors"

	"google.golang.org/genai"
)

// GoogleDefaultModel is used when the catalog omits a model for a
// Google-backed agent.
const GoogleDefaultModel = "gemini-2.0-flash"

func init() {
	RegisterCompleterFactory("google", newGoogleCompleter)
}

// googleCompleter implements Completer for Google's Gemini API.
type googleCompleter struct {
	client          *genai.Client
	model           string
	temperature     float64
	maxTokens       int
	errorClassifier *ErrorClassifier
}

func newGoogleCompleter(config CompleterConfig) (Completer, error) {
	model := config.Model
	if model == "" {
		model = GoogleDefaultModel
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}

	return &googleCompleter{
		client:          client,
		model:           model,
		temperature:     config.Temperature,
		maxTokens:       config.MaxTokens,
		errorClassifier: &ErrorClassifier{Provider: "google"},
	}, nil
}

// Complete sends one generate-content request and returns the response
// text.
func (c *googleCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	generationConfig := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(c.temperature)),
	}
	if c.maxTokens > 0 {
		generationConfig.MaxOutputTokens = int32(c.maxTokens)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, generationConfig)
	if err != nil {
		return "", c.handleError(err)
	}

	text := resp.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// Model returns the configured model identifier.
func (c *googleCompleter) Model() string { return c.model }

// handleError classifies errors from the Gemini SDK into ProviderErrors.
func (c *googleCompleter) handleError(err error) error {
	if isContextError(err) {
		return c.errorClassifier.ClassifyContextError(err)
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return c.errorClassifier.ClassifyHTTPError(apiErr.Code, apiErr.Message, err)
	}

	return NewProviderError("google", ErrorTypeUnknown, 0, "request failed", err)
}
