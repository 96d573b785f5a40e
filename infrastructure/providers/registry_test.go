package providers

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oddsflow/swarm/internal/domain"
)

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agents.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const validCatalogYAML = `
agents:
  - id: sharp
    name: The Sharp
    provider: openai
    model: gpt-4o-mini
    persona: You bet with discipline.
    weighted: true
  - id: quant
    name: The Quant
    provider: anthropic
    model: claude-3-5-sonnet-20241022
    weighted: true
    temperature: 0.2
`

func TestLoadCatalog(t *testing.T) {
	catalog, err := LoadCatalog(writeCatalog(t, validCatalogYAML))
	require.NoError(t, err)

	require.Len(t, catalog.Agents, 2)
	assert.Equal(t, "sharp", catalog.Agents[0].ID)
	assert.True(t, catalog.Agents[0].Weighted)
	require.NotNil(t, catalog.Agents[1].Temperature)
	assert.Equal(t, 0.2, *catalog.Agents[1].Temperature)
}

func TestLoadCatalogValidation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "empty catalog",
			yaml:    "agents: []",
			wantErr: "empty",
		},
		{
			name: "missing id",
			yaml: `
agents:
  - name: Nameless
    provider: openai
`,
			wantErr: "agent 0",
		},
		{
			name: "duplicate ids",
			yaml: `
agents:
  - id: sharp
    name: A
    provider: openai
  - id: sharp
    name: B
    provider: anthropic
`,
			wantErr: "duplicate agent id",
		},
		{
			name: "unknown provider",
			yaml: `
agents:
  - id: sharp
    name: A
    provider: mystery
`,
			wantErr: "unknown provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCatalog(writeCatalog(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBuildAdaptersMissingKeyRegistersUnavailable(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")

	catalog, err := LoadCatalog(writeCatalog(t, validCatalogYAML))
	require.NoError(t, err)

	adapters, err := BuildAdapters(catalog, RegistryConfig{}, nil, nil)
	require.NoError(t, err)
	require.Len(t, adapters, 2)

	// Catalog order is preserved and the agents stay addressable.
	assert.Equal(t, "sharp", adapters[0].Agent().ID)
	assert.Equal(t, "quant", adapters[1].Agent().ID)

	req := domain.AnalysisRequest{
		EventID: "evt-1", Sport: "basketball",
		HomeTeam: "Lakers", AwayTeam: "Celtics",
	}
	_, err = adapters[0].Invoke(context.Background(), req, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAgentUnavailable))

	var unavailable *UnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Equal(t, "OPENAI_API_KEY", unavailable.EnvVar)
}

func TestNewCompleterRequiresAPIKey(t *testing.T) {
	_, err := NewCompleter("openai", CompleterConfig{})
	assert.ErrorIs(t, err, ErrEmptyAPIKey)
}

func TestNewCompleterUnknownProvider(t *testing.T) {
	_, err := NewCompleter("mystery", CompleterConfig{APIKey: "k"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider type")
}

func TestNewCompleterAppliesMiddlewareInOrder(t *testing.T) {
	RegisterCompleterFactory("test-echo", func(CompleterConfig) (Completer, error) {
		return &stubCompleter{response: "base"}, nil
	})

	var order []string
	tag := func(name string) Middleware {
		return func(next Completer) Completer {
			return completerFunc{fn: func(ctx context.Context, prompt string) (string, error) {
				order = append(order, name)
				return next.Complete(ctx, prompt)
			}, model: next.Model}
		}
	}

	completer, err := NewCompleter("test-echo", CompleterConfig{APIKey: "k"}, tag("outer"), tag("inner"))
	require.NoError(t, err)

	_, err = completer.Complete(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner"}, order)
}

type completerFunc struct {
	fn    func(context.Context, string) (string, error)
	model func() string
}

func (c completerFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return c.fn(ctx, prompt)
}

func (c completerFunc) Model() string { return c.model() }
