package providers

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/oddsflow/swarm/internal/domain"
	"github.com/oddsflow/swarm/internal/ports"
)

// providerAdapter binds one catalog agent to a configured completer and a
// response parser. It is the ports.ProviderAdapter the orchestrator fans
// out over.
type providerAdapter struct {
	agent     domain.Agent
	completer Completer
	parser    *ResponseParser
	logger    *zap.Logger

	// unavailable is set when the agent could not be configured at startup
	// (missing API key). Invoke fails fast without any network I/O.
	unavailable *UnavailableError
}

var _ ports.ProviderAdapter = (*providerAdapter)(nil)

// NewAdapter wraps a completer as a ProviderAdapter for the given agent.
func NewAdapter(agent domain.Agent, completer Completer, logger *zap.Logger) ports.ProviderAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &providerAdapter{
		agent:     agent,
		completer: completer,
		parser:    NewResponseParser(),
		logger:    logger,
	}
}

// NewUnavailableAdapter builds an adapter that always fails with the given
// unavailability reason. Registering it keeps the agent addressable so its
// failures show up as degraded analyses instead of unknown-agent errors.
func NewUnavailableAdapter(agent domain.Agent, reason *UnavailableError, logger *zap.Logger) ports.ProviderAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &providerAdapter{
		agent:       agent,
		parser:      NewResponseParser(),
		logger:      logger,
		unavailable: reason,
	}
}

// Agent returns the catalog entry this adapter serves.
func (a *providerAdapter) Agent() domain.Agent { return a.agent }

// Invoke runs one provider call for the event and parses the output into an
// analysis. Any failure is returned as an error; the orchestrator converts
// it into a degraded analysis.
func (a *providerAdapter) Invoke(ctx context.Context, req domain.AnalysisRequest, marketContext string) (domain.AgentAnalysis, error) {
	if a.unavailable != nil {
		return domain.AgentAnalysis{}, a.unavailable
	}

	prompt := BuildPrompt(a.agent, req, marketContext)
	started := time.Now()

	raw, err := a.completer.Complete(ctx, prompt)
	latency := time.Since(started)
	if err != nil {
		return domain.AgentAnalysis{}, err
	}

	parsed, err := a.parser.Parse(raw)
	if err != nil {
		a.logger.Debug("unparseable model output",
			zap.String("agent_id", a.agent.ID),
			zap.Int("response_chars", len(raw)),
			zap.Error(err))
		return domain.AgentAnalysis{}, fmt.Errorf("parse %s response: %w", a.agent.Provider, err)
	}

	confidence := parsed.Confidence
	if confidence == "" {
		confidence = domain.ConfidenceMedium
	}

	return domain.AgentAnalysis{
		AgentID:        a.agent.ID,
		AgentName:      a.agent.Name,
		Opinion:        parsed.Opinion,
		Verdict:        parsed.Verdict,
		Confidence:     confidence,
		WinProbability: parsed.WinProbability,
		Bet:            parsed.Bet,
		Explanation:    parsed.Explanation,
		LatencyMs:      latency.Milliseconds(),
		Timestamp:      time.Now().UTC(),
	}, nil
}
