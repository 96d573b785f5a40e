// Package ports defines the interfaces between the swarm core and the
// infrastructure layer. The orchestrator, consensus calculator, and settler
// depend only on these contracts, which keeps the core testable with
// in-memory fakes.
package ports

import (
	"context"

	"github.com/oddsflow/swarm/internal/domain"
)

// ProviderAdapter translates a neutral analysis request into one provider's
// inference call and parses the raw output into a structured AgentAnalysis.
//
// Implementations must enforce their own per-call timeout and must return a
// typed unavailable error synchronously, before any network I/O, when
// credentials are missing. A returned error is converted by the
// orchestrator into a degraded analysis (UNKNOWN verdict, LOW confidence,
// error string set); it never fails the batch.
type ProviderAdapter interface {
	// Agent returns the immutable catalog entry this adapter serves.
	Agent() domain.Agent

	// Invoke runs one inference call for the event. marketContext is an
	// optional pre-built market data blob; empty means no market context
	// was requested or available.
	Invoke(ctx context.Context, req domain.AnalysisRequest, marketContext string) (domain.AgentAnalysis, error)
}

// ContextBuilder assembles auxiliary market data into the text blob passed
// to provider adapters alongside the event.
type ContextBuilder interface {
	// Build renders the request's market snapshot. An empty string with a
	// nil error means no context is available for the event.
	Build(ctx context.Context, req domain.AnalysisRequest) (string, error)
}
