package swarm

import (
	"context"

	"go.uber.org/zap"

	"github.com/oddsflow/swarm/internal/domain"
)

// StreamEvent is one emission from AnalyzeStream: either a single agent's
// analysis as it completes, or the final result carrying the consensus.
// Exactly one of the fields is set.
type StreamEvent struct {
	Analysis *domain.AgentAnalysis
	Result   *domain.SwarmResult
}

// AnalyzeStream is the incremental variant of Analyze: it yields each
// agent's analysis as it completes, followed by one final event carrying
// the full SwarmResult. Agents are awaited one at a time in registry order
// so the emission order is stable and replayable for the same input.
//
// The cache is not consulted on this path (callers want live progress) but
// the final result is still written when opts.UseCache is set. Validation
// and agent-selection errors are returned synchronously; after that the
// stream always runs to a final event unless the context is canceled.
func (o *Orchestrator) AnalyzeStream(
	ctx context.Context,
	req domain.AnalysisRequest,
	opts Options,
) (<-chan StreamEvent, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	selected, err := o.selectAdapters(opts.AgentIDs)
	if err != nil {
		return nil, err
	}

	events := make(chan StreamEvent)

	go func() {
		defer close(events)

		marketCtx := o.buildMarketContext(ctx, req, opts)
		weights := o.snapshotWeights(ctx, selected)

		analyses := make([]domain.AgentAnalysis, 0, len(selected))
		for _, adapter := range selected {
			analysis := o.invokeOne(ctx, adapter, req, marketCtx)
			analyses = append(analyses, analysis)

			select {
			case events <- StreamEvent{Analysis: &analysis}:
			case <-ctx.Done():
				return
			}
		}

		result := o.reduce(req, analyses, weights)

		if opts.UseCache && o.cache != nil {
			if err := o.cache.Set(ctx, req.EventID, result, opts.cacheTTL()); err != nil {
				o.logger.Warn("result cache write failed after stream",
					zap.String("event_id", req.EventID), zap.Error(err))
			}
		}

		select {
		case events <- StreamEvent{Result: result}:
		case <-ctx.Done():
		}
	}()

	return events, nil
}
