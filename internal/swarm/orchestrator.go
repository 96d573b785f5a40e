package swarm

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/oddsflow/swarm/internal/domain"
	"github.com/oddsflow/swarm/internal/ports"
)

// Orchestrator fans an analysis request out to every selected provider
// adapter, tolerates individual failures, and reduces the per-agent results
// into a single SwarmResult. It never writes the leaderboard; weights are
// read-only here so the consensus pass cannot race concurrent settlement.
type Orchestrator struct {
	adapters []ports.ProviderAdapter
	byID     map[string]ports.ProviderAdapter

	leaderboard    *LeaderboardReader
	cache          ports.ResultCache
	contextBuilder ports.ContextBuilder
	metrics        ports.MetricsCollector
	logger         *zap.Logger
}

// OrchestratorConfig carries the orchestrator's dependencies. Adapters and
// Leaderboard are required; Cache, ContextBuilder, Metrics, and Logger are
// optional and default to no-ops.
type OrchestratorConfig struct {
	// Adapters in registry order. Result ordering and sequential-mode
	// invocation order follow this slice.
	Adapters []ports.ProviderAdapter

	// Leaderboard supplies the vote-weight snapshot read before each
	// fan-out.
	Leaderboard *LeaderboardReader

	// Cache short-circuits repeated orchestration for the same event.
	Cache ports.ResultCache

	// ContextBuilder assembles the optional market data blob.
	ContextBuilder ports.ContextBuilder

	Metrics ports.MetricsCollector
	Logger  *zap.Logger
}

// NewOrchestrator validates the configuration and builds an orchestrator.
func NewOrchestrator(cfg OrchestratorConfig) (*Orchestrator, error) {
	if len(cfg.Adapters) == 0 {
		return nil, fmt.Errorf("at least one provider adapter is required")
	}
	if cfg.Leaderboard == nil {
		return nil, fmt.Errorf("leaderboard reader is required")
	}

	byID := make(map[string]ports.ProviderAdapter, len(cfg.Adapters))
	for _, adapter := range cfg.Adapters {
		id := adapter.Agent().ID
		if id == "" {
			return nil, fmt.Errorf("adapter with empty agent id")
		}
		if _, exists := byID[id]; exists {
			return nil, fmt.Errorf("duplicate adapter for agent %q", id)
		}
		byID[id] = adapter
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Orchestrator{
		adapters:       cfg.Adapters,
		byID:           byID,
		leaderboard:    cfg.Leaderboard,
		cache:          cfg.Cache,
		contextBuilder: cfg.ContextBuilder,
		metrics:        metrics,
		logger:         logger.With(zap.String("component", "orchestrator")),
	}, nil
}

// Analyze runs one orchestration cycle for the event and returns the
// SwarmResult. Individual adapter failures degrade to UNKNOWN/LOW entries;
// Analyze itself fails only on an invalid request or an unknown agent
// selection. Even a total provider outage yields a well-formed result with
// an UNKNOWN consensus.
func (o *Orchestrator) Analyze(ctx context.Context, req domain.AnalysisRequest, opts Options) (*domain.SwarmResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	selected, err := o.selectAdapters(opts.AgentIDs)
	if err != nil {
		return nil, err
	}

	if opts.UseCache {
		if cached, ok := o.cacheLookup(ctx, req.EventID); ok {
			return cached, nil
		}
	}

	started := time.Now()
	marketCtx := o.buildMarketContext(ctx, req, opts)
	weights := o.snapshotWeights(ctx, selected)

	analyses := o.fanOut(ctx, selected, req, marketCtx, opts.Sequential)

	result := o.reduce(req, analyses, weights)

	if opts.UseCache && o.cache != nil {
		if err := o.cache.Set(ctx, req.EventID, result, opts.cacheTTL()); err != nil {
			// The cache is an optimization, never a reason to fail the
			// analysis.
			o.logger.Warn("result cache write failed",
				zap.String("event_id", req.EventID), zap.Error(err))
		}
	}

	o.metrics.RecordLatency("swarm_analyze", time.Since(started),
		map[string]string{"mode": fanOutMode(opts.Sequential)})

	return result, nil
}

// selectAdapters resolves the requested agent subset, preserving registry
// order. An empty selection means every registered agent.
func (o *Orchestrator) selectAdapters(agentIDs []string) ([]ports.ProviderAdapter, error) {
	if len(agentIDs) == 0 {
		return o.adapters, nil
	}

	requested := make(map[string]bool, len(agentIDs))
	for _, id := range agentIDs {
		if _, ok := o.byID[id]; !ok {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownAgent, id)
		}
		requested[id] = true
	}

	selected := make([]ports.ProviderAdapter, 0, len(requested))
	for _, adapter := range o.adapters {
		if requested[adapter.Agent().ID] {
			selected = append(selected, adapter)
		}
	}
	if len(selected) == 0 {
		return nil, domain.ErrNoAgentsSelected
	}
	return selected, nil
}

func (o *Orchestrator) cacheLookup(ctx context.Context, eventID string) (*domain.SwarmResult, bool) {
	if o.cache == nil {
		return nil, false
	}
	cached, ok, err := o.cache.Get(ctx, eventID)
	if err != nil {
		// Treated as a miss; the analysis proceeds without caching.
		o.logger.Warn("result cache read failed", zap.String("event_id", eventID), zap.Error(err))
		o.metrics.RecordCounter("swarm_cache_events_total", 1, map[string]string{"event": "error"})
		return nil, false
	}
	if !ok {
		o.metrics.RecordCounter("swarm_cache_events_total", 1, map[string]string{"event": "miss"})
		return nil, false
	}
	o.metrics.RecordCounter("swarm_cache_events_total", 1, map[string]string{"event": "hit"})
	return cached, true
}

func (o *Orchestrator) buildMarketContext(ctx context.Context, req domain.AnalysisRequest, opts Options) string {
	if !opts.IncludeMarketContext || o.contextBuilder == nil {
		return ""
	}
	marketCtx, err := o.contextBuilder.Build(ctx, req)
	if err != nil {
		o.logger.Warn("market context build failed",
			zap.String("event_id", req.EventID), zap.Error(err))
		return ""
	}
	return marketCtx
}

// snapshotWeights reads the leaderboard once, before the fan-out, so the
// consensus uses weights as they stood when the cycle started. Entries for
// weighting-ineligible agents are dropped so they aggregate at the neutral
// 1.0. A failed read degrades to neutral weights for everyone.
func (o *Orchestrator) snapshotWeights(
	ctx context.Context,
	selected []ports.ProviderAdapter,
) map[string]domain.LeaderboardEntry {
	board, err := o.leaderboard.Snapshot(ctx)
	if err != nil {
		o.logger.Warn("leaderboard read failed, using neutral weights", zap.Error(err))
		return nil
	}

	weights := make(map[string]domain.LeaderboardEntry, len(selected))
	for _, adapter := range selected {
		agent := adapter.Agent()
		if !agent.Weighted {
			continue
		}
		if entry, ok := board[agent.ID]; ok {
			weights[agent.ID] = entry
		}
	}
	return weights
}

// fanOut invokes every selected adapter and returns exactly one analysis
// per adapter, re-ordered to the selection (registry) order regardless of
// completion order. The barrier tolerates individual failures: a failed
// call becomes a degraded entry, never an error.
func (o *Orchestrator) fanOut(
	ctx context.Context,
	selected []ports.ProviderAdapter,
	req domain.AnalysisRequest,
	marketCtx string,
	sequential bool,
) []domain.AgentAnalysis {
	analyses := make([]domain.AgentAnalysis, len(selected))

	if sequential {
		for i, adapter := range selected {
			analyses[i] = o.invokeOne(ctx, adapter, req, marketCtx)
		}
		return analyses
	}

	var g errgroup.Group
	for i, adapter := range selected {
		g.Go(func() error {
			analyses[i] = o.invokeOne(ctx, adapter, req, marketCtx)
			return nil
		})
	}
	// Branches never return errors; the barrier only joins them.
	_ = g.Wait()

	return analyses
}

// invokeOne runs a single adapter call and converts any failure into a
// degraded analysis so the batch stays complete.
func (o *Orchestrator) invokeOne(
	ctx context.Context,
	adapter ports.ProviderAdapter,
	req domain.AnalysisRequest,
	marketCtx string,
) domain.AgentAnalysis {
	agent := adapter.Agent()
	started := time.Now()

	analysis, err := adapter.Invoke(ctx, req, marketCtx)
	latency := time.Since(started)

	if err != nil {
		o.logger.Warn("agent call failed",
			zap.String("agent_id", agent.ID),
			zap.String("event_id", req.EventID),
			zap.Duration("latency", latency),
			zap.Error(err))
		o.metrics.RecordCounter("swarm_agent_failures_total", 1,
			map[string]string{"agent": agent.ID, "provider": agent.Provider})
		return domain.NewDegradedAnalysis(agent, err, latency, time.Now().UTC())
	}

	// A populated error string must never carry a confident opinion.
	if analysis.Error != "" {
		analysis.Verdict = domain.VerdictUnknown
		analysis.Confidence = domain.ConfidenceLow
	}

	o.metrics.RecordLatency("swarm_agent_call", latency,
		map[string]string{"agent": agent.ID, "provider": agent.Provider})

	return analysis
}

// reduce computes the consensus from the collected analyses and assembles
// the final result, deriving the single ensemble bet when the consensus
// endorses one.
func (o *Orchestrator) reduce(
	req domain.AnalysisRequest,
	analyses []domain.AgentAnalysis,
	weights map[string]domain.LeaderboardEntry,
) *domain.SwarmResult {
	consensus := ComputeConsensus(analyses, weights)

	result := &domain.SwarmResult{
		EventID:   req.EventID,
		EventName: req.EventName(),
		Analyses:  analyses,
		Consensus: consensus,
		Timestamp: time.Now().UTC(),
	}
	if consensus.Verdict.IsBet() {
		result.Bet = DeriveBetSelection(analyses)
	}

	// Labeled by sport, not event id: one series per event would grow the
	// metric without bound.
	if score, err := parseScore(consensus.Score); err == nil {
		o.metrics.RecordGauge("swarm_consensus_score", score,
			map[string]string{"sport": req.Sport})
	}

	return result
}

func fanOutMode(sequential bool) string {
	if sequential {
		return "sequential"
	}
	return "parallel"
}

func parseScore(s string) (float64, error) {
	var v float64
	_, err := fmt.Sscanf(s, "%f", &v)
	return v, err
}
