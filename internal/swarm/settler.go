package swarm

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oddsflow/swarm/internal/domain"
	"github.com/oddsflow/swarm/internal/ports"
)

// Settler is the feedback updater: once an event's real-world outcome is
// known it replays the per-agent verdicts recorded on the prediction
// against that outcome and updates each agent's leaderboard row. This is
// the only writer of the leaderboard store.
type Settler struct {
	predictions ports.PredictionStore
	leaderboard ports.LeaderboardStore
	reader      *LeaderboardReader
	metrics     ports.MetricsCollector
	logger      *zap.Logger
}

// NewSettler builds a settler. reader may be nil; when present its snapshot
// is invalidated after a settlement so fresh weights apply to the next
// consensus (never retroactively to past ones).
func NewSettler(
	predictions ports.PredictionStore,
	leaderboard ports.LeaderboardStore,
	reader *LeaderboardReader,
	metrics ports.MetricsCollector,
	logger *zap.Logger,
) (*Settler, error) {
	if predictions == nil || leaderboard == nil {
		return nil, fmt.Errorf("prediction store and leaderboard store are required")
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Settler{
		predictions: predictions,
		leaderboard: leaderboard,
		reader:      reader,
		metrics:     metrics,
		logger:      logger.With(zap.String("component", "settler")),
	}, nil
}

// SettlePrediction records the real-world outcome of a pending prediction.
// For each agent verdict on the record it judges whether the agent called
// the event correctly and records a won/lost outcome; a push is recorded as
// a push for every agent regardless of verdict. Degraded analyses (failed
// calls, UNKNOWN verdicts) gave no opinion and are skipped.
//
// Settling an already-settled record returns domain.ErrAlreadySettled and
// changes no leaderboard state; the status transition happens before any
// counters move, so the operation cannot double-count under concurrent
// settlement of the same record.
func (s *Settler) SettlePrediction(ctx context.Context, id uuid.UUID, outcome domain.Outcome) error {
	if !outcome.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidOutcome, outcome)
	}

	record, err := s.predictions.Get(ctx, id)
	if err != nil {
		return err
	}
	if !record.Pending() {
		return fmt.Errorf("%w: prediction %s is %s", domain.ErrAlreadySettled, id, record.Status)
	}

	// The store re-checks the pending status atomically; a concurrent
	// settler loses this transition and gets ErrAlreadySettled.
	if err := s.predictions.MarkSettled(ctx, id, outcome); err != nil {
		return err
	}

	settled := 0
	for _, analysis := range record.Result.Analyses {
		if !analysis.IsValid() {
			continue
		}

		agentOutcome := outcomeForAgent(analysis.Verdict, outcome)
		if err := s.leaderboard.RecordOutcome(ctx, analysis.AgentID, agentOutcome); err != nil {
			s.logger.Error("failed to record agent outcome",
				zap.String("agent_id", analysis.AgentID),
				zap.String("prediction_id", id.String()),
				zap.Error(err))
			continue
		}
		settled++
		s.metrics.RecordCounter("swarm_agent_outcomes_total", 1,
			map[string]string{"agent": analysis.AgentID, "outcome": string(agentOutcome)})
	}

	if s.reader != nil {
		s.reader.Invalidate()
	}

	s.logger.Info("prediction settled",
		zap.String("prediction_id", id.String()),
		zap.String("outcome", string(outcome)),
		zap.Int("agents_updated", settled))
	s.metrics.RecordCounter("swarm_settlements_total", 1,
		map[string]string{"outcome": string(outcome)})

	return nil
}

// outcomeForAgent judges one agent's verdict against the event outcome.
// An agent was right when it endorsed a bet that won, or advised against a
// bet that lost. Pushes void the event for everyone.
func outcomeForAgent(verdict domain.Verdict, eventOutcome domain.Outcome) domain.Outcome {
	if eventOutcome == domain.OutcomePush {
		return domain.OutcomePush
	}

	wasBet := verdict.IsBet()
	correct := (eventOutcome == domain.OutcomeWon && wasBet) ||
		(eventOutcome == domain.OutcomeLost && !wasBet)

	if correct {
		return domain.OutcomeWon
	}
	return domain.OutcomeLost
}
