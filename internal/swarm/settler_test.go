package swarm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oddsflow/swarm/internal/domain"
)

type fakePredictionStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]domain.PredictionRecord
}

func newFakePredictionStore() *fakePredictionStore {
	return &fakePredictionStore{records: make(map[uuid.UUID]domain.PredictionRecord)}
}

func (f *fakePredictionStore) Create(_ context.Context, record *domain.PredictionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[record.ID] = *record
	return nil
}

func (f *fakePredictionStore) Get(_ context.Context, id uuid.UUID) (*domain.PredictionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[id]
	if !ok {
		return nil, domain.ErrPredictionNotFound
	}
	copied := record
	return &copied, nil
}

func (f *fakePredictionStore) MarkSettled(_ context.Context, id uuid.UUID, outcome domain.Outcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[id]
	if !ok {
		return domain.ErrPredictionNotFound
	}
	if !record.Pending() {
		return domain.ErrAlreadySettled
	}
	now := time.Now()
	record.Status = domain.StatusForOutcome(outcome)
	record.SettledAt = &now
	f.records[id] = record
	return nil
}

func pendingRecord(t *testing.T, store *fakePredictionStore, analyses ...domain.AgentAnalysis) domain.PredictionRecord {
	t.Helper()
	result := domain.SwarmResult{
		EventID:  "evt-1",
		Analyses: analyses,
	}
	record := domain.NewPredictionRecord(result, time.Now())
	require.NoError(t, store.Create(context.Background(), &record))
	return record
}

func newTestSettler(t *testing.T, predictions *fakePredictionStore, leaderboard *fakeLeaderboardStore) *Settler {
	t.Helper()
	settler, err := NewSettler(predictions, leaderboard, nil, nil, nil)
	require.NoError(t, err)
	return settler
}

func TestSettlePredictionJudgesAgents(t *testing.T) {
	tests := []struct {
		name    string
		verdict domain.Verdict
		outcome domain.Outcome
		want    domain.Outcome
	}{
		{"bet verdict on won event", domain.VerdictStrongBet, domain.OutcomeWon, domain.OutcomeWon},
		{"slight edge on won event", domain.VerdictSlightEdge, domain.OutcomeWon, domain.OutcomeWon},
		{"bet verdict on lost event", domain.VerdictStrongBet, domain.OutcomeLost, domain.OutcomeLost},
		{"pass verdict on lost event", domain.VerdictAvoid, domain.OutcomeLost, domain.OutcomeWon},
		{"pass verdict on won event", domain.VerdictRisky, domain.OutcomeWon, domain.OutcomeLost},
		{"push voids a bet verdict", domain.VerdictStrongBet, domain.OutcomePush, domain.OutcomePush},
		{"push voids a pass verdict", domain.VerdictAvoid, domain.OutcomePush, domain.OutcomePush},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			predictions := newFakePredictionStore()
			leaderboard := &fakeLeaderboardStore{}
			settler := newTestSettler(t, predictions, leaderboard)

			record := pendingRecord(t, predictions,
				validAnalysis("agent", tt.verdict, domain.ConfidenceHigh))

			require.NoError(t, settler.SettlePrediction(context.Background(), record.ID, tt.outcome))
			assert.Equal(t, []string{"agent:" + string(tt.want)}, leaderboard.applied)
		})
	}
}

func TestSettlePredictionSkipsInvalidAnalyses(t *testing.T) {
	predictions := newFakePredictionStore()
	leaderboard := &fakeLeaderboardStore{}
	settler := newTestSettler(t, predictions, leaderboard)

	record := pendingRecord(t, predictions,
		validAnalysis("solid", domain.VerdictStrongBet, domain.ConfidenceHigh),
		failedAnalysis("flaky"))

	require.NoError(t, settler.SettlePrediction(context.Background(), record.ID, domain.OutcomeWon))

	// Only the agent with a usable opinion is credited.
	assert.Equal(t, []string{"solid:won"}, leaderboard.applied)
}

func TestSettlePredictionIdempotent(t *testing.T) {
	predictions := newFakePredictionStore()
	leaderboard := &fakeLeaderboardStore{}
	settler := newTestSettler(t, predictions, leaderboard)

	record := pendingRecord(t, predictions,
		validAnalysis("agent", domain.VerdictStrongBet, domain.ConfidenceHigh))

	require.NoError(t, settler.SettlePrediction(context.Background(), record.ID, domain.OutcomeWon))

	err := settler.SettlePrediction(context.Background(), record.ID, domain.OutcomeWon)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrAlreadySettled))

	// No double counting.
	assert.Equal(t, []string{"agent:won"}, leaderboard.applied)
	entry := leaderboard.board["agent"]
	assert.Equal(t, 1, entry.Wins)
}

func TestSettlePredictionUnknownID(t *testing.T) {
	settler := newTestSettler(t, newFakePredictionStore(), &fakeLeaderboardStore{})

	err := settler.SettlePrediction(context.Background(), uuid.New(), domain.OutcomeWon)
	assert.True(t, errors.Is(err, domain.ErrPredictionNotFound))
}

func TestSettlePredictionInvalidOutcome(t *testing.T) {
	predictions := newFakePredictionStore()
	settler := newTestSettler(t, predictions, &fakeLeaderboardStore{})

	record := pendingRecord(t, predictions,
		validAnalysis("agent", domain.VerdictStrongBet, domain.ConfidenceHigh))

	err := settler.SettlePrediction(context.Background(), record.ID, domain.Outcome("draw"))
	assert.True(t, errors.Is(err, domain.ErrInvalidOutcome))
}

func TestSettlePredictionInvalidatesReader(t *testing.T) {
	predictions := newFakePredictionStore()
	leaderboard := &fakeLeaderboardStore{}
	reader := NewLeaderboardReader(leaderboard, time.Hour)

	settler, err := NewSettler(predictions, leaderboard, reader, nil, nil)
	require.NoError(t, err)

	// Warm the snapshot.
	_, err = reader.Snapshot(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, leaderboard.reads)

	record := pendingRecord(t, predictions,
		validAnalysis("agent", domain.VerdictStrongBet, domain.ConfidenceHigh))
	require.NoError(t, settler.SettlePrediction(context.Background(), record.ID, domain.OutcomeWon))

	// The next snapshot re-reads the store and sees the new outcome.
	board, err := reader.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, leaderboard.reads)
	assert.Equal(t, 1, board["agent"].Wins)
}

func TestSettlePredictionContinuesPastStoreErrors(t *testing.T) {
	predictions := newFakePredictionStore()
	leaderboard := &fakeLeaderboardStore{err: errors.New("postgres down")}
	settler := newTestSettler(t, predictions, leaderboard)

	record := pendingRecord(t, predictions,
		validAnalysis("a", domain.VerdictStrongBet, domain.ConfidenceHigh),
		validAnalysis("b", domain.VerdictAvoid, domain.ConfidenceLow))

	// Per-agent write failures are logged, not returned; the settlement
	// itself stands.
	require.NoError(t, settler.SettlePrediction(context.Background(), record.ID, domain.OutcomeWon))

	stored, err := predictions.Get(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PredictionWon, stored.Status)
}
