package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/oddsflow/swarm/internal/domain"
)

// LeaderboardStore persists per-agent performance history. Reads feed the
// consensus calculator; writes happen only through settlement.
type LeaderboardStore interface {
	// GetLeaderboard returns the current entry for every agent with
	// recorded history, keyed by agent id. Agents without a row simply
	// have no entry; callers treat that as neutral history.
	GetLeaderboard(ctx context.Context) (map[string]domain.LeaderboardEntry, error)

	// RecordOutcome applies one settled outcome to one agent's row as an
	// atomic read-modify-write. Two events settling concurrently for the
	// same agent must both be counted; lost updates are a correctness
	// bug.
	RecordOutcome(ctx context.Context, agentID string, outcome domain.Outcome) error
}

// PredictionStore persists SwarmResults awaiting settlement.
type PredictionStore interface {
	// Create persists a new pending record.
	Create(ctx context.Context, record *domain.PredictionRecord) error

	// Get returns the record by id, or domain.ErrPredictionNotFound.
	Get(ctx context.Context, id uuid.UUID) (*domain.PredictionRecord, error)

	// MarkSettled transitions the record from pending to the terminal
	// status for the outcome. It returns domain.ErrAlreadySettled when
	// the record already left pending (guarding against double-counting
	// under concurrent settlement) and domain.ErrPredictionNotFound when
	// the record does not exist.
	MarkSettled(ctx context.Context, id uuid.UUID, outcome domain.Outcome) error
}

// ResultCache is the short-TTL store sitting in front of the orchestrator,
// keyed by event id. It is a performance optimization, never a source of
// truth: implementations should degrade backend failures on reads to cache
// misses rather than failing the analysis.
type ResultCache interface {
	// Get returns the cached result for the event and whether a
	// non-expired entry was found.
	Get(ctx context.Context, eventID string) (*domain.SwarmResult, bool, error)

	// Set stores the result with the given TTL.
	Set(ctx context.Context, eventID string, result *domain.SwarmResult, ttl time.Duration) error

	// Delete evicts the entry for the event, if any.
	Delete(ctx context.Context, eventID string) error
}
