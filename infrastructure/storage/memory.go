package storage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oddsflow/swarm/internal/domain"
	"github.com/oddsflow/swarm/internal/ports"
)

// MemoryLeaderboardStore is an in-process LeaderboardStore for tests and
// single-node deployments without Postgres.
type MemoryLeaderboardStore struct {
	mu      sync.Mutex
	entries map[string]domain.LeaderboardEntry
}

var _ ports.LeaderboardStore = (*MemoryLeaderboardStore)(nil)

// NewMemoryLeaderboardStore returns an empty store.
func NewMemoryLeaderboardStore() *MemoryLeaderboardStore {
	return &MemoryLeaderboardStore{entries: make(map[string]domain.LeaderboardEntry)}
}

// GetLeaderboard returns a copy of every agent's row.
func (s *MemoryLeaderboardStore) GetLeaderboard(_ context.Context) (map[string]domain.LeaderboardEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	board := make(map[string]domain.LeaderboardEntry, len(s.entries))
	for id, entry := range s.entries {
		board[id] = entry
	}
	return board, nil
}

// RecordOutcome applies one outcome to one agent's row under the store
// mutex.
func (s *MemoryLeaderboardStore) RecordOutcome(_ context.Context, agentID string, outcome domain.Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[agentID]
	if !ok {
		entry = domain.NewLeaderboardEntry(agentID)
	}
	entry.ApplyOutcome(outcome)
	s.entries[agentID] = entry
	return nil
}

// Seed replaces an agent's row wholesale. Test helper.
func (s *MemoryLeaderboardStore) Seed(entry domain.LeaderboardEntry) {
	s.mu.Lock()
	s.entries[entry.AgentID] = entry
	s.mu.Unlock()
}

// MemoryPredictionStore is an in-process PredictionStore.
type MemoryPredictionStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]domain.PredictionRecord
	now     func() time.Time
}

var _ ports.PredictionStore = (*MemoryPredictionStore)(nil)

// NewMemoryPredictionStore returns an empty store.
func NewMemoryPredictionStore() *MemoryPredictionStore {
	return &MemoryPredictionStore{
		records: make(map[uuid.UUID]domain.PredictionRecord),
		now:     time.Now,
	}
}

// Create persists a new pending record.
func (s *MemoryPredictionStore) Create(_ context.Context, record *domain.PredictionRecord) error {
	s.mu.Lock()
	s.records[record.ID] = *record
	s.mu.Unlock()
	return nil
}

// Get returns a copy of the record by id.
func (s *MemoryPredictionStore) Get(_ context.Context, id uuid.UUID) (*domain.PredictionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok {
		return nil, domain.ErrPredictionNotFound
	}
	copied := record
	return &copied, nil
}

// MarkSettled transitions the record out of pending under the store mutex.
func (s *MemoryPredictionStore) MarkSettled(_ context.Context, id uuid.UUID, outcome domain.Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok {
		return domain.ErrPredictionNotFound
	}
	if !record.Pending() {
		return domain.ErrAlreadySettled
	}

	settledAt := s.now().UTC()
	record.Status = domain.StatusForOutcome(outcome)
	record.SettledAt = &settledAt
	s.records[id] = record
	return nil
}
