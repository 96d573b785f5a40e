// Package storage provides Postgres-backed and in-memory implementations
// of the leaderboard and prediction stores.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/oddsflow/swarm/internal/domain"
	"github.com/oddsflow/swarm/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS leaderboard (
    agent_id          TEXT PRIMARY KEY,
    wins              INTEGER NOT NULL DEFAULT 0,
    losses            INTEGER NOT NULL DEFAULT 0,
    pushes            INTEGER NOT NULL DEFAULT 0,
    total_predictions INTEGER NOT NULL DEFAULT 0,
    win_rate          DOUBLE PRECISION NOT NULL DEFAULT 0.5,
    streak            INTEGER NOT NULL DEFAULT 0,
    best_streak       INTEGER NOT NULL DEFAULT 0,
    vote_weight       DOUBLE PRECISION NOT NULL DEFAULT 1.0,
    recent_form       TEXT NOT NULL DEFAULT '',
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS predictions (
    id         UUID PRIMARY KEY,
    event_id   TEXT NOT NULL,
    payload    JSONB NOT NULL,
    status     TEXT NOT NULL DEFAULT 'pending',
    created_at TIMESTAMPTZ NOT NULL,
    settled_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS predictions_event_id_idx ON predictions (event_id);
CREATE INDEX IF NOT EXISTS predictions_status_idx ON predictions (status);
`

// EnsureSchema creates the tables and indexes if they do not exist.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// PostgresLeaderboardStore persists leaderboard rows in Postgres.
type PostgresLeaderboardStore struct {
	db *sqlx.DB
}

var _ ports.LeaderboardStore = (*PostgresLeaderboardStore)(nil)

// NewPostgresLeaderboardStore wraps an existing connection pool.
func NewPostgresLeaderboardStore(db *sqlx.DB) *PostgresLeaderboardStore {
	return &PostgresLeaderboardStore{db: db}
}

// GetLeaderboard returns every agent's row, keyed by agent id.
func (s *PostgresLeaderboardStore) GetLeaderboard(ctx context.Context) (map[string]domain.LeaderboardEntry, error) {
	var rows []domain.LeaderboardEntry
	const q = `SELECT agent_id, wins, losses, pushes, total_predictions,
	                  win_rate, streak, best_streak, vote_weight, recent_form
	           FROM leaderboard`
	if err := s.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, fmt.Errorf("load leaderboard: %w", err)
	}

	board := make(map[string]domain.LeaderboardEntry, len(rows))
	for _, row := range rows {
		board[row.AgentID] = row
	}
	return board, nil
}

// RecordOutcome applies one outcome to one agent's row inside a
// transaction. The row is locked for the duration so concurrent
// settlements serialize instead of losing updates.
func (s *PostgresLeaderboardStore) RecordOutcome(ctx context.Context, agentID string, outcome domain.Outcome) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var entry domain.LeaderboardEntry
	const selectQ = `SELECT agent_id, wins, losses, pushes, total_predictions,
	                        win_rate, streak, best_streak, vote_weight, recent_form
	                 FROM leaderboard WHERE agent_id = $1 FOR UPDATE`
	err = tx.GetContext(ctx, &entry, selectQ, agentID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		entry = domain.NewLeaderboardEntry(agentID)
		const insertQ = `INSERT INTO leaderboard (agent_id, win_rate, vote_weight)
		                 VALUES ($1, $2, $3)`
		if _, err := tx.ExecContext(ctx, insertQ, entry.AgentID, entry.WinRate, entry.VoteWeight); err != nil {
			return fmt.Errorf("insert leaderboard row: %w", err)
		}
	case err != nil:
		return fmt.Errorf("load leaderboard row: %w", err)
	}

	entry.ApplyOutcome(outcome)

	const updateQ = `UPDATE leaderboard
	                 SET wins = :wins, losses = :losses, pushes = :pushes,
	                     total_predictions = :total_predictions, win_rate = :win_rate,
	                     streak = :streak, best_streak = :best_streak,
	                     vote_weight = :vote_weight, recent_form = :recent_form,
	                     updated_at = now()
	                 WHERE agent_id = :agent_id`
	if _, err := tx.NamedExecContext(ctx, updateQ, entry); err != nil {
		return fmt.Errorf("update leaderboard row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// PostgresPredictionStore persists prediction records with the full
// SwarmResult payload as jsonb.
type PostgresPredictionStore struct {
	db *sqlx.DB
}

var _ ports.PredictionStore = (*PostgresPredictionStore)(nil)

// NewPostgresPredictionStore wraps an existing connection pool.
func NewPostgresPredictionStore(db *sqlx.DB) *PostgresPredictionStore {
	return &PostgresPredictionStore{db: db}
}

// Create persists a new pending record.
func (s *PostgresPredictionStore) Create(ctx context.Context, record *domain.PredictionRecord) error {
	payload, err := json.Marshal(record.Result)
	if err != nil {
		return fmt.Errorf("marshal result payload: %w", err)
	}

	const q = `INSERT INTO predictions (id, event_id, payload, status, created_at)
	           VALUES ($1, $2, $3, $4, $5)`
	if _, err := s.db.ExecContext(ctx, q, record.ID, record.EventID, payload, record.Status, record.CreatedAt); err != nil {
		return fmt.Errorf("insert prediction: %w", err)
	}
	return nil
}

// Get returns the record by id.
func (s *PostgresPredictionStore) Get(ctx context.Context, id uuid.UUID) (*domain.PredictionRecord, error) {
	var row struct {
		ID        uuid.UUID    `db:"id"`
		EventID   string       `db:"event_id"`
		Payload   []byte       `db:"payload"`
		Status    string       `db:"status"`
		CreatedAt time.Time    `db:"created_at"`
		SettledAt sql.NullTime `db:"settled_at"`
	}

	const q = `SELECT id, event_id, payload, status, created_at, settled_at
	           FROM predictions WHERE id = $1`
	err := s.db.GetContext(ctx, &row, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPredictionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load prediction: %w", err)
	}

	record := domain.PredictionRecord{
		ID:        row.ID,
		EventID:   row.EventID,
		Status:    domain.PredictionStatus(row.Status),
		CreatedAt: row.CreatedAt,
	}
	if row.SettledAt.Valid {
		settledAt := row.SettledAt.Time
		record.SettledAt = &settledAt
	}
	if err := json.Unmarshal(row.Payload, &record.Result); err != nil {
		return nil, fmt.Errorf("unmarshal result payload: %w", err)
	}
	return &record, nil
}

// MarkSettled transitions the record out of pending. The WHERE clause on
// status makes the transition atomic: a second concurrent settlement
// matches zero rows and reports ErrAlreadySettled.
func (s *PostgresPredictionStore) MarkSettled(ctx context.Context, id uuid.UUID, outcome domain.Outcome) error {
	const q = `UPDATE predictions SET status = $2, settled_at = now()
	           WHERE id = $1 AND status = 'pending'`
	res, err := s.db.ExecContext(ctx, q, id, domain.StatusForOutcome(outcome))
	if err != nil {
		return fmt.Errorf("settle prediction: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("settle prediction: %w", err)
	}
	if affected == 1 {
		return nil
	}

	var exists bool
	if err := s.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM predictions WHERE id = $1)`, id); err != nil {
		return fmt.Errorf("check prediction: %w", err)
	}
	if !exists {
		return domain.ErrPredictionNotFound
	}
	return domain.ErrAlreadySettled
}
