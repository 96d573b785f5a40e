package domain

import (
	"time"

	"github.com/google/uuid"
)

// PredictionStatus is the settlement state of a persisted prediction.
type PredictionStatus string

// Prediction lifecycle states. A record moves from pending to exactly one
// terminal state and never back.
const (
	PredictionPending PredictionStatus = "pending"
	PredictionWon     PredictionStatus = "won"
	PredictionLost    PredictionStatus = "lost"
	PredictionPush    PredictionStatus = "push"
)

// StatusForOutcome maps a settlement outcome to the terminal record status.
func StatusForOutcome(outcome Outcome) PredictionStatus {
	switch outcome {
	case OutcomeWon:
		return PredictionWon
	case OutcomeLost:
		return PredictionLost
	default:
		return PredictionPush
	}
}

// PredictionRecord is the durable record of one SwarmResult awaiting
// settlement. The per-agent verdicts embedded in Result are replayed
// against the real outcome when the event resolves.
type PredictionRecord struct {
	ID      uuid.UUID   `json:"id"`
	EventID string      `json:"event_id"`
	Result  SwarmResult `json:"result"`

	Status    PredictionStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"`

	// SettledAt is set exactly once, when the record leaves pending.
	SettledAt *time.Time `json:"settled_at,omitempty"`
}

// NewPredictionRecord wraps a SwarmResult in a pending record.
func NewPredictionRecord(result SwarmResult, at time.Time) PredictionRecord {
	return PredictionRecord{
		ID:        uuid.New(),
		EventID:   result.EventID,
		Result:    result,
		Status:    PredictionPending,
		CreatedAt: at,
	}
}

// Pending reports whether the record can still be settled.
func (p PredictionRecord) Pending() bool { return p.Status == PredictionPending }
