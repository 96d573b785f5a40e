package domain

// Outcome is the settled real-world result of an event, from the
// perspective of a recommendation.
type Outcome string

// Settlement outcomes. A push voids the event for every agent.
const (
	OutcomeWon  Outcome = "won"
	OutcomeLost Outcome = "lost"
	OutcomePush Outcome = "push"
)

// Valid reports whether o is one of the defined outcomes.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeWon, OutcomeLost, OutcomePush:
		return true
	}
	return false
}

// Vote weight bounds. Weights derived from historical win rate are clamped
// into this range so a hot or cold streak can at most double or halve an
// agent's influence.
const (
	MinVoteWeight = 0.5
	MaxVoteWeight = 2.0
)

// MinWeightHistory is the number of recorded predictions an agent needs
// before its stored vote weight is trusted over the neutral 1.0.
const MinWeightHistory = 5

// recentFormLength bounds the W/L/P form string kept per agent.
const recentFormLength = 5

// LeaderboardEntry is one agent's persisted performance history and the
// vote weight derived from it. Entries are mutated only through
// ApplyOutcome, exactly once per settled event per agent.
//
// Invariants:
//   - WinRate == Wins/(Wins+Losses) when Wins+Losses > 0, else 0.5.
//   - VoteWeight == clamp(WinRate*2, 0.5, 2.0).
type LeaderboardEntry struct {
	AgentID string `json:"agent_id" db:"agent_id"`

	Wins   int `json:"wins" db:"wins"`
	Losses int `json:"losses" db:"losses"`
	Pushes int `json:"pushes" db:"pushes"`

	// TotalPredictions counts every recorded outcome, pushes included.
	TotalPredictions int `json:"total_predictions" db:"total_predictions"`

	// WinRate is Wins/(Wins+Losses); pushes are excluded from the
	// denominator. 0.5 is the neutral prior with no decided predictions.
	WinRate float64 `json:"win_rate" db:"win_rate"`

	// Streak is the current run of same-direction results. Positive for
	// a winning streak, negative for a losing streak. Pushes leave it
	// untouched.
	Streak int `json:"streak" db:"streak"`

	// BestStreak is the highest Streak ever reached.
	BestStreak int `json:"best_streak" db:"best_streak"`

	// VoteWeight is the multiplier applied to this agent's verdict when
	// aggregating a consensus, always within [MinVoteWeight, MaxVoteWeight].
	VoteWeight float64 `json:"vote_weight" db:"vote_weight"`

	// RecentForm is the last few outcomes as a "WLPWW"-style string,
	// newest last.
	RecentForm string `json:"recent_form" db:"recent_form"`
}

// NewLeaderboardEntry returns the neutral starting row for an agent:
// no history, 0.5 win rate, 1.0 vote weight.
func NewLeaderboardEntry(agentID string) LeaderboardEntry {
	return LeaderboardEntry{
		AgentID:    agentID,
		WinRate:    0.5,
		VoteWeight: 1.0,
	}
}

// ApplyOutcome advances the entry by one settled event and recomputes the
// derived fields. It is the single state transition for leaderboard rows.
func (e *LeaderboardEntry) ApplyOutcome(outcome Outcome) {
	switch outcome {
	case OutcomeWon:
		e.Wins++
		if e.Streak > 0 {
			e.Streak++
		} else {
			e.Streak = 1
		}
		if e.Streak > e.BestStreak {
			e.BestStreak = e.Streak
		}
		e.appendForm('W')
	case OutcomeLost:
		e.Losses++
		if e.Streak < 0 {
			e.Streak--
		} else {
			e.Streak = -1
		}
		e.appendForm('L')
	case OutcomePush:
		e.Pushes++
		e.appendForm('P')
	default:
		return
	}

	e.TotalPredictions++
	e.recompute()
}

// EffectiveWeight returns the weight this entry contributes to a consensus
// computation: neutral until the agent has enough history, the clamped
// stored weight afterwards.
func (e LeaderboardEntry) EffectiveWeight() float64 {
	if e.TotalPredictions < MinWeightHistory {
		return 1.0
	}
	return clampWeight(e.VoteWeight)
}

func (e *LeaderboardEntry) recompute() {
	decided := e.Wins + e.Losses
	if decided > 0 {
		e.WinRate = float64(e.Wins) / float64(decided)
	} else {
		e.WinRate = 0.5
	}
	e.VoteWeight = clampWeight(e.WinRate * 2)
}

func (e *LeaderboardEntry) appendForm(r byte) {
	e.RecentForm += string(r)
	if len(e.RecentForm) > recentFormLength {
		e.RecentForm = e.RecentForm[len(e.RecentForm)-recentFormLength:]
	}
}

func clampWeight(w float64) float64 {
	if w < MinVoteWeight {
		return MinVoteWeight
	}
	if w > MaxVoteWeight {
		return MaxVoteWeight
	}
	return w
}
