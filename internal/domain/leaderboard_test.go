package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLeaderboardEntryApplyOutcome(t *testing.T) {
	tests := []struct {
		name     string
		outcomes []Outcome
		want     LeaderboardEntry
	}{
		{
			name:     "single win",
			outcomes: []Outcome{OutcomeWon},
			want: LeaderboardEntry{
				AgentID: "a", Wins: 1, TotalPredictions: 1,
				WinRate: 1.0, Streak: 1, BestStreak: 1,
				VoteWeight: 2.0, RecentForm: "W",
			},
		},
		{
			name:     "single loss",
			outcomes: []Outcome{OutcomeLost},
			want: LeaderboardEntry{
				AgentID: "a", Losses: 1, TotalPredictions: 1,
				WinRate: 0, Streak: -1,
				VoteWeight: 0.5, RecentForm: "L",
			},
		},
		{
			name:     "push leaves streak untouched",
			outcomes: []Outcome{OutcomeWon, OutcomeWon, OutcomePush},
			want: LeaderboardEntry{
				AgentID: "a", Wins: 2, Pushes: 1, TotalPredictions: 3,
				WinRate: 1.0, Streak: 2, BestStreak: 2,
				VoteWeight: 2.0, RecentForm: "WWP",
			},
		},
		{
			name:     "loss flips a winning streak",
			outcomes: []Outcome{OutcomeWon, OutcomeWon, OutcomeWon, OutcomeLost},
			want: LeaderboardEntry{
				AgentID: "a", Wins: 3, Losses: 1, TotalPredictions: 4,
				WinRate: 0.75, Streak: -1, BestStreak: 3,
				VoteWeight: 1.5, RecentForm: "WWWL",
			},
		},
		{
			name: "eight wins two losses",
			outcomes: []Outcome{
				OutcomeWon, OutcomeWon, OutcomeWon, OutcomeWon, OutcomeLost,
				OutcomeWon, OutcomeWon, OutcomeWon, OutcomeLost, OutcomeWon,
			},
			want: LeaderboardEntry{
				AgentID: "a", Wins: 8, Losses: 2, TotalPredictions: 10,
				WinRate: 0.8, Streak: 1, BestStreak: 4,
				VoteWeight: 1.6, RecentForm: "WWLWW",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := NewLeaderboardEntry("a")
			for _, outcome := range tt.outcomes {
				entry.ApplyOutcome(outcome)
			}
			assert.Equal(t, tt.want, entry)
		})
	}
}

func TestLeaderboardEntryVoteWeightClamp(t *testing.T) {
	t.Run("perfect record clamps at max", func(t *testing.T) {
		entry := NewLeaderboardEntry("a")
		for i := 0; i < 10; i++ {
			entry.ApplyOutcome(OutcomeWon)
		}
		assert.Equal(t, MaxVoteWeight, entry.VoteWeight)
		assert.Equal(t, MaxVoteWeight, entry.EffectiveWeight())
	})

	t.Run("losing record clamps at min", func(t *testing.T) {
		entry := NewLeaderboardEntry("a")
		for i := 0; i < 10; i++ {
			entry.ApplyOutcome(OutcomeLost)
		}
		assert.Equal(t, MinVoteWeight, entry.VoteWeight)
		assert.Equal(t, MinVoteWeight, entry.EffectiveWeight())
	})
}

func TestLeaderboardEntryEffectiveWeight(t *testing.T) {
	t.Run("neutral below history minimum", func(t *testing.T) {
		entry := NewLeaderboardEntry("a")
		for i := 0; i < MinWeightHistory-1; i++ {
			entry.ApplyOutcome(OutcomeWon)
		}
		assert.Equal(t, 1.0, entry.EffectiveWeight())
	})

	t.Run("stored weight at history minimum", func(t *testing.T) {
		entry := NewLeaderboardEntry("a")
		for i := 0; i < MinWeightHistory; i++ {
			entry.ApplyOutcome(OutcomeWon)
		}
		assert.Equal(t, MaxVoteWeight, entry.EffectiveWeight())
	})

	t.Run("pushes count toward history", func(t *testing.T) {
		entry := NewLeaderboardEntry("a")
		for i := 0; i < MinWeightHistory; i++ {
			entry.ApplyOutcome(OutcomePush)
		}
		// Five pushes, zero decided: win rate stays at the neutral prior.
		assert.Equal(t, 0.5, entry.WinRate)
		assert.Equal(t, 1.0, entry.EffectiveWeight())
	})
}

func TestLeaderboardEntryRecentFormBounded(t *testing.T) {
	entry := NewLeaderboardEntry("a")
	outcomes := []Outcome{
		OutcomeWon, OutcomeLost, OutcomeWon, OutcomePush,
		OutcomeWon, OutcomeWon, OutcomeLost,
	}
	for _, outcome := range outcomes {
		entry.ApplyOutcome(outcome)
	}
	assert.Equal(t, "WPWWL", entry.RecentForm)
}

func TestLeaderboardEntryWinRateExcludesPushes(t *testing.T) {
	entry := NewLeaderboardEntry("a")
	entry.ApplyOutcome(OutcomeWon)
	entry.ApplyOutcome(OutcomeWon)
	entry.ApplyOutcome(OutcomeLost)
	entry.ApplyOutcome(OutcomePush)
	entry.ApplyOutcome(OutcomePush)

	assert.InDelta(t, 2.0/3.0, entry.WinRate, 1e-9)
	assert.Equal(t, 5, entry.TotalPredictions)
}
