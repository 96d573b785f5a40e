// Package swarm implements the prediction ensemble core: fan-out
// orchestration over provider adapters, weighted consensus computation,
// derived bet selection, and the settlement feedback loop that maintains
// per-agent vote weights.
package swarm

import (
	"fmt"

	"github.com/oddsflow/swarm/internal/domain"
)

// Score-to-verdict thresholds for the weighted average verdict score.
// The ladder is deliberately asymmetric and must stay exactly as published:
// downstream consumers key off these bands.
const (
	strongBetThreshold  = 1.2
	slightEdgeThreshold = 0.0
	riskyThreshold      = -0.5
)

// Confidence bands over the absolute weighted score.
const (
	highConfidenceThreshold   = 1.2
	mediumConfidenceThreshold = 0.5
)

// Reasoning template trigger points over the bet-vote share.
const (
	strongConsensusShare = 0.85
	passConsensusShare   = 0.15
	mixedShareLow        = 0.5
	mixedShareHigh       = 0.6
	minHighConfidenceNote = 3
)

// noAnalysesReasoning is returned when zero valid analyses are available.
const noAnalysesReasoning = "No AI analyses available"

// ComputeConsensus reduces a per-agent analysis list and a leaderboard
// snapshot into a single consensus. It is a pure function: no I/O, fully
// deterministic for the same inputs.
//
// Only valid analyses (non-UNKNOWN verdict, no error) participate in
// scoring; degraded entries are counted neither as bet nor pass votes. Each
// valid analysis contributes its fixed verdict score multiplied by the
// agent's effective vote weight: neutral 1.0 below MinWeightHistory
// recorded predictions, otherwise the stored weight clamped into
// [MinVoteWeight, MaxVoteWeight]. Agents missing from the snapshot
// aggregate at 1.0.
func ComputeConsensus(
	analyses []domain.AgentAnalysis,
	leaderboard map[string]domain.LeaderboardEntry,
) domain.Consensus {
	var (
		weightedSum float64
		totalWeight float64
		betVotes    int
		passVotes   int
		highCount   int
	)

	valid := 0
	for _, a := range analyses {
		if !a.IsValid() {
			continue
		}
		score, ok := a.Verdict.Score()
		if !ok {
			continue
		}
		valid++

		weight := 1.0
		if entry, found := leaderboard[a.AgentID]; found {
			weight = entry.EffectiveWeight()
		}

		weightedSum += float64(score) * weight
		totalWeight += weight

		if a.Verdict.IsBet() {
			betVotes++
		} else {
			passVotes++
		}
		if a.Confidence == domain.ConfidenceHigh {
			highCount++
		}
	}

	if valid == 0 {
		return domain.Consensus{
			Verdict:    domain.VerdictUnknown,
			Score:      "0",
			Confidence: domain.ConfidenceLow,
			Reasoning:  noAnalysesReasoning,
		}
	}

	score := weightedSum / totalWeight

	return domain.Consensus{
		Verdict:    verdictForScore(score),
		Score:      fmt.Sprintf("%.2f", score),
		BetVotes:   betVotes,
		PassVotes:  passVotes,
		Confidence: confidenceForScore(score),
		Reasoning:  buildReasoning(betVotes, valid, highCount),
	}
}

// verdictForScore maps the weighted average score onto the published
// four-band ladder.
func verdictForScore(score float64) domain.Verdict {
	switch {
	case score >= strongBetThreshold:
		return domain.VerdictStrongBet
	case score >= slightEdgeThreshold:
		return domain.VerdictSlightEdge
	case score >= riskyThreshold:
		return domain.VerdictRisky
	default:
		return domain.VerdictAvoid
	}
}

// confidenceForScore maps the magnitude of the weighted score to a
// confidence level. Strong agreement in either direction reads as high
// confidence.
func confidenceForScore(score float64) domain.Confidence {
	abs := score
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= highConfidenceThreshold:
		return domain.ConfidenceHigh
	case abs >= mediumConfidenceThreshold:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}

// buildReasoning renders the short templated explanation attached to every
// consensus. Template selection is by bet-vote share; a high-confidence
// note is appended independently when enough agents reported HIGH.
func buildReasoning(betVotes, valid, highCount int) string {
	share := float64(betVotes) / float64(valid)

	var reasoning string
	switch {
	case share >= strongConsensusShare:
		reasoning = fmt.Sprintf("Strong consensus: %d of %d models recommend betting", betVotes, valid)
	case share <= passConsensusShare:
		reasoning = fmt.Sprintf("Models advise passing: only %d of %d favor a bet", betVotes, valid)
	case share >= mixedShareLow && share <= mixedShareHigh:
		reasoning = fmt.Sprintf("Opinions are mixed: %d of %d models favor betting", betVotes, valid)
	default:
		reasoning = fmt.Sprintf("%d/%d models favor betting", betVotes, valid)
	}

	if highCount >= minHighConfidenceNote {
		reasoning += fmt.Sprintf(" (%d high-confidence reads)", highCount)
	}

	return reasoning
}
