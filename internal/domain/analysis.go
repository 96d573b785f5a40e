package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MarketQuote is a single price quote for one outcome of an event, taken
// from the market snapshot attached to an analysis request.
type MarketQuote struct {
	// Selection names the outcome being priced (e.g. a team or a total).
	Selection string `json:"selection"`

	// Price is the quoted price for the selection, in American odds.
	Price decimal.Decimal `json:"price"`

	// Book optionally names the sportsbook the quote came from.
	Book string `json:"book,omitempty"`
}

// AnalysisRequest describes the sporting event one orchestration cycle
// analyzes. It is constructed once per cycle and never mutated.
type AnalysisRequest struct {
	// EventID is the stable identity used for caching and prediction
	// records.
	EventID string `json:"event_id"`

	// Sport and League are display labels ("basketball", "NBA").
	Sport  string `json:"sport"`
	League string `json:"league,omitempty"`

	// HomeTeam and AwayTeam are participant names.
	HomeTeam string `json:"home_team"`
	AwayTeam string `json:"away_team"`

	// StartTime is the scheduled start of the event.
	StartTime time.Time `json:"start_time"`

	// Quotes is an optional market snapshot passed to the agents as
	// context. Empty means no market context is available.
	Quotes []MarketQuote `json:"quotes,omitempty"`
}

// Validate checks the request carries the fields every orchestration needs.
func (r AnalysisRequest) Validate() error {
	if strings.TrimSpace(r.EventID) == "" {
		return NewInvalidRequestError("event_id is required")
	}
	if strings.TrimSpace(r.HomeTeam) == "" || strings.TrimSpace(r.AwayTeam) == "" {
		return NewInvalidRequestError("home_team and away_team are required")
	}
	if strings.TrimSpace(r.Sport) == "" {
		return NewInvalidRequestError("sport is required")
	}
	return nil
}

// EventName returns the human-readable matchup label for the event.
func (r AnalysisRequest) EventName() string {
	return r.AwayTeam + " @ " + r.HomeTeam
}

// BetRecommendation is an optional structured bet extracted from an agent's
// output or derived from the ensemble.
type BetRecommendation struct {
	// Type is the market type ("moneyline", "spread", "total").
	Type string `json:"type"`

	// Selection is the recommended side within the market.
	Selection string `json:"selection"`

	// Price is the quoted price for the selection. Nil when the agent
	// recommended a side without quoting a price.
	Price *decimal.Decimal `json:"price,omitempty"`
}

// AgentAnalysis is one agent's output for one event. It is created once per
// orchestration attempt and immutable after creation.
//
// Invariant: if Error is non-empty, Verdict is UNKNOWN and Confidence is
// LOW. A failed provider call never surfaces a confident opinion.
type AgentAnalysis struct {
	AgentID   string `json:"agent_id"`
	AgentName string `json:"agent_name"`

	// Opinion is the agent's free-text take on the event.
	Opinion string `json:"opinion,omitempty"`

	Verdict    Verdict    `json:"verdict"`
	Confidence Confidence `json:"confidence"`

	// WinProbability is the agent's estimated win probability in [0,1].
	// Nil when the agent did not produce one; absence is explicit, never
	// a silent zero.
	WinProbability *float64 `json:"win_probability,omitempty"`

	// Bet is the agent's recommended bet, when it produced one.
	Bet *BetRecommendation `json:"bet,omitempty"`

	// Explanation is optional longer-form reasoning.
	Explanation string `json:"explanation,omitempty"`

	// LatencyMs is the wall-clock duration of the provider call.
	LatencyMs int64 `json:"latency_ms"`

	Timestamp time.Time `json:"timestamp"`

	// Error describes why the call failed. Non-empty only for degraded
	// analyses.
	Error string `json:"error,omitempty"`
}

// IsValid reports whether the analysis carries a usable opinion and may
// participate in consensus scoring.
func (a AgentAnalysis) IsValid() bool {
	return a.Error == "" && a.Verdict != VerdictUnknown
}

// NewDegradedAnalysis builds the placeholder analysis recorded when an
// agent's provider call fails. It keeps the batch complete while making the
// failure explicit.
func NewDegradedAnalysis(agent Agent, callErr error, latency time.Duration, at time.Time) AgentAnalysis {
	return AgentAnalysis{
		AgentID:    agent.ID,
		AgentName:  agent.Name,
		Verdict:    VerdictUnknown,
		Confidence: ConfidenceLow,
		LatencyMs:  latency.Milliseconds(),
		Timestamp:  at,
		Error:      callErr.Error(),
	}
}

// Consensus is the ensemble's aggregated view of one event. It is derived
// from a list of analyses and a leaderboard snapshot and is deterministic
// given both.
type Consensus struct {
	Verdict Verdict `json:"verdict"`

	// Score is the weighted average verdict score, formatted with two
	// decimal places ("0" exactly when no valid analyses exist).
	Score string `json:"score"`

	// BetVotes counts valid analyses endorsing a bet; PassVotes counts
	// the remaining valid analyses.
	BetVotes  int `json:"bet_votes"`
	PassVotes int `json:"pass_votes"`

	Confidence Confidence `json:"confidence"`

	// Reasoning is a short templated explanation of the decision.
	Reasoning string `json:"reasoning"`
}

// SwarmResult is the externally visible artifact of one orchestration
// cycle: the full per-agent analysis list plus the consensus. Results are
// cached with a TTL and superseded, never mutated, by later cycles.
type SwarmResult struct {
	EventID   string `json:"event_id"`
	EventName string `json:"event_name"`

	// Analyses holds one entry per requested agent, in registry order,
	// including degraded entries for failed calls.
	Analyses []AgentAnalysis `json:"analyses"`

	Consensus Consensus `json:"consensus"`

	// Bet is the single derived bet selection, present only when the
	// consensus reached STRONG_BET or SLIGHT_EDGE and at least one agent
	// recommended a selection.
	Bet *BetRecommendation `json:"bet,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}
