// Package domain contains the core types and invariants of the prediction
// swarm: agents, per-agent analyses, consensus results, leaderboard state,
// and prediction records. Types here are pure data with pure transitions;
// all I/O lives behind the interfaces in internal/ports.
package domain

// Agent is an immutable catalog entry describing one inference backend
// participating in the ensemble. Agents are registered at startup and never
// mutated at runtime.
type Agent struct {
	// ID is the stable string key used to address this agent in adapter
	// registries, leaderboard rows, and per-analysis attribution.
	ID string `json:"id" yaml:"id"`

	// Name is the display name shown alongside the agent's analyses.
	Name string `json:"name" yaml:"name"`

	// Emoji is a short display label for UI surfaces.
	Emoji string `json:"emoji,omitempty" yaml:"emoji,omitempty"`

	// Provider names the inference backend type serving this agent
	// (openai, anthropic, google).
	Provider string `json:"provider" yaml:"provider"`

	// Model is the provider-specific model identifier.
	Model string `json:"model" yaml:"model"`

	// Persona is free-text styling injected into the agent's prompt.
	// It shapes tone only and is not behaviorally load-bearing.
	Persona string `json:"persona,omitempty" yaml:"persona,omitempty"`

	// Weighted marks the agent as eligible for historical vote weighting.
	// Unweighted agents always contribute with a neutral weight of 1.0.
	Weighted bool `json:"weighted" yaml:"weighted"`
}

// Verdict is an agent's categorical recommendation for an event.
type Verdict string

// Verdict values, ordered from strongest endorsement to strongest rejection.
// VerdictUnknown marks an analysis that produced no usable opinion, typically
// because the underlying provider call failed.
const (
	VerdictStrongBet  Verdict = "STRONG_BET"
	VerdictSlightEdge Verdict = "SLIGHT_EDGE"
	VerdictRisky      Verdict = "RISKY"
	VerdictAvoid      Verdict = "AVOID"
	VerdictUnknown    Verdict = "UNKNOWN"
)

// Score maps a verdict to its fixed contribution to the weighted consensus
// score. The second return value is false for verdicts that do not
// participate in scoring (UNKNOWN).
func (v Verdict) Score() (int, bool) {
	switch v {
	case VerdictStrongBet:
		return 2, true
	case VerdictSlightEdge:
		return 1, true
	case VerdictRisky:
		return -1, true
	case VerdictAvoid:
		return -2, true
	default:
		return 0, false
	}
}

// IsBet reports whether the verdict endorses placing a bet.
func (v Verdict) IsBet() bool {
	return v == VerdictStrongBet || v == VerdictSlightEdge
}

// Valid reports whether v is one of the defined verdict values.
func (v Verdict) Valid() bool {
	switch v {
	case VerdictStrongBet, VerdictSlightEdge, VerdictRisky, VerdictAvoid, VerdictUnknown:
		return true
	}
	return false
}

// Confidence expresses how certain an agent (or the consensus) is about a
// verdict.
type Confidence string

// Confidence levels.
const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// Valid reports whether c is one of the defined confidence values.
func (c Confidence) Valid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	}
	return false
}
