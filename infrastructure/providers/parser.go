package providers

import (
	"errors"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/oddsflow/swarm/internal/domain"
)

// Parsing errors. A missing verdict makes the whole response unusable; the
// orchestrator degrades the analysis rather than guessing an opinion.
var (
	// ErrVerdictNotFound indicates the model output carried no
	// recognizable verdict.
	ErrVerdictNotFound = errors.New("verdict not found in model output")
)

// verdictEditDistance and confidenceEditDistance bound how far a fuzzy
// token may drift from an enum value and still match. Verdicts are longer
// tokens, so they tolerate more noise.
const (
	verdictEditDistance    = 2
	confidenceEditDistance = 1
)

// ParsedResponse is the partial structured record extracted from raw model
// output. Absent fields are explicit: pointers are nil and Confidence is
// empty when not found. Numeric fields are never silently defaulted.
type ParsedResponse struct {
	Verdict        domain.Verdict
	Confidence     domain.Confidence
	WinProbability *float64
	Bet            *domain.BetRecommendation
	Opinion        string
	Explanation    string
}

// ResponseParser extracts the structured analysis fields from free-form
// model output. Agents are prompted to answer in JSON, but models drift:
// the parser accepts fenced JSON, JSON embedded in prose, and a
// line-oriented "VERDICT: ..." plain-text fallback.
type ResponseParser struct{}

// NewResponseParser returns a parser. It is stateless and safe for
// concurrent use.
func NewResponseParser() *ResponseParser { return &ResponseParser{} }

// Parse extracts the structured fields from raw output. It returns
// ErrVerdictNotFound when no verdict can be recognized; all other fields
// are optional.
func (p *ResponseParser) Parse(raw string) (ParsedResponse, error) {
	body := stripCodeFences(raw)

	if jsonBody, ok := extractJSONObject(body); ok {
		if parsed, err := p.parseJSON(jsonBody); err == nil {
			return parsed, nil
		}
	}

	return p.parseText(body)
}

// parseJSON pulls fields out of a JSON object with tolerant lookups.
func (p *ResponseParser) parseJSON(body string) (ParsedResponse, error) {
	var parsed ParsedResponse

	verdict, ok := MatchVerdict(gjson.Get(body, "verdict").String())
	if !ok {
		return ParsedResponse{}, ErrVerdictNotFound
	}
	parsed.Verdict = verdict

	if confidence, ok := MatchConfidence(gjson.Get(body, "confidence").String()); ok {
		parsed.Confidence = confidence
	}

	if prob := gjson.Get(body, "win_probability"); prob.Exists() {
		value := prob.Float()
		// Models sometimes answer in percent despite instructions.
		if value > 1 {
			value /= 100
		}
		if value >= 0 && value <= 1 {
			parsed.WinProbability = &value
		}
	}

	if selection := gjson.Get(body, "bet.selection").String(); selection != "" {
		bet := &domain.BetRecommendation{
			Type:      gjson.Get(body, "bet.type").String(),
			Selection: selection,
		}
		if price := gjson.Get(body, "bet.price"); price.Exists() {
			d := decimal.NewFromFloat(price.Float())
			bet.Price = &d
		}
		parsed.Bet = bet
	}

	parsed.Opinion = gjson.Get(body, "opinion").String()
	parsed.Explanation = gjson.Get(body, "explanation").String()

	return parsed, nil
}

// parseText scans line-oriented output for labeled fields. The verdict is
// required; everything else stays absent when not found.
func (p *ResponseParser) parseText(body string) (ParsedResponse, error) {
	var parsed ParsedResponse
	found := false

	for _, line := range strings.Split(body, "\n") {
		label, value, ok := splitLabeledLine(line)
		if !ok {
			continue
		}
		switch label {
		case "verdict":
			if verdict, ok := MatchVerdict(value); ok {
				parsed.Verdict = verdict
				found = true
			}
		case "confidence":
			if confidence, ok := MatchConfidence(value); ok {
				parsed.Confidence = confidence
			}
		case "opinion", "analysis":
			if parsed.Opinion == "" {
				parsed.Opinion = value
			}
		}
	}

	if !found {
		return ParsedResponse{}, ErrVerdictNotFound
	}
	return parsed, nil
}

// MatchVerdict maps a free-form token onto a Verdict, tolerating case,
// separator, and small spelling drift ("strong bet", "SLIGHT-EDGE",
// "avod"). UNKNOWN is not matchable; models do not get to opt out.
func MatchVerdict(token string) (domain.Verdict, bool) {
	normalized := normalizeToken(token)
	if normalized == "" {
		return "", false
	}

	candidates := []domain.Verdict{
		domain.VerdictStrongBet,
		domain.VerdictSlightEdge,
		domain.VerdictRisky,
		domain.VerdictAvoid,
	}
	for _, candidate := range candidates {
		if normalized == string(candidate) {
			return candidate, true
		}
	}
	for _, candidate := range candidates {
		if levenshtein.ComputeDistance(normalized, string(candidate)) <= verdictEditDistance {
			return candidate, true
		}
	}
	return "", false
}

// MatchConfidence maps a free-form token onto a Confidence level.
func MatchConfidence(token string) (domain.Confidence, bool) {
	normalized := normalizeToken(token)
	if normalized == "" {
		return "", false
	}

	candidates := []domain.Confidence{
		domain.ConfidenceHigh,
		domain.ConfidenceMedium,
		domain.ConfidenceLow,
	}
	for _, candidate := range candidates {
		if normalized == string(candidate) {
			return candidate, true
		}
	}
	for _, candidate := range candidates {
		if levenshtein.ComputeDistance(normalized, string(candidate)) <= confidenceEditDistance {
			return candidate, true
		}
	}
	return "", false
}

// normalizeToken upper-cases and collapses separators so "slight edge" and
// "SLIGHT-EDGE" both normalize to "SLIGHT_EDGE".
func normalizeToken(token string) string {
	token = strings.TrimSpace(strings.ToUpper(token))
	token = strings.ReplaceAll(token, "-", "_")
	token = strings.Join(strings.Fields(token), "_")
	return token
}

// stripCodeFences removes a surrounding markdown code fence, with or
// without a language tag.
func stripCodeFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// extractJSONObject finds the outermost JSON object embedded in the body.
func extractJSONObject(body string) (string, bool) {
	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start < 0 || end <= start {
		return "", false
	}
	candidate := body[start : end+1]
	if !gjson.Valid(candidate) {
		return "", false
	}
	return candidate, true
}

// splitLabeledLine splits "VERDICT: strong bet" into ("verdict",
// "strong bet").
func splitLabeledLine(line string) (label, value string, ok bool) {
	idx := strings.Index(line, ":")
	if idx <= 0 {
		return "", "", false
	}
	label = strings.ToLower(strings.TrimSpace(strings.Trim(line[:idx], "*# ")))
	value = strings.TrimSpace(line[idx+1:])
	if label == "" || value == "" {
		return "", "", false
	}
	return label, value, true
}
