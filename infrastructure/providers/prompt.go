package providers

import (
	"fmt"
	"strings"
	"time"

	"github.com/oddsflow/swarm/internal/domain"
)

// promptInstructions is the response contract appended to every agent
// prompt. Keeping it uniform across providers lets one parser serve all of
// them.
const promptInstructions = `Respond with a single JSON object and nothing else:
{
  "verdict": "STRONG_BET" | "SLIGHT_EDGE" | "RISKY" | "AVOID",
  "confidence": "HIGH" | "MEDIUM" | "LOW",
  "win_probability": <number between 0 and 1>,
  "bet": {"type": "<market type>", "selection": "<side>", "price": <american odds>},
  "opinion": "<one or two sentences>",
  "explanation": "<your reasoning>"
}
Omit "bet" entirely if your verdict is RISKY or AVOID.`

// BuildPrompt assembles the full prompt for one agent and one event. The
// persona comes first so it frames everything after it; the market context
// section is omitted when empty.
func BuildPrompt(agent domain.Agent, req domain.AnalysisRequest, marketContext string) string {
	var b strings.Builder

	if agent.Persona != "" {
		b.WriteString(agent.Persona)
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "Analyze this upcoming %s matchup and decide whether it offers betting value.\n\n", req.Sport)
	fmt.Fprintf(&b, "Event: %s\n", req.EventName())
	if req.League != "" {
		fmt.Fprintf(&b, "League: %s\n", req.League)
	}
	if !req.StartTime.IsZero() {
		fmt.Fprintf(&b, "Start: %s\n", req.StartTime.UTC().Format(time.RFC3339))
	}

	if marketContext != "" {
		b.WriteString("\nMarket snapshot:\n")
		b.WriteString(marketContext)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(promptInstructions)

	return b.String()
}
