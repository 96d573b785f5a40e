// Package market renders analysis requests into the textual market context
// injected into agent prompts.
package market

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/oddsflow/swarm/internal/domain"
	"github.com/oddsflow/swarm/internal/ports"
)

// ContextBuilder formats the request's market snapshot as plain text for
// prompts. It is stateless; the ctx parameter exists for implementations
// that fetch live odds.
type ContextBuilder struct {
	titler cases.Caser
}

var _ ports.ContextBuilder = (*ContextBuilder)(nil)

// NewContextBuilder returns a builder using English title casing for
// display labels.
func NewContextBuilder() *ContextBuilder {
	return &ContextBuilder{titler: cases.Title(language.English)}
}

// Build renders the event header and quote lines. An empty string with a
// nil error means no market context is available; the orchestrator treats
// that as prompt-without-context, not as a failure.
func (b *ContextBuilder) Build(_ context.Context, req domain.AnalysisRequest) (string, error) {
	if len(req.Quotes) == 0 {
		return "", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s", b.titler.String(req.Sport))
	if req.League != "" {
		fmt.Fprintf(&sb, " (%s)", req.League)
	}
	fmt.Fprintf(&sb, ": %s", req.EventName())
	if !req.StartTime.IsZero() {
		fmt.Fprintf(&sb, ", starts %s", req.StartTime.UTC().Format(time.RFC1123))
	}
	sb.WriteString("\n")

	for _, quote := range req.Quotes {
		price := quote.Price.StringFixed(0)
		// American odds carry an explicit sign on the favorite side.
		if quote.Price.IsPositive() {
			price = "+" + price
		}
		fmt.Fprintf(&sb, "  %s %s", quote.Selection, price)
		if quote.Book != "" {
			fmt.Fprintf(&sb, " (%s)", quote.Book)
		}
		sb.WriteString("\n")
	}

	return strings.TrimRight(sb.String(), "\n"), nil
}
