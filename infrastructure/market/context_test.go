package market

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oddsflow/swarm/internal/domain"
)

func TestContextBuilderRendersQuotes(t *testing.T) {
	req := domain.AnalysisRequest{
		EventID:   "evt-1",
		Sport:     "basketball",
		League:    "NBA",
		HomeTeam:  "Lakers",
		AwayTeam:  "Celtics",
		StartTime: time.Date(2026, 3, 1, 19, 30, 0, 0, time.UTC),
		Quotes: []domain.MarketQuote{
			{Selection: "Lakers ML", Price: decimal.NewFromInt(-110), Book: "pinnacle"},
			{Selection: "Celtics ML", Price: decimal.NewFromInt(105)},
		},
	}

	out, err := NewContextBuilder().Build(context.Background(), req)
	require.NoError(t, err)

	assert.Contains(t, out, "Basketball (NBA): Celtics @ Lakers")
	assert.Contains(t, out, "Lakers ML -110 (pinnacle)")
	assert.Contains(t, out, "Celtics ML +105")
	assert.Contains(t, out, "Sun, 01 Mar 2026 19:30:00 UTC")
}

func TestContextBuilderEmptyWithoutQuotes(t *testing.T) {
	req := domain.AnalysisRequest{
		EventID:  "evt-1",
		Sport:    "basketball",
		HomeTeam: "Lakers",
		AwayTeam: "Celtics",
	}

	out, err := NewContextBuilder().Build(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, out)
}
