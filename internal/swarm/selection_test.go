package swarm

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oddsflow/swarm/internal/domain"
)

func analysisWithBet(agentID, selection string, price *decimal.Decimal) domain.AgentAnalysis {
	return domain.AgentAnalysis{
		AgentID:    agentID,
		Verdict:    domain.VerdictStrongBet,
		Confidence: domain.ConfidenceHigh,
		Bet: &domain.BetRecommendation{
			Type:      "moneyline",
			Selection: selection,
			Price:     price,
		},
	}
}

func price(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func TestDeriveBetSelectionMostFrequentWins(t *testing.T) {
	analyses := []domain.AgentAnalysis{
		analysisWithBet("a", "Lakers -3.5", nil),
		analysisWithBet("b", "Celtics +3.5", nil),
		analysisWithBet("c", "Lakers -3.5", nil),
	}

	rec := DeriveBetSelection(analyses)
	require.NotNil(t, rec)
	assert.Equal(t, "Lakers -3.5", rec.Selection)
	assert.Nil(t, rec.Price)
}

func TestDeriveBetSelectionNormalizesBeforeTallying(t *testing.T) {
	analyses := []domain.AgentAnalysis{
		analysisWithBet("a", "lakers  -3.5", nil),
		analysisWithBet("b", "Celtics +3.5", nil),
		analysisWithBet("c", "Lakers -3.5", nil),
	}

	rec := DeriveBetSelection(analyses)
	require.NotNil(t, rec)
	// The first-seen spelling is preserved in the output.
	assert.Equal(t, "lakers  -3.5", rec.Selection)
}

func TestDeriveBetSelectionTieBreaksOnEarliestAgent(t *testing.T) {
	analyses := []domain.AgentAnalysis{
		analysisWithBet("a", "Celtics +3.5", nil),
		analysisWithBet("b", "Lakers -3.5", nil),
		analysisWithBet("c", "Lakers -3.5", nil),
		analysisWithBet("d", "Celtics +3.5", nil),
	}

	rec := DeriveBetSelection(analyses)
	require.NotNil(t, rec)
	assert.Equal(t, "Celtics +3.5", rec.Selection)
}

func TestDeriveBetSelectionMeanPrice(t *testing.T) {
	analyses := []domain.AgentAnalysis{
		analysisWithBet("a", "Lakers ML", price(-110)),
		analysisWithBet("b", "Lakers ML", price(-120)),
		analysisWithBet("c", "Lakers ML", nil),
		analysisWithBet("d", "Celtics ML", price(300)),
	}

	rec := DeriveBetSelection(analyses)
	require.NotNil(t, rec)
	require.NotNil(t, rec.Price)
	// Mean of the winning selection's quoted prices only.
	assert.True(t, rec.Price.Equal(decimal.NewFromInt(-115)), "got %s", rec.Price)
}

func TestDeriveBetSelectionSkipsInvalidAndBetless(t *testing.T) {
	degraded := analysisWithBet("a", "Lakers ML", price(-110))
	degraded.Error = "timeout"
	degraded.Verdict = domain.VerdictUnknown

	analyses := []domain.AgentAnalysis{
		degraded,
		{AgentID: "b", Verdict: domain.VerdictAvoid, Confidence: domain.ConfidenceHigh},
		analysisWithBet("c", "Celtics ML", nil),
	}

	rec := DeriveBetSelection(analyses)
	require.NotNil(t, rec)
	assert.Equal(t, "Celtics ML", rec.Selection)
}

func TestDeriveBetSelectionNoRecommendations(t *testing.T) {
	analyses := []domain.AgentAnalysis{
		{AgentID: "a", Verdict: domain.VerdictAvoid, Confidence: domain.ConfidenceHigh},
		{AgentID: "b", Verdict: domain.VerdictRisky, Confidence: domain.ConfidenceLow},
	}

	assert.Nil(t, DeriveBetSelection(analyses))
}
