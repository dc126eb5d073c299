package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyvc/tinyvc/models"
)

func f(v float64) *float64 { return &v }

func testInput() Input {
	return Input{
		Date: "2026-08-28",
		Payload: models.LLMPayload{
			ReportDate: "2026-08-28",
			MacroEnvironment: models.MacroEnvironment{
				FedFundsRate:   4.33,
				Treasury10Y:    4.25,
				Unemployment:   4.1,
				CPIYoY:         2.9,
				FearGreedScore: 38,
				FearGreedLabel: "Fear",
			},
			MarketContext: models.MarketContext{
				TrendSignal:   "Bullish",
				RiskRegime:    "Risk-On",
				SectorLeaders: map[string]float64{"XLK": 4.2, "XLF": 1.1},
			},
			Opportunities: []models.OpportunityItem{
				{Ticker: "AAPL", CurrentPrice: 180.25, PERatio: f(28.5), OpportunityScore: 82.5},
			},
		},
		Analysis: models.AnalysisOutput{
			ExecutiveSummary:    "Stay invested, lean into quality.",
			MacroInterpretation: "Restrictive but easing.",
			Opportunities: []models.LLMOpportunity{
				{Ticker: "AAPL", ConvictionScore: 82, BullCase: "Services growth.", BearCase: "Hardware cycle."},
			},
			Scenarios: []models.Scenario{
				{Name: "Core", Description: "All into the leader.", SuggestedTickers: []string{"AAPL"}},
			},
			RisksToWatch: "Concentration risk.",
		},
		Evaluation: models.GroundednessReport{
			OverallGroundingScore: 0.92,
			QualityGrade:          "A",
		},
		Sentiment: models.SentimentData{Score: 38, OneWeekAgo: 40},
		Correlations: models.CorrelationMatrix{
			Tickers: []string{"AAPL", "MSFT"},
			Values:  [][]float64{{1, 0.82}, {0.82, 1}},
		},
	}
}

func TestBuildMarkdownSections(t *testing.T) {
	md := BuildMarkdown(testInput())

	assert.Contains(t, md, "# Weekly Investment Report - 2026-08-28")
	assert.Contains(t, md, "Stay invested, lean into quality.")
	assert.Contains(t, md, "| Fed Funds Rate | 4.33% |")
	assert.Contains(t, md, "### AAPL - conviction 82/100")
	assert.Contains(t, md, "Price $180.25")
	assert.Contains(t, md, "P/E 28.5")
	assert.Contains(t, md, "**Bull case:** Services growth.")
	assert.Contains(t, md, "**Core** (AAPL)")
	assert.Contains(t, md, "Groundedness: **92% (A)**")
	assert.Contains(t, md, "not investment advice")
}

func TestBuildMarkdownSectorLeaders(t *testing.T) {
	md := BuildMarkdown(testInput())
	// Ranked by return descending.
	assert.Contains(t, md, "XLK (+4.2%), XLF (+1.1%)")
}

func TestBuildMarkdownOmitsEmptyNews(t *testing.T) {
	md := BuildMarkdown(testInput())
	assert.NotContains(t, md, "## Market News")
}

func TestBuildMarkdownCorrelationAppendix(t *testing.T) {
	md := BuildMarkdown(testInput())
	assert.Contains(t, md, "## Appendix: Return Correlations")
	assert.Contains(t, md, "| **AAPL** | 1.00 | 0.82 |")

	in := testInput()
	in.Correlations = models.CorrelationMatrix{}
	assert.NotContains(t, BuildMarkdown(in), "Appendix")
}

func TestToHTML(t *testing.T) {
	html, err := ToHTML(BuildMarkdown(testInput()))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))
	assert.Contains(t, html, "<h1")
	assert.Contains(t, html, "AAPL")
	// GFM table extension renders the macro table.
	assert.Contains(t, html, "<table>")
}
