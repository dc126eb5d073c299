package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validAnalysisJSON = `{
  "executive_summary": "Stay the course.",
  "macro_interpretation": "Rates are restrictive.",
  "opportunities": [
    {"ticker": "AAPL", "conviction_score": 82, "bull_case": "b", "bear_case": "b", "key_metrics": "PE 28"}
  ],
  "scenarios": [
    {"name": "core", "description": "d", "suggested_tickers": ["AAPL"]},
    {"name": "barbell", "description": "d", "suggested_tickers": ["AAPL"]}
  ],
  "themes_in_focus": "ai",
  "risks_to_watch": "rates"
}`

func TestParseAnalysisBareJSON(t *testing.T) {
	out, err := ParseAnalysis(validAnalysisJSON)
	require.NoError(t, err)
	assert.Equal(t, "Stay the course.", out.ExecutiveSummary)
	require.Len(t, out.Opportunities, 1)
	assert.Equal(t, 82, out.Opportunities[0].ConvictionScore)
}

func TestParseAnalysisFencedBlock(t *testing.T) {
	raw := "Here is the analysis you asked for:\n```json\n" + validAnalysisJSON + "\n```\nLet me know if you need more."
	out, err := ParseAnalysis(raw)
	require.NoError(t, err)
	assert.Len(t, out.Scenarios, 2)
}

func TestParseAnalysisPlainFence(t *testing.T) {
	raw := "```\n" + validAnalysisJSON + "\n```"
	out, err := ParseAnalysis(raw)
	require.NoError(t, err)
	assert.Equal(t, "Rates are restrictive.", out.MacroInterpretation)
}

func TestParseAnalysisLeadingProse(t *testing.T) {
	raw := "Sure! Based on the data provided: " + validAnalysisJSON
	_, err := ParseAnalysis(raw)
	assert.NoError(t, err)
}

func TestParseAnalysisNoJSON(t *testing.T) {
	_, err := ParseAnalysis("I cannot produce an analysis right now.")
	assert.Error(t, err)
}

func TestParseAnalysisMalformedJSON(t *testing.T) {
	_, err := ParseAnalysis(`{"executive_summary": "truncated...`)
	assert.Error(t, err)
}
