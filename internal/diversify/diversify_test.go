package diversify

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyvc/tinyvc/models"
)

// fakePrices serves canned close series keyed by ticker.
type fakePrices struct {
	series map[string][]models.PricePoint
	errs   map[string]error
}

func (f *fakePrices) FetchDailyCloses(_ context.Context, ticker string, _, _ time.Time) ([]models.PricePoint, error) {
	if err, ok := f.errs[ticker]; ok {
		return nil, err
	}
	return f.series[ticker], nil
}

// seriesFrom builds consecutive daily points from closes.
func seriesFrom(closes ...float64) []models.PricePoint {
	base := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	points := make([]models.PricePoint, len(closes))
	for i, c := range closes {
		points[i] = models.PricePoint{Date: base.AddDate(0, 0, i), Close: c}
	}
	return points
}

func row(ticker string, score float64) models.OpportunityRow {
	return models.OpportunityRow{
		EquityRecord:     models.EquityRecord{Ticker: ticker},
		OpportunityScore: score,
	}
}

func TestBuildMatrixIdenticalSeries(t *testing.T) {
	prices := &fakePrices{series: map[string][]models.PricePoint{
		"AAA": seriesFrom(100, 101, 103, 102, 105),
		"BBB": seriesFrom(50, 50.5, 51.5, 51, 52.5),
	}}

	matrix, err := New(prices, 0.85, 0).BuildMatrix(context.Background(), []string{"AAA", "BBB"})
	require.NoError(t, err)
	require.False(t, matrix.Empty())

	corr, err := matrix.At("AAA", "BBB")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, corr, 1e-6)

	self, err := matrix.At("AAA", "AAA")
	require.NoError(t, err)
	assert.Equal(t, 1.0, self)
}

func TestBuildMatrixSkipsUnusableTickers(t *testing.T) {
	prices := &fakePrices{
		series: map[string][]models.PricePoint{
			"AAA": seriesFrom(100, 101, 103, 102),
			"BBB": seriesFrom(50, 51, 49, 52),
			"CCC": nil, // no history
		},
		errs: map[string]error{"DDD": fmt.Errorf("provider down")},
	}

	matrix, err := New(prices, 0.85, 0).BuildMatrix(context.Background(), []string{"AAA", "BBB", "CCC", "DDD"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"AAA", "BBB"}, matrix.Tickers)
}

func TestBuildMatrixEmptyWhenTooFewUsable(t *testing.T) {
	prices := &fakePrices{series: map[string][]models.PricePoint{
		"AAA": seriesFrom(100, 101, 103),
	}}

	matrix, err := New(prices, 0.85, 0).BuildMatrix(context.Background(), []string{"AAA", "BBB"})
	require.NoError(t, err)
	assert.True(t, matrix.Empty())
}

func TestApplyDropsLowerScoringOfCorrelatedPair(t *testing.T) {
	rows := []models.OpportunityRow{row("AAA", 80), row("BBB", 60)}
	matrix := models.CorrelationMatrix{
		Tickers: []string{"AAA", "BBB"},
		Values:  [][]float64{{1, 0.95}, {0.95, 1}},
	}

	out := New(nil, 0.85, 0).Apply(rows, matrix)
	require.Len(t, out, 1)
	assert.Equal(t, "AAA", out[0].Ticker)
}

func TestApplyKeepsUncorrelatedPairs(t *testing.T) {
	rows := []models.OpportunityRow{row("AAA", 80), row("BBB", 60)}
	matrix := models.CorrelationMatrix{
		Tickers: []string{"AAA", "BBB"},
		Values:  [][]float64{{1, 0.5}, {0.5, 1}},
	}

	out := New(nil, 0.85, 0).Apply(rows, matrix)
	assert.Len(t, out, 2)
}

func TestApplyFirstDecisionWins(t *testing.T) {
	// AAA-BBB drops BBB (60 < 80). The later BBB-CCC pair involves an
	// already-dropped ticker, so CCC survives even though it scores lower.
	rows := []models.OpportunityRow{row("AAA", 80), row("BBB", 60), row("CCC", 40)}
	matrix := models.CorrelationMatrix{
		Tickers: []string{"AAA", "BBB", "CCC"},
		Values: [][]float64{
			{1, 0.95, 0.1},
			{0.95, 1, 0.92},
			{0.1, 0.92, 1},
		},
	}

	out := New(nil, 0.85, 0).Apply(rows, matrix)
	require.Len(t, out, 2)
	assert.Equal(t, "AAA", out[0].Ticker)
	assert.Equal(t, "CCC", out[1].Ticker)
}

func TestApplyTieDropsSecondTicker(t *testing.T) {
	rows := []models.OpportunityRow{row("AAA", 70), row("BBB", 70)}
	matrix := models.CorrelationMatrix{
		Tickers: []string{"AAA", "BBB"},
		Values:  [][]float64{{1, 0.99}, {0.99, 1}},
	}

	out := New(nil, 0.85, 0).Apply(rows, matrix)
	require.Len(t, out, 1)
	assert.Equal(t, "AAA", out[0].Ticker)
}

func TestApplyEmptyMatrixIsNoOp(t *testing.T) {
	rows := []models.OpportunityRow{row("AAA", 80), row("BBB", 60)}
	out := New(nil, 0.85, 0).Apply(rows, models.CorrelationMatrix{})
	assert.Equal(t, rows, out)
}

func TestApplyNegativeCorrelationCountsByMagnitude(t *testing.T) {
	rows := []models.OpportunityRow{row("AAA", 80), row("BBB", 60)}
	matrix := models.CorrelationMatrix{
		Tickers: []string{"AAA", "BBB"},
		Values:  [][]float64{{1, -0.95}, {-0.95, 1}},
	}

	out := New(nil, 0.85, 0).Apply(rows, matrix)
	assert.Len(t, out, 1)
}
