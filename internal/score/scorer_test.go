package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyvc/tinyvc/models"
)

func f(v float64) *float64 { return &v }

var testThresholds = Thresholds{
	Value: ValueFilters{
		MinMarketCap: 10_000_000_000,
		MaxPERatio:   40,
		MaxPEGRatio:  2.5,
	},
	Momentum: MomentumFilters{
		MaxPctFrom52WHigh: 0.30,
	},
}

func TestOpportunityScoreClampsAt100(t *testing.T) {
	// Every factor positive: 50 +15 +10 +15 +10 +5 +10 = 115, clamped.
	rec := models.EquityRecord{
		Ticker:       "AAPL",
		CurrentPrice: 97,
		High52W:      100,
		Low52W:       60,
		PERatio:      f(15),
		PEGRatio:     f(0.8),
		MarketCap:    500_000_000_000,
		MA50D:        f(90),
		MA200D:       f(85),
		YearReturn:   f(35),
	}

	rows := New(testThresholds).Score(models.EquityDataset{Equities: []models.EquityRecord{rec}}, 50)
	require.Len(t, rows, 1)
	assert.Equal(t, 100.0, rows[0].OpportunityScore)
}

func TestOpportunityScorePenalties(t *testing.T) {
	// Expensive and greedy: 50 -10 (PE>40) +15 (near high) +10 +5 (no MA
	// data counts as above) -10 (extreme greed) = 60.
	rec := models.EquityRecord{
		Ticker:       "XYZ",
		CurrentPrice: 99,
		High52W:      100,
		Low52W:       50,
		PERatio:      f(50),
		MarketCap:    20_000_000_000,
	}

	rows := New(testThresholds).Score(models.EquityDataset{Equities: []models.EquityRecord{rec}}, 80)
	require.Len(t, rows, 1)
	assert.Equal(t, 60.0, rows[0].OpportunityScore)
	assert.False(t, rows[0].PassesValueFilter)
}

func TestPanicBuyBonus(t *testing.T) {
	// Sound stock down 25% during extreme fear gets the contrarian bonus:
	// 50 +15 (PE<20) +10 (PEG<1) +0 (drawdown in [-0.30,-0.15]) +10 +5
	// +10 (panic bonus) = 100.
	rec := models.EquityRecord{
		Ticker:       "DIP",
		CurrentPrice: 75,
		High52W:      100,
		Low52W:       50,
		PERatio:      f(15),
		PEGRatio:     f(0.9),
		MarketCap:    50_000_000_000,
	}

	scorer := New(testThresholds)

	fearRows := scorer.Score(models.EquityDataset{Equities: []models.EquityRecord{rec}}, 20)
	neutralRows := scorer.Score(models.EquityDataset{Equities: []models.EquityRecord{rec}}, 50)
	require.Len(t, fearRows, 1)
	require.Len(t, neutralRows, 1)
	assert.Equal(t, neutralRows[0].OpportunityScore+10, fearRows[0].OpportunityScore)
}

func TestScoreSortsDescendingAndIsStable(t *testing.T) {
	strong := models.EquityRecord{
		Ticker: "STRONG", CurrentPrice: 97, High52W: 100, Low52W: 60,
		PERatio: f(15), PEGRatio: f(0.8), MarketCap: 100_000_000_000, YearReturn: f(35),
	}
	weak := models.EquityRecord{
		Ticker: "WEAK", CurrentPrice: 60, High52W: 100, Low52W: 50,
		PERatio: f(50), PEGRatio: f(3.0), MarketCap: 15_000_000_000, YearReturn: f(-20),
	}

	dataset := models.EquityDataset{Equities: []models.EquityRecord{weak, strong}}
	rows := New(testThresholds).Score(dataset, 50)

	require.Len(t, rows, 2)
	assert.Equal(t, "STRONG", rows[0].Ticker)
	assert.GreaterOrEqual(t, rows[0].OpportunityScore, rows[1].OpportunityScore)

	// Idempotent over an unchanged dataset.
	again := New(testThresholds).Score(dataset, 50)
	assert.Equal(t, rows, again)
}

func TestValueFilterRespectsMissingRatios(t *testing.T) {
	// Missing PE/PEG cannot fail the ratio constraints.
	rec := models.EquityRecord{
		Ticker:       "NOPE",
		CurrentPrice: 100,
		High52W:      110,
		Low52W:       80,
		MarketCap:    50_000_000_000,
	}

	rows := New(testThresholds).Score(models.EquityDataset{Equities: []models.EquityRecord{rec}}, 50)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].PassesValueFilter)
}

func TestMomentumFilterDrawdownCutoff(t *testing.T) {
	deep := models.EquityRecord{
		Ticker: "DEEP", CurrentPrice: 60, High52W: 100, Low52W: 40,
		MarketCap: 50_000_000_000,
	}
	shallow := models.EquityRecord{
		Ticker: "SHAL", CurrentPrice: 90, High52W: 100, Low52W: 40,
		MarketCap: 50_000_000_000,
	}

	rows := New(testThresholds).Score(models.EquityDataset{Equities: []models.EquityRecord{deep, shallow}}, 50)
	byTicker := map[string]models.OpportunityRow{}
	for _, r := range rows {
		byTicker[r.Ticker] = r
	}
	assert.False(t, byTicker["DEEP"].PassesMomentumFilter)
	assert.True(t, byTicker["SHAL"].PassesMomentumFilter)
}
