package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyvc/tinyvc/models"
)

func f(v float64) *float64 { return &v }

func completeRecord(ticker string) models.EquityRecord {
	return models.EquityRecord{
		Ticker:       ticker,
		CurrentPrice: 150,
		High52W:      180,
		Low52W:       110,
		PERatio:      f(25),
		ForwardPE:    f(22),
		PEGRatio:     f(1.4),
		MarketCap:    500_000_000_000,
		Sector:       "Technology",
		MA50D:        f(145),
		MA200D:       f(140),
		YearReturn:   f(12),
	}
}

func TestValidateKeepsCleanRecords(t *testing.T) {
	dataset := models.EquityDataset{Equities: []models.EquityRecord{
		completeRecord("aapl "),
		completeRecord("MSFT"),
	}}

	out, dropped, err := New(0.20).Validate(dataset)
	require.NoError(t, err)
	assert.Empty(t, dropped)
	require.Len(t, out.Equities, 2)
	assert.Equal(t, "AAPL", out.Equities[0].Ticker)
}

func TestValidateDropsMissingCriticalFields(t *testing.T) {
	noPrice := completeRecord("AAPL")
	noPrice.CurrentPrice = 0
	noCap := completeRecord("MSFT")
	noCap.MarketCap = 0
	longTicker := completeRecord("WAYTOOLONGTICKER")

	dataset := models.EquityDataset{Equities: []models.EquityRecord{
		noPrice, noCap, longTicker, completeRecord("NVDA"),
	}}

	out, dropped, err := New(0.20).Validate(dataset)
	require.NoError(t, err)
	assert.Len(t, dropped, 3)
	require.Len(t, out.Equities, 1)
	assert.Equal(t, "NVDA", out.Equities[0].Ticker)
}

func TestValidateDropsInvalidValues(t *testing.T) {
	badRange := completeRecord("AAPL")
	badRange.High52W = 100
	badRange.Low52W = 120
	negativePE := completeRecord("MSFT")
	negativePE.PERatio = f(-5)

	dataset := models.EquityDataset{Equities: []models.EquityRecord{
		badRange, negativePE, completeRecord("NVDA"),
	}}

	out, dropped, err := New(0.20).Validate(dataset)
	require.NoError(t, err)
	assert.Len(t, dropped, 2)
	assert.Len(t, out.Equities, 1)
}

func TestValidateDropsIncompleteRecords(t *testing.T) {
	// Two of six optional fields missing is 33%, above the 20% threshold.
	incomplete := completeRecord("AAPL")
	incomplete.PEGRatio = nil
	incomplete.YearReturn = nil

	// One missing field (17%) squeaks under it.
	mostlyComplete := completeRecord("MSFT")
	mostlyComplete.PEGRatio = nil

	dataset := models.EquityDataset{Equities: []models.EquityRecord{incomplete, mostlyComplete}}

	out, dropped, err := New(0.20).Validate(dataset)
	require.NoError(t, err)
	assert.Len(t, dropped, 1)
	require.Len(t, out.Equities, 1)
	assert.Equal(t, "MSFT", out.Equities[0].Ticker)
}

func TestValidateFailsWhenNothingSurvives(t *testing.T) {
	empty := models.EquityRecord{Ticker: "AAPL"}
	dataset := models.EquityDataset{Equities: []models.EquityRecord{empty}}

	_, dropped, err := New(0.20).Validate(dataset)
	assert.ErrorIs(t, err, ErrNoValidEquities)
	assert.Len(t, dropped, 1)
}

func TestNewAppliesDefaultThreshold(t *testing.T) {
	v := New(0)
	assert.Equal(t, DefaultMaxMissingPct, v.maxMissingPct)
}
