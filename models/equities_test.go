package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fp(v float64) *float64 { return &v }

func TestOpportunityRowRoundTrip(t *testing.T) {
	rows := []OpportunityRow{
		{
			EquityRecord: EquityRecord{
				Ticker:       "NVDA",
				CurrentPrice: 120.45,
				High52W:      150,
				Low52W:       80,
				PERatio:      fp(45.7),
				PEGRatio:     fp(1.23),
				MarketCap:    3_000_000_000_000,
				Sector:       "Technology",
				MA50D:        fp(118),
				MA200D:       fp(110),
				YearReturn:   fp(62.5),
			},
			PassesValueFilter:    false,
			PassesMomentumFilter: true,
			OpportunityScore:     85.5,
		},
		{
			// Sparse record: every optional metric absent.
			EquityRecord: EquityRecord{
				Ticker:       "UBER",
				CurrentPrice: 70,
				High52W:      80,
				Low52W:       50,
				MarketCap:    150_000_000_000,
			},
			PassesValueFilter:    true,
			PassesMomentumFilter: false,
			OpportunityScore:     60,
		},
	}

	data, err := json.Marshal(rows)
	require.NoError(t, err)

	var reloaded []OpportunityRow
	require.NoError(t, json.Unmarshal(data, &reloaded))

	require.Len(t, reloaded, 2)
	for i := range rows {
		assert.Equal(t, rows[i].Ticker, reloaded[i].Ticker)
		assert.Equal(t, rows[i].OpportunityScore, reloaded[i].OpportunityScore)
		assert.Equal(t, rows[i].PassesValueFilter, reloaded[i].PassesValueFilter)
		assert.Equal(t, rows[i].PassesMomentumFilter, reloaded[i].PassesMomentumFilter)
	}

	// Optional metrics keep their present/absent distinction.
	require.NotNil(t, reloaded[0].PERatio)
	assert.Equal(t, 45.7, *reloaded[0].PERatio)
	assert.Nil(t, reloaded[1].PERatio)
	assert.Nil(t, reloaded[1].YearReturn)

	assert.Equal(t, rows, reloaded)
}
