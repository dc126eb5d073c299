package performance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyvc/tinyvc/models"
)

// memStore is an in-memory RecommendationStore.
type memStore struct {
	records map[string][]models.RecommendationRecord
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string][]models.RecommendationRecord)}
}

func (s *memStore) SaveRecommendations(_ context.Context, date string, records []models.RecommendationRecord) error {
	s.records[date] = records
	return nil
}

func (s *memStore) LoadRecommendations(_ context.Context, date string) ([]models.RecommendationRecord, error) {
	return s.records[date], nil
}

func (s *memStore) ListRecommendationDates(_ context.Context, start, end string) ([]string, error) {
	var dates []string
	for d := range s.records {
		if d >= start && d <= end {
			dates = append(dates, d)
		}
	}
	return dates, nil
}

// flatPrices returns a constant-growth series for every ticker.
type flatPrices struct {
	perDay map[string]float64 // daily close increment
	start  map[string]float64
}

func (p *flatPrices) FetchDailyCloses(_ context.Context, ticker string, start, end time.Time) ([]models.PricePoint, error) {
	base, ok := p.start[ticker]
	if !ok {
		return nil, nil
	}
	var points []models.PricePoint
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		points = append(points, models.PricePoint{Date: d, Close: base})
		base += p.perDay[ticker]
	}
	return points, nil
}

func TestRecordUsesPayloadPrices(t *testing.T) {
	store := newMemStore()
	tracker := New(store, &flatPrices{}, "")

	payload := models.LLMPayload{Opportunities: []models.OpportunityItem{
		{Ticker: "AAPL", CurrentPrice: 180},
	}}
	opportunities := []models.LLMOpportunity{
		{Ticker: "AAPL", ConvictionScore: 85, BullCase: "bull", BearCase: "bear"},
		{Ticker: "UNKNOWN", ConvictionScore: 60, BullCase: "b", BearCase: "b"},
	}

	require.NoError(t, tracker.Record(context.Background(), "2026-08-28", payload, opportunities))

	records := store.records["2026-08-28"]
	require.Len(t, records, 2)
	assert.Equal(t, 180.0, records[0].CurrentPrice)
	// Not in the payload: price unknown, recorded as zero.
	assert.Equal(t, 0.0, records[1].CurrentPrice)
}

func TestBackfillComputesReturnsAndAlpha(t *testing.T) {
	store := newMemStore()
	store.records["2026-05-01"] = []models.RecommendationRecord{
		{Date: "2026-05-01", Ticker: "AAPL", ConvictionScore: 85, CurrentPrice: 100},
	}

	// AAPL climbs 1/day from 100, SPY climbs 0.5/day from 500.
	prices := &flatPrices{
		start:  map[string]float64{"AAPL": 100, "SPY": 500},
		perDay: map[string]float64{"AAPL": 1, "SPY": 0.5},
	}
	tracker := New(store, prices, "")

	records, err := tracker.Backfill(context.Background(), "2026-05-01", "2026-06-15")
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	// 1W horizon: 7 days out, close = 107.
	require.NotNil(t, rec.Return1W)
	assert.InDelta(t, 7.0, *rec.Return1W, 1e-9)
	// 1M horizon: 30 days out, close = 130.
	require.NotNil(t, rec.Return1M)
	assert.InDelta(t, 30.0, *rec.Return1M, 1e-9)
	// 3M has not elapsed by the evaluation date.
	assert.Nil(t, rec.Return3M)

	// Benchmark after 7 days: 503.5/500 - 1 = 0.7%.
	require.NotNil(t, rec.BenchmarkReturn1W)
	assert.InDelta(t, 0.7, *rec.BenchmarkReturn1W, 1e-9)
	require.NotNil(t, rec.Alpha1W)
	assert.InDelta(t, 6.3, *rec.Alpha1W, 1e-9)
}

func TestBackfillLeavesTickersWithoutDataUntouched(t *testing.T) {
	store := newMemStore()
	store.records["2026-05-01"] = []models.RecommendationRecord{
		{Date: "2026-05-01", Ticker: "GONE", ConvictionScore: 50, CurrentPrice: 40},
	}

	tracker := New(store, &flatPrices{}, "")
	records, err := tracker.Backfill(context.Background(), "2026-05-01", "2026-06-15")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Nil(t, records[0].Return1W)
	assert.Nil(t, records[0].Return1M)
}

func TestSummaryAggregates(t *testing.T) {
	store := newMemStore()
	store.records["2026-05-01"] = []models.RecommendationRecord{
		{Ticker: "WIN", ConvictionScore: 90, Return1M: f(10), BenchmarkReturn1M: f(2), Alpha1M: f(8)},
		{Ticker: "LOSE", ConvictionScore: 40, Return1M: f(-5), BenchmarkReturn1M: f(2), Alpha1M: f(-7)},
		{Ticker: "PENDING", ConvictionScore: 70}, // not yet backfilled
	}

	tracker := New(store, &flatPrices{}, "")
	summary, err := tracker.Summary(context.Background(), "2026-04-01", "2026-06-01", models.Horizon1M)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.TotalRecommendations)
	assert.InDelta(t, 2.5, summary.AvgReturn, 1e-9)
	assert.Equal(t, 1, summary.PositiveReturnsCount)
	assert.InDelta(t, 0.5, summary.HitRate, 1e-9)
	assert.Equal(t, 1, summary.BeatBenchmarkCount)
	assert.InDelta(t, 0.5, summary.OutperformanceRate, 1e-9)

	require.NotNil(t, summary.HighConvictionAvgReturn)
	assert.InDelta(t, 10.0, *summary.HighConvictionAvgReturn, 1e-9)
	require.NotNil(t, summary.LowConvictionAvgReturn)
	assert.InDelta(t, -5.0, *summary.LowConvictionAvgReturn, 1e-9)
}

func TestSummaryNoData(t *testing.T) {
	tracker := New(newMemStore(), &flatPrices{}, "")

	_, err := tracker.Summary(context.Background(), "2026-01-01", "2026-02-01", models.Horizon1M)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestSummaryNoBackfilledHorizon(t *testing.T) {
	store := newMemStore()
	store.records["2026-05-01"] = []models.RecommendationRecord{
		{Ticker: "AAPL", ConvictionScore: 80},
	}

	tracker := New(store, &flatPrices{}, "")
	_, err := tracker.Summary(context.Background(), "2026-04-01", "2026-06-01", models.Horizon3M)
	assert.ErrorIs(t, err, ErrNoData)
}

func f(v float64) *float64 { return &v }
