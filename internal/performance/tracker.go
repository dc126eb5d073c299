// Package performance records recommendations and measures their realized
// returns against a benchmark index.
package performance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tinyvc/tinyvc/internal/stats"
	"github.com/tinyvc/tinyvc/models"
)

// DefaultBenchmark is the index every recommendation is measured against.
const DefaultBenchmark = "SPY"

// ErrNoData is returned when a summary window contains no records, or no
// record has the requested horizon backfilled yet.
var ErrNoData = errors.New("performance: no data")

// horizonOffsets maps each horizon to its calendar offset.
var horizonOffsets = map[models.Horizon]time.Duration{
	models.Horizon1W: 7 * 24 * time.Hour,
	models.Horizon1M: 30 * 24 * time.Hour,
	models.Horizon3M: 90 * 24 * time.Hour,
}

// Tracker persists recommendations and backfills their realized returns.
type Tracker struct {
	store     models.RecommendationStore
	prices    models.PriceSeriesClient
	benchmark string
	logger    zerolog.Logger
}

// New creates a Tracker. An empty benchmark uses DefaultBenchmark.
func New(store models.RecommendationStore, prices models.PriceSeriesClient, benchmark string) *Tracker {
	if benchmark == "" {
		benchmark = DefaultBenchmark
	}
	return &Tracker{
		store:     store,
		prices:    prices,
		benchmark: benchmark,
		logger:    log.With().Str("component", "performance_tracker").Logger(),
	}
}

// Record stores this run's recommendations with the price each ticker had
// in the payload, so returns can be computed later.
func (t *Tracker) Record(ctx context.Context, date string, payload models.LLMPayload, opportunities []models.LLMOpportunity) error {
	records := make([]models.RecommendationRecord, 0, len(opportunities))
	for _, opp := range opportunities {
		price := 0.0
		if item, ok := payload.OpportunityByTicker(opp.Ticker); ok {
			price = item.CurrentPrice
		}
		records = append(records, models.RecommendationRecord{
			Date:            date,
			Ticker:          opp.Ticker,
			ConvictionScore: opp.ConvictionScore,
			CurrentPrice:    price,
			BullCase:        opp.BullCase,
			BearCase:        opp.BearCase,
		})
	}

	if err := t.store.SaveRecommendations(ctx, date, records); err != nil {
		return fmt.Errorf("saving recommendations: %w", err)
	}
	t.logger.Info().Str("date", date).Int("count", len(records)).Msg("recommendations recorded")
	return nil
}

// Backfill computes returns, benchmark returns and alpha for every
// recommendation made on recommendationDate, for each horizon that has
// elapsed by evaluationDate. Tickers with no price data are left
// untouched; that is a normal early-window condition, not a failure.
func (t *Tracker) Backfill(ctx context.Context, recommendationDate, evaluationDate string) ([]models.RecommendationRecord, error) {
	if evaluationDate == "" {
		evaluationDate = time.Now().Format("2006-01-02")
	}
	t.logger.Info().
		Str("recommendation_date", recommendationDate).
		Str("evaluation_date", evaluationDate).
		Msg("backfill started")

	records, err := t.store.LoadRecommendations(ctx, recommendationDate)
	if err != nil {
		return nil, fmt.Errorf("loading recommendations for %s: %w", recommendationDate, err)
	}

	recDate, err := time.Parse("2006-01-02", recommendationDate)
	if err != nil {
		return nil, fmt.Errorf("parsing recommendation date: %w", err)
	}
	evalDate, err := time.Parse("2006-01-02", evaluationDate)
	if err != nil {
		return nil, fmt.Errorf("parsing evaluation date: %w", err)
	}

	benchmarkReturns := t.benchmarkReturns(ctx, recDate, evalDate)

	for i := range records {
		rec := &records[i]
		prices, err := t.prices.FetchDailyCloses(ctx, rec.Ticker, recDate, evalDate)
		if err != nil {
			t.logger.Warn().Str("ticker", rec.Ticker).Err(err).Msg("price fetch failed")
			continue
		}
		if len(prices) == 0 {
			continue
		}

		for horizon, offset := range horizonOffsets {
			target := recDate.Add(offset)
			if target.After(evalDate) {
				continue
			}
			later := priceOnOrAfter(prices, target)
			if later == nil || rec.CurrentPrice <= 0 {
				continue
			}
			ret := ((*later - rec.CurrentPrice) / rec.CurrentPrice) * 100
			bench := benchmarkReturns[horizon]
			applyHorizon(rec, horizon, *later, ret, bench)
		}
	}

	if err := t.store.SaveRecommendations(ctx, recommendationDate, records); err != nil {
		return nil, fmt.Errorf("saving backfilled recommendations: %w", err)
	}

	t.logger.Info().
		Str("recommendation_date", recommendationDate).
		Int("records_updated", len(records)).
		Msg("backfill complete")
	return records, nil
}

// Summary aggregates all recommendations in [startDate, endDate] for one
// horizon.
func (t *Tracker) Summary(ctx context.Context, startDate, endDate string, horizon models.Horizon) (models.PerformanceSummary, error) {
	dates, err := t.store.ListRecommendationDates(ctx, startDate, endDate)
	if err != nil {
		return models.PerformanceSummary{}, fmt.Errorf("listing recommendation dates: %w", err)
	}

	var all []models.RecommendationRecord
	for _, date := range dates {
		records, err := t.store.LoadRecommendations(ctx, date)
		if err != nil {
			return models.PerformanceSummary{}, fmt.Errorf("loading recommendations for %s: %w", date, err)
		}
		all = append(all, records...)
	}
	if len(all) == 0 {
		return models.PerformanceSummary{}, fmt.Errorf("%w: no recommendations between %s and %s", ErrNoData, startDate, endDate)
	}

	var valid []models.RecommendationRecord
	for _, rec := range all {
		if rec.ReturnFor(horizon) != nil {
			valid = append(valid, rec)
		}
	}
	if len(valid) == 0 {
		return models.PerformanceSummary{}, fmt.Errorf("%w: no recommendations have %s returns calculated yet", ErrNoData, horizon)
	}

	var returns, benchmarks, alphas, convictions []float64
	var highConviction, lowConviction []float64
	positive, beatBenchmark := 0, 0

	for _, rec := range valid {
		ret := *rec.ReturnFor(horizon)
		returns = append(returns, ret)
		convictions = append(convictions, float64(rec.ConvictionScore))

		if ret > 0 {
			positive++
		}
		if bench := rec.BenchmarkFor(horizon); bench != nil {
			benchmarks = append(benchmarks, *bench)
		}
		if alpha := rec.AlphaFor(horizon); alpha != nil {
			alphas = append(alphas, *alpha)
			if *alpha > 0 {
				beatBenchmark++
			}
		}
		if rec.ConvictionScore > 75 {
			highConviction = append(highConviction, ret)
		}
		if rec.ConvictionScore < 50 {
			lowConviction = append(lowConviction, ret)
		}
	}

	summary := models.PerformanceSummary{
		Period:               horizon,
		StartDate:            startDate,
		EndDate:              endDate,
		TotalRecommendations: len(valid),
		AvgReturn:            stats.Mean(returns),
		MedianReturn:         stats.Median(returns),
		AvgBenchmarkReturn:   stats.Mean(benchmarks),
		AvgAlpha:             stats.Mean(alphas),
		PositiveReturnsCount: positive,
		BeatBenchmarkCount:   beatBenchmark,
		HitRate:              float64(positive) / float64(len(returns)),
	}
	if len(alphas) > 0 {
		summary.OutperformanceRate = float64(beatBenchmark) / float64(len(alphas))
	}
	if corr, err := stats.Pearson(convictions, returns); err == nil {
		summary.ConvictionCorrelation = &corr
	}
	if len(highConviction) > 0 {
		avg := stats.Mean(highConviction)
		summary.HighConvictionAvgReturn = &avg
	}
	if len(lowConviction) > 0 {
		avg := stats.Mean(lowConviction)
		summary.LowConvictionAvgReturn = &avg
	}

	return summary, nil
}

// benchmarkReturns computes the benchmark index return from the
// recommendation date out to each elapsed horizon. Missing data just means
// no benchmark comparison for that horizon.
func (t *Tracker) benchmarkReturns(ctx context.Context, recDate, evalDate time.Time) map[models.Horizon]*float64 {
	out := make(map[models.Horizon]*float64)

	prices, err := t.prices.FetchDailyCloses(ctx, t.benchmark, recDate, evalDate)
	if err != nil {
		t.logger.Warn().Str("ticker", t.benchmark).Err(err).Msg("benchmark fetch failed")
		return out
	}
	if len(prices) == 0 {
		return out
	}

	startPrice := prices[0].Close
	if startPrice <= 0 {
		return out
	}
	for horizon, offset := range horizonOffsets {
		target := recDate.Add(offset)
		if target.After(evalDate) {
			continue
		}
		if later := priceOnOrAfter(prices, target); later != nil {
			ret := ((*later - startPrice) / startPrice) * 100
			out[horizon] = &ret
		}
	}
	return out
}

// priceOnOrAfter returns the close of the first point on or after target,
// nil when the series ends before it.
func priceOnOrAfter(prices []models.PricePoint, target time.Time) *float64 {
	for _, p := range prices {
		if !p.Date.Before(target) {
			close := p.Close
			return &close
		}
	}
	return nil
}

func applyHorizon(rec *models.RecommendationRecord, horizon models.Horizon, later, ret float64, bench *float64) {
	switch horizon {
	case models.Horizon1W:
		rec.Price1WLater = &later
		rec.Return1W = &ret
		rec.BenchmarkReturn1W = bench
		if bench != nil {
			alpha := ret - *bench
			rec.Alpha1W = &alpha
		}
	case models.Horizon3M:
		rec.Price3MLater = &later
		rec.Return3M = &ret
		rec.BenchmarkReturn3M = bench
		if bench != nil {
			alpha := ret - *bench
			rec.Alpha3M = &alpha
		}
	default:
		rec.Price1MLater = &later
		rec.Return1M = &ret
		rec.BenchmarkReturn1M = bench
		if bench != nil {
			alpha := ret - *bench
			rec.Alpha1M = &alpha
		}
	}
}
