// Package diversify computes the pairwise return-correlation matrix for
// top-scoring candidates and greedily removes redundant members of
// overly-correlated pairs.
package diversify

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tinyvc/tinyvc/internal/stats"
	"github.com/tinyvc/tinyvc/models"
)

// DefaultMaxCorrelation is the default |correlation| threshold above which
// a pair is considered redundant.
const DefaultMaxCorrelation = 0.85

// DefaultLookback is the default return-history window.
const DefaultLookback = 365 * 24 * time.Hour

// Diversifier builds correlation matrices from daily returns and enforces
// diversification over a score-ranked candidate list.
type Diversifier struct {
	prices         models.PriceSeriesClient
	maxCorrelation float64
	lookback       time.Duration
	logger         zerolog.Logger
}

// New creates a Diversifier. Non-positive maxCorrelation or lookback fall
// back to the defaults.
func New(prices models.PriceSeriesClient, maxCorrelation float64, lookback time.Duration) *Diversifier {
	if maxCorrelation <= 0 {
		maxCorrelation = DefaultMaxCorrelation
	}
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	return &Diversifier{
		prices:         prices,
		maxCorrelation: maxCorrelation,
		lookback:       lookback,
		logger:         log.With().Str("component", "diversifier").Logger(),
	}
}

// BuildMatrix computes the Pearson correlation matrix of daily returns for
// tickers, aligned on dates where every usable ticker traded. Tickers with
// no usable return history are excluded; if fewer than two remain, the
// matrix is empty and diversification becomes a no-op.
func (d *Diversifier) BuildMatrix(ctx context.Context, tickers []string) (models.CorrelationMatrix, error) {
	d.logger.Info().Int("ticker_count", len(tickers)).Msg("correlation calculation started")

	end := time.Now()
	start := end.Add(-d.lookback)

	type series struct {
		ticker  string
		returns map[string]float64 // ISO date -> daily return
	}
	var usable []series

	for _, ticker := range tickers {
		points, err := d.prices.FetchDailyCloses(ctx, ticker, start, end)
		if err != nil {
			// Treated as "no data for this ticker", never a hard failure.
			d.logger.Warn().Str("ticker", ticker).Err(err).Msg("fetch returns failed")
			continue
		}
		returns := dailyReturns(points)
		if len(returns) == 0 {
			d.logger.Warn().Str("ticker", ticker).Msg("no history data")
			continue
		}
		usable = append(usable, series{ticker: ticker, returns: returns})
	}

	if len(usable) < 2 {
		d.logger.Warn().Msg("no returns data")
		return models.CorrelationMatrix{}, nil
	}

	// Keep only dates on which every usable ticker has a return.
	common := make([]string, 0, len(usable[0].returns))
	for date := range usable[0].returns {
		shared := true
		for _, s := range usable[1:] {
			if _, ok := s.returns[date]; !ok {
				shared = false
				break
			}
		}
		if shared {
			common = append(common, date)
		}
	}
	if len(common) < 2 {
		d.logger.Warn().Int("common_dates", len(common)).Msg("insufficient aligned return history")
		return models.CorrelationMatrix{}, nil
	}
	sort.Strings(common) // ISO dates sort lexicographically

	aligned := make([][]float64, len(usable))
	names := make([]string, len(usable))
	for i, s := range usable {
		names[i] = s.ticker
		col := make([]float64, len(common))
		for j, date := range common {
			col[j] = s.returns[date]
		}
		aligned[i] = col
	}

	values := make([][]float64, len(usable))
	for i := range values {
		values[i] = make([]float64, len(usable))
		values[i][i] = 1.0
	}
	for i := 0; i < len(usable); i++ {
		for j := i + 1; j < len(usable); j++ {
			r, err := stats.Pearson(aligned[i], aligned[j])
			if err != nil {
				if !errors.Is(err, stats.ErrInsufficientData) {
					return models.CorrelationMatrix{}, err
				}
				// Degenerate pair (e.g. constant series): below any
				// threshold, so the pair is simply never flagged.
				r = 0
			}
			values[i][j] = r
			values[j][i] = r
		}
	}

	d.logger.Info().Int("aligned_dates", len(common)).Msg("correlation calculation complete")
	return models.CorrelationMatrix{Tickers: names, Values: values}, nil
}

// Apply removes redundant tickers from a score-ranked row list. It scans
// the upper triangle of the matrix once, in order; for each pair above the
// threshold it drops the lower-scoring side unless either side was already
// dropped by an earlier pair (first decision wins). The single pass is a
// deliberate best-effort heuristic: scan order affects the outcome and the
// result is not a minimal set.
func (d *Diversifier) Apply(rows []models.OpportunityRow, matrix models.CorrelationMatrix) []models.OpportunityRow {
	if matrix.Empty() {
		d.logger.Warn().Msg("empty correlation matrix, skipping diversification")
		return rows
	}

	scores := make(map[string]float64, len(rows))
	for _, row := range rows {
		scores[row.Ticker] = row.OpportunityScore
	}

	drop := make(map[string]bool)
	for i := 0; i < len(matrix.Tickers); i++ {
		for j := i + 1; j < len(matrix.Tickers); j++ {
			if math.Abs(matrix.Values[i][j]) <= d.maxCorrelation {
				continue
			}
			t1, t2 := matrix.Tickers[i], matrix.Tickers[j]
			if drop[t1] || drop[t2] {
				continue
			}
			dropped, kept := t2, t1
			if scores[t1] < scores[t2] {
				dropped, kept = t1, t2
			}
			drop[dropped] = true
			d.logger.Info().
				Str("dropped", dropped).
				Str("kept", kept).
				Float64("correlation", matrix.Values[i][j]).
				Msg("ticker dropped for correlation")
		}
	}

	if len(drop) == 0 {
		d.logger.Info().Float64("threshold", d.maxCorrelation).Msg("no high correlation found")
		return rows
	}

	out := make([]models.OpportunityRow, 0, len(rows))
	for _, row := range rows {
		if !drop[row.Ticker] {
			out = append(out, row)
		}
	}

	d.logger.Info().
		Int("dropped_count", len(drop)).
		Int("remaining_count", len(out)).
		Msg("diversification complete")
	return out
}

// dailyReturns converts a close series into date-keyed percentage-change
// returns. The first observation has no return.
func dailyReturns(points []models.PricePoint) map[string]float64 {
	returns := make(map[string]float64)
	for i := 1; i < len(points); i++ {
		prev := points[i-1].Close
		if prev == 0 {
			continue
		}
		date := points[i].Date.Format("2006-01-02")
		returns[date] = (points[i].Close - prev) / prev
	}
	return returns
}
