// Package score applies value/momentum filters and computes the 0-100
// opportunity score for each validated equity.
package score

import (
	"sort"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tinyvc/tinyvc/internal/stats"
	"github.com/tinyvc/tinyvc/models"
)

// ValueFilters are the valuation screens. Zero values disable the
// corresponding constraint.
type ValueFilters struct {
	MinMarketCap int64   `toml:"min_market_cap"`
	MaxPERatio   float64 `toml:"max_pe_ratio"`
	MaxPEGRatio  float64 `toml:"max_peg_ratio"`
}

// MomentumFilters are the momentum screens.
type MomentumFilters struct {
	MaxPctFrom52WHigh  float64 `toml:"max_pct_from_52w_high"`
	RequireAbove200DMA bool    `toml:"require_above_200d_ma"`
}

// Thresholds is the complete filter configuration, loaded once per run.
type Thresholds struct {
	Value    ValueFilters    `toml:"value_filters"`
	Momentum MomentumFilters `toml:"momentum_filters"`
}

// Scorer is a pure computation over an in-memory dataset; it performs no
// I/O and keeps no state between calls.
type Scorer struct {
	thresholds Thresholds
	logger     zerolog.Logger
}

// New creates a Scorer with the given thresholds.
func New(thresholds Thresholds) *Scorer {
	return &Scorer{
		thresholds: thresholds,
		logger:     log.With().Str("component", "scorer").Logger(),
	}
}

// Score computes filter booleans and opportunity scores for every record
// and returns rows sorted by score descending. The sort is stable, so
// re-running over an unchanged dataset is bit-identical.
func (s *Scorer) Score(dataset models.EquityDataset, fearGreedScore int) []models.OpportunityRow {
	s.logger.Info().Int("ticker_count", len(dataset.Equities)).Msg("filtering started")

	rows := make([]models.OpportunityRow, 0, len(dataset.Equities))
	passedValue, passedMomentum, passedBoth := 0, 0, 0

	for _, rec := range dataset.Equities {
		row := models.OpportunityRow{
			EquityRecord:         rec,
			PassesValueFilter:    s.passesValueFilter(rec),
			PassesMomentumFilter: s.passesMomentumFilter(rec),
		}
		row.OpportunityScore = s.opportunityScore(rec, fearGreedScore)
		rows = append(rows, row)

		if row.PassesValueFilter {
			passedValue++
		}
		if row.PassesMomentumFilter {
			passedMomentum++
		}
		if row.PassesValueFilter && row.PassesMomentumFilter {
			passedBoth++
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].OpportunityScore > rows[j].OpportunityScore
	})

	s.logger.Info().
		Int("passed_value", passedValue).
		Int("passed_momentum", passedMomentum).
		Int("passed_both", passedBoth).
		Msg("filtering complete")

	return rows
}

func (s *Scorer) passesValueFilter(rec models.EquityRecord) bool {
	vf := s.thresholds.Value
	if rec.MarketCap < vf.MinMarketCap {
		return false
	}
	if vf.MaxPERatio > 0 && rec.PERatio != nil && *rec.PERatio > vf.MaxPERatio {
		return false
	}
	if vf.MaxPEGRatio > 0 && rec.PEGRatio != nil && *rec.PEGRatio > vf.MaxPEGRatio {
		return false
	}
	return true
}

func (s *Scorer) passesMomentumFilter(rec models.EquityRecord) bool {
	mf := s.thresholds.Momentum
	if mf.MaxPctFrom52WHigh > 0 && rec.PctFrom52WHigh() < -mf.MaxPctFrom52WHigh {
		return false
	}
	if mf.RequireAbove200DMA && !rec.Above200DMA() {
		return false
	}
	return true
}

// opportunityScore starts at a neutral 50 and adds fixed increments per
// factor. The increments are contractual: evaluation fixtures and stored
// history depend on these exact numbers.
func (s *Scorer) opportunityScore(rec models.EquityRecord, fearGreedScore int) float64 {
	score := 50.0

	if rec.PERatio != nil {
		switch pe := *rec.PERatio; {
		case pe < 20:
			score += 15
		case pe < 30:
			score += 5
		case pe > 40:
			score -= 10
		}
	}

	if rec.PEGRatio != nil {
		switch peg := *rec.PEGRatio; {
		case peg < 1.0:
			score += 10
		case peg < 1.5:
			score += 5
		case peg > 2.5:
			score -= 10
		}
	}

	pctFromHigh := rec.PctFrom52WHigh()
	switch {
	case pctFromHigh > -0.05:
		score += 15
	case pctFromHigh > -0.15:
		score += 5
	case pctFromHigh < -0.30:
		// Deep drawdown: could be a value opportunity or real trouble.
		score -= 5
	}

	if rec.Above200DMA() {
		score += 10
	}
	if rec.Above50DMA() {
		score += 5
	}

	if rec.YearReturn != nil {
		switch yr := *rec.YearReturn; {
		case yr > 30:
			score += 10
		case yr > 10:
			score += 5
		case yr < -10:
			score -= 5
		}
	}

	// A fundamentally sound stock beaten down during panic is a buy signal.
	if fearGreedScore < 25 && pctFromHigh < -0.20 && s.passesValueFilter(rec) {
		score += 10
	}
	// Extreme greed: dampen everything.
	if fearGreedScore > 75 {
		score -= 10
	}

	return stats.Clamp(score, 0, 100)
}
