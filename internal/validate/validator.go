// Package validate cleans raw equity datasets before scoring.
package validate

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tinyvc/tinyvc/models"
)

// ErrNoValidEquities is returned when every record in a dataset fails
// validation; downstream stages cannot proceed with zero tickers.
var ErrNoValidEquities = errors.New("validate: no valid equities after validation")

// optionalFields are the fields counted by the completeness check.
var optionalFields = []string{"pe_ratio", "forward_pe", "peg_ratio", "ma_50d", "ma_200d", "year_return"}

// DefaultMaxMissingPct is the default completeness threshold: a record
// may be missing at most this fraction of its optional fields.
const DefaultMaxMissingPct = 0.20

// Validator drops records with missing, invalid or too-incomplete data.
type Validator struct {
	maxMissingPct float64
	logger        zerolog.Logger
}

// New creates a Validator. maxMissingPct <= 0 uses the default.
func New(maxMissingPct float64) *Validator {
	if maxMissingPct <= 0 {
		maxMissingPct = DefaultMaxMissingPct
	}
	return &Validator{
		maxMissingPct: maxMissingPct,
		logger:        log.With().Str("component", "validator").Logger(),
	}
}

// Validate returns the cleaned dataset and a human-readable reason per
// dropped ticker. It fails only when nothing survives.
func (v *Validator) Validate(dataset models.EquityDataset) (models.EquityDataset, []string, error) {
	v.logger.Info().Int("ticker_count", len(dataset.Equities)).Msg("validation started")

	var valid []models.EquityRecord
	var dropped []string

	for _, rec := range dataset.Equities {
		rec.Ticker = models.NormalizeTicker(rec.Ticker)

		if !hasCriticalFields(rec) {
			dropped = append(dropped, fmt.Sprintf("%s: missing critical fields", rec.Ticker))
			v.logger.Warn().Str("ticker", rec.Ticker).Str("reason", "missing_critical_fields").Msg("ticker dropped")
			continue
		}
		if !hasValidValues(rec) {
			dropped = append(dropped, fmt.Sprintf("%s: invalid values (negative price, bad 52w range or zero market cap)", rec.Ticker))
			v.logger.Warn().Str("ticker", rec.Ticker).Str("reason", "invalid_values").Msg("ticker dropped")
			continue
		}
		if !v.isCompleteEnough(rec) {
			dropped = append(dropped, fmt.Sprintf("%s: too much missing data (>%.0f%%)", rec.Ticker, v.maxMissingPct*100))
			v.logger.Warn().Str("ticker", rec.Ticker).Str("reason", "incomplete_data").Msg("ticker dropped")
			continue
		}
		valid = append(valid, rec)
	}

	if len(valid) == 0 {
		return models.EquityDataset{}, dropped, ErrNoValidEquities
	}

	v.logger.Info().
		Int("valid_count", len(valid)).
		Int("dropped_count", len(dropped)).
		Msg("validation complete")

	return models.EquityDataset{Equities: valid, FetchedAt: dataset.FetchedAt}, dropped, nil
}

func hasCriticalFields(rec models.EquityRecord) bool {
	if rec.Ticker == "" || len(rec.Ticker) > 10 {
		return false
	}
	return rec.CurrentPrice > 0 && rec.MarketCap > 0
}

func hasValidValues(rec models.EquityRecord) bool {
	if rec.CurrentPrice <= 0 || rec.MarketCap <= 0 {
		return false
	}
	// 52-week bounds must be sensible when both are present.
	if rec.High52W > 0 && rec.Low52W > 0 && rec.High52W <= rec.Low52W {
		return false
	}
	if rec.PERatio != nil && *rec.PERatio < 0 {
		return false
	}
	return true
}

func (v *Validator) isCompleteEnough(rec models.EquityRecord) bool {
	missing := 0
	if rec.PERatio == nil {
		missing++
	}
	if rec.ForwardPE == nil {
		missing++
	}
	if rec.PEGRatio == nil {
		missing++
	}
	if rec.MA50D == nil {
		missing++
	}
	if rec.MA200D == nil {
		missing++
	}
	if rec.YearReturn == nil {
		missing++
	}
	missingPct := float64(missing) / float64(len(optionalFields))
	return missingPct <= v.maxMissingPct
}
