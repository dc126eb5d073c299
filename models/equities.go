package models

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// EquityRecord is one ticker's fundamentals snapshot. Optional fields are
// nil when the upstream source had no value for them.
type EquityRecord struct {
	Ticker       string   `json:"ticker"`
	CurrentPrice float64  `json:"current_price"`
	High52W      float64  `json:"high_52w"`
	Low52W       float64  `json:"low_52w"`
	PERatio      *float64 `json:"pe_ratio,omitempty"`
	ForwardPE    *float64 `json:"forward_pe,omitempty"`
	PEGRatio     *float64 `json:"peg_ratio,omitempty"`
	MarketCap    int64    `json:"market_cap"`
	Sector       string   `json:"sector"`
	MA50D        *float64 `json:"ma_50d,omitempty"`
	MA200D       *float64 `json:"ma_200d,omitempty"`
	YearReturn   *float64 `json:"year_return,omitempty"`
}

// NormalizeTicker uppercases and trims a ticker symbol.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// PctFrom52WHigh is the fractional distance from the 52-week high
// (negative means below the high).
func (e EquityRecord) PctFrom52WHigh() float64 {
	return (e.CurrentPrice - e.High52W) / e.High52W
}

// PctFrom52WLow is the fractional distance from the 52-week low
// (positive means above the low).
func (e EquityRecord) PctFrom52WLow() float64 {
	return (e.CurrentPrice - e.Low52W) / e.Low52W
}

// Above200DMA reports whether price is above the 200-day moving average.
// Missing MA data is treated as healthy.
func (e EquityRecord) Above200DMA() bool {
	if e.MA200D == nil {
		return true
	}
	return e.CurrentPrice > *e.MA200D
}

// Above50DMA reports whether price is above the 50-day moving average.
// Missing MA data is treated as healthy.
func (e EquityRecord) Above50DMA() bool {
	if e.MA50D == nil {
		return true
	}
	return e.CurrentPrice > *e.MA50D
}

// EquityDataset is an ordered collection of records from one fetch.
type EquityDataset struct {
	Equities  []EquityRecord `json:"equities"`
	FetchedAt time.Time      `json:"fetched_at"`
}

// Tickers lists the tickers in dataset order.
func (d EquityDataset) Tickers() []string {
	out := make([]string, len(d.Equities))
	for i, e := range d.Equities {
		out[i] = e.Ticker
	}
	return out
}

// ByTicker returns the record for ticker, or false when absent.
func (d EquityDataset) ByTicker(ticker string) (EquityRecord, bool) {
	ticker = NormalizeTicker(ticker)
	for _, e := range d.Equities {
		if e.Ticker == ticker {
			return e, true
		}
	}
	return EquityRecord{}, false
}

// OpportunityRow is an equity record with its filter results and score.
type OpportunityRow struct {
	EquityRecord
	PassesValueFilter    bool    `json:"passes_value_filter"`
	PassesMomentumFilter bool    `json:"passes_momentum_filter"`
	OpportunityScore     float64 `json:"opportunity_score"`
}

// PricePoint is a single daily close.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// CorrelationMatrix is a symmetric matrix of pairwise return correlations.
// Tickers fixes the row/column order; Values[i][j] is the correlation of
// Tickers[i] against Tickers[j], with 1.0 on the diagonal.
type CorrelationMatrix struct {
	Tickers []string    `json:"tickers"`
	Values  [][]float64 `json:"values"`
}

// Empty reports whether the matrix covers fewer than two tickers.
func (m CorrelationMatrix) Empty() bool {
	return len(m.Tickers) < 2
}

// At returns the correlation between two tickers.
func (m CorrelationMatrix) At(a, b string) (float64, error) {
	ia, ib := -1, -1
	for i, t := range m.Tickers {
		if t == a {
			ia = i
		}
		if t == b {
			ib = i
		}
	}
	if ia < 0 || ib < 0 {
		return 0, fmt.Errorf("correlation matrix: ticker pair (%s, %s) not present", a, b)
	}
	return m.Values[ia][ib], nil
}

// FloatPtr boxes v, mapping NaN to nil so that "not a number" and
// "missing" behave identically downstream.
func FloatPtr(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

// FloatOr unboxes p with a fallback for missing values.
func FloatOr(p *float64, fallback float64) float64 {
	if p == nil || math.IsNaN(*p) {
		return fallback
	}
	return *p
}
