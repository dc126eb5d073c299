package models

import "time"

// MacroData holds the latest macroeconomic indicators from FRED.
// All rates are percentages (4.33 means 4.33%).
type MacroData struct {
	FedFundsRate     float64   `json:"fed_funds_rate"`
	Treasury10Y      float64   `json:"treasury_10y"`
	Treasury2Y       float64   `json:"treasury_2y"`
	CPIYoY           float64   `json:"cpi_yoy"`
	Unemployment     float64   `json:"unemployment"`
	YieldCurveSpread float64   `json:"yield_curve_spread"`
	FetchedAt        time.Time `json:"fetched_at"`
}

// YieldCurveInverted is true when the 10Y-2Y spread is negative,
// a classic recession signal.
func (m MacroData) YieldCurveInverted() bool {
	return m.YieldCurveSpread < 0
}
