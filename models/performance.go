package models

// Horizon identifies a return-measurement window.
type Horizon string

const (
	Horizon1W Horizon = "1W"
	Horizon1M Horizon = "1M"
	Horizon3M Horizon = "3M"
)

// RecommendationRecord captures a recommendation at time T and the
// realized prices/returns filled in later by the backfill.
type RecommendationRecord struct {
	Date            string  `json:"date"`
	Ticker          string  `json:"ticker"`
	ConvictionScore int     `json:"conviction_score"`
	CurrentPrice    float64 `json:"current_price"`
	BullCase        string  `json:"bull_case"`
	BearCase        string  `json:"bear_case"`

	Price1WLater *float64 `json:"price_1w_later,omitempty"`
	Price1MLater *float64 `json:"price_1m_later,omitempty"`
	Price3MLater *float64 `json:"price_3m_later,omitempty"`

	Return1W *float64 `json:"return_1w,omitempty"`
	Return1M *float64 `json:"return_1m,omitempty"`
	Return3M *float64 `json:"return_3m,omitempty"`

	BenchmarkReturn1W *float64 `json:"benchmark_return_1w,omitempty"`
	BenchmarkReturn1M *float64 `json:"benchmark_return_1m,omitempty"`
	BenchmarkReturn3M *float64 `json:"benchmark_return_3m,omitempty"`

	Alpha1W *float64 `json:"alpha_1w,omitempty"`
	Alpha1M *float64 `json:"alpha_1m,omitempty"`
	Alpha3M *float64 `json:"alpha_3m,omitempty"`
}

// ReturnFor returns the realized return for a horizon, nil if not yet
// backfilled.
func (r RecommendationRecord) ReturnFor(h Horizon) *float64 {
	switch h {
	case Horizon1W:
		return r.Return1W
	case Horizon3M:
		return r.Return3M
	default:
		return r.Return1M
	}
}

// BenchmarkFor returns the benchmark return for a horizon.
func (r RecommendationRecord) BenchmarkFor(h Horizon) *float64 {
	switch h {
	case Horizon1W:
		return r.BenchmarkReturn1W
	case Horizon3M:
		return r.BenchmarkReturn3M
	default:
		return r.BenchmarkReturn1M
	}
}

// AlphaFor returns the alpha for a horizon.
func (r RecommendationRecord) AlphaFor(h Horizon) *float64 {
	switch h {
	case Horizon1W:
		return r.Alpha1W
	case Horizon3M:
		return r.Alpha3M
	default:
		return r.Alpha1M
	}
}

// PerformanceSummary aggregates recommendation outcomes over a window.
type PerformanceSummary struct {
	Period    Horizon `json:"period"`
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`

	TotalRecommendations int `json:"total_recommendations"`

	AvgReturn          float64 `json:"avg_return"`
	MedianReturn       float64 `json:"median_return"`
	AvgBenchmarkReturn float64 `json:"avg_benchmark_return"`
	AvgAlpha           float64 `json:"avg_alpha"`

	PositiveReturnsCount int     `json:"positive_returns_count"`
	BeatBenchmarkCount   int     `json:"beat_benchmark_count"`
	HitRate              float64 `json:"hit_rate"`
	OutperformanceRate   float64 `json:"outperformance_rate"`

	ConvictionCorrelation   *float64 `json:"conviction_correlation"`
	HighConvictionAvgReturn *float64 `json:"high_conviction_avg_return"`
	LowConvictionAvgReturn  *float64 `json:"low_conviction_avg_return"`
}
