package models

// MacroEnvironment is the macro context section of the LLM payload.
type MacroEnvironment struct {
	FedFundsRate       float64 `json:"fed_funds_rate"`
	Treasury10Y        float64 `json:"treasury_10y"`
	Unemployment       float64 `json:"unemployment"`
	CPIYoY             float64 `json:"cpi_yoy"`
	YieldCurveInverted bool    `json:"yield_curve_inverted"`
	FearGreedScore     int     `json:"fear_greed_score"`
	FearGreedLabel     string  `json:"fear_greed_label"`
	SentimentContext   string  `json:"sentiment_context"`
}

// OpportunityItem is one candidate equity as presented to the LLM.
type OpportunityItem struct {
	Ticker           string   `json:"ticker"`
	Sector           string   `json:"sector"`
	Theme            string   `json:"theme"`
	CurrentPrice     float64  `json:"current_price"`
	PERatio          *float64 `json:"pe_ratio"`
	PEGRatio         *float64 `json:"peg_ratio"`
	PctFrom52WHigh   float64  `json:"pct_from_52w_high"`
	Above200DMA      bool     `json:"above_200d_ma"`
	OpportunityScore float64  `json:"opportunity_score"`
}

// MarketNews is the synthesized news narrative from the news client.
// All fields may be empty when news fetching failed or was disabled.
type MarketNews struct {
	DailyDrivers   string `json:"daily_drivers,omitempty"`
	SectorContext  string `json:"sector_context,omitempty"`
	MacroSentiment string `json:"macro_sentiment,omitempty"`
}

// MarketContext carries market regime signals derived from index and
// sector ETF price series.
type MarketContext struct {
	TrendSignal   string             `json:"trend_signal"`
	RiskRegime    string             `json:"risk_regime"`
	SectorLeaders map[string]float64 `json:"sector_leaders"`
}

// LLMPayload is the exact structured request sent to the model.
// Immutable once built; the evaluator compares it against the response.
type LLMPayload struct {
	ReportDate             string              `json:"report_date"`
	WeeklyBudgetUSD        int                 `json:"weekly_budget_usd"`
	InvestmentHorizonYears int                 `json:"investment_horizon_years"`
	MarketNews             MarketNews          `json:"market_news"`
	MarketContext          MarketContext       `json:"market_context"`
	MacroEnvironment       MacroEnvironment    `json:"macro_environment"`
	Opportunities          []OpportunityItem   `json:"opportunities"`
	Themes                 map[string][]string `json:"themes"`
}

// TickerSet returns the set of tickers present in the payload.
func (p LLMPayload) TickerSet() map[string]bool {
	set := make(map[string]bool, len(p.Opportunities))
	for _, o := range p.Opportunities {
		set[o.Ticker] = true
	}
	return set
}

// OpportunityByTicker returns the payload opportunity for ticker, if any.
func (p LLMPayload) OpportunityByTicker(ticker string) (OpportunityItem, bool) {
	for _, o := range p.Opportunities {
		if o.Ticker == ticker {
			return o, true
		}
	}
	return OpportunityItem{}, false
}
