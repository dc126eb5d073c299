// Package payload assembles the structured request sent to the LLM from
// the quantitative analysis results.
package payload

import (
	"math"
	"sort"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tinyvc/tinyvc/internal/config"
	"github.com/tinyvc/tinyvc/models"
)

// Proxies used for the market regime signals.
var (
	trendTicker      = "SPY"
	growthTickers    = []string{"QQQ", "XLK"}
	defensiveTickers = []string{"XLU", "XLP"}
	sectorETFs       = []string{"XLK", "XLF", "XLV", "XLE", "XLY", "XLP", "XLI", "XLU", "XLB", "XLRE", "XLC"}
)

// Builder constructs LLM payloads. Pure computation over data the caller
// already fetched.
type Builder struct {
	themes    map[string][]string
	sentiment config.SentimentContext
	logger    zerolog.Logger
}

// New creates a Builder from the watchlist themes and the sentiment
// narrative configuration.
func New(themes map[string][]string, sentiment config.SentimentContext) *Builder {
	return &Builder{
		themes:    themes,
		sentiment: sentiment,
		logger:    log.With().Str("component", "payload_builder").Logger(),
	}
}

// Input bundles everything the payload is assembled from.
type Input struct {
	ReportDate             string
	Macro                  models.MacroData
	Sentiment              models.SentimentData
	Rows                   []models.OpportunityRow
	News                   models.MarketNews
	MarketSeries           map[string][]models.PricePoint
	WeeklyBudgetUSD        int
	InvestmentHorizonYears int
}

// Build assembles the payload. Row order is preserved, so the payload
// opportunities stay ranked by score.
func (b *Builder) Build(in Input) models.LLMPayload {
	b.logger.Info().Msg("payload build started")

	opportunities := make([]models.OpportunityItem, 0, len(in.Rows))
	for _, row := range in.Rows {
		item := models.OpportunityItem{
			Ticker:           row.Ticker,
			Sector:           row.Sector,
			Theme:            b.tickerTheme(row.Ticker),
			CurrentPrice:     round(row.CurrentPrice, 2),
			PctFrom52WHigh:   round(row.PctFrom52WHigh(), 3),
			Above200DMA:      row.Above200DMA(),
			OpportunityScore: round(row.OpportunityScore, 1),
		}
		if row.PERatio != nil {
			item.PERatio = models.FloatPtr(round(*row.PERatio, 1))
		}
		if row.PEGRatio != nil {
			item.PEGRatio = models.FloatPtr(round(*row.PEGRatio, 2))
		}
		opportunities = append(opportunities, item)
	}

	payload := models.LLMPayload{
		ReportDate:             in.ReportDate,
		WeeklyBudgetUSD:        in.WeeklyBudgetUSD,
		InvestmentHorizonYears: in.InvestmentHorizonYears,
		MarketNews:             in.News,
		MarketContext:          b.marketContext(in.MarketSeries),
		MacroEnvironment: models.MacroEnvironment{
			FedFundsRate:       in.Macro.FedFundsRate,
			Treasury10Y:        in.Macro.Treasury10Y,
			Unemployment:       in.Macro.Unemployment,
			CPIYoY:             in.Macro.CPIYoY,
			YieldCurveInverted: in.Macro.YieldCurveInverted(),
			FearGreedScore:     in.Sentiment.Score,
			FearGreedLabel:     in.Sentiment.Label,
			SentimentContext:   b.sentimentContext(in.Sentiment.Score),
		},
		Opportunities: opportunities,
		Themes:        b.themeGrouping(in.Rows),
	}

	b.logger.Info().
		Int("opportunity_count", len(opportunities)).
		Int("theme_count", len(payload.Themes)).
		Msg("payload build complete")
	return payload
}

func (b *Builder) sentimentContext(score int) string {
	switch {
	case score < 25:
		return fallback(b.sentiment.ExtremeFear, "Extreme fear in markets")
	case score < 45:
		return fallback(b.sentiment.Fear, "Fearful sentiment")
	case score < 55:
		return fallback(b.sentiment.Neutral, "Neutral sentiment")
	case score < 75:
		return fallback(b.sentiment.Greed, "Greedy sentiment")
	default:
		return fallback(b.sentiment.ExtremeGreed, "Extreme greed in markets")
	}
}

func (b *Builder) tickerTheme(ticker string) string {
	for theme, tickers := range b.themes {
		for _, t := range tickers {
			if models.NormalizeTicker(t) == ticker {
				return theme
			}
		}
	}
	return "other"
}

func (b *Builder) themeGrouping(rows []models.OpportunityRow) map[string][]string {
	grouped := make(map[string][]string)
	for _, row := range rows {
		theme := b.tickerTheme(row.Ticker)
		grouped[theme] = append(grouped[theme], row.Ticker)
	}
	return grouped
}

// marketContext derives trend, risk and sector leadership signals from the
// market-universe price series. Missing series degrade to neutral values.
func (b *Builder) marketContext(series map[string][]models.PricePoint) models.MarketContext {
	if len(series) == 0 {
		return models.MarketContext{TrendSignal: "Neutral", RiskRegime: "Mixed", SectorLeaders: map[string]float64{}}
	}
	return models.MarketContext{
		TrendSignal:   trendSignal(series[trendTicker]),
		RiskRegime:    riskRegime(series),
		SectorLeaders: sectorLeaders(series),
	}
}

// trendSignal compares the trend ticker's price against its 200-day MA.
func trendSignal(prices []models.PricePoint) string {
	if len(prices) < 200 {
		return "Neutral"
	}
	current := prices[len(prices)-1].Close
	var sum float64
	for _, p := range prices[len(prices)-200:] {
		sum += p.Close
	}
	ma200 := sum / 200
	if ma200 == 0 {
		return "Neutral"
	}
	distancePct := ((current - ma200) / ma200) * 100
	switch {
	case distancePct > 2:
		return "Bullish"
	case distancePct < -2:
		return "Bearish"
	default:
		return "Neutral"
	}
}

// riskRegime compares 1-month growth-proxy returns against defensive
// proxies.
func riskRegime(series map[string][]models.PricePoint) string {
	var growth, defensive []float64
	for _, t := range growthTickers {
		if ret := trailingReturn(series[t], 30); ret != nil {
			growth = append(growth, *ret)
		}
	}
	for _, t := range defensiveTickers {
		if ret := trailingReturn(series[t], 30); ret != nil {
			defensive = append(defensive, *ret)
		}
	}
	if len(growth) == 0 || len(defensive) == 0 {
		return "Mixed"
	}
	avgGrowth := mean(growth)
	avgDefensive := mean(defensive)
	switch {
	case avgGrowth-avgDefensive > 2:
		return "Risk-On"
	case avgDefensive-avgGrowth > 2:
		return "Risk-Off"
	default:
		return "Mixed"
	}
}

// sectorLeaders ranks the sector ETFs by 1-month return.
func sectorLeaders(series map[string][]models.PricePoint) map[string]float64 {
	leaders := make(map[string]float64)
	for _, t := range sectorETFs {
		if ret := trailingReturn(series[t], 30); ret != nil {
			leaders[t] = round(*ret, 2)
		}
	}
	return leaders
}

// SectorRanking returns the sector leaders sorted by return descending,
// for report rendering.
func SectorRanking(leaders map[string]float64) []string {
	tickers := make([]string, 0, len(leaders))
	for t := range leaders {
		tickers = append(tickers, t)
	}
	sort.Slice(tickers, func(i, j int) bool {
		if leaders[tickers[i]] == leaders[tickers[j]] {
			return tickers[i] < tickers[j]
		}
		return leaders[tickers[i]] > leaders[tickers[j]]
	})
	return tickers
}

// trailingReturn is the percentage change over the last n observations.
func trailingReturn(prices []models.PricePoint, n int) *float64 {
	if len(prices) < n {
		return nil
	}
	start := prices[len(prices)-n].Close
	end := prices[len(prices)-1].Close
	if start == 0 {
		return nil
	}
	ret := ((end - start) / start) * 100
	return &ret
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func fallback(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func round(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}
