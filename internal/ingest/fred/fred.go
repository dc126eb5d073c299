// Package fred fetches macro-economic indicators from the FRED API.
package fred

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	platformhttp "github.com/tinyvc/tinyvc/internal/platform/http"
	"github.com/tinyvc/tinyvc/models"
)

const baseURL = "https://api.stlouisfed.org/fred/series/observations"

// FRED series identifiers for each indicator.
const (
	seriesFedFunds     = "DFF"
	seriesTreasury10Y  = "DGS10"
	seriesTreasury2Y   = "DGS2"
	seriesCPI          = "CPIAUCSL"
	seriesUnemployment = "UNRATE"
)

type observation struct {
	Date  string `json:"date"`
	Value string `json:"value"`
}

type observationsResponse struct {
	Observations []observation `json:"observations"`
}

// Client fetches macro series from FRED.
type Client struct {
	http   *platformhttp.Client
	apiKey string
	logger zerolog.Logger
}

// NewClient creates a FRED client.
func NewClient(httpClient *platformhttp.Client, apiKey string) *Client {
	return &Client{
		http:   httpClient,
		apiKey: apiKey,
		logger: log.With().Str("component", "fred_client").Logger(),
	}
}

// FetchMacro returns the current macro snapshot. Every series is
// required; a missing one fails the fetch.
func (c *Client) FetchMacro(ctx context.Context) (models.MacroData, error) {
	c.logger.Info().Msg("macro fetch started")

	fedFunds, err := c.latestValue(ctx, seriesFedFunds)
	if err != nil {
		return models.MacroData{}, fmt.Errorf("fetching fed funds rate: %w", err)
	}
	treasury10Y, err := c.latestValue(ctx, seriesTreasury10Y)
	if err != nil {
		return models.MacroData{}, fmt.Errorf("fetching 10Y treasury: %w", err)
	}
	treasury2Y, err := c.latestValue(ctx, seriesTreasury2Y)
	if err != nil {
		return models.MacroData{}, fmt.Errorf("fetching 2Y treasury: %w", err)
	}
	unemployment, err := c.latestValue(ctx, seriesUnemployment)
	if err != nil {
		return models.MacroData{}, fmt.Errorf("fetching unemployment: %w", err)
	}
	cpiYoY, err := c.cpiYoY(ctx)
	if err != nil {
		return models.MacroData{}, fmt.Errorf("fetching CPI: %w", err)
	}

	macro := models.MacroData{
		FedFundsRate:     fedFunds,
		Treasury10Y:      treasury10Y,
		Treasury2Y:       treasury2Y,
		CPIYoY:           cpiYoY,
		Unemployment:     unemployment,
		YieldCurveSpread: treasury10Y - treasury2Y,
		FetchedAt:        time.Now(),
	}

	c.logger.Info().
		Float64("fed_funds", fedFunds).
		Float64("treasury_10y", treasury10Y).
		Bool("yield_curve_inverted", macro.YieldCurveInverted()).
		Msg("macro fetch complete")
	return macro, nil
}

// latestValue returns the most recent valid observation of a series.
func (c *Client) latestValue(ctx context.Context, series string) (float64, error) {
	observations, err := c.fetchObservations(ctx, series, 10)
	if err != nil {
		return 0, err
	}
	for _, obs := range observations {
		if v, ok := parseObservation(obs.Value); ok {
			return v, nil
		}
	}
	return 0, fmt.Errorf("series %s: no valid observations", series)
}

// cpiYoY derives year-over-year CPI inflation from the index level today
// versus roughly one year ago.
func (c *Client) cpiYoY(ctx context.Context) (float64, error) {
	observations, err := c.fetchObservations(ctx, seriesCPI, 14)
	if err != nil {
		return 0, err
	}

	var current, yearAgo *float64
	var currentDate time.Time
	for _, obs := range observations {
		v, ok := parseObservation(obs.Value)
		if !ok {
			continue
		}
		date, err := time.Parse("2006-01-02", obs.Date)
		if err != nil {
			continue
		}
		if current == nil {
			current = &v
			currentDate = date
			continue
		}
		// CPI is monthly; the 12th month back is close enough to a year.
		if currentDate.Sub(date) >= 360*24*time.Hour {
			yearAgo = &v
			break
		}
	}

	if current == nil || yearAgo == nil || *yearAgo == 0 {
		return 0, fmt.Errorf("series %s: insufficient history for YoY change", seriesCPI)
	}
	return ((*current - *yearAgo) / *yearAgo) * 100, nil
}

// fetchObservations returns the latest limit observations, newest first.
func (c *Client) fetchObservations(ctx context.Context, series string, limit int) ([]observation, error) {
	params := url.Values{}
	params.Set("series_id", series)
	params.Set("api_key", c.apiKey)
	params.Set("file_type", "json")
	params.Set("sort_order", "desc")
	params.Set("limit", strconv.Itoa(limit))

	var out observationsResponse
	if err := c.http.GetJSON(ctx, baseURL+"?"+params.Encode(), &out); err != nil {
		return nil, fmt.Errorf("series %s: %w", series, err)
	}
	if len(out.Observations) == 0 {
		return nil, fmt.Errorf("series %s: empty response", series)
	}
	return out.Observations, nil
}

// parseObservation handles FRED's "." placeholder for missing values.
func parseObservation(raw string) (float64, bool) {
	if raw == "" || raw == "." {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
