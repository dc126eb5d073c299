// Package equities fetches equity snapshots and daily price history from
// the Yahoo Finance API.
package equities

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

const (
	quoteSummaryURL = "https://query1.finance.yahoo.com/v10/finance/quoteSummary/"
	chartURL        = "https://query1.finance.yahoo.com/v8/finance/chart/"
)

// yahooValue is Yahoo's raw/fmt number envelope. Raw stays nil when the
// field is absent.
type yahooValue struct {
	Raw *float64 `json:"raw"`
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			Price struct {
				RegularMarketPrice yahooValue `json:"regularMarketPrice"`
				MarketCap          yahooValue `json:"marketCap"`
			} `json:"price"`
			SummaryDetail struct {
				TrailingPE           yahooValue `json:"trailingPE"`
				ForwardPE            yahooValue `json:"forwardPE"`
				FiftyTwoWeekHigh     yahooValue `json:"fiftyTwoWeekHigh"`
				FiftyTwoWeekLow      yahooValue `json:"fiftyTwoWeekLow"`
				FiftyDayAverage      yahooValue `json:"fiftyDayAverage"`
				TwoHundredDayAverage yahooValue `json:"twoHundredDayAverage"`
			} `json:"summaryDetail"`
			DefaultKeyStatistics struct {
				PEGRatio           yahooValue `json:"pegRatio"`
				FiftyTwoWeekChange yahooValue `json:"52WeekChange"`
			} `json:"defaultKeyStatistics"`
			AssetProfile struct {
				Sector string `json:"sector"`
			} `json:"assetProfile"`
		} `json:"result"`
		Error *struct {
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Client fetches equity data from Yahoo Finance.
type Client struct {
	http   *platformhttp.Client
	logger zerolog.Logger
}

// NewClient creates a Yahoo Finance client.
func NewClient(httpClient *platformhttp.Client) *Client {
	return &Client{
		http:   httpClient,
		logger: log.With().Str("component", "yahoo_client").Logger(),
	}
}

// FetchSnapshot fetches the current snapshot for every ticker. Tickers
// that fail are skipped with a warning; the dataset contains whatever
// succeeded, in request order.
func (c *Client) FetchSnapshot(ctx context.Context, tickers []string) (models.EquityDataset, error) {
	c.logger.Info().Int("ticker_count", len(tickers)).Msg("equity snapshot fetch started")

	dataset := models.EquityDataset{FetchedAt: time.Now()}
	for _, raw := range tickers {
		ticker := models.NormalizeTicker(raw)
		record, err := c.fetchOne(ctx, ticker)
		if err != nil {
			c.logger.Warn().Str("ticker", ticker).Err(err).Msg("snapshot fetch failed")
			continue
		}
		dataset.Equities = append(dataset.Equities, record)
	}

	c.logger.Info().Int("fetched", len(dataset.Equities)).Msg("equity snapshot fetch complete")
	return dataset, nil
}

func (c *Client) fetchOne(ctx context.Context, ticker string) (models.EquityRecord, error) {
	params := url.Values{}
	params.Set("modules", "price,summaryDetail,defaultKeyStatistics,assetProfile")

	var out quoteSummaryResponse
	reqURL := quoteSummaryURL + url.PathEscape(ticker) + "?" + params.Encode()
	if err := c.http.GetJSON(ctx, reqURL, &out); err != nil {
		return models.EquityRecord{}, err
	}
	if out.QuoteSummary.Error != nil {
		return models.EquityRecord{}, fmt.Errorf("yahoo error: %s", out.QuoteSummary.Error.Description)
	}
	if len(out.QuoteSummary.Result) == 0 {
		return models.EquityRecord{}, fmt.Errorf("empty quoteSummary result")
	}

	result := out.QuoteSummary.Result[0]
	record := models.EquityRecord{
		Ticker: ticker,
		Sector: result.AssetProfile.Sector,
	}
	if result.Price.RegularMarketPrice.Raw != nil {
		record.CurrentPrice = *result.Price.RegularMarketPrice.Raw
	}
	if result.Price.MarketCap.Raw != nil {
		record.MarketCap = int64(*result.Price.MarketCap.Raw)
	}
	if result.SummaryDetail.FiftyTwoWeekHigh.Raw != nil {
		record.High52W = *result.SummaryDetail.FiftyTwoWeekHigh.Raw
	}
	if result.SummaryDetail.FiftyTwoWeekLow.Raw != nil {
		record.Low52W = *result.SummaryDetail.FiftyTwoWeekLow.Raw
	}
	record.PERatio = optional(result.SummaryDetail.TrailingPE)
	record.ForwardPE = optional(result.SummaryDetail.ForwardPE)
	record.PEGRatio = optional(result.DefaultKeyStatistics.PEGRatio)
	record.MA50D = optional(result.SummaryDetail.FiftyDayAverage)
	record.MA200D = optional(result.SummaryDetail.TwoHundredDayAverage)
	if change := optional(result.DefaultKeyStatistics.FiftyTwoWeekChange); change != nil {
		record.YearReturn = models.FloatPtr(*change * 100)
	}
	return record, nil
}

// FetchDailyCloses returns the daily close series for [start, end]. An
// empty series is a valid result, not an error.
func (c *Client) FetchDailyCloses(ctx context.Context, ticker string, start, end time.Time) ([]models.PricePoint, error) {
	params := url.Values{}
	params.Set("period1", strconv.FormatInt(start.Unix(), 10))
	params.Set("period2", strconv.FormatInt(end.Unix(), 10))
	params.Set("interval", "1d")

	var out chartResponse
	reqURL := chartURL + url.PathEscape(models.NormalizeTicker(ticker)) + "?" + params.Encode()
	if err := c.http.GetJSON(ctx, reqURL, &out); err != nil {
		return nil, fmt.Errorf("fetching chart for %s: %w", ticker, err)
	}
	if out.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo chart error for %s: %s", ticker, out.Chart.Error.Description)
	}
	if len(out.Chart.Result) == 0 || len(out.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, nil
	}

	result := out.Chart.Result[0]
	closes := result.Indicators.Quote[0].Close

	points := make([]models.PricePoint, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		points = append(points, models.PricePoint{
			Date:  time.Unix(ts, 0).UTC(),
			Close: *closes[i],
		})
	}
	return points, nil
}

// optional turns a Yahoo envelope into a pointer, dropping NaN.
func optional(v yahooValue) *float64 {
	if v.Raw == nil {
		return nil
	}
	return models.FloatPtr(*v.Raw)
}
