// Package sentiment fetches the CNN Fear & Greed index.
package sentiment

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tinyvc/tinyvc/models"
)

const graphDataURL = "https://production.dataviz.cnn.io/index/fearandgreed/graphdata"

type graphDataResponse struct {
	FearAndGreed struct {
		Score          float64 `json:"score"`
		Rating         string  `json:"rating"`
		PreviousClose  float64 `json:"previous_close"`
		Previous1Week  float64 `json:"previous_1_week"`
		Previous1Month float64 `json:"previous_1_month"`
		Previous1Year  float64 `json:"previous_1_year"`
	} `json:"fear_and_greed"`
}

// Client fetches market sentiment.
type Client struct {
	rest   *resty.Client
	logger zerolog.Logger
}

// NewClient creates a sentiment client.
func NewClient() *Client {
	rest := resty.New().
		SetTimeout(15 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(2 * time.Second).
		SetHeader("User-Agent", "Mozilla/5.0 (compatible; tinyvc/1.0)")
	return &Client{
		rest:   rest,
		logger: log.With().Str("component", "sentiment_client").Logger(),
	}
}

// FetchSentiment returns the current Fear & Greed reading. The label is
// recomputed from the score so downstream bucketing never depends on the
// provider's rating strings.
func (c *Client) FetchSentiment(ctx context.Context) (models.SentimentData, error) {
	c.logger.Info().Msg("sentiment fetch started")

	var out graphDataResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetResult(&out).
		Get(graphDataURL)
	if err != nil {
		return models.SentimentData{}, fmt.Errorf("fetching fear & greed index: %w", err)
	}
	if resp.IsError() {
		return models.SentimentData{}, fmt.Errorf("fear & greed index returned status %d", resp.StatusCode())
	}

	score := int(math.Round(out.FearAndGreed.Score))
	data := models.SentimentData{
		Score:         score,
		Label:         models.SentimentLabel(score),
		PreviousClose: int(math.Round(out.FearAndGreed.PreviousClose)),
		OneWeekAgo:    int(math.Round(out.FearAndGreed.Previous1Week)),
		OneMonthAgo:   int(math.Round(out.FearAndGreed.Previous1Month)),
		OneYearAgo:    int(math.Round(out.FearAndGreed.Previous1Year)),
		FetchedAt:     time.Now(),
	}

	c.logger.Info().
		Int("score", data.Score).
		Str("label", data.Label).
		Str("provider_rating", out.FearAndGreed.Rating).
		Msg("sentiment fetch complete")
	return data, nil
}
