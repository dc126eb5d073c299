// Package news pulls recent market narrative from the Tavily search API.
// News is best-effort context: any failure degrades to empty fields and
// never stops a pipeline run.
package news

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tinyvc/tinyvc/models"
)

const searchURL = "https://api.tavily.com/search"

const maxResultsPerQuery = 3

type searchRequest struct {
	APIKey        string `json:"api_key"`
	Query         string `json:"query"`
	SearchDepth   string `json:"search_depth"`
	Topic         string `json:"topic"`
	Days          int    `json:"days"`
	MaxResults    int    `json:"max_results"`
	IncludeAnswer bool   `json:"include_answer"`
}

type searchResponse struct {
	Answer  string `json:"answer"`
	Results []struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	} `json:"results"`
}

// Client fetches market news summaries.
type Client struct {
	rest   *resty.Client
	apiKey string
	logger zerolog.Logger
}

// NewClient creates a Tavily client. An empty API key disables fetching;
// FetchNews then returns empty news immediately.
func NewClient(apiKey string) *Client {
	rest := resty.New().
		SetTimeout(20 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(2 * time.Second)
	return &Client{
		rest:   rest,
		apiKey: apiKey,
		logger: log.With().Str("component", "news_client").Logger(),
	}
}

// FetchNews runs the three narrative queries. Each query failure leaves
// its field empty.
func (c *Client) FetchNews(ctx context.Context) models.MarketNews {
	if c.apiKey == "" {
		c.logger.Info().Msg("no news API key configured, skipping news fetch")
		return models.MarketNews{}
	}
	c.logger.Info().Msg("news fetch started")

	news := models.MarketNews{
		DailyDrivers:   c.search(ctx, "What is driving the US stock market this week? Key market-moving events"),
		SectorContext:  c.search(ctx, "Which stock market sectors are leading or lagging this week and why"),
		MacroSentiment: c.search(ctx, "Current macro-economic sentiment: Fed policy, inflation outlook, recession risk"),
	}

	c.logger.Info().
		Bool("has_daily_drivers", news.DailyDrivers != "").
		Bool("has_sector_context", news.SectorContext != "").
		Bool("has_macro_sentiment", news.MacroSentiment != "").
		Msg("news fetch complete")
	return news
}

// search returns the synthesized answer for one query, falling back to
// concatenated result snippets, then to "".
func (c *Client) search(ctx context.Context, query string) string {
	var out searchResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(searchRequest{
			APIKey:        c.apiKey,
			Query:         query,
			SearchDepth:   "basic",
			Topic:         "news",
			Days:          7,
			MaxResults:    maxResultsPerQuery,
			IncludeAnswer: true,
		}).
		SetResult(&out).
		Post(searchURL)
	if err != nil {
		c.logger.Warn().Str("query", query).Err(err).Msg("news query failed")
		return ""
	}
	if resp.IsError() {
		c.logger.Warn().Str("query", query).Int("status", resp.StatusCode()).Msg("news query rejected")
		return ""
	}

	if out.Answer != "" {
		return out.Answer
	}
	var snippets []string
	for _, r := range out.Results {
		if r.Content != "" {
			snippets = append(snippets, r.Content)
		}
	}
	return strings.Join(snippets, " ")
}
