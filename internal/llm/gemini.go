// Package llm sends the payload to Gemini and parses the structured
// analysis out of its response.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/tinyvc/tinyvc/models"
)

const temperature = float32(0.4)

// Analyst generates investment analysis from an LLM payload.
type Analyst struct {
	client   *genai.Client
	model    string
	version  string
	validate *validator.Validate
	logger   zerolog.Logger
}

// New creates an Analyst bound to one Gemini model.
func New(ctx context.Context, apiKey, model, promptVersion string) (*Analyst, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &Analyst{
		client:   client,
		model:    model,
		version:  promptVersion,
		validate: validator.New(),
		logger:   log.With().Str("component", "llm_analyst").Str("model", model).Logger(),
	}, nil
}

// PromptVersion identifies the prompt template used, for stored runs.
func (a *Analyst) PromptVersion() string { return a.version }

// Analyze sends the payload and returns the parsed, validated analysis
// plus the raw response text for persistence.
func (a *Analyst) Analyze(ctx context.Context, payload models.LLMPayload) (models.AnalysisOutput, string, error) {
	started := time.Now()
	a.logger.Info().Str("report_date", payload.ReportDate).Msg("analysis started")

	prompt, err := a.buildPrompt(payload)
	if err != nil {
		return models.AnalysisOutput{}, "", err
	}

	var raw string
	operation := func() error {
		resp, err := a.client.Models.GenerateContent(ctx, a.model,
			genai.Text(prompt),
			&genai.GenerateContentConfig{Temperature: genai.Ptr(temperature)})
		if err != nil {
			return fmt.Errorf("generating content: %w", err)
		}
		raw = extractText(resp)
		if raw == "" {
			return fmt.Errorf("empty model response")
		}
		return nil
	}

	strategy := backoff.NewExponentialBackOff()
	strategy.MaxElapsedTime = 2 * time.Minute
	if err := backoff.Retry(operation, backoff.WithContext(strategy, ctx)); err != nil {
		return models.AnalysisOutput{}, "", err
	}

	output, err := ParseAnalysis(raw)
	if err != nil {
		return models.AnalysisOutput{}, raw, err
	}
	if err := a.validate.Struct(&output); err != nil {
		return models.AnalysisOutput{}, raw, fmt.Errorf("response failed validation: %w", err)
	}

	for i := range output.Opportunities {
		output.Opportunities[i].Ticker = models.NormalizeTicker(output.Opportunities[i].Ticker)
	}
	output.SortByConviction()

	a.logger.Info().
		Int("opportunities", len(output.Opportunities)).
		Int("scenarios", len(output.Scenarios)).
		Dur("elapsed", time.Since(started)).
		Msg("analysis complete")
	return output, raw, nil
}

func (a *Analyst) buildPrompt(payload models.LLMPayload) (string, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling payload: %w", err)
	}

	var b strings.Builder
	b.WriteString("You are a disciplined long-term investment analyst. Using ONLY the data below, ")
	b.WriteString("produce a weekly investment analysis. Do not invent numbers: every figure you cite ")
	b.WriteString("must come from the data. Only recommend tickers present in the opportunities list.\n\n")
	b.WriteString("DATA:\n")
	b.Write(data)
	b.WriteString("\n\nRespond with a single JSON object and nothing else, using this schema:\n")
	b.WriteString(`{
  "executive_summary": "2-3 sentence overview of this week's stance",
  "macro_interpretation": "what the macro environment means for a long-term investor",
  "opportunities": [
    {
      "ticker": "...",
      "conviction_score": 0-100,
      "bull_case": "...",
      "bear_case": "...",
      "key_metrics": "the metrics from the data that support this pick"
    }
  ],
  "scenarios": [
    {
      "name": "...",
      "description": "how to deploy the weekly budget under this approach",
      "suggested_tickers": ["..."]
    }
  ],
  "themes_in_focus": "...",
  "risks_to_watch": "..."
}`)
	b.WriteString("\n\nProvide 3-7 opportunities and 2-3 scenarios. The weekly budget is $")
	fmt.Fprintf(&b, "%d over a %d-year horizon.", payload.WeeklyBudgetUSD, payload.InvestmentHorizonYears)
	return b.String(), nil
}

// ParseAnalysis extracts the JSON object from the model text, handling
// fenced code blocks and leading prose.
func ParseAnalysis(raw string) (models.AnalysisOutput, error) {
	text := strings.TrimSpace(raw)

	if idx := strings.Index(text, "```json"); idx >= 0 {
		text = text[idx+len("```json"):]
		if end := strings.Index(text, "```"); end >= 0 {
			text = text[:end]
		}
	} else if idx := strings.Index(text, "```"); idx >= 0 {
		text = text[idx+len("```"):]
		if end := strings.Index(text, "```"); end >= 0 {
			text = text[:end]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return models.AnalysisOutput{}, fmt.Errorf("no JSON object in model response")
	}

	var output models.AnalysisOutput
	if err := json.Unmarshal([]byte(text[start:end+1]), &output); err != nil {
		return models.AnalysisOutput{}, fmt.Errorf("parsing model response: %w", err)
	}
	return output, nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.Text != "" {
				b.WriteString(part.Text)
			}
		}
	}
	return strings.TrimSpace(b.String())
}
