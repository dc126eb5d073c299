// Package pipeline orchestrates one weekly research run end to end:
// ingest, validate, score, diversify, analyze, evaluate, persist,
// deliver.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tinyvc/tinyvc/internal/config"
	"github.com/tinyvc/tinyvc/internal/delivery"
	"github.com/tinyvc/tinyvc/internal/diversify"
	"github.com/tinyvc/tinyvc/internal/evaluate"
	"github.com/tinyvc/tinyvc/internal/ingest/equities"
	"github.com/tinyvc/tinyvc/internal/ingest/fred"
	"github.com/tinyvc/tinyvc/internal/ingest/news"
	"github.com/tinyvc/tinyvc/internal/ingest/sentiment"
	"github.com/tinyvc/tinyvc/internal/llm"
	"github.com/tinyvc/tinyvc/internal/payload"
	"github.com/tinyvc/tinyvc/internal/performance"
	"github.com/tinyvc/tinyvc/internal/report"
	"github.com/tinyvc/tinyvc/internal/score"
	"github.com/tinyvc/tinyvc/internal/storage"
	"github.com/tinyvc/tinyvc/internal/validate"
	"github.com/tinyvc/tinyvc/models"
)

// Pipeline wires every component of the weekly run.
type Pipeline struct {
	cfg *config.Config

	macro     *fred.Client
	equities  *equities.Client
	sentiment *sentiment.Client
	news      *news.Client

	validator   *validate.Validator
	scorer      *score.Scorer
	diversifier *diversify.Diversifier
	builder     *payload.Builder
	analyst     *llm.Analyst
	evaluator   *evaluate.Evaluator
	tracker     *performance.Tracker

	store       *storage.DB
	mailer      *delivery.Mailer
	broadcaster *delivery.Broadcaster

	logger zerolog.Logger
}

// New wires a Pipeline from its components.
func New(
	cfg *config.Config,
	macro *fred.Client,
	equitiesClient *equities.Client,
	sentimentClient *sentiment.Client,
	newsClient *news.Client,
	analyst *llm.Analyst,
	store *storage.DB,
) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		macro:     macro,
		equities:  equitiesClient,
		sentiment: sentimentClient,
		news:      newsClient,

		validator: validate.New(cfg.Thresholds.MaxMissingPct),
		scorer:    score.New(cfg.Thresholds.Filters),
		diversifier: diversify.New(equitiesClient,
			cfg.Thresholds.Correlation.MaxAllowed, 0),
		builder:   payload.New(cfg.Watchlist.Themes, cfg.Thresholds.SentimentContext),
		analyst:   analyst,
		evaluator: evaluate.New(),
		tracker:   performance.New(store, equitiesClient, ""),

		store:       store,
		mailer:      delivery.NewMailer(cfg.SMTP),
		broadcaster: delivery.NewBroadcaster(cfg.Telegram),

		logger: log.With().Str("component", "pipeline").Logger(),
	}
}

// Run executes one full weekly research run and returns its execution
// record. The returned error is non-nil only when the run failed before
// producing an analysis; degraded-but-delivered runs report status
// partial instead.
func (p *Pipeline) Run(ctx context.Context) (models.RunMetadata, error) {
	date := time.Now().Format("2006-01-02")
	meta := models.RunMetadata{
		RunID:         uuid.NewString(),
		RunDate:       date,
		StartedAt:     time.Now(),
		PromptVersion: p.analyst.PromptVersion(),
		ModelName:     p.cfg.GeminiModel,
	}
	p.logger.Info().Str("run_id", meta.RunID).Str("date", date).Msg("pipeline run started")

	err := p.run(ctx, date, &meta)
	meta.CompletedAt = time.Now()
	switch {
	case err != nil:
		meta.Status = models.RunFailed
		meta.Errors = append(meta.Errors, err.Error())
	case len(meta.Errors) > 0:
		meta.Status = models.RunPartial
	default:
		meta.Status = models.RunSuccess
	}

	if saveErr := p.store.SaveRunMetadata(ctx, meta); saveErr != nil {
		p.logger.Error().Err(saveErr).Msg("saving run metadata failed")
	}

	p.logger.Info().
		Str("run_id", meta.RunID).
		Str("status", string(meta.Status)).
		Int("errors", len(meta.Errors)).
		Dur("elapsed", meta.CompletedAt.Sub(meta.StartedAt)).
		Msg("pipeline run finished")
	return meta, err
}

// run is the stage sequence. Hard failures return an error; soft
// failures append to meta.Errors and continue.
func (p *Pipeline) run(ctx context.Context, date string, meta *models.RunMetadata) error {
	// Stage 1: macro indicators.
	macro, err := p.macro.FetchMacro(ctx)
	if err != nil {
		return fmt.Errorf("macro fetch: %w", err)
	}
	if err := p.store.SaveMacro(ctx, date, macro); err != nil {
		meta.Errors = append(meta.Errors, err.Error())
	}

	// Stage 2: market sentiment.
	sent, err := p.sentiment.FetchSentiment(ctx)
	if err != nil {
		return fmt.Errorf("sentiment fetch: %w", err)
	}
	if err := p.store.SaveSentiment(ctx, date, sent); err != nil {
		meta.Errors = append(meta.Errors, err.Error())
	}

	// Stage 3: equity snapshots.
	dataset, err := p.equities.FetchSnapshot(ctx, p.cfg.Watchlist.CandidatePool)
	if err != nil {
		return fmt.Errorf("equity fetch: %w", err)
	}
	meta.TickersFetched = len(dataset.Equities)

	// Stage 4: validation.
	validated, dropped, err := p.validator.Validate(dataset)
	if err != nil {
		if errors.Is(err, validate.ErrNoValidEquities) {
			return fmt.Errorf("no usable equity data, aborting run: %w", err)
		}
		return fmt.Errorf("validation: %w", err)
	}
	if len(dropped) > 0 {
		p.logger.Warn().Strs("dropped", dropped).Msg("tickers dropped during validation")
	}
	if err := p.store.SaveEquities(ctx, date, validated); err != nil {
		meta.Errors = append(meta.Errors, err.Error())
	}

	// Stage 5: scoring and filtering.
	rows := p.scorer.Score(validated, sent.Score)
	passing := make([]models.OpportunityRow, 0, len(rows))
	for _, row := range rows {
		if row.PassesValueFilter || row.PassesMomentumFilter {
			passing = append(passing, row)
		}
	}
	meta.TickersPassedFilter = len(passing)
	if len(passing) == 0 {
		return errors.New("no candidates passed the filters, aborting run")
	}
	if len(passing) > p.cfg.Thresholds.TopCandidates {
		passing = passing[:p.cfg.Thresholds.TopCandidates]
	}
	if err := p.store.SaveOpportunities(ctx, date, rows); err != nil {
		meta.Errors = append(meta.Errors, err.Error())
	}

	// Stage 6: correlation-based diversification.
	tickers := make([]string, 0, len(passing))
	for _, row := range passing {
		tickers = append(tickers, row.Ticker)
	}
	matrix, err := p.diversifier.BuildMatrix(ctx, tickers)
	if err != nil {
		meta.Errors = append(meta.Errors, fmt.Sprintf("correlation matrix: %v", err))
	} else {
		passing = p.diversifier.Apply(passing, matrix)
	}
	meta.OpportunitiesSentToLLM = len(passing)

	// Stage 7: news narrative and market regime series. Both optional.
	marketNews := p.news.FetchNews(ctx)
	marketSeries := p.fetchMarketSeries(ctx)

	// Stage 8: payload assembly.
	pl := p.builder.Build(payload.Input{
		ReportDate:             date,
		Macro:                  macro,
		Sentiment:              sent,
		Rows:                   passing,
		News:                   marketNews,
		MarketSeries:           marketSeries,
		WeeklyBudgetUSD:        p.cfg.WeeklyBudgetUSD,
		InvestmentHorizonYears: p.cfg.InvestmentHorizonYears,
	})
	if err := p.store.SavePayload(ctx, date, pl); err != nil {
		meta.Errors = append(meta.Errors, err.Error())
	}

	// Stage 9: LLM analysis.
	analysis, raw, err := p.analyst.Analyze(ctx, pl)
	if err != nil {
		return fmt.Errorf("llm analysis: %w", err)
	}
	if err := p.store.SaveResponse(ctx, date, storage.StoredResponse{Raw: raw, Analysis: analysis}); err != nil {
		meta.Errors = append(meta.Errors, err.Error())
	}

	// Stage 10: groundedness evaluation.
	evalReport, evalMeta := p.evaluator.Evaluate(pl, analysis)
	if err := p.store.SaveEvaluation(ctx, date, storage.StoredEvaluation{Report: evalReport, Metadata: evalMeta}); err != nil {
		meta.Errors = append(meta.Errors, err.Error())
	}

	// Stage 11: record recommendations for later performance tracking.
	if err := p.tracker.Record(ctx, date, pl, analysis.Opportunities); err != nil {
		meta.Errors = append(meta.Errors, err.Error())
	}

	// Stage 12: render and deliver.
	md := report.BuildMarkdown(report.Input{
		Date:         date,
		Payload:      pl,
		Analysis:     analysis,
		Evaluation:   evalReport,
		Sentiment:    sent,
		Correlations: matrix,
	})
	meta.ReportGenerated = true

	html, err := report.ToHTML(md)
	if err != nil {
		meta.Errors = append(meta.Errors, err.Error())
		html = ""
	}

	if p.mailer.Configured() {
		subject := fmt.Sprintf("Weekly Investment Report - %s (%s)", date, evalReport.QualityGrade)
		if err := p.mailer.Send(subject, md, html); err != nil {
			meta.Errors = append(meta.Errors, fmt.Sprintf("email delivery: %v", err))
		} else {
			meta.EmailDelivered = true
		}
	}
	if err := p.broadcaster.Send(date, analysis); err != nil {
		meta.Errors = append(meta.Errors, fmt.Sprintf("telegram delivery: %v", err))
	}

	return nil
}

// fetchMarketSeries pulls a year of daily closes for the market universe.
// Failures degrade to missing series, never abort the run.
func (p *Pipeline) fetchMarketSeries(ctx context.Context) map[string][]models.PricePoint {
	end := time.Now()
	start := end.AddDate(-1, 0, 0)

	series := make(map[string][]models.PricePoint, len(p.cfg.Watchlist.MarketUniverse))
	for _, raw := range p.cfg.Watchlist.MarketUniverse {
		ticker := models.NormalizeTicker(raw)
		points, err := p.equities.FetchDailyCloses(ctx, ticker, start, end)
		if err != nil {
			p.logger.Warn().Str("ticker", ticker).Err(err).Msg("market series fetch failed")
			continue
		}
		if len(points) == 0 {
			continue
		}
		series[ticker] = points
	}
	return series
}
