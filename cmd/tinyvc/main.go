package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tinyvc/tinyvc/internal/config"
	"github.com/tinyvc/tinyvc/internal/ingest/equities"
	"github.com/tinyvc/tinyvc/internal/ingest/fred"
	"github.com/tinyvc/tinyvc/internal/ingest/news"
	"github.com/tinyvc/tinyvc/internal/ingest/sentiment"
	"github.com/tinyvc/tinyvc/internal/llm"
	"github.com/tinyvc/tinyvc/internal/pipeline"
	platformhttp "github.com/tinyvc/tinyvc/internal/platform/http"
	"github.com/tinyvc/tinyvc/internal/storage"
)

func main() {
	configDir := flag.String("config", "config", "directory with thresholds.toml and watchlist.toml")
	once := flag.Bool("once", false, "run a single pipeline pass and exit, ignoring RUN_SCHEDULE")
	flag.Parse()

	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found, using system environment variables")
	}

	cfg, err := config.Load(*configDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogging(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := storage.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer store.Close()

	analyst, err := llm.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.PromptVersion)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create LLM client")
	}

	httpClient := platformhttp.NewClient(platformhttp.ClientOptions{
		Timeout:        30 * time.Second,
		RequestsPerSec: 5,
		UserAgent:      "Mozilla/5.0 (compatible; tinyvc/1.0)",
	})

	p := pipeline.New(
		cfg,
		fred.NewClient(httpClient, cfg.FREDAPIKey),
		equities.NewClient(httpClient),
		sentiment.NewClient(),
		news.NewClient(cfg.TavilyAPIKey),
		analyst,
		store,
	)

	if *once || cfg.RunSchedule == "" {
		runOnce(ctx, p)
		return
	}

	runScheduled(ctx, p, cfg.RunSchedule)
}

func runOnce(ctx context.Context, p *pipeline.Pipeline) {
	meta, err := p.Run(ctx)
	if err != nil {
		log.Error().Err(err).Str("run_id", meta.RunID).Msg("Pipeline run failed")
		os.Exit(1)
	}
}

func runScheduled(ctx context.Context, p *pipeline.Pipeline, schedule string) {
	scheduler := cron.New()
	_, err := scheduler.AddFunc(schedule, func() {
		if _, err := p.Run(ctx); err != nil {
			log.Error().Err(err).Msg("Scheduled pipeline run failed")
		}
	})
	if err != nil {
		log.Fatal().Err(err).Str("schedule", schedule).Msg("Invalid run schedule")
	}

	log.Info().Str("schedule", schedule).Msg("Scheduler started")
	scheduler.Start()

	<-ctx.Done()
	log.Info().Msg("Shutting down scheduler")
	<-scheduler.Stop().Done()
}

func setupLogging(level string) {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
}
