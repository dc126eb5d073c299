// Backfill computes realized returns for past recommendations.
package main

import (
	"context"
	"flag"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/tinyvc/tinyvc/internal/config"
	"github.com/tinyvc/tinyvc/internal/ingest/equities"
	"github.com/tinyvc/tinyvc/internal/performance"
	platformhttp "github.com/tinyvc/tinyvc/internal/platform/http"
	"github.com/tinyvc/tinyvc/internal/storage"
)

func main() {
	configDir := flag.String("config", "config", "directory with thresholds.toml and watchlist.toml")
	recDate := flag.String("date", "", "recommendation date (YYYY-MM-DD); required")
	evalDate := flag.String("as-of", "", "evaluation date (YYYY-MM-DD); defaults to today")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found, using system environment variables")
	}
	if *recDate == "" {
		log.Fatal().Msg("-date is required")
	}

	cfg, err := config.Load(*configDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	store, err := storage.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer store.Close()

	httpClient := platformhttp.NewClient(platformhttp.ClientOptions{
		Timeout:        30 * time.Second,
		RequestsPerSec: 5,
		UserAgent:      "Mozilla/5.0 (compatible; tinyvc/1.0)",
	})
	tracker := performance.New(store, equities.NewClient(httpClient), "")

	records, err := tracker.Backfill(context.Background(), *recDate, *evalDate)
	if err != nil {
		log.Fatal().Err(err).Msg("Backfill failed")
	}
	log.Info().Str("date", *recDate).Int("records", len(records)).Msg("Backfill complete")
}
