// Perfsummary prints aggregate recommendation performance for a window.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/tinyvc/tinyvc/internal/config"
	"github.com/tinyvc/tinyvc/internal/ingest/equities"
	"github.com/tinyvc/tinyvc/internal/performance"
	platformhttp "github.com/tinyvc/tinyvc/internal/platform/http"
	"github.com/tinyvc/tinyvc/internal/storage"
	"github.com/tinyvc/tinyvc/models"
)

func main() {
	configDir := flag.String("config", "config", "directory with thresholds.toml and watchlist.toml")
	start := flag.String("start", "", "window start (YYYY-MM-DD); defaults to 90 days ago")
	end := flag.String("end", "", "window end (YYYY-MM-DD); defaults to today")
	horizon := flag.String("horizon", "1M", "return horizon: 1W, 1M or 3M")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found, using system environment variables")
	}

	now := time.Now()
	if *end == "" {
		*end = now.Format("2006-01-02")
	}
	if *start == "" {
		*start = now.AddDate(0, 0, -90).Format("2006-01-02")
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
	})
	tracker := performance.New(store, equities.NewClient(httpClient), "")

	summary, err := tracker.Summary(context.Background(), *start, *end, models.Horizon(*horizon))
	if err != nil {
		log.Fatal().Err(err).Msg("Summary failed")
	}

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("Encoding summary failed")
	}
	fmt.Fprintln(os.Stdout, string(out))
}
