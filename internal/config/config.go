// Package config loads the per-run configuration: environment variables
// for credentials and delivery, TOML files for thresholds and the
// watchlist. The result is an immutable struct passed into component
// constructors; nothing reads configuration ambiently after startup.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"github.com/tinyvc/tinyvc/internal/score"
)

// CorrelationConfig bounds the diversifier.
type CorrelationConfig struct {
	MaxAllowed float64 `toml:"max_allowed" validate:"gte=0,lte=1"`
}

// SentimentContext holds the narrative the payload builder attaches to
// each sentiment regime.
type SentimentContext struct {
	ExtremeFear  string `toml:"extreme_fear"`
	Fear         string `toml:"fear"`
	Neutral      string `toml:"neutral"`
	Greed        string `toml:"greed"`
	ExtremeGreed string `toml:"extreme_greed"`
}

// Thresholds is the contents of config/thresholds.toml.
type Thresholds struct {
	MaxMissingPct    float64           `toml:"max_missing_pct" validate:"gte=0,lt=1"`
	TopCandidates    int               `toml:"top_candidates" validate:"gt=0"`
	Filters          score.Thresholds  `toml:"filters"`
	Correlation      CorrelationConfig `toml:"correlation"`
	SentimentContext SentimentContext  `toml:"sentiment_context"`
}

// Watchlist is the contents of config/watchlist.toml.
type Watchlist struct {
	CandidatePool  []string            `toml:"candidate_pool" validate:"min=1"`
	MarketUniverse []string            `toml:"market_universe"`
	Themes         map[string][]string `toml:"themes"`
}

// SMTPConfig carries email delivery settings.
type SMTPConfig struct {
	Server    string
	Port      int
	User      string
	Password  string
	Recipient string
}

// TelegramConfig carries the optional broadcast channel settings.
type TelegramConfig struct {
	BotToken string
	ChatID   int64
}

// Config is everything a pipeline run needs, resolved once at startup.
type Config struct {
	FREDAPIKey   string `validate:"required"`
	GeminiAPIKey string `validate:"required"`
	TavilyAPIKey string

	GeminiModel   string `validate:"required"`
	PromptVersion string `validate:"required"`

	WeeklyBudgetUSD        int `validate:"gt=0"`
	InvestmentHorizonYears int `validate:"gt=0"`

	DatabaseURL string `validate:"required"`

	SMTP     SMTPConfig
	Telegram TelegramConfig

	RunSchedule string
	LogLevel    string

	Thresholds Thresholds
	Watchlist  Watchlist
}

// Load reads environment variables and the TOML files under configDir and
// returns a validated Config.
func Load(configDir string) (*Config, error) {
	cfg := &Config{
		FREDAPIKey:   os.Getenv("FRED_API_KEY"),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		TavilyAPIKey: os.Getenv("TAVILY_API_KEY"),

		GeminiModel:   envOr("GEMINI_MODEL", "gemma-3-27b-it"),
		PromptVersion: envOr("PROMPT_VERSION", "v1"),

		WeeklyBudgetUSD:        envIntOr("WEEKLY_BUDGET", 50),
		InvestmentHorizonYears: envIntOr("INVESTMENT_HORIZON", 20),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		SMTP: SMTPConfig{
			Server:    os.Getenv("SMTP_SERVER"),
			Port:      envIntOr("SMTP_PORT", 587),
			User:      os.Getenv("SMTP_USER"),
			Password:  os.Getenv("SMTP_PASSWORD"),
			Recipient: os.Getenv("RECIPIENT_EMAIL"),
		},
		Telegram: TelegramConfig{
			BotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
			ChatID:   envInt64Or("TELEGRAM_CHAT_ID", 0),
		},

		RunSchedule: os.Getenv("RUN_SCHEDULE"),
		LogLevel:    envOr("LOG_LEVEL", "info"),
	}

	if err := loadTOML(filepath.Join(configDir, "thresholds.toml"), &cfg.Thresholds); err != nil {
		return nil, err
	}
	if err := loadTOML(filepath.Join(configDir, "watchlist.toml"), &cfg.Watchlist); err != nil {
		return nil, err
	}

	applyDefaults(&cfg.Thresholds)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func applyDefaults(t *Thresholds) {
	if t.MaxMissingPct == 0 {
		t.MaxMissingPct = 0.20
	}
	if t.TopCandidates == 0 {
		t.TopCandidates = 15
	}
	if t.Correlation.MaxAllowed == 0 {
		t.Correlation.MaxAllowed = 0.85
	}
}

func loadTOML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt64Or(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
