package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const thresholdsTOML = `
max_missing_pct = 0.25
top_candidates = 10

[filters.value_filters]
min_market_cap = 5_000_000_000
max_pe_ratio = 35.0

[filters.momentum_filters]
max_pct_from_52w_high = 0.25

[correlation]
max_allowed = 0.80

[sentiment_context]
extreme_fear = "panic narrative"
`

const watchlistTOML = `
candidate_pool = ["AAPL", "MSFT"]
market_universe = ["SPY", "QQQ"]

[themes]
megacap_tech = ["AAPL", "MSFT"]
`

func writeConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "thresholds.toml"), []byte(thresholdsTOML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "watchlist.toml"), []byte(watchlistTOML), 0o644))
	return dir
}

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("FRED_API_KEY", "fred-key")
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("DATABASE_URL", "postgres://localhost/tinyvc?sslmode=disable")
}

func TestLoadReadsTOMLAndEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("WEEKLY_BUDGET", "75")
	t.Setenv("GEMINI_MODEL", "gemma-3-27b-it")

	cfg, err := Load(writeConfigDir(t))
	require.NoError(t, err)

	assert.Equal(t, "fred-key", cfg.FREDAPIKey)
	assert.Equal(t, 75, cfg.WeeklyBudgetUSD)
	assert.Equal(t, "gemma-3-27b-it", cfg.GeminiModel)

	assert.Equal(t, 0.25, cfg.Thresholds.MaxMissingPct)
	assert.Equal(t, 10, cfg.Thresholds.TopCandidates)
	assert.Equal(t, int64(5_000_000_000), cfg.Thresholds.Filters.Value.MinMarketCap)
	assert.Equal(t, 0.80, cfg.Thresholds.Correlation.MaxAllowed)
	assert.Equal(t, "panic narrative", cfg.Thresholds.SentimentContext.ExtremeFear)

	assert.Equal(t, []string{"AAPL", "MSFT"}, cfg.Watchlist.CandidatePool)
	assert.Equal(t, []string{"AAPL", "MSFT"}, cfg.Watchlist.Themes["megacap_tech"])
}

func TestLoadAppliesDefaults(t *testing.T) {
	setRequiredEnv(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "thresholds.toml"), []byte(""), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "watchlist.toml"), []byte(`candidate_pool = ["AAPL"]`), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 0.20, cfg.Thresholds.MaxMissingPct)
	assert.Equal(t, 15, cfg.Thresholds.TopCandidates)
	assert.Equal(t, 0.85, cfg.Thresholds.Correlation.MaxAllowed)
	assert.Equal(t, 50, cfg.WeeklyBudgetUSD)
	assert.Equal(t, 20, cfg.InvestmentHorizonYears)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.Equal(t, "gemma-3-27b-it", cfg.GeminiModel)
	assert.Equal(t, "v1", cfg.PromptVersion)
}

func TestLoadFailsWithoutRequiredKeys(t *testing.T) {
	t.Setenv("FRED_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("DATABASE_URL", "")

	_, err := Load(writeConfigDir(t))
	assert.Error(t, err)
}

func TestLoadFailsOnMissingFiles(t *testing.T) {
	setRequiredEnv(t)
	_, err := Load(t.TempDir())
	assert.Error(t, err)
}

func TestLoadFailsOnEmptyCandidatePool(t *testing.T) {
	setRequiredEnv(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "thresholds.toml"), []byte(thresholdsTOML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "watchlist.toml"), []byte(`candidate_pool = []`), 0o644))

	_, err := Load(dir)
	assert.Error(t, err)
}
