// Package storage persists every pipeline artifact to PostgreSQL as
// date-keyed JSONB documents, so any past run can be replayed or
// re-evaluated.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tinyvc/tinyvc/models"
)

// ErrNotFound is returned when no document exists for the requested date.
var ErrNotFound = errors.New("storage: not found")

// DB represents a database connection
type DB struct {
	*sql.DB
	logger zerolog.Logger
}

// Document tables keyed by report date.
var dateKeyedTables = []string{
	"macro_snapshots",
	"sentiment_snapshots",
	"equity_snapshots",
	"opportunities",
	"llm_payloads",
	"llm_responses",
	"evaluations",
	"recommendations",
}

// New creates a new database connection and ensures the schema exists.
func New(connStr string) (*DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Check connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Create tables if they don't exist
	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return &DB{DB: db, logger: log.With().Str("component", "storage").Logger()}, nil
}

// createTables creates the necessary tables if they don't exist
func createTables(db *sql.DB) error {
	for _, table := range dateKeyedTables {
		_, err := db.Exec(fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				date DATE PRIMARY KEY,
				data JSONB NOT NULL,
				updated_at TIMESTAMP NOT NULL DEFAULT NOW()
			)
		`, table))
		if err != nil {
			return fmt.Errorf("table %s: %w", table, err)
		}
	}

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS run_metadata (
			run_id TEXT PRIMARY KEY,
			run_date DATE NOT NULL,
			data JSONB NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("table run_metadata: %w", err)
	}
	return nil
}

// saveDocument upserts one date-keyed JSONB document.
func (db *DB) saveDocument(ctx context.Context, table, date string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s document: %w", table, err)
	}

	_, err = db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (date, data, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (date)
		DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()
	`, table), date, data)
	if err != nil {
		return fmt.Errorf("upserting %s for %s: %w", table, date, err)
	}

	db.logger.Debug().Str("table", table).Str("date", date).Msg("document saved")
	return nil
}

// loadDocument reads one date-keyed document into out.
func (db *DB) loadDocument(ctx context.Context, table, date string, out any) error {
	var data []byte
	err := db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT data FROM %s WHERE date = $1`, table), date).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s for %s", ErrNotFound, table, date)
	}
	if err != nil {
		return fmt.Errorf("loading %s for %s: %w", table, date, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding %s for %s: %w", table, date, err)
	}
	return nil
}

// SaveMacro stores the macro snapshot for a date.
func (db *DB) SaveMacro(ctx context.Context, date string, macro models.MacroData) error {
	return db.saveDocument(ctx, "macro_snapshots", date, macro)
}

// LoadMacro reads the macro snapshot for a date.
func (db *DB) LoadMacro(ctx context.Context, date string) (models.MacroData, error) {
	var macro models.MacroData
	err := db.loadDocument(ctx, "macro_snapshots", date, &macro)
	return macro, err
}

// SaveSentiment stores the sentiment reading for a date.
func (db *DB) SaveSentiment(ctx context.Context, date string, sentiment models.SentimentData) error {
	return db.saveDocument(ctx, "sentiment_snapshots", date, sentiment)
}

// LoadSentiment reads the sentiment reading for a date.
func (db *DB) LoadSentiment(ctx context.Context, date string) (models.SentimentData, error) {
	var sentiment models.SentimentData
	err := db.loadDocument(ctx, "sentiment_snapshots", date, &sentiment)
	return sentiment, err
}

// SaveEquities stores the validated equity dataset for a date.
func (db *DB) SaveEquities(ctx context.Context, date string, dataset models.EquityDataset) error {
	return db.saveDocument(ctx, "equity_snapshots", date, dataset)
}

// LoadEquities reads the equity dataset for a date.
func (db *DB) LoadEquities(ctx context.Context, date string) (models.EquityDataset, error) {
	var dataset models.EquityDataset
	err := db.loadDocument(ctx, "equity_snapshots", date, &dataset)
	return dataset, err
}

// SaveOpportunities stores the scored opportunity rows for a date.
func (db *DB) SaveOpportunities(ctx context.Context, date string, rows []models.OpportunityRow) error {
	return db.saveDocument(ctx, "opportunities", date, rows)
}

// LoadOpportunities reads the scored opportunity rows for a date.
func (db *DB) LoadOpportunities(ctx context.Context, date string) ([]models.OpportunityRow, error) {
	var rows []models.OpportunityRow
	err := db.loadDocument(ctx, "opportunities", date, &rows)
	return rows, err
}

// SavePayload stores the exact LLM payload for a date.
func (db *DB) SavePayload(ctx context.Context, date string, payload models.LLMPayload) error {
	return db.saveDocument(ctx, "llm_payloads", date, payload)
}

// LoadPayload reads the LLM payload for a date.
func (db *DB) LoadPayload(ctx context.Context, date string) (models.LLMPayload, error) {
	var payload models.LLMPayload
	err := db.loadDocument(ctx, "llm_payloads", date, &payload)
	return payload, err
}

// StoredResponse couples the parsed analysis with the raw model text.
type StoredResponse struct {
	Raw      string                `json:"raw"`
	Analysis models.AnalysisOutput `json:"analysis"`
}

// SaveResponse stores the raw and parsed LLM response for a date.
func (db *DB) SaveResponse(ctx context.Context, date string, resp StoredResponse) error {
	return db.saveDocument(ctx, "llm_responses", date, resp)
}

// LoadResponse reads the LLM response for a date.
func (db *DB) LoadResponse(ctx context.Context, date string) (StoredResponse, error) {
	var resp StoredResponse
	err := db.loadDocument(ctx, "llm_responses", date, &resp)
	return resp, err
}

// StoredEvaluation couples the groundedness report with its metadata.
type StoredEvaluation struct {
	Report   models.GroundednessReport `json:"report"`
	Metadata models.EvaluationMetadata `json:"metadata"`
}

// SaveEvaluation stores the evaluation for a date.
func (db *DB) SaveEvaluation(ctx context.Context, date string, eval StoredEvaluation) error {
	return db.saveDocument(ctx, "evaluations", date, eval)
}

// LoadEvaluation reads the evaluation for a date.
func (db *DB) LoadEvaluation(ctx context.Context, date string) (StoredEvaluation, error) {
	var eval StoredEvaluation
	err := db.loadDocument(ctx, "evaluations", date, &eval)
	return eval, err
}

// SaveRecommendations stores the recommendation records for a date.
func (db *DB) SaveRecommendations(ctx context.Context, date string, records []models.RecommendationRecord) error {
	return db.saveDocument(ctx, "recommendations", date, records)
}

// LoadRecommendations reads the recommendation records for a date.
func (db *DB) LoadRecommendations(ctx context.Context, date string) ([]models.RecommendationRecord, error) {
	var records []models.RecommendationRecord
	err := db.loadDocument(ctx, "recommendations", date, &records)
	return records, err
}

// ListRecommendationDates returns all recommendation dates in
// [startDate, endDate], ascending.
func (db *DB) ListRecommendationDates(ctx context.Context, startDate, endDate string) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT date FROM recommendations
		WHERE date >= $1 AND date <= $2
		ORDER BY date ASC
	`, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("listing recommendation dates: %w", err)
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scanning recommendation date: %w", err)
		}
		dates = append(dates, d.Format("2006-01-02"))
	}
	return dates, rows.Err()
}

// SaveRunMetadata stores the execution record of one pipeline run.
func (db *DB) SaveRunMetadata(ctx context.Context, meta models.RunMetadata) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshaling run metadata: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO run_metadata (run_id, run_date, data, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (run_id)
		DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()
	`, meta.RunID, meta.RunDate, data)
	if err != nil {
		return fmt.Errorf("upserting run metadata %s: %w", meta.RunID, err)
	}
	return nil
}

// LoadRunMetadata reads one run's execution record.
func (db *DB) LoadRunMetadata(ctx context.Context, runID string) (models.RunMetadata, error) {
	var data []byte
	err := db.QueryRowContext(ctx,
		`SELECT data FROM run_metadata WHERE run_id = $1`, runID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return models.RunMetadata{}, fmt.Errorf("%w: run %s", ErrNotFound, runID)
	}
	if err != nil {
		return models.RunMetadata{}, fmt.Errorf("loading run metadata %s: %w", runID, err)
	}

	var meta models.RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return models.RunMetadata{}, fmt.Errorf("decoding run metadata %s: %w", runID, err)
	}
	return meta, nil
}
