package models

import "time"

// MetricInconsistency records one metric claim that did not match the
// payload value for its ticker.
type MetricInconsistency struct {
	Ticker  string `json:"ticker"`
	Metric  string `json:"metric"`
	Claimed string `json:"claimed"`
	Actual  string `json:"actual"`
}

// GroundednessReport quantifies how well an LLM response is supported by
// the payload it was generated from. One per run, never mutated.
type GroundednessReport struct {
	Date        string    `json:"date"`
	EvaluatedAt time.Time `json:"evaluated_at"`

	MacroClaimsTotal    int      `json:"macro_claims_total"`
	MacroClaimsGrounded int      `json:"macro_claims_grounded"`
	MacroGroundingScore float64  `json:"macro_grounding_score"`
	MacroHallucinations []string `json:"macro_hallucinations"`

	OpportunitiesTotal     int      `json:"opportunities_total"`
	OpportunitiesInPayload int      `json:"opportunities_in_payload"`
	HallucinatedTickers    []string `json:"hallucinated_tickers"`
	TickerAccuracy         float64  `json:"ticker_accuracy"`

	MetricInconsistencies  []MetricInconsistency `json:"metric_inconsistencies"`
	MetricConsistencyScore float64               `json:"metric_consistency_score"`

	// Nil when fewer than two tickers overlap between payload and response.
	ConvictionCorrelation *float64 `json:"conviction_correlation"`

	OverallGroundingScore float64  `json:"overall_grounding_score"`
	QualityGrade          string   `json:"quality_grade"`
	IssuesFound           []string `json:"issues_found"`
}

// EvaluationMetadata describes the evaluation process itself.
type EvaluationMetadata struct {
	EvaluatorVersion          string  `json:"evaluator_version"`
	EvaluationDurationSeconds float64 `json:"evaluation_duration_seconds"`
	PayloadSizeKB             float64 `json:"payload_size_kb"`
	ResponseSizeKB            float64 `json:"response_size_kb"`
}
