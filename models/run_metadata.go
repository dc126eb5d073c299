package models

import "time"

// RunStatus classifies a pipeline run outcome.
type RunStatus string

const (
	RunSuccess RunStatus = "success"
	RunPartial RunStatus = "partial"
	RunFailed  RunStatus = "failed"
)

// RunMetadata is the execution record of one weekly pipeline run.
type RunMetadata struct {
	RunID       string    `json:"run_id"`
	RunDate     string    `json:"run_date"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	Status      RunStatus `json:"status"`

	TickersFetched         int `json:"tickers_fetched"`
	TickersPassedFilter    int `json:"tickers_passed_filter"`
	OpportunitiesSentToLLM int `json:"opportunities_sent_to_llm"`

	PromptVersion string `json:"prompt_version"`
	ModelName     string `json:"model_name"`
	LLMTokensUsed *int   `json:"llm_tokens_used,omitempty"`

	EmailDelivered  bool `json:"email_delivered"`
	ReportGenerated bool `json:"report_generated"`

	Errors []string `json:"errors"`
}
