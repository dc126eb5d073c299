package models

import "time"

// SentimentData is a CNN Fear & Greed Index reading.
// Score runs from 0 (extreme fear) to 100 (extreme greed).
type SentimentData struct {
	Score         int       `json:"score"`
	Label         string    `json:"label"`
	PreviousClose int       `json:"previous_close"`
	OneWeekAgo    int       `json:"one_week_ago"`
	OneMonthAgo   int       `json:"one_month_ago"`
	OneYearAgo    int       `json:"one_year_ago"`
	FetchedAt     time.Time `json:"fetched_at"`
}

// SentimentLabel maps a score to its canonical label.
func SentimentLabel(score int) string {
	switch {
	case score < 25:
		return "Extreme Fear"
	case score < 45:
		return "Fear"
	case score < 55:
		return "Neutral"
	case score < 75:
		return "Greed"
	default:
		return "Extreme Greed"
	}
}

// IsFearful is true for fear and extreme fear readings.
func (s SentimentData) IsFearful() bool { return s.Score < 45 }

// IsGreedy is true for greed and extreme greed readings.
func (s SentimentData) IsGreedy() bool { return s.Score > 55 }

// TrendDirection compares the score against one week ago.
func (s SentimentData) TrendDirection() string {
	switch {
	case s.Score > s.OneWeekAgo+5:
		return "improving"
	case s.Score < s.OneWeekAgo-5:
		return "deteriorating"
	default:
		return "stable"
	}
}
