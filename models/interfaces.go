package models

import (
	"context"
	"time"
)

// PriceSeriesClient supplies daily close history. An empty series for a
// ticker means "no data" and is not an error.
type PriceSeriesClient interface {
	FetchDailyCloses(ctx context.Context, ticker string, start, end time.Time) ([]PricePoint, error)
}

// RecommendationStore persists recommendation records keyed by the ISO
// run date.
type RecommendationStore interface {
	SaveRecommendations(ctx context.Context, date string, records []RecommendationRecord) error
	LoadRecommendations(ctx context.Context, date string) ([]RecommendationRecord, error)
	ListRecommendationDates(ctx context.Context, startDate, endDate string) ([]string, error)
}
