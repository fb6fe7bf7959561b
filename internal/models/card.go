package models

import "time"

// Card is a vocabulary flashcard with its spaced-repetition scheduling state.
// NextReviewAt nil means the card was never reviewed and is due immediately.
type Card struct {
	ID             string     `json:"id"`
	Front          string     `json:"front"`
	Back           string     `json:"back"`
	Repetitions    int        `json:"repetitions"`
	EaseFactor     float64    `json:"ease_factor"`
	IntervalDays   int        `json:"interval_days"`
	NextReviewAt   *time.Time `json:"next_review_at,omitempty"`
	LastReviewAt   *time.Time `json:"last_review_at,omitempty"`
	TotalReviews   int        `json:"total_reviews"`
	CorrectReviews int        `json:"correct_reviews"`
	ModifiedAt     time.Time  `json:"modified_at"`
	Synced         bool       `json:"synced"`
	CreatedAt      time.Time  `json:"created_at"`
}

// IsDue reports whether the card should be presented at the given moment.
func (c Card) IsDue(now time.Time) bool {
	return c.NextReviewAt == nil || !c.NextReviewAt.After(now)
}

// IsNew reports whether the card has never been reviewed.
func (c Card) IsNew() bool {
	return c.TotalReviews == 0
}

// MasteryLevel is a 0-100 reporting metric. It plays no part in scheduling.
func (c Card) MasteryLevel() float64 {
	if c.TotalReviews == 0 {
		return 0
	}
	return float64(c.CorrectReviews) / float64(c.TotalReviews) * 100
}
