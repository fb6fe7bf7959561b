package remote

import (
	"context"
	"time"
)

// API is the remote progress-server surface the sync engine talks to.
type API interface {
	UploadReviews(ctx context.Context, batch []ReviewUpload) (*BatchAck, error)
	UploadCards(ctx context.Context, batch []CardUpload) (*BatchAck, error)
	UploadSettings(ctx context.Context, batch []SettingUpload) (*BatchAck, error)
	CardsUpdatedSince(ctx context.Context, since time.Time) ([]RemoteCard, error)
	SubmitLessonProgress(ctx context.Context, record ProgressRecord) error
	FetchProgress(ctx context.Context) (*ProgressReport, error)
}

// ReviewUpload is one review-log entry in an upload batch.
type ReviewUpload struct {
	ID           string    `json:"id"`
	CardID       string    `json:"card_id"`
	Quality      int       `json:"quality"`
	Repetitions  int       `json:"repetitions"`
	EaseFactor   float64   `json:"ease_factor"`
	IntervalDays int       `json:"interval_days"`
	ReviewedAt   time.Time `json:"reviewed_at"`
}

// CardUpload is one card's scheduling state in an upload batch.
type CardUpload struct {
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
}

// SettingUpload is one user setting in an upload batch.
type SettingUpload struct {
	Key        string    `json:"key"`
	Value      string    `json:"value"`
	ModifiedAt time.Time `json:"modified_at"`
}

// RemoteCard is the server's version of a card.
type RemoteCard struct {
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
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Conflict is reported by the server when an uploaded record diverges from a
// newer remote version.
type Conflict struct {
	ID     string     `json:"id"`
	Remote RemoteCard `json:"remote"`
}

// BatchAck acknowledges an upload batch.
type BatchAck struct {
	Accepted  int        `json:"accepted"`
	Conflicts []Conflict `json:"conflicts,omitempty"`
}

// ProgressRecord reports completion of a lesson or practice unit.
type ProgressRecord struct {
	LessonID    string    `json:"lesson_id"`
	Kind        string    `json:"kind"`
	Score       float64   `json:"score"`
	CompletedAt time.Time `json:"completed_at"`
}

// ProgressReport is the server-side aggregate progress view.
type ProgressReport struct {
	TotalCards     int       `json:"total_cards"`
	MasteredCards  int       `json:"mastered_cards"`
	ReviewStreak   int       `json:"review_streak"`
	LessonsDone    int       `json:"lessons_done"`
	LastActivityAt time.Time `json:"last_activity_at"`
}
