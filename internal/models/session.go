package models

import "time"

// SessionStats are the running counters of an in-progress study session.
type SessionStats struct {
	Reviewed   int `json:"reviewed"`
	Correct    int `json:"correct"`
	Incorrect  int `json:"incorrect"`
	NewLearned int `json:"new_learned"`
}

// SessionSummary is the immutable result of a finished study session.
type SessionSummary struct {
	Stats     SessionStats  `json:"stats"`
	Accuracy  float64       `json:"accuracy"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   time.Time     `json:"ended_at"`
	Duration  time.Duration `json:"duration"`
}

// StudyStats is the store-derived snapshot exposed to the caller. Session
// counters are recomputed from durable state, never trusted across restarts.
type StudyStats struct {
	TotalCards      int           `json:"total_cards"`
	DueCount        int           `json:"due_count"`
	ReviewedToday   int           `json:"reviewed_today"`
	NewLearnedToday int           `json:"new_learned_today"`
	Session         *SessionStats `json:"session,omitempty"`
}
