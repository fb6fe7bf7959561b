package models

import "time"

// ReviewEvent is an immutable log entry recorded for every answered card. Only
// the Synced flag is ever flipped after creation, by the sync engine.
type ReviewEvent struct {
	ID           string    `json:"id"`
	CardID       string    `json:"card_id"`
	Quality      int       `json:"quality"`
	Repetitions  int       `json:"repetitions"`
	EaseFactor   float64   `json:"ease_factor"`
	IntervalDays int       `json:"interval_days"`
	ReviewedAt   time.Time `json:"reviewed_at"`
	Synced       bool      `json:"synced"`
}

// DailyProgress counts today's study activity, used for daily-cap accounting.
type DailyProgress struct {
	Reviewed   int `json:"reviewed"`
	NewLearned int `json:"new_learned"`
}
