package models

import (
	"encoding/json"
	"time"
)

// Sync item kinds.
const (
	SyncKindProgress = "progress"
	SyncKindSetting  = "setting"
)

// Sync item statuses.
const (
	SyncStatusPending   = "pending"
	SyncStatusCompleted = "completed"
	SyncStatusFailed    = "failed"
)

// SyncItem is a durable outbox entry for a mutation that could not be sent
// while the network was unavailable. Completed items are purged; failed items
// are permanent rejections kept for surfacing to the user.
type SyncItem struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	Status    string          `json:"status"`
	Attempts  int             `json:"attempts"`
	LastError string          `json:"last_error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Setting is a user preference replicated to the server.
type Setting struct {
	Key        string    `json:"key"`
	Value      string    `json:"value"`
	ModifiedAt time.Time `json:"modified_at"`
	Synced     bool      `json:"synced"`
}
