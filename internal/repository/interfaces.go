package repository

import (
	"context"
	"time"

	"github.com/dmateus/lexflash/internal/models"
)

// CardRepository handles card scheduling-state access. Get returns (nil, nil)
// when the card does not exist; callers translate that to a NOT_FOUND error.
type CardRepository interface {
	Get(ctx context.Context, id string) (*models.Card, error)
	Upsert(ctx context.Context, card models.Card) error
	All(ctx context.Context) ([]models.Card, error)
	// Due returns cards whose next review is unset or has passed, ordered
	// never-reviewed first, then by ascending next_review_at. limit <= 0
	// means no limit.
	Due(ctx context.Context, now time.Time, limit int) ([]models.Card, error)
	Unsynced(ctx context.Context) ([]models.Card, error)
	MarkSynced(ctx context.Context, ids []string) error
}

// ReviewRepository handles the immutable review log.
type ReviewRepository interface {
	// Record atomically persists the card's new scheduling state and appends
	// the review event. Both succeed or neither does.
	Record(ctx context.Context, card models.Card, event models.ReviewEvent) error
	ByCard(ctx context.Context, cardID string) ([]models.ReviewEvent, error)
	Unsynced(ctx context.Context) ([]models.ReviewEvent, error)
	MarkSynced(ctx context.Context, ids []string) error
	// CountsSince reports review activity since the given moment, counting a
	// card as newly learned only if its first-ever review falls in the window.
	CountsSince(ctx context.Context, since time.Time) (models.DailyProgress, error)
}

// SyncQueueRepository owns the durable offline outbox.
type SyncQueueRepository interface {
	Enqueue(ctx context.Context, item models.SyncItem) error
	Pending(ctx context.Context) ([]models.SyncItem, error)
	// RecordAttempt bumps the attempt counter for a retryable failure; the
	// item stays pending.
	RecordAttempt(ctx context.Context, id string, attemptErr string) error
	MarkCompleted(ctx context.Context, id string) error
	// MarkFailed flags a permanent (non-retryable) rejection.
	MarkFailed(ctx context.Context, id string, reason string) error
	PurgeCompleted(ctx context.Context, olderThan time.Time) error
}

// SettingsRepository stores user settings with dirty tracking for sync.
type SettingsRepository interface {
	Get(ctx context.Context, key string) (*models.Setting, error)
	Put(ctx context.Context, setting models.Setting) error
	Unsynced(ctx context.Context) ([]models.Setting, error)
	MarkSynced(ctx context.Context, keys []string) error
}

// MetaRepository stores sync bookkeeping. LastSyncTime returns the zero time
// when no sync has ever completed.
type MetaRepository interface {
	LastSyncTime(ctx context.Context) (time.Time, error)
	SetLastSyncTime(ctx context.Context, t time.Time) error
}
