package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmateus/lexflash/internal/logger"
	"github.com/dmateus/lexflash/internal/models"
	"github.com/dmateus/lexflash/internal/repository"
)

type syncQueueRepository struct {
	db *sql.DB
}

// NewSyncQueueRepository creates a new SyncQueueRepository implementation
func NewSyncQueueRepository(db *sql.DB) repository.SyncQueueRepository {
	return &syncQueueRepository{db: db}
}

func (r *syncQueueRepository) Enqueue(ctx context.Context, item models.SyncItem) error {
	log := logger.FromContext(ctx).WithPrefix("sync_queue_repo")
	log.Debug("enqueueing sync item: id=%s, kind=%s", item.ID, item.Kind)

	_, err := r.db.ExecContext(ctx, `
INSERT INTO sync_queue (id, kind, payload, status, attempts, last_error, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, item.ID, item.Kind, string(item.Payload), item.Status, item.Attempts, item.LastError,
		item.CreatedAt, item.UpdatedAt)
	if err != nil {
		log.Error("failed to enqueue sync item: %v", err)
	}
	return err
}

func (r *syncQueueRepository) Pending(ctx context.Context) ([]models.SyncItem, error) {
	log := logger.FromContext(ctx).WithPrefix("sync_queue_repo")

	rows, err := r.db.QueryContext(ctx, `
SELECT id, kind, payload, status, attempts, last_error, created_at, updated_at
FROM sync_queue
WHERE status = ?
ORDER BY created_at ASC
`, models.SyncStatusPending)
	if err != nil {
		log.Error("failed to query pending sync items: %v", err)
		return nil, err
	}
	defer rows.Close()

	var items []models.SyncItem
	for rows.Next() {
		var item models.SyncItem
		var payload string
		if err := rows.Scan(&item.ID, &item.Kind, &payload, &item.Status, &item.Attempts,
			&item.LastError, &item.CreatedAt, &item.UpdatedAt); err != nil {
			log.Error("failed to scan sync item row: %v", err)
			return nil, err
		}
		item.Payload = []byte(payload)
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *syncQueueRepository) RecordAttempt(ctx context.Context, id string, attemptErr string) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE sync_queue
SET attempts = attempts + 1, last_error = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`, attemptErr, id)
	return err
}

func (r *syncQueueRepository) MarkCompleted(ctx context.Context, id string) error {
	log := logger.FromContext(ctx).WithPrefix("sync_queue_repo")
	log.Debug("marking sync item completed: id=%s", id)

	_, err := r.db.ExecContext(ctx, `
UPDATE sync_queue
SET status = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`, models.SyncStatusCompleted, id)
	return err
}

func (r *syncQueueRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	log := logger.FromContext(ctx).WithPrefix("sync_queue_repo")
	log.Warn("marking sync item failed: id=%s, reason=%s", id, reason)

	_, err := r.db.ExecContext(ctx, `
UPDATE sync_queue
SET status = ?, attempts = attempts + 1, last_error = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`, models.SyncStatusFailed, reason, id)
	return err
}

func (r *syncQueueRepository) PurgeCompleted(ctx context.Context, olderThan time.Time) error {
	log := logger.FromContext(ctx).WithPrefix("sync_queue_repo")

	res, err := r.db.ExecContext(ctx, `
DELETE FROM sync_queue WHERE status = ? AND updated_at < ?
`, models.SyncStatusCompleted, olderThan)
	if err != nil {
		log.Error("failed to purge completed sync items: %v", err)
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		log.Debug("purged %d completed sync items", n)
	}
	return nil
}
