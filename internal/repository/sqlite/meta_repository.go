package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dmateus/lexflash/internal/repository"
)

const lastSyncKey = "last_sync_time"

type metaRepository struct {
	db *sql.DB
}

// NewMetaRepository creates a new MetaRepository implementation
func NewMetaRepository(db *sql.DB) repository.MetaRepository {
	return &metaRepository{db: db}
}

func (r *metaRepository) LastSyncTime(ctx context.Context) (time.Time, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM sync_meta WHERE key = ?`, lastSyncKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

func (r *metaRepository) SetLastSyncTime(ctx context.Context, t time.Time) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO sync_meta (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value
`, lastSyncKey, t.Format(time.RFC3339Nano))
	return err
}
