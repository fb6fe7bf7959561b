package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Masterminds/squirrel"

	"github.com/dmateus/lexflash/internal/logger"
	"github.com/dmateus/lexflash/internal/models"
	"github.com/dmateus/lexflash/internal/repository"
)

type settingsRepository struct {
	db *sql.DB
}

// NewSettingsRepository creates a new SettingsRepository implementation
func NewSettingsRepository(db *sql.DB) repository.SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) Get(ctx context.Context, key string) (*models.Setting, error) {
	var s models.Setting
	err := r.db.QueryRowContext(ctx, `
SELECT key, value, modified_at, synced FROM settings WHERE key = ?
`, key).Scan(&s.Key, &s.Value, &s.ModifiedAt, &s.Synced)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *settingsRepository) Put(ctx context.Context, s models.Setting) error {
	log := logger.FromContext(ctx).WithPrefix("settings_repo")
	log.Debug("putting setting: key=%s", s.Key)

	_, err := r.db.ExecContext(ctx, `
INSERT INTO settings (key, value, modified_at, synced)
VALUES (?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
    value = excluded.value,
    modified_at = excluded.modified_at,
    synced = excluded.synced
`, s.Key, s.Value, s.ModifiedAt, s.Synced)
	if err != nil {
		log.Error("failed to put setting: %v", err)
	}
	return err
}

func (r *settingsRepository) Unsynced(ctx context.Context) ([]models.Setting, error) {
	log := logger.FromContext(ctx).WithPrefix("settings_repo")

	rows, err := r.db.QueryContext(ctx, `
SELECT key, value, modified_at, synced FROM settings WHERE synced = 0 ORDER BY modified_at ASC
`)
	if err != nil {
		log.Error("failed to query unsynced settings: %v", err)
		return nil, err
	}
	defer rows.Close()

	var settings []models.Setting
	for rows.Next() {
		var s models.Setting
		if err := rows.Scan(&s.Key, &s.Value, &s.ModifiedAt, &s.Synced); err != nil {
			return nil, err
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

func (r *settingsRepository) MarkSynced(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	query, args, err := sqlBuilder.Update("settings").
		Set("synced", true).
		Where(squirrel.Eq{"key": keys}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}
