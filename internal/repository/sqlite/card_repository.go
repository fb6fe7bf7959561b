package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/dmateus/lexflash/internal/logger"
	"github.com/dmateus/lexflash/internal/models"
	"github.com/dmateus/lexflash/internal/repository"
)

var sqlBuilder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

var cardColumns = []string{
	"id", "front", "back", "repetitions", "ease_factor", "interval_days",
	"next_review_at", "last_review_at", "total_reviews", "correct_reviews",
	"modified_at", "synced", "created_at",
}

type cardRepository struct {
	db *sql.DB
}

// NewCardRepository creates a new CardRepository implementation
func NewCardRepository(db *sql.DB) repository.CardRepository {
	return &cardRepository{db: db}
}

func (r *cardRepository) Get(ctx context.Context, id string) (*models.Card, error) {
	log := logger.FromContext(ctx).WithPrefix("card_repo")

	query, args, err := sqlBuilder.Select(cardColumns...).From("cards").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	card, err := scanCard(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("card not found: id=%s", id)
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get card: %v", err)
		return nil, err
	}
	return card, nil
}

func (r *cardRepository) Upsert(ctx context.Context, c models.Card) error {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("upserting card: id=%s, interval=%d, ease=%.2f", c.ID, c.IntervalDays, c.EaseFactor)

	_, err := r.db.ExecContext(ctx, `
INSERT INTO cards (id, front, back, repetitions, ease_factor, interval_days, next_review_at, last_review_at, total_reviews, correct_reviews, modified_at, synced, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    front = excluded.front,
    back = excluded.back,
    repetitions = excluded.repetitions,
    ease_factor = excluded.ease_factor,
    interval_days = excluded.interval_days,
    next_review_at = excluded.next_review_at,
    last_review_at = excluded.last_review_at,
    total_reviews = excluded.total_reviews,
    correct_reviews = excluded.correct_reviews,
    modified_at = excluded.modified_at,
    synced = excluded.synced
`, c.ID, c.Front, c.Back, c.Repetitions, c.EaseFactor, c.IntervalDays,
		nullTimeOf(c.NextReviewAt), nullTimeOf(c.LastReviewAt),
		c.TotalReviews, c.CorrectReviews, c.ModifiedAt, c.Synced, c.CreatedAt)
	if err != nil {
		log.Error("failed to upsert card: %v", err)
	}
	return err
}

func (r *cardRepository) All(ctx context.Context) ([]models.Card, error) {
	query, args, err := sqlBuilder.Select(cardColumns...).From("cards").OrderBy("created_at ASC").ToSql()
	if err != nil {
		return nil, err
	}
	return r.queryCards(ctx, query, args...)
}

func (r *cardRepository) Due(ctx context.Context, now time.Time, limit int) ([]models.Card, error) {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("fetching due cards: now=%s, limit=%d", now.Format(time.RFC3339), limit)

	q := sqlBuilder.Select(cardColumns...).
		From("cards").
		Where(squirrel.Or{
			squirrel.Eq{"next_review_at": nil},
			squirrel.LtOrEq{"next_review_at": now},
		}).
		OrderBy("next_review_at IS NOT NULL", "next_review_at ASC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	cards, err := r.queryCards(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	log.Debug("found %d due cards", len(cards))
	return cards, nil
}

func (r *cardRepository) Unsynced(ctx context.Context) ([]models.Card, error) {
	query, args, err := sqlBuilder.Select(cardColumns...).
		From("cards").
		Where(squirrel.Eq{"synced": false}).
		OrderBy("modified_at ASC").
		ToSql()
	if err != nil {
		return nil, err
	}
	return r.queryCards(ctx, query, args...)
}

func (r *cardRepository) MarkSynced(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	log := logger.FromContext(ctx).WithPrefix("card_repo")

	query, args, err := sqlBuilder.Update("cards").
		Set("synced", true).
		Where(squirrel.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		log.Error("failed to mark cards synced: %v", err)
		return err
	}
	log.Debug("marked %d cards synced", len(ids))
	return nil
}

func (r *cardRepository) queryCards(ctx context.Context, query string, args ...any) ([]models.Card, error) {
	log := logger.FromContext(ctx).WithPrefix("card_repo")

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query cards: %v", err)
		return nil, err
	}
	defer rows.Close()

	var cards []models.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			log.Error("failed to scan card row: %v", err)
			return nil, err
		}
		cards = append(cards, *card)
	}
	return cards, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (*models.Card, error) {
	var c models.Card
	var nextReview, lastReview sql.NullTime
	err := row.Scan(&c.ID, &c.Front, &c.Back, &c.Repetitions, &c.EaseFactor, &c.IntervalDays,
		&nextReview, &lastReview, &c.TotalReviews, &c.CorrectReviews,
		&c.ModifiedAt, &c.Synced, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	c.NextReviewAt = timePtr(nextReview)
	c.LastReviewAt = timePtr(lastReview)
	return &c, nil
}
