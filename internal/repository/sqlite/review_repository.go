package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/dmateus/lexflash/internal/logger"
	"github.com/dmateus/lexflash/internal/models"
	"github.com/dmateus/lexflash/internal/repository"
)

var reviewColumns = []string{
	"id", "card_id", "quality", "repetitions", "ease_factor", "interval_days",
	"reviewed_at", "synced",
}

type reviewRepository struct {
	db *sql.DB
}

// NewReviewRepository creates a new ReviewRepository implementation
func NewReviewRepository(db *sql.DB) repository.ReviewRepository {
	return &reviewRepository{db: db}
}

// Record writes the card's new scheduling state and the review event in one
// transaction. A crash can never leave the review log and the card divergent.
func (r *reviewRepository) Record(ctx context.Context, c models.Card, e models.ReviewEvent) error {
	log := logger.FromContext(ctx).WithPrefix("review_repo")
	log.Debug("recording review: card_id=%s, quality=%d, interval=%d", e.CardID, e.Quality, e.IntervalDays)

	return tx(ctx, r.db, func(t *sql.Tx) error {
		_, err := t.ExecContext(ctx, `
UPDATE cards
SET repetitions = ?, ease_factor = ?, interval_days = ?, next_review_at = ?, last_review_at = ?,
    total_reviews = ?, correct_reviews = ?, modified_at = ?, synced = ?
WHERE id = ?
`, c.Repetitions, c.EaseFactor, c.IntervalDays, nullTimeOf(c.NextReviewAt), nullTimeOf(c.LastReviewAt),
			c.TotalReviews, c.CorrectReviews, c.ModifiedAt, c.Synced, c.ID)
		if err != nil {
			return err
		}
		_, err = t.ExecContext(ctx, `
INSERT INTO reviews (id, card_id, quality, repetitions, ease_factor, interval_days, reviewed_at, synced)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, e.ID, e.CardID, e.Quality, e.Repetitions, e.EaseFactor, e.IntervalDays, e.ReviewedAt, e.Synced)
		return err
	})
}

func (r *reviewRepository) ByCard(ctx context.Context, cardID string) ([]models.ReviewEvent, error) {
	query, args, err := sqlBuilder.Select(reviewColumns...).
		From("reviews").
		Where(squirrel.Eq{"card_id": cardID}).
		OrderBy("reviewed_at ASC").
		ToSql()
	if err != nil {
		return nil, err
	}
	return r.queryReviews(ctx, query, args...)
}

func (r *reviewRepository) Unsynced(ctx context.Context) ([]models.ReviewEvent, error) {
	query, args, err := sqlBuilder.Select(reviewColumns...).
		From("reviews").
		Where(squirrel.Eq{"synced": false}).
		OrderBy("reviewed_at ASC").
		ToSql()
	if err != nil {
		return nil, err
	}
	return r.queryReviews(ctx, query, args...)
}

func (r *reviewRepository) MarkSynced(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	log := logger.FromContext(ctx).WithPrefix("review_repo")

	query, args, err := sqlBuilder.Update("reviews").
		Set("synced", true).
		Where(squirrel.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		log.Error("failed to mark reviews synced: %v", err)
		return err
	}
	log.Debug("marked %d reviews synced", len(ids))
	return nil
}

func (r *reviewRepository) CountsSince(ctx context.Context, since time.Time) (models.DailyProgress, error) {
	log := logger.FromContext(ctx).WithPrefix("review_repo")

	var p models.DailyProgress
	err := r.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM reviews WHERE reviewed_at >= ?
`, since).Scan(&p.Reviewed)
	if err != nil {
		log.Error("failed to count reviews: %v", err)
		return models.DailyProgress{}, err
	}

	// A card counts as newly learned only when its first-ever review falls
	// inside the window.
	err = r.db.QueryRowContext(ctx, `
SELECT COUNT(DISTINCT card_id) FROM reviews
WHERE reviewed_at >= ?
AND card_id NOT IN (SELECT card_id FROM reviews WHERE reviewed_at < ?)
`, since, since).Scan(&p.NewLearned)
	if err != nil {
		log.Error("failed to count new cards: %v", err)
		return models.DailyProgress{}, err
	}
	return p, nil
}

func (r *reviewRepository) queryReviews(ctx context.Context, query string, args ...any) ([]models.ReviewEvent, error) {
	log := logger.FromContext(ctx).WithPrefix("review_repo")

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query reviews: %v", err)
		return nil, err
	}
	defer rows.Close()

	var events []models.ReviewEvent
	for rows.Next() {
		var e models.ReviewEvent
		if err := rows.Scan(&e.ID, &e.CardID, &e.Quality, &e.Repetitions, &e.EaseFactor,
			&e.IntervalDays, &e.ReviewedAt, &e.Synced); err != nil {
			log.Error("failed to scan review row: %v", err)
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
