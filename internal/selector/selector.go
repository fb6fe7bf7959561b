package selector

import (
	"math/rand"
	"time"

	"github.com/dmateus/lexflash/internal/models"
)

// Caps are the per-day study limits.
type Caps struct {
	NewPerDay     int
	ReviewsPerDay int
}

// Select builds the ordered study queue for a session. Due cards are split
// into three priority buckets: learning (lapsed, not yet re-graduated),
// due-review, and new. Each bucket is shuffled with the injected rng so the
// presentation order varies without disturbing priority, then the daily caps
// and the session limit are applied.
//
// An empty result means "nothing to study", never an error.
func Select(cards []models.Card, now time.Time, caps Caps, done models.DailyProgress, limit int, rng *rand.Rand) []models.Card {
	var learning, review, fresh []models.Card
	for _, c := range cards {
		if !c.IsDue(now) {
			continue
		}
		switch {
		case c.IsNew():
			fresh = append(fresh, c)
		case c.Repetitions == 0:
			learning = append(learning, c)
		default:
			review = append(review, c)
		}
	}

	shuffle(learning, rng)
	shuffle(review, rng)
	shuffle(fresh, rng)

	remainingReviews := caps.ReviewsPerDay - done.Reviewed
	if remainingReviews < 0 {
		remainingReviews = 0
	}
	remainingNew := caps.NewPerDay - done.NewLearned
	if remainingNew < 0 {
		remainingNew = 0
	}

	reviews := append(learning, review...)
	if len(reviews) > remainingReviews {
		reviews = reviews[:remainingReviews]
	}
	if len(fresh) > remainingNew {
		fresh = fresh[:remainingNew]
	}

	out := append(reviews, fresh...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func shuffle(cards []models.Card, rng *rand.Rand) {
	if rng == nil {
		return
	}
	rng.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}
