package session

import (
	"math/rand"
	"time"

	"github.com/dmateus/lexflash/internal/clock"
	"github.com/dmateus/lexflash/internal/errors"
	"github.com/dmateus/lexflash/internal/models"
	"github.com/dmateus/lexflash/internal/scheduler"
)

// State of a study session. There is no way back from Complete; a new
// session must be created to keep studying.
type State int

const (
	NotStarted State = iota
	InProgress
	Complete
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case InProgress:
		return "in_progress"
	case Complete:
		return "complete"
	default:
		return "unknown"
	}
}

// Requeue distance bounds for failed cards: a miss comes back 3 to 5
// positions later in the same session.
const (
	requeueMin    = 3
	requeueSpread = 3
)

// Session drives a single study run over a pre-selected queue of cards. It is
// purely in-memory; persistence of each answer happens before Advance is
// called, so session state can always be rebuilt from the store.
type Session struct {
	queue     []models.Card
	cursor    int
	stats     models.SessionStats
	state     State
	startedAt time.Time
	summary   *models.SessionSummary
	clk       clock.Clock
	rng       *rand.Rand
}

// New creates an unstarted session. rng drives failed-card reinsertion.
func New(clk clock.Clock, rng *rand.Rand) *Session {
	if clk == nil {
		clk = clock.System()
	}
	return &Session{clk: clk, rng: rng}
}

// Start begins the session over the given selection.
func (s *Session) Start(cards []models.Card) error {
	if s.state != NotStarted {
		return errors.NewInvalidInputError("session", "already started")
	}
	if len(cards) == 0 {
		return errors.NewEmptyQueueError()
	}
	s.queue = make([]models.Card, len(cards))
	copy(s.queue, cards)
	s.cursor = 0
	s.stats = models.SessionStats{}
	s.startedAt = s.clk.Now()
	s.state = InProgress
	return nil
}

// Current returns the card under the cursor, or nil when the queue is
// exhausted or the session is not in progress.
func (s *Session) Current() *models.Card {
	if s.state != InProgress || s.cursor >= len(s.queue) {
		return nil
	}
	card := s.queue[s.cursor]
	return &card
}

// Advance records the outcome of answering the current card. updated is the
// card's already-persisted post-review state. A failed answer with at least
// one other card remaining is reinserted a few positions ahead instead of
// advancing, giving short-term repetition within the session.
func (s *Session) Advance(quality int, updated models.Card) error {
	if s.state != InProgress {
		return errors.NewInvalidInputError("session", "not in progress")
	}
	if s.cursor >= len(s.queue) {
		return errors.NewInvalidInputError("session", "queue exhausted")
	}

	wasNew := s.queue[s.cursor].IsNew()
	s.stats.Reviewed++
	if quality >= scheduler.PassingQuality {
		s.stats.Correct++
		if wasNew {
			s.stats.NewLearned++
		}
	} else {
		s.stats.Incorrect++
	}

	if quality < scheduler.PassingQuality && len(s.queue)-s.cursor > 1 {
		s.requeue(updated)
		return nil
	}

	s.queue[s.cursor] = updated
	s.cursor++
	return nil
}

func (s *Session) requeue(card models.Card) {
	s.queue = append(s.queue[:s.cursor], s.queue[s.cursor+1:]...)
	offset := requeueMin
	if s.rng != nil {
		offset += s.rng.Intn(requeueSpread)
	}
	pos := s.cursor + offset
	if pos > len(s.queue) {
		pos = len(s.queue)
	}
	s.queue = append(s.queue[:pos], append([]models.Card{card}, s.queue[pos:]...)...)
}

// Complete reports whether every card in the queue has been answered.
func (s *Session) Complete() bool {
	return s.state == Complete || (s.state == InProgress && s.cursor >= len(s.queue))
}

// Remaining returns how many cards are left, including the current one.
func (s *Session) Remaining() int {
	if s.state != InProgress {
		return 0
	}
	return len(s.queue) - s.cursor
}

// Stats returns the running session counters.
func (s *Session) Stats() models.SessionStats {
	return s.stats
}

// State returns the session's lifecycle state.
func (s *Session) State() State {
	return s.state
}

// End finalizes the session and returns its immutable summary. Calling End
// again returns the same summary.
func (s *Session) End() models.SessionSummary {
	if s.summary != nil {
		return *s.summary
	}
	ended := s.clk.Now()
	summary := models.SessionSummary{
		Stats:     s.stats,
		StartedAt: s.startedAt,
		EndedAt:   ended,
		Duration:  ended.Sub(s.startedAt),
	}
	if s.stats.Reviewed > 0 {
		summary.Accuracy = float64(s.stats.Correct) / float64(s.stats.Reviewed) * 100
	}
	s.state = Complete
	s.summary = &summary
	return summary
}
