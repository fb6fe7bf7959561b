package services

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmateus/lexflash/internal/clock"
	"github.com/dmateus/lexflash/internal/errors"
	"github.com/dmateus/lexflash/internal/events"
	"github.com/dmateus/lexflash/internal/logger"
	"github.com/dmateus/lexflash/internal/models"
	"github.com/dmateus/lexflash/internal/repository"
	"github.com/dmateus/lexflash/internal/scheduler"
	"github.com/dmateus/lexflash/internal/selector"
	"github.com/dmateus/lexflash/internal/session"
)

// StudyService is the caller surface for running study sessions. All
// persistent effects of an answer are written before the in-memory session
// advances, so stats can always be rebuilt from the store.
type StudyService interface {
	StartSession(ctx context.Context) (int, error)
	GetCurrentCard(ctx context.Context) (*models.Card, error)
	AnswerCard(ctx context.Context, quality int) error
	IsComplete(ctx context.Context) bool
	EndSession(ctx context.Context) (*models.SessionSummary, error)
	GetStats(ctx context.Context) (*models.StudyStats, error)
}

// StudyConfig carries the study-set tuning knobs.
type StudyConfig struct {
	Caps         selector.Caps
	SessionLimit int
}

type studyService struct {
	cards   repository.CardRepository
	reviews repository.ReviewRepository
	clk     clock.Clock
	rng     *rand.Rand
	bus     *events.Bus
	cfg     StudyConfig

	mu      sync.Mutex
	current *session.Session
}

// NewStudyService creates a new StudyService. rng drives queue shuffling and
// failed-card reinsertion; pass a seeded source for deterministic tests.
func NewStudyService(cards repository.CardRepository, reviews repository.ReviewRepository,
	clk clock.Clock, rng *rand.Rand, bus *events.Bus, cfg StudyConfig) StudyService {
	if clk == nil {
		clk = clock.System()
	}
	if bus == nil {
		bus = events.NewBus()
	}
	return &studyService{
		cards:   cards,
		reviews: reviews,
		clk:     clk,
		rng:     rng,
		bus:     bus,
		cfg:     cfg,
	}
}

// StartSession selects today's study set and begins a new session, returning
// the queue length. An exhausted backlog or daily cap yields EMPTY_QUEUE,
// which callers surface as "all done for today".
func (s *studyService) StartSession(ctx context.Context) (int, error) {
	log := logger.FromContext(ctx)
	now := s.clk.Now()

	due, err := s.cards.Due(ctx, now, 0)
	if err != nil {
		return 0, errors.NewStorageError(err)
	}
	done, err := s.reviews.CountsSince(ctx, startOfDay(now))
	if err != nil {
		return 0, errors.NewStorageError(err)
	}

	queue := selector.Select(due, now, s.cfg.Caps, done, s.cfg.SessionLimit, s.rng)
	log.Debug("selected study set: due=%d, queued=%d, reviewed_today=%d, new_today=%d",
		len(due), len(queue), done.Reviewed, done.NewLearned)

	sess := session.New(s.clk, s.rng)
	if err := sess.Start(queue); err != nil {
		return 0, err
	}

	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()

	s.bus.Emit(events.SessionStarted, len(queue))
	log.Info("study session started with %d cards", len(queue))
	return len(queue), nil
}

func (s *studyService) GetCurrentCard(ctx context.Context) (*models.Card, error) {
	sess := s.activeSession()
	if sess == nil {
		return nil, errors.NewNotFoundError("session", "active")
	}
	return sess.Current(), nil
}

// AnswerCard grades the current card: the scheduler computes the new state,
// the store persists card and review event atomically, and only then does the
// session advance. A failed write never advances the session.
func (s *studyService) AnswerCard(ctx context.Context, quality int) error {
	log := logger.FromContext(ctx)

	sess := s.activeSession()
	if sess == nil {
		return errors.NewNotFoundError("session", "active")
	}
	card := sess.Current()
	if card == nil {
		return errors.NewInvalidInputError("session", "no card to answer")
	}

	state := scheduler.State{
		Repetitions:  card.Repetitions,
		EaseFactor:   card.EaseFactor,
		IntervalDays: card.IntervalDays,
	}
	next, err := scheduler.Next(state, quality)
	if err != nil {
		return err
	}

	now := s.clk.Now()
	due := scheduler.DueAt(now, next.IntervalDays)

	updated := *card
	updated.Repetitions = next.Repetitions
	updated.EaseFactor = next.EaseFactor
	updated.IntervalDays = next.IntervalDays
	updated.NextReviewAt = &due
	updated.LastReviewAt = &now
	updated.TotalReviews++
	if quality >= scheduler.PassingQuality {
		updated.CorrectReviews++
	}
	updated.ModifiedAt = now
	updated.Synced = false

	event := models.ReviewEvent{
		ID:           uuid.NewString(),
		CardID:       card.ID,
		Quality:      quality,
		Repetitions:  next.Repetitions,
		EaseFactor:   next.EaseFactor,
		IntervalDays: next.IntervalDays,
		ReviewedAt:   now,
	}

	if err := s.reviews.Record(ctx, updated, event); err != nil {
		log.Error("failed to record review: %v", err)
		return errors.NewStorageError(err)
	}

	if err := sess.Advance(quality, updated); err != nil {
		return err
	}

	s.bus.Emit(events.CardReviewed, event)
	log.Debug("card answered: id=%s, quality=%d, next_interval=%d days", card.ID, quality, next.IntervalDays)
	return nil
}

func (s *studyService) IsComplete(ctx context.Context) bool {
	sess := s.activeSession()
	return sess == nil || sess.Complete()
}

func (s *studyService) EndSession(ctx context.Context) (*models.SessionSummary, error) {
	sess := s.activeSession()
	if sess == nil {
		return nil, errors.NewNotFoundError("session", "active")
	}
	summary := sess.End()
	s.bus.Emit(events.SessionEnded, summary)
	logger.FromContext(ctx).Info("study session ended: reviewed=%d, accuracy=%.1f%%",
		summary.Stats.Reviewed, summary.Accuracy)
	return &summary, nil
}

// GetStats recomputes durable counters from the store and attaches the
// in-memory session counters only when a session is in progress.
func (s *studyService) GetStats(ctx context.Context) (*models.StudyStats, error) {
	now := s.clk.Now()

	all, err := s.cards.All(ctx)
	if err != nil {
		return nil, errors.NewStorageError(err)
	}
	due, err := s.cards.Due(ctx, now, 0)
	if err != nil {
		return nil, errors.NewStorageError(err)
	}
	today, err := s.reviews.CountsSince(ctx, startOfDay(now))
	if err != nil {
		return nil, errors.NewStorageError(err)
	}

	stats := &models.StudyStats{
		TotalCards:      len(all),
		DueCount:        len(due),
		ReviewedToday:   today.Reviewed,
		NewLearnedToday: today.NewLearned,
	}
	if sess := s.activeSession(); sess != nil && sess.State() == session.InProgress {
		sessionStats := sess.Stats()
		stats.Session = &sessionStats
	}
	return stats, nil
}

func (s *studyService) activeSession() *session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
