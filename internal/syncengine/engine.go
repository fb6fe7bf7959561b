package syncengine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dmateus/lexflash/internal/clock"
	"github.com/dmateus/lexflash/internal/connectivity"
	"github.com/dmateus/lexflash/internal/errors"
	"github.com/dmateus/lexflash/internal/events"
	"github.com/dmateus/lexflash/internal/logger"
	"github.com/dmateus/lexflash/internal/models"
	"github.com/dmateus/lexflash/internal/remote"
	"github.com/dmateus/lexflash/internal/repository"
)

// Policy decides which side wins when local and remote versions of a record
// diverged since the last sync.
type Policy string

const (
	PolicyServerWins Policy = "server-wins"
	PolicyClientWins Policy = "client-wins"
	// PolicyNewestWins compares modification timestamps; the server wins ties.
	PolicyNewestWins Policy = "newest-wins"
)

// ParsePolicy maps a config string to a Policy, defaulting to newest-wins.
func ParsePolicy(s string) Policy {
	switch Policy(s) {
	case PolicyServerWins, PolicyClientWins, PolicyNewestWins:
		return Policy(s)
	default:
		return PolicyNewestWins
	}
}

const defaultBatchSize = 50

// Upload categories.
const (
	categoryReviews  = "reviews"
	categoryCards    = "cards"
	categorySettings = "settings"
)

// Summary describes one sync cycle.
type Summary struct {
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Uploaded   map[string]int `json:"uploaded"`
	Downloaded int            `json:"downloaded"`
	Conflicts  int            `json:"conflicts"`
	Errors     []string       `json:"errors,omitempty"`
	Skipped    bool           `json:"skipped"`
}

// Status is the externally visible sync state.
type Status struct {
	Syncing      bool      `json:"syncing"`
	Online       bool      `json:"online"`
	LastSyncTime time.Time `json:"last_sync_time"`
	PendingQueue int       `json:"pending_queue"`
	LastSummary  *Summary  `json:"last_summary,omitempty"`
}

// ConflictResolution is the payload emitted on the event bus for every
// resolved conflict.
type ConflictResolution struct {
	CardID    string `json:"card_id"`
	KeptLocal bool   `json:"kept_local"`
	Policy    Policy `json:"policy"`
}

// Deps wires the engine's collaborators.
type Deps struct {
	Cards        repository.CardRepository
	Reviews      repository.ReviewRepository
	Settings     repository.SettingsRepository
	Queue        repository.SyncQueueRepository
	Meta         repository.MetaRepository
	Remote       remote.API
	Connectivity connectivity.Provider
	Bus          *events.Bus
	Clock        clock.Clock
	Policy       Policy
	BatchSize    int
}

// Engine reconciles local state with the remote progress server. One cycle
// runs upload, conflict resolution, download and finalize phases; each phase
// isolates its own errors so one category's failure never blocks the rest.
type Engine struct {
	cards     repository.CardRepository
	reviews   repository.ReviewRepository
	settings  repository.SettingsRepository
	queue     repository.SyncQueueRepository
	meta      repository.MetaRepository
	remote    remote.API
	conn      connectivity.Provider
	bus       *events.Bus
	clk       clock.Clock
	policy    Policy
	batchSize int

	syncing atomic.Bool

	mu          sync.Mutex
	lastSummary *Summary

	log *logger.Logger
}

// New creates an Engine with defaults filled in for optional deps.
func New(d Deps) *Engine {
	if d.Clock == nil {
		d.Clock = clock.System()
	}
	if d.Bus == nil {
		d.Bus = events.NewBus()
	}
	if d.BatchSize <= 0 {
		d.BatchSize = defaultBatchSize
	}
	if d.Policy == "" {
		d.Policy = PolicyNewestWins
	}
	return &Engine{
		cards:     d.Cards,
		reviews:   d.Reviews,
		settings:  d.Settings,
		queue:     d.Queue,
		meta:      d.Meta,
		remote:    d.Remote,
		conn:      d.Connectivity,
		bus:       d.Bus,
		clk:       d.Clock,
		policy:    d.Policy,
		batchSize: d.BatchSize,
		log:       logger.Default().WithPrefix("sync"),
	}
}

// SyncAll runs one full sync cycle. A call while another cycle is running is
// a no-op, as is a call while offline; neither advances the last sync time.
func (e *Engine) SyncAll(ctx context.Context) (*Summary, error) {
	if !e.syncing.CompareAndSwap(false, true) {
		e.log.Debug("sync already in progress, skipping")
		return &Summary{Skipped: true}, nil
	}
	defer e.syncing.Store(false)

	if !e.conn.Online() {
		e.log.Warn("offline, skipping sync cycle")
		return &Summary{Skipped: true}, nil
	}

	summary := &Summary{
		StartedAt: e.clk.Now(),
		Uploaded:  map[string]int{},
	}
	e.bus.Emit(events.SyncStarted, nil)
	e.log.Info("sync cycle started")

	// Phase 1+2: upload per category, resolving any reported conflicts.
	// Each category records its own errors and never blocks the others.
	e.uploadReviews(ctx, summary)
	e.uploadCards(ctx, summary)
	e.uploadSettings(ctx, summary)

	// Flush the offline outbox while we know the network is reachable.
	e.flushQueue(ctx, summary)

	// Phase 3: download.
	e.download(ctx, summary)

	// Phase 4: finalize. The cycle ran, so the watermark advances even when
	// individual categories recorded errors.
	now := e.clk.Now()
	if err := e.meta.SetLastSyncTime(ctx, now); err != nil {
		e.recordError(summary, "finalize", err)
	}
	summary.FinishedAt = now

	e.mu.Lock()
	e.lastSummary = summary
	e.mu.Unlock()

	e.bus.Emit(events.SyncCompleted, summary)
	e.log.Info("sync cycle finished: uploaded=%v, downloaded=%d, conflicts=%d, errors=%d",
		summary.Uploaded, summary.Downloaded, summary.Conflicts, len(summary.Errors))
	return summary, nil
}

// Status reports the engine's current state.
func (e *Engine) Status(ctx context.Context) (*Status, error) {
	last, err := e.meta.LastSyncTime(ctx)
	if err != nil {
		return nil, errors.NewStorageError(err)
	}
	pending, err := e.queue.Pending(ctx)
	if err != nil {
		return nil, errors.NewStorageError(err)
	}
	e.mu.Lock()
	summary := e.lastSummary
	e.mu.Unlock()
	return &Status{
		Syncing:      e.syncing.Load(),
		Online:       e.conn.Online(),
		LastSyncTime: last,
		PendingQueue: len(pending),
		LastSummary:  summary,
	}, nil
}

func (e *Engine) uploadReviews(ctx context.Context, summary *Summary) {
	pending, err := e.reviews.Unsynced(ctx)
	if err != nil {
		e.recordError(summary, categoryReviews, err)
		return
	}
	for start := 0; start < len(pending); start += e.batchSize {
		end := min(start+e.batchSize, len(pending))
		batch := pending[start:end]

		uploads := make([]remote.ReviewUpload, len(batch))
		ids := make([]string, len(batch))
		for i, ev := range batch {
			uploads[i] = remote.ReviewUpload{
				ID:           ev.ID,
				CardID:       ev.CardID,
				Quality:      ev.Quality,
				Repetitions:  ev.Repetitions,
				EaseFactor:   ev.EaseFactor,
				IntervalDays: ev.IntervalDays,
				ReviewedAt:   ev.ReviewedAt,
			}
			ids[i] = ev.ID
		}

		ack, err := e.remote.UploadReviews(ctx, uploads)
		if err != nil {
			// Records stay unsynced and retry next cycle.
			e.recordError(summary, categoryReviews, err)
			return
		}
		if err := e.reviews.MarkSynced(ctx, ids); err != nil {
			e.recordError(summary, categoryReviews, err)
			return
		}
		summary.Uploaded[categoryReviews] += len(batch)
		e.resolveConflicts(ctx, ack.Conflicts, summary)
	}
}

func (e *Engine) uploadCards(ctx context.Context, summary *Summary) {
	pending, err := e.cards.Unsynced(ctx)
	if err != nil {
		e.recordError(summary, categoryCards, err)
		return
	}
	for start := 0; start < len(pending); start += e.batchSize {
		end := min(start+e.batchSize, len(pending))
		batch := pending[start:end]

		uploads := make([]remote.CardUpload, len(batch))
		ids := make([]string, len(batch))
		conflicted := map[string]bool{}
		for i, c := range batch {
			uploads[i] = remote.CardUpload{
				ID:             c.ID,
				Front:          c.Front,
				Back:           c.Back,
				Repetitions:    c.Repetitions,
				EaseFactor:     c.EaseFactor,
				IntervalDays:   c.IntervalDays,
				NextReviewAt:   c.NextReviewAt,
				LastReviewAt:   c.LastReviewAt,
				TotalReviews:   c.TotalReviews,
				CorrectReviews: c.CorrectReviews,
				ModifiedAt:     c.ModifiedAt,
			}
			ids[i] = c.ID
		}

		ack, err := e.remote.UploadCards(ctx, uploads)
		if err != nil {
			e.recordError(summary, categoryCards, err)
			return
		}
		for _, conflict := range ack.Conflicts {
			conflicted[conflict.ID] = true
		}
		// Conflicted cards are settled by the resolver, not blanket-marked.
		accepted := ids[:0]
		for _, id := range ids {
			if !conflicted[id] {
				accepted = append(accepted, id)
			}
		}
		if err := e.cards.MarkSynced(ctx, accepted); err != nil {
			e.recordError(summary, categoryCards, err)
			return
		}
		summary.Uploaded[categoryCards] += len(accepted)
		e.resolveConflicts(ctx, ack.Conflicts, summary)
	}
}

func (e *Engine) uploadSettings(ctx context.Context, summary *Summary) {
	pending, err := e.settings.Unsynced(ctx)
	if err != nil {
		e.recordError(summary, categorySettings, err)
		return
	}
	for start := 0; start < len(pending); start += e.batchSize {
		end := min(start+e.batchSize, len(pending))
		batch := pending[start:end]

		uploads := make([]remote.SettingUpload, len(batch))
		keys := make([]string, len(batch))
		for i, s := range batch {
			uploads[i] = remote.SettingUpload{Key: s.Key, Value: s.Value, ModifiedAt: s.ModifiedAt}
			keys[i] = s.Key
		}

		if _, err := e.remote.UploadSettings(ctx, uploads); err != nil {
			e.recordError(summary, categorySettings, err)
			return
		}
		if err := e.settings.MarkSynced(ctx, keys); err != nil {
			e.recordError(summary, categorySettings, err)
			return
		}
		summary.Uploaded[categorySettings] += len(batch)
	}
}

func (e *Engine) download(ctx context.Context, summary *Summary) {
	since, err := e.meta.LastSyncTime(ctx)
	if err != nil {
		e.recordError(summary, "download", err)
		return
	}
	incoming, err := e.remote.CardsUpdatedSince(ctx, since)
	if err != nil {
		e.recordError(summary, "download", err)
		return
	}
	for _, rc := range incoming {
		local, err := e.cards.Get(ctx, rc.ID)
		if err != nil {
			e.recordError(summary, "download", err)
			continue
		}
		if local != nil && !local.Synced {
			// Dirty local copy: same conflict policy as upload conflicts.
			e.resolveConflict(ctx, *local, rc, summary)
			continue
		}
		card := e.fromRemote(rc, local)
		if err := e.cards.Upsert(ctx, card); err != nil {
			e.recordError(summary, "download", err)
			continue
		}
		summary.Downloaded++
	}
}

func (e *Engine) resolveConflicts(ctx context.Context, conflicts []remote.Conflict, summary *Summary) {
	for _, conflict := range conflicts {
		local, err := e.cards.Get(ctx, conflict.ID)
		if err != nil {
			e.recordError(summary, "conflict", err)
			continue
		}
		if local == nil {
			// Nothing local to defend: take the server version.
			card := e.fromRemote(conflict.Remote, nil)
			if err := e.cards.Upsert(ctx, card); err != nil {
				e.recordError(summary, "conflict", err)
			}
			summary.Conflicts++
			continue
		}
		e.resolveConflict(ctx, *local, conflict.Remote, summary)
	}
}

func (e *Engine) resolveConflict(ctx context.Context, local models.Card, rc remote.RemoteCard, summary *Summary) {
	summary.Conflicts++

	keepLocal := false
	switch e.policy {
	case PolicyClientWins:
		keepLocal = true
	case PolicyServerWins:
		keepLocal = false
	default: // newest-wins, server wins ties
		keepLocal = local.ModifiedAt.After(rc.UpdatedAt)
	}

	e.log.Debug("conflict on card %s: policy=%s, kept_local=%t", local.ID, e.policy, keepLocal)
	e.bus.Emit(events.SyncConflict, ConflictResolution{CardID: local.ID, KeptLocal: keepLocal, Policy: e.policy})

	if keepLocal {
		// The local copy stays dirty and re-uploads next cycle.
		return
	}
	card := e.fromRemote(rc, &local)
	if err := e.cards.Upsert(ctx, card); err != nil {
		e.recordError(summary, "conflict", err)
	}
}

func (e *Engine) fromRemote(rc remote.RemoteCard, local *models.Card) models.Card {
	card := models.Card{
		ID:             rc.ID,
		Front:          rc.Front,
		Back:           rc.Back,
		Repetitions:    rc.Repetitions,
		EaseFactor:     rc.EaseFactor,
		IntervalDays:   rc.IntervalDays,
		NextReviewAt:   rc.NextReviewAt,
		LastReviewAt:   rc.LastReviewAt,
		TotalReviews:   rc.TotalReviews,
		CorrectReviews: rc.CorrectReviews,
		ModifiedAt:     rc.UpdatedAt,
		Synced:         true,
		CreatedAt:      rc.UpdatedAt,
	}
	if local != nil {
		card.CreatedAt = local.CreatedAt
	}
	return card
}

// SubmitProgress reports a finished lesson/practice unit. While offline, or
// on a retryable failure, the record lands in the durable outbox and the call
// still succeeds; only permanent server rejections surface as errors.
func (e *Engine) SubmitProgress(ctx context.Context, record remote.ProgressRecord) error {
	if !e.conn.Online() {
		e.log.Debug("offline, queueing progress record: lesson=%s", record.LessonID)
		return e.enqueue(ctx, models.SyncKindProgress, record)
	}
	err := e.remote.SubmitLessonProgress(ctx, record)
	if err == nil {
		return nil
	}
	if errors.Retryable(err) {
		e.log.Warn("progress submit failed, queueing for retry: %v", err)
		return e.enqueue(ctx, models.SyncKindProgress, record)
	}
	return err
}

func (e *Engine) enqueue(ctx context.Context, kind string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return errors.NewInvalidInputError("payload", err.Error())
	}
	now := e.clk.Now()
	item := models.SyncItem{
		ID:        uuid.NewString(),
		Kind:      kind,
		Payload:   raw,
		Status:    models.SyncStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.queue.Enqueue(ctx, item); err != nil {
		return errors.NewStorageError(err)
	}
	return nil
}

// flushQueue drains the offline outbox. Retryable failures leave items
// pending; permanent rejections mark them failed and surface an event.
func (e *Engine) flushQueue(ctx context.Context, summary *Summary) {
	items, err := e.queue.Pending(ctx)
	if err != nil {
		e.recordError(summary, "queue", err)
		return
	}
	if len(items) == 0 {
		return
	}
	e.log.Info("flushing %d queued items", len(items))

	for _, item := range items {
		if err := e.dispatchQueued(ctx, item); err != nil {
			if errors.Retryable(err) {
				if err := e.queue.RecordAttempt(ctx, item.ID, err.Error()); err != nil {
					e.recordError(summary, "queue", err)
				}
				continue
			}
			// Non-retryable: never re-queued, surfaced as a permanent error.
			if err := e.queue.MarkFailed(ctx, item.ID, err.Error()); err != nil {
				e.recordError(summary, "queue", err)
			}
			e.bus.Emit(events.SyncItemRejected, item)
			e.recordError(summary, "queue", err)
			continue
		}
		if err := e.queue.MarkCompleted(ctx, item.ID); err != nil {
			e.recordError(summary, "queue", err)
		}
	}

	// Acknowledged items older than a day are of no further use.
	if err := e.queue.PurgeCompleted(ctx, e.clk.Now().Add(-24*time.Hour)); err != nil {
		e.recordError(summary, "queue", err)
	}
}

func (e *Engine) dispatchQueued(ctx context.Context, item models.SyncItem) error {
	switch item.Kind {
	case models.SyncKindProgress:
		var record remote.ProgressRecord
		if err := json.Unmarshal(item.Payload, &record); err != nil {
			return errors.NewInvalidInputError("queued payload", err.Error())
		}
		return e.remote.SubmitLessonProgress(ctx, record)
	default:
		return errors.NewInvalidInputError("queued item", fmt.Sprintf("unknown kind %q", item.Kind))
	}
}

func (e *Engine) recordError(summary *Summary, scope string, err error) {
	e.log.Warn("%s phase error: %v", scope, err)
	summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", scope, err))
}
