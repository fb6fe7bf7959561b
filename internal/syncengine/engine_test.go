package syncengine_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmateus/lexflash/internal/clock"
	"github.com/dmateus/lexflash/internal/connectivity"
	"github.com/dmateus/lexflash/internal/errors"
	"github.com/dmateus/lexflash/internal/events"
	"github.com/dmateus/lexflash/internal/models"
	"github.com/dmateus/lexflash/internal/remote"
	"github.com/dmateus/lexflash/internal/syncengine"
	"github.com/dmateus/lexflash/internal/testutil/mocks"
)

type engineFixture struct {
	cards    *mocks.MockCardRepository
	reviews  *mocks.MockReviewRepository
	settings *mocks.MockSettingsRepository
	queue    *mocks.MockSyncQueueRepository
	meta     *mocks.MockMetaRepository
	api      *mocks.MockRemoteAPI
	conn     *connectivity.Static
	bus      *events.Bus
	clk      *clock.Fake
	engine   *syncengine.Engine
}

func newEngineFixture(t *testing.T, policy syncengine.Policy) *engineFixture {
	t.Helper()
	f := &engineFixture{
		cards:    new(mocks.MockCardRepository),
		reviews:  new(mocks.MockReviewRepository),
		settings: new(mocks.MockSettingsRepository),
		queue:    new(mocks.MockSyncQueueRepository),
		meta:     new(mocks.MockMetaRepository),
		api:      new(mocks.MockRemoteAPI),
		conn:     connectivity.NewStatic(true),
		bus:      events.NewBus(),
		clk:      clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
	}
	f.engine = syncengine.New(syncengine.Deps{
		Cards:        f.cards,
		Reviews:      f.reviews,
		Settings:     f.settings,
		Queue:        f.queue,
		Meta:         f.meta,
		Remote:       f.api,
		Connectivity: f.conn,
		Bus:          f.bus,
		Clock:        f.clk,
		Policy:       policy,
	})
	return f
}

// expectCleanState sets up a fixture with nothing to upload, flush or download.
func (f *engineFixture) expectCleanState() {
	f.reviews.On("Unsynced", mock.Anything).Return([]models.ReviewEvent{}, nil)
	f.cards.On("Unsynced", mock.Anything).Return([]models.Card{}, nil)
	f.settings.On("Unsynced", mock.Anything).Return([]models.Setting{}, nil)
	f.queue.On("Pending", mock.Anything).Return([]models.SyncItem{}, nil)
	f.meta.On("LastSyncTime", mock.Anything).Return(f.clk.Now().Add(-time.Hour), nil)
	f.api.On("CardsUpdatedSince", mock.Anything, mock.Anything).Return([]remote.RemoteCard{}, nil)
	f.meta.On("SetLastSyncTime", mock.Anything, mock.Anything).Return(nil)
}

func TestSyncAll_NothingToDo(t *testing.T) {
	f := newEngineFixture(t, syncengine.PolicyNewestWins)
	f.expectCleanState()

	summary, err := f.engine.SyncAll(context.Background())
	require.NoError(t, err)

	assert.False(t, summary.Skipped)
	assert.Empty(t, summary.Uploaded)
	assert.Zero(t, summary.Downloaded)
	assert.Zero(t, summary.Conflicts)
	assert.Empty(t, summary.Errors)
	f.meta.AssertCalled(t, "SetLastSyncTime", mock.Anything, mock.Anything)
}

func TestSyncAll_SecondCycleIsIdempotent(t *testing.T) {
	f := newEngineFixture(t, syncengine.PolicyNewestWins)

	ev := models.ReviewEvent{ID: "r1", CardID: "c1", Quality: 4, ReviewedAt: f.clk.Now()}

	// First cycle: one unsynced review uploads and gets marked.
	f.reviews.On("Unsynced", mock.Anything).Return([]models.ReviewEvent{ev}, nil).Once()
	f.reviews.On("MarkSynced", mock.Anything, []string{"r1"}).Return(nil).Once()
	// Second cycle: nothing left.
	f.reviews.On("Unsynced", mock.Anything).Return([]models.ReviewEvent{}, nil).Once()

	f.cards.On("Unsynced", mock.Anything).Return([]models.Card{}, nil)
	f.settings.On("Unsynced", mock.Anything).Return([]models.Setting{}, nil)
	f.queue.On("Pending", mock.Anything).Return([]models.SyncItem{}, nil)
	f.meta.On("LastSyncTime", mock.Anything).Return(f.clk.Now().Add(-time.Hour), nil)
	f.meta.On("SetLastSyncTime", mock.Anything, mock.Anything).Return(nil)
	f.api.On("UploadReviews", mock.Anything, mock.Anything).Return(&remote.BatchAck{Accepted: 1}, nil).Once()
	f.api.On("CardsUpdatedSince", mock.Anything, mock.Anything).Return([]remote.RemoteCard{}, nil)

	first, err := f.engine.SyncAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Uploaded["reviews"])

	second, err := f.engine.SyncAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, second.Uploaded)
	assert.Zero(t, second.Downloaded)

	f.api.AssertNumberOfCalls(t, "UploadReviews", 1)
}

func TestSyncAll_OfflineSkips(t *testing.T) {
	f := newEngineFixture(t, syncengine.PolicyNewestWins)
	f.conn.Set(false)

	summary, err := f.engine.SyncAll(context.Background())
	require.NoError(t, err)

	assert.True(t, summary.Skipped)
	f.meta.AssertNotCalled(t, "SetLastSyncTime", mock.Anything, mock.Anything)
	f.api.AssertNotCalled(t, "CardsUpdatedSince", mock.Anything, mock.Anything)
}

func TestSyncAll_ReentrancyGuard(t *testing.T) {
	f := newEngineFixture(t, syncengine.PolicyNewestWins)

	started := make(chan struct{})
	release := make(chan struct{})

	f.reviews.On("Unsynced", mock.Anything).Run(func(mock.Arguments) {
		close(started)
		<-release
	}).Return([]models.ReviewEvent{}, nil)
	f.cards.On("Unsynced", mock.Anything).Return([]models.Card{}, nil)
	f.settings.On("Unsynced", mock.Anything).Return([]models.Setting{}, nil)
	f.queue.On("Pending", mock.Anything).Return([]models.SyncItem{}, nil)
	f.meta.On("LastSyncTime", mock.Anything).Return(time.Time{}, nil)
	f.meta.On("SetLastSyncTime", mock.Anything, mock.Anything).Return(nil)
	f.api.On("CardsUpdatedSince", mock.Anything, mock.Anything).Return([]remote.RemoteCard{}, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := f.engine.SyncAll(context.Background())
		assert.NoError(t, err)
	}()

	<-started
	// A second call while the first cycle holds the guard is a no-op.
	summary, err := f.engine.SyncAll(context.Background())
	require.NoError(t, err)
	assert.True(t, summary.Skipped)

	close(release)
	wg.Wait()
}

func TestSyncAll_ConflictNewestWins(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		localMod   time.Time
		remoteMod  time.Time
		wantUpsert bool
	}{
		{"local newer keeps local", base.Add(time.Hour), base, false},
		{"remote newer takes remote", base, base.Add(time.Hour), true},
		{"tie goes to server", base, base, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEngineFixture(t, syncengine.PolicyNewestWins)

			local := models.Card{ID: "c1", Front: "hola", Back: "hello", ModifiedAt: tt.localMod, Synced: false}
			rc := remote.RemoteCard{ID: "c1", Front: "hola", Back: "hi", UpdatedAt: tt.remoteMod}

			f.reviews.On("Unsynced", mock.Anything).Return([]models.ReviewEvent{}, nil)
			f.cards.On("Unsynced", mock.Anything).Return([]models.Card{local}, nil)
			f.cards.On("Get", mock.Anything, "c1").Return(&local, nil)
			f.cards.On("MarkSynced", mock.Anything, []string{}).Return(nil)
			if tt.wantUpsert {
				f.cards.On("Upsert", mock.Anything, mock.MatchedBy(func(c models.Card) bool {
					return c.ID == "c1" && c.Back == "hi" && c.Synced
				})).Return(nil)
			}
			f.settings.On("Unsynced", mock.Anything).Return([]models.Setting{}, nil)
			f.queue.On("Pending", mock.Anything).Return([]models.SyncItem{}, nil)
			f.meta.On("LastSyncTime", mock.Anything).Return(base.Add(-time.Hour), nil)
			f.meta.On("SetLastSyncTime", mock.Anything, mock.Anything).Return(nil)
			f.api.On("UploadCards", mock.Anything, mock.Anything).
				Return(&remote.BatchAck{Conflicts: []remote.Conflict{{ID: "c1", Remote: rc}}}, nil)
			f.api.On("CardsUpdatedSince", mock.Anything, mock.Anything).Return([]remote.RemoteCard{}, nil)

			summary, err := f.engine.SyncAll(context.Background())
			require.NoError(t, err)

			assert.Equal(t, 1, summary.Conflicts)
			if tt.wantUpsert {
				f.cards.AssertCalled(t, "Upsert", mock.Anything, mock.Anything)
			} else {
				f.cards.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestSyncAll_ConflictPolicies(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		policy     syncengine.Policy
		wantUpsert bool
	}{
		// Local is newer, yet server-wins still overwrites it.
		{syncengine.PolicyServerWins, true},
		// Remote is reported as conflicting, yet client-wins keeps local.
		{syncengine.PolicyClientWins, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			f := newEngineFixture(t, tt.policy)

			local := models.Card{ID: "c1", ModifiedAt: base.Add(time.Hour), Synced: false}
			rc := remote.RemoteCard{ID: "c1", UpdatedAt: base}

			f.reviews.On("Unsynced", mock.Anything).Return([]models.ReviewEvent{}, nil)
			f.cards.On("Unsynced", mock.Anything).Return([]models.Card{local}, nil)
			f.cards.On("Get", mock.Anything, "c1").Return(&local, nil)
			f.cards.On("MarkSynced", mock.Anything, []string{}).Return(nil)
			f.cards.On("Upsert", mock.Anything, mock.Anything).Return(nil)
			f.settings.On("Unsynced", mock.Anything).Return([]models.Setting{}, nil)
			f.queue.On("Pending", mock.Anything).Return([]models.SyncItem{}, nil)
			f.meta.On("LastSyncTime", mock.Anything).Return(base.Add(-time.Hour), nil)
			f.meta.On("SetLastSyncTime", mock.Anything, mock.Anything).Return(nil)
			f.api.On("UploadCards", mock.Anything, mock.Anything).
				Return(&remote.BatchAck{Conflicts: []remote.Conflict{{ID: "c1", Remote: rc}}}, nil)
			f.api.On("CardsUpdatedSince", mock.Anything, mock.Anything).Return([]remote.RemoteCard{}, nil)

			_, err := f.engine.SyncAll(context.Background())
			require.NoError(t, err)

			if tt.wantUpsert {
				f.cards.AssertCalled(t, "Upsert", mock.Anything, mock.Anything)
			} else {
				f.cards.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestSyncAll_CategoryErrorsAreIsolated(t *testing.T) {
	f := newEngineFixture(t, syncengine.PolicyNewestWins)

	ev := models.ReviewEvent{ID: "r1", CardID: "c1", Quality: 3, ReviewedAt: f.clk.Now()}
	setting := models.Setting{Key: "daily_goal", Value: "20", ModifiedAt: f.clk.Now()}

	f.reviews.On("Unsynced", mock.Anything).Return([]models.ReviewEvent{ev}, nil)
	f.api.On("UploadReviews", mock.Anything, mock.Anything).
		Return(nil, errors.NewNetworkError(assert.AnError))

	f.cards.On("Unsynced", mock.Anything).Return([]models.Card{}, nil)
	f.settings.On("Unsynced", mock.Anything).Return([]models.Setting{setting}, nil)
	f.settings.On("MarkSynced", mock.Anything, []string{"daily_goal"}).Return(nil)
	f.api.On("UploadSettings", mock.Anything, mock.Anything).Return(&remote.BatchAck{Accepted: 1}, nil)
	f.queue.On("Pending", mock.Anything).Return([]models.SyncItem{}, nil)
	f.meta.On("LastSyncTime", mock.Anything).Return(time.Time{}, nil)
	f.meta.On("SetLastSyncTime", mock.Anything, mock.Anything).Return(nil)
	f.api.On("CardsUpdatedSince", mock.Anything, mock.Anything).Return([]remote.RemoteCard{}, nil)

	summary, err := f.engine.SyncAll(context.Background())
	require.NoError(t, err)

	// The reviews failure is recorded but settings still uploaded and the
	// watermark still advanced.
	assert.Len(t, summary.Errors, 1)
	assert.Equal(t, 1, summary.Uploaded["settings"])
	f.reviews.AssertNotCalled(t, "MarkSynced", mock.Anything, mock.Anything)
	f.meta.AssertCalled(t, "SetLastSyncTime", mock.Anything, mock.Anything)
}

func TestSyncAll_DownloadUpsertsCleanCards(t *testing.T) {
	f := newEngineFixture(t, syncengine.PolicyNewestWins)

	rc := remote.RemoteCard{ID: "c9", Front: "gato", Back: "cat", UpdatedAt: f.clk.Now()}

	f.reviews.On("Unsynced", mock.Anything).Return([]models.ReviewEvent{}, nil)
	f.cards.On("Unsynced", mock.Anything).Return([]models.Card{}, nil)
	f.settings.On("Unsynced", mock.Anything).Return([]models.Setting{}, nil)
	f.queue.On("Pending", mock.Anything).Return([]models.SyncItem{}, nil)
	f.meta.On("LastSyncTime", mock.Anything).Return(f.clk.Now().Add(-time.Hour), nil)
	f.meta.On("SetLastSyncTime", mock.Anything, mock.Anything).Return(nil)
	f.api.On("CardsUpdatedSince", mock.Anything, mock.Anything).Return([]remote.RemoteCard{rc}, nil)
	f.cards.On("Get", mock.Anything, "c9").Return(nil, nil)
	f.cards.On("Upsert", mock.Anything, mock.MatchedBy(func(c models.Card) bool {
		return c.ID == "c9" && c.Synced
	})).Return(nil)

	summary, err := f.engine.SyncAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Downloaded)
	assert.Zero(t, summary.Conflicts)
}

func TestSubmitProgress_OfflineQueues(t *testing.T) {
	f := newEngineFixture(t, syncengine.PolicyNewestWins)
	f.conn.Set(false)

	record := remote.ProgressRecord{LessonID: "l1", Kind: "lesson", Score: 90, CompletedAt: f.clk.Now()}
	f.queue.On("Enqueue", mock.Anything, mock.MatchedBy(func(item models.SyncItem) bool {
		var got remote.ProgressRecord
		if err := json.Unmarshal(item.Payload, &got); err != nil {
			return false
		}
		return item.Kind == models.SyncKindProgress && item.Status == models.SyncStatusPending && got.LessonID == "l1"
	})).Return(nil)

	err := f.engine.SubmitProgress(context.Background(), record)
	require.NoError(t, err)

	f.api.AssertNotCalled(t, "SubmitLessonProgress", mock.Anything, mock.Anything)
	f.queue.AssertExpectations(t)
}

func TestSubmitProgress_RetryableFailureQueues(t *testing.T) {
	f := newEngineFixture(t, syncengine.PolicyNewestWins)

	record := remote.ProgressRecord{LessonID: "l1", Kind: "lesson", Score: 90, CompletedAt: f.clk.Now()}
	f.api.On("SubmitLessonProgress", mock.Anything, record).
		Return(errors.NewNetworkError(assert.AnError))
	f.queue.On("Enqueue", mock.Anything, mock.Anything).Return(nil)

	err := f.engine.SubmitProgress(context.Background(), record)
	require.NoError(t, err)
	f.queue.AssertCalled(t, "Enqueue", mock.Anything, mock.Anything)
}

func TestSubmitProgress_PermanentRejectionSurfaces(t *testing.T) {
	f := newEngineFixture(t, syncengine.PolicyNewestWins)

	record := remote.ProgressRecord{LessonID: "l1", Kind: "lesson", Score: 120, CompletedAt: f.clk.Now()}
	f.api.On("SubmitLessonProgress", mock.Anything, record).
		Return(errors.NewServerRejectedError(422, "INVALID_SCORE", "score out of range"))

	err := f.engine.SubmitProgress(context.Background(), record)
	require.Error(t, err)
	assert.False(t, errors.Retryable(err))
	f.queue.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
}

func queuedProgressItem(t *testing.T, id string) models.SyncItem {
	t.Helper()
	payload, err := json.Marshal(remote.ProgressRecord{LessonID: "l1", Kind: "lesson", Score: 80})
	require.NoError(t, err)
	return models.SyncItem{
		ID:      id,
		Kind:    models.SyncKindProgress,
		Payload: payload,
		Status:  models.SyncStatusPending,
	}
}

func TestSyncAll_QueueFlushCompletes(t *testing.T) {
	f := newEngineFixture(t, syncengine.PolicyNewestWins)
	f.expectCleanState()

	item := queuedProgressItem(t, "q1")
	f.queue.ExpectedCalls = nil
	f.queue.On("Pending", mock.Anything).Return([]models.SyncItem{item}, nil)
	f.queue.On("MarkCompleted", mock.Anything, "q1").Return(nil)
	f.queue.On("PurgeCompleted", mock.Anything, mock.Anything).Return(nil)
	f.api.On("SubmitLessonProgress", mock.Anything, mock.Anything).Return(nil)

	summary, err := f.engine.SyncAll(context.Background())
	require.NoError(t, err)

	assert.Empty(t, summary.Errors)
	f.queue.AssertCalled(t, "MarkCompleted", mock.Anything, "q1")
	f.queue.AssertCalled(t, "PurgeCompleted", mock.Anything, mock.Anything)
}

func TestSyncAll_QueueFlushRetryableStaysPending(t *testing.T) {
	f := newEngineFixture(t, syncengine.PolicyNewestWins)
	f.expectCleanState()

	item := queuedProgressItem(t, "q1")
	f.queue.ExpectedCalls = nil
	f.queue.On("Pending", mock.Anything).Return([]models.SyncItem{item}, nil)
	f.queue.On("RecordAttempt", mock.Anything, "q1", mock.Anything).Return(nil)
	f.queue.On("PurgeCompleted", mock.Anything, mock.Anything).Return(nil)
	f.api.On("SubmitLessonProgress", mock.Anything, mock.Anything).
		Return(errors.NewNetworkError(assert.AnError))

	_, err := f.engine.SyncAll(context.Background())
	require.NoError(t, err)

	f.queue.AssertCalled(t, "RecordAttempt", mock.Anything, "q1", mock.Anything)
	f.queue.AssertNotCalled(t, "MarkCompleted", mock.Anything, mock.Anything)
	f.queue.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything)
}

func TestSyncAll_QueueFlushPermanentFailureMarksFailed(t *testing.T) {
	f := newEngineFixture(t, syncengine.PolicyNewestWins)
	f.expectCleanState()

	item := queuedProgressItem(t, "q1")
	f.queue.ExpectedCalls = nil
	f.queue.On("Pending", mock.Anything).Return([]models.SyncItem{item}, nil)
	f.queue.On("MarkFailed", mock.Anything, "q1", mock.Anything).Return(nil)
	f.queue.On("PurgeCompleted", mock.Anything, mock.Anything).Return(nil)
	f.api.On("SubmitLessonProgress", mock.Anything, mock.Anything).
		Return(errors.NewServerRejectedError(400, "BAD_RECORD", "malformed"))

	var rejected []events.Event
	f.bus.Subscribe(events.SyncItemRejected, func(ev events.Event) {
		rejected = append(rejected, ev)
	})

	summary, err := f.engine.SyncAll(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, summary.Errors)
	assert.Len(t, rejected, 1)
	f.queue.AssertCalled(t, "MarkFailed", mock.Anything, "q1", mock.Anything)
	f.queue.AssertNotCalled(t, "RecordAttempt", mock.Anything, mock.Anything, mock.Anything)
}

func TestStatus(t *testing.T) {
	f := newEngineFixture(t, syncengine.PolicyNewestWins)

	last := f.clk.Now().Add(-30 * time.Minute)
	f.meta.On("LastSyncTime", mock.Anything).Return(last, nil)
	f.queue.On("Pending", mock.Anything).Return([]models.SyncItem{queuedProgressItem(t, "q1")}, nil)

	status, err := f.engine.Status(context.Background())
	require.NoError(t, err)

	assert.False(t, status.Syncing)
	assert.True(t, status.Online)
	assert.Equal(t, last, status.LastSyncTime)
	assert.Equal(t, 1, status.PendingQueue)
	assert.Nil(t, status.LastSummary)
}
