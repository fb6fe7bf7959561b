package sqlite_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/dmateus/lexflash/internal/models"
	"github.com/dmateus/lexflash/internal/repository"
	"github.com/dmateus/lexflash/internal/repository/sqlite"
	"github.com/dmateus/lexflash/internal/testutil"
)

type SettingsRepositorySuite struct {
	suite.Suite
	db   *sql.DB
	repo repository.SettingsRepository
	now  time.Time
}

func (s *SettingsRepositorySuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	s.repo = sqlite.NewSettingsRepository(s.db)
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func (s *SettingsRepositorySuite) TearDownTest() {
	testutil.MustClose(s.T(), s.db)
}

func (s *SettingsRepositorySuite) TestPutAndGet() {
	ctx := context.Background()

	s.Require().NoError(s.repo.Put(ctx, models.Setting{Key: "daily_goal", Value: "20", ModifiedAt: s.now}))

	got, err := s.repo.Get(ctx, "daily_goal")
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Assert().Equal("20", got.Value)
	s.Assert().False(got.Synced)

	// Overwrite resets the dirty flag semantics to whatever the caller sets.
	s.Require().NoError(s.repo.Put(ctx, models.Setting{Key: "daily_goal", Value: "30", ModifiedAt: s.now.Add(time.Minute)}))

	got, err = s.repo.Get(ctx, "daily_goal")
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Assert().Equal("30", got.Value)
}

func (s *SettingsRepositorySuite) TestGetMissingReturnsNil() {
	got, err := s.repo.Get(context.Background(), "nope")
	s.Require().NoError(err)
	s.Assert().Nil(got)
}

func (s *SettingsRepositorySuite) TestUnsyncedAndMarkSynced() {
	ctx := context.Background()
	s.Require().NoError(s.repo.Put(ctx, models.Setting{Key: "a", Value: "1", ModifiedAt: s.now}))
	s.Require().NoError(s.repo.Put(ctx, models.Setting{Key: "b", Value: "2", ModifiedAt: s.now.Add(time.Minute)}))

	unsynced, err := s.repo.Unsynced(ctx)
	s.Require().NoError(err)
	s.Require().Len(unsynced, 2)
	s.Assert().Equal("a", unsynced[0].Key)

	s.Require().NoError(s.repo.MarkSynced(ctx, []string{"a", "b"}))

	unsynced, err = s.repo.Unsynced(ctx)
	s.Require().NoError(err)
	s.Assert().Empty(unsynced)
}

func TestSettingsRepositorySuite(t *testing.T) {
	suite.Run(t, new(SettingsRepositorySuite))
}
