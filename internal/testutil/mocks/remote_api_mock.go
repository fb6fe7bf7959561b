package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/dmateus/lexflash/internal/remote"
)

// MockRemoteAPI is a mock implementation of remote.API
type MockRemoteAPI struct {
	mock.Mock
}

func (m *MockRemoteAPI) UploadReviews(ctx context.Context, batch []remote.ReviewUpload) (*remote.BatchAck, error) {
	args := m.Called(ctx, batch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*remote.BatchAck), args.Error(1)
}

func (m *MockRemoteAPI) UploadCards(ctx context.Context, batch []remote.CardUpload) (*remote.BatchAck, error) {
	args := m.Called(ctx, batch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*remote.BatchAck), args.Error(1)
}

func (m *MockRemoteAPI) UploadSettings(ctx context.Context, batch []remote.SettingUpload) (*remote.BatchAck, error) {
	args := m.Called(ctx, batch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*remote.BatchAck), args.Error(1)
}

func (m *MockRemoteAPI) CardsUpdatedSince(ctx context.Context, since time.Time) ([]remote.RemoteCard, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]remote.RemoteCard), args.Error(1)
}

func (m *MockRemoteAPI) SubmitLessonProgress(ctx context.Context, record remote.ProgressRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockRemoteAPI) FetchProgress(ctx context.Context) (*remote.ProgressReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*remote.ProgressReport), args.Error(1)
}
