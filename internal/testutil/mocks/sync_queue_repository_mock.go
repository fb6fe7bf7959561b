package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/dmateus/lexflash/internal/models"
)

// MockSyncQueueRepository is a mock implementation of repository.SyncQueueRepository
type MockSyncQueueRepository struct {
	mock.Mock
}

func (m *MockSyncQueueRepository) Enqueue(ctx context.Context, item models.SyncItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockSyncQueueRepository) Pending(ctx context.Context) ([]models.SyncItem, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SyncItem), args.Error(1)
}

func (m *MockSyncQueueRepository) RecordAttempt(ctx context.Context, id string, attemptErr string) error {
	args := m.Called(ctx, id, attemptErr)
	return args.Error(0)
}

func (m *MockSyncQueueRepository) MarkCompleted(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSyncQueueRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

func (m *MockSyncQueueRepository) PurgeCompleted(ctx context.Context, olderThan time.Time) error {
	args := m.Called(ctx, olderThan)
	return args.Error(0)
}
