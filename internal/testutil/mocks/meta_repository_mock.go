package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockMetaRepository is a mock implementation of repository.MetaRepository
type MockMetaRepository struct {
	mock.Mock
}

func (m *MockMetaRepository) LastSyncTime(ctx context.Context) (time.Time, error) {
	args := m.Called(ctx)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *MockMetaRepository) SetLastSyncTime(ctx context.Context, t time.Time) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}
