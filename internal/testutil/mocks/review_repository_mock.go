package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/dmateus/lexflash/internal/models"
)

// MockReviewRepository is a mock implementation of repository.ReviewRepository
type MockReviewRepository struct {
	mock.Mock
}

func (m *MockReviewRepository) Record(ctx context.Context, card models.Card, event models.ReviewEvent) error {
	args := m.Called(ctx, card, event)
	return args.Error(0)
}

func (m *MockReviewRepository) ByCard(ctx context.Context, cardID string) ([]models.ReviewEvent, error) {
	args := m.Called(ctx, cardID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ReviewEvent), args.Error(1)
}

func (m *MockReviewRepository) Unsynced(ctx context.Context) ([]models.ReviewEvent, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ReviewEvent), args.Error(1)
}

func (m *MockReviewRepository) MarkSynced(ctx context.Context, ids []string) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

func (m *MockReviewRepository) CountsSince(ctx context.Context, since time.Time) (models.DailyProgress, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(models.DailyProgress), args.Error(1)
}
