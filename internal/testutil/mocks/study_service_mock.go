package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dmateus/lexflash/internal/models"
)

// MockStudyService is a mock implementation of services.StudyService
type MockStudyService struct {
	mock.Mock
}

func (m *MockStudyService) StartSession(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockStudyService) GetCurrentCard(ctx context.Context) (*models.Card, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Card), args.Error(1)
}

func (m *MockStudyService) AnswerCard(ctx context.Context, quality int) error {
	args := m.Called(ctx, quality)
	return args.Error(0)
}

func (m *MockStudyService) IsComplete(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

func (m *MockStudyService) EndSession(ctx context.Context) (*models.SessionSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SessionSummary), args.Error(1)
}

func (m *MockStudyService) GetStats(ctx context.Context) (*models.StudyStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StudyStats), args.Error(1)
}
