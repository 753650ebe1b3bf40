package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/trexinity/another/internal/catalog/domain"
	"github.com/trexinity/another/internal/user/repository"
)

// MockRepository is a mock implementation of repository.Repository
type MockRepository struct {
	mock.Mock
}

var _ repository.Repository = (*MockRepository)(nil)

func (m *MockRepository) GetProfile(ctx context.Context, uid string) (*domain.Profile, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func (m *MockRepository) CreateProfile(ctx context.Context, uid string, profile *domain.Profile) (bool, error) {
	args := m.Called(ctx, uid, profile)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) GetFavorites(ctx context.Context, uid string) ([]string, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// UpdateFavorites applies fn to the configured current list.
func (m *MockRepository) UpdateFavorites(ctx context.Context, uid string, fn repository.ListMutation) ([]string, error) {
	args := m.Called(ctx, uid, fn)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	current, _ := args.Get(0).([]string)
	next, _ := fn(current)
	return next, nil
}

func (m *MockRepository) PutProgress(ctx context.Context, uid, titleID string, progress domain.WatchProgress) error {
	return m.Called(ctx, uid, titleID, progress).Error(0)
}

func (m *MockRepository) ListProgress(ctx context.Context, uid string) (map[string]domain.WatchProgress, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.WatchProgress), args.Error(1)
}

func (m *MockRepository) DeleteProgress(ctx context.Context, uid, titleID string) error {
	return m.Called(ctx, uid, titleID).Error(0)
}

func (m *MockRepository) PutHistory(ctx context.Context, uid string, entry domain.WatchHistoryEntry) error {
	return m.Called(ctx, uid, entry).Error(0)
}

func (m *MockRepository) ListHistory(ctx context.Context, uid string) ([]domain.WatchHistoryEntry, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.WatchHistoryEntry), args.Error(1)
}
