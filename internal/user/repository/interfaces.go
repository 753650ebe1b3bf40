package repository

import (
	"context"

	"github.com/trexinity/another/internal/catalog/domain"
)

// ListMutation returns the new list and whether it differs from the old.
type ListMutation func(current []string) ([]string, bool)

// ProfileRepository stores the users/{uid} record.
type ProfileRepository interface {
	GetProfile(ctx context.Context, uid string) (*domain.Profile, error)

	// CreateProfile writes profile unless one exists and reports whether it
	// did.
	CreateProfile(ctx context.Context, uid string, profile *domain.Profile) (bool, error)
}

// FavoritesRepository stores users/{uid}/favorites.
type FavoritesRepository interface {
	GetFavorites(ctx context.Context, uid string) ([]string, error)
	UpdateFavorites(ctx context.Context, uid string, fn ListMutation) ([]string, error)
}

// ProgressRepository stores users/{uid}/watchProgress and watchHistory.
type ProgressRepository interface {
	PutProgress(ctx context.Context, uid, titleID string, progress domain.WatchProgress) error
	ListProgress(ctx context.Context, uid string) (map[string]domain.WatchProgress, error)
	DeleteProgress(ctx context.Context, uid, titleID string) error
	PutHistory(ctx context.Context, uid string, entry domain.WatchHistoryEntry) error
	ListHistory(ctx context.Context, uid string) ([]domain.WatchHistoryEntry, error)
}

// Repository aggregates all user-related repositories.
type Repository interface {
	ProfileRepository
	FavoritesRepository
	ProgressRepository
}
