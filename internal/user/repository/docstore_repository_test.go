package repository_test

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trexinity/another/internal/catalog/domain"
	"github.com/trexinity/another/internal/docstore/memstore"
	"github.com/trexinity/another/internal/user/repository"
	apperrors "github.com/trexinity/another/pkg/errors"
	"github.com/trexinity/another/pkg/logger"
)

func newRepo() *repository.DocStoreRepository {
	return repository.NewDocStoreRepository(memstore.New(), logger.NewNoopLogger())
}

func TestDocStoreRepository_CreateProfileOnce(t *testing.T) {
	ctx := context.Background()
	repo := newRepo()

	_, err := repo.GetProfile(ctx, "u1")
	assert.True(t, apperrors.IsNotFound(err))

	created, err := repo.CreateProfile(ctx, "u1", &domain.Profile{Email: "first@example.com"})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.CreateProfile(ctx, "u1", &domain.Profile{Email: "second@example.com"})
	require.NoError(t, err)
	assert.False(t, created)

	profile, err := repo.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "first@example.com", profile.Email)
}

func TestDocStoreRepository_Favorites(t *testing.T) {
	ctx := context.Background()
	repo := newRepo()
	add := func(id string) repository.ListMutation {
		return func(cur []string) ([]string, bool) {
			if slices.Contains(cur, id) {
				return cur, false
			}
			return append(cur, id), true
		}
	}

	favs, err := repo.GetFavorites(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{}, favs)

	_, err = repo.UpdateFavorites(ctx, "u1", add("t2"))
	require.NoError(t, err)
	favs, err = repo.UpdateFavorites(ctx, "u1", add("t1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"t2", "t1"}, favs)

	favs, err = repo.UpdateFavorites(ctx, "u1", add("t1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"t2", "t1"}, favs)
}

func TestDocStoreRepository_ProgressAndHistory(t *testing.T) {
	ctx := context.Background()
	repo := newRepo()
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.PutProgress(ctx, "u1", "t1", domain.WatchProgress{Progress: 10, Duration: 100, LastWatchedAt: at}))
	require.NoError(t, repo.PutProgress(ctx, "u1", "t2", domain.WatchProgress{Progress: 5, LastWatchedAt: at}))
	require.NoError(t, repo.PutHistory(ctx, "u1", domain.WatchHistoryEntry{TitleID: "t1", WatchedAt: at}))

	progress, err := repo.ListProgress(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, progress, 2)
	assert.Equal(t, 10.0, progress["t1"].Progress)
	assert.True(t, at.Equal(progress["t1"].LastWatchedAt))

	require.NoError(t, repo.DeleteProgress(ctx, "u1", "t1"))
	progress, err = repo.ListProgress(ctx, "u1")
	require.NoError(t, err)
	assert.NotContains(t, progress, "t1")

	history, err := repo.ListHistory(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "t1", history[0].TitleID)

	other, err := repo.ListProgress(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, other)
}
