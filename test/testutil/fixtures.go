package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trexinity/another/internal/catalog/domain"
	"github.com/trexinity/another/internal/docstore"
)

// BaseTime is the createdAt of the first fixture title.
var BaseTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// TitleOption customizes a fixture title.
type TitleOption func(*domain.Title)

func WithViews(n int64) TitleOption { return func(t *domain.Title) { t.Views = n } }

func WithGenre(g string) TitleOption { return func(t *domain.Title) { t.Genre = g } }

func WithLanguage(l string) TitleOption { return func(t *domain.Title) { t.Language = l } }

func WithType(tt domain.TitleType) TitleOption { return func(t *domain.Title) { t.Type = tt } }

func WithDuration(seconds int) TitleOption {
	return func(t *domain.Title) { t.Duration = &seconds }
}

// WithCreatedAt sets createdAt to BaseTime plus offset.
func WithCreatedAt(offset time.Duration) TitleOption {
	return func(t *domain.Title) { t.CreatedAt = BaseTime.Add(offset) }
}

// WithLikes sets likesBy to uids and likes to their count.
func WithLikes(uids ...string) TitleOption {
	return func(t *domain.Title) {
		t.LikesBy = make(map[string]bool, len(uids))
		for _, uid := range uids {
			t.LikesBy[uid] = true
		}
		t.Likes = int64(len(uids))
	}
}

// WithVideo sets the video locator and its source.
func WithVideo(source domain.VideoSource, url string) TitleOption {
	return func(t *domain.Title) {
		t.VideoSource = source
		t.VideoURL = url
	}
}

// CreateTestTitle creates a valid title with default values.
func CreateTestTitle(id, title string, opts ...TitleOption) domain.Title {
	t := domain.Title{
		ID:           id,
		Title:        title,
		Description:  title + " description",
		Type:         domain.TypeMovie,
		ThumbnailURL: "https://img.example.com/" + id + ".jpg",
		VideoURL:     "https://archive.org/details/" + id,
		VideoSource:  domain.SourceArchive,
		CreatedAt:    BaseTime,
	}
	for _, opt := range opts {
		opt(&t)
	}
	return t
}

// CreateTestSession creates a signed-in viewer session.
func CreateTestSession(uid, email string, roles ...string) domain.UserSession {
	if len(roles) == 0 {
		roles = []string{domain.RoleViewer}
	}
	return domain.UserSession{
		UID:         uid,
		Email:       email,
		DisplayName: uid,
		Favorites:   []string{},
		Roles:       roles,
	}
}

// SeedTitles writes titles to movies/{id}.
func SeedTitles(t *testing.T, store docstore.Store, titles ...domain.Title) {
	t.Helper()
	for _, title := range titles {
		require.NoError(t, docstore.SetJSON(context.Background(), store, domain.TitlePath(title.ID), title.Record()))
	}
}

// ReadTitle decodes movies/{id} from store.
func ReadTitle(t *testing.T, store docstore.Store, id string) domain.Title {
	t.Helper()
	snap, err := store.Get(context.Background(), domain.TitlePath(id))
	require.NoError(t, err)
	require.True(t, snap.Exists, "title %s missing", id)
	title, err := domain.DecodeTitle(id, snap.Value)
	require.NoError(t, err)
	return title
}
