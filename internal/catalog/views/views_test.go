package views_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trexinity/another/internal/catalog/domain"
	"github.com/trexinity/another/internal/catalog/views"
	"github.com/trexinity/another/test/testutil"
)

func ids(titles []domain.Title) []string {
	out := make([]string, 0, len(titles))
	for _, t := range titles {
		out = append(out, t.ID)
	}
	return out
}

// catalog is the a/b/c scenario: views 5/9/1, created t0/t1/t2.
func catalog() []domain.Title {
	return []domain.Title{
		testutil.CreateTestTitle("a", "Alpha", testutil.WithViews(5), testutil.WithCreatedAt(0)),
		testutil.CreateTestTitle("b", "Beta", testutil.WithViews(9), testutil.WithCreatedAt(time.Hour)),
		testutil.CreateTestTitle("c", "Gamma", testutil.WithViews(1), testutil.WithCreatedAt(2*time.Hour)),
	}
}

func TestCatalogScenario(t *testing.T) {
	titles := catalog()

	assert.Equal(t, []string{"b", "a"}, ids(views.Trending(titles, 2)))
	assert.Equal(t, []string{"c", "b"}, ids(views.RecentlyAdded(titles, 2)))
	assert.Equal(t, []string{"a", "b", "c"}, ids(titles), "input order untouched")
}

func TestTrending_TieBreaksOnNewer(t *testing.T) {
	titles := []domain.Title{
		testutil.CreateTestTitle("old", "Old", testutil.WithViews(3), testutil.WithCreatedAt(0)),
		testutil.CreateTestTitle("new", "New", testutil.WithViews(3), testutil.WithCreatedAt(time.Minute)),
		testutil.CreateTestTitle("top", "Top", testutil.WithViews(4), testutil.WithCreatedAt(-time.Hour)),
	}

	got := views.Trending(titles, 10)

	require.Len(t, got, 3)
	assert.Equal(t, []string{"top", "new", "old"}, ids(got))
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Views, got[i].Views)
	}
}

func TestTrending_Bounds(t *testing.T) {
	assert.Empty(t, views.Trending(nil, 5))
	assert.Empty(t, views.Trending(catalog(), 0))
	assert.Empty(t, views.Trending(catalog(), -1))
	assert.Len(t, views.Trending(catalog(), 99), 3)
}

func TestPopular(t *testing.T) {
	titles := []domain.Title{
		testutil.CreateTestTitle("a", "A", testutil.WithLikes("u1"), testutil.WithCreatedAt(0)),
		testutil.CreateTestTitle("b", "B", testutil.WithLikes("u1", "u2"), testutil.WithCreatedAt(0)),
		testutil.CreateTestTitle("c", "C", testutil.WithLikes("u3"), testutil.WithCreatedAt(time.Hour)),
	}

	assert.Equal(t, []string{"b", "c", "a"}, ids(views.Popular(titles, 3)))
}

func TestFeatured(t *testing.T) {
	f, ok := views.Featured(catalog())
	require.True(t, ok)
	assert.Equal(t, "b", f.ID)

	_, ok = views.Featured(nil)
	assert.False(t, ok)
}

func TestByGenre_FirstSeenOrderAndOther(t *testing.T) {
	titles := []domain.Title{
		testutil.CreateTestTitle("1", "One", testutil.WithGenre("Drama")),
		testutil.CreateTestTitle("2", "Two"),
		testutil.CreateTestTitle("3", "Three", testutil.WithGenre("Comedy")),
		testutil.CreateTestTitle("4", "Four", testutil.WithGenre("Drama")),
	}

	groups := views.ByGenre(titles)

	require.Len(t, groups, 3)
	assert.Equal(t, "Drama", groups[0].Name)
	assert.Equal(t, []string{"1", "4"}, ids(groups[0].Titles))
	assert.Equal(t, views.OtherGroup, groups[1].Name)
	assert.Equal(t, "Comedy", groups[2].Name)
}

func TestByLanguage(t *testing.T) {
	titles := []domain.Title{
		testutil.CreateTestTitle("1", "One", testutil.WithLanguage("Hindi")),
		testutil.CreateTestTitle("2", "Two"),
	}

	groups := views.ByLanguage(titles)

	require.Len(t, groups, 2)
	assert.Equal(t, "Hindi", groups[0].Name)
	assert.Equal(t, views.OtherGroup, groups[1].Name)
}

func TestGenreStats(t *testing.T) {
	titles := []domain.Title{
		testutil.CreateTestTitle("1", "One", testutil.WithGenre("Drama")),
		testutil.CreateTestTitle("2", "Two", testutil.WithGenre("Drama")),
	}

	stats := views.GenreStats(titles)

	require.Len(t, stats, 1)
	assert.Equal(t, views.GenreStat{Name: "Drama", Count: 2, ThumbnailURL: titles[0].ThumbnailURL}, stats[0])
}

func TestOfType(t *testing.T) {
	titles := []domain.Title{
		testutil.CreateTestTitle("m", "Movie"),
		testutil.CreateTestTitle("s", "Show", testutil.WithType(domain.TypeSeries)),
	}

	assert.Equal(t, []string{"s"}, ids(views.OfType(titles, domain.TypeSeries)))
	assert.Equal(t, []string{"m"}, ids(views.OfType(titles, domain.TypeMovie)))
}

func TestPercent(t *testing.T) {
	tests := []struct {
		name               string
		progress, duration float64
		want               float64
	}{
		{"half", 30, 60, 50},
		{"zero duration", 30, 0, 0},
		{"negative duration", 30, -5, 0},
		{"over", 90, 60, 100},
		{"negative progress", -1, 60, 0},
		{"nan", math.NaN(), 60, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := views.Percent(tt.progress, tt.duration)
			assert.Equal(t, tt.want, got)
			assert.False(t, math.IsNaN(got))
		})
	}
}

func TestContinueWatching(t *testing.T) {
	now := time.Now()
	titles := []domain.Title{
		testutil.CreateTestTitle("a", "A", testutil.WithDuration(100)),
		testutil.CreateTestTitle("b", "B"),
		testutil.CreateTestTitle("c", "C"),
	}
	progress := map[string]domain.WatchProgress{
		"a":       {Progress: 25, LastWatchedAt: now.Add(-time.Hour)},
		"b":       {Progress: 10, Duration: 0, LastWatchedAt: now},
		"deleted": {Progress: 1, Duration: 2, LastWatchedAt: now},
	}

	entries := views.ContinueWatching(titles, progress)

	require.Len(t, entries, 2)
	assert.Equal(t, "b", entries[0].Title.ID)
	assert.Zero(t, entries[0].Percent, "no duration means no percentage")
	assert.Equal(t, "a", entries[1].Title.ID)
	assert.Equal(t, 100.0, entries[1].Duration)
	assert.Equal(t, 25.0, entries[1].Percent)
}

func TestContinueWatching_TitleWithoutDurationHasZeroPercent(t *testing.T) {
	titles := []domain.Title{
		testutil.CreateTestTitle("x", "X"),
		testutil.CreateTestTitle("y", "Y", testutil.WithDuration(0)),
	}
	progress := map[string]domain.WatchProgress{
		"x": {Progress: 50, Duration: 100, LastWatchedAt: time.Now()},
		"y": {Progress: 50, Duration: 100, LastWatchedAt: time.Now().Add(-time.Minute)},
	}

	entries := views.ContinueWatching(titles, progress)

	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Zero(t, e.Duration, e.Title.ID)
		assert.Zero(t, e.Percent, e.Title.ID)
		assert.Equal(t, 100.0, e.WatchedDuration, e.Title.ID)
	}
	assert.Nil(t, entries[0].Title.Duration)
}

func TestWatchlistView_OrderAndDanglingIDs(t *testing.T) {
	got := views.WatchlistView(catalog(), []string{"c", "gone", "a"})

	assert.Equal(t, []string{"c", "a"}, ids(got))
}

func TestSearch(t *testing.T) {
	titles := []domain.Title{
		testutil.CreateTestTitle("1", "The Night Train"),
		testutil.CreateTestTitle("2", "Daylight", testutil.WithGenre("Thriller")),
		testutil.CreateTestTitle("3", "Other"),
	}
	titles[2].Director = "NIGHTINGALE"

	assert.Empty(t, views.Search(titles, ""))
	assert.Empty(t, views.Search(titles, "   "))
	assert.Equal(t, []string{"1", "3"}, ids(views.Search(titles, "night")))
	assert.Equal(t, ids(views.Search(titles, "night")), ids(views.Search(titles, "NiGhT")))
	assert.Equal(t, []string{"2"}, ids(views.Search(titles, "thrill")))
}

func TestBuildHome(t *testing.T) {
	home := views.BuildHome(catalog(), views.Sizes{Trending: 2, Recent: 1, Popular: 3})

	require.NotNil(t, home.Featured)
	assert.Equal(t, "b", home.Featured.ID)
	assert.Len(t, home.Trending, 2)
	assert.Len(t, home.RecentlyAdded, 1)
	assert.Len(t, home.Popular, 3)
	assert.Len(t, home.ByGenre, 1)

	empty := views.BuildHome(nil, views.Sizes{Trending: 2})
	assert.Nil(t, empty.Featured)
}
