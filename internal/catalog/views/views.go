// Package views derives the storefront's view models from a catalog
// snapshot. Every function is pure: inputs are never modified and results
// are freshly allocated.
package views

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/trexinity/another/internal/catalog/domain"
)

// OtherGroup collects titles with no genre or language.
const OtherGroup = "Other"

// Group is a named row of titles.
type Group struct {
	Name   string         `json:"name"`
	Titles []domain.Title `json:"titles"`
}

// GenreStat summarizes one genre for the categories page.
type GenreStat struct {
	Name         string `json:"name"`
	Count        int    `json:"count"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
}

// Entry is a continue-watching row item.
type Entry struct {
	Title    domain.Title `json:"title"`
	Progress float64      `json:"progress"`
	Duration float64      `json:"duration"`
	Percent  float64      `json:"percent"`
	// WatchedDuration is the length the player reported; it never feeds Percent.
	WatchedDuration float64   `json:"watchedDuration,omitempty"`
	LastWatchedAt   time.Time `json:"lastWatchedAt"`
}

func newerFirst(a, b domain.Title) int {
	return b.CreatedAt.Compare(a.CreatedAt)
}

// sortedCopy returns a stably sorted copy of titles.
func sortedCopy(titles []domain.Title, less func(a, b domain.Title) int) []domain.Title {
	out := slices.Clone(titles)
	slices.SortStableFunc(out, less)
	return out
}

func head(titles []domain.Title, n int) []domain.Title {
	if n < 0 {
		n = 0
	}
	if len(titles) > n {
		titles = titles[:n]
	}
	return titles
}

// Trending returns the n most viewed titles; ties go to the newer title.
func Trending(titles []domain.Title, n int) []domain.Title {
	return head(sortedCopy(titles, func(a, b domain.Title) int {
		if c := cmp.Compare(b.Views, a.Views); c != 0 {
			return c
		}
		return newerFirst(a, b)
	}), n)
}

// RecentlyAdded returns the n newest titles.
func RecentlyAdded(titles []domain.Title, n int) []domain.Title {
	return head(sortedCopy(titles, newerFirst), n)
}

// Popular returns the n most liked titles; ties go to the newer title.
func Popular(titles []domain.Title, n int) []domain.Title {
	return head(sortedCopy(titles, func(a, b domain.Title) int {
		if c := cmp.Compare(b.Likes, a.Likes); c != 0 {
			return c
		}
		return newerFirst(a, b)
	}), n)
}

// Featured picks the hero title: most views, then newest. It reports false
// for an empty catalog.
func Featured(titles []domain.Title) (domain.Title, bool) {
	top := Trending(titles, 1)
	if len(top) == 0 {
		return domain.Title{}, false
	}
	return top[0], true
}

func groupBy(titles []domain.Title, key func(domain.Title) string) []Group {
	var groups []Group
	index := make(map[string]int)
	for _, t := range titles {
		name := strings.TrimSpace(key(t))
		if name == "" {
			name = OtherGroup
		}
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, Group{Name: name})
		}
		groups[i].Titles = append(groups[i].Titles, t)
	}
	return groups
}

// ByGenre groups titles by genre in first-seen order. Titles without a
// genre land in "Other".
func ByGenre(titles []domain.Title) []Group {
	return groupBy(titles, func(t domain.Title) string { return t.Genre })
}

// ByLanguage groups titles by language in first-seen order.
func ByLanguage(titles []domain.Title) []Group {
	return groupBy(titles, func(t domain.Title) string { return t.Language })
}

// GenreStats counts titles per genre. The thumbnail is the first title's.
func GenreStats(titles []domain.Title) []GenreStat {
	groups := ByGenre(titles)
	stats := make([]GenreStat, 0, len(groups))
	for _, g := range groups {
		stats = append(stats, GenreStat{
			Name:         g.Name,
			Count:        len(g.Titles),
			ThumbnailURL: g.Titles[0].ThumbnailURL,
		})
	}
	return stats
}

// OfType keeps titles of type tt in catalog order.
func OfType(titles []domain.Title, tt domain.TitleType) []domain.Title {
	out := make([]domain.Title, 0)
	for _, t := range titles {
		if t.Type == tt {
			out = append(out, t)
		}
	}
	return out
}

// Percent returns progress as a share of duration in [0,100]. A missing or
// zero duration yields 0.
func Percent(progress, duration float64) float64 {
	if !(duration > 0) || !(progress > 0) {
		return 0
	}
	return min(progress/duration*100, 100)
}

// ContinueWatching returns titles with a watch-progress entry, most
// recently watched first. Duration and Percent use the title's own
// duration; a title without one has a zero percentage.
func ContinueWatching(titles []domain.Title, progress map[string]domain.WatchProgress) []Entry {
	out := make([]Entry, 0, len(progress))
	for _, t := range titles {
		p, ok := progress[t.ID]
		if !ok {
			continue
		}
		duration := float64(t.DurationSeconds())
		out = append(out, Entry{
			Title:           t,
			Progress:        p.Progress,
			Duration:        duration,
			Percent:         Percent(p.Progress, duration),
			WatchedDuration: p.Duration,
			LastWatchedAt:   p.LastWatchedAt,
		})
	}
	slices.SortStableFunc(out, func(a, b Entry) int {
		return b.LastWatchedAt.Compare(a.LastWatchedAt)
	})
	return out
}

// WatchlistView resolves watchlist ids against the catalog in watchlist
// order. Ids with no matching title are skipped.
func WatchlistView(titles []domain.Title, watchlist []string) []domain.Title {
	byID := make(map[string]domain.Title, len(titles))
	for _, t := range titles {
		byID[t.ID] = t
	}
	out := make([]domain.Title, 0, len(watchlist))
	for _, id := range watchlist {
		if t, ok := byID[id]; ok {
			out = append(out, t)
		}
	}
	return out
}

// Search returns titles whose title, description, genre, cast or director
// contain query, ignoring case, in catalog order. A blank query matches
// nothing.
func Search(titles []domain.Title, query string) []domain.Title {
	out := make([]domain.Title, 0)
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return out
	}
	for _, t := range titles {
		if t.Matches(q) {
			out = append(out, t)
		}
	}
	return out
}

// Home bundles the rows of the landing page.
type Home struct {
	Featured      *domain.Title  `json:"featured,omitempty"`
	Trending      []domain.Title `json:"trending"`
	RecentlyAdded []domain.Title `json:"recentlyAdded"`
	Popular       []domain.Title `json:"popular"`
	ByGenre       []Group        `json:"byGenre"`
}

// Sizes bounds the rows of Home.
type Sizes struct {
	Trending int
	Recent   int
	Popular  int
}

// BuildHome derives every landing page row from one snapshot.
func BuildHome(titles []domain.Title, sizes Sizes) Home {
	h := Home{
		Trending:      Trending(titles, sizes.Trending),
		RecentlyAdded: RecentlyAdded(titles, sizes.Recent),
		Popular:       Popular(titles, sizes.Popular),
		ByGenre:       ByGenre(titles),
	}
	if f, ok := Featured(titles); ok {
		h.Featured = &f
	}
	return h
}
