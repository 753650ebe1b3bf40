// Package handler exposes the storefront over HTTP.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/trexinity/another/internal/catalog/domain"
	"github.com/trexinity/another/internal/catalog/views"
	"github.com/trexinity/another/internal/engagement"
	"github.com/trexinity/another/internal/studio"
	"github.com/trexinity/another/internal/watchlist"
	"github.com/trexinity/another/pkg/auth"
	"github.com/trexinity/another/pkg/interfaces"
	"github.com/trexinity/another/pkg/metrics"
)

// Catalog is the read side of the title catalog.
type Catalog interface {
	Snapshot() []domain.Title
	Load(ctx context.Context) ([]domain.Title, error)
	Get(id string) (domain.Title, bool)
	Fetch(ctx context.Context, id string) (domain.Title, error)
}

// Engagement updates view and like counters.
type Engagement interface {
	IncrementViewAsync(ctx context.Context, titleID string)
	ToggleLike(ctx context.Context, titleID, uid string) (engagement.LikeResult, error)
}

// Profiles manages per-user records.
type Profiles interface {
	EnsureProfile(ctx context.Context, session domain.UserSession) (*domain.Profile, error)
	Session(ctx context.Context, identity domain.UserSession) (domain.UserSession, error)
	Favorites(ctx context.Context, uid string) ([]string, error)
	AddFavorite(ctx context.Context, uid, titleID string) ([]string, error)
	RemoveFavorite(ctx context.Context, uid, titleID string) ([]string, error)
	RecordProgress(ctx context.Context, uid, titleID string, progress, duration float64) (domain.WatchProgress, error)
	Progress(ctx context.Context, uid string) (map[string]domain.WatchProgress, error)
	ClearProgress(ctx context.Context, uid, titleID string) error
	History(ctx context.Context, uid string) ([]domain.WatchHistoryEntry, error)
}

// Studio publishes and edits titles.
type Studio interface {
	Publish(ctx context.Context, admin domain.UserSession, form studio.PublishForm) (domain.Title, error)
	UpdateMetadata(ctx context.Context, admin domain.UserSession, id string, patch studio.MetadataPatch) (domain.Title, error)
	Delete(ctx context.Context, admin domain.UserSession, id string) error
}

// Checker reports whether a dependency is ready to serve.
type Checker func(ctx context.Context) error

// Dependencies are the services behind the HTTP surface.
type Dependencies struct {
	Catalog    Catalog
	Engagement Engagement
	Watchlists watchlist.Store
	Profiles   Profiles
	Studio     Studio
	Auth       *auth.Middleware
	Metrics    *metrics.Metrics
	Logger     interfaces.Logger

	Sizes          views.Sizes
	MaxUploadBytes int64
	MetricsPath    string

	// Ready maps a dependency name to its readiness probe.
	Ready map[string]Checker

	// Assets serves locally stored uploads under /uploads when set.
	Assets http.Handler
}

// Handler serves the storefront API.
type Handler struct {
	Dependencies
	readyTimeout time.Duration
}

// New creates the HTTP handler.
func New(deps Dependencies) *Handler {
	if deps.MetricsPath == "" {
		deps.MetricsPath = "/metrics"
	}
	return &Handler{Dependencies: deps, readyTimeout: 2 * time.Second}
}
