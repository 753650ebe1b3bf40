// Package cache holds the per-process catalog snapshot loaded from the
// document store.
package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/trexinity/another/internal/catalog/domain"
	"github.com/trexinity/another/internal/docstore"
	apperrors "github.com/trexinity/another/pkg/errors"
	"github.com/trexinity/another/pkg/events"
	"github.com/trexinity/another/pkg/interfaces"
	"github.com/trexinity/another/pkg/metrics"
)

const breakerName = "catalog-store"

// Config tunes loading.
type Config struct {
	LoadTimeout        time.Duration
	BreakerMaxFailures uint32
	BreakerTimeout     time.Duration
}

// Cache loads every title under movies/ and keeps the result as an
// immutable snapshot. A reload replaces the snapshot; it is never
// modified in place, so readers may hold on to a returned slice.
type Cache struct {
	store     docstore.Store
	cfg       Config
	cb        *gobreaker.CircuitBreaker[[]docstore.Snapshot]
	snapshot  atomic.Pointer[[]domain.Title]
	started   atomic.Uint64
	swapMu    sync.Mutex
	applied   uint64 // sequence of the load behind snapshot; guarded by swapMu
	logger    interfaces.Logger
	publisher interfaces.EventPublisher
	metrics   *metrics.Metrics
}

// Option configures a Cache.
type Option func(*Cache)

// WithPublisher emits catalog.loaded after every successful load.
func WithPublisher(p interfaces.EventPublisher) Option {
	return func(c *Cache) { c.publisher = p }
}

// WithMetrics records load outcomes and breaker state.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// New creates an empty cache. Call Load to populate it.
func New(store docstore.Store, cfg Config, logger interfaces.Logger, opts ...Option) *Cache {
	if cfg.BreakerMaxFailures == 0 {
		cfg.BreakerMaxFailures = 5
	}
	c := &Cache{
		store:  store,
		cfg:    cfg,
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.cb = gobreaker.NewCircuitBreaker[[]docstore.Snapshot](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerMaxFailures
		},
		IsSuccessful: func(err error) bool {
			// A caller giving up says nothing about the store.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("Circuit breaker state changed",
				interfaces.String("breaker", name),
				interfaces.String("from", from.String()),
				interfaces.String("to", to.String()))
			c.metrics.SetBreakerState(name, int(to))
		},
	})
	c.metrics.SetBreakerState(breakerName, int(gobreaker.StateClosed))

	empty := []domain.Title{}
	c.snapshot.Store(&empty)
	return c
}

// Load reads every title from the store and swaps in a new snapshot. An
// empty movies path yields an empty catalog. Records that fail boundary
// validation are skipped with a warning. Store failures, including an open
// breaker, are returned as FETCH_FAILED and leave the previous snapshot in
// place. Concurrent loads never replace a snapshot with one read earlier;
// a load overtaken by a later one returns the later snapshot.
func (c *Cache) Load(ctx context.Context) ([]domain.Title, error) {
	if c.cfg.LoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.LoadTimeout)
		defer cancel()
	}

	seq := c.started.Add(1)
	start := time.Now()
	children, err := c.cb.Execute(func() ([]docstore.Snapshot, error) {
		return c.store.Children(ctx, domain.MoviesPath)
	})
	if err != nil {
		c.metrics.CatalogLoadFailed()
		c.logger.Error("Failed to load catalog", interfaces.Error(err))
		return nil, apperrors.FetchFailed("failed to load catalog", err)
	}

	titles := make([]domain.Title, 0, len(children))
	skipped := 0
	for _, child := range children {
		t, err := domain.DecodeTitle(child.Key(), child.Value)
		if err != nil {
			skipped++
			c.logger.Warn("Skipping malformed title",
				interfaces.String("title_id", child.Key()),
				interfaces.Error(err))
			continue
		}
		titles = append(titles, t)
	}

	c.swapMu.Lock()
	stale := seq < c.applied
	if !stale {
		c.snapshot.Store(&titles)
		c.applied = seq
	}
	c.swapMu.Unlock()
	if stale {
		c.logger.Debug("Discarding overtaken catalog load", interfaces.Int("titles", len(titles)))
		return c.Snapshot(), nil
	}

	c.metrics.CatalogLoaded(len(titles), skipped)
	c.logger.Debug("Catalog loaded",
		interfaces.Int("titles", len(titles)),
		interfaces.Int("skipped", skipped),
		interfaces.Duration("elapsed", time.Since(start)))

	if c.publisher != nil {
		c.publisher.PublishAsync(ctx, events.NewEvent(events.CatalogLoaded, map[string]interface{}{
			"titles":  len(titles),
			"skipped": skipped,
		}))
	}
	return titles, nil
}

// Snapshot returns the last loaded catalog. Callers must not modify it.
func (c *Cache) Snapshot() []domain.Title {
	return *c.snapshot.Load()
}

// Get returns a copy of the title with id from the current snapshot.
func (c *Cache) Get(id string) (domain.Title, bool) {
	for _, t := range c.Snapshot() {
		if t.ID == id {
			return t.Clone(), true
		}
	}
	return domain.Title{}, false
}

// Fetch reads a single title straight from the store, bypassing the
// snapshot.
func (c *Cache) Fetch(ctx context.Context, id string) (domain.Title, error) {
	snap, err := c.store.Get(ctx, domain.TitlePath(id))
	if err != nil {
		return domain.Title{}, apperrors.FetchFailed("failed to read title", err)
	}
	if !snap.Exists {
		return domain.Title{}, apperrors.NotFound("title not found")
	}
	return domain.DecodeTitle(id, snap.Value)
}

// State reports the breaker state.
func (c *Cache) State() gobreaker.State {
	return c.cb.State()
}

// ReloadOn subscribes the cache to catalog changes on bus; each one
// triggers a reload.
func (c *Cache) ReloadOn(bus interfaces.EventBus) error {
	for _, eventType := range []string{events.TitlePublished, events.TitleUpdated, events.TitleDeleted} {
		h := &events.HandlerFunc{
			Type: "catalog-reload",
			Fn: func(ctx context.Context, _ interfaces.Event) error {
				_, err := c.Load(ctx)
				return err
			},
		}
		if err := bus.Subscribe(eventType, h); err != nil {
			return err
		}
	}
	return nil
}
