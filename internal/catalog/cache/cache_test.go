package cache_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/trexinity/another/internal/catalog/cache"
	"github.com/trexinity/another/internal/catalog/domain"
	"github.com/trexinity/another/internal/docstore"
	"github.com/trexinity/another/internal/docstore/memstore"
	apperrors "github.com/trexinity/another/pkg/errors"
	"github.com/trexinity/another/pkg/events"
	"github.com/trexinity/another/pkg/interfaces"
	"github.com/trexinity/another/pkg/logger"
	"github.com/trexinity/another/pkg/metrics"
	fixtures "github.com/trexinity/another/test/testutil"
)

// flakyStore fails Children while down is set.
type flakyStore struct {
	*memstore.Store
	down  bool
	calls int
}

func (s *flakyStore) Children(ctx context.Context, path string) ([]docstore.Snapshot, error) {
	s.calls++
	if s.down {
		return nil, docstore.ErrUnavailable
	}
	return s.Store.Children(ctx, path)
}

// gatedStore holds the first Children call until release is closed.
type gatedStore struct {
	*memstore.Store
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *gatedStore) Children(ctx context.Context, path string) ([]docstore.Snapshot, error) {
	first := false
	s.once.Do(func() { first = true })
	if !first {
		return s.Store.Children(ctx, path)
	}
	children, err := s.Store.Children(ctx, path)
	close(s.entered)
	<-s.release
	return children, err
}

type CacheTestSuite struct {
	suite.Suite
	store   *flakyStore
	metrics *metrics.Metrics
	cache   *cache.Cache
	ctx     context.Context
}

func (s *CacheTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = &flakyStore{Store: memstore.New()}
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.cache = cache.New(s.store, cache.Config{
		LoadTimeout:        time.Second,
		BreakerMaxFailures: 2,
		BreakerTimeout:     time.Minute,
	}, logger.NewNoopLogger(), cache.WithMetrics(s.metrics))
}

func (s *CacheTestSuite) TestLoad_EmptyCatalog() {
	titles, err := s.cache.Load(s.ctx)

	s.Require().NoError(err)
	s.Empty(titles)
	s.NotNil(s.cache.Snapshot())
}

func (s *CacheTestSuite) TestLoad_DecodesAndSkipsMalformed() {
	// Arrange
	fixtures.SeedTitles(s.T(), s.store,
		fixtures.CreateTestTitle("a", "Alpha"),
		fixtures.CreateTestTitle("b", "Beta"),
	)
	s.Require().NoError(s.store.Set(s.ctx, domain.TitlePath("broken"), []byte(`{"description":"no title"}`)))

	// Act
	titles, err := s.cache.Load(s.ctx)

	// Assert
	s.Require().NoError(err)
	s.Require().Len(titles, 2)
	s.Equal("a", titles[0].ID)
	s.Equal("b", titles[1].ID)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.CatalogSkipped))
	s.Equal(2.0, testutil.ToFloat64(s.metrics.CatalogTitles))
}

func (s *CacheTestSuite) TestLoad_ReplacesSnapshotWholesale() {
	fixtures.SeedTitles(s.T(), s.store, fixtures.CreateTestTitle("a", "Alpha"))
	first, err := s.cache.Load(s.ctx)
	s.Require().NoError(err)

	fixtures.SeedTitles(s.T(), s.store, fixtures.CreateTestTitle("b", "Beta"))
	_, err = s.cache.Load(s.ctx)
	s.Require().NoError(err)

	s.Len(first, 1, "earlier snapshot must not change")
	s.Len(s.cache.Snapshot(), 2)
}

func (s *CacheTestSuite) TestLoad_StoreFailureIsFetchError() {
	fixtures.SeedTitles(s.T(), s.store, fixtures.CreateTestTitle("a", "Alpha"))
	_, err := s.cache.Load(s.ctx)
	s.Require().NoError(err)

	s.store.down = true
	_, err = s.cache.Load(s.ctx)

	s.Require().Error(err)
	s.True(apperrors.IsFetchFailed(err))
	s.True(errors.Is(err, docstore.ErrUnavailable))
	s.Len(s.cache.Snapshot(), 1, "previous snapshot is kept")
}

func (s *CacheTestSuite) TestLoad_BreakerOpensAfterConsecutiveFailures() {
	s.store.down = true
	for i := 0; i < 2; i++ {
		_, err := s.cache.Load(s.ctx)
		s.Require().Error(err)
	}
	s.Equal(gobreaker.StateOpen, s.cache.State())

	calls := s.store.calls
	_, err := s.cache.Load(s.ctx)

	s.True(apperrors.IsFetchFailed(err))
	s.True(errors.Is(err, gobreaker.ErrOpenState))
	s.Equal(calls, s.store.calls, "open breaker must not reach the store")
	s.Equal(2.0, testutil.ToFloat64(s.metrics.BreakerState.WithLabelValues("catalog-store")))
}

func (s *CacheTestSuite) TestGet_ReturnsCopy() {
	fixtures.SeedTitles(s.T(), s.store, fixtures.CreateTestTitle("a", "Alpha", fixtures.WithLikes("u1")))
	_, err := s.cache.Load(s.ctx)
	s.Require().NoError(err)

	got, ok := s.cache.Get("a")
	s.Require().True(ok)
	got.LikesBy["u2"] = true

	again, _ := s.cache.Get("a")
	s.False(again.LikedBy("u2"))

	_, ok = s.cache.Get("missing")
	s.False(ok)
}

func (s *CacheTestSuite) TestFetch() {
	fixtures.SeedTitles(s.T(), s.store, fixtures.CreateTestTitle("a", "Alpha"))

	title, err := s.cache.Fetch(s.ctx, "a")
	s.Require().NoError(err)
	s.Equal("Alpha", title.Title)

	_, err = s.cache.Fetch(s.ctx, "missing")
	s.True(apperrors.IsNotFound(err))
}

func TestCacheTestSuite(t *testing.T) {
	suite.Run(t, new(CacheTestSuite))
}

func TestCache_ReloadOnCatalogEvents(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	bus := events.NewInMemoryEventBus(logger.NewNoopLogger())
	c := cache.New(store, cache.Config{}, logger.NewNoopLogger())
	require.NoError(t, c.ReloadOn(bus))

	fixtures.SeedTitles(t, store, fixtures.CreateTestTitle("a", "Alpha"))
	require.NoError(t, bus.Publish(ctx, events.NewAggregateEvent(events.TitlePublished, "a", nil)))

	assert.Len(t, c.Snapshot(), 1)
}

func TestCache_PublishesCatalogLoaded(t *testing.T) {
	bus := events.NewInMemoryEventBus(logger.NewNoopLogger())
	got := make(chan interfaces.Event, 1)
	require.NoError(t, bus.Subscribe(events.CatalogLoaded, &events.HandlerFunc{
		Type: "test",
		Fn: func(_ context.Context, e interfaces.Event) error {
			got <- e
			return nil
		},
	}))

	c := cache.New(memstore.New(), cache.Config{}, logger.NewNoopLogger(), cache.WithPublisher(bus))
	_, err := c.Load(context.Background())
	require.NoError(t, err)
	require.NoError(t, bus.Stop())

	select {
	case e := <-got:
		assert.Equal(t, events.CatalogLoaded, e.EventType())
	default:
		t.Fatal("catalog.loaded not published")
	}
}

func TestCache_OvertakenLoadKeepsNewerSnapshot(t *testing.T) {
	// Arrange
	store := &gatedStore{Store: memstore.New(), entered: make(chan struct{}), release: make(chan struct{})}
	fixtures.SeedTitles(t, store, fixtures.CreateTestTitle("a", "Alpha"))
	c := cache.New(store, cache.Config{}, logger.NewNoopLogger())

	slow := make(chan []domain.Title, 1)
	go func() {
		titles, err := c.Load(context.Background())
		assert.NoError(t, err)
		slow <- titles
	}()
	<-store.entered

	fixtures.SeedTitles(t, store, fixtures.CreateTestTitle("b", "Beta"))
	fresh, err := c.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, fresh, 2)

	// Act
	close(store.release)
	late := <-slow

	// Assert
	assert.Len(t, c.Snapshot(), 2)
	assert.Len(t, late, 2, "an overtaken load reports the newer snapshot")
}
