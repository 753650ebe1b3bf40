package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/trexinity/another/internal/catalog/cache"
	"github.com/trexinity/another/internal/catalog/media"
	"github.com/trexinity/another/internal/catalog/views"
	"github.com/trexinity/another/internal/docstore"
	"github.com/trexinity/another/internal/docstore/gormstore"
	"github.com/trexinity/another/internal/docstore/redisstore"
	"github.com/trexinity/another/internal/engagement"
	"github.com/trexinity/another/internal/storefront/handler"
	"github.com/trexinity/another/internal/studio"
	"github.com/trexinity/another/internal/user/repository"
	"github.com/trexinity/another/internal/user/service"
	"github.com/trexinity/another/internal/watchlist"
	"github.com/trexinity/another/pkg/auth"
	"github.com/trexinity/another/pkg/config"
	"github.com/trexinity/another/pkg/database"
	"github.com/trexinity/another/pkg/events"
	"github.com/trexinity/another/pkg/interfaces"
	"github.com/trexinity/another/pkg/metrics"
)

// App is the assembled service.
type App struct {
	Server *http.Server
}

func provideStore(cfg *config.StorefrontConfig, zl *zap.Logger, logger interfaces.Logger) (docstore.Store, func(), error) {
	switch cfg.Store.Backend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:        cfg.Store.Redis.Addr,
			Password:    cfg.Store.Redis.Password,
			DB:          cfg.Store.Redis.DB,
			PoolSize:    cfg.Store.Redis.PoolSize,
			DialTimeout: cfg.Store.Redis.DialTimeout,
		})
		logger.Info("Document store ready",
			interfaces.String("backend", "redis"),
			interfaces.String("addr", cfg.Store.Redis.Addr))
		cleanup := func() {
			if err := rdb.Close(); err != nil {
				logger.Error("Failed to close redis client", interfaces.Error(err))
			}
		}
		return redisstore.New(rdb, cfg.Store.Redis.KeyPrefix), cleanup, nil
	default:
		db, cleanup, err := database.Open(cfg.Store.Database, zl)
		if err != nil {
			return nil, nil, err
		}
		if err := gormstore.Migrate(db); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		logger.Info("Document store ready",
			interfaces.String("backend", "gorm"),
			interfaces.String("driver", cfg.Store.Database.Driver))
		return gormstore.New(db, zl), cleanup, nil
	}
}

func provideMetrics() *metrics.Metrics {
	return metrics.New(prometheus.NewRegistry())
}

func provideNATS(ctx context.Context, cfg *config.StorefrontConfig, zl *zap.Logger) (*events.NATSPublisher, func(), error) {
	if !cfg.NATS.Enabled {
		return nil, func() {}, nil
	}
	return events.NewNATSPublisher(ctx, cfg.NATS, zl)
}

func provideEventBus(ctx context.Context, nats *events.NATSPublisher, logger interfaces.Logger, m *metrics.Metrics) (*events.InMemoryEventBus, func(), error) {
	opts := []events.Option{events.WithMetrics(m)}
	if nats != nil {
		opts = append(opts, events.WithForwarder(nats))
	}
	bus := events.NewInMemoryEventBus(logger, opts...)
	if err := bus.Start(ctx); err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := bus.Stop(); err != nil {
			logger.Error("Failed to stop event bus", interfaces.Error(err))
		}
	}
	return bus, cleanup, nil
}

func provideCatalog(ctx context.Context, cfg *config.StorefrontConfig, store docstore.Store, bus *events.InMemoryEventBus, logger interfaces.Logger, m *metrics.Metrics) (*cache.Cache, error) {
	c := cache.New(store, cache.Config{
		LoadTimeout:        cfg.Catalog.LoadTimeout,
		BreakerMaxFailures: cfg.Catalog.BreakerMaxFailures,
		BreakerTimeout:     cfg.Catalog.BreakerTimeout,
	}, logger, cache.WithPublisher(bus), cache.WithMetrics(m))

	// A failed first load leaves the catalog empty; requests retry it.
	if titles, err := c.Load(ctx); err != nil {
		logger.Warn("Initial catalog load failed", interfaces.Error(err))
	} else {
		logger.Info("Catalog loaded", interfaces.Int("titles", len(titles)))
	}

	if err := c.ReloadOn(bus); err != nil {
		return nil, err
	}
	return c, nil
}

// provideEngagement's cleanup drains fire-and-forget view increments.
func provideEngagement(cfg *config.StorefrontConfig, store docstore.Store, bus *events.InMemoryEventBus, logger interfaces.Logger, m *metrics.Metrics) (*engagement.Service, func()) {
	mgr := engagement.NewManager(store, engagement.Config{
		MaxAttempts: cfg.Transactions.MaxAttempts,
		BaseDelay:   cfg.Transactions.BaseDelay,
	}, logger, m)
	svc := engagement.NewService(mgr, bus, logger)
	return svc, svc.Wait
}

func provideWatchlist(cfg *config.StorefrontConfig, store docstore.Store, logger interfaces.Logger, m *metrics.Metrics) (watchlist.Store, func(), error) {
	wl, closeFn, err := watchlist.New(cfg.Watchlist, store, cfg.Transactions, logger, m)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := closeFn(); err != nil {
			logger.Error("Failed to close watchlist store", interfaces.Error(err))
		}
	}
	return wl, cleanup, nil
}

func provideProfiles(cfg *config.StorefrontConfig, store docstore.Store, logger interfaces.Logger) *service.ProfileService {
	repo := repository.NewDocStoreRepository(store, logger,
		docstore.WithAttempts(cfg.Transactions.MaxAttempts),
		docstore.WithBaseDelay(cfg.Transactions.BaseDelay))
	return service.NewProfileService(repo, logger)
}

func provideJWTManager(cfg *config.StorefrontConfig) *auth.JWTManager {
	return auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.AccessTokenDuration)
}

func provideAuthorizer(cfg *config.StorefrontConfig, logger interfaces.Logger) (*auth.Authorizer, error) {
	rbac, err := auth.NewRBACFromConfig(cfg.Auth, logger)
	if err != nil {
		return nil, err
	}
	return auth.NewAuthorizer(rbac, cfg.Auth.AdminEmails), nil
}

func provideAuthMiddleware(jwt *auth.JWTManager, authz *auth.Authorizer, logger interfaces.Logger) *auth.Middleware {
	return auth.NewMiddleware(jwt, authz, handler.WriteError, logger)
}

// uploads pairs the active uploader with the handler serving its files,
// which is nil unless assets live on local disk.
type uploads struct {
	uploader media.Uploader
	assets   http.Handler
}

func provideUploads(ctx context.Context, cfg *config.StorefrontConfig, zl *zap.Logger) (uploads, error) {
	switch cfg.Uploads.Backend {
	case "s3":
		s3 := cfg.Uploads.S3
		up, err := media.NewS3Uploader(ctx, s3.Bucket, s3.Prefix, s3.Region, s3.PublicBaseURL, zl)
		if err != nil {
			return uploads{}, err
		}
		return uploads{uploader: up}, nil
	default:
		local := cfg.Uploads.Local
		up, err := media.NewLocalUploader(afero.NewOsFs(), local.Path, local.PublicBaseURL, zl)
		if err != nil {
			return uploads{}, err
		}
		return uploads{uploader: up, assets: http.FileServer(afero.NewHttpFs(up.Fs()))}, nil
	}
}

func maxUploadBytes(cfg *config.StorefrontConfig) int64 {
	return int64(cfg.Uploads.MaxSizeMB) << 20
}

func provideStudio(cfg *config.StorefrontConfig, store docstore.Store, up uploads, authz *auth.Authorizer, bus *events.InMemoryEventBus, logger interfaces.Logger, m *metrics.Metrics) *studio.Service {
	return studio.NewService(store, up.uploader, authz, bus, studio.Config{
		MaxUploadBytes: maxUploadBytes(cfg),
		MaxAttempts:    cfg.Transactions.MaxAttempts,
		BaseDelay:      cfg.Transactions.BaseDelay,
	}, logger, m)
}

func provideHandler(
	cfg *config.StorefrontConfig,
	store docstore.Store,
	nats *events.NATSPublisher,
	catalog *cache.Cache,
	eng *engagement.Service,
	wl watchlist.Store,
	profiles *service.ProfileService,
	st *studio.Service,
	mw *auth.Middleware,
	up uploads,
	logger interfaces.Logger,
	m *metrics.Metrics,
) *handler.Handler {
	ready := map[string]handler.Checker{"store": store.Ping}
	if nats != nil {
		ready["nats"] = nats.Health
	}
	if !cfg.Metrics.Enabled {
		m = nil
	}
	return handler.New(handler.Dependencies{
		Catalog:    catalog,
		Engagement: eng,
		Watchlists: wl,
		Profiles:   profiles,
		Studio:     st,
		Auth:       mw,
		Metrics:    m,
		Logger:     logger,
		Sizes: views.Sizes{
			Trending: cfg.Views.TrendingSize,
			Recent:   cfg.Views.RecentSize,
			Popular:  cfg.Views.PopularSize,
		},
		MaxUploadBytes: maxUploadBytes(cfg),
		MetricsPath:    cfg.Metrics.Path,
		Ready:          ready,
		Assets:         up.assets,
	})
}

func provideServer(cfg *config.StorefrontConfig, h *handler.Handler) *http.Server {
	return &http.Server{
		Addr:              config.GetListenAddress(&cfg.Service),
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
