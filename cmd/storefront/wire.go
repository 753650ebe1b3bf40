//go:build wireinject
// +build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/trexinity/another/pkg/config"
	"github.com/trexinity/another/pkg/interfaces"
)

func InitializeApp(ctx context.Context, cfg *config.StorefrontConfig, zl *zap.Logger, logger interfaces.Logger) (*App, func(), error) {
	wire.Build(
		// Storage
		provideStore,
		provideMetrics,

		// Events
		provideNATS,
		provideEventBus,

		// Domain
		provideCatalog,
		provideEngagement,
		provideWatchlist,
		provideProfiles,

		// Auth
		provideJWTManager,
		provideAuthorizer,
		provideAuthMiddleware,

		// Studio
		provideUploads,
		provideStudio,

		// HTTP
		provideHandler,
		provideServer,
		wire.Struct(new(App), "*"),
	)

	return nil, nil, nil
}
