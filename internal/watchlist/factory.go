package watchlist

import (
	"fmt"

	"github.com/trexinity/another/internal/docstore"
	"github.com/trexinity/another/pkg/config"
	"github.com/trexinity/another/pkg/interfaces"
	"github.com/trexinity/another/pkg/metrics"
)

// New builds the configured backend. Exactly one backend is active; the
// returned close func releases it.
func New(cfg config.WatchlistConfig, docs docstore.Store, tx config.TransactionConfig, logger interfaces.Logger, m *metrics.Metrics) (Store, func() error, error) {
	switch cfg.Backend {
	case BackendLocal:
		store, closeFn, err := OpenBadger(cfg.BadgerPath, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Watchlist backend ready",
			interfaces.String("backend", BackendLocal),
			interfaces.String("path", cfg.BadgerPath))
		return Instrument(store, BackendLocal, m), closeFn, nil
	case BackendRemote, "":
		store := NewDocStore(docs,
			docstore.WithAttempts(tx.MaxAttempts),
			docstore.WithBaseDelay(tx.BaseDelay))
		logger.Info("Watchlist backend ready", interfaces.String("backend", BackendRemote))
		return Instrument(store, BackendRemote, m), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported watchlist backend: %q", cfg.Backend)
	}
}
