// Package watchlist keeps each user's ordered list of saved titles.
package watchlist

import (
	"context"
	"slices"

	"github.com/trexinity/another/internal/docstore"
	apperrors "github.com/trexinity/another/pkg/errors"
	"github.com/trexinity/another/pkg/metrics"
)

// Backends.
const (
	BackendLocal  = "local"
	BackendRemote = "remote"
)

// Store persists watchlists keyed by user id. Adding a present id and
// removing an absent one are no-ops. List preserves insertion order.
type Store interface {
	Add(ctx context.Context, uid, titleID string) error
	Remove(ctx context.Context, uid, titleID string) error
	Contains(ctx context.Context, uid, titleID string) (bool, error)
	List(ctx context.Context, uid string) ([]string, error)
	Clear(ctx context.Context, uid string) error
}

// Watchlist is one user's watchlist.
type Watchlist struct {
	store Store
	uid   string
}

// For binds store to the signed-in user uid.
func For(store Store, uid string) (*Watchlist, error) {
	if uid == "" {
		return nil, apperrors.AuthRequired("watchlist")
	}
	return &Watchlist{store: store, uid: uid}, nil
}

func (w *Watchlist) Add(ctx context.Context, titleID string) error {
	return w.store.Add(ctx, w.uid, titleID)
}

func (w *Watchlist) Remove(ctx context.Context, titleID string) error {
	return w.store.Remove(ctx, w.uid, titleID)
}

func (w *Watchlist) Contains(ctx context.Context, titleID string) (bool, error) {
	return w.store.Contains(ctx, w.uid, titleID)
}

func (w *Watchlist) List(ctx context.Context) ([]string, error) {
	return w.store.List(ctx, w.uid)
}

func (w *Watchlist) Clear(ctx context.Context) error {
	return w.store.Clear(ctx, w.uid)
}

// appendID returns list with id appended, and whether it changed.
func appendID(list []string, id string) ([]string, bool) {
	if slices.Contains(list, id) {
		return list, false
	}
	return append(list, id), true
}

// removeID returns list without id, and whether it changed.
func removeID(list []string, id string) ([]string, bool) {
	i := slices.Index(list, id)
	if i < 0 {
		return list, false
	}
	return slices.Delete(slices.Clone(list), i, i+1), true
}

func validateUser(uid string) error {
	if uid == "" {
		return apperrors.AuthRequired("watchlist")
	}
	if err := docstore.ValidateSegment(uid); err != nil {
		return apperrors.BadRequest("invalid user id")
	}
	return nil
}

func validate(uid, titleID string) error {
	if err := validateUser(uid); err != nil {
		return err
	}
	if titleID == "" {
		return apperrors.Validation("titleId", "is required")
	}
	return nil
}

// instrumented counts mutations.
type instrumented struct {
	Store
	backend string
	metrics *metrics.Metrics
}

// Instrument records add and remove calls on m.
func Instrument(s Store, backend string, m *metrics.Metrics) Store {
	if m == nil {
		return s
	}
	return &instrumented{Store: s, backend: backend, metrics: m}
}

func (i *instrumented) Add(ctx context.Context, uid, titleID string) error {
	err := i.Store.Add(ctx, uid, titleID)
	if err == nil {
		i.metrics.WatchlistMutation("add", i.backend)
	}
	return err
}

func (i *instrumented) Remove(ctx context.Context, uid, titleID string) error {
	err := i.Store.Remove(ctx, uid, titleID)
	if err == nil {
		i.metrics.WatchlistMutation("remove", i.backend)
	}
	return err
}
