package repository

import (
	"context"
	"errors"

	"github.com/trexinity/another/internal/catalog/domain"
	"github.com/trexinity/another/internal/docstore"
	apperrors "github.com/trexinity/another/pkg/errors"
	"github.com/trexinity/another/pkg/interfaces"
)

// DocStoreRepository implements Repository on the document store.
type DocStoreRepository struct {
	store  docstore.Store
	txOpts []docstore.TxOption
	logger interfaces.Logger
}

// NewDocStoreRepository creates a new docstore-backed user repository.
func NewDocStoreRepository(store docstore.Store, logger interfaces.Logger, txOpts ...docstore.TxOption) *DocStoreRepository {
	return &DocStoreRepository{store: store, txOpts: txOpts, logger: logger}
}

func (r *DocStoreRepository) GetProfile(ctx context.Context, uid string) (*domain.Profile, error) {
	snap, err := r.store.Get(ctx, domain.UserPath(uid))
	if err != nil {
		return nil, apperrors.FetchFailed("failed to read profile", err)
	}
	if !snap.Exists {
		return nil, apperrors.NotFound("profile not found")
	}
	var p domain.Profile
	if err := snap.Decode(&p); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrorTypeInternal, "malformed profile", err)
	}
	return &p, nil
}

func (r *DocStoreRepository) CreateProfile(ctx context.Context, uid string, profile *domain.Profile) (bool, error) {
	data, err := docstore.Marshal(profile)
	if err != nil {
		return false, err
	}
	_, err = r.store.CompareAndSwap(ctx, domain.UserPath(uid), 0, data)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, docstore.ErrVersionConflict):
		return false, nil
	default:
		return false, apperrors.FetchFailed("failed to create profile", err)
	}
}

func (r *DocStoreRepository) GetFavorites(ctx context.Context, uid string) ([]string, error) {
	snap, err := r.store.Get(ctx, domain.FavoritesPath(uid))
	if err != nil {
		return nil, apperrors.FetchFailed("failed to read favorites", err)
	}
	list, err := domain.DecodeIDList(snap.Value)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrorTypeInternal, "malformed favorites", err)
	}
	if list == nil {
		list = []string{}
	}
	return list, nil
}

func (r *DocStoreRepository) UpdateFavorites(ctx context.Context, uid string, fn ListMutation) ([]string, error) {
	var result []string
	snap, err := docstore.Transact(ctx, r.store, domain.FavoritesPath(uid), func(cur docstore.Snapshot) ([]byte, error) {
		list, err := domain.DecodeIDList(cur.Value)
		if err != nil {
			return nil, err
		}
		next, changed := fn(list)
		result = next
		if !changed {
			return nil, docstore.ErrAbortTransaction
		}
		return docstore.Marshal(next)
	}, r.txOpts...)

	switch {
	case err == nil:
	case errors.Is(err, docstore.ErrTransactionAborted):
		return nil, apperrors.Wrap(apperrors.ErrorTypeConflict, "favorites changed concurrently, try again", err)
	default:
		return nil, apperrors.FetchFailed("failed to update favorites", err)
	}

	r.logger.Debug("Favorites updated",
		interfaces.String("uid", uid),
		interfaces.Int64("version", int64(snap.Version)))
	if result == nil {
		result = []string{}
	}
	return result, nil
}

func (r *DocStoreRepository) PutProgress(ctx context.Context, uid, titleID string, progress domain.WatchProgress) error {
	path := docstore.Join(domain.WatchProgressPath(uid), titleID)
	if err := docstore.SetJSON(ctx, r.store, path, progress); err != nil {
		return apperrors.FetchFailed("failed to save progress", err)
	}
	return nil
}

func (r *DocStoreRepository) ListProgress(ctx context.Context, uid string) (map[string]domain.WatchProgress, error) {
	children, err := r.store.Children(ctx, domain.WatchProgressPath(uid))
	if err != nil {
		return nil, apperrors.FetchFailed("failed to read progress", err)
	}
	out := make(map[string]domain.WatchProgress, len(children))
	for _, child := range children {
		var p domain.WatchProgress
		if err := child.Decode(&p); err != nil {
			r.logger.Warn("Skipping malformed progress entry",
				interfaces.String("path", child.Path),
				interfaces.Error(err))
			continue
		}
		out[child.Key()] = p
	}
	return out, nil
}

func (r *DocStoreRepository) DeleteProgress(ctx context.Context, uid, titleID string) error {
	if err := r.store.Delete(ctx, docstore.Join(domain.WatchProgressPath(uid), titleID)); err != nil {
		return apperrors.FetchFailed("failed to delete progress", err)
	}
	return nil
}

func (r *DocStoreRepository) PutHistory(ctx context.Context, uid string, entry domain.WatchHistoryEntry) error {
	path := docstore.Join(domain.WatchHistoryPath(uid), entry.TitleID)
	if err := docstore.SetJSON(ctx, r.store, path, entry); err != nil {
		return apperrors.FetchFailed("failed to save history", err)
	}
	return nil
}

func (r *DocStoreRepository) ListHistory(ctx context.Context, uid string) ([]domain.WatchHistoryEntry, error) {
	children, err := r.store.Children(ctx, domain.WatchHistoryPath(uid))
	if err != nil {
		return nil, apperrors.FetchFailed("failed to read history", err)
	}
	out := make([]domain.WatchHistoryEntry, 0, len(children))
	for _, child := range children {
		var e domain.WatchHistoryEntry
		if err := child.Decode(&e); err != nil {
			r.logger.Warn("Skipping malformed history entry",
				interfaces.String("path", child.Path),
				interfaces.Error(err))
			continue
		}
		if e.TitleID == "" {
			e.TitleID = child.Key()
		}
		out = append(out, e)
	}
	return out, nil
}
