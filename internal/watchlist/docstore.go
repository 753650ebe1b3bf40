package watchlist

import (
	"context"
	"errors"
	"slices"

	"github.com/trexinity/another/internal/catalog/domain"
	"github.com/trexinity/another/internal/docstore"
	apperrors "github.com/trexinity/another/pkg/errors"
)

// DocStore keeps watchlists in the document store at users/{uid}/watchlist
// so they follow the user across devices.
type DocStore struct {
	store docstore.Store
	opts  []docstore.TxOption
}

// NewDocStore creates a remote watchlist store.
func NewDocStore(store docstore.Store, opts ...docstore.TxOption) *DocStore {
	return &DocStore{store: store, opts: opts}
}

func (s *DocStore) Add(ctx context.Context, uid, titleID string) error {
	if err := validate(uid, titleID); err != nil {
		return err
	}
	return s.update(ctx, uid, func(list []string) ([]string, bool) {
		return appendID(list, titleID)
	})
}

func (s *DocStore) Remove(ctx context.Context, uid, titleID string) error {
	if err := validate(uid, titleID); err != nil {
		return err
	}
	return s.update(ctx, uid, func(list []string) ([]string, bool) {
		return removeID(list, titleID)
	})
}

func (s *DocStore) Contains(ctx context.Context, uid, titleID string) (bool, error) {
	list, err := s.List(ctx, uid)
	if err != nil {
		return false, err
	}
	return slices.Contains(list, titleID), nil
}

func (s *DocStore) List(ctx context.Context, uid string) ([]string, error) {
	if err := validateUser(uid); err != nil {
		return nil, err
	}
	snap, err := s.store.Get(ctx, domain.WatchlistPath(uid))
	if err != nil {
		return nil, apperrors.FetchFailed("failed to read watchlist", err)
	}
	list, err := domain.DecodeIDList(snap.Value)
	if err != nil {
		return nil, apperrors.FetchFailed("failed to read watchlist", err)
	}
	if list == nil {
		list = []string{}
	}
	return list, nil
}

func (s *DocStore) Clear(ctx context.Context, uid string) error {
	if err := validateUser(uid); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, domain.WatchlistPath(uid)); err != nil {
		return apperrors.FetchFailed("failed to clear watchlist", err)
	}
	return nil
}

func (s *DocStore) update(ctx context.Context, uid string, mutate func([]string) ([]string, bool)) error {
	_, err := docstore.Transact(ctx, s.store, domain.WatchlistPath(uid), func(cur docstore.Snapshot) ([]byte, error) {
		list, err := domain.DecodeIDList(cur.Value)
		if err != nil {
			return nil, err
		}
		next, changed := mutate(list)
		if !changed {
			return nil, docstore.ErrAbortTransaction
		}
		return docstore.Marshal(next)
	}, s.opts...)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, docstore.ErrTransactionAborted):
		return apperrors.Wrap(apperrors.ErrorTypeConflict, "watchlist changed concurrently, try again", err)
	default:
		return apperrors.FetchFailed("failed to update watchlist", err)
	}
}
