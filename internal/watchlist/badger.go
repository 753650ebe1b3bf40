package watchlist

import (
	"context"
	"errors"
	"fmt"

	"github.com/avast/retry-go/v4"
	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/trexinity/another/internal/catalog/domain"
	apperrors "github.com/trexinity/another/pkg/errors"
	"github.com/trexinity/another/pkg/interfaces"
)

const badgerKeyPrefix = "watchlist:"

// BadgerStore keeps watchlists in a local BadgerDB, one key per user.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore wraps an open database.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// OpenBadger opens (or creates) the database at path. An empty path opens
// an in-memory database.
func OpenBadger(path string, logger interfaces.Logger) (*BadgerStore, func() error, error) {
	opts := badger.DefaultOptions(path).WithLogger(badgerLogger{logger})
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("open badger at %q: %w", path, err)
	}
	return NewBadgerStore(db), db.Close, nil
}

func badgerKey(uid string) []byte {
	return []byte(badgerKeyPrefix + uid)
}

func (s *BadgerStore) Add(ctx context.Context, uid, titleID string) error {
	if err := validate(uid, titleID); err != nil {
		return err
	}
	return s.update(ctx, uid, func(list []string) ([]string, bool) {
		return appendID(list, titleID)
	})
}

func (s *BadgerStore) Remove(ctx context.Context, uid, titleID string) error {
	if err := validate(uid, titleID); err != nil {
		return err
	}
	return s.update(ctx, uid, func(list []string) ([]string, bool) {
		return removeID(list, titleID)
	})
}

func (s *BadgerStore) Contains(ctx context.Context, uid, titleID string) (bool, error) {
	list, err := s.List(ctx, uid)
	if err != nil {
		return false, err
	}
	for _, id := range list {
		if id == titleID {
			return true, nil
		}
	}
	return false, nil
}

func (s *BadgerStore) List(ctx context.Context, uid string) ([]string, error) {
	if err := validateUser(uid); err != nil {
		return nil, err
	}
	list := []string{}
	err := s.db.View(func(txn *badger.Txn) error {
		got, err := readList(txn, uid)
		if err != nil {
			return err
		}
		if got != nil {
			list = got
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.FetchFailed("failed to read watchlist", err)
	}
	return list, nil
}

func (s *BadgerStore) Clear(ctx context.Context, uid string) error {
	if err := validateUser(uid); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(badgerKey(uid))
	})
	if err != nil {
		return apperrors.FetchFailed("failed to clear watchlist", err)
	}
	return nil
}

// update runs a read-modify-write in one badger transaction, retrying when
// a concurrent transaction touched the same key.
func (s *BadgerStore) update(ctx context.Context, uid string, mutate func([]string) ([]string, bool)) error {
	err := retry.Do(
		func() error {
			return s.db.Update(func(txn *badger.Txn) error {
				list, err := readList(txn, uid)
				if err != nil {
					return err
				}
				next, changed := mutate(list)
				if !changed {
					return nil
				}
				data, err := json.Marshal(next)
				if err != nil {
					return err
				}
				return txn.Set(badgerKey(uid), data)
			})
		},
		retry.Context(ctx),
		retry.Attempts(5),
		retry.Delay(0),
		retry.RetryIf(func(err error) bool { return errors.Is(err, badger.ErrConflict) }),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return apperrors.FetchFailed("failed to update watchlist", err)
	}
	return nil
}

func readList(txn *badger.Txn, uid string) ([]string, error) {
	item, err := txn.Get(badgerKey(uid))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var list []string
	err = item.Value(func(val []byte) error {
		list, err = domain.DecodeIDList(val)
		return err
	})
	return list, err
}

// badgerLogger routes badger's printf-style logging through the service
// logger. Info and debug chatter is dropped.
type badgerLogger struct {
	logger interfaces.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error("badger: " + fmt.Sprintf(format, args...))
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn("badger: " + fmt.Sprintf(format, args...))
}

func (l badgerLogger) Infof(string, ...interface{})  {}
func (l badgerLogger) Debugf(string, ...interface{}) {}
