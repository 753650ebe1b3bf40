package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
)

const (
	DefaultAttempts  uint = 3
	DefaultBaseDelay      = 25 * time.Millisecond
)

// TxFunc computes the new value of a document from its current snapshot.
// It may run several times and must not have side effects.
type TxFunc func(current Snapshot) ([]byte, error)

type txOptions struct {
	attempts  uint
	baseDelay time.Duration
	onRetry   func(attempt uint, err error)
}

// TxOption configures Transact.
type TxOption func(*txOptions)

// WithAttempts bounds the number of read-modify-write attempts.
func WithAttempts(n uint) TxOption {
	return func(o *txOptions) {
		if n > 0 {
			o.attempts = n
		}
	}
}

// WithBaseDelay sets the first backoff delay; later delays double.
func WithBaseDelay(d time.Duration) TxOption {
	return func(o *txOptions) {
		o.baseDelay = d
	}
}

// WithOnRetry registers a callback invoked after each lost race.
func WithOnRetry(fn func(attempt uint, err error)) TxOption {
	return func(o *txOptions) {
		o.onRetry = fn
	}
}

// Transact runs an optimistic read-modify-write on path. On a version
// conflict it re-reads and retries with exponential backoff. When fn
// returns ErrAbortTransaction nothing is written and the current snapshot
// is returned. Any other error from fn or the store ends the transaction
// immediately.
func Transact(ctx context.Context, store Store, path string, fn TxFunc, opts ...TxOption) (Snapshot, error) {
	o := txOptions{attempts: DefaultAttempts, baseDelay: DefaultBaseDelay}
	for _, opt := range opts {
		opt(&o)
	}

	if err := ValidatePath(path); err != nil {
		return Snapshot{}, err
	}

	retryOpts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(o.attempts),
		retry.Delay(o.baseDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, ErrVersionConflict)
		}),
		retry.OnRetry(func(n uint, err error) {
			if o.onRetry != nil {
				o.onRetry(n, err)
			}
		}),
		retry.LastErrorOnly(true),
	}
	if o.baseDelay > 0 {
		// Jitter spreads out contenders that lost the same race.
		retryOpts = append(retryOpts,
			retry.MaxJitter(o.baseDelay),
			retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		)
	}

	var committed Snapshot
	err := retry.Do(
		func() error {
			current, err := store.Get(ctx, path)
			if err != nil {
				return err
			}

			next, err := fn(current)
			if errors.Is(err, ErrAbortTransaction) {
				committed = current
				return nil
			}
			if err != nil {
				return err
			}

			version, err := store.CompareAndSwap(ctx, path, current.Version, next)
			if err != nil {
				return err
			}
			committed = Snapshot{Path: path, Value: next, Version: version, Exists: true}
			return nil
		},
		retryOpts...,
	)
	if err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return Snapshot{}, fmt.Errorf("%w: %s after %d attempts: %w", ErrTransactionAborted, path, o.attempts, err)
		}
		return Snapshot{}, err
	}
	return committed, nil
}
