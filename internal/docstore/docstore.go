// Package docstore defines the hierarchical document store the storefront
// keeps its catalog and user records in, and the optimistic transaction
// helper every read-modify-write goes through.
package docstore

import (
	"context"
	"errors"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

var (
	// ErrVersionConflict is returned by CompareAndSwap when the stored
	// version differs from the expected one.
	ErrVersionConflict = errors.New("docstore: version conflict")

	// ErrTransactionAborted is returned by Transact when every attempt
	// lost a version race.
	ErrTransactionAborted = errors.New("docstore: transaction aborted")

	// ErrAbortTransaction may be returned by a TxFunc to stop without writing.
	ErrAbortTransaction = errors.New("docstore: abort transaction")

	// ErrInvalidPath is returned for empty or malformed paths.
	ErrInvalidPath = errors.New("docstore: invalid path")

	// ErrUnavailable wraps backend connectivity failures.
	ErrUnavailable = errors.New("docstore: unavailable")
)

// Snapshot is a point-in-time read of a single document.
type Snapshot struct {
	Path    string
	Value   []byte
	Version uint64
	Exists  bool
}

// Key returns the last path segment.
func (s Snapshot) Key() string {
	return Base(s.Path)
}

// Decode unmarshals the JSON value into v. A missing document leaves v
// untouched.
func (s Snapshot) Decode(v any) error {
	if !s.Exists || len(s.Value) == 0 {
		return nil
	}
	return json.Unmarshal(s.Value, v)
}

// Store is a hierarchical JSON document store with per-document versions.
//
// Get of a missing path returns a Snapshot with Exists false and no error.
// Version 0 means "absent": CompareAndSwap with expectVersion 0 creates the
// document and fails with ErrVersionConflict if it already exists.
type Store interface {
	Get(ctx context.Context, path string) (Snapshot, error)

	// Children returns the direct children of path ordered by key.
	Children(ctx context.Context, path string) ([]Snapshot, error)

	// Set overwrites the document unconditionally.
	Set(ctx context.Context, path string, value []byte) error

	// Push creates a child of path under a fresh id and returns the id.
	Push(ctx context.Context, path string, value []byte) (string, error)

	// Delete removes path and every document below it.
	Delete(ctx context.Context, path string) error

	CompareAndSwap(ctx context.Context, path string, expectVersion uint64, value []byte) (uint64, error)

	Ping(ctx context.Context) error
}

// NewID returns a store-assigned id. Ids are time ordered and never reused.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Marshal encodes a document value.
func Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// SetJSON marshals v and writes it to path.
func SetJSON(ctx context.Context, s Store, path string, v any) error {
	data, err := Marshal(v)
	if err != nil {
		return err
	}
	return s.Set(ctx, path, data)
}
