// Package memstore is an in-process docstore.Store used for local
// development and tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/trexinity/another/internal/docstore"
)

type entry struct {
	value   []byte
	version uint64
}

// Store keeps documents in a map guarded by a RWMutex. Versions come from a
// store-wide revision counter so a deleted and recreated document never
// repeats an earlier version.
type Store struct {
	mu   sync.RWMutex
	docs map[string]entry
	rev  uint64
}

// New creates an empty store.
func New() *Store {
	return &Store{docs: make(map[string]entry)}
}

var _ docstore.Store = (*Store)(nil)

func (s *Store) Get(ctx context.Context, path string) (docstore.Snapshot, error) {
	if err := docstore.ValidatePath(path); err != nil {
		return docstore.Snapshot{}, err
	}
	if err := ctx.Err(); err != nil {
		return docstore.Snapshot{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.docs[path]
	if !ok {
		return docstore.Snapshot{Path: path}, nil
	}
	return snapshot(path, e), nil
}

func (s *Store) Children(ctx context.Context, path string) ([]docstore.Snapshot, error) {
	if err := docstore.ValidatePath(path); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := path + "/"

	s.mu.RLock()
	var out []docstore.Snapshot
	for p, e := range s.docs {
		if rest, ok := strings.CutPrefix(p, prefix); ok && !strings.Contains(rest, "/") {
			out = append(out, snapshot(p, e))
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (s *Store) Set(ctx context.Context, path string, value []byte) error {
	if err := docstore.ValidatePath(path); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(path, value)
	return nil
}

func (s *Store) Push(ctx context.Context, path string, value []byte) (string, error) {
	id := docstore.NewID()
	if err := s.Set(ctx, docstore.Join(path, id), value); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Delete(ctx context.Context, path string) error {
	if err := docstore.ValidatePath(path); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := path + "/"
	for p := range s.docs {
		if p == path || strings.HasPrefix(p, prefix) {
			delete(s.docs, p)
		}
	}
	return nil
}

func (s *Store) CompareAndSwap(ctx context.Context, path string, expectVersion uint64, value []byte) (uint64, error) {
	if err := docstore.ValidatePath(path); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.docs[path].version
	if current != expectVersion {
		return 0, fmt.Errorf("%w: %s at version %d, expected %d", docstore.ErrVersionConflict, path, current, expectVersion)
	}
	return s.put(path, value), nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func (s *Store) put(path string, value []byte) uint64 {
	s.rev++
	s.docs[path] = entry{value: append([]byte(nil), value...), version: s.rev}
	return s.rev
}

func snapshot(path string, e entry) docstore.Snapshot {
	return docstore.Snapshot{
		Path:    path,
		Value:   append([]byte(nil), e.value...),
		Version: e.version,
		Exists:  true,
	}
}
