// Package redisstore implements docstore.Store on Redis. Each document is a
// value key plus a version key; compare-and-swap runs under WATCH on the
// version key so a concurrent writer aborts the EXEC.
package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/trexinity/another/internal/docstore"
)

// Store is a docstore.Store backed by Redis.
//
// Key layout, all under the configured prefix:
//
//	doc:{path}     JSON value
//	ver:{path}     version
//	kids:{parent}  sorted set of direct child paths
//	paths          sorted set of every path, for subtree deletes
//	rev            store-wide version counter
type Store struct {
	rdb    redis.UniversalClient
	prefix string
}

// New creates a store using rdb. prefix namespaces every key.
func New(rdb redis.UniversalClient, prefix string) *Store {
	return &Store{rdb: rdb, prefix: prefix}
}

var _ docstore.Store = (*Store)(nil)

func (s *Store) docKey(path string) string  { return s.prefix + "doc:" + path }
func (s *Store) verKey(path string) string  { return s.prefix + "ver:" + path }
func (s *Store) kidsKey(path string) string { return s.prefix + "kids:" + path }
func (s *Store) pathsKey() string           { return s.prefix + "paths" }
func (s *Store) revKey() string             { return s.prefix + "rev" }

func (s *Store) Get(ctx context.Context, path string) (docstore.Snapshot, error) {
	if err := docstore.ValidatePath(path); err != nil {
		return docstore.Snapshot{}, err
	}

	var valCmd *redis.StringCmd
	var verCmd *redis.StringCmd
	_, err := s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		valCmd = p.Get(ctx, s.docKey(path))
		verCmd = p.Get(ctx, s.verKey(path))
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return docstore.Snapshot{}, unavailable("get", path, err)
	}
	return s.snapshot(path, valCmd, verCmd)
}

func (s *Store) Children(ctx context.Context, path string) ([]docstore.Snapshot, error) {
	if err := docstore.ValidatePath(path); err != nil {
		return nil, err
	}

	paths, err := s.rdb.ZRange(ctx, s.kidsKey(path), 0, -1).Result()
	if err != nil {
		return nil, unavailable("children", path, err)
	}
	if len(paths) == 0 {
		return []docstore.Snapshot{}, nil
	}

	valCmds := make([]*redis.StringCmd, len(paths))
	verCmds := make([]*redis.StringCmd, len(paths))
	_, err = s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, child := range paths {
			valCmds[i] = p.Get(ctx, s.docKey(child))
			verCmds[i] = p.Get(ctx, s.verKey(child))
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, unavailable("children", path, err)
	}

	out := make([]docstore.Snapshot, 0, len(paths))
	for i, child := range paths {
		snap, err := s.snapshot(child, valCmds[i], verCmds[i])
		if err != nil {
			return nil, err
		}
		// A child deleted between ZRANGE and GET is skipped.
		if snap.Exists {
			out = append(out, snap)
		}
	}
	return out, nil
}

func (s *Store) Set(ctx context.Context, path string, value []byte) error {
	if err := docstore.ValidatePath(path); err != nil {
		return err
	}

	rev, err := s.rdb.Incr(ctx, s.revKey()).Uint64()
	if err != nil {
		return unavailable("set", path, err)
	}
	if _, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		s.write(ctx, p, path, value, rev)
		return nil
	}); err != nil {
		return unavailable("set", path, err)
	}
	return nil
}

func (s *Store) Push(ctx context.Context, path string, value []byte) (string, error) {
	id := docstore.NewID()
	if _, err := s.CompareAndSwap(ctx, docstore.Join(path, id), 0, value); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Delete(ctx context.Context, path string) error {
	if err := docstore.ValidatePath(path); err != nil {
		return err
	}

	prefix := path + "/"
	below, err := s.rdb.ZRangeByLex(ctx, s.pathsKey(), &redis.ZRangeBy{
		Min: "[" + prefix,
		Max: "(" + prefix + "\xff",
	}).Result()
	if err != nil {
		return unavailable("delete", path, err)
	}

	victims := append(below, path)
	if _, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, v := range victims {
			p.Del(ctx, s.docKey(v), s.verKey(v), s.kidsKey(v))
			p.ZRem(ctx, s.kidsKey(docstore.Parent(v)), v)
			p.ZRem(ctx, s.pathsKey(), v)
		}
		return nil
	}); err != nil {
		return unavailable("delete", path, err)
	}
	return nil
}

func (s *Store) CompareAndSwap(ctx context.Context, path string, expectVersion uint64, value []byte) (uint64, error) {
	if err := docstore.ValidatePath(path); err != nil {
		return 0, err
	}

	var next uint64
	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, s.verKey(path)).Uint64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != expectVersion {
			return fmt.Errorf("%w: %s at version %d, expected %d", docstore.ErrVersionConflict, path, current, expectVersion)
		}

		next, err = tx.Incr(ctx, s.revKey()).Uint64()
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			s.write(ctx, p, path, value, next)
			return nil
		})
		return err
	}, s.verKey(path))

	switch {
	case err == nil:
		return next, nil
	case errors.Is(err, docstore.ErrVersionConflict):
		return 0, err
	case errors.Is(err, redis.TxFailedErr):
		return 0, fmt.Errorf("%w: %s changed during transaction", docstore.ErrVersionConflict, path)
	default:
		return 0, unavailable("compare-and-swap", path, err)
	}
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return unavailable("ping", "", err)
	}
	return nil
}

func (s *Store) write(ctx context.Context, p redis.Pipeliner, path string, value []byte, version uint64) {
	p.Set(ctx, s.docKey(path), value, 0)
	p.Set(ctx, s.verKey(path), version, 0)
	p.ZAdd(ctx, s.kidsKey(docstore.Parent(path)), redis.Z{Score: 0, Member: path})
	p.ZAdd(ctx, s.pathsKey(), redis.Z{Score: 0, Member: path})
}

func (s *Store) snapshot(path string, valCmd, verCmd *redis.StringCmd) (docstore.Snapshot, error) {
	val, err := valCmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return docstore.Snapshot{Path: path}, nil
	}
	if err != nil {
		return docstore.Snapshot{}, unavailable("get", path, err)
	}
	ver, err := verCmd.Uint64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return docstore.Snapshot{}, unavailable("get", path, err)
	}
	return docstore.Snapshot{Path: path, Value: val, Version: ver, Exists: true}, nil
}

func unavailable(op, path string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", docstore.ErrUnavailable, op, path, err)
}
