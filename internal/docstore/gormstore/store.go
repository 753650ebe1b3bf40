// Package gormstore implements docstore.Store on a relational database
// through GORM. Each document is a row; compare-and-swap is a conditional
// UPDATE on the version column. Versions come from a store-wide revision
// row bumped in the same transaction, so a deleted and recreated path never
// reuses a version an old reader may still hold.
package gormstore

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/trexinity/another/internal/docstore"
)

// Store is a docstore.Store backed by the documents table.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// New creates a store. The schema must already be migrated.
func New(db *gorm.DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger.Named("gormstore")}
}

var _ docstore.Store = (*Store)(nil)

func (s *Store) Get(ctx context.Context, path string) (docstore.Snapshot, error) {
	if err := docstore.ValidatePath(path); err != nil {
		return docstore.Snapshot{}, err
	}

	var docs []Document
	if err := s.db.WithContext(ctx).Where("path = ?", path).Limit(1).Find(&docs).Error; err != nil {
		return docstore.Snapshot{}, unavailable("get", path, err)
	}
	if len(docs) == 0 {
		return docstore.Snapshot{Path: path}, nil
	}
	return toSnapshot(docs[0]), nil
}

func (s *Store) Children(ctx context.Context, path string) ([]docstore.Snapshot, error) {
	if err := docstore.ValidatePath(path); err != nil {
		return nil, err
	}

	var docs []Document
	if err := s.db.WithContext(ctx).Where("parent = ?", path).Order("path").Find(&docs).Error; err != nil {
		return nil, unavailable("children", path, err)
	}

	out := make([]docstore.Snapshot, len(docs))
	for i, d := range docs {
		out[i] = toSnapshot(d)
	}
	return out, nil
}

func (s *Store) Set(ctx context.Context, path string, value []byte) error {
	if err := docstore.ValidatePath(path); err != nil {
		return err
	}

	now := time.Now().UTC()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rev, err := nextRevision(tx)
		if err != nil {
			return err
		}
		doc := Document{
			Path:      path,
			Parent:    docstore.Parent(path),
			Value:     string(value),
			Version:   rev,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "path"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"value":      doc.Value,
				"version":    rev,
				"updated_at": now,
			}),
		}).Create(&doc).Error
	})
	if err != nil {
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
	result := s.db.WithContext(ctx).
		Where("path = ? OR substr(path, 1, ?) = ?", path, utf8.RuneCountInString(prefix), prefix).
		Delete(&Document{})
	if result.Error != nil {
		return unavailable("delete", path, result.Error)
	}

	s.logger.Debug("documents deleted",
		zap.String("path", path),
		zap.Int64("rows", result.RowsAffected))
	return nil
}

func (s *Store) CompareAndSwap(ctx context.Context, path string, expectVersion uint64, value []byte) (uint64, error) {
	if err := docstore.ValidatePath(path); err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	var next uint64
	conflict := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rev, err := nextRevision(tx)
		if err != nil {
			return err
		}

		var result *gorm.DB
		if expectVersion == 0 {
			result = tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&Document{
				Path:      path,
				Parent:    docstore.Parent(path),
				Value:     string(value),
				Version:   rev,
				CreatedAt: now,
				UpdatedAt: now,
			})
		} else {
			result = tx.Model(&Document{}).
				Where("path = ? AND version = ?", path, expectVersion).
				Updates(map[string]interface{}{
					"value":      string(value),
					"version":    rev,
					"updated_at": now,
				})
		}
		if result.Error != nil {
			return result.Error
		}
		conflict = result.RowsAffected == 0
		next = rev
		return nil
	})
	if err != nil {
		return 0, unavailable("compare-and-swap", path, err)
	}
	if conflict {
		if expectVersion == 0 {
			return 0, fmt.Errorf("%w: %s already exists", docstore.ErrVersionConflict, path)
		}
		return 0, fmt.Errorf("%w: %s moved past version %d", docstore.ErrVersionConflict, path, expectVersion)
	}
	return next, nil
}

// nextRevision bumps the revision row and returns the new value. The
// UPDATE holds the row lock until tx ends.
func nextRevision(tx *gorm.DB) (uint64, error) {
	result := tx.Model(&Revision{}).
		Where("name = ?", revisionName).
		Update("rev", gorm.Expr("rev + 1"))
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, fmt.Errorf("revision row %q missing; run migrations", revisionName)
	}
	var r Revision
	if err := tx.Where("name = ?", revisionName).Take(&r).Error; err != nil {
		return 0, err
	}
	return r.Rev, nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return unavailable("ping", "", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return unavailable("ping", "", err)
	}
	return nil
}

func toSnapshot(d Document) docstore.Snapshot {
	return docstore.Snapshot{
		Path:    d.Path,
		Value:   []byte(d.Value),
		Version: d.Version,
		Exists:  true,
	}
}

func unavailable(op, path string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", docstore.ErrUnavailable, op, path, err)
}
