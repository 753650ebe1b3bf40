package gormstore

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/trexinity/another/pkg/database"
)

// Document is one row per stored path.
type Document struct {
	Path      string    `gorm:"primaryKey;size:512"`
	Parent    string    `gorm:"size:512;not null;index:idx_documents_parent_path,priority:1"`
	Value     string    `gorm:"type:text;not null"`
	Version   uint64    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName specifies the table name for GORM
func (Document) TableName() string {
	return "documents"
}

const revisionName = "documents"

// Revision is the store-wide version counter.
type Revision struct {
	Name string `gorm:"primaryKey;size:64"`
	Rev  uint64 `gorm:"not null"`
}

// TableName specifies the table name for GORM
func (Revision) TableName() string {
	return "revisions"
}

// Migrations returns the schema history of the documents table.
func Migrations() []database.MigrationEntry {
	return []database.MigrationEntry{
		{
			Version: "20250101_001",
			Name:    "create documents",
			Up: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&Document{})
			},
		},
		{
			Version: "20250101_002",
			Name:    "create revisions",
			Up: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&Revision{}); err != nil {
					return err
				}
				// Start above every version already handed out.
				var maxVersion uint64
				if err := tx.Model(&Document{}).Select("COALESCE(MAX(version), 0)").Scan(&maxVersion).Error; err != nil {
					return err
				}
				return tx.Clauses(clause.OnConflict{DoNothing: true}).
					Create(&Revision{Name: revisionName, Rev: maxVersion}).Error
			},
		},
	}
}

// Migrate applies pending document store migrations.
func Migrate(db *gorm.DB) error {
	_, err := database.NewMigrator(db, Migrations()...).Migrate()
	return err
}
