// Package sqlstore keeps the ledger document in a SQL table through GORM,
// one row per document with an optimistic revision column.
package sqlstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/vsinha/labledger/pkg/domain/entities"
	"github.com/vsinha/labledger/pkg/domain/repositories"
)

// DocumentRow is the table layout of a stored document
type DocumentRow struct {
	Name      string    `gorm:"primaryKey;size:128"`
	Revision  int64     `gorm:"not null"`
	Body      string    `gorm:"type:longtext;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (DocumentRow) TableName() string {
	return "ledger_documents"
}

// Open connects to dialect ("mysql" or "sqlite") and migrates the document table
func Open(dialect, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch dialect {
	case "mysql":
		dialector = mysql.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database dialect %q", dialect)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialect, err)
	}
	if err := db.AutoMigrate(&DocumentRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate document table: %w", err)
	}
	return db, nil
}

// Repository stores one named document
type Repository struct {
	db     *gorm.DB
	name   string
	logger *zap.Logger
	now    func() time.Time
}

func NewRepository(db *gorm.DB, name string, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	if name == "" {
		name = "default"
	}
	return &Repository{db: db, name: name, logger: logger, now: time.Now}
}

// Verify interface compliance
var _ repositories.DocumentRepository = (*Repository)(nil)

func (r *Repository) Load(ctx context.Context) (*entities.Document, error) {
	var row DocumentRow
	err := r.db.WithContext(ctx).Where("name = ?", r.name).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entities.NewDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document %s: %w", r.name, err)
	}

	var doc entities.Document
	if err := json.Unmarshal([]byte(row.Body), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", r.name, err)
	}
	doc.Revision = row.Revision
	doc.Normalize()
	return &doc, nil
}

// Save writes the document in one transaction, guarded by the revision column
func (r *Repository) Save(ctx context.Context, doc *entities.Document) error {
	next := doc.Revision + 1
	encoded := *doc
	encoded.Revision = next
	body, err := json.Marshal(&encoded)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if doc.Revision == 0 {
			var count int64
			if err := tx.Model(&DocumentRow{}).Where("name = ?", r.name).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return tx.Create(&DocumentRow{Name: r.name, Revision: next, Body: string(body), UpdatedAt: r.now()}).Error
			}
		}

		res := tx.Model(&DocumentRow{}).
			Where("name = ? AND revision = ?", r.name, doc.Revision).
			Updates(map[string]interface{}{"revision": next, "body": string(body), "updated_at": r.now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("save at revision %d: %w", doc.Revision, entities.ErrConcurrentModification)
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, entities.ErrConcurrentModification) {
			r.logger.Error("failed to save document", zap.String("name", r.name), zap.Error(err))
		}
		return err
	}
	doc.Revision = next
	return nil
}
