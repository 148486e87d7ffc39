package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tvtime-service/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLDocumentStore keeps counters in a trend_counters table
type SQLDocumentStore struct {
	db *gorm.DB
}

// OpenSQLDocumentStore opens postgres for postgres:// DSNs and sqlite otherwise
func OpenSQLDocumentStore(dsn string) (*SQLDocumentStore, error) {
	var dialector gorm.Dialector
	isPostgres := strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
	if isPostgres {
		dialector = postgres.Open(dsn)
	} else {
		dialector = sqlite.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		// unique violations surface as gorm.ErrDuplicatedKey
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open trend database: %w", err)
	}
	if !isPostgres {
		// sqlite allows a single writer; queue on the pool instead of failing with SQLITE_BUSY
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("open trend database: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return NewSQLDocumentStore(db)
}

// NewSQLDocumentStore migrates the table on an open connection
func NewSQLDocumentStore(db *gorm.DB) (*SQLDocumentStore, error) {
	if err := db.AutoMigrate(&model.TrendCounter{}); err != nil {
		return nil, fmt.Errorf("migrate trend_counters: %w", err)
	}
	return &SQLDocumentStore{db: db}, nil
}

// FindByTerm looks a counter up by exact term
func (s *SQLDocumentStore) FindByTerm(ctx context.Context, term string) (*model.TrendCounter, error) {
	var doc model.TrendCounter
	err := s.db.WithContext(ctx).Where("search_term = ?", term).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find trend counter: %w", err)
	}
	return &doc, nil
}

// Create inserts a new counter
func (s *SQLDocumentStore) Create(ctx context.Context, doc *model.TrendCounter) error {
	if _, err := s.FindByTerm(ctx, doc.SearchTerm); err == nil {
		return ErrDuplicate
	} else if !IsNotFound(err) {
		return err
	}

	row := *doc
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
	}
	row.Seq = row.CreatedAt.UnixNano()
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return fmt.Errorf("create trend counter: %w", err)
	}
	return nil
}

// Increment adds delta to an existing counter in a single UPDATE
func (s *SQLDocumentStore) Increment(ctx context.Context, id string, delta int64) error {
	result := s.db.WithContext(ctx).
		Model(&model.TrendCounter{}).
		Where("id = ?", id).
		Update("count", gorm.Expr("count + ?", delta))
	if result.Error != nil {
		return fmt.Errorf("increment trend counter: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByCount returns up to limit counters, highest first
func (s *SQLDocumentStore) ListByCount(ctx context.Context, limit int) ([]model.TrendCounter, error) {
	docs := []model.TrendCounter{}
	err := s.db.WithContext(ctx).
		Order("count DESC").
		Order("seq ASC").
		Limit(limit).
		Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("list trend counters: %w", err)
	}
	return docs, nil
}

// Reset drops every counter
func (s *SQLDocumentStore) Reset(ctx context.Context) error {
	return s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&model.TrendCounter{}).Error
}

// Close closes the underlying connection pool
func (s *SQLDocumentStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
