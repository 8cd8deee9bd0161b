package gormstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"verge/internal/store"
	storemodel "verge/internal/store/model"
)

// GormStore implements session and strategy storage using Gorm + SQLite.
type GormStore struct {
	db *gorm.DB
}

var _ store.Store = (*GormStore)(nil)

// NewGormStore opens (and migrates) the database at path.
func NewGormStore(path string) (*GormStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: database path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	return NewGormStoreFromDB(db)
}

// NewGormStoreFromDB wraps an already opened connection.
func NewGormStoreFromDB(db *gorm.DB) (*GormStore, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm store: db cannot be nil")
	}
	if err := db.AutoMigrate(&storemodel.SessionModel{}, &storemodel.StrategyModel{}); err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		// SQLite + WAL: allow a small amount of parallelism for concurrent HTTP reads
		// while keeping lock contention low.
		sqlDB.SetMaxOpenConns(2)
		sqlDB.SetMaxIdleConns(2)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Begin(ctx context.Context) (store.UnitOfWork, error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &gormUnitOfWork{tx: tx}, nil
}

func (s *GormStore) Sessions() store.SessionRepository { return newSessionRepo(s.db) }

func (s *GormStore) Strategies() store.StrategyRepository { return newStrategyRepo(s.db) }

// Close closes the underlying database connection.
func (s *GormStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SQLDB exposes the underlying *sql.DB for shared connections.
func (s *GormStore) SQLDB() (*sql.DB, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store not initialized")
	}
	return s.db.DB()
}

type gormUnitOfWork struct {
	tx *gorm.DB
}

func (u *gormUnitOfWork) Sessions() store.SessionRepository { return newSessionRepo(u.tx) }

func (u *gormUnitOfWork) Strategies() store.StrategyRepository { return newStrategyRepo(u.tx) }

func (u *gormUnitOfWork) Commit() error { return u.tx.Commit().Error }

func (u *gormUnitOfWork) Rollback() error { return u.tx.Rollback().Error }
