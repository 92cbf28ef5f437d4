package db

import (
	"fmt"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yungbote/fleetscore-backend/internal/pkg/logger"
)

// SQLiteService is the embedded store used for single-node deployments and tests.
// SQLite has no row locks, so writers take the database lock up front
// (_txlock=immediate) and the pool is kept to one connection.
type SQLiteService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSQLiteService(logg *logger.Logger, path string) (*SQLiteService, error) {
	serviceLog := logg.With("service", "SQLiteService")
	dsn := SQLiteDSN(path)

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	serviceLog.Info("Opened sqlite store", "path", path)
	return &SQLiteService{db: db, log: serviceLog}, nil
}

// SQLiteDSN builds a mattn/go-sqlite3 DSN. ":memory:" or "" yields a private
// shared-cache in-memory database.
func SQLiteDSN(path string) string {
	path = strings.TrimSpace(path)
	params := "_busy_timeout=5000&_txlock=immediate&_foreign_keys=off"
	if path == "" || path == ":memory:" {
		return "file::memory:?cache=shared&" + params
	}
	if strings.Contains(path, "?") {
		return path + "&" + params
	}
	return "file:" + path + "?" + params
}

func (s *SQLiteService) DB() *gorm.DB { return s.db }

func (s *SQLiteService) AutoMigrateAll() error {
	s.log.Info("Auto migrating sqlite tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	return EnsureLedgerIndexes(s.db)
}
