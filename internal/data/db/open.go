package db

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/fleetscore-backend/internal/pkg/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Store is the migrated database handle for either backend.
type Store interface {
	DB() *gorm.DB
	AutoMigrateAll() error
}

// Open connects to the configured backend and migrates it.
func Open(log *logger.Logger, driver, sqlitePath string) (Store, error) {
	var (
		store Store
		err   error
	)
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverPostgres:
		store, err = NewPostgresService(log)
	case DriverSQLite:
		store, err = NewSQLiteService(log, sqlitePath)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := store.AutoMigrateAll(); err != nil {
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	return store, nil
}
