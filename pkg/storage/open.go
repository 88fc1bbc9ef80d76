package storage

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Supported driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open connects to a database by driver name and sizes its pool. An
// in-memory SQLite database always gets a single connection.
func Open(driver, dsn string, pool Pool) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverSQLite, "sqlite3":
		dialector = sqlite.Open(dsn)
	case DriverPostgres, "postgresql":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("airdrop: unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("airdrop: open %s: %w", driver, err)
	}

	if dialector.Name() == DriverSQLite && (dsn == ":memory:" || dsn == "") {
		pool = singleConn
	}
	if err := pool.Apply(db); err != nil {
		return nil, err
	}
	return db, nil
}
