package storage

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openTestDB opens PostgreSQL when TEST_DATABASE_URL is set and a fresh
// in-memory SQLite database otherwise. PostgreSQL tables are emptied before
// and after each test.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	driver, dsn := DriverSQLite, ":memory:"
	if url := os.Getenv("TEST_DATABASE_URL"); url != "" {
		driver, dsn = DriverPostgres, url
	}

	db, err := Open(driver, dsn, Pool{MaxOpen: 2, MaxIdle: 1})
	require.NoError(t, err, "open %s test db", driver)
	db.Logger = logger.Default.LogMode(logger.Silent)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	if driver == DriverPostgres {
		require.NoError(t, NewGormStorage(db).Migrate(context.Background()))
		truncate(db)
		t.Cleanup(func() { truncate(db) })
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func truncate(db *gorm.DB) {
	for _, table := range []string{"airdrop_batches", "airdrops"} {
		db.Exec("DELETE FROM " + table)
	}
}

// newTestStorage returns a migrated storage on openTestDB.
func newTestStorage(t *testing.T) *GormStorage {
	t.Helper()
	s := NewGormStorage(openTestDB(t))
	require.NoError(t, s.Migrate(context.Background()), "migrate schema")
	return s
}
