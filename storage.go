package airdrop

import (
	"gorm.io/gorm"

	"github.com/jdziat/simple-durable-airdrops/pkg/storage"
)

// GormStorage implements Storage using GORM.
type GormStorage = storage.GormStorage

// NewGormStorage creates a new GORM-backed storage.
func NewGormStorage(db *gorm.DB) *GormStorage {
	return storage.NewGormStorage(db)
}

// OpenDB connects to "sqlite" or "postgres" with a pool sized for a relay.
func OpenDB(driver, dsn string) (*gorm.DB, error) {
	return storage.Open(driver, dsn, storage.RelayPool())
}
