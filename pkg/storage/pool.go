package storage

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Pool sizes the connection pool of a record store. Zero fields keep the
// database/sql default.
type Pool struct {
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
}

// RelayPool suits a relay server. A relay holds a connection only for the
// short writes around each batch, so a small pool serves many concurrent jobs.
func RelayPool() Pool {
	return Pool{
		MaxOpen:     10,
		MaxIdle:     5,
		MaxLifetime: 5 * time.Minute,
		MaxIdleTime: 30 * time.Second,
	}
}

// singleConn pins an in-memory SQLite database to one connection; every
// new connection would otherwise see an empty database.
var singleConn = Pool{MaxOpen: 1, MaxIdle: 1}

// Apply configures the pool of db.
func (p Pool) Apply(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("airdrop: get *sql.DB: %w", err)
	}
	if p.MaxOpen > 0 {
		sqlDB.SetMaxOpenConns(p.MaxOpen)
	}
	if p.MaxIdle > 0 {
		sqlDB.SetMaxIdleConns(p.MaxIdle)
	}
	if p.MaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(p.MaxLifetime)
	}
	if p.MaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(p.MaxIdleTime)
	}
	return nil
}
