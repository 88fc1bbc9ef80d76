// Package storage persists airdrop records and batch outcomes with GORM on
// SQLite or PostgreSQL.
//
// Open selects a dialect by driver name and sizes the connection pool:
//
//	db, err := storage.Open(storage.DriverPostgres, dsn, storage.RelayPool())
//	s := storage.NewGormStorage(db)
//	err = s.Migrate(ctx)
//
// Batch rows are unique per (job, batch index), so a relay that reports the
// same batch twice leaves one row. GetStats aggregates both tables for
// dashboards.
package storage
