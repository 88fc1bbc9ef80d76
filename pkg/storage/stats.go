package storage

import (
	"context"
	"time"

	"github.com/jdziat/simple-durable-airdrops/pkg/core"
)

type countRow struct {
	Name  string
	Total int64
}

// GetStats counts records by status and batch rows by state. A non-zero
// since restricts both counts to rows created at or after it.
func (s *GormStorage) GetStats(ctx context.Context, since time.Time) (*core.Stats, error) {
	stats := &core.Stats{
		Records: make(map[core.Status]int64),
		Batches: make(map[core.BatchState]int64),
	}
	if !since.IsZero() {
		stats.Since = &since
	}

	var rows []countRow
	q := s.db.WithContext(ctx).Model(&core.Record{}).
		Select("status AS name, COUNT(*) AS total").
		Group("status")
	if !since.IsZero() {
		q = q.Where("created_at >= ?", since)
	}
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		stats.Records[core.Status(r.Name)] = r.Total
	}

	rows = nil
	q = s.db.WithContext(ctx).Model(&core.BatchRecord{}).
		Select("state AS name, COUNT(*) AS total").
		Group("state")
	if !since.IsZero() {
		q = q.Where("created_at >= ?", since)
	}
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		stats.Batches[core.BatchState(r.Name)] = r.Total
	}
	return stats, nil
}
