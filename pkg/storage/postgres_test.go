package storage

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdziat/simple-durable-airdrops/pkg/core"
)

// skipIfNotPostgres skips the test when TEST_DATABASE_URL is not set.
func skipIfNotPostgres(t *testing.T) {
	t.Helper()
	if os.Getenv("TEST_DATABASE_URL") == "" {
		t.Skip("TEST_DATABASE_URL not set — skipping PostgreSQL-specific test")
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Concurrent batch reports
// ──────────────────────────────────────────────────────────────────────────────

func TestRecordBatch_PostgreSQL_ConcurrentDuplicates(t *testing.T) {
	skipIfNotPostgres(t)

	ctx := context.Background()
	s := newTestStorage(t)
	newPendingRecord(t, s, "job-pg")

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.RecordBatch(ctx, "job-pg", outcome(0, core.BatchConfirmed, 10))
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	rows, err := s.GetBatches(ctx, "job-pg")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestCreateRecord_PostgreSQL_ConcurrentDuplicate(t *testing.T) {
	skipIfNotPostgres(t)

	ctx := context.Background()
	s := newTestStorage(t)

	var wg sync.WaitGroup
	results := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results <- s.CreateRecord(ctx, core.NewRecord("job-race", fmt.Sprint("creator-", i), "asset", nil, 1))
		}(i)
	}
	wg.Wait()
	close(results)

	var ok, dup int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, core.ErrDuplicateRecord):
			dup++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 3, dup)
}

func TestNewGormStorage_IsNotSQLite_PostgreSQL(t *testing.T) {
	skipIfNotPostgres(t)
	s := newTestStorage(t)
	assert.False(t, s.IsSQLite())
}
