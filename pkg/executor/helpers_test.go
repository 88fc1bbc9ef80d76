package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jdziat/simple-durable-airdrops/pkg/core"
	"github.com/jdziat/simple-durable-airdrops/pkg/ledger"
	"github.com/jdziat/simple-durable-airdrops/pkg/ledger/ledgertest"
	"github.com/jdziat/simple-durable-airdrops/pkg/storage"
)

// fixture is a funded sender on an in-memory ledger.
type fixture struct {
	ledger *ledgertest.Ledger
	signer *ledger.KeySigner
	asset  ledger.Address
}

func newFixture(t *testing.T, opts ...ledgertest.Option) *fixture {
	t.Helper()
	l := ledgertest.New(opts...)
	signer := ledgertest.NewSigner(1)
	asset := ledgertest.NewAddress(2)
	l.Fund(signer.Address(), asset, 1_000_000_000)
	return &fixture{ledger: l, signer: signer, asset: asset}
}

// recipient returns the n-th test recipient, paid "1.5" units.
func recipient(n int) core.Recipient {
	return core.Recipient{Address: ledgertest.NewAddress(byte(100 + n)).String(), Amount: "1.5"}
}

func recipients(n int) []core.Recipient {
	out := make([]core.Recipient, n)
	for i := range out {
		out[i] = recipient(i)
	}
	return out
}

func (f *fixture) job(t *testing.T, n int) *core.Job {
	t.Helper()
	job, _, err := NewJob(f.signer.Address().String(), f.asset.String(), 2, recipients(n))
	require.NoError(t, err)
	return job
}

func (f *fixture) holding(r core.Recipient) ledger.Address {
	return ledger.HoldingAddress(ledger.MustParseAddress(r.Address), f.asset)
}

// fastOptions keep tests quick: no inter-batch delay and tight polling.
func fastOptions(extra ...Option) []Option {
	return append([]Option{
		WithInterBatchDelay(0),
		WithPollInterval(time.Millisecond),
		WithConfirmTimeout(2 * time.Second),
	}, extra...)
}

func newTestStorage(t *testing.T) *storage.GormStorage {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	s := storage.NewGormStorage(db)
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

// refusingSigner declines to sign after allowing a number of signatures.
type refusingSigner struct {
	*ledger.KeySigner
	allow int
	calls int
}

var errRefused = errors.New("user rejected the request")

func (s *refusingSigner) Sign(ctx context.Context, msg []byte) (ledger.Signature, error) {
	s.calls++
	if s.calls > s.allow {
		return ledger.Signature{}, errRefused
	}
	return s.KeySigner.Sign(ctx, msg)
}

// flakyStorage fails the first n writes of each kind with a transient error.
type flakyStorage struct {
	core.Storage
	recordBatchFailures int
	alwaysFail          bool
}

var errDBDown = errors.New("connection refused")

func (s *flakyStorage) RecordBatch(ctx context.Context, jobID string, o core.BatchOutcome) error {
	if s.alwaysFail {
		return errDBDown
	}
	if s.recordBatchFailures > 0 {
		s.recordBatchFailures--
		return errDBDown
	}
	return s.Storage.RecordBatch(ctx, jobID, o)
}

func fastRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 3, Backoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}
}
