package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	goredislib "github.com/redis/go-redis/v9"
)

// RedisOptions configures a Redis locker.
type RedisOptions struct {
	// Expiry is how long the lock lives without being extended.
	// Default: 30 seconds
	Expiry time.Duration

	// ExtendEvery is how often a held lock is extended.
	// Default: Expiry / 3
	ExtendEvery time.Duration

	// DriftFactor accounts for clock drift between Redis nodes.
	// Default: 0.01
	DriftFactor float64
}

// DefaultRedisOptions returns the default Redis locker options.
func DefaultRedisOptions() RedisOptions {
	return RedisOptions{
		Expiry:      30 * time.Second,
		ExtendEvery: 10 * time.Second,
		DriftFactor: 0.01,
	}
}

// Redis is a distributed Locker. A held lock is extended in the background
// until it is unlocked, so jobs may outlive Expiry.
type Redis struct {
	rs     *redsync.Redsync
	opts   RedisOptions
	logger *slog.Logger
}

var _ Locker = (*Redis)(nil)

// NewRedis returns a locker backed by client.
func NewRedis(client goredislib.UniversalClient, opts RedisOptions, logger *slog.Logger) *Redis {
	if opts.Expiry <= 0 {
		opts.Expiry = DefaultRedisOptions().Expiry
	}
	if opts.ExtendEvery <= 0 || opts.ExtendEvery >= opts.Expiry {
		opts.ExtendEvery = opts.Expiry / 3
	}
	if opts.DriftFactor <= 0 {
		opts.DriftFactor = DefaultRedisOptions().DriftFactor
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{
		rs:     redsync.New(goredis.NewPool(client)),
		opts:   opts,
		logger: logger,
	}
}

// TryLock implements Locker.
func (r *Redis) TryLock(ctx context.Context, key string) (Handle, bool, error) {
	mutex := r.rs.NewMutex(key,
		redsync.WithExpiry(r.opts.Expiry),
		redsync.WithTries(1),
		redsync.WithDriftFactor(r.opts.DriftFactor),
	)
	if err := mutex.LockContext(ctx); err != nil {
		if errors.Is(err, redsync.ErrFailed) || strings.Contains(err.Error(), "lock already taken") {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("acquire lock %s: %w", key, err)
	}

	h := &redisHandle{key: key, mutex: mutex, stop: make(chan struct{}), logger: r.logger}
	h.wg.Add(1)
	go h.keepAlive(r.opts.ExtendEvery)
	return h, true, nil
}

type redisHandle struct {
	key      string
	mutex    *redsync.Mutex
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	logger   *slog.Logger
}

func (h *redisHandle) keepAlive(every time.Duration) {
	defer h.wg.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
			if ok, err := h.mutex.ExtendContext(context.Background()); !ok || err != nil {
				h.logger.Warn("failed to extend job lock", "lock_key", h.key, "error", err)
			}
		}
	}
}

// Unlock stops extending the lock and releases it.
func (h *redisHandle) Unlock(ctx context.Context) error {
	first := false
	h.stopOnce.Do(func() {
		close(h.stop)
		first = true
	})
	if !first {
		return ErrNotHeld
	}
	h.wg.Wait()

	ok, err := h.mutex.UnlockContext(ctx)
	if err != nil {
		return fmt.Errorf("release lock %s: %w", h.key, err)
	}
	if !ok {
		return ErrNotHeld
	}
	return nil
}
