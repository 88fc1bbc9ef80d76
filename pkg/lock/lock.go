package lock

import (
	"context"
	"errors"
	"sync"
)

// ErrNotHeld is returned when unlocking a lock that is no longer held.
var ErrNotHeld = errors.New("airdrop: lock not held")

// Handle releases an acquired lock.
type Handle interface {
	Unlock(ctx context.Context) error
}

// Locker acquires named locks without waiting.
type Locker interface {
	// TryLock attempts to acquire key once. It returns false without error
	// when another holder has it.
	TryLock(ctx context.Context, key string) (Handle, bool, error)
}

// Key returns the lock key of a job.
func Key(jobID string) string {
	return "airdrop:lock:" + jobID
}

// Local is an in-process Locker.
type Local struct {
	mu   sync.Mutex
	held map[string]struct{}
}

var _ Locker = (*Local)(nil)

// NewLocal returns an empty in-process locker.
func NewLocal() *Local {
	return &Local{held: make(map[string]struct{})}
}

// TryLock implements Locker.
func (l *Local) TryLock(ctx context.Context, key string) (Handle, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return nil, false, nil
	}
	l.held[key] = struct{}{}
	return &localHandle{l: l, key: key}, true, nil
}

type localHandle struct {
	l    *Local
	key  string
	once sync.Once
}

func (h *localHandle) Unlock(context.Context) error {
	err := ErrNotHeld
	h.once.Do(func() {
		h.l.mu.Lock()
		delete(h.l.held, h.key)
		h.l.mu.Unlock()
		err = nil
	})
	return err
}
