// Package server exposes the relay and the validation helpers over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jdziat/simple-durable-airdrops/pkg/core"
)

// Watcher streams progress snapshots of a running job, typically a
// progress.RedisPublisher shared with the relay.
type Watcher interface {
	Watch(ctx context.Context, jobID string) (<-chan core.Progress, error)
	Latest(ctx context.Context, jobID string) (*core.Progress, error)
}

// StatsStorage is implemented by storages that can aggregate counts, such as
// storage.GormStorage. GET /v1/stats answers 501 for storages without it.
type StatsStorage interface {
	GetStats(ctx context.Context, since time.Time) (*core.Stats, error)
}

// Option configures the handler.
type Option interface {
	apply(*config)
}

type optionFunc func(*config)

func (f optionFunc) apply(c *config) { f(c) }

type config struct {
	middleware func(http.Handler) http.Handler
	watcher    Watcher
	logger     *slog.Logger
}

// WithMiddleware wraps the handler with middleware (auth, logging, etc.).
func WithMiddleware(mw func(http.Handler) http.Handler) Option {
	return optionFunc(func(c *config) {
		c.middleware = mw
	})
}

// WithWatcher enables the progress event stream at
// GET /v1/airdrops/{id}/events.
func WithWatcher(w Watcher) Option {
	return optionFunc(func(c *config) {
		c.watcher = w
	})
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *config) {
		if l != nil {
			c.logger = l
		}
	})
}
