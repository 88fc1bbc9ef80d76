package executor

import (
	"log/slog"
	"time"

	"github.com/jdziat/simple-durable-airdrops/pkg/core"
	"github.com/jdziat/simple-durable-airdrops/pkg/ledger"
	"github.com/jdziat/simple-durable-airdrops/pkg/lock"
	"github.com/jdziat/simple-durable-airdrops/pkg/progress"
	"github.com/jdziat/simple-durable-airdrops/pkg/security"
)

// Option configures an executor.
type Option interface {
	Apply(*Config)
}

type optionFunc func(*Config)

func (f optionFunc) Apply(c *Config) { f(c) }

// Config holds executor configuration.
type Config struct {
	InterBatchDelay time.Duration
	ConfirmTimeout  time.Duration
	PollInterval    time.Duration
	Logger          *slog.Logger
	Progress        []progress.Option

	// Relay only
	Locker       lock.Locker
	StorageRetry RetryConfig
}

func defaultConfig() Config {
	return Config{
		InterBatchDelay: core.DefaultInterBatchDelay,
		ConfirmTimeout:  core.DefaultConfirmTimeout,
		PollInterval:    ledger.DefaultPollInterval,
		Logger:          slog.Default(),
		StorageRetry:    DefaultRetryConfig(),
	}
}

func newConfig(opts []Option) Config {
	c := defaultConfig()
	for _, opt := range opts {
		opt.Apply(&c)
	}
	return c
}

// WithInterBatchDelay sets the pause between two submissions of a job.
// No pause follows the last batch. Zero disables the pause.
func WithInterBatchDelay(d time.Duration) Option {
	return optionFunc(func(c *Config) {
		if d >= 0 {
			c.InterBatchDelay = d
		}
	})
}

// WithConfirmTimeout bounds how long one submitted batch is awaited.
func WithConfirmTimeout(d time.Duration) Option {
	return optionFunc(func(c *Config) {
		if d > 0 {
			c.ConfirmTimeout = d
		}
	})
}

// WithPollInterval sets how often confirmation status is polled.
func WithPollInterval(d time.Duration) Option {
	return optionFunc(func(c *Config) {
		if d > 0 {
			c.PollInterval = d
		}
	})
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	})
}

// WithProgress passes options to the progress tracker of every job, for
// example progress.WithHook or progress.WithPublisher.
func WithProgress(opts ...progress.Option) Option {
	return optionFunc(func(c *Config) {
		c.Progress = append(c.Progress, opts...)
	})
}

// WithLocker sets the relay's single-execution guard. Defaults to an
// in-process locker.
func WithLocker(l lock.Locker) Option {
	return optionFunc(func(c *Config) {
		c.Locker = l
	})
}

// WithStorageRetry sets the retry policy for the relay's storage writes.
// MaxAttempts is clamped to [1, security.MaxRetries].
func WithStorageRetry(cfg RetryConfig) Option {
	return optionFunc(func(c *Config) {
		cfg.MaxAttempts = max(1, security.ClampRetries(cfg.MaxAttempts))
		c.StorageRetry = cfg
	})
}
