// Package config loads relay process configuration from the environment.
//
// Values are read from AIRDROP_* variables. Load first applies .env files,
// which never override variables already set in the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/jdziat/simple-durable-airdrops/pkg/core"
)

// Config holds relay process configuration.
type Config struct {
	HTTPAddr string

	DB    DBConfig
	Redis RedisConfig

	LedgerRPCURL string

	InterBatchDelay time.Duration
	ConfirmTimeout  time.Duration

	SweepSchedule string
	StaleAfter    time.Duration

	LogLevel slog.Level
}

// DBConfig selects the record store.
type DBConfig struct {
	Driver       string
	DSN          string
	MaxOpenConns int
}

// RedisConfig is optional. When Addr is empty the relay uses in-process
// locking and no progress fan-out.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether Redis is configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		HTTPAddr: ":8080",
		DB: DBConfig{
			Driver:       "sqlite",
			DSN:          "airdrops.db",
			MaxOpenConns: 10,
		},
		InterBatchDelay: core.DefaultInterBatchDelay,
		ConfirmTimeout:  core.DefaultConfirmTimeout,
		SweepSchedule:   "@every 1m",
		StaleAfter:      15 * time.Minute,
		LogLevel:        slog.LevelInfo,
	}
}

// Load reads .env files (default ".env"; missing files are ignored) and then
// the environment on top of Default.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from the environment only.
func FromEnv() (Config, error) {
	cfg := Default()
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			errs = append(errs, fmt.Errorf("%s: invalid duration %q", key, v))
			return
		}
		*dst = d
	}

	str("AIRDROP_HTTP_ADDR", &cfg.HTTPAddr)
	str("AIRDROP_DB_DRIVER", &cfg.DB.Driver)
	str("AIRDROP_DB_DSN", &cfg.DB.DSN)
	str("AIRDROP_LEDGER_RPC_URL", &cfg.LedgerRPCURL)
	str("AIRDROP_REDIS_ADDR", &cfg.Redis.Addr)
	str("AIRDROP_REDIS_PASSWORD", &cfg.Redis.Password)
	str("AIRDROP_SWEEP_SCHEDULE", &cfg.SweepSchedule)
	dur("AIRDROP_INTER_BATCH_DELAY", &cfg.InterBatchDelay)
	dur("AIRDROP_CONFIRM_TIMEOUT", &cfg.ConfirmTimeout)
	dur("AIRDROP_STALE_AFTER", &cfg.StaleAfter)

	num := func(key string, dst *int) {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			errs = append(errs, fmt.Errorf("%s: invalid number %q", key, v))
			return
		}
		*dst = n
	}
	num("AIRDROP_REDIS_DB", &cfg.Redis.DB)
	num("AIRDROP_DB_MAX_OPEN_CONNS", &cfg.DB.MaxOpenConns)
	if v := os.Getenv("AIRDROP_LOG_LEVEL"); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(strings.ToUpper(v))); err != nil {
			errs = append(errs, fmt.Errorf("AIRDROP_LOG_LEVEL: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings a relay server cannot run without.
func (c Config) Validate() error {
	var errs []error
	if c.LedgerRPCURL == "" {
		errs = append(errs, errors.New("AIRDROP_LEDGER_RPC_URL is required"))
	}
	if c.DB.DSN == "" {
		errs = append(errs, errors.New("AIRDROP_DB_DSN is required"))
	}
	if c.ConfirmTimeout <= 0 {
		errs = append(errs, errors.New("AIRDROP_CONFIRM_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

// Logger returns a JSON logger at the configured level.
func (c Config) Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: c.LogLevel}))
}
